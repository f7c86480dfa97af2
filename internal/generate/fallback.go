package generate

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/chmouel/lazypanel/internal/models"
)

// Fallback categories in precedence order: the first category matched by any
// changed path decides the message prefix.
var fallbackOrder = []string{"test", "docs", "style", "chore", "feat", "fix", "refactor"}

// Fallback synthesizes a deterministic conventional-commit message from the
// snapshot, with no model involved. Staged paths win; when nothing is staged
// the unstaged and untracked paths are categorized instead.
func Fallback(snapshot *models.StatusSnapshot) string {
	if snapshot == nil {
		return "chore: update"
	}

	paths := append([]string{}, snapshot.Staged...)
	newFiles := make(map[string]bool)
	if len(paths) == 0 {
		paths = append(paths, snapshot.Unstaged...)
		paths = append(paths, snapshot.Untracked...)
		for _, p := range snapshot.Untracked {
			newFiles[p] = true
		}
	}
	if len(paths) == 0 {
		return "chore: update"
	}
	sort.Strings(paths)

	matched := make(map[string]bool)
	for _, p := range paths {
		matched[categorize(p, newFiles[p])] = true
	}
	if len(paths) == 1 && matched["refactor"] {
		// A single modified source file reads as a fix, several as a refactor.
		matched["fix"] = true
	}

	for _, category := range fallbackOrder {
		if matched[category] {
			return fmt.Sprintf("%s: %s", category, describe(paths))
		}
	}
	return "chore: " + describe(paths)
}

func categorize(p string, isNew bool) string {
	base := strings.ToLower(path.Base(p))
	lower := strings.ToLower(p)
	ext := path.Ext(base)

	switch {
	case strings.Contains(base, "test") || strings.Contains(base, ".spec.") ||
		strings.HasPrefix(lower, "test/") || strings.Contains(lower, "/test/"):
		return "test"
	case ext == ".md" || ext == ".rst" || ext == ".adoc" ||
		strings.HasPrefix(lower, "docs/") || strings.HasPrefix(base, "readme"):
		return "docs"
	case ext == ".css" || ext == ".scss" || ext == ".sass" || ext == ".less" || ext == ".styl":
		return "style"
	case isConfigFile(base, ext):
		return "chore"
	case isNew:
		return "feat"
	default:
		return "refactor"
	}
}

func isConfigFile(base, ext string) bool {
	switch ext {
	case ".json", ".yaml", ".yml", ".toml", ".ini", ".lock":
		return true
	}
	switch base {
	case "makefile", "dockerfile", "go.mod", "go.sum", ".gitignore", ".gitattributes":
		return true
	}
	return strings.HasPrefix(base, ".") && ext == ""
}

func describe(paths []string) string {
	if len(paths) == 1 {
		return "update " + path.Base(paths[0])
	}
	if len(paths) <= 3 {
		names := make([]string, len(paths))
		for i, p := range paths {
			names[i] = path.Base(p)
		}
		return "update " + strings.Join(names, ", ")
	}
	return fmt.Sprintf("update %d files", len(paths))
}
