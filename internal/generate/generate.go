// Package generate produces commit messages for the panel, either through a
// model backend or through a deterministic fallback derived from the
// repository snapshot.
package generate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chmouel/lazypanel/internal/models"
)

// ErrUnavailable reports that no generation capability is reachable; the
// panel reacts by offering the deterministic fallback instead of failing.
var ErrUnavailable = errors.New("message generation unavailable")

const promptTemplate = "Generate a concise conventional commit message for this diff. " +
	"Return only the message, no explanation.\n\nBranch: %s\n\n%s"

// BuildPrompt renders the generation prompt for a snapshot and its staged
// diff.
func BuildPrompt(snapshot *models.StatusSnapshot, diff string) string {
	branch := "(detached)"
	if snapshot != nil && snapshot.Branch != "" {
		branch = snapshot.Branch
	}
	if strings.TrimSpace(diff) == "" && snapshot != nil {
		// Nothing staged yet; describe the pending paths instead.
		var b strings.Builder
		for _, path := range snapshot.Unstaged {
			fmt.Fprintf(&b, "modified: %s\n", path)
		}
		for _, path := range snapshot.Untracked {
			fmt.Fprintf(&b, "new: %s\n", path)
		}
		diff = b.String()
	}
	return fmt.Sprintf(promptTemplate, branch, diff)
}
