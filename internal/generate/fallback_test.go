package generate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chmouel/lazypanel/internal/models"
)

func TestFallbackPrecedence(t *testing.T) {
	tests := []struct {
		name   string
		staged []string
		prefix string
	}{
		{"test beats docs and source", []string{"README.md", "src/app.ts", "test/app.spec.ts"}, "test:"},
		{"docs beats source", []string{"README.md", "src/app.ts"}, "docs:"},
		{"style beats chore", []string{"theme.css", "package.json"}, "style:"},
		{"chore alone", []string{"go.mod", "go.sum"}, "chore:"},
		{"single source file is a fix", []string{"src/app.ts"}, "fix:"},
		{"several source files are a refactor", []string{"src/app.ts", "src/db.ts"}, "refactor:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := Fallback(&models.StatusSnapshot{Staged: tt.staged})
			assert.True(t, strings.HasPrefix(msg, tt.prefix), "got %q, want prefix %q", msg, tt.prefix)
		})
	}
}

func TestFallbackDeterministic(t *testing.T) {
	snap := &models.StatusSnapshot{Staged: []string{"b.go", "a.go", "c.go"}}
	first := Fallback(snap)
	// Same set in a different order yields the same message.
	reordered := &models.StatusSnapshot{Staged: []string{"c.go", "a.go", "b.go"}}
	assert.Equal(t, first, Fallback(reordered))
}

func TestFallbackUnstagedWhenNothingStaged(t *testing.T) {
	snap := &models.StatusSnapshot{
		Unstaged:  []string{"src/app.ts"},
		Untracked: []string{"src/feature.ts"},
	}
	msg := Fallback(snap)
	// The untracked file makes this a feat; feat outranks fix and refactor.
	assert.True(t, strings.HasPrefix(msg, "feat:"), "got %q", msg)
}

func TestFallbackEmptySnapshot(t *testing.T) {
	assert.Equal(t, "chore: update", Fallback(&models.StatusSnapshot{}))
	assert.Equal(t, "chore: update", Fallback(nil))
}

func TestFallbackDescribe(t *testing.T) {
	one := Fallback(&models.StatusSnapshot{Staged: []string{"docs/guide.md"}})
	assert.Equal(t, "docs: update guide.md", one)

	many := Fallback(&models.StatusSnapshot{Staged: []string{"a.md", "b.md", "c.md", "d.md"}})
	assert.Equal(t, "docs: update 4 files", many)
}

func TestBuildPromptUsesSnapshotWhenDiffEmpty(t *testing.T) {
	snap := &models.StatusSnapshot{
		Branch:    "main",
		Unstaged:  []string{"app.go"},
		Untracked: []string{"notes.txt"},
	}
	prompt := BuildPrompt(snap, "")
	assert.Contains(t, prompt, "Branch: main")
	assert.Contains(t, prompt, "modified: app.go")
	assert.Contains(t, prompt, "new: notes.txt")
}

func TestCLIGeneratorUnavailable(t *testing.T) {
	orig := LookupPath
	LookupPath = func(string) (string, error) { return "", errors.New("not found") }
	defer func() { LookupPath = orig }()

	gen := NewCLI("claude")
	_, err := gen.Generate(context.Background(), &models.StatusSnapshot{}, "diff")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestFirstLineBlock(t *testing.T) {
	assert.Equal(t, "feat: add thing", firstLineBlock("```\nfeat: add thing\n```"))
	assert.Equal(t, "fix: bug", firstLineBlock("fix: bug"))
}
