package generate

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/chmouel/lazypanel/internal/models"
)

// LookupPath is used to find the generator binary in PATH. Exposed as a
// package variable so tests can mock it.
var LookupPath = exec.LookPath

// CLIGenerator pipes the staged diff to a local claude binary and uses its
// output as the commit message.
type CLIGenerator struct {
	bin string
}

// NewCLI creates a generator backed by the given binary.
func NewCLI(bin string) *CLIGenerator {
	if bin == "" {
		bin = "claude"
	}
	return &CLIGenerator{bin: bin}
}

// Generate runs the binary with the prompt; ctx cancellation kills the
// process. A missing binary reports ErrUnavailable.
func (c *CLIGenerator) Generate(ctx context.Context, snapshot *models.StatusSnapshot, diff string) (string, error) {
	if _, err := LookupPath(c.bin); err != nil {
		return "", ErrUnavailable
	}

	cmd := exec.CommandContext(ctx, c.bin, "--print", "-p", BuildPrompt(snapshot, ""))
	cmd.Stdin = strings.NewReader(diff)

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%s: %w", c.bin, err)
	}

	message := strings.TrimSpace(string(out))
	if message == "" {
		return "", fmt.Errorf("%s returned an empty message", c.bin)
	}
	return firstLineBlock(message), nil
}
