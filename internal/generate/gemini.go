package generate

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/chmouel/lazypanel/internal/models"
)

// GeminiGenerator produces commit messages through the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini-backed generator. An empty API key yields
// ErrUnavailable so callers can fall through to another backend.
func NewGemini(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, ErrUnavailable
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// Generate asks the model for a commit message describing the snapshot and
// diff. Cancellation of ctx aborts the request.
func (g *GeminiGenerator) Generate(ctx context.Context, snapshot *models.StatusSnapshot, diff string) (string, error) {
	prompt := BuildPrompt(snapshot, diff)
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	message := strings.TrimSpace(result.Text())
	if message == "" {
		return "", fmt.Errorf("gemini returned an empty message")
	}
	return firstLineBlock(message), nil
}

// firstLineBlock strips markdown fences the model sometimes wraps around the
// message.
func firstLineBlock(message string) string {
	message = strings.TrimPrefix(message, "```")
	if idx := strings.Index(message, "```"); idx >= 0 {
		message = message[:idx]
	}
	return strings.TrimSpace(message)
}
