package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/companionkit/agentic/config"
	"github.com/companionkit/agentic/domain"
)

// GeminiClient is the alternative completion backend on Google's genai SDK.
// A leading system message becomes the model's system instruction; the rest
// of the sequence maps to user/model contents.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewGeminiClient(ctx context.Context, cfg config.LLM) (*GeminiClient, error) {
	client, err := genai.NewClient(
		ctx,
		&genai.ClientConfig{
			APIKey:      cfg.GeminiAPIKey,
			Backend:     genai.BackendGeminiAPI,
			HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &GeminiClient{client: client, model: cfg.GeminiModel, timeout: cfg.Timeout}, nil
}

func (g *GeminiClient) Complete(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	var genCfg *genai.GenerateContentConfig
	contents := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		if msg.Role == domain.SystemRole {
			genCfg = &genai.GenerateContentConfig{
				SystemInstruction: &genai.Content{
					Parts: []*genai.Part{{Text: msg.Content}},
				},
			}
			continue
		}

		role := genai.RoleUser
		if msg.Role == domain.AssistantRole {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, genCfg)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", domain.ErrCompletionTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", domain.ErrCompletionUnavailable, err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: empty response text", domain.ErrCompletionMalformed)
	}
	return text, nil
}

var _ domain.CompletionClient = (*GeminiClient)(nil)
