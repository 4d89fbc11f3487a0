package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/companionkit/agentic/config"
	"github.com/companionkit/agentic/domain"
)

// OpenAIClient talks to an OpenAI-compatible chat-completions endpoint. The
// reply is the first choice's message content. The client never retries;
// every failure maps to one of the domain's completion error kinds.
type OpenAIClient struct {
	cfg        config.LLM
	httpClient *http.Client
}

func NewOpenAIClient(cfg config.LLM) *OpenAIClient {
	return &OpenAIClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type completionRequest struct {
	Model    string               `json:"model"`
	Messages []domain.ChatMessage `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *OpenAIClient) Complete(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model:    c.cfg.OpenAIModel,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("%w: encoding request: %v", domain.ErrCompletionMalformed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OpenAIBaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: building request: %v", domain.ErrCompletionUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.OpenAIAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", domain.ErrCompletionTimeout, err)
		}
		var urlErr interface{ Timeout() bool }
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return "", fmt.Errorf("%w: %v", domain.ErrCompletionTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", domain.ErrCompletionUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		kind := classifyStatus(resp.StatusCode)
		return "", fmt.Errorf("%w: status %d: %s", kind, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var parsed completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", domain.ErrCompletionMalformed, err)
	}

	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: empty choice list", domain.ErrCompletionMalformed)
	}

	return parsed.Choices[0].Message.Content, nil
}

func classifyStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.ErrCompletionAuth
	case status == http.StatusTooManyRequests:
		return domain.ErrCompletionRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return domain.ErrCompletionTimeout
	default:
		return domain.ErrCompletionUnavailable
	}
}

var _ domain.CompletionClient = (*OpenAIClient)(nil)
