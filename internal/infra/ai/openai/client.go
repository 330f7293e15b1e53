package openai

import (
	"context"
	"errors"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/vetletters/claims-intake/internal/domain/analysis"
	domain "github.com/vetletters/claims-intake/internal/domain/claims"
	"github.com/vetletters/claims-intake/internal/infra/ai/prompt"
)

const maxTokens = 4096

const serviceName = "ai"

type Client struct {
	*openai.Client
	Model string
	Log   *zap.Logger
}

func NewClient(apiKey, baseURL, model string, log *zap.Logger) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model, Log: log}
}

// Analyze sends the medical records through chat completion in JSON mode and
// decodes the findings. Provider errors surface as CallError so the pipeline
// can retry the transient ones; unparseable output degrades to the
// conservative fallback analysis instead of failing the claim.
func (c *Client) Analyze(ctx context.Context, records string, veteranName, claimID string) (*analysis.Result, error) {
	model := c.Model
	if model == "" {
		model = "gpt-4o-2024-08-06"
	}
	req := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: 0.1,
		MaxTokens:   maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: prompt.GetUserPrompt(records, veteranName, claimID)},
		},
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, wrapProviderError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &domain.CallError{
			Service:    serviceName,
			StatusCode: http.StatusBadGateway,
			Err:        errors.New("completion returned no choices"),
		}
	}

	res, perr := prompt.Parse(resp.Choices[0].Message.Content)
	if perr != nil {
		if c.Log != nil {
			c.Log.Warn("ai output unparseable, using fallback analysis",
				zap.String("claim_id", claimID), zap.Error(perr))
		}
		return prompt.Fallback(veteranName), nil
	}
	return res, nil
}

func wrapProviderError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		inner := err
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			inner = analysis.ErrQuotaExceeded
		}
		return &domain.CallError{Service: serviceName, StatusCode: apiErr.HTTPStatusCode, Err: inner}
	}
	return &domain.CallError{Service: serviceName, Err: err}
}
