// File: internal/services/ai/openai_provider.go
package ai

import (
	"context"
	"errors"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/iyunix/go-chatsync/internal/domain"
)

type OpenAIProvider struct {
	config *Config
	client *openai.Client
}

func NewOpenAIProvider(config *Config) (*OpenAIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, NewConfigError(err.Error())
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIProvider{
		config: config,
		client: openai.NewClientWithConfig(clientConfig),
	}, nil
}

func (p *OpenAIProvider) request(history []domain.Message) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, len(history))
	for i, m := range history {
		messages[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}
	return openai.ChatCompletionRequest{
		Model:       p.config.Model,
		Messages:    messages,
		Temperature: p.config.Temperature,
	}
}

func (p *OpenAIProvider) Complete(ctx context.Context, history []domain.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, p.request(history))
	if err != nil {
		return "", p.wrapError("completion", "failed to create completion", err)
	}

	// An empty reply is a valid completion; only a response with no choices is malformed.
	if len(resp.Choices) == 0 {
		return "", &AIError{
			Type:      ErrTypeEmptyResponse,
			Operation: "completion",
			Message:   "completion response has no choices",
			Model:     p.config.Model,
		}
	}

	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) StreamComplete(ctx context.Context, history []domain.Message, onDelta func(string) error) error {
	req := p.request(history)
	req.Stream = true

	stream, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return p.wrapError("streaming", "failed to create stream", err)
	}
	defer stream.Close()

	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return &AIError{Type: ErrTypeStream, Operation: "streaming", Message: "stream receive error", Model: p.config.Model, Cause: err}
		}

		for _, choice := range response.Choices {
			if delta := choice.Delta.Content; delta != "" && onDelta != nil {
				if cbErr := onDelta(delta); cbErr != nil {
					return cbErr
				}
			}
		}
	}
}

func (p *OpenAIProvider) wrapError(operation, msg string, err error) *AIError {
	aiErr := NewProviderError(operation, msg, err)
	aiErr.Model = p.config.Model

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		aiErr.Code = apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		aiErr.Code = reqErr.HTTPStatusCode
	}
	return aiErr
}
