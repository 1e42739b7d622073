package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"

	"github.com/fitpick/fitpick/internal/domain"
	"github.com/fitpick/fitpick/internal/retry"
)

// Chat issues chat completions via the shared client. Structured variants
// request a JSON-schema response format and decode it into the caller's type.
type Chat struct {
	client *openai.Client
	model  string
	retry  retry.Policy
	logger *zap.Logger
}

// NewChat creates a Chat wrapper for the given model.
func NewChat(client *openai.Client, model string, policy retry.Policy, logger *zap.Logger) *Chat {
	return &Chat{client: client, model: model, retry: policy, logger: logger}
}

// CompleteJSON runs a system+user completion at temperature 0 and decodes the
// structured response into out. A response that cannot be decoded fails with
// domain.ErrMalformedResponse; provider exhaustion fails with
// domain.ErrUpstreamUnavailable.
func (c *Chat) CompleteJSON(ctx context.Context, component, system, user, schemaName string, out any) error {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: user},
	}
	return c.completeStructured(ctx, component, messages, schemaName, out)
}

// CompleteVisionJSON runs a single-user-message completion carrying both the
// prompt text and a base64 JPEG image, decoding the structured response into
// out.
func (c *Chat) CompleteVisionJSON(ctx context.Context, component, prompt, imageB64, schemaName string, out any) error {
	messages := []openai.ChatCompletionMessage{
		{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    "data:image/jpeg;base64," + imageB64,
						Detail: openai.ImageURLDetailAuto,
					},
				},
			},
		},
	}
	return c.completeStructured(ctx, component, messages, schemaName, out)
}

// Complete runs a plain system-prompt completion and returns the response text.
func (c *Chat) Complete(ctx context.Context, component, system string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
		},
	}

	resp, err := c.create(ctx, component, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in completion", domain.ErrMalformedResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Chat) completeStructured(
	ctx context.Context, component string,
	messages []openai.ChatCompletionMessage, schemaName string, out any,
) error {
	schema, err := jsonschema.GenerateSchemaForType(out)
	if err != nil {
		return fmt.Errorf("generate schema %s: %w", schemaName, err)
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		Messages:    messages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName,
				Schema: schema,
				Strict: true,
			},
		},
	}

	resp, err := c.create(ctx, component, req)
	if err != nil {
		return err
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("%w: no choices in completion", domain.ErrMalformedResponse)
	}

	if err := schema.Unmarshal(resp.Choices[0].Message.Content, out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", domain.ErrMalformedResponse, schemaName, err)
	}
	return nil
}

// create issues the completion under the retry policy with transport metrics.
func (c *Chat) create(
	ctx context.Context, component string, req openai.ChatCompletionRequest,
) (openai.ChatCompletionResponse, error) {
	var resp openai.ChatCompletionResponse
	err := c.retry.Do(ctx, c.logger, component, func(ctx context.Context) error {
		start := time.Now()
		var callErr error
		resp, callErr = c.client.CreateChatCompletion(ctx, req)
		observe(component, c.model, start, callErr)
		if callErr != nil {
			return classifyErr(callErr)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrUpstreamUnavailable) {
			err = fmt.Errorf("chat completion: %w: %w", domain.ErrUpstreamUnavailable, err)
		}
		return openai.ChatCompletionResponse{}, err
	}
	return resp, nil
}
