package processing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/drewmudry/shootplan-api/analysis"
)

const DefaultModel = openai.ChatModelGPT4oMini

// Client wraps the OpenAI chat completions API.
type Client struct {
	api    openai.Client
	model  openai.ChatModel
	logger *zap.Logger
}

// NewClient creates a client. Retries are left to the caller, so the SDK's
// own retry loop is disabled.
func NewClient(apiKey, model string, log *zap.Logger, opts ...option.RequestOption) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY is not set")
	}
	if model == "" {
		model = string(DefaultModel)
	}
	if log == nil {
		log = zap.NewNop()
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	return &Client{
		api:    openai.NewClient(opts...),
		model:  openai.ChatModel(model),
		logger: log,
	}, nil
}

// getStructuredResponse calls the chat API with JSON schema enforcement and
// decodes the reply into T.
func getStructuredResponse[T any](ctx context.Context, c *Client, system, prompt, name string, schema interface{}) (*T, error) {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        name,
		Description: openai.String("Structured data response"),
		Schema:      schema,
		Strict:      openai.Bool(true),
	}

	messages := []openai.ChatCompletionMessageParamUnion{}
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(prompt))

	chatCompletion, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    c.model,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: schemaParam,
			},
		},
	})
	if err != nil {
		return nil, classifyAPIError(err)
	}

	if len(chatCompletion.Choices) == 0 {
		return nil, analysis.NewError(analysis.KindMalformedResponse, "no choices in OpenAI response", nil)
	}

	raw := chatCompletion.Choices[0].Message.Content
	if raw == "" {
		return nil, analysis.NewError(analysis.KindMalformedResponse,
			fmt.Sprintf("OpenAI returned empty content (finish reason %s)", chatCompletion.Choices[0].FinishReason), nil)
	}

	var structured T
	if err := json.Unmarshal([]byte(raw), &structured); err != nil {
		c.logger.Debug("unparseable structured response", zap.String("raw", truncate(raw, 500)))
		return nil, analysis.NewError(analysis.KindInvalidJSON, "OpenAI response is not valid JSON", err)
	}
	return &structured, nil
}

// classifyAPIError maps SDK status errors onto the analysis taxonomy. Errors
// without a status are returned as is.
func classifyAPIError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.StatusCode {
	case http.StatusTooManyRequests:
		return analysis.NewError(analysis.KindRateLimit, "AI rate limit reached", err)
	case http.StatusPaymentRequired:
		return analysis.NewError(analysis.KindPaymentRequired, "AI credits exhausted", err)
	default:
		return analysis.NewError(analysis.KindAPI, fmt.Sprintf("OpenAI returned %d", apiErr.StatusCode), err)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
