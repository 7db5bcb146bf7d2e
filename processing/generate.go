package processing

import (
	"context"
	"strings"

	"github.com/openai/openai-go/v3"

	"github.com/drewmudry/shootplan-api/analysis"
)

const DefaultMaxTokens = 2000

// TextRequest is a free-form generation request.
type TextRequest struct {
	Prompt       string `json:"prompt" binding:"required"`
	SystemPrompt string `json:"system_prompt"`
	MaxTokens    int    `json:"max_tokens"`
}

// GenerateText streams a completion and returns the concatenated deltas.
// A 429 from the provider is returned as an analysis.KindRateLimit error.
func (c *Client) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	messages := []openai.ChatCompletionMessageParamUnion{}
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	stream := c.api.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               c.model,
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
	})
	defer stream.Close()

	var b strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		for _, choice := range chunk.Choices {
			b.WriteString(choice.Delta.Content)
		}
	}
	if err := stream.Err(); err != nil {
		if classified := classifyAPIError(err); classified != err {
			return "", classified
		}
		return "", analysis.NewError(analysis.KindNetwork, "generation stream failed", err)
	}

	text := b.String()
	if strings.TrimSpace(text) == "" {
		return "", analysis.NewError(analysis.KindMalformedResponse, "the model returned no text", nil)
	}
	return text, nil
}
