package llm

import (
	"context"

	"github.com/comigor/chatstore/internal/config"
	"github.com/comigor/chatstore/internal/logger"
	"github.com/comigor/chatstore/internal/session"
	"github.com/sashabaranov/go-openai"
)

// Result is a parsed completion response.
type Result struct {
	Content     string
	TotalTokens int
}

// Complete sends the full ordered history of a session to the
// completion endpoint and parses the response. Only role and content
// cross the wire; ids, timestamps and token metadata stay local.
func Complete(ctx context.Context, client Client, cfg config.LLMConfig, history []session.Message) (*Result, *Error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       cfg.Model,
		Messages:    messages,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	})
	if err != nil {
		cerr := Classify(err)
		logger.L.Error("completion call failed", "kind", cerr.Kind, "error", err)
		return nil, cerr
	}

	if len(resp.Choices) == 0 {
		logger.L.Error("completion response missing choices", "model", cfg.Model)
		return nil, &Error{Kind: KindUnknown}
	}

	return &Result{
		Content:     resp.Choices[0].Message.Content,
		TotalTokens: resp.Usage.TotalTokens,
	}, nil
}
