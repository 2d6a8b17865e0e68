package services

import (
	"context"
	"fmt"

	"sitesmith-backend/internal/llm"
)

// Mode selects creation or revision behaviour in the enhancer and generator.
type Mode string

const (
	ModeCreation Mode = "creation"
	ModeRevision Mode = "revision"
)

// Enhancer turns a raw user instruction into a refined one.
type Enhancer interface {
	Enhance(ctx context.Context, raw string, mode Mode) (string, error)
}

type PromptEnhancer struct {
	completer llm.Completer
	prompts   PromptSource
}

func NewPromptEnhancer(completer llm.Completer, prompts PromptSource) *PromptEnhancer {
	return &PromptEnhancer{completer: completer, prompts: prompts}
}

// Enhance returns the backend's first choice verbatim. Backend failures come
// back as ErrUpstream; nothing is retried.
func (e *PromptEnhancer) Enhance(ctx context.Context, raw string, mode Mode) (string, error) {
	var messages []llm.ChatMessage
	switch mode {
	case ModeCreation:
		messages = []llm.ChatMessage{
			llm.SystemMessage(resolvePrompt(ctx, e.prompts, PromptCodeEnhanceCreation)),
			llm.UserMessage(raw),
		}
	case ModeRevision:
		messages = []llm.ChatMessage{
			llm.SystemMessage(resolvePrompt(ctx, e.prompts, PromptCodeEnhanceRevision)),
			llm.UserMessage(fmt.Sprintf("User's request: \"%s\"", raw)),
		}
	default:
		return "", fmt.Errorf("unknown enhancement mode %q: %w", mode, ErrInvalidInput)
	}

	out, err := e.completer.Complete(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("enhance prompt: %w: %w", ErrUpstream, err)
	}
	return out, nil
}
