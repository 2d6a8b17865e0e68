package services

import (
	"context"
	"fmt"

	"sitesmith-backend/internal/llm"
)

// Generator produces a full HTML document. The output is raw model text and
// may still carry code fences.
type Generator interface {
	Generate(ctx context.Context, enhanced string, existingCode *string) (string, error)
}

type CodeGenerator struct {
	completer llm.Completer
	prompts   PromptSource
}

func NewCodeGenerator(completer llm.Completer, prompts PromptSource) *CodeGenerator {
	return &CodeGenerator{completer: completer, prompts: prompts}
}

// Generate creates a new document when existingCode is nil and otherwise asks
// for the complete updated document, never a diff.
func (g *CodeGenerator) Generate(ctx context.Context, enhanced string, existingCode *string) (string, error) {
	var messages []llm.ChatMessage
	if existingCode == nil {
		messages = []llm.ChatMessage{
			llm.SystemMessage(resolvePrompt(ctx, g.prompts, PromptCodeGenerateCreation)),
			llm.UserMessage(enhanced),
		}
	} else {
		messages = []llm.ChatMessage{
			llm.SystemMessage(resolvePrompt(ctx, g.prompts, PromptCodeGenerateRevision)),
			llm.UserMessage(fmt.Sprintf("Here is the current website code: \"%s\"\nThe user wants this change: \"%s\"", *existingCode, enhanced)),
		}
	}

	out, err := g.completer.Complete(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generate code: %w: %w", ErrUpstream, err)
	}
	return out, nil
}
