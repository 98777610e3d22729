package ai

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/glowlabs/glowchat/backend/internal/config"
	"github.com/glowlabs/glowchat/backend/internal/model/chat"
	"github.com/glowlabs/glowchat/backend/internal/upstream"
)

// Completer is the narrow contract the chat handler depends on: submit the
// retained transcript (oldest first, last turn is the pending user message)
// and get the assistant reply. Failures carry the upstream taxonomy.
type Completer interface {
	Complete(ctx context.Context, turns []chat.Turn) (string, error)
}

// Service implements Completer on top of the configured chat model.
type Service struct {
	cfg   config.AIConfig
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewService builds the model and compiles the completion chain once.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{cfg: cfg, chain: runnable}, nil
}

// Complete runs one completion round over the transcript with the
// configured timeout. A timeout surfaces as upstream.ErrUnavailable.
func (s *Service) Complete(ctx context.Context, turns []chat.Turn) (string, error) {
	if len(turns) == 0 {
		return "", fmt.Errorf("empty transcript")
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	last := turns[len(turns)-1]
	input := map[string]any{
		"history": historyMessages(turns[:len(turns)-1]),
		"query":   last.Content,
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		classified := upstream.Classify(err)
		if errors.Is(err, classified) {
			return "", fmt.Errorf("completion failed: %w", err)
		}
		return "", fmt.Errorf("completion failed: %v: %w", err, classified)
	}
	if response == nil || response.Content == "" {
		return "", fmt.Errorf("completion failed: %w", upstream.ErrMalformedResponse)
	}

	log.Printf("[ai] completion ok, transcript=%d turns, reply=%d bytes", len(turns), len(response.Content))
	return response.Content, nil
}

// historyMessages maps retained turns onto model messages verbatim. The
// window is already bounded by the conversation store; nothing is dropped
// or summarized here.
func historyMessages(turns []chat.Turn) []*schema.Message {
	if len(turns) == 0 {
		return nil
	}

	history := make([]*schema.Message, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(turn.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(turn.Content, nil))
		}
	}
	return history
}
