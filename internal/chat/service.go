// Package chat runs the health assistant conversation: per-user sessions,
// an optional Gemini model with function calling, and a keyword fallback.
package chat

import (
	"context"
	"fmt"
	"log/slog"
)

type ToolUse struct {
	Name ToolName `json:"name"`
}

type Reply struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	ToolCalls []ToolUse `json:"tool_calls"`
}

// Responder produces the assistant's reply to a conversation whose last
// message is the user's.
type Responder interface {
	Respond(ctx context.Context, history []Message) (Reply, error)
}

type Service struct {
	sessions SessionStore
	llm      Responder
	fallback Responder
	log      *slog.Logger
}

// NewService builds a chat service. llm may be nil, in which case every
// reply comes from fallback.
func NewService(sessions SessionStore, llm, fallback Responder, log *slog.Logger) *Service {
	return &Service{sessions: sessions, llm: llm, fallback: fallback, log: log}
}

// Reply records message in the user's session, answers it and records the
// answer. A failing model is logged and replaced by the fallback.
func (s *Service) Reply(ctx context.Context, userID, message string) (Reply, error) {
	if err := s.sessions.Append(ctx, userID, Message{Role: RoleUser, Content: message}); err != nil {
		return Reply{}, err
	}
	history, err := s.sessions.History(ctx, userID)
	if err != nil {
		return Reply{}, err
	}

	var reply Reply
	if s.llm != nil {
		reply, err = s.llm.Respond(ctx, history)
		if err != nil {
			s.log.Warn("chat model failed, using fallback", "user_id", userID, "error", err)
		}
	}
	if s.llm == nil || err != nil {
		reply, err = s.fallback.Respond(ctx, history)
		if err != nil {
			return Reply{}, fmt.Errorf("fallback reply: %w", err)
		}
	}
	if reply.ToolCalls == nil {
		reply.ToolCalls = []ToolUse{}
	}

	if err := s.sessions.Append(ctx, userID, Message{Role: RoleAssistant, Content: reply.Content}); err != nil {
		return Reply{}, err
	}
	return reply, nil
}

// Reset discards the user's conversation.
func (s *Service) Reset(ctx context.Context, userID string) error {
	return s.sessions.Clear(ctx, userID)
}
