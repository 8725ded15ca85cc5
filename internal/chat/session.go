package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	appLog "portfolio/internal/log"
	"portfolio/internal/model"
)

var (
	ErrEmptyMessage = errors.New("chat: message is empty")

	// ErrBusy is returned when a reply is still pending. The session is left
	// untouched.
	ErrBusy = errors.New("chat: a reply is already pending")
)

// FallbackMessage is the assistant reply shown when the completion fails.
func FallbackMessage(email string) string {
	return "Sorry, I'm having trouble responding right now. Please try again later or contact me directly at " + email
}

// WelcomeMessage opens every new conversation.
func WelcomeMessage(firstName string) string {
	return "Hi! I'm " + firstName + ". Ask me anything about my work, skills or projects."
}

// Session is one visitor's conversation. At most one request is in flight
// at a time.
type Session struct {
	mu       sync.Mutex
	llm      Completer
	email    string
	now      func() time.Time
	messages []model.ChatMessage
	pending  bool
}

// NewSession starts a conversation. welcome, when non-empty, is shown as
// the first assistant message but never sent to the model.
func NewSession(llm Completer, ownerEmail, welcome string) *Session {
	s := &Session{llm: llm, email: ownerEmail, now: time.Now}
	if welcome != "" {
		s.messages = append(s.messages, model.ChatMessage{
			Role:      model.RoleAssistant,
			Content:   welcome,
			Timestamp: s.now(),
		})
	}
	return s
}

// Send appends text as a user message, asks the model for a reply and
// appends it. On failure the reply is FallbackMessage and err is nil: the
// failure is logged, not surfaced.
func (s *Session) Send(ctx context.Context, text string) (model.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.ChatMessage{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return model.ChatMessage{}, ErrBusy
	}
	s.pending = true
	s.messages = append(s.messages, model.ChatMessage{Role: model.RoleUser, Content: text, Timestamp: s.now()})
	history := s.history()
	s.mu.Unlock()

	content, err := s.llm.Complete(ctx, history)
	if err != nil {
		appLog.Error("chat: completion failed", err, "turns", len(history))
		content = FallbackMessage(s.email)
	}

	reply := model.ChatMessage{Role: model.RoleAssistant, Content: content, Timestamp: s.now()}
	s.mu.Lock()
	s.messages = append(s.messages, reply)
	s.pending = false
	s.mu.Unlock()
	return reply, nil
}

// history is the conversation as sent to the model; the greeting is
// dropped. Caller holds mu.
func (s *Session) history() []model.ChatMessage {
	out := make([]model.ChatMessage, 0, len(s.messages))
	for i, m := range s.messages {
		if i == 0 && m.Role == model.RoleAssistant {
			continue
		}
		out = append(out, m)
	}
	return out
}

func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Messages returns a copy of the conversation in order.
func (s *Session) Messages() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}
