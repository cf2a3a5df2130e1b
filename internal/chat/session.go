// Package chat holds the conversational side of the dashboard: a transcript,
// a draft, and single-flight sending to the assistant backend.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"frugal/internal/core"
	applog "frugal/internal/log"
	"frugal/internal/refresh"
)

const (
	Greeting        = "Hello! I'm FrugalAgent. How can I help you manage your expenses today?"
	FallbackMessage = "Sorry, I encountered an error. Please try again."
)

var (
	ErrEmptyMessage    = errors.New("message is empty")
	ErrSendInFlight    = errors.New("a message is already being sent")
	ErrUnknownQuickAct = errors.New("unknown quick action")
)

// QuickActions maps action names to the draft text they produce.
var QuickActions = map[string]string{
	"add":      "I want to add an expense.",
	"split":    "I want to split an expense.",
	"insights": "Show me my spending insights.",
}

// Sender delivers one user message and returns the assistant reply.
type Sender interface {
	Chat(ctx context.Context, message string) (string, error)
}

type Session struct {
	id     string
	sender Sender
	signal *refresh.Signal
	logger *applog.Logger
	sem    *semaphore.Weighted

	mu      sync.Mutex
	log     []core.Message
	draft   string
	sending bool
}

// NewSession starts a transcript containing only the greeting. signal may
// be nil when nothing needs to hear about server-side changes.
func NewSession(sender Sender, signal *refresh.Signal, logger *applog.Logger) *Session {
	if logger == nil {
		logger = applog.Discard()
	}
	id := uuid.NewString()
	return &Session{
		id:     id,
		sender: sender,
		signal: signal,
		logger: logger.WithComponent(applog.ComponentChat).With(applog.FieldSessionID, id),
		sem:    semaphore.NewWeighted(1),
		log:    []core.Message{core.AssistantMessage(Greeting)},
	}
}

func (s *Session) ID() string { return s.id }

// Messages returns a copy of the transcript in order.
func (s *Session) Messages() []core.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Message, len(s.log))
	copy(out, s.log)
	return out
}

func (s *Session) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

func (s *Session) SetDraft(text string) {
	s.mu.Lock()
	s.draft = text
	s.mu.Unlock()
}

func (s *Session) IsSending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

// QuickAction replaces the draft with the canned text for name.
func (s *Session) QuickAction(name string) error {
	text, ok := QuickActions[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownQuickAct, name)
	}
	s.SetDraft(text)
	return nil
}

// SendDraft sends the current draft.
func (s *Session) SendDraft(ctx context.Context) error {
	return s.Send(ctx, s.Draft())
}

// Send appends text as a user message and asks the backend for a reply.
//
// Blank text returns ErrEmptyMessage and a second Send while one is
// outstanding returns ErrSendInFlight; neither touches the transcript. A
// backend failure is not fatal: it is logged, a fallback assistant message is
// appended, and the error is returned for the caller's information. Only a
// successful reply bumps the refresh signal.
func (s *Session) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if !s.sem.TryAcquire(1) {
		return ErrSendInFlight
	}
	defer s.sem.Release(1)

	s.mu.Lock()
	s.log = append(s.log, core.UserMessage(text))
	s.draft = ""
	s.sending = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.sending = false
		s.mu.Unlock()
	}()

	start := time.Now()
	reply, err := s.sender.Chat(ctx, text)
	if err != nil {
		s.mu.Lock()
		s.log = append(s.log, core.AssistantMessage(FallbackMessage))
		s.mu.Unlock()
		s.logger.Warn("Chat send failed",
			applog.FieldOperation, applog.OpSend,
			applog.FieldDuration, time.Since(start).Milliseconds(),
			applog.FieldError, err)
		return err
	}

	s.mu.Lock()
	s.log = append(s.log, core.AssistantMessage(reply))
	s.mu.Unlock()
	s.logger.Debug("Chat reply received",
		applog.FieldOperation, applog.OpSend,
		applog.FieldDuration, time.Since(start).Milliseconds())

	if s.signal != nil {
		s.signal.Bump()
	}
	return nil
}
