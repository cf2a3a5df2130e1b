package chat

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"frugal/internal/core"
	"frugal/internal/fetcher"
	"frugal/internal/refresh"
)

type fakeSender struct {
	reply   string
	err     error
	calls   []string
	gate    chan struct{}
	started chan struct{}
}

func (f *fakeSender) Chat(ctx context.Context, message string) (string, error) {
	f.calls = append(f.calls, message)
	if f.started != nil {
		close(f.started)
	}
	if f.gate != nil {
		<-f.gate
	}
	return f.reply, f.err
}

func TestNewSessionGreets(t *testing.T) {
	s := NewSession(&fakeSender{}, nil, nil)
	msgs := s.Messages()
	if len(msgs) != 1 || msgs[0].Role != core.RoleAssistant || msgs[0].Content != Greeting {
		t.Fatalf("unexpected initial transcript: %+v", msgs)
	}
	if s.ID() == "" || s.ID() == NewSession(&fakeSender{}, nil, nil).ID() {
		t.Fatalf("sessions need distinct ids")
	}
}

func TestSendRejectsBlankText(t *testing.T) {
	for _, text := range []string{"", "   ", "\t\n"} {
		sender := &fakeSender{reply: "x"}
		sig := refresh.NewSignal(nil)
		s := NewSession(sender, sig, nil)

		if err := s.Send(context.Background(), text); !errors.Is(err, ErrEmptyMessage) {
			t.Fatalf("Send(%q) error = %v, want ErrEmptyMessage", text, err)
		}
		if len(s.Messages()) != 1 || len(sender.calls) != 0 || sig.Version() != 0 {
			t.Fatalf("blank send must not change anything (%q)", text)
		}
	}
}

func TestSendSuccess(t *testing.T) {
	sender := &fakeSender{reply: "Recorded $20.00 for Dining."}
	sig := refresh.NewSignal(nil)
	s := NewSession(sender, sig, nil)
	s.SetDraft("  spent 20 on lunch  ")

	if err := s.SendDraft(context.Background()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	msgs := s.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected greeting + 2 entries, got %d", len(msgs))
	}
	if msgs[1] != core.UserMessage("spent 20 on lunch") {
		t.Errorf("user entry = %+v", msgs[1])
	}
	if msgs[2] != core.AssistantMessage("Recorded $20.00 for Dining.") {
		t.Errorf("assistant entry = %+v", msgs[2])
	}
	if sig.Version() != 1 {
		t.Errorf("signal version = %d, want 1", sig.Version())
	}
	if s.Draft() != "" || s.IsSending() {
		t.Errorf("draft should be cleared and sending released")
	}
	if len(sender.calls) != 1 || sender.calls[0] != "spent 20 on lunch" {
		t.Errorf("sender calls = %v", sender.calls)
	}
}

func TestSendFailureAppendsFallback(t *testing.T) {
	boom := errors.New("backend down")
	sig := refresh.NewSignal(nil)
	s := NewSession(&fakeSender{err: boom}, sig, nil)

	err := s.Send(context.Background(), "hello")
	if !errors.Is(err, boom) {
		t.Fatalf("Send() error = %v, want %v", err, boom)
	}

	msgs := s.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected greeting + 2 entries, got %d", len(msgs))
	}
	if msgs[2] != core.AssistantMessage(FallbackMessage) {
		t.Errorf("fallback entry = %+v", msgs[2])
	}
	if sig.Version() != 0 {
		t.Errorf("failed send must not bump the signal")
	}
	if s.IsSending() {
		t.Errorf("sending must be released after failure")
	}
}

func TestSendIsSingleFlight(t *testing.T) {
	sender := &fakeSender{reply: "ok", gate: make(chan struct{}), started: make(chan struct{})}
	s := NewSession(sender, nil, nil)

	done := make(chan error, 1)
	go func() { done <- s.Send(context.Background(), "first") }()
	<-sender.started

	if !s.IsSending() {
		t.Fatal("expected IsSending while first send is outstanding")
	}
	if got := s.Messages(); len(got) != 2 || got[1].Content != "first" {
		t.Fatalf("user message should be appended before the network call: %+v", got)
	}
	if err := s.Send(context.Background(), "second"); !errors.Is(err, ErrSendInFlight) {
		t.Fatalf("second Send() error = %v, want ErrSendInFlight", err)
	}

	close(sender.gate)
	if err := <-done; err != nil {
		t.Fatalf("first Send() error = %v", err)
	}
	if got := s.Messages(); len(got) != 3 {
		t.Fatalf("rejected send must not append: %+v", got)
	}
	if s.IsSending() {
		t.Fatal("sending must be released")
	}
}

func TestQuickActions(t *testing.T) {
	sender := &fakeSender{}
	s := NewSession(sender, nil, nil)

	tests := map[string]string{
		"add":      "I want to add an expense.",
		"split":    "I want to split an expense.",
		"insights": "Show me my spending insights.",
	}
	for name, want := range tests {
		if err := s.QuickAction(name); err != nil {
			t.Fatalf("QuickAction(%q) error = %v", name, err)
		}
		if s.Draft() != want {
			t.Errorf("QuickAction(%q) draft = %q, want %q", name, s.Draft(), want)
		}
	}
	if err := s.QuickAction("delete"); !errors.Is(err, ErrUnknownQuickAct) {
		t.Fatalf("expected ErrUnknownQuickAct, got %v", err)
	}
	if len(sender.calls) != 0 || len(s.Messages()) != 1 {
		t.Fatal("quick actions must not send")
	}
}

func TestSendTimeoutReleasesSending(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	sig := refresh.NewSignal(nil)
	s := NewSession(fetcher.New(srv.URL, fetcher.WithTimeout(50*time.Millisecond)), sig, nil)

	err := s.Send(context.Background(), "hello?")
	var timeoutErr *fetcher.TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected TimeoutError, got %T %v", err, err)
	}
	if s.IsSending() {
		t.Fatal("sending must be released after a timeout")
	}
	if msgs := s.Messages(); msgs[len(msgs)-1].Content != FallbackMessage {
		t.Fatalf("expected fallback message, got %+v", msgs[len(msgs)-1])
	}
	if sig.Version() != 0 {
		t.Fatal("timed out send must not bump")
	}
}
