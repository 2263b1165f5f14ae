package ai

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type stubProvider struct {
	name   string
	answer string
	err    error
	called bool
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Complete(_ context.Context, _, _ string) (string, error) {
	s.called = true
	return s.answer, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestChainReturnsFirstSuccess(t *testing.T) {
	first := &stubProvider{name: "first", answer: "spend less"}
	second := &stubProvider{name: "second", answer: "never reached"}
	chain := NewChain(discardLogger(), time.Second, first, second)

	answer, provider, err := chain.Complete(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if answer != "spend less" {
		t.Errorf("Complete() answer = %q, want %q", answer, "spend less")
	}
	if provider != "first" {
		t.Errorf("Complete() provider = %q, want %q", provider, "first")
	}
	if second.called {
		t.Error("second provider was called even though the first succeeded")
	}
}

func TestChainFallsThroughOnError(t *testing.T) {
	first := &stubProvider{name: "first", err: errors.New("rate limited")}
	second := &stubProvider{name: "second", answer: "  budget carefully  "}
	chain := NewChain(discardLogger(), time.Second, first, second)

	answer, provider, err := chain.Complete(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if answer != "budget carefully" {
		t.Errorf("Complete() answer = %q, want trimmed %q", answer, "budget carefully")
	}
	if provider != "second" {
		t.Errorf("Complete() provider = %q, want %q", provider, "second")
	}
}

func TestChainSkipsEmptyAnswers(t *testing.T) {
	first := &stubProvider{name: "first", answer: "   "}
	second := &stubProvider{name: "second", answer: "ok"}
	chain := NewChain(discardLogger(), time.Second, first, second)

	answer, _, err := chain.Complete(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if answer != "ok" {
		t.Errorf("Complete() answer = %q, want %q", answer, "ok")
	}
}

func TestChainErrorsWhenAllFail(t *testing.T) {
	first := &stubProvider{name: "first", err: errors.New("down")}
	chain := NewChain(discardLogger(), time.Second, first)

	if _, _, err := chain.Complete(context.Background(), "sys", "user"); !errors.Is(err, ErrNoProviders) {
		t.Errorf("Complete() error = %v, want ErrNoProviders", err)
	}
}

func TestChainErrorsWithNoProviders(t *testing.T) {
	chain := NewChain(discardLogger(), time.Second)

	if _, _, err := chain.Complete(context.Background(), "sys", "user"); !errors.Is(err, ErrNoProviders) {
		t.Errorf("Complete() error = %v, want ErrNoProviders", err)
	}
}

func TestFallbackMentionsAssistantAndSummary(t *testing.T) {
	summary := "For 2026-01 you have a total income of 1000 and expenses of 400."

	tests := []struct {
		name     string
		question string
		want     string
	}{
		{"name question", "what is my name?", "Mila"},
		{"add transaction question", "how do I add a transaction?", "record a transaction"},
		{"saving question", "how can I save more?", "set aside"},
		{"generic question", "how am I doing?", "here is where you stand"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fallback("FinMate", "Mila", tt.question, summary)
			if !strings.Contains(got, "FinMate") {
				t.Errorf("Fallback() = %q, missing assistant name", got)
			}
			if !strings.Contains(got, summary) {
				t.Errorf("Fallback() = %q, missing summary text", got)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("Fallback() = %q, missing %q", got, tt.want)
			}
		})
	}
}
