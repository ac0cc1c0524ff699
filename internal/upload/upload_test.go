package upload

import (
	"context"
	"errors"
	"log/slog"
	"testing"
)

// fakeProvider is a scripted Provider for chain tests.
type fakeProvider struct {
	name    string
	enabled bool
	url     string
	err     error
	calls   int
}

func (f *fakeProvider) Name() string  { return f.name }
func (f *fakeProvider) Enabled() bool { return f.enabled }

func (f *fakeProvider) Upload(_ context.Context, _ []byte, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

func TestChain_PrimarySucceeds(t *testing.T) {
	primary := &fakeProvider{name: "primary", enabled: true, url: "https://img/p.png"}
	fallback := &fakeProvider{name: "fallback", enabled: true, url: "https://img/f.png"}
	chain := NewChain(slog.Default(), primary, fallback)

	asset, err := chain.Upload(context.Background(), []byte("img"), "a.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if asset.URL != "https://img/p.png" {
		t.Errorf("unexpected URL: %s", asset.URL)
	}
	if asset.Provider != "primary" {
		t.Errorf("unexpected provider: %s", asset.Provider)
	}
	if fallback.calls != 0 {
		t.Error("fallback should not be tried when primary succeeds")
	}
}

func TestChain_FallsBackOnPrimaryError(t *testing.T) {
	primary := &fakeProvider{name: "primary", enabled: true, err: errors.New("boom")}
	fallback := &fakeProvider{name: "fallback", enabled: true, url: "https://img/f.png"}
	chain := NewChain(slog.Default(), primary, fallback)

	asset, err := chain.Upload(context.Background(), []byte("img"), "a.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if asset.Provider != "fallback" {
		t.Errorf("expected fallback provider, got %s", asset.Provider)
	}
	if primary.calls != 1 {
		t.Errorf("primary should be tried exactly once, got %d", primary.calls)
	}
}

func TestChain_SkipsUnconfiguredPrimary(t *testing.T) {
	primary := &fakeProvider{name: "primary", enabled: false}
	fallback := &fakeProvider{name: "fallback", enabled: true, url: "https://img/f.png"}
	chain := NewChain(slog.Default(), primary, fallback)

	asset, err := chain.Upload(context.Background(), []byte("img"), "a.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if asset.Provider != "fallback" {
		t.Errorf("expected fallback provider, got %s", asset.Provider)
	}
	if primary.calls != 0 {
		t.Error("disabled primary must be skipped without an attempt")
	}
}

func TestChain_AllProvidersFail(t *testing.T) {
	primary := &fakeProvider{name: "primary", enabled: true, err: errors.New("p down")}
	fallback := &fakeProvider{name: "fallback", enabled: true, err: errors.New("f down")}
	chain := NewChain(slog.Default(), primary, fallback)

	_, err := chain.Upload(context.Background(), []byte("img"), "a.png")
	if !errors.Is(err, ErrAllProvidersFailed) {
		t.Errorf("expected ErrAllProvidersFailed, got %v", err)
	}
	if primary.calls != 1 || fallback.calls != 1 {
		t.Errorf("each provider gets exactly one attempt, got %d/%d", primary.calls, fallback.calls)
	}
}

func TestChain_NoEnabledProviders(t *testing.T) {
	chain := NewChain(slog.Default(), &fakeProvider{name: "primary", enabled: false})

	_, err := chain.Upload(context.Background(), []byte("img"), "a.png")
	if !errors.Is(err, ErrAllProvidersFailed) {
		t.Errorf("expected ErrAllProvidersFailed, got %v", err)
	}
}

func TestChain_EmptyPayload(t *testing.T) {
	chain := NewChain(slog.Default(), &fakeProvider{name: "primary", enabled: true, url: "u"})

	_, err := chain.Upload(context.Background(), nil, "a.png")
	if !errors.Is(err, ErrEmptyPayload) {
		t.Errorf("expected ErrEmptyPayload, got %v", err)
	}
}

func TestChain_NoProviders(t *testing.T) {
	chain := NewChain(slog.Default())

	_, err := chain.Upload(context.Background(), []byte("img"), "a.png")
	if !errors.Is(err, ErrNoProviders) {
		t.Errorf("expected ErrNoProviders, got %v", err)
	}
}
