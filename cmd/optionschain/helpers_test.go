package main

import (
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/dgnsrekt/optionschain/internal/chain"
	"github.com/dgnsrekt/optionschain/internal/config"
	"github.com/dgnsrekt/optionschain/internal/notify"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("ALPHAVANTAGE_API_KEY", "test-key")
	c, err := config.Load("")
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	return c
}

func TestNewProvidersOrder(t *testing.T) {
	c := testConfig(t)

	providers, err := newProviders(c, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(providers) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(providers))
	}
	if providers[0].Source() != chain.SourceYahoo || providers[1].Source() != chain.SourceAlphaVantage {
		t.Errorf("unexpected provider order: %s, %s", providers[0].Source(), providers[1].Source())
	}
}

func TestNewProvidersRequiresKey(t *testing.T) {
	c := testConfig(t)
	c.AlphaVantage.APIKey = " "

	_, err := newProviders(c, zap.NewNop())
	if !errors.Is(err, chain.ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestNewNotifier(t *testing.T) {
	c := testConfig(t)

	n, err := newNotifier(c, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := n.(*notify.NoopNotifier); !ok {
		t.Errorf("expected NoopNotifier when disabled, got %T", n)
	}

	c.Notify.Enabled = true
	c.Notify.Topic = "chains"
	c.Notify.Priority = "shouting"
	if _, err := newNotifier(c, zap.NewNop()); err == nil {
		t.Error("expected error for invalid priority")
	}
}

func TestEarliestPath(t *testing.T) {
	c := testConfig(t)
	c.Output.EarliestDirectory = "out"
	if got, want := earliestPath(c), filepath.Join("out", "earliest_expiring_contracts.csv"); got != want {
		t.Errorf("earliestPath = %s, want %s", got, want)
	}
}
