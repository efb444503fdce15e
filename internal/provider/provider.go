package provider

import (
	"context"
	"fmt"
	"sort"

	"github.com/dgnsrekt/optionschain/internal/chain"
)

// Provider is a source adapter: it fetches one ticker's raw options chain
// and normalizes it into canonical contracts at full precision.
type Provider interface {
	Source() chain.Source
	Fetch(ctx context.Context, exchange, ticker string) (*Result, error)
}

// Result is a successful fetch. Contracts is never empty.
type Result struct {
	Source      chain.Source
	Contracts   []chain.Contract
	Skipped     []chain.Skip
	Expirations *ExpirationReport // nil for single-request providers
}

// ExpirationReport lists which expirations a multi-request provider could
// fetch. Failed expirations are omitted from Contracts.
type ExpirationReport struct {
	Succeeded []string
	Failed    map[string]error
}

func (r *ExpirationReport) FailedDates() []string {
	if r == nil {
		return nil
	}
	dates := make([]string, 0, len(r.Failed))
	for d := range r.Failed {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// Finish turns a normalized batch into a Result, failing with
// chain.ErrNoValidRecords when every record was dropped.
func Finish(src chain.Source, batch chain.Batch, report *ExpirationReport) (*Result, error) {
	if len(batch.Contracts) == 0 {
		return nil, fmt.Errorf("%w: %d records dropped", chain.ErrNoValidRecords, len(batch.Skipped))
	}
	return &Result{
		Source:      src,
		Contracts:   batch.Contracts,
		Skipped:     batch.Skipped,
		Expirations: report,
	}, nil
}
