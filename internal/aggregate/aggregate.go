package aggregate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dgnsrekt/optionschain/internal/chain"
	"github.com/dgnsrekt/optionschain/internal/provider"
	"github.com/dgnsrekt/optionschain/internal/staging"
)

type Options struct {
	// RequireAllSources fails the aggregate when any provider fails.
	// When false the providers that succeeded are used.
	RequireAllSources bool
	// Concurrent fetches every provider at once. The merge order still
	// follows the provider order.
	Concurrent bool
	// Timeout bounds each provider fetch as a whole. Zero means no bound
	// beyond the HTTP client's per-request timeout.
	Timeout time.Duration
	// Now is the capture clock, time.Now when nil.
	Now func() time.Time
}

// SourceReport summarizes one provider's part in an aggregate.
type SourceReport struct {
	Source            chain.Source
	Contracts         int
	Skipped           int
	FailedExpirations []string
	Err               error
}

type Report struct {
	Sources []SourceReport
	Path    string
}

type Aggregator struct {
	providers []provider.Provider
	staging   *staging.Manager
	opts      Options
	logger    *zap.Logger
}

func New(providers []provider.Provider, stg *staging.Manager, opts Options, logger *zap.Logger) *Aggregator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Aggregator{
		providers: providers,
		staging:   stg,
		opts:      opts,
		logger:    logger,
	}
}

// Aggregate fetches the ticker from every provider, tags and rounds the
// contracts, sorts them by contract id and persists the snapshot. Nothing is
// written when the aggregate fails, and an existing snapshot of the same
// name is never replaced.
func (a *Aggregator) Aggregate(ctx context.Context, exchange, ticker string) (*chain.Snapshot, *Report, error) {
	if exchange == "" || ticker == "" {
		return nil, nil, errors.New("exchange and ticker are required")
	}
	if len(a.providers) == 0 {
		return nil, nil, errors.New("no providers configured")
	}

	capturedAt := a.opts.Now()
	results, errs, cause := a.fetchAll(ctx, exchange, ticker)
	a.dropFailed(results, errs)

	report := &Report{Sources: make([]SourceReport, len(a.providers))}
	var failed []error
	for i, p := range a.providers {
		sr := SourceReport{Source: p.Source(), Err: errs[i]}
		if r := results[i]; r != nil {
			sr.Contracts = len(r.Contracts)
			sr.Skipped = len(r.Skipped)
			sr.FailedExpirations = r.Expirations.FailedDates()
		}
		if errs[i] != nil {
			failed = append(failed, errs[i])
			a.logger.Warn("source failed",
				zap.String("source", string(sr.Source)),
				zap.String("ticker", ticker),
				zap.Error(errs[i]),
			)
		}
		report.Sources[i] = sr
	}

	switch {
	case cause != nil:
		return nil, report, fmt.Errorf("aggregating %s: %w", ticker, cause)
	case len(failed) == len(a.providers):
		return nil, report, fmt.Errorf("%w: every source failed for %s: %w", chain.ErrNoDataAvailable, ticker, errors.Join(failed...))
	case len(failed) > 0 && a.opts.RequireAllSources:
		return nil, report, fmt.Errorf("aggregating %s: %w", ticker, failed[0])
	}

	snapshot := &chain.Snapshot{
		Exchange:   exchange,
		Ticker:     ticker,
		CapturedAt: capturedAt,
		Contracts:  merge(a.providers, results),
	}

	path, err := a.staging.Create(snapshot.FileName(), func(w io.Writer) error {
		return chain.WriteCSV(w, snapshot.Contracts)
	})
	if err != nil {
		return nil, report, fmt.Errorf("persisting snapshot: %w", err)
	}
	report.Path = path

	a.logger.Info("snapshot written",
		zap.String("exchange", exchange),
		zap.String("ticker", ticker),
		zap.Int("contracts", len(snapshot.Contracts)),
		zap.String("path", path),
	)

	return snapshot, report, nil
}

// fetchAll returns one result or error per provider, index aligned. When
// every source is required and fetched concurrently, the first failure
// cancels the other fetches and is returned as cause.
func (a *Aggregator) fetchAll(ctx context.Context, exchange, ticker string) ([]*provider.Result, []error, error) {
	results := make([]*provider.Result, len(a.providers))
	errs := make([]error, len(a.providers))

	if !a.opts.Concurrent {
		for i, p := range a.providers {
			results[i], errs[i] = a.fetch(ctx, p, exchange, ticker)
		}
		return results, errs, nil
	}

	if !a.opts.RequireAllSources {
		var g errgroup.Group
		for i, p := range a.providers {
			g.Go(func() error {
				results[i], errs[i] = a.fetch(ctx, p, exchange, ticker)
				return nil
			})
		}
		_ = g.Wait()
		return results, errs, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range a.providers {
		g.Go(func() error {
			results[i], errs[i] = a.fetch(gctx, p, exchange, ticker)
			return errs[i]
		})
	}
	return results, errs, g.Wait()
}

// fetch runs one provider under the per-adapter timeout.
func (a *Aggregator) fetch(ctx context.Context, p provider.Provider, exchange, ticker string) (*provider.Result, error) {
	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}
	return p.Fetch(ctx, exchange, ticker)
}

func (a *Aggregator) dropFailed(results []*provider.Result, errs []error) {
	for i := range results {
		if errs[i] != nil {
			results[i] = nil
		}
	}
}

// merge concatenates results in provider order, tagging provenance and
// rounding, then stable-sorts by contract id.
func merge(providers []provider.Provider, results []*provider.Result) []chain.Contract {
	total := 0
	for _, r := range results {
		if r != nil {
			total += len(r.Contracts)
		}
	}

	merged := make([]chain.Contract, 0, total)
	for i, r := range results {
		if r == nil {
			continue
		}
		src := providers[i].Source()
		for _, c := range r.Contracts {
			c.Source = src
			merged = append(merged, c.Rounded())
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].ContractID < merged[j].ContractID
	})
	return merged
}
