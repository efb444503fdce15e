// Package expiry selects the soonest-expiring contracts of a chain.
package expiry

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/optionschain/internal/chain"
	"github.com/dgnsrekt/optionschain/internal/staging"
)

const DefaultFileName = "earliest_expiring_contracts.csv"

// Earliest returns every contract whose expiration is the earliest one on or
// after today, in input order. Dates compare as ISO strings. An empty input
// yields an empty result; an input with only past expirations fails with
// chain.ErrNoFutureContracts.
func Earliest(contracts []chain.Contract, today string) (string, []chain.Contract, error) {
	if len(contracts) == 0 {
		return "", []chain.Contract{}, nil
	}

	earliest := ""
	for _, c := range contracts {
		if c.Expiration >= today && (earliest == "" || c.Expiration < earliest) {
			earliest = c.Expiration
		}
	}
	if earliest == "" {
		return "", nil, fmt.Errorf("%w (today is %s, %d contracts)", chain.ErrNoFutureContracts, today, len(contracts))
	}

	out := make([]chain.Contract, 0)
	for _, c := range contracts {
		if c.Expiration == earliest {
			out = append(out, c)
		}
	}
	return earliest, out, nil
}

type Options struct {
	FileName string
	// WriteEmpty writes a header-only file for an empty input instead of
	// leaving the previous file alone.
	WriteEmpty bool
	// Now supplies "today", time.Now when nil.
	Now func() time.Time
}

type Result struct {
	Expiration string
	Contracts  []chain.Contract
	Path       string // empty when nothing was written
}

// Filter runs Earliest and persists the subset under a fixed file name,
// overwriting the previous run.
type Filter struct {
	staging *staging.Manager
	opts    Options
	logger  *zap.Logger
}

func NewFilter(stg *staging.Manager, opts Options, logger *zap.Logger) *Filter {
	if opts.FileName == "" {
		opts.FileName = DefaultFileName
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Filter{staging: stg, opts: opts, logger: logger}
}

func (f *Filter) Run(contracts []chain.Contract) (*Result, error) {
	today := f.opts.Now().Format(chain.DateLayout)

	expiration, subset, err := Earliest(contracts, today)
	if err != nil {
		return nil, err
	}
	res := &Result{Expiration: expiration, Contracts: subset}

	if len(subset) == 0 && !f.opts.WriteEmpty {
		f.logger.Info("empty chain, earliest file not written")
		return res, nil
	}

	path, err := f.staging.Write(f.opts.FileName, func(w io.Writer) error {
		return chain.WriteCSV(w, subset)
	})
	if err != nil {
		return nil, fmt.Errorf("persisting earliest contracts: %w", err)
	}
	res.Path = path

	f.logger.Info("earliest expiring contracts written",
		zap.String("expiration", expiration),
		zap.Int("contracts", len(subset)),
		zap.String("path", path),
	)
	return res, nil
}
