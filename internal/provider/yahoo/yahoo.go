// Package yahoo adapts the Yahoo Finance options endpoint, the same source
// the yfinance library reads. It fetches every listed expiration in turn.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/optionschain/internal/api"
	"github.com/dgnsrekt/optionschain/internal/chain"
	"github.com/dgnsrekt/optionschain/internal/provider"
)

const DefaultBaseURL = "https://query2.finance.yahoo.com"

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type optionsResponse struct {
	OptionChain struct {
		Result []chainResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"optionChain"`
	Finance *struct {
		Error *apiError `json:"error"`
	} `json:"finance"`
}

type chainResult struct {
	UnderlyingSymbol string          `json:"underlyingSymbol"`
	ExpirationDates  []int64         `json:"expirationDates"`
	Options          []expirationSet `json:"options"`
}

type expirationSet struct {
	ExpirationDate int64             `json:"expirationDate"`
	Calls          []json.RawMessage `json:"calls"`
	Puts           []json.RawMessage `json:"puts"`
}

// providerError returns the error payload Yahoo embedded in the body.
func (r *optionsResponse) providerError() error {
	e := r.OptionChain.Error
	if e == nil && r.Finance != nil {
		e = r.Finance.Error
	}
	if e == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %s", chain.ErrProvider, e.Code, e.Description)
}

type Adapter struct {
	client  api.Client
	baseURL string
	logger  *zap.Logger
}

func New(client api.Client, baseURL string, logger *zap.Logger) *Adapter {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Adapter{
		client:  client,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger.With(zap.String("source", string(chain.SourceYahoo))),
	}
}

func (a *Adapter) Source() chain.Source {
	return chain.SourceYahoo
}

// Fetch lists the ticker's expirations and fetches each one. A failed
// expiration is recorded in the result's ExpirationReport and its contracts
// are omitted; the fetch only fails when no expiration succeeds.
func (a *Adapter) Fetch(ctx context.Context, exchange, ticker string) (*provider.Result, error) {
	res, err := a.fetch(ctx, ticker)
	return res, chain.WrapSource(chain.SourceYahoo, ticker, err)
}

func (a *Adapter) fetch(ctx context.Context, ticker string) (*provider.Result, error) {
	if ticker == "" {
		return nil, errors.New("ticker is required")
	}

	first, err := a.get(ctx, ticker, 0)
	if err != nil {
		return nil, err
	}
	if len(first.ExpirationDates) == 0 {
		return nil, chain.ErrNoDataAvailable
	}

	report := &provider.ExpirationReport{Failed: make(map[string]error)}
	var (
		batch   chain.Batch
		lastErr error
	)
	for _, unix := range first.ExpirationDates {
		date := expirationDate(unix)

		set, err := a.expiration(ctx, ticker, unix)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", chain.ErrTransport, ctx.Err())
			}
			a.logger.Warn("expiration fetch failed",
				zap.String("ticker", ticker),
				zap.String("expiration", date),
				zap.Error(err),
			)
			report.Failed[date] = err
			lastErr = err
			continue
		}

		batch.Append(chain.Collect(set.Calls, normalizer(chain.Call, date)))
		batch.Append(chain.Collect(set.Puts, normalizer(chain.Put, date)))
		report.Succeeded = append(report.Succeeded, date)
	}

	if len(report.Succeeded) == 0 {
		return nil, fmt.Errorf("%w: all %d expirations failed: %w", chain.ErrNoDataAvailable, len(report.Failed), lastErr)
	}

	for _, s := range batch.Skipped {
		a.logger.Debug("skipped record",
			zap.Int("index", s.Index),
			zap.String("contract_id", s.ContractID),
			zap.String("reason", s.Reason),
		)
	}
	a.logger.Info("normalized chain",
		zap.String("ticker", ticker),
		zap.Int("expirations", len(report.Succeeded)),
		zap.Int("failed_expirations", len(report.Failed)),
		zap.Int("kept", len(batch.Contracts)),
		zap.Int("skipped", len(batch.Skipped)),
	)

	return provider.Finish(chain.SourceYahoo, batch, report)
}

// expiration fetches the calls and puts listed for one expiration. A set
// for any other expiration is rejected so its contracts are never tagged
// with the wrong date.
func (a *Adapter) expiration(ctx context.Context, ticker string, unix int64) (*expirationSet, error) {
	result, err := a.get(ctx, ticker, unix)
	if err != nil {
		return nil, err
	}
	if len(result.Options) == 0 {
		return nil, fmt.Errorf("no option set returned for %d", unix)
	}
	set := &result.Options[0]
	if set.ExpirationDate != unix {
		return nil, fmt.Errorf("%w: requested expiration %s, got %s",
			chain.ErrProvider, expirationDate(unix), expirationDate(set.ExpirationDate))
	}
	return set, nil
}

func (a *Adapter) get(ctx context.Context, ticker string, unix int64) (*chainResult, error) {
	endpoint := fmt.Sprintf("%s/v7/finance/options/%s", a.baseURL, url.PathEscape(strings.ToUpper(ticker)))
	var query url.Values
	if unix > 0 {
		query = url.Values{"date": {strconv.FormatInt(unix, 10)}}
	}

	var resp optionsResponse
	if err := a.client.GetJSON(ctx, endpoint, query, &resp); err != nil {
		return nil, err
	}
	if err := resp.providerError(); err != nil {
		return nil, err
	}
	if len(resp.OptionChain.Result) == 0 {
		return nil, chain.ErrNoDataAvailable
	}
	return &resp.OptionChain.Result[0], nil
}

// expirationDate renders a Yahoo expiration timestamp as its UTC date.
func expirationDate(unix int64) string {
	return time.Unix(unix, 0).UTC().Format(chain.DateLayout)
}
