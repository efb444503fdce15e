// Package alphavantage adapts the Alpha Vantage HISTORICAL_OPTIONS endpoint.
package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/dgnsrekt/optionschain/internal/api"
	"github.com/dgnsrekt/optionschain/internal/chain"
	"github.com/dgnsrekt/optionschain/internal/provider"
)

const DefaultBaseURL = "https://www.alphavantage.co/query"

type response struct {
	ErrorMessage string            `json:"Error Message"`
	Information  string            `json:"Information"`
	Note         string            `json:"Note"`
	Data         []json.RawMessage `json:"data"`
}

// providerMessage returns the explicit error text carried in the body, if any.
func (r *response) providerMessage() string {
	for _, msg := range []string{r.ErrorMessage, r.Information, r.Note} {
		if msg != "" {
			return msg
		}
	}
	return ""
}

type Adapter struct {
	client  api.Client
	baseURL string
	apiKey  string
	logger  *zap.Logger
}

// New fails with chain.ErrMissingAPIKey rather than sending keyless requests.
func New(client api.Client, baseURL, apiKey string, logger *zap.Logger) (*Adapter, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("alphavantage: %w (set ALPHAVANTAGE_API_KEY)", chain.ErrMissingAPIKey)
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Adapter{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
		logger:  logger.With(zap.String("source", string(chain.SourceAlphaVantage))),
	}, nil
}

func (a *Adapter) Source() chain.Source {
	return chain.SourceAlphaVantage
}

// Fetch ignores exchange; Alpha Vantage resolves the symbol on its own.
func (a *Adapter) Fetch(ctx context.Context, exchange, ticker string) (*provider.Result, error) {
	res, err := a.fetch(ctx, ticker)
	return res, chain.WrapSource(chain.SourceAlphaVantage, ticker, err)
}

func (a *Adapter) fetch(ctx context.Context, ticker string) (*provider.Result, error) {
	if ticker == "" {
		return nil, errors.New("ticker is required")
	}

	query := url.Values{
		"function": {"HISTORICAL_OPTIONS"},
		"symbol":   {ticker},
		"apikey":   {a.apiKey},
	}

	var resp response
	if err := a.client.GetJSON(ctx, a.baseURL, query, &resp); err != nil {
		return nil, err
	}

	if msg := resp.providerMessage(); msg != "" {
		return nil, fmt.Errorf("%w: %s", chain.ErrProvider, msg)
	}
	if len(resp.Data) == 0 {
		return nil, chain.ErrNoDataAvailable
	}

	batch := chain.Collect(resp.Data, normalize)
	for _, s := range batch.Skipped {
		a.logger.Debug("skipped record",
			zap.Int("index", s.Index),
			zap.String("contract_id", s.ContractID),
			zap.String("reason", s.Reason),
		)
	}
	a.logger.Info("normalized chain",
		zap.String("ticker", ticker),
		zap.Int("records", len(resp.Data)),
		zap.Int("kept", len(batch.Contracts)),
		zap.Int("skipped", len(batch.Skipped)),
	)

	return provider.Finish(chain.SourceAlphaVantage, batch, nil)
}
