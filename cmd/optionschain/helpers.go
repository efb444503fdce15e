package main

import (
	"path/filepath"

	"go.uber.org/zap"

	"github.com/dgnsrekt/optionschain/internal/aggregate"
	"github.com/dgnsrekt/optionschain/internal/api"
	"github.com/dgnsrekt/optionschain/internal/config"
	"github.com/dgnsrekt/optionschain/internal/expiry"
	"github.com/dgnsrekt/optionschain/internal/notify"
	"github.com/dgnsrekt/optionschain/internal/provider"
	"github.com/dgnsrekt/optionschain/internal/provider/alphavantage"
	"github.com/dgnsrekt/optionschain/internal/provider/yahoo"
	"github.com/dgnsrekt/optionschain/internal/staging"
)

// newProviders builds the adapters in merge order: Yahoo, then Alpha Vantage.
// Each gets its own client so their rate limits are independent.
func newProviders(cfg *config.Config, logger *zap.Logger) ([]provider.Provider, error) {
	yahooClient := api.NewClient(api.Options{
		Timeout:       cfg.HTTP.Timeout(),
		RatePerSecond: cfg.Yahoo.RatePerSecond,
		RetryCount:    cfg.HTTP.RetryCount,
		RetryDelay:    cfg.HTTP.RetryDelay(),
		UserAgent:     cfg.Yahoo.UserAgent,
	}, logger.With(zap.String("client", "yahoo")))

	avClient := api.NewClient(api.Options{
		Timeout:       cfg.HTTP.Timeout(),
		RatePerSecond: cfg.AlphaVantage.RatePerSecond,
		RetryCount:    cfg.HTTP.RetryCount,
		RetryDelay:    cfg.HTTP.RetryDelay(),
	}, logger.With(zap.String("client", "alphavantage")))

	av, err := alphavantage.New(avClient, cfg.AlphaVantage.BaseURL, cfg.AlphaVantage.APIKey, logger)
	if err != nil {
		return nil, err
	}

	return []provider.Provider{
		yahoo.New(yahooClient, cfg.Yahoo.BaseURL, logger),
		av,
	}, nil
}

func newAggregator(cfg *config.Config, providers []provider.Provider, stg *staging.Manager, logger *zap.Logger) *aggregate.Aggregator {
	return aggregate.New(providers, stg, aggregate.Options{
		RequireAllSources: cfg.Aggregate.RequireAllSources,
		Concurrent:        cfg.Aggregate.Concurrent,
		Timeout:           cfg.Aggregate.Timeout(),
	}, logger)
}

func newEarliestFilter(cfg *config.Config, logger *zap.Logger) (*expiry.Filter, *staging.Manager) {
	stg := staging.NewManager(cfg.Output.EarliestDirectory)
	return expiry.NewFilter(stg, expiry.Options{
		FileName:   cfg.Output.EarliestFile,
		WriteEmpty: cfg.Output.WriteEmptyEarliest,
	}, logger), stg
}

func earliestPath(cfg *config.Config) string {
	return filepath.Join(cfg.Output.EarliestDirectory, cfg.Output.EarliestFile)
}

func newNotifier(cfg *config.Config, logger *zap.Logger) (notify.Notifier, error) {
	nc := &notify.Config{
		Enabled:  cfg.Notify.Enabled,
		Server:   cfg.Notify.Server,
		Topic:    cfg.Notify.Topic,
		Priority: cfg.Notify.Priority,
		Tags:     cfg.Notify.Tags,
		Token:    cfg.Notify.Token,
	}
	if err := nc.Validate(); err != nil {
		return nil, err
	}
	return notify.New(nc, logger), nil
}

func logReport(logger *zap.Logger, report *aggregate.Report) {
	if report == nil {
		return
	}
	for _, s := range report.Sources {
		fields := []zap.Field{
			zap.String("source", string(s.Source)),
			zap.Int("contracts", s.Contracts),
			zap.Int("skipped", s.Skipped),
		}
		if len(s.FailedExpirations) > 0 {
			fields = append(fields, zap.Strings("failed_expirations", s.FailedExpirations))
		}
		if s.Err != nil {
			fields = append(fields, zap.Error(s.Err))
			logger.Warn("source summary", fields...)
			continue
		}
		logger.Info("source summary", fields...)
	}
}
