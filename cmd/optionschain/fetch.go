package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgnsrekt/optionschain/internal/chain"
	"github.com/dgnsrekt/optionschain/internal/market"
	"github.com/dgnsrekt/optionschain/internal/notify"
	"github.com/dgnsrekt/optionschain/internal/staging"
)

func fetchCmd() *cobra.Command {
	var (
		partial    bool
		sequential bool
		outputDir  string
	)

	cmd := &cobra.Command{
		Use:   "fetch EXCHANGE TICKER",
		Short: "Fetch, aggregate and persist the options chain for a ticker",
		Long: `Fetch the options chain for TICKER from Yahoo Finance and Alpha Vantage,
merge both into one snapshot sorted by contract id, and then write the
contracts with the earliest upcoming expiration to a separate file.

Snapshot file: {exchange}_{ticker}_options_chain_{YYYY-MM-DD}_as_of_{HH-MM-SS}.csv

Examples:
  # Fetch META and write the snapshot to the configured directory
  optionschain fetch nasdaq META

  # Keep going when one provider fails
  optionschain fetch --partial nasdaq META

  # Write snapshots somewhere else
  optionschain fetch --output-dir ./data nyse IBM`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			exchange, ticker := args[0], args[1]

			if cmd.Flags().Changed("partial") {
				cfg.Aggregate.RequireAllSources = !partial
			}
			if sequential {
				cfg.Aggregate.Concurrent = false
			}
			if outputDir != "" {
				cfg.Output.Directory = outputDir
			}

			log := logger.With(
				zap.String("run_id", uuid.New().String()),
				zap.String("exchange", exchange),
				zap.String("ticker", ticker),
			)
			start := time.Now()

			if nyse := market.NewNYSE(); !nyse.IsTradingDay(start) {
				log.Warn("capture day is not an NYSE trading session, quotes may be stale",
					zap.String("date", start.In(nyse.Location()).Format(chain.DateLayout)),
				)
			}

			notifier, err := newNotifier(cfg, log)
			if err != nil {
				return err
			}

			providers, err := newProviders(cfg, log)
			if err != nil {
				return err
			}

			stg := staging.NewManager(cfg.Output.Directory)
			defer func() {
				if err := stg.Cleanup(); err != nil {
					log.Warn("failed to cleanup staging", zap.Error(err))
				}
			}()

			outcome := notify.Outcome{Exchange: exchange, Ticker: ticker}
			fail := func(err error) error {
				outcome.Duration = time.Since(start)
				if nerr := notifier.SendFailure(ctx, outcome, err); nerr != nil {
					log.Warn("failure notification not sent", zap.Error(nerr))
				}
				return err
			}

			snap, report, err := newAggregator(cfg, providers, stg, log).Aggregate(ctx, exchange, ticker)
			outcome.Report = report
			logReport(log, report)
			if err != nil {
				return fail(err)
			}

			filter, earliestStg := newEarliestFilter(cfg, log)
			defer func() { _ = earliestStg.Cleanup() }()

			earliest, err := filter.Run(snap.Contracts)
			if err != nil {
				if errors.Is(err, chain.ErrNoFutureContracts) {
					log.Warn("snapshot has no upcoming expirations", zap.Error(err))
				}
				return fail(fmt.Errorf("filtering earliest expiration: %w", err))
			}
			outcome.Earliest = earliest
			outcome.Duration = time.Since(start)

			log.Info("fetch complete",
				zap.Int("contracts", len(snap.Contracts)),
				zap.String("snapshot", report.Path),
				zap.String("earliest_expiration", earliest.Expiration),
				zap.Int("earliest_contracts", len(earliest.Contracts)),
				zap.Duration("duration", outcome.Duration),
			)

			if err := notifier.SendSuccess(ctx, outcome); err != nil {
				log.Warn("success notification not sent", zap.Error(err))
			}

			fmt.Println(report.Path)
			if earliest.Path != "" {
				fmt.Println(earliest.Path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&partial, "partial", false, "write a snapshot from the providers that succeeded when another fails")
	cmd.Flags().BoolVar(&sequential, "sequential", false, "fetch providers one after another")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "override output.directory from config")

	return cmd
}
