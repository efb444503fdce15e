package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgnsrekt/optionschain/internal/snapshot"
)

func earliestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "earliest FILE",
		Short: "Extract the earliest-expiring contracts from a saved snapshot",
		Long: `Read a snapshot CSV written by fetch and write the contracts whose
expiration is the earliest one on or after today to the configured
earliest file, replacing the previous one.

Example:
  optionschain earliest nasdaq_META_options_chain_2025-01-10_as_of_14-30-05.csv`,
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{offlineAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			contracts, err := snapshot.Load(args[0])
			if err != nil {
				return err
			}

			filter, stg := newEarliestFilter(cfg, logger)
			defer func() { _ = stg.Cleanup() }()

			res, err := filter.Run(contracts)
			if err != nil {
				return err
			}

			logger.Info("earliest expiring contracts",
				zap.String("input", args[0]),
				zap.String("expiration", res.Expiration),
				zap.Int("contracts", len(res.Contracts)),
			)
			if res.Path != "" {
				fmt.Println(res.Path)
			}
			return nil
		},
	}
	return cmd
}
