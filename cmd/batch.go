package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urbanstay/minbak-cli/internal/batch"
	"github.com/urbanstay/minbak-cli/internal/store"
)

var (
	batchInput       string
	batchOutPrefix   string
	batchConcurrency int
	batchLimit       int
	batchUseStore    bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Screen an address list and partition results by outcome code",
	Long: `Reads a CSV or XLSX address-code list, deduplicates the keys, evaluates each
unique address, and writes one CSV per outcome code (0-4). Per-key gateway
failures are recorded in the pending bucket without aborting the batch.

Examples:
  minbak-cli batch --input bondong.csv
  minbak-cli batch --input addresses.xlsx --out-prefix seoul --concurrency 8
  minbak-cli batch --input bondong.csv --store`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("batch"); err != nil {
			return err
		}

		keys, readStats, err := batch.ReadKeys(batchInput)
		if err != nil {
			return eris.Wrap(err, "batch: read input")
		}
		if batchLimit > 0 && batchLimit < len(keys) {
			keys = keys[:batchLimit]
		}

		eng, err := newEngine()
		if err != nil {
			return eris.Wrap(err, "batch: init engine")
		}

		proc := &batch.Processor{
			Engine:      eng,
			Concurrency: concurrencyOrDefault(),
		}

		if batchUseStore {
			st, storeErr := store.NewSQLite(cfg.Store.Path)
			if storeErr != nil {
				return eris.Wrap(storeErr, "batch: open store")
			}
			defer st.Close() //nolint:errcheck
			if migrateErr := st.Migrate(ctx); migrateErr != nil {
				return eris.Wrap(migrateErr, "batch: migrate store")
			}
			proc.Saver = st
		}

		rows, runStats, err := proc.Run(ctx, keys)
		if err != nil {
			return eris.Wrap(err, "batch: run")
		}

		prefix := batchOutPrefix
		if prefix == "" {
			prefix = cfg.Batch.OutPrefix
		}
		written, err := batch.WriteBuckets(rows, prefix)
		if err != nil {
			return eris.Wrap(err, "batch: write buckets")
		}

		zap.L().Info("batch complete",
			zap.Int("evaluated", len(keys)),
			zap.Int("duplicates_removed", readStats.Duplicates),
			zap.Int("rows_skipped", readStats.Skipped),
			zap.Int("unsuitable", runStats.ByCode[0]),
			zap.Int("low_chance", runStats.ByCode[1]),
			zap.Int("possible", runStats.ByCode[2]),
			zap.Int("high_chance", runStats.ByCode[3]),
			zap.Int("pending", runStats.ByCode[4]),
			zap.Int("errors", runStats.Errors),
			zap.Strings("files", written),
		)
		return nil
	},
}

func concurrencyOrDefault() int {
	if batchConcurrency > 0 {
		return batchConcurrency
	}
	return cfg.Batch.Concurrency
}

func init() {
	batchCmd.Flags().StringVar(&batchInput, "input", "", "path to address list (.csv or .xlsx, required)")
	batchCmd.Flags().StringVar(&batchOutPrefix, "out-prefix", "", "output file prefix (default from config)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "max keys evaluated concurrently (default from config)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max unique keys to evaluate (0 = all)")
	batchCmd.Flags().BoolVar(&batchUseStore, "store", false, "record verdicts in the SQLite audit log")
	_ = batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}
