package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urbanstay/minbak-cli/internal/config"
	"github.com/urbanstay/minbak-cli/internal/engine"
	"github.com/urbanstay/minbak-cli/pkg/bldrgst"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "minbak-cli",
	Short: "Urban homestay suitability screening from building-registry records",
	Long:  "Queries the national building-registry API by address code, runs the jurisdiction's eligibility rule chain, and grades each building's suitability for foreign-tourist urban homestay registration.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// newEngine wires the registry client and thresholds from config.
func newEngine() (*engine.Engine, error) {
	rules := engine.DefaultThresholds()
	if cfg.Rules.File != "" {
		loaded, err := engine.LoadThresholds(cfg.Rules.File)
		if err != nil {
			return nil, err
		}
		rules = loaded
		zap.L().Info("loaded rule thresholds", zap.String("file", cfg.Rules.File))
	}

	client := bldrgst.NewClient(cfg.Registry.ServiceKey,
		bldrgst.WithBaseURL(cfg.Registry.BaseURL),
		bldrgst.WithPageSize(cfg.Registry.PageSize),
		bldrgst.WithMaxPages(cfg.Registry.MaxPages),
		bldrgst.WithRateLimit(cfg.Registry.RateLimit),
		bldrgst.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Registry.TimeoutSecs) * time.Second,
		}),
	)

	return engine.New(client, rules), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
