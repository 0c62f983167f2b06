package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/urbanstay/minbak-cli/internal/engine"
	"github.com/urbanstay/minbak-cli/internal/report"
	"github.com/urbanstay/minbak-cli/pkg/bldrgst"
)

var (
	checkDistrict     string
	checkNeighborhood string
	checkLot          string
	checkSub          string
	checkRequireRC    bool
	checkSkipUnits    bool
	checkJSON         bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Screen a single address for homestay suitability",
	Long: `Fetches the title (and optionally exclusive-unit) registry records for one
address-code tuple and runs the eligibility rule chain.

Examples:
  # Full report for lot 49-4
  minbak-cli check --district 11590 --neighborhood 10400 --lot 49 --sub 4

  # Strict mode: additionally require reinforced-concrete structure
  minbak-cli check --district 11590 --neighborhood 10400 --lot 49 --require-rc

  # Machine-readable verdict
  minbak-cli check --district 11590 --neighborhood 10400 --lot 49 --json`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("check"); err != nil {
			return err
		}

		eng, err := newEngine()
		if err != nil {
			return eris.Wrap(err, "check: init engine")
		}

		key := bldrgst.LotKey{
			District:     checkDistrict,
			Neighborhood: checkNeighborhood,
			LotMain:      checkLot,
			LotSub:       checkSub,
		}

		verdict, err := eng.Evaluate(cmd.Context(), key, engine.Options{
			RequireRC:            checkRequireRC,
			IncludeUnitsPerFloor: !checkSkipUnits,
		})
		if err != nil {
			return eris.Wrap(err, "check: evaluate")
		}

		if checkJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(verdict)
		}

		report.Render(os.Stdout, verdict)
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkDistrict, "district", "", "sigungu (district) code, e.g. 11590")
	checkCmd.Flags().StringVar(&checkNeighborhood, "neighborhood", "", "bjdong (neighborhood) code, e.g. 10400")
	checkCmd.Flags().StringVar(&checkLot, "lot", "", "main lot number (번)")
	checkCmd.Flags().StringVar(&checkSub, "sub", "", "sub lot number (지), blank means 0000")
	checkCmd.Flags().BoolVar(&checkRequireRC, "require-rc", false, "require reinforced-concrete structure")
	checkCmd.Flags().BoolVar(&checkSkipUnits, "skip-units", false, "skip the exclusive-unit fetch and per-floor detail")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "print the verdict as JSON instead of a report")
	_ = checkCmd.MarkFlagRequired("district")
	_ = checkCmd.MarkFlagRequired("neighborhood")
	_ = checkCmd.MarkFlagRequired("lot")
	rootCmd.AddCommand(checkCmd)
}
