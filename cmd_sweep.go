package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete observations priced below the anomaly threshold",
	Long:  "Deletes, in every configured category, the observations whose price is below the threshold. Such prices are scraper glitches like a graphics card listed at 1€.",
	RunE:  runSweep,
}

var sweepThreshold float64

func init() {
	sweepCmd.Flags().Float64VarP(&sweepThreshold, "threshold", "t", -1, "Price threshold (defaults to ANOMALY_THRESHOLD)")
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := requireDatabase(cfg, "sweep"); err != nil {
		return err
	}
	threshold := cfg.AnomalyThreshold
	if cmd.Flags().Changed("threshold") {
		threshold = sweepThreshold
	}

	ctx := cmd.Context()
	services, err := initializeServices(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer services.Cleanup()

	for _, name := range cfg.Categories {
		category, err := services.OpenCategory(ctx, name)
		if err != nil {
			return err
		}
		deleted, err := category.Ingest.SweepAnomalies(ctx, threshold)
		if err != nil {
			return fmt.Errorf("sweep %s: %w", category.Name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: deleted %d observations below %v€\n", category.Name, deleted, threshold)
	}
	return nil
}
