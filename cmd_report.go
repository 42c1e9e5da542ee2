package main

import (
	"fmt"

	"sjsage522/bestdeal/internal/model"
	"sjsage522/bestdeal/internal/stats"
	apperrors "sjsage522/bestdeal/pkg/errors"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the best deals and daily reports without fetching",
	RunE:  runReport,
}

var (
	reportCategories []string
	reportTypes      []string
	reportDay        string
)

func init() {
	reportCmd.Flags().StringSliceVarP(&reportCategories, "category", "c", nil, "Categories to report (defaults to CATEGORIES)")
	reportCmd.Flags().StringSliceVarP(&reportTypes, "type", "t", nil, "Product types to report (defaults to the tweeted types)")
	reportCmd.Flags().StringVarP(&reportDay, "day", "d", "", "Day as YYYY-MM-DD (defaults to today)")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := requireDatabase(cfg, "report"); err != nil {
		return err
	}
	categories := cfg.Categories
	if len(reportCategories) > 0 {
		categories = reportCategories
	}

	ctx := cmd.Context()
	services, err := initializeServices(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer services.Cleanup()

	out := cmd.OutOrStdout()
	for _, name := range categories {
		category, err := services.OpenCategory(ctx, name)
		if err != nil {
			return err
		}

		day := category.Ingest.Today()
		if reportDay != "" {
			if day, err = model.ParseDay(reportDay); err != nil {
				return err
			}
		}

		deals, err := category.Stats.BestDeals(ctx, day)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "== %s %s ==\n", category.Name, day)
		for _, line := range stats.FormatBestDeals(deals) {
			fmt.Fprintln(out, line)
		}

		types := cfg.TweetedTypes[category.Name]
		if len(reportTypes) > 0 {
			types = reportTypes
		}
		for _, productType := range types {
			text, err := category.Stats.FormatCheapestReport(ctx, productType, day)
			if apperrors.IsNotFound(err) {
				fmt.Fprintf(out, "\n%s: no offer on %s\n", productType, day)
				continue
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%s\n", text)
		}
		fmt.Fprintln(out)
	}
	return nil
}
