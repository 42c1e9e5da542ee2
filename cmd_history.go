package main

import (
	"encoding/json"
	"fmt"

	"sjsage522/bestdeal/internal/model"
	"sjsage522/bestdeal/internal/store"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded observations of a category",
	RunE:  runHistory,
}

var (
	historyCategory string
	historyDay      string
	historyType     string
	historyBrand    string
	historySource   string
	historyJSON     bool
)

func init() {
	historyCmd.Flags().StringVarP(&historyCategory, "category", "c", "", "Category to query (required)")
	historyCmd.Flags().StringVarP(&historyDay, "day", "d", "", "Only observations of this day (YYYY-MM-DD)")
	historyCmd.Flags().StringVarP(&historyType, "type", "t", "", "Only this product type")
	historyCmd.Flags().StringVarP(&historyBrand, "brand", "b", "", "Only this brand")
	historyCmd.Flags().StringVarP(&historySource, "source", "s", "", "Only this vendor")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print observations as JSON")

	if err := historyCmd.MarkFlagRequired("category"); err != nil {
		panic(fmt.Sprintf("failed to mark category flag as required: %v", err))
	}

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	filter := store.Filter{ProductType: historyType, Brand: historyBrand, Source: historySource}
	if historyDay != "" {
		day, err := model.ParseDay(historyDay)
		if err != nil {
			return err
		}
		filter.Day = &day
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := requireDatabase(cfg, "history"); err != nil {
		return err
	}

	ctx := cmd.Context()
	services, err := initializeServices(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer services.Cleanup()

	category, err := services.OpenCategory(ctx, historyCategory)
	if err != nil {
		return err
	}
	rows, err := category.Store.Find(ctx, filter)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if historyJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(rows)
	}
	for _, o := range rows {
		fmt.Fprintf(out, "%s  %-10s %-10s %9.2f€  %-12s %s\n",
			o.Timestamp.In(cfg.Location).Format("2006-01-02 15:04"), o.ProductType, o.ProductBrand, o.ProductPrice, o.SourceName, o.ProductName)
	}
	fmt.Fprintf(out, "%d observations\n", len(rows))
	return nil
}
