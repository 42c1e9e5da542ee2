package main

import (
	"fmt"

	"sjsage522/bestdeal/internal/classifier"

	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <description>...",
	Short: "Show how product descriptions are classified",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runClassify,
}

var classifyCategory string

func init() {
	classifyCmd.Flags().StringVarP(&classifyCategory, "category", "c", "GPU", "Catalog to classify against")
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	catalog, err := classifier.Lookup(classifyCategory)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, description := range args {
		cls, err := catalog.Classify(description)
		if err != nil {
			fmt.Fprintf(out, "%q: rejected (%v)\n", description, err)
			continue
		}
		fmt.Fprintf(out, "%q: brand=%s type=%s\n", description, cls.Brand, cls.ProductType)
	}
	return nil
}
