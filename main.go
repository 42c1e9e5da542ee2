package main

import (
	"fmt"
	"os"

	"sjsage522/bestdeal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bestdeal",
	Short: "Hardware price watcher",
	Long:  "bestdeal scrapes vendor listings, classifies products into comparable types, records their price history and reports the cheapest offers.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init()
	},
	SilenceUsage: true,
}

func main() {
	// Load environment variables
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
