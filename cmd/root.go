package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"labelcheck/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "labelcheck",
	Short: "labelcheck - alcoholic-beverage label compliance verification",
	Long: `labelcheck verifies photographs of alcoholic-beverage labels against
government application data.

Label images are read with Google Cloud Vision OCR, candidate field values
are classified with an OpenAI model, and the extracted text is reconciled
against the expected regulatory field values to produce a deterministic
compliance decision with correction deadlines.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("labelcheck - label compliance verification")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}
