package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "semantics",
	Short: "Wikit Semantics answer plugin",
	Long: `Suggests ticket answers from the Wikit Semantics API.

Without a subcommand the web server is started.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(rightsCmd)
	rootCmd.AddCommand(ticketCmd)
	rootCmd.AddCommand(previewCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
