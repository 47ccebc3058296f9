package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	dotEnvPath string
)

var rootCmd = &cobra.Command{
	Use:   "landd",
	Short: "Sequential land marketplace ledger",
	Long: `landd runs the land marketplace ledger. Plots are sold strictly in
order, one area at a time, and every purchase is backed by an on-chain
payment.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a .toml or .yaml config file")
	rootCmd.PersistentFlags().StringVar(&dotEnvPath, "env-file", ".env", "Path to a dotenv file (ignored if missing)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
