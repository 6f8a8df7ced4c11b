package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tradecore",
	Short: "An automated trading execution core for FX",
	Long: `Tradecore runs a rule-based trading system against a live venue or
replays it over historical bars.

It provides:
  - A live engine polling bars and quotes from OANDA
  - A backtest replayer sharing the exact live decision path
  - Risk-based position sizing with pre-trade safeguards
  - A kill switch, daily loss limits, and venue reconciliation
  - An append-only journal (SQLite or CSV) of every decision`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
