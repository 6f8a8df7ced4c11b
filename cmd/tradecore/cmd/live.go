package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradecore/clock"
	"github.com/rustyeddy/tradecore/config"
	"github.com/rustyeddy/tradecore/engine"
	"github.com/rustyeddy/tradecore/internal/id"
	"github.com/rustyeddy/tradecore/oanda"
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Trade live against OANDA",
	Long: `Run the live engine: poll quotes and closed bars, evaluate the
strategy, and submit risk-sized orders through the safeguard chain.

The OANDA token is read from the OANDA_TOKEN environment variable unless
set in the config. Ctrl-C stops the engine; open positions stay at the
venue protected by their stops and are re-adopted on the next start.

Example:
  OANDA_TOKEN=... tradecore live -f config.yaml`,
	RunE: runLive,
}

var liveConfigPath string

func init() {
	rootCmd.AddCommand(liveCmd)

	liveCmd.Flags().StringVarP(&liveConfigPath, "config", "f", "", "path to YAML config (required)")
	liveCmd.MarkFlagRequired("config")
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(liveConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	token := cfg.Venue.Token
	if env := os.Getenv("OANDA_TOKEN"); env != "" {
		token = env
	}
	if token == "" {
		return fmt.Errorf("no OANDA token: set venue.token or OANDA_TOKEN")
	}
	if cfg.Venue.AccountID == "" {
		return fmt.Errorf("venue.account_id is required for live trading")
	}

	log := buildLogger(cfg.Logging)

	jrnl, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer jrnl.Close()

	client := oanda.NewClient(token, cfg.Venue.AccountID, cfg.Venue.Practice, log)

	pipeline, err := buildPipeline(cfg, client, jrnl, clock.Wall{}, id.New, time.Sleep, log)
	if err != nil {
		return err
	}

	eng := engine.New(pipeline, client, client, engine.Config{
		Symbols:      cfg.Market.Symbols,
		Timeframe:    cfg.Timeframe(),
		PollInterval: cfg.Engine.PollInterval.Std(),
		SyncInterval: cfg.Engine.SyncInterval.Std(),
	}, log)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("account", cfg.Venue.AccountID).
		Bool("practice", cfg.Venue.Practice).
		Str("strategy", cfg.Strategy.Name).
		Msg("starting live engine")
	return eng.Run(ctx)
}
