// Package main provides the inventory_agent CLI: dealer-site scraping, the
// ingest and form-filler relay workers, and marketplace posting runs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathan/inventory-poster/internal/config"
	"github.com/jonathan/inventory-poster/internal/logger"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "inventory_agent",
	Short: "Dealer inventory scraper and marketplace poster",
	Long:  "inventory_agent scrapes dealer inventory pages, stores the vehicles in Postgres via a NATS relay, and fills marketplace listing forms for pending vehicles.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to JSON config file (environment variables override it)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads the configuration and builds the logger for one subcommand.
func setup(component string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, logger.Component(logger.New(logger.FromEnv()), component), nil
}

func connectNATS(cfg *config.Config, log zerolog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(cfg.NATSURL,
		nats.Name("inventory_agent"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATSURL, err)
	}
	return nc, nil
}

// relayToken prefers the flag value, then RELAY_TOKEN.
func relayToken(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv("RELAY_TOKEN")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
