package main

import (
	"fmt"

	"github.com/jonathan/inventory-poster/internal/auth"
	"github.com/jonathan/inventory-poster/internal/config"
	"github.com/jonathan/inventory-poster/internal/dom"
	"github.com/jonathan/inventory-poster/internal/poster"
	"github.com/jonathan/inventory-poster/internal/relay"
	"github.com/spf13/cobra"
)

var fillerCmd = &cobra.Command{
	Use:   "filler",
	Short: "Serve postVehicleToFacebook against a logged-in browser tab",
	Long: `Attach to a running Chrome (CHROME_URL, started with --remote-debugging-port) and
fill the marketplace listing form for every postVehicleToFacebook request.
Photos are not uploaded; add them by hand before publishing.`,
	RunE: runFiller,
}

var (
	fillerQueue    string
	fillerStartURL string
)

func init() {
	fillerCmd.Flags().StringVar(&fillerQueue, "queue", "filler", "NATS queue group")
	fillerCmd.Flags().StringVar(&fillerStartURL, "start-url", "", "Page to open in the new tab (default: the create-listing page)")
	rootCmd.AddCommand(fillerCmd)
}

func runFiller(_ *cobra.Command, _ []string) error {
	cfg, log, err := setup("filler")
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	startURL := fillerStartURL
	if startURL == "" {
		startURL = cfg.Settings.MarketplaceOrigin() + poster.CreateListingPath
	}
	page, closeTab, err := dom.Attach(ctx, cfg.ChromeURL, startURL, cfg.Settings.UseAlternateInjection)
	if err != nil {
		return fmt.Errorf("failed to attach to browser at %s: %w", cfg.ChromeURL, err)
	}
	defer closeTab()

	d := &relay.Dispatcher{
		Filler: poster.NewFormFiller(page, cfg.Settings, cfg.Location, cfg.FieldSettleDelay(), log),
		Log:    log,
	}
	// Without JWT_SECRET the filler trusts every caller on the bus.
	if authCfg, err := config.NewAuthConfig(); err == nil {
		d.Auth = auth.NewAuthenticator(authCfg, cfg.Settings.RequireAdminRole)
	} else {
		log.Warn().Err(err).Msg("relay callers are not authenticated")
	}

	nc, err := connectNATS(cfg, log)
	if err != nil {
		return err
	}
	defer nc.Close()

	if _, err := d.Serve(nc, cfg.SubjectPrefix, fillerQueue); err != nil {
		return err
	}
	log.Info().Str("chrome", cfg.ChromeURL).Msg("form filler ready")

	<-ctx.Done()
	log.Info().Msg("shutting down")
	return nc.Drain()
}
