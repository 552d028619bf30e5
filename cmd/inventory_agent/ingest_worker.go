package main

import (
	"fmt"

	"github.com/jonathan/inventory-poster/internal/auth"
	"github.com/jonathan/inventory-poster/internal/config"
	"github.com/jonathan/inventory-poster/internal/db"
	"github.com/jonathan/inventory-poster/internal/describe"
	"github.com/jonathan/inventory-poster/internal/ingest"
	"github.com/jonathan/inventory-poster/internal/logger"
	"github.com/jonathan/inventory-poster/internal/relay"
	"github.com/jonathan/inventory-poster/internal/vindecode"
	"github.com/spf13/cobra"
)

var ingestWorkerCmd = &cobra.Command{
	Use:   "ingest-worker",
	Short: "Serve the inventory relay commands backed by Postgres",
	Long:  "Subscribe to authenticate, scrapedInventory, getPendingVehicles and updateVehicleStatus and answer them from the vehicles table.",
	RunE:  runIngestWorker,
}

var ingestQueue string

func init() {
	ingestWorkerCmd.Flags().StringVar(&ingestQueue, "queue", "ingest", "NATS queue group shared by ingest workers")
	rootCmd.AddCommand(ingestWorkerCmd)
}

func runIngestWorker(_ *cobra.Command, _ []string) error {
	cfg, log, err := setup("ingest")
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}
	authCfg, err := config.NewAuthConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()
	if err := database.EnsureSchema(ctx); err != nil {
		return err
	}

	var describer describe.Describer = describe.TemplateDescriber{}
	if cfg.GeminiAPIKey != "" {
		gen, err := describe.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, describe.DefaultModel)
		if err != nil {
			return fmt.Errorf("failed to create description generator: %w", err)
		}
		defer func() { _ = gen.Close() }()
		describer = describe.NewGeminiDescriber(gen)
	}

	svc := ingest.NewService(database, log,
		ingest.WithDecoder(vindecode.NewClient(cfg.VINDecodeURL, logger.Component(log, "vindecode"))),
		ingest.WithDescriber(describer),
	)

	nc, err := connectNATS(cfg, log)
	if err != nil {
		return err
	}
	defer nc.Close()

	d := &relay.Dispatcher{
		Auth:      auth.NewAuthenticator(authCfg, cfg.Settings.RequireAdminRole),
		Inventory: svc,
		Log:       log,
	}
	if _, err := d.Serve(nc, cfg.SubjectPrefix, ingestQueue); err != nil {
		return err
	}
	log.Info().Str("nats", cfg.NATSURL).Msg("ingest worker ready")

	<-ctx.Done()
	log.Info().Msg("shutting down")
	return nc.Drain()
}
