package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonathan/inventory-poster/internal/fetch"
	"github.com/jonathan/inventory-poster/internal/relay"
	"github.com/jonathan/inventory-poster/internal/scraper"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape dealer inventory pages",
	Long:  "Load each inventory page, extract its vehicles and send every page as one scrapedInventory batch over the relay (or print the batches with --print).",
	RunE:  runScrape,
}

var (
	scrapeURLs        []string
	scrapeSource      string
	scrapeNoBrowser   bool
	scrapePrint       bool
	scrapeSettle      time.Duration
	scrapeToken       string
	scrapeConcurrency int
)

func init() {
	scrapeCmd.Flags().StringSliceVar(&scrapeURLs, "url", nil, "Inventory page URL (repeatable)")
	scrapeCmd.Flags().StringVar(&scrapeSource, "source", "", "Selector set to use (default: detected from the page)")
	scrapeCmd.Flags().BoolVar(&scrapeNoBrowser, "no-browser", false, "Fetch over plain HTTP instead of rendering in headless Chrome")
	scrapeCmd.Flags().BoolVar(&scrapePrint, "print", false, "Print batches as JSON instead of sending them to ingest")
	scrapeCmd.Flags().DurationVar(&scrapeSettle, "settle", 2*time.Second, "Pause after first paint before reading the page")
	scrapeCmd.Flags().StringVar(&scrapeToken, "token", "", "Relay token (overrides RELAY_TOKEN)")
	scrapeCmd.Flags().IntVar(&scrapeConcurrency, "concurrency", 2, "Pages scraped at once")
	_ = scrapeCmd.MarkFlagRequired("url")

	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup("scrape")
	if err != nil {
		return err
	}
	if scrapeConcurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1")
	}
	// Failures past this point are page or relay errors, not usage errors.
	cmd.SilenceUsage = true

	ctx, cancel := signalContext()
	defer cancel()

	policy := scraper.RetryPolicy{Delays: cfg.ScrapeRetryDelays()}
	opts := fetch.DefaultOptions()
	batches := make([]*scraper.Batch, len(scrapeURLs))
	failures := make([]error, len(scrapeURLs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scrapeConcurrency)
	for i, u := range scrapeURLs {
		g.Go(func() error {
			pageLog := log.With().Str("url", u).Logger()
			batch, err := scrapeOne(gctx, u, policy, opts, pageLog)
			if err != nil {
				pageLog.Error().Err(err).Msg("page failed")
				failures[i] = err
				return nil
			}
			batches[i] = batch
			return nil
		})
	}
	_ = g.Wait()

	scraped := make([]*scraper.Batch, 0, len(batches))
	for _, batch := range batches {
		if batch != nil {
			scraped = append(scraped, batch)
		}
	}

	if scrapePrint {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(scraped); err != nil {
			return err
		}
		return pageFailures(failures)
	}

	if len(scraped) > 0 {
		nc, err := connectNATS(cfg, log)
		if err != nil {
			return err
		}
		defer nc.Close()

		client := relay.NewClient(nc, cfg.SubjectPrefix, log, relay.WithToken(relayToken(scrapeToken)))
		for i, batch := range batches {
			if batch == nil {
				continue
			}
			result, err := client.SendScrapedInventory(ctx, batch.Source, batch.Vehicles)
			if err != nil {
				log.Error().Err(err).Str("url", scrapeURLs[i]).Msg("batch not delivered")
				failures[i] = fmt.Errorf("failed to send batch: %w", err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d inserted, %d updated, %d errored\n",
				scrapeURLs[i], result.InsertedCount, result.UpdatedCount, result.ErrorCount)
			for _, rec := range result.Errored {
				fmt.Fprintf(cmd.OutOrStdout(), "  record %d: %s\n", rec.Index, rec.Reason)
			}
		}
	}
	return pageFailures(failures)
}

// pageFailures folds per-page errors into one, naming each failed URL.
func pageFailures(failures []error) error {
	var errs []error
	for i, err := range failures {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", scrapeURLs[i], err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d page(s) failed: %w", len(errs), len(failures), errors.Join(errs...))
}

// scrapeOne loads and scrapes u under policy. Every load, the first one
// included, goes through the retry schedule.
func scrapeOne(ctx context.Context, u string, policy scraper.RetryPolicy, opts *fetch.Options, log zerolog.Logger) (*scraper.Batch, error) {
	load := func(ctx context.Context) (string, error) {
		return fetch.Render(ctx, u, !scrapeNoBrowser, scrapeSettle, opts, log)
	}

	batch, err := scraper.ScrapeHTML(ctx, u, scrapeSource, policy, load, log)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("source", batch.Source).
		Int("vehicles", len(batch.Vehicles)).
		Int("cards", batch.Cards).
		Int("dropped", batch.Dropped).
		Int("attempts", batch.Attempts).
		Msg("page scraped")
	return batch, nil
}
