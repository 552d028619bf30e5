package main

import (
	"encoding/json"
	"fmt"

	"github.com/jonathan/inventory-poster/internal/poster"
	"github.com/jonathan/inventory-poster/internal/relay"
	"github.com/spf13/cobra"
)

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Post every pending vehicle",
	Long:  "Fetch the caller's pending vehicles over the relay, have the filler fill one listing form per vehicle in order, and record each outcome.",
	RunE:  runPost,
}

var (
	postToken string
	postJSON  bool
)

func init() {
	postCmd.Flags().StringVar(&postToken, "token", "", "Relay token (overrides RELAY_TOKEN)")
	postCmd.Flags().BoolVar(&postJSON, "json", false, "Print the run report as JSON")
	rootCmd.AddCommand(postCmd)
}

func runPost(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup("post")
	if err != nil {
		return err
	}
	token := relayToken(postToken)
	if token == "" {
		return fmt.Errorf("a relay token is required (set RELAY_TOKEN or use --token)")
	}

	ctx, cancel := signalContext()
	defer cancel()

	nc, err := connectNATS(cfg, log)
	if err != nil {
		return err
	}
	defer nc.Close()

	client := relay.NewClient(nc, cfg.SubjectPrefix, log, relay.WithToken(token))
	if _, err := client.Authenticate(ctx); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	report, err := poster.NewOrchestrator(client, client, client, cfg.InterTaskDelay(), log).Run(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if postJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	for _, line := range report.Log {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "posted %d, errored %d, not attempted %d of %d\n",
		report.Posted, report.Errored, report.Abandoned, report.Queued)
	return nil
}
