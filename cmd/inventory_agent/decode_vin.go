package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/inventory-poster/internal/vindecode"
	"github.com/spf13/cobra"
)

var decodeVINCmd = &cobra.Command{
	Use:   "decode-vin VIN",
	Short: "Decode a VIN and print the result",
	Args:  cobra.ExactArgs(1),
	RunE:  runDecodeVIN,
}

func init() {
	rootCmd.AddCommand(decodeVINCmd)
}

func runDecodeVIN(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup("vindecode")
	if err != nil {
		return err
	}

	result := vindecode.NewClient(cfg.VINDecodeURL, log).Decode(context.Background(), args[0])

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("decode failed: %s", result.Error)
	}
	return nil
}
