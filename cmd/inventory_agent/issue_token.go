package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/inventory-poster/internal/auth"
	"github.com/jonathan/inventory-poster/internal/config"
	"github.com/spf13/cobra"
)

var issueTokenCmd = &cobra.Command{
	Use:   "issue-token",
	Short: "Mint a relay token for an owner",
	RunE:  runIssueToken,
}

var (
	tokenOwner string
	tokenRole  string
)

func init() {
	issueTokenCmd.Flags().StringVar(&tokenOwner, "owner", "", "Owner ID (UUID) the token acts for")
	issueTokenCmd.Flags().StringVar(&tokenRole, "role", "dealer", "Role claim (\"admin\" sees every owner's vehicles)")
	_ = issueTokenCmd.MarkFlagRequired("owner")
	rootCmd.AddCommand(issueTokenCmd)
}

func runIssueToken(cmd *cobra.Command, _ []string) error {
	ownerID, err := uuid.Parse(tokenOwner)
	if err != nil {
		return fmt.Errorf("invalid --owner: %w", err)
	}
	authCfg, err := config.NewAuthConfig()
	if err != nil {
		return err
	}

	token, err := auth.NewAuthenticator(authCfg, false).IssueToken(ownerID, tokenRole)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
