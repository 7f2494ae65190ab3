package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leadwire/leadwire/internal/models"
	"github.com/leadwire/leadwire/internal/repository"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "API token management commands",
}

var tokenCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Issue a new API token for an organization",
	RunE:  runTokenCreate,
}

var tokenListCmd = &cobra.Command{
	Use:   "list [org-slug]",
	Short: "List an organization's tokens",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenList,
}

var tokenRevokeCmd = &cobra.Command{
	Use:   "revoke [token-id]",
	Short: "Revoke a token",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenRevoke,
}

var (
	tokenOrg     string
	tokenName    string
	tokenExpires time.Duration
)

func init() {
	tokenCreateCmd.Flags().StringVar(&tokenOrg, "org", "", "Organization slug")
	tokenCreateCmd.Flags().StringVar(&tokenName, "name", "", "Token name")
	tokenCreateCmd.Flags().DurationVar(&tokenExpires, "expires", 0, "Time until expiry (0 = never)")
	tokenCreateCmd.MarkFlagRequired("org")
	tokenCreateCmd.MarkFlagRequired("name")

	tokenCmd.AddCommand(tokenCreateCmd)
	tokenCmd.AddCommand(tokenListCmd)
	tokenCmd.AddCommand(tokenRevokeCmd)

	tokenCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "/etc/leadwire/config.yaml", "Path to configuration file")
}

func runTokenCreate(cmd *cobra.Command, args []string) error {
	database, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	org, err := repository.NewOrganizationRepository(database.DB).GetBySlug(tokenOrg)
	if err != nil {
		return err
	}
	if org == nil {
		return fmt.Errorf("organization %s not found", tokenOrg)
	}

	secret := make([]byte, 24)
	if _, err := rand.Read(secret); err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	raw := "lw_" + hex.EncodeToString(secret)

	token := &models.Token{
		OrganizationID: org.ID,
		Name:           tokenName,
		TokenHash:      repository.HashToken(raw),
		TokenPrefix:    raw[:8],
	}
	if tokenExpires > 0 {
		expiresAt := time.Now().Add(tokenExpires)
		token.ExpiresAt = &expiresAt
	}

	if err := repository.NewTokenRepository(database.DB).Create(token); err != nil {
		return err
	}

	// The raw secret is shown exactly once; only its hash is stored
	fmt.Printf("Token created for %s\n", org.Slug)
	fmt.Printf("  ID:     %s\n", token.ID)
	fmt.Printf("  Secret: %s\n", raw)
	if token.ExpiresAt != nil {
		fmt.Printf("  Expires: %s\n", token.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

func runTokenList(cmd *cobra.Command, args []string) error {
	database, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	org, err := repository.NewOrganizationRepository(database.DB).GetBySlug(args[0])
	if err != nil {
		return err
	}
	if org == nil {
		return fmt.Errorf("organization %s not found", args[0])
	}

	tokens, err := repository.NewTokenRepository(database.DB).ListByOrg(org.ID)
	if err != nil {
		return err
	}

	fmt.Printf("%-36s  %-20s  %-10s  %-7s  %s\n", "ID", "Name", "Prefix", "Active", "Last used")
	fmt.Println(strings.Repeat("-", 95))
	for _, t := range tokens {
		lastUsed := "never"
		if t.LastUsedAt != nil {
			lastUsed = t.LastUsedAt.Format(time.RFC3339)
		}
		fmt.Printf("%-36s  %-20s  %-10s  %-7v  %s\n", t.ID, t.Name, t.TokenPrefix, t.Active, lastUsed)
	}
	return nil
}

func runTokenRevoke(cmd *cobra.Command, args []string) error {
	database, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	if err := repository.NewTokenRepository(database.DB).Revoke(args[0]); err != nil {
		return err
	}

	fmt.Printf("Token %s revoked\n", args[0])
	return nil
}
