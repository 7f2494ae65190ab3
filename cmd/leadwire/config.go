package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leadwire/leadwire/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE:  runConfigValidate,
}

func init() {
	configValidateCmd.Flags().StringVarP(&configFile, "config", "c", "/etc/leadwire/config.yaml", "Path to configuration file")
	configCmd.AddCommand(configValidateCmd)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	fmt.Println("Configuration is valid")
	fmt.Printf("  Listen address: %s\n", cfg.Server.ListenAddr)
	fmt.Printf("  Database path: %s\n", cfg.Database.Path)
	fmt.Printf("  Realtime mount: %s\n", cfg.Realtime.Path)
	fmt.Printf("  Activity journal: %s (depth %d)\n", cfg.Activity.Path, cfg.Activity.Depth)
	fmt.Printf("  Metrics: %v", cfg.Metrics.Enabled)
	if cfg.Metrics.Enabled {
		fmt.Printf(" on %s%s", cfg.Metrics.ListenAddr, cfg.Metrics.Path)
	}
	fmt.Println()

	return nil
}
