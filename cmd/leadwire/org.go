package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leadwire/leadwire/internal/config"
	"github.com/leadwire/leadwire/internal/db"
	"github.com/leadwire/leadwire/internal/models"
	"github.com/leadwire/leadwire/internal/repository"
)

var orgCmd = &cobra.Command{
	Use:   "org",
	Short: "Organization management commands",
}

var orgCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new organization",
	RunE:  runOrgCreate,
}

var orgListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all organizations",
	RunE:  runOrgList,
}

var (
	orgName string
	orgSlug string
	orgPlan string
)

func init() {
	orgCreateCmd.Flags().StringVar(&orgName, "name", "", "Organization name")
	orgCreateCmd.Flags().StringVar(&orgSlug, "slug", "", "URL-safe identifier (derived from name if omitted)")
	orgCreateCmd.Flags().StringVar(&orgPlan, "plan", "free", "Billing plan")
	orgCreateCmd.MarkFlagRequired("name")

	orgCmd.AddCommand(orgCreateCmd)
	orgCmd.AddCommand(orgListCmd)

	orgCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "/etc/leadwire/config.yaml", "Path to configuration file")
}

func openDatabase() (*db.DB, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	return db.New(cfg.Database.Path)
}

func runOrgCreate(cmd *cobra.Command, args []string) error {
	database, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	slug := orgSlug
	if slug == "" {
		slug = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(orgName), " ", "-"))
	}

	org := &models.Organization{Name: orgName, Slug: slug, Plan: orgPlan}
	if err := repository.NewOrganizationRepository(database.DB).Create(org); err != nil {
		return err
	}

	fmt.Printf("Organization %s created (id %s, slug %s)\n", org.Name, org.ID, org.Slug)
	return nil
}

func runOrgList(cmd *cobra.Command, args []string) error {
	database, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	orgs, err := repository.NewOrganizationRepository(database.DB).List()
	if err != nil {
		return err
	}

	fmt.Printf("%-36s  %-24s  %-16s  %s\n", "ID", "Name", "Slug", "Plan")
	fmt.Println(strings.Repeat("-", 90))
	for _, o := range orgs {
		fmt.Printf("%-36s  %-24s  %-16s  %s\n", o.ID, o.Name, o.Slug, o.Plan)
	}
	return nil
}
