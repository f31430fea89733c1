package cmd

import (
	"context"
	"fmt"

	"materiel-tracker/core/config"
	"materiel-tracker/core/database"
	"materiel-tracker/core/logger"
	"materiel-tracker/feature/inventory"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var campaignID uint

// reconcileCmd prints the present/missing partition of a campaign.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile a campaign (report confirmed and missing materiels)",
	Long: `Reconcile a campaign against the materiel registry.

Prints every eligible materiel partitioned into confirmed-present (with the
agent who scanned it) and missing. The report is the same structured data the
HTTP endpoint serves; export collaborators turn it into documents.

Examples:
  # Report campaign 3
  materiel-tracker reconcile --campaign 3`,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().UintVar(&campaignID, "campaign", 0, "Campaign ID to reconcile (required)")
	_ = reconcileCmd.MarkFlagRequired("campaign")

	RootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	l.Info("Reconciling campaign", zap.Uint("campaign_id", campaignID))

	// The CLI never scans, so no registry lookup is wired in.
	svc := inventory.NewService(db, nil, l, inventory.Options{})
	report, err := svc.Reconcile(ctx, campaignID)
	if err != nil {
		return err
	}

	fmt.Printf("Campaign: %s (started %s)\n", report.Campaign.Nom, report.Campaign.DateDebut.Format("2006-01-02"))
	if report.Campaign.ServicePerimetre != "" {
		fmt.Printf("Perimeter: %s\n", report.Campaign.ServicePerimetre)
	}
	fmt.Printf("Eligible: %d  Present: %d  Missing: %d\n\n",
		report.Summary.TotalEligible, report.Summary.PresentCount, report.Summary.MissingCount)

	if len(report.Present) > 0 {
		fmt.Println("PRESENT:")
		for _, p := range report.Present {
			fmt.Printf("  %-24s %-32s scanned by %s at %s\n",
				p.Materiel.Numero, p.Materiel.Nom, p.AgentID, p.ScannedAt.Format("2006-01-02 15:04"))
		}
		fmt.Println()
	}

	if len(report.Missing) > 0 {
		fmt.Println("MISSING:")
		for _, m := range report.Missing {
			fmt.Printf("  %-24s %-32s %s\n", m.Numero, m.Nom, m.Service)
		}
	}

	return nil
}
