package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/psds-microservice/support-engine/internal/config"
	"github.com/psds-microservice/support-engine/internal/database"
	"github.com/psds-microservice/support-engine/internal/repository"
	"github.com/psds-microservice/support-engine/internal/service"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the support activity summary to stdout",
	RunE:  runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	reports := service.NewReportService(repository.NewStore(db), cfg.StaleAfter)
	summary, err := reports.Summary(ctx)
	if err != nil {
		return fmt.Errorf("summary: %w", err)
	}

	fmt.Printf("Tickets total:    %d\n", summary.TotalTickets)
	fmt.Printf("Open now:         %d\n", summary.OpenNow)
	fmt.Printf("Resolved total:   %d\n", summary.ResolvedTotal)
	fmt.Printf("Banned users:     %d\n", summary.BannedUsers)
	fmt.Printf("Earnings total:   %.2f\n", summary.EarningsTotal)
	if len(summary.TopAgents) > 0 {
		fmt.Println("Top agents:")
		for i, a := range summary.TopAgents {
			fmt.Printf("  %d. %s (id=%d) — %d resolved\n", i+1, a.FullName, a.ID, a.TicketsResolved)
		}
	}

	open, err := reports.OpenTickets(ctx)
	if err != nil {
		return fmt.Errorf("open tickets: %w", err)
	}
	stale := 0
	for _, t := range open {
		if t.Stale {
			stale++
		}
	}
	fmt.Printf("Stale open tickets (> %s): %d\n", cfg.StaleAfter, stale)
	return nil
}
