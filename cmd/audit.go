package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"training-enrollment/internal/config"
	"training-enrollment/internal/infrastructure/database"
	"training-enrollment/internal/infrastructure/repository"
	"training-enrollment/internal/service"
	"training-enrollment/pkg/logger"

	"github.com/spf13/cobra"
)

var repairCounters bool

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Check session seat counters against bookings",
	Long: `List sessions whose current_attendees disagrees with the number of
booking rows or exceeds capacity. With --repair each reported session is
recomputed from its bookings while holding the session lock.`,
	Run: func(cmd *cobra.Command, args []string) {
		runAudit()
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().BoolVar(&repairCounters, "repair", false, "Recompute inconsistent counters")
}

func runAudit() {
	cfg := config.Get()

	db := mustOpenDatabase(cfg)
	defer database.Close(db)

	audits, err := repository.NewAuditRepository(db)
	if err != nil {
		logger.Error("Failed to create audit repository: %v", err)
		os.Exit(1)
	}
	auditService := service.NewAuditService(repository.NewGormStore(db), audits)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	rows, err := auditService.Audit(ctx)
	if err != nil {
		logger.Error("Audit failed: %v", err)
		os.Exit(1)
	}

	if len(rows) == 0 {
		fmt.Println("All session counters are consistent.")
		return
	}

	fmt.Printf("%d inconsistent sessions:\n", len(rows))
	for _, row := range rows {
		fmt.Printf("  %s  counter=%d bookings=%d capacity=%d\n",
			row.SessionID, row.CurrentAttendees, row.BookingCount, row.Capacity)
	}

	if !repairCounters {
		os.Exit(2)
	}

	failed := 0
	for _, row := range rows {
		session, err := auditService.Repair(ctx, row.SessionID)
		if err != nil {
			logger.Error("Failed to repair session %s: %v", row.SessionID, err)
			failed++
			continue
		}
		fmt.Printf("  repaired %s -> %d/%d\n", session.SessionID, session.CurrentAttendees, session.Capacity)
	}

	if failed > 0 {
		os.Exit(1)
	}
}
