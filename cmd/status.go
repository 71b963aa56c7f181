package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"labelcheck/internal/compliance"
	"labelcheck/internal/config"
	"labelcheck/internal/store"
	"labelcheck/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the effective status of stored labels",
	Long: `List stored labels with their effective compliance status.

The effective status is resolved lazily at read time: a passed correction
deadline escalates the stored status one step (needs_correction becomes
rejected, conditionally_approved becomes needs_correction) without any
background job having to rewrite it.`,
	Example: `  # List all labels with deadline urgency
  labelcheck status

  # JSON output, and eagerly flag passed deadlines in the database
  labelcheck status --json --flag-expired`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().Bool("json", false, "Output as JSON")
	statusCmd.Flags().Bool("flag-expired", false, "Eagerly set the deadline-expired flag on labels whose deadline passed")
}

type statusRow struct {
	ID              string                   `json:"id"`
	BrandName       string                   `json:"brand_name"`
	BeverageType    models.BeverageType      `json:"beverage_type"`
	StoredStatus    models.LabelStatus       `json:"stored_status"`
	EffectiveStatus models.LabelStatus       `json:"effective_status"`
	Deadline        *time.Time               `json:"deadline,omitempty"`
	DeadlineInfo    *compliance.DeadlineInfo `json:"deadline_info,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	flagExpired, _ := cmd.Flags().GetBool("flag-expired")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	labels, err := db.ListLabels(cmd.Context())
	if err != nil {
		return err
	}

	now := time.Now()
	rows := make([]statusRow, 0, len(labels))
	for _, l := range labels {
		effective := compliance.EffectiveStatus(compliance.LabelState{
			Status:             l.Status,
			CorrectionDeadline: l.CorrectionDeadline,
			DeadlineExpired:    l.DeadlineExpired,
		}, now)

		row := statusRow{
			ID:              l.ID.String(),
			BrandName:       l.BrandName,
			BeverageType:    l.BeverageType,
			StoredStatus:    l.Status,
			EffectiveStatus: effective,
			Deadline:        l.CorrectionDeadline,
		}
		if l.CorrectionDeadline != nil {
			info := compliance.Deadline(*l.CorrectionDeadline, now)
			row.DeadlineInfo = &info

			if flagExpired && info.Urgency == compliance.UrgencyExpired && !l.DeadlineExpired {
				if err := db.MarkDeadlineExpired(cmd.Context(), l.ID); err != nil {
					return err
				}
			}
		}
		rows = append(rows, row)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Println("No labels stored.")
		return nil
	}

	for _, row := range rows {
		fmt.Printf("%-36s %-24s %-18s %-22s", row.ID, truncate(row.BrandName, 24), row.BeverageType, row.EffectiveStatus)
		if row.DeadlineInfo != nil {
			fmt.Printf(" %s (%d days)", row.DeadlineInfo.Urgency, row.DeadlineInfo.DaysRemaining)
		}
		fmt.Println()
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
