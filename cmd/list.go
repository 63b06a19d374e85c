package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/graham33/ifit-strava/internal/config"
	"github.com/graham33/ifit-strava/internal/db"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked workouts",
	Long: `List workouts from the local database with various filters:
- All workouts
- Pending workouts (not yet uploaded)
- Uploaded workouts`,
	RunE: runList,
}

func init() {
	listCmd.Flags().Bool("all", false, "List all workouts")
	listCmd.Flags().Bool("pending", false, "List workouts that have not been uploaded")
	listCmd.Flags().Bool("uploaded", false, "List workouts that have been uploaded")
	listCmd.MarkFlagsMutuallyExclusive("all", "pending", "uploaded")
	listCmd.MarkFlagsOneRequired("all", "pending", "uploaded")

	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	listAll, _ := cmd.Flags().GetBool("all")
	listPending, _ := cmd.Flags().GetBool("pending")

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	database, err := db.NewDatabase(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	page := 1
	pageSize := 20
	totalShown := 0

	for {
		var records []db.Record
		var err error

		if listAll {
			records, err = database.GetAllPaginated(page, pageSize)
		} else if listPending {
			records, err = database.GetPendingPaginated(page, pageSize)
		} else {
			records, err = database.GetUploadedPaginated(page, pageSize)
		}
		if err != nil {
			return fmt.Errorf("failed to get workouts: %w", err)
		}

		if len(records) == 0 {
			if totalShown == 0 {
				fmt.Println("No workouts found matching the criteria")
			}
			break
		}

		for _, rec := range records {
			status := "pending"
			if rec.Uploaded {
				status = fmt.Sprintf("uploaded (https://www.strava.com/activities/%d)", rec.StravaActivityID)
			}
			fmt.Printf("ID: %s | %s | %s | %s\n",
				rec.WorkoutID,
				rec.StartedAt.Format("2006-01-02 15:04:05"),
				(time.Duration(rec.DurationSeconds) * time.Second).String(),
				status)
			totalShown++
		}

		// Only prompt if there might be more results
		if len(records) == pageSize {
			fmt.Printf("\nPage %d (%d workouts shown) - Show more? (y/n): ", page, totalShown)
			var response string
			fmt.Scanln(&response)
			if strings.ToLower(response) != "y" {
				break
			}
			page++
		} else {
			fmt.Printf("\nTotal: %d workouts shown\n", totalShown)
			break
		}
	}

	return nil
}
