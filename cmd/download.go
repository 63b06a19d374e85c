package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/graham33/ifit-strava/internal/config"
	"github.com/graham33/ifit-strava/internal/db"
	"github.com/graham33/ifit-strava/internal/ifit"
	"github.com/graham33/ifit-strava/internal/tcx"
)

var cookiesFile string

// downloadCmd represents the download command
var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download workouts from ifit.com",
	Long: `Downloads completed workouts from ifit.com as TCX files, using the
session cookies from a Mozilla format cookies.txt file. Workouts already
cached in the workout directory are not downloaded again.`,
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().StringVar(&cookiesFile, "cookies-file", "config/cookies.txt",
		"Mozilla format cookies.txt file containing ifit.com session cookies")
	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	client, err := ifit.NewClient(cookiesFile, ifit.WithRateLimit(cfg.RateLimit))
	if err != nil {
		return fmt.Errorf("failed to create iFit client: %w", err)
	}

	ids, err := client.FetchWorkoutIDs(cmd.Context())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(workoutDir, 0755); err != nil {
		return fmt.Errorf("failed to create workout directory: %w", err)
	}

	database, err := db.NewDatabase(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	downloaded := 0
	for _, id := range ids {
		path, fresh, err := client.EnsureDownloaded(cmd.Context(), id, workoutDir)
		if err != nil {
			return err
		}
		if fresh {
			downloaded++
		}

		workout, err := tcx.ParseFile(path)
		if err != nil {
			log.Warn().Err(err).Str("workout", id).Msg("downloaded workout does not parse, skipping bookkeeping")
			continue
		}
		if err := database.Upsert(db.Record{
			WorkoutID:       workout.ID,
			StartedAt:       workout.StartedAt,
			DurationSeconds: int(workout.Duration.Seconds()),
			Notes:           workout.Notes,
			TCXPath:         workout.Path,
		}); err != nil {
			return err
		}
	}

	log.Info().Int("workouts", len(ids)).Int("downloaded", downloaded).Msg("download complete")
	return nil
}
