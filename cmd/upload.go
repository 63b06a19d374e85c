package cmd

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/graham33/ifit-strava/internal/config"
	"github.com/graham33/ifit-strava/internal/db"
	"github.com/graham33/ifit-strava/internal/match"
	"github.com/graham33/ifit-strava/internal/strava"
	"github.com/graham33/ifit-strava/internal/tcx"
)

// Workouts shorter than this are treadmill false starts, not real workouts.
const minWorkoutDuration = 3 * time.Minute

const uploadDescription = "iFit virtual treadmill run"

var dryRun bool

// uploadCmd represents the upload command
var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Idempotently upload workouts to Strava",
	Long: `Uploads cached workouts to Strava, skipping any that were already
uploaded (recorded in the local database or matching an existing Strava
activity by start time and duration), are on the configured skip list, or
are too short to be real workouts.`,
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log what would be uploaded without uploading")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	token, err := strava.LoadToken(tokenFile)
	if err != nil {
		return err
	}
	if !token.Valid() {
		return fmt.Errorf("access token missing or expired, run auth first")
	}

	workouts, err := tcx.LoadDir(workoutDir)
	if err != nil {
		return err
	}
	if len(workouts) == 0 {
		log.Info().Str("dir", workoutDir).Msg("no cached workouts to upload, run download first")
		return nil
	}

	database, err := db.NewDatabase(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	ctx := cmd.Context()
	client := strava.NewClient(ctx, token.AccessToken)

	athlete, err := client.GetAthlete(ctx)
	if err != nil {
		return err
	}
	log.Debug().Int64("athlete_id", athlete.ID).Msg("authenticated with Strava")

	earliest := workouts[0].StartedAt
	log.Debug().Time("earliest", earliest).Msg("fetching Strava activities")
	activities, err := client.ListActivities(ctx, earliest)
	if err != nil {
		return err
	}

	uploaded := 0
	for _, workout := range workouts {
		skip, reason, err := shouldSkip(cfg, database, workout, activities)
		if err != nil {
			return err
		}
		if skip {
			log.Debug().Str("workout", workout.ID).Str("reason", reason).Msg("skipping workout")
			continue
		}

		if dryRun {
			log.Info().Str("workout", workout.ID).Time("started_at", workout.StartedAt).
				Msg("would upload workout")
			continue
		}

		if err := uploadWorkout(cmd, cfg, client, database, workout); err != nil {
			return err
		}
		uploaded++
	}

	log.Info().Int("uploaded", uploaded).Int("workouts", len(workouts)).Msg("upload complete")
	return nil
}

func shouldSkip(cfg *config.Config, database *db.SQLiteDatabase, workout tcx.Workout,
	activities []strava.Activity) (bool, string, error) {
	if workout.Duration < minWorkoutDuration {
		return true, "short duration", nil
	}
	if cfg.ShouldSkip(workout.ID) {
		return true, "on skip list", nil
	}

	alreadyUploaded, err := database.IsUploaded(workout.ID)
	if err != nil {
		return false, "", err
	}
	if alreadyUploaded {
		return true, "already uploaded", nil
	}

	if len(activities) > 0 {
		similar, err := match.FindSimilar(workout, activities)
		if err != nil {
			return false, "", err
		}
		if len(similar) > 0 {
			return true, fmt.Sprintf("%d similar activities on Strava", len(similar)), nil
		}
	}

	return false, "", nil
}

func uploadWorkout(cmd *cobra.Command, cfg *config.Config, client *strava.Client,
	database *db.SQLiteDatabase, workout tcx.Workout) error {
	ctx := cmd.Context()

	log.Info().Str("workout", workout.ID).Time("started_at", workout.StartedAt).Msg("uploading workout")
	activityID, err := client.Upload(ctx, strava.UploadRequest{
		Path:         workout.Path,
		Name:         workout.Notes,
		Description:  uploadDescription,
		ActivityType: "VirtualRun",
		DataType:     "tcx",
	})
	if err != nil {
		return err
	}
	log.Info().Str("url", fmt.Sprintf("https://www.strava.com/activities/%d", activityID)).
		Msg("uploaded workout")

	// Make sure the workout exists in the database before flagging it, in
	// case it was downloaded before bookkeeping existed.
	if err := database.Upsert(db.Record{
		WorkoutID:       workout.ID,
		StartedAt:       workout.StartedAt,
		DurationSeconds: int(workout.Duration.Seconds()),
		Notes:           workout.Notes,
		TCXPath:         workout.Path,
	}); err != nil {
		return err
	}
	if err := database.MarkUploaded(workout.ID, activityID); err != nil {
		return err
	}

	if cfg.Strava.GearID != "" {
		log.Debug().Str("gear_id", cfg.Strava.GearID).Msg("assigning gear")
		if err := client.UpdateActivityGear(ctx, activityID, cfg.Strava.GearID); err != nil {
			return err
		}
	}
	return nil
}
