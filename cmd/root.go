// Package cmd wires up the ifit-strava CLI.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configFile string
	tokenFile  string
	workoutDir string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "ifit-strava",
	Short: "ifit-strava synchronizes iFit workouts to Strava",
	Long: `ifit-strava is a CLI application that:
1. Downloads completed workouts from ifit.com as TCX files
2. Authenticates with the Strava API via OAuth2
3. Idempotently uploads workouts to Strava
4. Tracks upload status in a SQLite database`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		if verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config-file", "c", "config/config.yaml", "Config file")
	rootCmd.PersistentFlags().StringVarP(&tokenFile, "token-file", "t", "config/token.yaml", "Token file path (generated file)")
	rootCmd.PersistentFlags().StringVarP(&workoutDir, "workout-dir", "w", "workouts", "Directory to save cached iFit workouts in")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}
