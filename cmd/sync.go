package cmd

import (
	"github.com/spf13/cobra"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Download new workouts and upload them to Strava",
	Long:  `Runs download followed by upload. Requires a valid token (run auth first).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runDownload(cmd, args); err != nil {
			return err
		}
		return runUpload(cmd, args)
	},
}

func init() {
	syncCmd.Flags().StringVar(&cookiesFile, "cookies-file", "config/cookies.txt",
		"Mozilla format cookies.txt file containing ifit.com session cookies")
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log what would be uploaded without uploading")
	rootCmd.AddCommand(syncCmd)
}
