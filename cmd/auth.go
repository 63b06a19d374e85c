package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/graham33/ifit-strava/internal/config"
	"github.com/graham33/ifit-strava/internal/strava"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authenticate with Strava",
	Long: `Obtains a Strava OAuth2 token. On first use this prints an
authorization URL to visit in a browser and waits for the callback; on later
runs it refreshes the access token when needed. The token is written to the
token file.`,
	RunE: runAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	token, err := strava.LoadToken(tokenFile)
	if err != nil {
		return err
	}

	conf := strava.OAuthConfig(cfg.Strava.ClientID, cfg.Strava.ClientSecret, cfg.Strava.RedirectURI)

	if token.RefreshToken == "" {
		authorized, err := strava.Authorize(cmd.Context(), conf, cfg.Strava.AuthPort)
		if err != nil {
			return fmt.Errorf("authorization failed: %w", err)
		}
		token.Update(authorized)
		log.Info().Msg("authorization complete")
	}

	if !token.Valid() {
		if err := strava.Refresh(cmd.Context(), conf, token); err != nil {
			return err
		}
		log.Info().Msg("access token refreshed")
	}

	if err := os.MkdirAll(filepath.Dir(tokenFile), 0755); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	log.Debug().Str("path", tokenFile).Msg("saving token")
	return token.Save(tokenFile)
}
