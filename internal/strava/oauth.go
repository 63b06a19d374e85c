package strava

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// Strava wants the scope parameter comma-separated, so it is passed as a
// single scope string rather than letting oauth2 space-join a list.
const scopeParam = "activity:read,activity:write"

// requiredScopes are checked individually against the scope string Strava
// echoes back in the authorization callback.
var requiredScopes = []string{"activity:read", "activity:write"}

var defaultEndpoint = oauth2.Endpoint{
	AuthURL:  "https://www.strava.com/oauth/authorize",
	TokenURL: "https://www.strava.com/oauth/token",
}

// OAuthConfig builds the oauth2 config for the user's Strava API
// application.
func OAuthConfig(clientID, clientSecret, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       []string{scopeParam},
		Endpoint:     defaultEndpoint,
	}
}

// Refresh exchanges the stored refresh token for a fresh access token and
// updates the token in place.
func Refresh(ctx context.Context, conf *oauth2.Config, token *Token) error {
	if token.RefreshToken == "" {
		return fmt.Errorf("no refresh token available, run auth first")
	}

	src := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: token.RefreshToken})
	fresh, err := src.Token()
	if err != nil {
		return fmt.Errorf("failed to refresh access token: %w", err)
	}

	token.Update(fresh)
	return nil
}
