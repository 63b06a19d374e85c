package strava

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	"gopkg.in/yaml.v3"
)

// expirySkew is how close to expiry an access token may be before it is
// treated as expired, to avoid using a token that dies mid-request.
const expirySkew = time.Minute

// Token is the persisted OAuth2 state for the Strava app. It is written to
// the token file as YAML so it can be inspected and hand-edited if needed.
type Token struct {
	AccessToken  string `yaml:"access_token"`
	RefreshToken string `yaml:"refresh_token"`
	ExpiresAt    int64  `yaml:"expires_at"`
}

// LoadToken reads the token file. A missing file is not an error: it returns
// an empty token, which is how a first run before `auth` looks.
func LoadToken(path string) (*Token, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Token{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var t Token
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	return &t, nil
}

// Save writes the token to the token file.
func (t *Token) Save(path string) error {
	data, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Valid reports whether the access token exists and has not expired.
func (t *Token) Valid() bool {
	if t.AccessToken == "" || t.ExpiresAt == 0 {
		return false
	}
	return time.Now().Add(expirySkew).Unix() < t.ExpiresAt
}

// Update copies the fields of an oauth2 token exchange or refresh response.
// Strava rolls refresh tokens, so the refresh token is taken from the
// response too.
func (t *Token) Update(ot *oauth2.Token) {
	t.AccessToken = ot.AccessToken
	if ot.RefreshToken != "" {
		t.RefreshToken = ot.RefreshToken
	}
	t.ExpiresAt = ot.Expiry.Unix()
}
