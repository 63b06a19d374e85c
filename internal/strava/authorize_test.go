package strava

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// startAuthFlow runs the callback server on an ephemeral port with a fake
// token endpoint, returning the callback URL to hit and a channel with the
// flow's outcome.
func startAuthFlow(t *testing.T) (string, chan *oauth2.Token, chan error) {
	t.Helper()

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "good-code", r.Form.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token": "access", "refresh_token": "refresh", "expires_in": 21600}`)
	}))
	t.Cleanup(tokenSrv.Close)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	conf := &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  fmt.Sprintf("http://%s/authorised", ln.Addr()),
		Scopes:       []string{scopeParam},
		Endpoint: oauth2.Endpoint{
			AuthURL:  tokenSrv.URL + "/authorize",
			TokenURL: tokenSrv.URL + "/token",
		},
	}

	tokens := make(chan *oauth2.Token, 1)
	errs := make(chan error, 1)
	go func() {
		token, err := authorize(context.Background(), conf, ln)
		tokens <- token
		errs <- err
	}()

	return conf.RedirectURL, tokens, errs
}

func TestAuthorize(t *testing.T) {
	callbackURL, tokens, errs := startAuthFlow(t)

	query := url.Values{
		"code":  {"good-code"},
		"scope": {"read,activity:read,activity:write"},
	}
	resp, err := http.Get(callbackURL + "?" + query.Encode())
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, <-errs)
	token := <-tokens
	require.NotNil(t, token)
	assert.Equal(t, "access", token.AccessToken)
	assert.Equal(t, "refresh", token.RefreshToken)
}

func TestAuthorizeMissingScope(t *testing.T) {
	callbackURL, tokens, errs := startAuthFlow(t)

	query := url.Values{
		"code":  {"good-code"},
		"scope": {"read,activity:read"},
	}
	resp, err := http.Get(callbackURL + "?" + query.Encode())
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.ErrorContains(t, <-errs, "activity:write")
	assert.Nil(t, <-tokens)
}

func TestAuthorizeErrorCallback(t *testing.T) {
	callbackURL, tokens, errs := startAuthFlow(t)

	resp, err := http.Get(callbackURL + "?error=access_denied")
	require.NoError(t, err)
	resp.Body.Close()

	assert.ErrorContains(t, <-errs, "access_denied")
	assert.Nil(t, <-tokens)
}
