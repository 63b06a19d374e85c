package strava

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// authTimeout is how long to wait for the user to visit the authorization
// URL before giving up.
const authTimeout = 60 * time.Second

// Authorize runs the browser authorization flow: it prints the authorization
// URL, serves the OAuth redirect on the given port, exchanges the returned
// code for a token and checks the granted scope. It blocks until the
// callback arrives or the timeout elapses.
func Authorize(ctx context.Context, conf *oauth2.Config, port int) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on auth port %d: %w", port, err)
	}
	return authorize(ctx, conf, ln)
}

func authorize(ctx context.Context, conf *oauth2.Config, ln net.Listener) (*oauth2.Token, error) {
	redirect, err := url.Parse(conf.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URI %q: %w", conf.RedirectURL, err)
	}

	type result struct {
		token *oauth2.Token
		err   error
	}
	results := make(chan result, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(redirect.Path, func(w http.ResponseWriter, r *http.Request) {
		token, err := handleCallback(r.Context(), conf, r.URL.Query())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
		} else {
			fmt.Fprintln(w, "OK")
		}
		results <- result{token, err}
	})

	srv := &http.Server{Handler: mux}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			results <- result{nil, fmt.Errorf("auth callback server failed: %w", err)}
		}
	}()
	defer srv.Close()

	log.Info().Str("url", conf.AuthCodeURL("")).Msg("visit the authorization url to grant access")

	select {
	case res := <-results:
		return res.token, res.err
	case <-time.After(authTimeout):
		return nil, fmt.Errorf("authorization url not visited after %s", authTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func handleCallback(ctx context.Context, conf *oauth2.Config, query url.Values) (*oauth2.Token, error) {
	log.Debug().Str("query", query.Encode()).Msg("authorization callback")

	if errParam := query.Get("error"); errParam != "" {
		return nil, fmt.Errorf("received error callback from Strava: %s", errParam)
	}

	granted := query.Get("scope")
	for _, scope := range requiredScopes {
		if !strings.Contains(granted, scope) {
			return nil, fmt.Errorf("missing %q in granted scope %q", scope, granted)
		}
	}

	token, err := conf.Exchange(ctx, query.Get("code"))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code for token: %w", err)
	}
	return token, nil
}
