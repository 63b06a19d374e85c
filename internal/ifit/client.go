// Package ifit downloads workout TCX exports from ifit.com using a session
// cookie jar supplied by the user.
package ifit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultBaseURL   = "https://www.ifit.com"
	workoutsPath     = "/me/workouts"
	exportTCXPath    = "/workout/export/tcx/"
	maxWorkoutPages  = 10
	defaultRateLimit = 2 * time.Second
)

// workoutLinkRE extracts workout IDs from the workout list pages.
var workoutLinkRE = regexp.MustCompile(`href="/workout/\w+/(\w+)"`)

// Client fetches workout listings and TCX exports from iFit. It is
// authenticated purely by the session cookies loaded at construction.
type Client struct {
	httpClient *http.Client
	baseURL    string
	rateLimit  time.Duration
}

// Option adjusts client construction.
type Option func(*Client)

// WithBaseURL points the client at a different host, used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithRateLimit sets the pause before each export download.
func WithRateLimit(d time.Duration) Option {
	return func(c *Client) { c.rateLimit = d }
}

// NewClient creates a client authenticated with the session cookies in a
// Mozilla format cookies.txt file.
func NewClient(cookiesFile string, opts ...Option) (*Client, error) {
	cookies, err := ParseCookiesFile(cookiesFile)
	if err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	c := &Client{
		httpClient: &http.Client{Jar: jar, Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		rateLimit:  defaultRateLimit,
	}
	for _, opt := range opts {
		opt(c)
	}

	base, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", c.baseURL, err)
	}
	jar.SetCookies(base, cookies)

	return c, nil
}

// FetchWorkoutIDs pages through the workout list and returns the workout
// IDs found. Finding none at all usually means the session cookies have
// expired.
func (c *Client) FetchWorkoutIDs(ctx context.Context) ([]string, error) {
	var ids []string
	seen := make(map[string]bool)

	for page := 1; page < maxWorkoutPages; page++ {
		pageURL := fmt.Sprintf("%s%s?page=%d", c.baseURL, workoutsPath, page)
		body, err := c.get(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch workout page %d: %w", page, err)
		}

		matches := workoutLinkRE.FindAllSubmatch(body, -1)
		for _, m := range matches {
			id := string(m[1])
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	log.Debug().Int("count", len(ids)).Msg("found workouts")
	if len(ids) == 0 {
		return nil, fmt.Errorf("found 0 workouts, perhaps your cookies have expired?")
	}
	return ids, nil
}

// EnsureDownloaded makes sure the workout's TCX export exists in dir,
// downloading it unless a valid cached copy is already there. It returns
// the cached file path and whether a download happened.
func (c *Client) EnsureDownloaded(ctx context.Context, workoutID, dir string) (string, bool, error) {
	path := filepath.Join(dir, workoutID)
	if validTCXFile(path) {
		log.Debug().Str("workout", workoutID).Str("path", path).Msg("already downloaded and looks ok")
		return path, false, nil
	}

	if err := c.DownloadTCX(ctx, workoutID, path); err != nil {
		return "", false, err
	}
	return path, true, nil
}

// DownloadTCX downloads one workout's TCX export to the given path.
func (c *Client) DownloadTCX(ctx context.Context, workoutID, path string) error {
	// Be gentle with the export endpoint.
	select {
	case <-time.After(c.rateLimit):
	case <-ctx.Done():
		return ctx.Err()
	}

	body, err := c.get(ctx, c.baseURL+exportTCXPath+workoutID)
	if err != nil {
		return fmt.Errorf("failed to download workout %s: %w", workoutID, err)
	}

	if !ValidTCX(body) {
		return fmt.Errorf("workout %s export is not a complete TCX document", workoutID)
	}

	log.Info().Str("workout", workoutID).Str("path", path).Msg("saving workout")
	if err := os.WriteFile(path, body, 0644); err != nil {
		return fmt.Errorf("failed to write workout file: %w", err)
	}
	return nil
}

// ValidTCX reports whether data looks like a complete TCX document. iFit
// serves an HTML login page instead of an error when the session has
// expired, so the shape of the body is the only signal.
func ValidTCX(data []byte) bool {
	if !bytes.HasPrefix(data, []byte("<?xml ")) {
		return false
	}
	return bytes.Contains(data, []byte("<TrainingCenterDatabase")) &&
		bytes.Contains(data, []byte("</TrainingCenterDatabase>"))
}

func validTCXFile(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return ValidTCX(data)
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s returned %s", u, resp.Status)
	}
	return io.ReadAll(resp.Body)
}
