// Package strava is a minimal Strava v3 API client covering what the sync
// needs: the authenticated athlete, the activity list, TCX uploads and gear
// assignment, plus the OAuth2 token handling around it.
package strava

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	defaultBaseURL         = "https://www.strava.com/api/v3"
	defaultPollInterval    = time.Second
	defaultMaxPollAttempts = 30
	activitiesPerPage      = 100
)

// Athlete is the owner of the access token.
type Athlete struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Activity is an activity as returned by the Strava API. ElapsedTime is in
// seconds.
type Activity struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	StartDate   time.Time `json:"start_date"`
	ElapsedTime int       `json:"elapsed_time"`
	SportType   string    `json:"sport_type"`
}

// UploadRequest describes a workout file to push to Strava.
type UploadRequest struct {
	Path         string
	Name         string
	Description  string
	ActivityType string
	DataType     string
}

type uploadStatus struct {
	ID         int64  `json:"id"`
	Status     string `json:"status"`
	Error      string `json:"error"`
	ActivityID int64  `json:"activity_id"`
}

// Client calls the Strava v3 API with an OAuth2 access token.
type Client struct {
	httpClient      *http.Client
	baseURL         string
	pollInterval    time.Duration
	maxPollAttempts int
}

// Option adjusts client construction.
type Option func(*Client)

// WithBaseURL points the client at a different API base, used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithPollInterval sets the delay between upload status polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// WithMaxPollAttempts caps how many times an upload is polled before giving
// up.
func WithMaxPollAttempts(n int) Option {
	return func(c *Client) { c.maxPollAttempts = n }
}

// NewClient creates a client that authenticates every request with the
// given access token.
func NewClient(ctx context.Context, accessToken string, opts ...Option) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	c := &Client{
		httpClient:      oauth2.NewClient(ctx, src),
		baseURL:         defaultBaseURL,
		pollInterval:    defaultPollInterval,
		maxPollAttempts: defaultMaxPollAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetAthlete returns the athlete the access token belongs to.
func (c *Client) GetAthlete(ctx context.Context) (*Athlete, error) {
	var athlete Athlete
	if err := c.getJSON(ctx, "/athlete", &athlete); err != nil {
		return nil, fmt.Errorf("failed to get athlete: %w", err)
	}
	return &athlete, nil
}

// ListActivities returns the athlete's activities starting after the given
// time, sorted by start date ascending.
func (c *Client) ListActivities(ctx context.Context, after time.Time) ([]Activity, error) {
	var activities []Activity
	for page := 1; ; page++ {
		path := fmt.Sprintf("/athlete/activities?after=%d&page=%d&per_page=%d",
			after.Unix(), page, activitiesPerPage)

		var batch []Activity
		if err := c.getJSON(ctx, path, &batch); err != nil {
			return nil, fmt.Errorf("failed to list activities: %w", err)
		}
		activities = append(activities, batch...)
		if len(batch) < activitiesPerPage {
			break
		}
	}

	sort.Slice(activities, func(i, j int) bool {
		return activities[i].StartDate.Before(activities[j].StartDate)
	})
	return activities, nil
}

// Upload pushes a workout file to Strava and polls the upload until Strava
// has processed it into an activity. It returns the new activity's ID.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (int64, error) {
	status, err := c.startUpload(ctx, req)
	if err != nil {
		return 0, err
	}
	log.Debug().Int64("upload_id", status.ID).Str("status", status.Status).Msg("upload accepted")

	for attempt := 0; attempt < c.maxPollAttempts; attempt++ {
		if status.Error != "" {
			return 0, fmt.Errorf("upload %d failed: %s", status.ID, status.Error)
		}
		if status.ActivityID != 0 {
			return status.ActivityID, nil
		}

		select {
		case <-time.After(c.pollInterval):
		case <-ctx.Done():
			return 0, ctx.Err()
		}

		status, err = c.getUpload(ctx, status.ID)
		if err != nil {
			return 0, err
		}
		log.Debug().Int64("upload_id", status.ID).Str("status", status.Status).Msg("upload status")
	}

	return 0, fmt.Errorf("upload %d still processing after %d polls", status.ID, c.maxPollAttempts)
}

// UpdateActivityGear assigns gear to an existing activity.
func (c *Client) UpdateActivityGear(ctx context.Context, activityID int64, gearID string) error {
	body, err := json.Marshal(map[string]string{"gear_id": gearID})
	if err != nil {
		return fmt.Errorf("failed to marshal gear update: %w", err)
	}

	path := fmt.Sprintf("/activities/%d", activityID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create gear update request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("failed to update activity %d: %w", activityID, err)
	}
	resp.Body.Close()
	return nil
}

func (c *Client) startUpload(ctx context.Context, up UploadRequest) (*uploadStatus, error) {
	f, err := os.Open(up.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workout file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(up.Path))
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("failed to read workout file: %w", err)
	}
	fields := map[string]string{
		"name":          up.Name,
		"description":   up.Description,
		"activity_type": up.ActivityType,
		"data_type":     up.DataType,
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to write upload field %s: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/uploads", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", up.Path, err)
	}
	defer resp.Body.Close()

	var status uploadStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	return &status, nil
}

func (c *Client) getUpload(ctx context.Context, uploadID int64) (*uploadStatus, error) {
	var status uploadStatus
	path := fmt.Sprintf("/uploads/%d", uploadID)
	if err := c.getJSON(ctx, path, &status); err != nil {
		return nil, fmt.Errorf("failed to get upload %d: %w", uploadID, err)
	}
	return &status, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

// do sends the request and turns non-2xx responses into errors carrying the
// response body.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("%s %s returned %s: %s", req.Method, req.URL.Path, resp.Status, body)
	}
	return resp, nil
}
