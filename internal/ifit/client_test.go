package ifit

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTCX = `<?xml version="1.0" encoding="UTF-8"?>
<TrainingCenterDatabase>
  <Activities>
    <Activity Sport="Running">
      <Id>2020-06-01T06:36:58.517Z</Id>
      <Lap><TotalTimeSeconds>2613</TotalTimeSeconds></Lap>
    </Activity>
  </Activities>
</TrainingCenterDatabase>`

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	host, err := url.Parse(srv.URL)
	require.NoError(t, err)

	future := time.Now().Add(24 * time.Hour).Unix()
	cookiesFile := writeCookiesFile(t, fmt.Sprintf("%s\tFALSE\t/\tFALSE\t%d\tsession\tabc123\n",
		host.Hostname(), future))

	client, err := NewClient(cookiesFile, WithBaseURL(srv.URL), WithRateLimit(0))
	require.NoError(t, err)
	return client
}

func TestFetchWorkoutIDs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/me/workouts", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("session")
		require.NoError(t, err, "session cookie should be sent")
		assert.Equal(t, "abc123", cookie.Value)

		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprint(w, `<a href="/workout/user1/aaa111">one</a>
<a href="/workout/user1/bbb222">two</a>
<a href="/workout/user1/aaa111">one again</a>`)
		case "2":
			fmt.Fprint(w, `<a href="/workout/user1/ccc333">three</a>`)
		default:
			fmt.Fprint(w, "<html>no more workouts</html>")
		}
	})

	client := testClient(t, mux)
	ids, err := client.FetchWorkoutIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"aaa111", "bbb222", "ccc333"}, ids)
}

func TestFetchWorkoutIDsNoneFound(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>please log in</html>")
	}))

	_, err := client.FetchWorkoutIDs(context.Background())
	assert.ErrorContains(t, err, "cookies have expired")
}

func TestDownloadTCX(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/workout/export/tcx/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/workout/export/tcx/aaa111", r.URL.Path)
		fmt.Fprint(w, testTCX)
	})

	client := testClient(t, mux)
	path := filepath.Join(t.TempDir(), "aaa111")
	require.NoError(t, client.DownloadTCX(context.Background(), "aaa111", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, testTCX, string(data))
}

func TestDownloadTCXRejectsLoginPage(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>session expired, please log in</html>")
	}))

	path := filepath.Join(t.TempDir(), "aaa111")
	err := client.DownloadTCX(context.Background(), "aaa111", path)
	assert.ErrorContains(t, err, "not a complete TCX document")
	assert.NoFileExists(t, path)
}

func TestEnsureDownloadedUsesValidCache(t *testing.T) {
	var hits atomic.Int64
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, testTCX)
	}))

	dir := t.TempDir()

	// first call downloads
	path, downloaded, err := client.EnsureDownloaded(context.Background(), "aaa111", dir)
	require.NoError(t, err)
	assert.True(t, downloaded)
	assert.Equal(t, filepath.Join(dir, "aaa111"), path)
	assert.Equal(t, int64(1), hits.Load())

	// second call hits the cache
	_, downloaded, err = client.EnsureDownloaded(context.Background(), "aaa111", dir)
	require.NoError(t, err)
	assert.False(t, downloaded)
	assert.Equal(t, int64(1), hits.Load())

	// a corrupt cache entry is re-downloaded
	require.NoError(t, os.WriteFile(path, []byte("<html>half a page"), 0644))
	_, downloaded, err = client.EnsureDownloaded(context.Background(), "aaa111", dir)
	require.NoError(t, err)
	assert.True(t, downloaded)
	assert.Equal(t, int64(2), hits.Load())
}

func TestValidTCX(t *testing.T) {
	assert.True(t, ValidTCX([]byte(testTCX)))
	assert.False(t, ValidTCX([]byte("<html>login</html>")))
	assert.False(t, ValidTCX([]byte(`<?xml version="1.0"?><TrainingCenterDatabase>truncated`)))
}
