//go:build integration

package integration

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Sternrassler/artwork-table/internal/testutil"
	"github.com/Sternrassler/artwork-table/pkg/client"
	"github.com/Sternrassler/artwork-table/pkg/pagination"
	"github.com/Sternrassler/artwork-table/pkg/ratelimit"
	"github.com/Sternrassler/artwork-table/pkg/selection"
	"github.com/Sternrassler/artwork-table/pkg/view"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

// testTransport redirects requests for the public API to the mock server.
type testTransport struct {
	mockServer *testutil.MockArtic
}

func (t *testTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	mockURL, err := url.Parse(t.mockServer.URL())
	if err != nil {
		return nil, err
	}
	req.URL.Scheme = mockURL.Scheme
	req.URL.Host = mockURL.Host
	req.URL.Path = "/artworks"
	return http.DefaultTransport.RoundTrip(req)
}

func quietLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

// newClient creates a client for the default base URL, routed to mock.
func newClient(t *testing.T, mock *testutil.MockArtic, tracker *ratelimit.Tracker, retries int) *client.Client {
	t.Helper()

	cfg := client.DefaultConfig("TestApp/1.0.0 (integration@test.com)")
	cfg.RateLimiter = tracker
	cfg.MaxRetries = retries
	cfg.InitialBackoff = 10 * time.Millisecond

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	c.SetHTTPClient(&http.Client{
		Transport: &testTransport{mockServer: mock},
		Timeout:   30 * time.Second,
	})
	return c
}

func newTable(c *client.Client) *view.Table {
	ranges := pagination.NewRangeFetcher(c, pagination.DefaultConfig())
	return view.NewTable(view.DefaultConfig(), ranges, quietLogger())
}

// TestFullSelectionFlow covers paging, cross-page selection and top-N with
// the request budget kept in Redis.
func TestFullSelectionFlow(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockArtic(200)
	defer mock.Close()

	tracker := ratelimit.NewTracker(ratelimit.NewRedisStore(redisClient), 60, time.Minute, quietLogger())
	c := newClient(t, mock, tracker, 0)
	table := newTable(c)
	ctx := context.Background()

	if _, err := table.LoadPage(ctx, c, 1); err != nil {
		t.Fatalf("Page 1 failed: %v", err)
	}
	table.Toggle(1)
	table.Toggle(3)

	if _, err := table.LoadPage(ctx, c, 4); err != nil {
		t.Fatalf("Page 4 failed: %v", err)
	}
	table.Toggle(35)

	if got := table.Store().IDs(); len(got) != 3 {
		t.Fatalf("Selected = %v, want 3 ids", got)
	}

	table.OpenDialog()
	selected, err := table.SubmitTopN(ctx, 25)
	if err != nil {
		t.Fatalf("Top 25 failed: %v", err)
	}
	if selected != 25 {
		t.Errorf("Selected = %d, want 25", selected)
	}

	// 1..25 plus 35 from page 4.
	if table.Store().Len() != 26 {
		t.Errorf("Selection size = %d, want 26", table.Store().Len())
	}
	if !table.Store().IsSelected(35) {
		t.Error("Selection from page 4 was lost")
	}

	state, err := tracker.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if state.Used != mock.GetRequestCount() {
		t.Errorf("Counted requests = %d, served = %d", state.Used, mock.GetRequestCount())
	}
}

// TestBulkFailureLeavesSelection verifies all-or-nothing bulk selection.
func TestBulkFailureLeavesSelection(t *testing.T) {
	mock := testutil.NewMockArtic(200)
	defer mock.Close()
	mock.FailPage(2)

	c := newClient(t, mock, nil, 0)
	table := newTable(c)

	table.OpenDialog()
	_, err := table.SubmitTopN(context.Background(), 25)

	var bulkErr *selection.BulkFetchError
	if !errors.As(err, &bulkErr) {
		t.Fatalf("Expected BulkFetchError, got %v", err)
	}
	if bulkErr.Page != 2 {
		t.Errorf("Failed page = %d, want 2", bulkErr.Page)
	}

	var fetchErr *client.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected FetchError inside, got %v", err)
	}
	if fetchErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500", fetchErr.StatusCode)
	}

	if table.Store().Len() != 0 {
		t.Errorf("Selection size = %d, want 0", table.Store().Len())
	}
	if state, _ := table.Dialog(); state != view.DialogOpen {
		t.Errorf("Dialog = %s, want open", state)
	}
}

// TestRateLimitBlock verifies requests wait for the budget and give up with
// the context.
func TestRateLimitBlock(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockArtic(200)
	defer mock.Close()

	store := ratelimit.NewRedisStore(redisClient)
	tracker := ratelimit.NewTracker(store, 3, time.Hour, quietLogger())

	// Spend the budget from "another process".
	for i := 0; i < 3; i++ {
		if _, err := store.Incr(context.Background(), time.Now().Truncate(time.Hour), time.Hour); err != nil {
			t.Fatalf("Incr failed: %v", err)
		}
	}

	c := newClient(t, mock, tracker, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := c.FetchPage(ctx, 1, 10)
	if !errors.Is(err, client.ErrRateLimited) {
		t.Errorf("Expected ErrRateLimited, got %v", err)
	}
	if mock.GetRequestCount() != 0 {
		t.Errorf("Requests reached the API: %d", mock.GetRequestCount())
	}
}

// TestRetry5xxErrors verifies opt-in retries for server errors.
func TestRetry5xxErrors(t *testing.T) {
	mock := testutil.NewMockArtic(200)
	defer mock.Close()
	mock.FailPage(1)

	c := newClient(t, mock, nil, 2)

	_, err := c.FetchPage(context.Background(), 1, 10)
	var fetchErr *client.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected FetchError, got %v", err)
	}
	if fetchErr.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", fetchErr.Attempts)
	}
	if mock.GetRequestCount() != 3 {
		t.Errorf("Requests = %d, want 3", mock.GetRequestCount())
	}
}

// TestNoRetry4xxErrors verifies client errors are never retried.
func TestNoRetry4xxErrors(t *testing.T) {
	mock := testutil.NewMockArtic(200)
	defer mock.Close()
	mock.SetPageResponse(1, testutil.NewNotFoundResponse())

	c := newClient(t, mock, nil, 2)

	if _, err := c.FetchPage(context.Background(), 1, 10); err == nil {
		t.Fatal("Expected error, got nil")
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("Requests = %d, want 1", mock.GetRequestCount())
	}
}
