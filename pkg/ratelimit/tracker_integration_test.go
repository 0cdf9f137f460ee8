//go:build integration

package ratelimit

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestTracker_Integration_SharedBudget(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	fixed := time.Now().Truncate(time.Hour).Add(time.Hour)

	// Two trackers over one Redis behave like two table processes.
	first := NewTracker(NewRedisStore(redisClient), 100, time.Hour, logger)
	second := NewTracker(NewRedisStore(redisClient), 100, time.Hour, logger)
	first.now = func() time.Time { return fixed }
	second.now = func() time.Time { return fixed }
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, _, err := first.ShouldAllowRequest(ctx); err != nil {
			t.Fatalf("first tracker: %v", err)
		}
		if _, _, err := second.ShouldAllowRequest(ctx); err != nil {
			t.Fatalf("second tracker: %v", err)
		}
	}

	state, err := first.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Used != 20 {
		t.Errorf("Used = %d, want 20", state.Used)
	}
}

func TestTracker_Integration_ConcurrentIncrements(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	store := NewRedisStore(redisClient)
	ctx := context.Background()
	start := time.Now().Truncate(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Incr(ctx, start, 2*time.Minute); err != nil {
				t.Errorf("Incr() error = %v", err)
			}
		}()
	}
	wg.Wait()

	n, err := store.Count(ctx, start)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 50 {
		t.Errorf("Count() = %d, want 50", n)
	}
}

func TestTracker_Integration_BlocksAcrossProcesses(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	fixed := time.Now().Truncate(time.Hour).Add(time.Hour)
	store := NewRedisStore(redisClient)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		store.Incr(ctx, fixed, time.Hour)
	}

	tracker := NewTracker(NewRedisStore(redisClient), 5, time.Hour, logger)
	tracker.now = func() time.Time { return fixed }

	allowed, state, err := tracker.ShouldAllowRequest(ctx)
	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if allowed {
		t.Error("request over the shared budget should be blocked")
	}
	if state.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", state.Remaining())
	}
}
