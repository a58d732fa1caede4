package monitor

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestStore connects to Redis with a per-test key prefix for isolation
func setupTestStore(t *testing.T, maxErrors, maxMetrics int) *Store {
	t.Helper()

	host := os.Getenv("REDIS_HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	prefix := fmt.Sprintf("test:p2p:monitor:%d", time.Now().UnixNano())
	store := NewStore(rdb, prefix, maxErrors, maxMetrics)

	t.Cleanup(func() {
		rdb.Del(context.Background(), store.errorKey(), store.metricsKey())
		rdb.Close()
	})
	return store
}

// TestErrorLogCapNewestFirst tests the capped list keeps the newest entries in order
func TestErrorLogCapNewestFirst(t *testing.T) {
	store := setupTestStore(t, 5, 10)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		err := store.AppendError(ctx, &ErrorLog{
			Level:     "error",
			Component: "p2p",
			Message:   fmt.Sprintf("failure %d", i),
		})
		if err != nil {
			t.Fatalf("append error %d: %v", i, err)
		}
	}

	logs, err := store.ListErrors(ctx, "", "", 0)
	if err != nil {
		t.Fatalf("list errors: %v", err)
	}
	if len(logs) != 5 {
		t.Fatalf("expected cap of 5 entries, got %d", len(logs))
	}
	if logs[0].Message != "failure 7" {
		t.Fatalf("expected newest first, got %q", logs[0].Message)
	}
	if logs[4].Message != "failure 3" {
		t.Fatalf("expected oldest retained entry failure 3, got %q", logs[4].Message)
	}
}

// TestErrorLogFilters tests component and level filtering
func TestErrorLogFilters(t *testing.T) {
	store := setupTestStore(t, 20, 10)
	ctx := context.Background()

	entries := []ErrorLog{
		{Level: "error", Component: "p2p", Message: "order failed"},
		{Level: "warn", Component: "p2p", Message: "inactive material"},
		{Level: "error", Component: "monitor", Message: "redis slow"},
	}
	for i := range entries {
		if err := store.AppendError(ctx, &entries[i]); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	logs, err := store.ListErrors(ctx, "p2p", "", 0)
	if err != nil {
		t.Fatalf("list by component: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 p2p entries, got %d", len(logs))
	}

	logs, err = store.ListErrors(ctx, "p2p", "warn", 0)
	if err != nil {
		t.Fatalf("list by level: %v", err)
	}
	if len(logs) != 1 || logs[0].Message != "inactive material" {
		t.Fatalf("unexpected filtered result: %+v", logs)
	}

	logs, _ = store.ListErrors(ctx, "", "", 1)
	if len(logs) != 1 {
		t.Fatalf("limit not applied, got %d entries", len(logs))
	}
}

// TestErrorLogClear tests clearing the log
func TestErrorLogClear(t *testing.T) {
	store := setupTestStore(t, 10, 10)
	ctx := context.Background()

	if err := store.AppendError(ctx, &ErrorLog{Level: "error", Component: "p2p", Message: "x"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.ClearErrors(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	logs, err := store.ListErrors(ctx, "", "", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 0 {
		t.Fatalf("expected empty after clear, got %d", len(logs))
	}
}

// TestMetricsCap tests the metrics ring behavior
func TestMetricsCap(t *testing.T) {
	store := setupTestStore(t, 10, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		snapshot := &MetricsSnapshot{
			Timestamp:  time.Now(),
			Goroutines: 10 + i,
		}
		if err := store.AppendMetrics(ctx, snapshot); err != nil {
			t.Fatalf("append metrics: %v", err)
		}
	}

	snapshots, err := store.ListMetrics(ctx, 0)
	if err != nil {
		t.Fatalf("list metrics: %v", err)
	}
	if len(snapshots) != 3 {
		t.Fatalf("expected cap of 3 snapshots, got %d", len(snapshots))
	}
	if snapshots[0].Goroutines != 14 {
		t.Fatalf("expected newest snapshot first, got goroutines=%d", snapshots[0].Goroutines)
	}
}

// TestCollectorSnapshot tests runtime sampling without Redis
func TestCollectorSnapshot(t *testing.T) {
	collector := NewCollector(nil, nil, time.Minute)

	s := collector.Snapshot()
	if s.Goroutines <= 0 {
		t.Fatalf("expected positive goroutine count, got %d", s.Goroutines)
	}
	if s.HeapAlloc == 0 {
		t.Fatalf("expected nonzero heap alloc")
	}
	if s.UptimeSec < 0 {
		t.Fatalf("uptime must not be negative")
	}
	if s.Timestamp.IsZero() {
		t.Fatalf("timestamp not set")
	}
}
