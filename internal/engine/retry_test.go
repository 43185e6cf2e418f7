package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/yungbote/lexigraph-backend/internal/pkg/logger"
)

func retryLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"typed transient", &TransientStoreError{Op: "commit", Err: errors.New("x")}, true},
		{"typed fatal", &FatalStoreError{Op: "commit", Err: errors.New("connection refused")}, false},
		{"wrapped transient", fmt.Errorf("commit: %w", &TransientStoreError{Op: "tx", Err: errors.New("x")}), true},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"connection refused", errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), true},
		{"serialization conflict", errors.New("ERROR: could not serialize access due to concurrent update"), true},
		{"deadlock", errors.New("ERROR: deadlock detected"), true},
		{"constraint violation", errors.New("ERROR: duplicate key value violates unique constraint"), false},
	}
	for _, c := range cases {
		if got := IsTransient(c.err); got != c.want {
			t.Fatalf("%s: IsTransient = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestWithRetryRecoversFromTransient(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), retryLogger(t), "test", 3, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return &TransientStoreError{Op: "test", Err: errors.New("flaky")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("op called %d times, want 3", calls)
	}
}

func TestWithRetryFailsFastOnFatal(t *testing.T) {
	calls := 0
	fatal := &FatalStoreError{Op: "test", Err: errors.New("constraint")}
	err := withRetry(context.Background(), retryLogger(t), "test", 5, time.Millisecond, func(context.Context) error {
		calls++
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("fatal error not surfaced: %v", err)
	}
	if calls != 1 {
		t.Fatalf("fatal error retried %d times, want 1 call", calls)
	}
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), retryLogger(t), "test", 3, time.Millisecond, func(context.Context) error {
		calls++
		return &TransientStoreError{Op: "test", Err: errors.New("down")}
	})
	var transient *TransientStoreError
	if !errors.As(err, &transient) {
		t.Fatalf("last error not surfaced: %v", err)
	}
	if calls != 3 {
		t.Fatalf("op called %d times, want 3", calls)
	}
}

func TestWithRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := withRetry(ctx, retryLogger(t), "test", 3, time.Minute, func(context.Context) error {
		return &TransientStoreError{Op: "test", Err: errors.New("down")}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled context should stop the backoff wait: %v", err)
	}
}
