package worker

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	types "github.com/yungbote/lexigraph-backend/internal/domain"
	"github.com/yungbote/lexigraph-backend/internal/engine"
	"github.com/yungbote/lexigraph-backend/internal/pkg/logger"
)

type fakeProcessor struct {
	calls int64
	fn    func(obs *types.RawObservation) (*engine.Outcome, error)
}

func (f *fakeProcessor) Process(_ context.Context, obs *types.RawObservation) (*engine.Outcome, error) {
	atomic.AddInt64(&f.calls, 1)
	return f.fn(obs)
}

func poolLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

func feed(observations []*types.RawObservation) <-chan *types.RawObservation {
	ch := make(chan *types.RawObservation, len(observations))
	for _, obs := range observations {
		ch <- obs
	}
	close(ch)
	return ch
}

func TestPoolCountsOutcomes(t *testing.T) {
	proc := &fakeProcessor{fn: func(obs *types.RawObservation) (*engine.Outcome, error) {
		switch {
		case strings.HasPrefix(obs.SourceID, "skip"):
			return &engine.Outcome{Skipped: true}, nil
		case strings.HasPrefix(obs.SourceID, "discard"):
			return &engine.Outcome{Discarded: true}, nil
		case strings.HasPrefix(obs.SourceID, "fail"):
			return nil, errors.New("store down")
		default:
			return &engine.Outcome{}, nil
		}
	}}
	pool := NewPool(proc, poolLogger(t), 4)

	stats, err := pool.Run(context.Background(), feed([]*types.RawObservation{
		{SourceID: "ok:1"},
		{SourceID: "ok:2"},
		{SourceID: "skip:1"},
		{SourceID: "discard:1"},
		{SourceID: "fail:1"},
	}))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Processed != 2 || stats.Skipped != 1 || stats.Discarded != 1 || stats.Failed != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if got := atomic.LoadInt64(&proc.calls); got != 5 {
		t.Fatalf("processor called %d times, want 5", got)
	}
}

func TestPoolRecoversFromPanic(t *testing.T) {
	proc := &fakeProcessor{fn: func(obs *types.RawObservation) (*engine.Outcome, error) {
		if obs.SourceID == "boom" {
			panic("unexpected state")
		}
		return &engine.Outcome{}, nil
	}}
	pool := NewPool(proc, poolLogger(t), 2)

	stats, err := pool.Run(context.Background(), feed([]*types.RawObservation{
		{SourceID: "boom"},
		{SourceID: "ok:1"},
	}))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Failed != 1 || stats.Processed != 1 {
		t.Fatalf("panic not isolated: %+v", stats)
	}
}

func TestPoolStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	proc := &fakeProcessor{fn: func(*types.RawObservation) (*engine.Outcome, error) {
		return &engine.Outcome{}, nil
	}}
	pool := NewPool(proc, poolLogger(t), 2)

	// Open channel: only the canceled context can end the run.
	ch := make(chan *types.RawObservation)
	_, err := pool.Run(ctx, ch)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
