package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	types "github.com/yungbote/lexigraph-backend/internal/domain"
	"github.com/yungbote/lexigraph-backend/internal/engine"
	"github.com/yungbote/lexigraph-backend/internal/pkg/logger"
)

// Processor is the engine surface the pool drives.
type Processor interface {
	Process(ctx context.Context, obs *types.RawObservation) (*engine.Outcome, error)
}

// Stats counts pipeline outcomes across one pool run.
type Stats struct {
	Processed int64
	Skipped   int64
	Discarded int64
	Failed    int64
}

// Pool drains an observation channel through a bounded set of workers. Per
// resolution-key ordering is the engine's job (its key lock); the pool only
// bounds concurrency and isolates panics.
type Pool struct {
	proc    Processor
	log     *logger.Logger
	workers int
}

func NewPool(proc Processor, log *logger.Logger, workers int) *Pool {
	if workers <= 0 {
		workers = 8
	}
	return &Pool{
		proc:    proc,
		log:     log.With("component", "worker_pool"),
		workers: workers,
	}
}

// Run consumes observations until the channel closes or the context ends.
// A failed observation is counted and logged, never fatal to the run; only
// context cancellation stops the pool early.
func (p *Pool) Run(ctx context.Context, observations <-chan *types.RawObservation) (Stats, error) {
	var stats Stats

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for {
		select {
		case <-gctx.Done():
			_ = g.Wait()
			return stats, gctx.Err()
		case obs, ok := <-observations:
			if !ok {
				err := g.Wait()
				p.log.Info("worker pool drained",
					"processed", atomic.LoadInt64(&stats.Processed),
					"skipped", atomic.LoadInt64(&stats.Skipped),
					"discarded", atomic.LoadInt64(&stats.Discarded),
					"failed", atomic.LoadInt64(&stats.Failed),
				)
				return stats, err
			}
			g.Go(func() error {
				p.runOne(gctx, obs, &stats)
				return nil
			})
		}
	}
}

func (p *Pool) runOne(ctx context.Context, obs *types.RawObservation, stats *Stats) {
	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&stats.Failed, 1)
			p.log.Error("worker panic recovered",
				"source_id", obs.SourceID,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
		}
	}()

	out, err := p.proc.Process(ctx, obs)
	switch {
	case err != nil:
		atomic.AddInt64(&stats.Failed, 1)
		p.log.Error("observation failed",
			"source_id", obs.SourceID,
			"error", err,
		)
	case out != nil && out.Skipped:
		atomic.AddInt64(&stats.Skipped, 1)
	case out != nil && out.Discarded:
		atomic.AddInt64(&stats.Discarded, 1)
	default:
		atomic.AddInt64(&stats.Processed, 1)
	}
}
