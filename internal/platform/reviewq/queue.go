package reviewq

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	types "github.com/yungbote/lexigraph-backend/internal/domain"
	"github.com/yungbote/lexigraph-backend/internal/pkg/logger"
)

// Queue delivers review items to the human-review consumer. Emission is
// best-effort and asynchronous: a queue failure is logged by the caller and
// never fails a pipeline run.
type Queue interface {
	Emit(ctx context.Context, item *types.ReviewItem) error
}

type redisQueue struct {
	log *logger.Logger
	rdb *goredis.Client
	key string
}

// NewRedisQueue builds the queue from REDIS_ADDR / REVIEW_QUEUE_KEY.
func NewRedisQueue(log *logger.Logger) (Queue, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	key := strings.TrimSpace(os.Getenv("REVIEW_QUEUE_KEY"))
	if key == "" {
		key = "lexigraph:review"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    strings.TrimSpace(os.Getenv("REDIS_PASSWORD")),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisQueue{
		log: log.With("service", "RedisReviewQueue"),
		rdb: rdb,
		key: key,
	}, nil
}

func (q *redisQueue) Emit(ctx context.Context, item *types.ReviewItem) error {
	if q == nil || q.rdb == nil {
		return fmt.Errorf("redis review queue not initialized")
	}
	if item == nil {
		return nil
	}
	raw, err := json.Marshal(item)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return q.rdb.LPush(ctx, q.key, raw).Err()
}

type noopQueue struct{}

// NewNoopQueue is the fallback when redis is not configured; items still
// land in the review_items table.
func NewNoopQueue() Queue { return noopQueue{} }

func (noopQueue) Emit(context.Context, *types.ReviewItem) error { return nil }
