package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/yungbote/lexigraph-backend/internal/pkg/logger"
)

// Comparator is the injected semantic-similarity capability. The engine
// never trains or stores vectors; it only consumes pairwise scores in [0,1].
type Comparator interface {
	Compare(ctx context.Context, a, b string) (float64, error)
}

type httpComparator struct {
	log     *logger.Logger
	client  *http.Client
	baseURL string
}

// NewHTTPComparator talks to the external embedding service's compare
// endpoint (EMBEDDING_SERVICE_URL).
func NewHTTPComparator(log *logger.Logger) (Comparator, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(os.Getenv("EMBEDDING_SERVICE_URL")), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("missing EMBEDDING_SERVICE_URL")
	}
	return &httpComparator{
		log:     log.With("client", "EmbeddingComparator"),
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
	}, nil
}

func (c *httpComparator) Compare(ctx context.Context, a, b string) (float64, error) {
	payload, err := json.Marshal(map[string]string{"a": a, "b": b})
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/compare", bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("embedding compare: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("embedding compare: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Similarity float64 `json:"similarity"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("embedding compare: decode: %w", err)
	}
	if out.Similarity < 0 {
		out.Similarity = 0
	}
	if out.Similarity > 1 {
		out.Similarity = 1
	}
	return out.Similarity, nil
}

// Fixed returns a comparator with a constant score, used in tests and as a
// degraded fallback when no embedding service is configured.
func Fixed(score float64) Comparator {
	return fixedComparator{score: score}
}

type fixedComparator struct{ score float64 }

func (f fixedComparator) Compare(context.Context, string, string) (float64, error) {
	return f.score, nil
}

// Func adapts a plain function to the Comparator interface.
type Func func(ctx context.Context, a, b string) (float64, error)

func (f Func) Compare(ctx context.Context, a, b string) (float64, error) { return f(ctx, a, b) }
