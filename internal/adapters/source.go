package adapters

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	types "github.com/yungbote/lexigraph-backend/internal/domain"
	"github.com/yungbote/lexigraph-backend/internal/pkg/logger"
)

// Source turns one upstream dataset into raw observations. Adapters only
// reshape records; resolution and validation happen downstream.
type Source interface {
	Name() string
	// Stream decodes the input and sends observations until EOF or context
	// cancellation. The channel is closed by the caller, not the adapter.
	Stream(ctx context.Context, r io.Reader, out chan<- *types.RawObservation) error
}

// maxLineBytes accommodates dictionary entries with long etymology sections
// and quotation lists.
const maxLineBytes = 1 << 20

// streamJSONL drives a line-delimited JSON input through a per-record
// decoder. Undecodable lines are logged and skipped so one bad record never
// aborts an import.
func streamJSONL(ctx context.Context, log *logger.Logger, sourceName string, r io.Reader, out chan<- *types.RawObservation, decode func(line []byte) (*types.RawObservation, error)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		obs, err := decode([]byte(line))
		if err != nil {
			log.Warn("skipping undecodable record",
				"source", sourceName,
				"line", lineNo,
				"error", err,
			)
			continue
		}
		if obs == nil {
			continue
		}
		if obs.RawPayload == nil {
			obs.RawPayload = json.RawMessage(line)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- obs:
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%s: scan: %w", sourceName, err)
	}
	return nil
}

// sourceID builds the source-scoped idempotence key.
func sourceID(sourceName, recordID string) string {
	return sourceName + ":" + recordID
}
