package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// SchemaViolationError is a hard reject: the entity or edge breaks a
// structural rule and must not be committed.
type SchemaViolationError struct {
	Kind  string // "entity" or "edge"
	ID    uuid.UUID
	Field string
	Rule  string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("schema violation on %s %s: field %q: %s", e.Kind, e.ID, e.Field, e.Rule)
}

// CycleDetectedError is a hard reject: committing the proposed edges would
// close a cycle over ancestral relations.
type CycleDetectedError struct {
	Path []uuid.UUID
}

func (e *CycleDetectedError) Error() string {
	parts := make([]string, len(e.Path))
	for i, id := range e.Path {
		parts[i] = id.String()
	}
	return "ancestral cycle detected: " + strings.Join(parts, " -> ")
}

// ErrNotConverged reports that confidence propagation hit its iteration cap
// without settling, which usually means the component hides a cycle the
// proposed edges would close.
var ErrNotConverged = errors.New("confidence propagation did not converge")
