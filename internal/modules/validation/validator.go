package validation

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	types "github.com/yungbote/lexigraph-backend/internal/domain"
	"github.com/yungbote/lexigraph-backend/internal/pkg/logger"
)

const (
	// anomalyZScoreMax flags statistical outliers within a language bucket.
	anomalyZScoreMax = 3.0
	// anomalySampleMin is the smallest bucket worth computing statistics on.
	anomalySampleMin = 10
	// anomalyScanLimit bounds the language bucket fetch.
	anomalyScanLimit = 500
)

// Flag is a soft finding: the record stays committable but is marked
// needs_review with this reason attached.
type Flag struct {
	Reason string
	Detail string
}

// Validator runs the consistency checks that gate a commit. Schema and
// cycle violations reject; temporal conflicts and statistical anomalies
// only flag.
type Validator struct {
	reader GraphReader
	log    *logger.Logger
}

func NewValidator(reader GraphReader, log *logger.Logger) *Validator {
	return &Validator{reader: reader, log: log.With("component", "consistency_validator")}
}

// CheckEntitySchema enforces the structural rules on one entity. Any
// returned error is a *SchemaViolationError and a hard reject.
func (v *Validator) CheckEntitySchema(e *types.LexicalEntity) error {
	if e == nil {
		return &SchemaViolationError{Kind: "entity", Rule: "nil entity"}
	}
	if e.FormOrthographic == "" {
		return v.entityViolation(e, "form_orthographic", "required")
	}
	if e.FormNormalized == "" {
		return v.entityViolation(e, "form_normalized", "required")
	}
	if e.LanguageCode == "" {
		return v.entityViolation(e, "language_code", "required")
	}
	if e.ConfidenceOverall < 0 || e.ConfidenceOverall > 1 {
		return v.entityViolation(e, "confidence_overall", "must be within [0,1]")
	}
	if e.DateConfidence < 0 || e.DateConfidence > 1 {
		return v.entityViolation(e, "date_confidence", "must be within [0,1]")
	}
	if e.DateStart != nil && (*e.DateStart < types.MinYear || *e.DateStart > types.MaxYear) {
		return v.entityViolation(e, "date_start", "outside the historical window")
	}
	if e.DateEnd != nil && (*e.DateEnd < types.MinYear || *e.DateEnd > types.MaxYear) {
		return v.entityViolation(e, "date_end", "outside the historical window")
	}
	if e.DateStart != nil && e.DateEnd != nil && *e.DateStart > *e.DateEnd {
		return v.entityViolation(e, "date_start", "must not exceed date_end")
	}
	if e.Reconstruction {
		if e.DateSource != types.DateReconstructed {
			return v.entityViolation(e, "date_source", "reconstruction requires RECONSTRUCTED date source")
		}
		if e.DatedAttestationCount() > 0 {
			return v.entityViolation(e, "attestations", "reconstruction must not carry dated attestations")
		}
	}
	for _, a := range e.Attestations {
		if a != nil && a.TextDate != nil && (*a.TextDate < types.MinYear || *a.TextDate > types.MaxYear) {
			return v.entityViolation(e, "attestations", "attestation date outside the historical window")
		}
	}
	return nil
}

// CheckEdgeSchema enforces the structural rules on one proposed edge.
func (v *Validator) CheckEdgeSchema(edge *types.Edge) error {
	if edge == nil {
		return &SchemaViolationError{Kind: "edge", Rule: "nil edge"}
	}
	if edge.SourceID == uuid.Nil || edge.TargetID == uuid.Nil {
		return &SchemaViolationError{Kind: "edge", ID: edge.ID, Field: "source_id/target_id", Rule: "required"}
	}
	if edge.SourceID == edge.TargetID && edge.Relation != types.RelShiftedTo {
		return &SchemaViolationError{Kind: "edge", ID: edge.ID, Field: "target_id", Rule: "self-loop"}
	}
	if edge.Confidence < 0 || edge.Confidence > 1 {
		return &SchemaViolationError{Kind: "edge", ID: edge.ID, Field: "confidence", Rule: "must be within [0,1]"}
	}
	switch edge.Relation {
	case types.RelDescendsFrom, types.RelBorrowedFrom, types.RelCognateOf, types.RelShiftedTo, types.RelMergedWith:
	default:
		return &SchemaViolationError{Kind: "edge", ID: edge.ID, Field: "relation", Rule: "unknown relation type"}
	}
	return nil
}

// CheckCycles verifies that adding the proposed ancestral edges keeps the
// ancestral subgraph acyclic. Walks only the affected component, bounded by
// componentMaxEntities. Returns a *CycleDetectedError on the first cycle.
func (v *Validator) CheckCycles(ctx context.Context, proposed []*types.Edge) error {
	adj := map[uuid.UUID][]uuid.UUID{}
	seeds := make([]uuid.UUID, 0, len(proposed)*2)
	for _, e := range proposed {
		if e == nil || !e.Relation.IsAncestral() {
			continue
		}
		adj[e.SourceID] = append(adj[e.SourceID], e.TargetID)
		seeds = append(seeds, e.SourceID, e.TargetID)
	}
	if len(seeds) == 0 {
		return nil
	}

	// Expand the stored component around the proposed endpoints.
	visited := map[uuid.UUID]bool{}
	frontier := seeds
	for len(frontier) > 0 && len(visited) < componentMaxEntities {
		next := frontier[:0:0]
		for _, id := range frontier {
			if !visited[id] {
				visited[id] = true
				next = append(next, id)
			}
		}
		if len(next) == 0 {
			break
		}
		edges, err := v.reader.EdgesTouching(ctx, next, true)
		if err != nil {
			return err
		}
		frontier = frontier[:0]
		for _, edge := range edges {
			adj[edge.SourceID] = appendUnique(adj[edge.SourceID], edge.TargetID)
			if !visited[edge.SourceID] {
				frontier = append(frontier, edge.SourceID)
			}
			if !visited[edge.TargetID] {
				frontier = append(frontier, edge.TargetID)
			}
		}
	}

	// Iterative DFS with three colors.
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[uuid.UUID]int{}
	var path []uuid.UUID

	var visit func(id uuid.UUID) *CycleDetectedError
	visit = func(id uuid.UUID) *CycleDetectedError {
		color[id] = gray
		path = append(path, id)
		for _, next := range adj[id] {
			switch color[next] {
			case gray:
				return &CycleDetectedError{Path: cyclePath(path, next)}
			case white:
				if err := visit(next); err != nil {
					return err
				}
			}
		}
		path = path[:len(path)-1]
		color[id] = black
		return nil
	}

	for id := range adj {
		if color[id] == white {
			path = path[:0]
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// CheckTemporal compares an ancestral edge against its endpoints' dating.
// An ancestor starting after its descendant is a flag, not a reject: dating
// uncertainty is common and a human should arbitrate.
func (v *Validator) CheckTemporal(edge *types.Edge, source, target *types.LexicalEntity) *Flag {
	if edge == nil || !edge.Relation.IsAncestral() || source == nil || target == nil {
		return nil
	}
	if source.DateStart == nil || target.DateStart == nil {
		return nil
	}
	if *source.DateStart <= *target.DateStart {
		return nil
	}
	return &Flag{
		Reason: types.ReviewTemporalConflict,
		Detail: fmt.Sprintf("%s edge: ancestor %s starts %d, after descendant %s start %d",
			edge.Relation, source.ID, *source.DateStart, target.ID, *target.DateStart),
	}
}

// CheckAnomalies flags entities whose frequency or date sits far outside
// the distribution of their language bucket.
func (v *Validator) CheckAnomalies(ctx context.Context, e *types.LexicalEntity) ([]Flag, error) {
	if e == nil || e.LanguageCode == "" {
		return nil, nil
	}
	bucket, err := v.reader.LanguageStats(ctx, e.LanguageCode, anomalyScanLimit)
	if err != nil {
		return nil, err
	}
	if len(bucket) < anomalySampleMin {
		return nil, nil
	}

	var flags []Flag
	if e.FrequencyScore > 0 {
		var freqs []float64
		for _, other := range bucket {
			if other != nil && other.ID != e.ID && other.FrequencyScore > 0 {
				freqs = append(freqs, other.FrequencyScore)
			}
		}
		if z, ok := zScore(e.FrequencyScore, freqs); ok && math.Abs(z) > anomalyZScoreMax {
			flags = append(flags, Flag{
				Reason: types.ReviewAnomaly,
				Detail: fmt.Sprintf("frequency_score z-score %.1f within language %s", z, e.LanguageCode),
			})
		}
	}
	if e.DateStart != nil {
		var starts []float64
		for _, other := range bucket {
			if other != nil && other.ID != e.ID && other.DateStart != nil {
				starts = append(starts, float64(*other.DateStart))
			}
		}
		if z, ok := zScore(float64(*e.DateStart), starts); ok && math.Abs(z) > anomalyZScoreMax {
			flags = append(flags, Flag{
				Reason: types.ReviewAnomaly,
				Detail: fmt.Sprintf("date_start z-score %.1f within language %s", z, e.LanguageCode),
			})
		}
	}
	return flags, nil
}

func (v *Validator) entityViolation(e *types.LexicalEntity, field, rule string) error {
	return &SchemaViolationError{Kind: "entity", ID: e.ID, Field: field, Rule: rule}
}

// cyclePath trims the DFS path to the cycle itself and closes it.
func cyclePath(path []uuid.UUID, repeat uuid.UUID) []uuid.UUID {
	start := 0
	for i, id := range path {
		if id == repeat {
			start = i
			break
		}
	}
	out := append([]uuid.UUID(nil), path[start:]...)
	return append(out, repeat)
}

func zScore(value float64, sample []float64) (float64, bool) {
	if len(sample) < anomalySampleMin {
		return 0, false
	}
	var sum float64
	for _, s := range sample {
		sum += s
	}
	mean := sum / float64(len(sample))
	var variance float64
	for _, s := range sample {
		d := s - mean
		variance += d * d
	}
	variance /= float64(len(sample))
	if variance == 0 {
		return 0, false
	}
	return (value - mean) / math.Sqrt(variance), true
}

func appendUnique(list []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for _, existing := range list {
		if existing == id {
			return list
		}
	}
	return append(list, id)
}
