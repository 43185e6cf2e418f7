package relations

import (
	"context"
	"fmt"

	types "github.com/yungbote/lexigraph-backend/internal/domain"
)

const (
	// defaultDriftThreshold is the embedding distance (1 - similarity)
	// above which adjacent-period senses count as a shift.
	defaultDriftThreshold = 0.35
	// adjacencyMaxGapYears bounds how far apart two periods may sit and
	// still count as adjacent.
	adjacencyMaxGapYears = 400
)

// semanticShifts looks for same-form, same-language entities in adjacent
// time periods whose glosses have drifted apart. Emits SHIFTED_TO from the
// earlier period to the later one with a change-subtype guess.
func (x *Extractor) semanticShifts(ctx context.Context, e *types.LexicalEntity) ([]CandidateEdge, error) {
	if e.FormNormalized == "" || e.DateStart == nil || e.DefinitionPrimary == "" {
		return nil, nil
	}
	rows, err := x.reader.ByNormalizedForm(ctx, e.FormNormalized, e.LanguageCode)
	if err != nil {
		return nil, err
	}

	var out []CandidateEdge
	for _, cand := range rows {
		if cand == nil || cand.ID == e.ID || cand.DefinitionPrimary == "" {
			continue
		}
		earlier, later, adjacent := orderAdjacent(e, cand)
		if !adjacent {
			continue
		}

		sim, err := x.compare.Compare(ctx, earlier.DefinitionPrimary, later.DefinitionPrimary)
		if err != nil {
			return nil, fmt.Errorf("semantic shift compare: %w", err)
		}
		drift := 1.0 - sim
		if drift <= x.driftThreshold {
			continue
		}

		changeType := shiftSubtype(earlier, later)
		dateOfChange := copyYearPtr(later.DateStart)
		out = append(out, CandidateEdge{
			SourceID:     earlier.ID,
			TargetID:     later.ID,
			Relation:     types.RelShiftedTo,
			Confidence:   drift,
			ChangeType:   changeType,
			DateOfChange: dateOfChange,
			Evidence: []string{fmt.Sprintf(
				"semantic drift %.2f between %q periods [%s] and [%s]",
				drift, e.FormNormalized, periodLabel(earlier), periodLabel(later),
			)},
			Extractor: extractorDrift,
		})
	}
	return out, nil
}

// orderAdjacent sorts the pair by date and checks period adjacency: ranges
// must not overlap and the gap must stay within the adjacency bound.
func orderAdjacent(a, b *types.LexicalEntity) (earlier, later *types.LexicalEntity, ok bool) {
	if a.DateStart == nil || b.DateStart == nil || a.DateEnd == nil || b.DateEnd == nil {
		return nil, nil, false
	}
	earlier, later = a, b
	if *b.DateStart < *a.DateStart {
		earlier, later = b, a
	}
	gap := *later.DateStart - *earlier.DateEnd
	if gap < 0 || gap > adjacencyMaxGapYears {
		return nil, nil, false
	}
	return earlier, later, true
}

// shiftSubtype guesses the shift kind from the direction of semantic-field
// membership change: fields grew -> generalization, shrank ->
// specialization, replaced -> metaphor.
func shiftSubtype(earlier, later *types.LexicalEntity) string {
	before := jsonStringSet(earlier.SemanticFields)
	after := jsonStringSet(later.SemanticFields)
	if len(before) == 0 || len(after) == 0 {
		return types.ShiftMetaphor
	}

	shared := 0
	for f := range after {
		if before[f] {
			shared++
		}
	}
	switch {
	case shared == 0:
		return types.ShiftMetaphor
	case len(after) > len(before) && shared == len(before):
		return types.ShiftGeneralization
	case len(after) < len(before) && shared == len(after):
		return types.ShiftSpecialization
	default:
		return types.ShiftMetaphor
	}
}

func periodLabel(e *types.LexicalEntity) string {
	if e.PeriodLabel != "" {
		return e.PeriodLabel
	}
	if e.DateStart != nil && e.DateEnd != nil {
		return fmt.Sprintf("%d..%d", *e.DateStart, *e.DateEnd)
	}
	return "undated"
}

func copyYearPtr(y *int) *int {
	if y == nil {
		return nil
	}
	v := *y
	return &v
}
