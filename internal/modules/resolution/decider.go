package resolution

import (
	"sort"
)

// Decision is the resolution outcome for one observation.
type Decision string

const (
	DecisionAutoMerge          Decision = "AUTO_MERGE"
	DecisionMergeFlagged       Decision = "MERGE_FLAGGED"
	DecisionCandidateDuplicate Decision = "CANDIDATE_DUPLICATE"
	DecisionNewEntity          Decision = "NEW_ENTITY"
)

// Thresholds are the configurable decision boundaries.
type Thresholds struct {
	AutoMerge    float64 // score >= AutoMerge -> AUTO_MERGE
	MergeFlagged float64 // score >= MergeFlagged -> MERGE_FLAGGED
	Review       float64 // score >= Review -> CANDIDATE_DUPLICATE
	TieEpsilon   float64 // two candidates this close above Review force MERGE_FLAGGED
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		AutoMerge:    0.95,
		MergeFlagged: 0.85,
		Review:       0.70,
		TieEpsilon:   0.01,
	}
}

// Resolution is the decider's output: the decision plus the best candidate
// (nil for NEW_ENTITY with no candidates).
type Resolution struct {
	Decision Decision
	Best     *ScoredCandidate
	// Tied is set when the ambiguity rule fired; it names the runner-up so
	// the review item can reference both.
	Tied *ScoredCandidate
}

// Decide maps scored candidates to a resolution. Pure: same inputs, same
// output. Candidates are ordered by score descending with entity id as the
// deterministic tie-break.
func Decide(candidates []ScoredCandidate, th Thresholds) Resolution {
	if len(candidates) == 0 {
		return Resolution{Decision: DecisionNewEntity}
	}

	sorted := make([]ScoredCandidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].Entity.ID.String() < sorted[j].Entity.ID.String()
	})

	best := sorted[0]

	// Ambiguity rule: two viable candidates within epsilon of each other
	// cannot be silently auto-merged, whatever the absolute score.
	if len(sorted) > 1 {
		second := sorted[1]
		if best.Score >= th.Review && second.Score >= th.Review &&
			best.Score-second.Score <= th.TieEpsilon {
			return Resolution{Decision: DecisionMergeFlagged, Best: &best, Tied: &second}
		}
	}

	switch {
	case best.Score >= th.AutoMerge:
		return Resolution{Decision: DecisionAutoMerge, Best: &best}
	case best.Score >= th.MergeFlagged:
		return Resolution{Decision: DecisionMergeFlagged, Best: &best}
	case best.Score >= th.Review:
		return Resolution{Decision: DecisionCandidateDuplicate, Best: &best}
	default:
		return Resolution{Decision: DecisionNewEntity}
	}
}
