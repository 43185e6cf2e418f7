package resolution

import (
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/lexigraph-backend/internal/domain"
)

func scoredWith(score float64) ScoredCandidate {
	return ScoredCandidate{
		Entity: &types.LexicalEntity{ID: uuid.New()},
		Score:  score,
	}
}

func TestDecideThresholds(t *testing.T) {
	th := DefaultThresholds()
	cases := []struct {
		name  string
		score float64
		want  Decision
	}{
		{"auto merge at boundary", 0.95, DecisionAutoMerge},
		{"auto merge above", 0.99, DecisionAutoMerge},
		{"flagged at boundary", 0.85, DecisionMergeFlagged},
		{"flagged just below auto", 0.94, DecisionMergeFlagged},
		{"duplicate at boundary", 0.70, DecisionCandidateDuplicate},
		{"duplicate just below flagged", 0.84, DecisionCandidateDuplicate},
		{"new entity below review", 0.69, DecisionNewEntity},
		{"new entity at zero", 0, DecisionNewEntity},
	}
	for _, c := range cases {
		res := Decide([]ScoredCandidate{scoredWith(c.score)}, th)
		if res.Decision != c.want {
			t.Fatalf("%s: score %v -> %s, want %s", c.name, c.score, res.Decision, c.want)
		}
	}
}

func TestDecideNoCandidates(t *testing.T) {
	res := Decide(nil, DefaultThresholds())
	if res.Decision != DecisionNewEntity {
		t.Fatalf("no candidates: got %s, want NEW_ENTITY", res.Decision)
	}
	if res.Best != nil {
		t.Fatalf("no candidates: best should be nil")
	}
}

func TestDecideTieForcesReview(t *testing.T) {
	th := DefaultThresholds()
	a := scoredWith(0.97)
	b := scoredWith(0.965)

	res := Decide([]ScoredCandidate{a, b}, th)
	if res.Decision != DecisionMergeFlagged {
		t.Fatalf("near-tied high scores: got %s, want MERGE_FLAGGED", res.Decision)
	}
	if res.Tied == nil {
		t.Fatalf("tie decision should carry the runner-up")
	}
	if res.Best.Score < res.Tied.Score {
		t.Fatalf("best should outrank tied")
	}
}

func TestDecideClearGapAutoMerges(t *testing.T) {
	res := Decide([]ScoredCandidate{scoredWith(0.97), scoredWith(0.80)}, DefaultThresholds())
	if res.Decision != DecisionAutoMerge {
		t.Fatalf("clear winner: got %s, want AUTO_MERGE", res.Decision)
	}
}

func TestDecideDeterministicOrder(t *testing.T) {
	a := scoredWith(0.60)
	b := scoredWith(0.60)
	first := Decide([]ScoredCandidate{a, b}, DefaultThresholds())
	second := Decide([]ScoredCandidate{b, a}, DefaultThresholds())
	if first.Decision != second.Decision {
		t.Fatalf("input order changed the decision: %s vs %s", first.Decision, second.Decision)
	}
}
