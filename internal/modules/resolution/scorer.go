package resolution

import (
	"context"
	"encoding/json"
	"fmt"

	types "github.com/yungbote/lexigraph-backend/internal/domain"
	"github.com/yungbote/lexigraph-backend/internal/pkg/phonetics"
	"github.com/yungbote/lexigraph-backend/internal/platform/embedding"
)

// Weights is the fixed blend of sub-scores. The defaults follow the match
// model the scoring was calibrated against; they must sum to 1.
type Weights struct {
	ExactForm       float64
	FuzzyForm       float64
	Semantic        float64
	DateOverlap     float64
	SourceAgreement float64
}

func DefaultWeights() Weights {
	return Weights{
		ExactForm:       0.3,
		FuzzyForm:       0.2,
		Semantic:        0.3,
		DateOverlap:     0.1,
		SourceAgreement: 0.1,
	}
}

// SubScores keeps the per-component breakdown for the audit trail.
type SubScores struct {
	ExactForm       float64 `json:"exact_form"`
	FuzzyForm       float64 `json:"fuzzy_form"`
	Semantic        float64 `json:"semantic"`
	DateOverlap     float64 `json:"date_overlap"`
	SourceAgreement float64 `json:"source_agreement"`
}

// ScoredCandidate pairs a candidate with its weighted match score.
type ScoredCandidate struct {
	Entity    *types.LexicalEntity
	Score     float64
	SubScores SubScores
}

// Scorer computes the weighted match score between an observation and one
// candidate. It is pure and deterministic given its inputs; the semantic
// sub-score comes from the injected comparator, not computed here.
type Scorer struct {
	weights Weights
	compare embedding.Comparator
}

func NewScorer(weights Weights, compare embedding.Comparator) *Scorer {
	return &Scorer{weights: weights, compare: compare}
}

// neutralSubScore is used when a sub-signal has no data on one side:
// absence of evidence neither supports nor refutes the match.
const neutralSubScore = 0.5

func (s *Scorer) Score(ctx context.Context, obs *types.RawObservation, nf NormalizedForm, cand *types.LexicalEntity) (ScoredCandidate, error) {
	if obs == nil || cand == nil {
		return ScoredCandidate{}, fmt.Errorf("scorer: observation and candidate required")
	}

	var sub SubScores

	if nf.Key == cand.FormNormalized {
		sub.ExactForm = 1.0
	}
	sub.FuzzyForm = phonetics.Similarity(nf.Key, cand.FormNormalized)

	switch {
	case obs.Gloss == "" || cand.DefinitionPrimary == "":
		sub.Semantic = neutralSubScore
	default:
		sim, err := s.compare.Compare(ctx, obs.Gloss, cand.DefinitionPrimary)
		if err != nil {
			return ScoredCandidate{}, fmt.Errorf("scorer: semantic compare: %w", err)
		}
		sub.Semantic = clamp01(sim)
	}

	sub.DateOverlap = dateOverlapRatio(obs.DateStart, obs.DateEnd, cand.DateStart, cand.DateEnd)

	if independentSourceCount(cand) >= 2 {
		sub.SourceAgreement = 1.0
	}

	score := s.weights.ExactForm*sub.ExactForm +
		s.weights.FuzzyForm*sub.FuzzyForm +
		s.weights.Semantic*sub.Semantic +
		s.weights.DateOverlap*sub.DateOverlap +
		s.weights.SourceAgreement*sub.SourceAgreement

	return ScoredCandidate{Entity: cand, Score: clamp01(score), SubScores: sub}, nil
}

// dateOverlapRatio is the Jaccard overlap of the two year ranges. Missing
// ranges on either side score neutral.
func dateOverlapRatio(aStart, aEnd, bStart, bEnd *int) float64 {
	if aStart == nil || aEnd == nil || bStart == nil || bEnd == nil {
		return neutralSubScore
	}
	lo := maxInt(*aStart, *bStart)
	hi := minInt(*aEnd, *bEnd)
	if hi < lo {
		return 0
	}
	unionLo := minInt(*aStart, *bStart)
	unionHi := maxInt(*aEnd, *bEnd)
	if unionHi == unionLo {
		return 1
	}
	return float64(hi-lo) / float64(unionHi-unionLo)
}

func independentSourceCount(e *types.LexicalEntity) int {
	if e == nil || len(e.SourceDatabases) == 0 {
		return 0
	}
	var sources []string
	if err := json.Unmarshal(e.SourceDatabases, &sources); err != nil {
		return 0
	}
	distinct := map[string]bool{}
	for _, s := range sources {
		if s != "" {
			distinct[s] = true
		}
	}
	return len(distinct)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
