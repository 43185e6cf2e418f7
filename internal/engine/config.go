package engine

import (
	"github.com/yungbote/lexigraph-backend/internal/modules/resolution"
	"github.com/yungbote/lexigraph-backend/internal/pkg/envutil"
	"github.com/yungbote/lexigraph-backend/internal/pkg/logger"
)

// Config carries the tunable pipeline knobs, all overridable from the
// environment.
type Config struct {
	Thresholds   resolution.Thresholds
	Weights      resolution.Weights
	CandidateCap int

	CognateThreshold float64
	DriftThreshold   float64

	WorkerCount int
}

func ConfigFromEnv(log *logger.Logger) Config {
	th := resolution.DefaultThresholds()
	th.AutoMerge = envutil.GetEnvAsFloat("RESOLUTION_AUTO_MERGE_THRESHOLD", th.AutoMerge, log)
	th.MergeFlagged = envutil.GetEnvAsFloat("RESOLUTION_MERGE_FLAGGED_THRESHOLD", th.MergeFlagged, log)
	th.Review = envutil.GetEnvAsFloat("RESOLUTION_REVIEW_THRESHOLD", th.Review, log)
	th.TieEpsilon = envutil.GetEnvAsFloat("RESOLUTION_TIE_EPSILON", th.TieEpsilon, log)

	w := resolution.DefaultWeights()
	w.ExactForm = envutil.GetEnvAsFloat("SCORE_WEIGHT_EXACT_FORM", w.ExactForm, log)
	w.FuzzyForm = envutil.GetEnvAsFloat("SCORE_WEIGHT_FUZZY_FORM", w.FuzzyForm, log)
	w.Semantic = envutil.GetEnvAsFloat("SCORE_WEIGHT_SEMANTIC", w.Semantic, log)
	w.DateOverlap = envutil.GetEnvAsFloat("SCORE_WEIGHT_DATE_OVERLAP", w.DateOverlap, log)
	w.SourceAgreement = envutil.GetEnvAsFloat("SCORE_WEIGHT_SOURCE_AGREEMENT", w.SourceAgreement, log)

	return Config{
		Thresholds:       th,
		Weights:          w,
		CandidateCap:     envutil.GetEnvAsInt("RESOLUTION_CANDIDATE_CAP", resolution.DefaultCandidateCap, log),
		CognateThreshold: envutil.GetEnvAsFloat("RELATION_COGNATE_THRESHOLD", 0.8, log),
		DriftThreshold:   envutil.GetEnvAsFloat("RELATION_DRIFT_THRESHOLD", 0.35, log),
		WorkerCount:      envutil.GetEnvAsInt("ENGINE_WORKER_COUNT", 8, log),
	}
}
