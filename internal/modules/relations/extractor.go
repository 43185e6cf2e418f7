package relations

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	types "github.com/yungbote/lexigraph-backend/internal/domain"
	"github.com/yungbote/lexigraph-backend/internal/pkg/logger"
	"github.com/yungbote/lexigraph-backend/internal/platform/embedding"
)

// languageScanLimit bounds how many entities a per-language scan may pull
// into memory for cognate and donor lookups.
const languageScanLimit = 500

// Sub-extractor names recorded on the candidate edges they produce, so the
// audit trail shows which detector proposed each relationship.
const (
	extractorEtymology = "etymology"
	extractorCognate   = "cognate"
	extractorBorrowing = "borrowing"
	extractorDrift     = "semantic_drift"
	extractorHint      = "source_hint"
)

// EntityReader is the read-only slice of the store the extractors need.
type EntityReader interface {
	ByNormalizedForm(ctx context.Context, formNormalized, languageCode string) ([]*types.LexicalEntity, error)
	ByLanguage(ctx context.Context, languageCode string, limit int) ([]*types.LexicalEntity, error)
	ByIDs(ctx context.Context, ids []uuid.UUID) ([]*types.LexicalEntity, error)
}

// CandidateEdge is a proposed relationship awaiting validation. Source is
// always the ancestor/donor (or earlier sense); target the descendant,
// recipient, or later sense.
type CandidateEdge struct {
	SourceID     uuid.UUID
	TargetID     uuid.UUID
	Relation     types.RelationType
	Confidence   float64
	Evidence     []string
	Extractor    string
	ChangeType   string
	DateOfChange *int
}

// Extractor runs the relationship detectors for one entity and calibrates
// the combined result.
type Extractor struct {
	registry *Registry
	reader   EntityReader
	compare  embedding.Comparator
	log      *logger.Logger

	cognateThreshold float64
	driftThreshold   float64
}

func NewExtractor(registry *Registry, reader EntityReader, compare embedding.Comparator, log *logger.Logger) *Extractor {
	return &Extractor{
		registry:         registry,
		reader:           reader,
		compare:          compare,
		log:              log.With("component", "relation_extractor"),
		cognateThreshold: defaultCognateThreshold,
		driftThreshold:   defaultDriftThreshold,
	}
}

// SetThresholds overrides the detector cutoffs. Values outside (0,1] keep
// the current setting.
func (x *Extractor) SetThresholds(cognate, drift float64) {
	if cognate > 0 && cognate <= 1 {
		x.cognateThreshold = cognate
	}
	if drift > 0 && drift <= 1 {
		x.driftThreshold = drift
	}
}

// Extract fans out the detectors concurrently over read-only store access,
// then calibrates the pooled candidates. etymologyText and relatedForms come
// from the observation the entity was resolved from.
func (x *Extractor) Extract(ctx context.Context, e *types.LexicalEntity, etymologyText string, relatedForms []types.RelatedFormHint) ([]CandidateEdge, error) {
	if e == nil {
		return nil, nil
	}

	var (
		mu     sync.Mutex
		pooled []CandidateEdge
	)
	collect := func(edges []CandidateEdge) {
		if len(edges) == 0 {
			return
		}
		mu.Lock()
		pooled = append(pooled, edges...)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		edges, err := x.fromEtymology(gctx, e, etymologyText)
		collect(edges)
		return err
	})
	g.Go(func() error {
		edges, err := x.cognates(gctx, e)
		collect(edges)
		return err
	})
	g.Go(func() error {
		edges, err := x.semanticShifts(gctx, e)
		collect(edges)
		return err
	})
	g.Go(func() error {
		edges, err := x.fromHints(gctx, e, relatedForms)
		collect(edges)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(pooled) == 0 {
		return nil, nil
	}

	calibrated, err := x.calibrate(ctx, pooled)
	if err != nil {
		return nil, err
	}
	x.log.Debug("relationship extraction finished",
		"entity_id", e.ID.String(),
		"candidates", len(calibrated),
	)
	return calibrated, nil
}

// edgeKey identifies a relationship independent of which detector found it.
type edgeKey struct {
	source   uuid.UUID
	target   uuid.UUID
	relation types.RelationType
}

// calibrate adjusts candidate confidences with shared rules: agreement
// between detectors raises confidence, human-validated endpoints raise it
// further, reconstructed endpoints lower it. Duplicates collapse to the
// strongest candidate per (source, target, relation).
func (x *Extractor) calibrate(ctx context.Context, candidates []CandidateEdge) ([]CandidateEdge, error) {
	byKey := map[edgeKey][]CandidateEdge{}
	idSet := map[uuid.UUID]bool{}
	for _, c := range candidates {
		k := edgeKey{c.SourceID, c.TargetID, c.Relation}
		byKey[k] = append(byKey[k], c)
		idSet[c.SourceID] = true
		idSet[c.TargetID] = true
	}

	ids := make([]uuid.UUID, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	endpoints, err := x.reader.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := map[uuid.UUID]*types.LexicalEntity{}
	for _, e := range endpoints {
		if e != nil {
			byID[e.ID] = e
		}
	}

	out := make([]CandidateEdge, 0, len(byKey))
	for k, group := range byKey {
		best := group[0]
		extractors := map[string]bool{}
		for _, c := range group {
			extractors[c.Extractor] = true
			if c.Confidence > best.Confidence {
				best = c
			}
		}
		if len(group) > 1 {
			// Merge evidence from the collapsed duplicates.
			for _, c := range group {
				if c.Extractor != best.Extractor {
					best.Evidence = append(best.Evidence, c.Evidence...)
				}
			}
		}

		conf := best.Confidence
		if len(extractors) >= 2 {
			conf += 0.1
		}
		src, tgt := byID[k.source], byID[k.target]
		if (src != nil && src.HumanValidated) || (tgt != nil && tgt.HumanValidated) {
			conf += 0.2
		}
		if (src != nil && src.Reconstruction) || (tgt != nil && tgt.Reconstruction) {
			conf -= 0.2
		}
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		best.Confidence = conf
		out = append(out, best)
	}
	return out, nil
}
