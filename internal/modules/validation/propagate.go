package validation

import (
	"context"

	"github.com/google/uuid"

	types "github.com/yungbote/lexigraph-backend/internal/domain"
	"github.com/yungbote/lexigraph-backend/internal/pkg/logger"
)

// GraphReader is the read-only store access the validators need.
// LanguageStats returns a slim per-language sample (dates, confidence,
// frequency) for the anomaly statistics.
type GraphReader interface {
	EntitiesByIDs(ctx context.Context, ids []uuid.UUID) ([]*types.LexicalEntity, error)
	EdgesTouching(ctx context.Context, ids []uuid.UUID, ancestralOnly bool) ([]*types.Edge, error)
	LanguageStats(ctx context.Context, languageCode string, limit int) ([]*types.LexicalEntity, error)
}

const (
	// propagationEpsilon is the fixed-point convergence threshold.
	propagationEpsilon = 0.01
	// propagationMaxIterations caps the fixed-point loop; hitting the cap is
	// surfaced as ErrNotConverged rather than treated as convergence.
	propagationMaxIterations = 20
	// componentMaxEntities bounds the connected component walked during
	// propagation and cycle checks.
	componentMaxEntities = 2000
)

// EvidenceConfidence scores an entity from its own evidence alone, before
// any graph-neighborhood adjustment. Human validation pins the score to 1.
func EvidenceConfidence(e *types.LexicalEntity) float64 {
	if e == nil {
		return 0
	}
	if e.HumanValidated {
		return 1.0
	}

	dateFactor := e.DateConfidence
	if dateFactor <= 0 || dateFactor > 1 {
		dateFactor = 0.5
	}

	attFactor := 0.3
	if n := len(e.Attestations); n > 0 {
		attFactor = float64(n)*0.1 + 0.5
		if attFactor > 1 {
			attFactor = 1
		}
	}

	conf := dateFactor*0.5 + attFactor*0.5
	if e.Reconstruction {
		conf *= 0.6
	}
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return conf
}

// Propagator recomputes entity confidences across a connected component
// after a commit changes its evidence or topology.
type Propagator struct {
	reader GraphReader
	log    *logger.Logger
}

func NewPropagator(reader GraphReader, log *logger.Logger) *Propagator {
	return &Propagator{reader: reader, log: log.With("component", "confidence_propagator")}
}

// Propagate walks the ancestral component around the seed entities and runs
// confidence to a fixed point. Attested entities keep their evidence score;
// a reconstructed entity is additionally capped by the best support flowing
// in from its ancestors (edge confidence times ancestor confidence) over its
// incoming ancestral edges. Descendants never lift a reconstruction:
// uncertainty propagates downstream, not upstream. A reconstruction with no
// ancestors keeps its evidence score.
// Returns the per-entity confidences that changed by more than epsilon.
func (p *Propagator) Propagate(ctx context.Context, seeds []uuid.UUID) (map[uuid.UUID]float64, error) {
	entities, edges, err := p.component(ctx, seeds)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return map[uuid.UUID]float64{}, nil
	}

	conf := map[uuid.UUID]float64{}
	evidence := map[uuid.UUID]float64{}
	for id, e := range entities {
		evidence[id] = EvidenceConfidence(e)
		conf[id] = evidence[id]
	}

	converged := false
	for iter := 0; iter < propagationMaxIterations; iter++ {
		maxDelta := 0.0
		for id, e := range entities {
			next := evidence[id]
			if e.Reconstruction {
				support := 0.0
				hasAncestor := false
				for _, edge := range edges {
					// Only incoming ancestral edges carry support: the edge
					// source is the ancestor, the target the descendant.
					if edge.TargetID != id {
						continue
					}
					c, ok := conf[edge.SourceID]
					if !ok {
						continue
					}
					hasAncestor = true
					if s := edge.Confidence * c; s > support {
						support = s
					}
				}
				if hasAncestor && support < next {
					next = support
				}
			}
			if d := abs(next - conf[id]); d > maxDelta {
				maxDelta = d
			}
			conf[id] = next
		}
		if maxDelta <= propagationEpsilon {
			converged = true
			break
		}
	}
	if !converged {
		return nil, ErrNotConverged
	}

	changed := map[uuid.UUID]float64{}
	for id, e := range entities {
		if abs(conf[id]-e.ConfidenceOverall) > propagationEpsilon {
			changed[id] = conf[id]
		}
	}
	p.log.Debug("confidence propagation settled",
		"component_size", len(entities),
		"changed", len(changed),
	)
	return changed, nil
}

// Component returns the entities of the ancestral component around the
// seeds, for callers that must lock the component before propagating over it.
func (p *Propagator) Component(ctx context.Context, seeds []uuid.UUID) ([]*types.LexicalEntity, error) {
	entities, _, err := p.component(ctx, seeds)
	if err != nil {
		return nil, err
	}
	out := make([]*types.LexicalEntity, 0, len(entities))
	for _, e := range entities {
		out = append(out, e)
	}
	return out, nil
}

// component expands the ancestral neighborhood of the seeds breadth-first,
// bounded by componentMaxEntities.
func (p *Propagator) component(ctx context.Context, seeds []uuid.UUID) (map[uuid.UUID]*types.LexicalEntity, []*types.Edge, error) {
	entities := map[uuid.UUID]*types.LexicalEntity{}
	seenEdges := map[uuid.UUID]*types.Edge{}

	frontier := append([]uuid.UUID(nil), seeds...)
	for len(frontier) > 0 && len(entities) < componentMaxEntities {
		rows, err := p.reader.EntitiesByIDs(ctx, frontier)
		if err != nil {
			return nil, nil, err
		}
		current := frontier[:0:0]
		for _, e := range rows {
			if e == nil || entities[e.ID] != nil {
				continue
			}
			entities[e.ID] = e
			current = append(current, e.ID)
		}
		if len(current) == 0 {
			break
		}

		edges, err := p.reader.EdgesTouching(ctx, current, true)
		if err != nil {
			return nil, nil, err
		}
		frontier = frontier[:0]
		for _, edge := range edges {
			if edge == nil || seenEdges[edge.ID] != nil {
				continue
			}
			seenEdges[edge.ID] = edge
			if entities[edge.SourceID] == nil {
				frontier = append(frontier, edge.SourceID)
			}
			if entities[edge.TargetID] == nil {
				frontier = append(frontier, edge.TargetID)
			}
		}
	}

	out := make([]*types.Edge, 0, len(seenEdges))
	for _, e := range seenEdges {
		out = append(out, e)
	}
	return entities, out, nil
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
