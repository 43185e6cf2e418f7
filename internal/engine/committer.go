package engine

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/lexigraph-backend/internal/data/graph"
	"github.com/yungbote/lexigraph-backend/internal/data/repos"
	types "github.com/yungbote/lexigraph-backend/internal/domain"
	"github.com/yungbote/lexigraph-backend/internal/pkg/logger"
	"github.com/yungbote/lexigraph-backend/internal/platform/neo4jdb"
)

// stagedCommit is the atomic unit the committer persists for one
// observation: rows for the relational store plus the projection delta.
type stagedCommit struct {
	ObservationSourceID string

	CreateEntities     []*types.LexicalEntity
	UpdateEntities     []*types.LexicalEntity
	CreateAttestations []*types.Attestation
	CreateEdges        []*types.Edge
	ReviewItems        []*types.ReviewItem
	AuditRecords       []*types.AuditRecord
}

func (s *stagedCommit) empty() bool {
	return len(s.CreateEntities) == 0 && len(s.UpdateEntities) == 0 &&
		len(s.CreateAttestations) == 0 && len(s.CreateEdges) == 0 &&
		len(s.ReviewItems) == 0 && len(s.AuditRecords) == 0
}

func (s *stagedCommit) projectedEntities() []*types.LexicalEntity {
	out := make([]*types.LexicalEntity, 0, len(s.CreateEntities)+len(s.UpdateEntities))
	out = append(out, s.CreateEntities...)
	out = append(out, s.UpdateEntities...)
	return out
}

// committer writes a staged commit to postgres and mirrors it into the
// neo4j projection. The relational store is the source of truth: the
// projection syncs inside the transaction window and is compensated away if
// the relational commit then fails.
type committer struct {
	db           *gorm.DB
	graphDB      *neo4jdb.Client
	entities     repos.EntityRepo
	attestations repos.AttestationRepo
	edges        repos.EdgeRepo
	reviews      repos.ReviewRepo
	audits       repos.AuditRepo
	log          *logger.Logger
}

func (c *committer) Commit(ctx context.Context, staged *stagedCommit) error {
	if staged == nil || staged.empty() {
		return nil
	}

	return withRetry(ctx, c.log, "staged_commit", defaultRetryAttempts, defaultRetryBase, func(ctx context.Context) error {
		projectionSynced := false
		err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if _, err := c.entities.Create(ctx, tx, staged.CreateEntities); err != nil {
				return err
			}
			for _, e := range staged.UpdateEntities {
				if err := c.entities.Update(ctx, tx, e); err != nil {
					return err
				}
			}
			if _, err := c.attestations.Create(ctx, tx, staged.CreateAttestations); err != nil {
				return err
			}
			if _, err := c.edges.Create(ctx, tx, staged.CreateEdges); err != nil {
				return err
			}
			if _, err := c.reviews.Create(ctx, tx, staged.ReviewItems); err != nil {
				return err
			}
			if err := c.audits.Append(ctx, tx, staged.AuditRecords); err != nil {
				return err
			}

			// Projection syncs before the relational commit so a projection
			// failure aborts the whole unit; the compensating path below
			// handles the inverse ordering failure.
			if err := graph.UpsertLexicalGraph(ctx, c.graphDB, c.log, staged.projectedEntities(), staged.CreateEdges); err != nil {
				return err
			}
			projectionSynced = true
			return nil
		})
		if err != nil && projectionSynced {
			c.compensateProjection(ctx, staged)
		}
		return err
	})
}

// compensateProjection removes the projection delta after a relational
// rollback. Best-effort: a failed compensation is logged and the next sync
// of the same rows overwrites it anyway.
func (c *committer) compensateProjection(ctx context.Context, staged *stagedCommit) {
	edgeIDs := make([]uuid.UUID, 0, len(staged.CreateEdges))
	for _, e := range staged.CreateEdges {
		edgeIDs = append(edgeIDs, e.ID)
	}
	if err := graph.RemoveEdges(ctx, c.graphDB, c.log, edgeIDs); err != nil {
		c.log.Error("projection compensation failed for edges",
			"observation_source_id", staged.ObservationSourceID,
			"error", err,
		)
	}

	entityIDs := make([]uuid.UUID, 0, len(staged.CreateEntities))
	for _, e := range staged.CreateEntities {
		entityIDs = append(entityIDs, e.ID)
	}
	if err := graph.RemoveEntities(ctx, c.graphDB, c.log, entityIDs); err != nil {
		c.log.Error("projection compensation failed for entities",
			"observation_source_id", staged.ObservationSourceID,
			"error", err,
		)
	}
}

// applyConfidences persists propagated confidence updates with one audit
// record per mutated entity, then mirrors the rows into the projection.
func (c *committer) applyConfidences(ctx context.Context, observationSourceID string, changed map[uuid.UUID]float64) error {
	if len(changed) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(changed))
	for id := range changed {
		ids = append(ids, id)
	}

	err := withRetry(ctx, c.log, "confidence_update", defaultRetryAttempts, defaultRetryBase, func(ctx context.Context) error {
		return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			rows, err := c.entities.GetByIDs(ctx, tx, ids)
			if err != nil {
				return err
			}
			records := make([]*types.AuditRecord, 0, len(rows))
			for _, row := range rows {
				conf, ok := changed[row.ID]
				if !ok {
					continue
				}
				records = append(records, &types.AuditRecord{
					ObservationSourceID: observationSourceID,
					Action:              types.AuditConfidenceUpdated,
					EntityID:            &row.ID,
					Before:              auditJSON(map[string]float64{"confidence_overall": row.ConfidenceOverall}),
					After:               auditJSON(map[string]float64{"confidence_overall": conf}),
					Outcome:             "accepted",
				})
				if err := c.entities.UpdateFields(ctx, tx, row.ID, map[string]interface{}{
					"confidence_overall": conf,
				}); err != nil {
					return err
				}
			}
			return c.audits.Append(ctx, tx, records)
		})
	})
	if err != nil {
		return err
	}

	rows, err := c.entities.GetByIDs(ctx, nil, ids)
	if err != nil {
		return err
	}
	return graph.UpsertLexicalGraph(ctx, c.graphDB, c.log, rows, nil)
}

func auditJSON(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
