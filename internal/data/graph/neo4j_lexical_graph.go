package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	types "github.com/yungbote/lexigraph-backend/internal/domain"
	"github.com/yungbote/lexigraph-backend/internal/pkg/logger"
	"github.com/yungbote/lexigraph-backend/internal/platform/neo4jdb"
)

// UpsertLexicalGraph mirrors committed entities and edges into the neo4j
// projection. Nodes are keyed by entity id; each relation type gets its own
// edge label so traversals never filter on properties.
func UpsertLexicalGraph(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, entities []*types.LexicalEntity, edges []*types.Edge) error {
	if client == nil || client.Driver == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	nodes := make([]map[string]any, 0, len(entities))
	for _, e := range entities {
		if e == nil || e.ID == uuid.Nil {
			continue
		}
		mergedInto := ""
		if e.MergedIntoID != nil && *e.MergedIntoID != uuid.Nil {
			mergedInto = e.MergedIntoID.String()
		}
		nodes = append(nodes, map[string]any{
			"id":              e.ID.String(),
			"version":         int64(e.Version),
			"form":            e.FormOrthographic,
			"form_normalized": e.FormNormalized,
			"language_code":   e.LanguageCode,
			"language_family": e.LanguageFamily,
			"period_label":    e.PeriodLabel,
			"date_start":      nullableYear(e.DateStart),
			"date_end":        nullableYear(e.DateEnd),
			"definition":      e.DefinitionPrimary,
			"confidence":      e.ConfidenceOverall,
			"reconstruction":  e.Reconstruction,
			"needs_review":    e.NeedsReview,
			"merged_into_id":  mergedInto,
			"synced_at":       now,
		})
	}

	relsByType := map[types.RelationType][]map[string]any{}
	for _, e := range edges {
		if e == nil || e.SourceID == uuid.Nil || e.TargetID == uuid.Nil || e.Relation == "" {
			continue
		}
		relsByType[e.Relation] = append(relsByType[e.Relation], map[string]any{
			"id":           e.ID.String(),
			"from_id":      e.SourceID.String(),
			"to_id":        e.TargetID.String(),
			"confidence":   e.Confidence,
			"change_type":  e.ChangeType,
			"needs_review": e.NeedsReview,
			"synced_at":    now,
		})
	}

	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	// Schema helpers are best-effort; restricted users may not hold the grant.
	if res, err := session.Run(ctx, `CREATE CONSTRAINT lexical_entity_id_unique IF NOT EXISTS FOR (n:LexicalEntity) REQUIRE n.id IS UNIQUE`, nil); err != nil {
		if log != nil {
			log.Warn("neo4j schema init failed (continuing)", "error", err)
		}
	} else {
		_, _ = res.Consume(ctx)
	}
	if res, err := session.Run(ctx, `CREATE INDEX lexical_entity_form_idx IF NOT EXISTS FOR (n:LexicalEntity) ON (n.form_normalized, n.language_code)`, nil); err != nil {
		if log != nil {
			log.Warn("neo4j schema init failed (continuing)", "error", err)
		}
	} else {
		_, _ = res.Consume(ctx)
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if len(nodes) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $nodes AS n
MERGE (e:LexicalEntity {id: n.id})
SET e += n
`, map[string]any{"nodes": nodes})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}

		for rel, rows := range relsByType {
			label, ok := relLabels[rel]
			if !ok {
				return nil, fmt.Errorf("neo4j lexical graph: unknown relation %q", rel)
			}
			res, err := tx.Run(ctx, fmt.Sprintf(`
UNWIND $rels AS r
MATCH (a:LexicalEntity {id: r.from_id})
MATCH (b:LexicalEntity {id: r.to_id})
MERGE (a)-[e:%s {id: r.id}]->(b)
SET e.confidence = r.confidence,
    e.change_type = r.change_type,
    e.needs_review = r.needs_review,
    e.synced_at = r.synced_at
`, label), map[string]any{"rels": rows})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// RemoveEdges deletes projected edges by id. The committer calls this as the
// compensating write when the staged relational commit fails after a
// projection sync already went through.
func RemoveEdges(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, edgeIDs []uuid.UUID) error {
	if client == nil || client.Driver == nil || len(edgeIDs) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ids := make([]string, 0, len(edgeIDs))
	for _, id := range edgeIDs {
		if id != uuid.Nil {
			ids = append(ids, id.String())
		}
	}

	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH ()-[e]->()
WHERE e.id IN $ids
DELETE e
`, map[string]any{"ids": ids})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

// RemoveEntities detaches and deletes projected nodes by id, the node-side
// compensating write.
func RemoveEntities(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, entityIDs []uuid.UUID) error {
	if client == nil || client.Driver == nil || len(entityIDs) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ids := make([]string, 0, len(entityIDs))
	for _, id := range entityIDs {
		if id != uuid.Nil {
			ids = append(ids, id.String())
		}
	}

	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (e:LexicalEntity)
WHERE e.id IN $ids
DETACH DELETE e
`, map[string]any{"ids": ids})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

var relLabels = map[types.RelationType]string{
	types.RelDescendsFrom: "DESCENDS_FROM",
	types.RelBorrowedFrom: "BORROWED_FROM",
	types.RelCognateOf:    "COGNATE_OF",
	types.RelShiftedTo:    "SHIFTED_TO",
	types.RelMergedWith:   "MERGED_WITH",
}

func nullableYear(y *int) any {
	if y == nil {
		return nil
	}
	return int64(*y)
}
