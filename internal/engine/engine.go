package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/lexigraph-backend/internal/data/repos"
	types "github.com/yungbote/lexigraph-backend/internal/domain"
	"github.com/yungbote/lexigraph-backend/internal/modules/relations"
	"github.com/yungbote/lexigraph-backend/internal/modules/resolution"
	"github.com/yungbote/lexigraph-backend/internal/modules/validation"
	"github.com/yungbote/lexigraph-backend/internal/pkg/logger"
	"github.com/yungbote/lexigraph-backend/internal/platform/embedding"
	"github.com/yungbote/lexigraph-backend/internal/platform/neo4jdb"
	"github.com/yungbote/lexigraph-backend/internal/platform/reviewq"
)

// Outcome summarizes one processed observation.
type Outcome struct {
	Decision  resolution.Decision
	EntityID  uuid.UUID
	EdgeIDs   []uuid.UUID
	Skipped   bool // observation already processed
	Discarded bool // observation rejected before any mutation
}

// Engine runs the full pipeline for raw observations: normalize, resolve,
// merge or create, extract relationships, validate, commit, propagate.
type Engine struct {
	log *logger.Logger
	cfg Config

	entities repos.EntityRepo
	edges    repos.EdgeRepo
	audits   repos.AuditRepo

	retriever  *resolution.Retriever
	scorer     *resolution.Scorer
	merger     *resolution.Merger
	extractor  *relations.Extractor
	validator  *validation.Validator
	propagator *validation.Propagator
	dater      *validation.TextDater
	committer  *committer
	registry   *relations.Registry

	queue  reviewq.Queue
	locks  *keyLock
	tracer trace.Tracer
}

func New(log *logger.Logger, cfg Config, gdb *gorm.DB, graphDB *neo4jdb.Client, queue reviewq.Queue, compare embedding.Comparator) (*Engine, error) {
	registry, err := relations.LoadRegistry()
	if err != nil {
		return nil, err
	}
	if queue == nil {
		queue = reviewq.NewNoopQueue()
	}

	entities := repos.NewEntityRepo(gdb, log)
	attestations := repos.NewAttestationRepo(gdb, log)
	edges := repos.NewEdgeRepo(gdb, log)
	audits := repos.NewAuditRepo(gdb, log)
	reviews := repos.NewReviewRepo(gdb, log)

	reader := &storeReader{entities: entities, edges: edges}

	extractor := relations.NewExtractor(registry, reader, compare, log)
	extractor.SetThresholds(cfg.CognateThreshold, cfg.DriftThreshold)

	return &Engine{
		log:        log.With("component", "engine"),
		cfg:        cfg,
		entities:   entities,
		edges:      edges,
		audits:     audits,
		retriever:  resolution.NewRetriever(reader, log, cfg.CandidateCap),
		scorer:     resolution.NewScorer(cfg.Weights, compare),
		merger:     resolution.NewMerger(validation.EvidenceConfidence),
		extractor:  extractor,
		validator:  validation.NewValidator(reader, log),
		propagator: validation.NewPropagator(reader, log),
		dater:      validation.NewTextDater(reader, log),
		committer: &committer{
			db:           gdb,
			graphDB:      graphDB,
			entities:     entities,
			attestations: attestations,
			edges:        edges,
			reviews:      reviews,
			audits:       audits,
			log:          log.With("component", "committer"),
		},
		registry: registry,
		queue:    queue,
		locks:    newKeyLock(),
		tracer:   otel.Tracer("lexigraph/engine"),
	}, nil
}

// Process runs one observation through the pipeline. Reprocessing an
// already-seen observation is a no-op; a malformed observation is discarded
// with an audit record and a nil error.
func (eng *Engine) Process(ctx context.Context, obs *types.RawObservation) (*Outcome, error) {
	if obs == nil {
		return nil, fmt.Errorf("engine: nil observation")
	}
	if obs.SourceID == "" {
		return nil, fmt.Errorf("engine: observation missing source_id")
	}

	ctx, span := eng.tracer.Start(ctx, "engine.process_observation",
		trace.WithAttributes(
			attribute.String("observation.source_id", obs.SourceID),
			attribute.String("observation.language", obs.LanguageCode),
		),
	)
	defer span.End()

	if obs.LanguageCode == "" {
		return eng.discard(ctx, obs, "missing_language", "observation has no language code")
	}

	nf, err := resolution.Normalize(obs.Form)
	if err != nil {
		var malformed *resolution.MalformedFormError
		if errors.As(err, &malformed) {
			return eng.discard(ctx, obs, "malformed_form", err.Error())
		}
		return nil, err
	}

	subject, res, edgeIDs, skipped, err := eng.resolveAndCommit(ctx, obs, nf)
	if err != nil {
		return nil, err
	}
	if skipped {
		span.SetAttributes(attribute.Bool("observation.skipped", true))
		return &Outcome{Skipped: true}, nil
	}
	if subject == nil {
		return &Outcome{Decision: res.Decision, Discarded: true}, nil
	}
	span.SetAttributes(attribute.String("resolution.decision", string(res.Decision)))

	if err := eng.propagate(ctx, obs, subject); err != nil {
		return nil, err
	}

	return &Outcome{
		Decision: res.Decision,
		EntityID: subject.ID,
		EdgeIDs:  edgeIDs,
	}, nil
}

// resolveAndCommit runs resolution, extraction, validation and the staged
// commit under the observation's single resolution-key lock. Propagation
// runs afterwards under the component's full key set. A nil subject with a
// nil error means the observation was rejected; skipped reports prior work.
func (eng *Engine) resolveAndCommit(ctx context.Context, obs *types.RawObservation, nf resolution.NormalizedForm) (*types.LexicalEntity, resolution.Resolution, []uuid.UUID, bool, error) {
	release := eng.locks.Acquire(nf.Key + "\x00" + obs.LanguageCode)
	defer release()

	// Idempotence: any prior audit trail for this source id means the
	// observation was already consumed.
	prior, err := eng.audits.GetByObservation(ctx, nil, obs.SourceID)
	if err != nil {
		return nil, resolution.Resolution{}, nil, false, err
	}
	if len(prior) > 0 {
		eng.log.Info("observation already processed, skipping",
			"source_id", obs.SourceID,
			"prior_records", len(prior),
		)
		return nil, resolution.Resolution{}, nil, true, nil
	}

	staged := &stagedCommit{ObservationSourceID: obs.SourceID}

	subject, res, err := eng.resolve(ctx, obs, nf, staged)
	if err != nil {
		return nil, resolution.Resolution{}, nil, false, err
	}
	if subject == nil {
		// Resolution rejected the observation; the staged audit explains why.
		if err := eng.committer.Commit(ctx, staged); err != nil {
			return nil, resolution.Resolution{}, nil, false, err
		}
		return nil, res, nil, false, nil
	}

	edgeIDs, err := eng.extractAndValidate(ctx, obs, subject, staged)
	if err != nil {
		return nil, resolution.Resolution{}, nil, false, err
	}

	if err := eng.anomalyFlags(ctx, subject, staged); err != nil {
		return nil, resolution.Resolution{}, nil, false, err
	}

	if err := eng.anachronismFlags(ctx, subject, staged); err != nil {
		return nil, resolution.Resolution{}, nil, false, err
	}

	if err := eng.committer.Commit(ctx, staged); err != nil {
		return nil, resolution.Resolution{}, nil, false, err
	}

	eng.emitReviews(staged.ReviewItems)
	return subject, res, edgeIDs, false, nil
}

// resolve maps the observation onto an entity mutation following the
// decision boundaries. A nil subject means the observation was rejected.
func (eng *Engine) resolve(ctx context.Context, obs *types.RawObservation, nf resolution.NormalizedForm, staged *stagedCommit) (*types.LexicalEntity, resolution.Resolution, error) {
	candidates, err := eng.retriever.Retrieve(ctx, nf, obs.LanguageCode)
	if err != nil {
		return nil, resolution.Resolution{}, err
	}

	scored := make([]resolution.ScoredCandidate, 0, len(candidates))
	for _, cand := range candidates {
		sc, err := eng.scorer.Score(ctx, obs, nf, cand)
		if err != nil {
			return nil, resolution.Resolution{}, err
		}
		scored = append(scored, sc)
	}
	res := resolution.Decide(scored, eng.cfg.Thresholds)

	switch res.Decision {
	case resolution.DecisionAutoMerge, resolution.DecisionMergeFlagged:
		target := res.Best.Entity
		before := auditJSON(target)
		outcome := eng.merger.ApplyMerge(target, obs, nf)
		eng.enrichLanguage(target)

		if err := eng.validator.CheckEntitySchema(target); err != nil {
			staged.AuditRecords = append(staged.AuditRecords, eng.rejectRecord(obs, err))
			return nil, res, nil
		}

		if res.Decision == resolution.DecisionMergeFlagged {
			target.NeedsReview = true
			note := fmt.Sprintf("merge score %.3f below auto-merge threshold", res.Best.Score)
			if res.Tied != nil {
				note = fmt.Sprintf("ambiguous match: %.3f vs %.3f against %s",
					res.Best.Score, res.Tied.Score, res.Tied.Entity.ID)
			}
			staged.ReviewItems = append(staged.ReviewItems, &types.ReviewItem{
				EntityID: &target.ID,
				Reason:   types.ReviewMergeFlagged,
				Priority: 1,
				Note:     note,
			})
		}

		staged.UpdateEntities = append(staged.UpdateEntities, target)
		if outcome.NewAttestation != nil {
			staged.CreateAttestations = append(staged.CreateAttestations, outcome.NewAttestation)
		}
		staged.AuditRecords = append(staged.AuditRecords, &types.AuditRecord{
			ObservationSourceID: obs.SourceID,
			Action:              types.AuditEntityMerged,
			EntityID:            &target.ID,
			Before:              before,
			After:               auditJSON(target),
			Outcome:             string(res.Decision),
		})
		return target, res, nil

	case resolution.DecisionCandidateDuplicate:
		entity := eng.merger.BuildEntity(obs, nf)
		eng.enrichLanguage(entity)
		entity.NeedsReview = true

		if err := eng.validator.CheckEntitySchema(entity); err != nil {
			staged.AuditRecords = append(staged.AuditRecords, eng.rejectRecord(obs, err))
			return nil, res, nil
		}

		dup := eng.merger.DuplicateEdge(entity, res.Best.Entity, res.Best.Score)
		staged.CreateEntities = append(staged.CreateEntities, entity)
		staged.CreateEdges = append(staged.CreateEdges, dup)
		staged.AuditRecords = append(staged.AuditRecords,
			&types.AuditRecord{
				ObservationSourceID: obs.SourceID,
				Action:              types.AuditEntityCreated,
				EntityID:            &entity.ID,
				After:               auditJSON(entity),
				Outcome:             string(res.Decision),
			},
			&types.AuditRecord{
				ObservationSourceID: obs.SourceID,
				Action:              types.AuditEdgeCreated,
				EdgeID:              &dup.ID,
				After:               auditJSON(dup),
				Outcome:             string(res.Decision),
			},
		)
		staged.ReviewItems = append(staged.ReviewItems, &types.ReviewItem{
			EntityID: &entity.ID,
			EdgeID:   &dup.ID,
			Reason:   types.ReviewCandidateDuplicate,
			Note: fmt.Sprintf("score %.3f against %s, below merge threshold",
				res.Best.Score, res.Best.Entity.ID),
		})
		return entity, res, nil

	default: // NEW_ENTITY
		entity := eng.merger.BuildEntity(obs, nf)
		eng.enrichLanguage(entity)

		if err := eng.validator.CheckEntitySchema(entity); err != nil {
			staged.AuditRecords = append(staged.AuditRecords, eng.rejectRecord(obs, err))
			return nil, res, nil
		}

		staged.CreateEntities = append(staged.CreateEntities, entity)
		staged.AuditRecords = append(staged.AuditRecords, &types.AuditRecord{
			ObservationSourceID: obs.SourceID,
			Action:              types.AuditEntityCreated,
			EntityID:            &entity.ID,
			After:               auditJSON(entity),
			Outcome:             string(res.Decision),
		})
		return entity, res, nil
	}
}

// extractAndValidate runs relationship extraction on the subject entity and
// gates each candidate edge through the consistency checks. Cycle-closing
// edges are rejected with an audit record; temporal conflicts commit flagged.
func (eng *Engine) extractAndValidate(ctx context.Context, obs *types.RawObservation, subject *types.LexicalEntity, staged *stagedCommit) ([]uuid.UUID, error) {
	candidates, err := eng.extractor.Extract(ctx, subject, obs.EtymologyText, obs.RelatedForms)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	var (
		edgeIDs  []uuid.UUID
		accepted []*types.Edge
	)
	for _, cand := range candidates {
		existing, err := eng.edges.GetBetween(ctx, nil, cand.SourceID, cand.TargetID, cand.Relation)
		if err != nil {
			return nil, err
		}
		if len(existing) > 0 {
			continue
		}

		evidence, _ := json.Marshal(cand.Evidence)
		edge := &types.Edge{
			ID:           uuid.New(),
			SourceID:     cand.SourceID,
			TargetID:     cand.TargetID,
			Relation:     cand.Relation,
			Confidence:   cand.Confidence,
			ChangeType:   cand.ChangeType,
			DateOfChange: cand.DateOfChange,
			Evidence:     datatypes.JSON(evidence),
		}
		if err := eng.validator.CheckEdgeSchema(edge); err != nil {
			staged.AuditRecords = append(staged.AuditRecords, &types.AuditRecord{
				ObservationSourceID: obs.SourceID,
				Action:              types.AuditEdgeRejected,
				EdgeID:              &edge.ID,
				After:               auditJSON(edge),
				Outcome:             "rejected",
				ErrorCode:           "schema_violation",
			})
			continue
		}

		if edge.Relation.IsAncestral() {
			proposed := append(append([]*types.Edge(nil), accepted...), edge)
			if err := eng.validator.CheckCycles(ctx, proposed); err != nil {
				var cycle *validation.CycleDetectedError
				if errors.As(err, &cycle) {
					eng.log.Warn("rejecting cycle-closing edge",
						"source_id", edge.SourceID.String(),
						"target_id", edge.TargetID.String(),
						"relation", string(edge.Relation),
					)
					staged.AuditRecords = append(staged.AuditRecords, &types.AuditRecord{
						ObservationSourceID: obs.SourceID,
						Action:              types.AuditEdgeRejected,
						EdgeID:              &edge.ID,
						After:               auditJSON(edge),
						Outcome:             "rejected",
						ErrorCode:           "cycle_detected",
					})
					continue
				}
				return nil, err
			}

			if flag := eng.temporalFlag(ctx, edge, subject); flag != nil {
				edge.NeedsReview = true
				staged.ReviewItems = append(staged.ReviewItems, &types.ReviewItem{
					EdgeID: &edge.ID,
					Reason: flag.Reason,
					Note:   flag.Detail,
				})
			}
		}

		accepted = append(accepted, edge)
		edgeIDs = append(edgeIDs, edge.ID)
		staged.CreateEdges = append(staged.CreateEdges, edge)
		staged.AuditRecords = append(staged.AuditRecords, &types.AuditRecord{
			ObservationSourceID: obs.SourceID,
			Action:              types.AuditEdgeCreated,
			EdgeID:              &edge.ID,
			After:               auditJSON(edge),
			Outcome:             "accepted",
		})
	}
	return edgeIDs, nil
}

func (eng *Engine) temporalFlag(ctx context.Context, edge *types.Edge, subject *types.LexicalEntity) *validation.Flag {
	byID := map[uuid.UUID]*types.LexicalEntity{subject.ID: subject}
	var missing []uuid.UUID
	for _, id := range []uuid.UUID{edge.SourceID, edge.TargetID} {
		if byID[id] == nil {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		rows, err := eng.entities.GetByIDs(ctx, nil, missing)
		if err != nil {
			eng.log.Warn("temporal check endpoint fetch failed", "error", err)
			return nil
		}
		for _, e := range rows {
			byID[e.ID] = e
		}
	}
	return eng.validator.CheckTemporal(edge, byID[edge.SourceID], byID[edge.TargetID])
}

func (eng *Engine) anomalyFlags(ctx context.Context, subject *types.LexicalEntity, staged *stagedCommit) error {
	flags, err := eng.validator.CheckAnomalies(ctx, subject)
	if err != nil {
		return err
	}
	for _, f := range flags {
		subject.NeedsReview = true
		staged.ReviewItems = append(staged.ReviewItems, &types.ReviewItem{
			EntityID: &subject.ID,
			Reason:   f.Reason,
			Note:     f.Detail,
		})
	}
	return nil
}

// anachronismFlags checks newly staged attestation excerpts against the
// lexicon: vocabulary attested only after the excerpt's own date marks the
// entity for review. The attestation still commits; dating disputes are for
// humans.
func (eng *Engine) anachronismFlags(ctx context.Context, subject *types.LexicalEntity, staged *stagedCommit) error {
	var atts []*types.Attestation
	atts = append(atts, staged.CreateAttestations...)
	for _, e := range staged.CreateEntities {
		if e.ID == subject.ID {
			atts = append(atts, e.Attestations...)
		}
	}
	for _, a := range atts {
		if a == nil || a.TextExcerpt == "" || a.TextDate == nil {
			continue
		}
		analysis, err := eng.dater.DetectAnachronisms(ctx, a.TextExcerpt, *a.TextDate, subject.LanguageCode)
		if err != nil {
			return err
		}
		if analysis.Verdict == validation.VerdictConsistent {
			continue
		}
		subject.NeedsReview = true
		staged.ReviewItems = append(staged.ReviewItems, &types.ReviewItem{
			EntityID: &subject.ID,
			Reason:   types.ReviewAnachronism,
			Note:     fmt.Sprintf("attestation dated %d: %s", *a.TextDate, analysis.Explanation),
		})
	}
	return nil
}

// propagate recomputes confidences over the touched component after the
// commit, holding every resolution key in the component so no concurrent
// mutation shifts the fixed point mid-pass. A non-converging component is
// routed to the cycle check and flagged for review instead of failing the
// pipeline.
func (eng *Engine) propagate(ctx context.Context, obs *types.RawObservation, subject *types.LexicalEntity) error {
	seeds := []uuid.UUID{subject.ID}
	component, err := eng.propagator.Component(ctx, seeds)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(component)+1)
	keys = append(keys, subject.ResolutionKey())
	for _, e := range component {
		keys = append(keys, e.ResolutionKey())
	}
	release := eng.locks.Acquire(keys...)
	defer release()

	changed, err := eng.propagator.Propagate(ctx, seeds)
	if err != nil {
		if errors.Is(err, validation.ErrNotConverged) {
			return eng.flagNonConvergence(ctx, obs, subject)
		}
		return err
	}
	return eng.committer.applyConfidences(ctx, obs.SourceID, changed)
}

// flagNonConvergence handles a propagation pass that hit its iteration cap:
// the component goes through the cycle check, the outcome is audited, and a
// review item is raised. The already-committed observation stands either way.
func (eng *Engine) flagNonConvergence(ctx context.Context, obs *types.RawObservation, subject *types.LexicalEntity) error {
	outcome := "not_converged"
	note := "confidence propagation hit the iteration cap"

	componentEdges, err := eng.edges.GetTouching(ctx, nil, []uuid.UUID{subject.ID}, true)
	if err != nil {
		return err
	}
	if err := eng.validator.CheckCycles(ctx, componentEdges); err != nil {
		var cycle *validation.CycleDetectedError
		if !errors.As(err, &cycle) {
			return err
		}
		outcome = "cycle_detected"
		note = fmt.Sprintf("confidence propagation hit the iteration cap: %s", cycle.Error())
	}

	eng.log.Warn("confidence propagation did not converge, flagging component",
		"entity_id", subject.ID.String(),
		"source_id", obs.SourceID,
		"outcome", outcome,
	)
	item := &types.ReviewItem{
		EntityID: &subject.ID,
		Reason:   types.ReviewAnomaly,
		Priority: 2,
		Note:     note,
	}
	if err := eng.committer.Commit(ctx, &stagedCommit{
		ObservationSourceID: obs.SourceID,
		ReviewItems:         []*types.ReviewItem{item},
		AuditRecords: []*types.AuditRecord{{
			ObservationSourceID: obs.SourceID,
			Action:              types.AuditPropagationAborted,
			EntityID:            &subject.ID,
			Outcome:             outcome,
			ErrorCode:           outcome,
		}},
	}); err != nil {
		return err
	}
	eng.emitReviews([]*types.ReviewItem{item})
	return nil
}

// discard audits a pre-mutation rejection so reprocessing the same
// observation stays a no-op. Discards happen before the resolution lock, so
// the prior-work check runs here rather than in Process.
func (eng *Engine) discard(ctx context.Context, obs *types.RawObservation, code, detail string) (*Outcome, error) {
	prior, err := eng.audits.GetByObservation(ctx, nil, obs.SourceID)
	if err != nil {
		return nil, err
	}
	if len(prior) > 0 {
		return &Outcome{Skipped: true}, nil
	}

	eng.log.Warn("discarding observation",
		"source_id", obs.SourceID,
		"error_code", code,
		"detail", detail,
	)
	staged := &stagedCommit{
		ObservationSourceID: obs.SourceID,
		AuditRecords: []*types.AuditRecord{{
			ObservationSourceID: obs.SourceID,
			Action:              types.AuditObservationDiscarded,
			Before:              datatypes.JSON(obs.RawPayload),
			Outcome:             "discarded",
			ErrorCode:           code,
		}},
	}
	if err := eng.committer.Commit(ctx, staged); err != nil {
		return nil, err
	}
	return &Outcome{Discarded: true}, nil
}

func (eng *Engine) rejectRecord(obs *types.RawObservation, cause error) *types.AuditRecord {
	eng.log.Warn("rejecting observation",
		"source_id", obs.SourceID,
		"error", cause,
	)
	return &types.AuditRecord{
		ObservationSourceID: obs.SourceID,
		Action:              types.AuditObservationDiscarded,
		Before:              datatypes.JSON(obs.RawPayload),
		Outcome:             "rejected",
		ErrorCode:           "schema_violation",
	}
}

// enrichLanguage fills family and branch from the embedded registry when the
// source did not provide them.
func (eng *Engine) enrichLanguage(e *types.LexicalEntity) {
	lang, ok := eng.registry.ByCode(e.LanguageCode)
	if !ok {
		return
	}
	if e.LanguageName == "" {
		e.LanguageName = lang.Name
	}
	if e.LanguageFamily == "" {
		e.LanguageFamily = lang.Family
	}
	if len(e.LanguageBranch) == 0 && len(lang.Branch) > 0 {
		raw, err := json.Marshal(lang.Branch)
		if err == nil {
			e.LanguageBranch = datatypes.JSON(raw)
		}
	}
}

// emitReviews pushes review items to the queue without blocking or failing
// the pipeline; the persisted review_items rows are the durable copy.
func (eng *Engine) emitReviews(items []*types.ReviewItem) {
	if len(items) == 0 {
		return
	}
	go func() {
		ctx := context.Background()
		for _, item := range items {
			if err := eng.queue.Emit(ctx, item); err != nil {
				eng.log.Warn("review queue emit failed",
					"reason", item.Reason,
					"error", err,
				)
			}
		}
	}()
}
