package relations

import (
	"context"
	"encoding/json"
	"fmt"

	types "github.com/yungbote/lexigraph-backend/internal/domain"
	"github.com/yungbote/lexigraph-backend/internal/pkg/phonetics"
)

// cognateSimilarityMin gates COGNATE_OF emission: correspondence-normalized
// phonetic similarity must reach this level.
const defaultCognateThreshold = 0.8

// cognates compares the entity's phonetic form against same-meaning entities
// in sibling languages, after normalizing both sides through the family's
// sound correspondences.
func (x *Extractor) cognates(ctx context.Context, e *types.LexicalEntity) ([]CandidateEdge, error) {
	lang, ok := x.registry.ByCode(e.LanguageCode)
	if !ok {
		return nil, nil
	}

	var out []CandidateEdge
	base := x.registry.Normalize(comparableForm(e), lang.Family)
	for _, sibling := range x.registry.Siblings(lang.Code) {
		rows, err := x.reader.ByLanguage(ctx, sibling.Code, languageScanLimit)
		if err != nil {
			return nil, err
		}
		for _, cand := range rows {
			if cand == nil || cand.ID == e.ID || !sameMeaning(e, cand) {
				continue
			}
			sim := phonetics.Similarity(base, x.registry.Normalize(comparableForm(cand), sibling.Family))
			if sim < x.cognateThreshold {
				continue
			}
			out = append(out, CandidateEdge{
				SourceID:   e.ID,
				TargetID:   cand.ID,
				Relation:   types.RelCognateOf,
				Confidence: sim,
				Evidence: []string{fmt.Sprintf(
					"sound correspondence: %s %q ~ %s %q (similarity %.2f)",
					lang.Code, comparableForm(e), sibling.Code, comparableForm(cand), sim,
				)},
				Extractor: extractorCognate,
			})
		}
	}
	return out, nil
}

// classifyBorrowing disambiguates an inheritance-or-borrowing pair. Regular
// sound correspondence points to inheritance; irregular correspondence, or a
// technical/prestige register, points to borrowing.
func (x *Extractor) classifyBorrowing(e, donor *types.LexicalEntity) types.RelationType {
	family := ""
	if lang, ok := x.registry.ByCode(e.LanguageCode); ok {
		family = lang.Family
	}

	raw := phonetics.Similarity(comparableForm(e), comparableForm(donor))
	corresponded := phonetics.Similarity(
		x.registry.Normalize(comparableForm(e), family),
		x.registry.Normalize(comparableForm(donor), family),
	)

	// Regularity: correspondence rules should explain the divergence. When
	// they do, the normalized forms converge well beyond the raw ones.
	regular := corresponded >= raw && corresponded >= x.cognateThreshold

	prestige := e.Register == types.RegisterTechnical ||
		e.Register == types.RegisterLiterary ||
		e.Register == types.RegisterSacred

	if regular && !prestige {
		return types.RelDescendsFrom
	}
	return types.RelBorrowedFrom
}

// comparableForm prefers the phonetic transcription and falls back to the
// normalized orthographic form.
func comparableForm(e *types.LexicalEntity) string {
	if e.FormPhonetic != "" {
		return e.FormPhonetic
	}
	return e.FormNormalized
}

// sameMeaning holds when glosses match or any semantic field is shared.
func sameMeaning(a, b *types.LexicalEntity) bool {
	if a.DefinitionPrimary != "" && a.DefinitionPrimary == b.DefinitionPrimary {
		return true
	}
	af := jsonStringSet(a.SemanticFields)
	if len(af) == 0 {
		return false
	}
	for _, f := range jsonStringList(b.SemanticFields) {
		if af[f] {
			return true
		}
	}
	return false
}

func jsonStringList(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	_ = json.Unmarshal(raw, &out)
	return out
}

func jsonStringSet(raw []byte) map[string]bool {
	out := map[string]bool{}
	for _, s := range jsonStringList(raw) {
		if s != "" {
			out[s] = true
		}
	}
	return out
}
