package relations

import (
	"context"
	"fmt"
	"strings"

	types "github.com/yungbote/lexigraph-backend/internal/domain"
	"github.com/yungbote/lexigraph-backend/internal/pkg/phonetics"
)

// hintConfidence applies to relationships the source names explicitly in its
// related-forms list. Asserted but not independently verified.
const hintConfidence = 0.7

// fromHints turns the observation's related-form list into candidate edges,
// keeping only hints that resolve to a stored entity.
func (x *Extractor) fromHints(ctx context.Context, e *types.LexicalEntity, hints []types.RelatedFormHint) ([]CandidateEdge, error) {
	var out []CandidateEdge
	for _, h := range hints {
		if h.Form == "" || h.LanguageCode == "" {
			continue
		}
		// Normalized keys keep the proto star, so the hint form keeps it too.
		form := strings.ToLower(strings.TrimSpace(phonetics.StripDiacritics(h.Form)))
		rows, err := x.reader.ByNormalizedForm(ctx, form, h.LanguageCode)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 || rows[0] == nil || rows[0].ID == e.ID {
			continue
		}
		other := rows[0]

		edge := CandidateEdge{
			Confidence: hintConfidence,
			Evidence:   []string{fmt.Sprintf("source-listed %s form: %s %q", h.Hint, h.LanguageCode, h.Form)},
			Extractor:  extractorHint,
		}
		switch strings.ToLower(h.Hint) {
		case "cognate":
			edge.SourceID, edge.TargetID = e.ID, other.ID
			edge.Relation = types.RelCognateOf
		case "descendant":
			// The listed form descends from this entity.
			edge.SourceID, edge.TargetID = e.ID, other.ID
			edge.Relation = types.RelDescendsFrom
		case "ancestor", "etymon":
			edge.SourceID, edge.TargetID = other.ID, e.ID
			edge.Relation = types.RelDescendsFrom
		case "borrowing", "loan":
			edge.SourceID, edge.TargetID = other.ID, e.ID
			edge.Relation = types.RelBorrowedFrom
		default:
			continue
		}
		out = append(out, edge)
	}
	return out, nil
}
