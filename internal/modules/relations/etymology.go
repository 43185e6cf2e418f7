package relations

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	types "github.com/yungbote/lexigraph-backend/internal/domain"
)

// Etymology markers, checked in order: the most specific phrasing wins.
// Each marker binds the language name that follows it (and optionally the
// cited form after the language name).
var etymologyMarkers = []struct {
	pattern  *regexp.Regexp
	relation types.RelationType
	// ambiguous markers ("from X") cannot distinguish inheritance from
	// borrowing on their own; the borrowing classifier settles them.
	ambiguous bool
}{
	{regexp.MustCompile(`(?i)\binherited\s+from\s+(.+)`), types.RelDescendsFrom, false},
	{regexp.MustCompile(`(?i)\bdescend(?:s|ed)?\s+from\s+(.+)`), types.RelDescendsFrom, false},
	{regexp.MustCompile(`(?i)\bborrow(?:ed|ing)\s+from\s+(.+)`), types.RelBorrowedFrom, false},
	{regexp.MustCompile(`(?i)\bloan(?:word)?\s+from\s+(.+)`), types.RelBorrowedFrom, false},
	{regexp.MustCompile(`(?i)\bcognate\s+(?:with|of)\s+(.+)`), types.RelCognateOf, false},
	{regexp.MustCompile(`(?i)\bfrom\s+(.+)`), types.RelDescendsFrom, true},
}

// citedForm pulls the first word-like token after a matched language name,
// e.g. `libertas` out of "from Latin libertas".
var citedFormPattern = regexp.MustCompile(`^[\s,]*[*]?([\p{L}][\p{L}'-]*)`)

// etymologyRef is one parsed mention: relation, donor language, and the
// cited donor form when present.
type etymologyRef struct {
	relation  types.RelationType
	language  *Language
	form      string
	ambiguous bool
	evidence  string
}

// parseEtymology scans the etymology text for relationship markers followed
// by a known language name. One text can yield several references
// ("borrowed from Old French liberte, from Latin libertas").
func (x *Extractor) parseEtymology(text string) []etymologyRef {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var refs []etymologyRef
	// Split on clause boundaries so each marker binds its own clause.
	clauses := regexp.MustCompile(`[;,]| which | that `).Split(text, -1)
	for _, clause := range clauses {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		for _, marker := range etymologyMarkers {
			m := marker.pattern.FindStringSubmatch(clause)
			if m == nil {
				continue
			}
			rest := strings.TrimSpace(m[1])
			lang, tail, ok := x.leadingLanguage(rest)
			if !ok {
				continue
			}
			ref := etymologyRef{
				relation:  marker.relation,
				language:  lang,
				ambiguous: marker.ambiguous,
				evidence:  fmt.Sprintf("etymology: %q", clause),
			}
			if fm := citedFormPattern.FindStringSubmatch(tail); fm != nil {
				ref.form = strings.ToLower(fm[1])
			}
			refs = append(refs, ref)
			break // first matching marker owns the clause
		}
	}
	return refs
}

// leadingLanguage matches the longest known language name (or alias) at the
// start of s and returns the remainder.
func (x *Extractor) leadingLanguage(s string) (*Language, string, bool) {
	lowered := strings.ToLower(s)
	for _, name := range x.registry.Names() {
		ln := strings.ToLower(name)
		if !strings.HasPrefix(lowered, ln) {
			continue
		}
		// Name must end at a word boundary.
		rest := s[len(name):]
		if rest != "" {
			r := rest[0]
			if r != ' ' && r != ',' && r != '.' && r != ';' {
				continue
			}
		}
		return x.mustLanguage(name), rest, true
	}
	return nil, "", false
}

func (x *Extractor) mustLanguage(name string) *Language {
	l, _ := x.registry.ByName(name)
	return l
}

// fromEtymology resolves parsed references against the store and produces
// candidate edges pointing ancestor/donor -> entity.
func (x *Extractor) fromEtymology(ctx context.Context, e *types.LexicalEntity, etymologyText string) ([]CandidateEdge, error) {
	refs := x.parseEtymology(etymologyText)
	if len(refs) == 0 {
		return nil, nil
	}

	var out []CandidateEdge
	for _, ref := range refs {
		donor, err := x.resolveDonor(ctx, ref, e)
		if err != nil {
			return nil, err
		}
		if donor == nil {
			x.log.Debug("etymology reference did not resolve to a stored entity",
				"entity_id", e.ID.String(),
				"donor_language", ref.language.Code,
				"donor_form", ref.form,
			)
			continue
		}
		if donor.ID == e.ID {
			continue
		}
		edge := CandidateEdge{
			SourceID:   donor.ID,
			TargetID:   e.ID,
			Relation:   ref.relation,
			Confidence: 0.75,
			Evidence:   []string{ref.evidence},
			Extractor:  extractorEtymology,
		}
		if ref.relation == types.RelCognateOf {
			// Cognacy is symmetric; keep entity as source for readability.
			edge.SourceID, edge.TargetID = e.ID, donor.ID
			edge.Confidence = 0.7
		}
		if ref.ambiguous {
			edge.Relation = x.classifyBorrowing(e, donor)
			edge.Confidence = 0.65
			edge.Evidence = append(edge.Evidence, "direction disambiguated by sound-change regularity")
			if edge.Relation == types.RelBorrowedFrom {
				edge.Extractor = extractorBorrowing
			}
		}
		out = append(out, edge)
	}
	return out, nil
}

// resolveDonor finds the stored entity an etymology reference points at:
// by cited form when present, otherwise the single same-gloss entity in the
// donor language.
func (x *Extractor) resolveDonor(ctx context.Context, ref etymologyRef, e *types.LexicalEntity) (*types.LexicalEntity, error) {
	if ref.form != "" {
		rows, err := x.reader.ByNormalizedForm(ctx, ref.form, ref.language.Code)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			return rows[0], nil
		}
		return nil, nil
	}

	// No cited form: fall back to a same-meaning lookup in the donor
	// language, accepting only an unambiguous single hit.
	rows, err := x.reader.ByLanguage(ctx, ref.language.Code, languageScanLimit)
	if err != nil {
		return nil, err
	}
	var match *types.LexicalEntity
	for _, cand := range rows {
		if cand == nil || !sameMeaning(e, cand) {
			continue
		}
		if match != nil {
			return nil, nil // ambiguous
		}
		match = cand
	}
	return match, nil
}
