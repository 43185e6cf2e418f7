package validation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	types "github.com/yungbote/lexigraph-backend/internal/domain"
	"github.com/yungbote/lexigraph-backend/internal/pkg/logger"
)

// LexiconReader resolves normalized forms against the stored lexicon.
type LexiconReader interface {
	ByNormalizedForm(ctx context.Context, formNormalized, languageCode string) ([]*types.LexicalEntity, error)
}

const (
	// diagnosticSpanYears is the widest attestation range a word can have
	// and still count as dating-diagnostic.
	diagnosticSpanYears = 200
	// anachronismGapHigh / anachronismGapMedium band the years between a
	// text's claimed date and a word's earliest attestation.
	anachronismGapHigh   = 100
	anachronismGapMedium = 50
	// datingKeepMax caps the reported diagnostic words and anachronisms.
	datingKeepMax = 20
)

// Anachronism verdicts, strongest last.
const (
	VerdictConsistent    = "consistent"
	VerdictSuspicious    = "suspicious"
	VerdictAnachronistic = "anachronistic"
)

// datingStopWords are high-frequency words with no dating value.
var datingStopWords = map[string]bool{
	"the": true, "and": true, "but": true, "for": true, "with": true,
	"from": true, "was": true, "were": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "does": true, "did": true,
	"will": true, "would": true, "could": true, "should": true, "may": true,
	"might": true, "must": true, "shall": true, "can": true, "need": true,
	"this": true, "that": true, "these": true, "those": true, "its": true,
	"she": true, "they": true, "you": true, "him": true, "her": true,
	"them": true, "your": true, "his": true, "their": true, "our": true,
	"who": true, "what": true, "which": true, "when": true, "where": true,
	"how": true, "all": true, "each": true, "every": true, "both": true,
	"few": true, "more": true, "most": true, "other": true, "some": true,
	"such": true, "not": true, "only": true, "same": true, "than": true,
	"too": true, "very": true, "just": true, "also": true, "now": true,
	"here": true, "there": true, "then": true, "because": true,
}

// DiagnosticWord is a matched word whose narrow attestation range pins the
// text's date. Value grows as the range narrows.
type DiagnosticWord struct {
	Word      string
	DateStart int
	DateEnd   int
	Value     float64
}

// DateAnalysis is the result of dating a text by vocabulary attestation.
type DateAnalysis struct {
	PredictedStart int
	PredictedEnd   int
	Confidence     float64
	Diagnostic     []DiagnosticWord
	AnalyzedTokens int
	MatchedTokens  int
}

// Anachronism is a word attested only after a text's claimed date.
type Anachronism struct {
	Word                string
	EarliestAttestation int
	GapYears            int
	Severity            string // high, medium, low
}

// AnachronismAnalysis is the verdict on a text against its claimed date.
type AnachronismAnalysis struct {
	Anachronisms []Anachronism
	Verdict      string
	Confidence   float64
	Explanation  string
}

// TextDater dates texts and detects anachronisms from the attestation ranges
// of the vocabulary they use.
type TextDater struct {
	lexicon LexiconReader
	log     *logger.Logger
}

func NewTextDater(lexicon LexiconReader, log *logger.Logger) *TextDater {
	return &TextDater{lexicon: lexicon, log: log.With("component", "text_dater")}
}

// DateText predicts the date range of a text: the intersection of the
// attestation ranges of its matched vocabulary, falling back to medians when
// the ranges are disjoint. Confidence blends lexicon coverage with how many
// words agree on the prediction.
func (d *TextDater) DateText(ctx context.Context, text, languageCode string) (*DateAnalysis, error) {
	tokens := tokenizeWords(text)
	content := contentTokens(tokens)
	analysis := &DateAnalysis{AnalyzedTokens: len(tokens)}
	if len(content) == 0 {
		return analysis, nil
	}

	cache := map[string]*types.LexicalEntity{}
	var ranges [][2]int
	var diagnostics []DiagnosticWord
	for _, token := range content {
		row, err := d.lookup(ctx, cache, token, languageCode)
		if err != nil {
			return nil, err
		}
		if row == nil || row.DateStart == nil || row.DateEnd == nil {
			continue
		}
		analysis.MatchedTokens++
		ranges = append(ranges, [2]int{*row.DateStart, *row.DateEnd})
		if span := *row.DateEnd - *row.DateStart; span < diagnosticSpanYears {
			diagnostics = append(diagnostics, DiagnosticWord{
				Word:      token,
				DateStart: *row.DateStart,
				DateEnd:   *row.DateEnd,
				Value:     1 - float64(span)/diagnosticSpanYears,
			})
		}
	}
	if len(ranges) == 0 {
		return analysis, nil
	}

	analysis.PredictedStart, analysis.PredictedEnd = predictedRange(ranges)
	coverage := float64(analysis.MatchedTokens) / float64(len(content))
	agreement := rangeAgreement(ranges, analysis.PredictedStart, analysis.PredictedEnd)
	analysis.Confidence = coverage*0.5 + agreement*0.5
	if analysis.Confidence > 1 {
		analysis.Confidence = 1
	}

	sort.Slice(diagnostics, func(i, j int) bool { return diagnostics[i].Value > diagnostics[j].Value })
	if len(diagnostics) > datingKeepMax {
		diagnostics = diagnostics[:datingKeepMax]
	}
	analysis.Diagnostic = diagnostics
	return analysis, nil
}

// DetectAnachronisms flags vocabulary attested only after the claimed date.
// A gap over anachronismGapMedium years counts as significant; three or more
// significant gaps turn the verdict anachronistic.
func (d *TextDater) DetectAnachronisms(ctx context.Context, text string, claimedDate int, languageCode string) (*AnachronismAnalysis, error) {
	content := contentTokens(tokenizeWords(text))

	cache := map[string]*types.LexicalEntity{}
	reported := map[string]bool{}
	var anachronisms []Anachronism
	significant := 0
	for _, token := range content {
		if reported[token] {
			continue
		}
		row, err := d.lookup(ctx, cache, token, languageCode)
		if err != nil {
			return nil, err
		}
		if row == nil || row.DateStart == nil || *row.DateStart <= claimedDate {
			continue
		}
		reported[token] = true
		gap := *row.DateStart - claimedDate
		severity := "low"
		switch {
		case gap > anachronismGapHigh:
			severity = "high"
		case gap > anachronismGapMedium:
			severity = "medium"
		}
		if severity != "low" {
			significant++
		}
		anachronisms = append(anachronisms, Anachronism{
			Word:                token,
			EarliestAttestation: *row.DateStart,
			GapYears:            gap,
			Severity:            severity,
		})
	}

	out := &AnachronismAnalysis{}
	switch {
	case len(anachronisms) == 0:
		out.Verdict = VerdictConsistent
		out.Confidence = 1.0
		out.Explanation = "no anachronistic vocabulary detected"
	case significant == 0:
		out.Verdict = VerdictConsistent
		out.Confidence = 0.9
		out.Explanation = fmt.Sprintf("%d minor anachronisms, within dating uncertainty", len(anachronisms))
	case significant <= 2:
		out.Verdict = VerdictSuspicious
		out.Confidence = 0.6
		out.Explanation = fmt.Sprintf("%d significant anachronisms detected", significant)
	default:
		out.Verdict = VerdictAnachronistic
		out.Confidence = 0.3
		out.Explanation = fmt.Sprintf("%d significant anachronisms, text unlikely to be from claimed date", significant)
	}

	sort.Slice(anachronisms, func(i, j int) bool { return anachronisms[i].GapYears > anachronisms[j].GapYears })
	if len(anachronisms) > datingKeepMax {
		anachronisms = anachronisms[:datingKeepMax]
	}
	out.Anachronisms = anachronisms
	return out, nil
}

func (d *TextDater) lookup(ctx context.Context, cache map[string]*types.LexicalEntity, token, languageCode string) (*types.LexicalEntity, error) {
	if row, ok := cache[token]; ok {
		return row, nil
	}
	rows, err := d.lexicon.ByNormalizedForm(ctx, token, languageCode)
	if err != nil {
		return nil, err
	}
	var row *types.LexicalEntity
	if len(rows) > 0 {
		row = rows[0]
	}
	cache[token] = row
	return row, nil
}

func tokenizeWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

func contentTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if len(t) > 2 && !datingStopWords[t] {
			out = append(out, t)
		}
	}
	return out
}

// predictedRange intersects the word ranges: the text must postdate every
// word's coinage and predate every word's obsolescence. Disjoint ranges fall
// back to the medians.
func predictedRange(ranges [][2]int) (int, int) {
	start := ranges[0][0]
	end := ranges[0][1]
	for _, r := range ranges[1:] {
		if r[0] > start {
			start = r[0]
		}
		if r[1] < end {
			end = r[1]
		}
	}
	if start <= end {
		return start, end
	}

	starts := make([]int, len(ranges))
	ends := make([]int, len(ranges))
	for i, r := range ranges {
		starts[i] = r[0]
		ends[i] = r[1]
	}
	start = medianInt(starts)
	end = medianInt(ends)
	if start > end {
		mid := (start + end) / 2
		start = mid - 50
		end = mid + 50
	}
	return start, end
}

// rangeAgreement is the share of word ranges covering the prediction's
// midpoint.
func rangeAgreement(ranges [][2]int, start, end int) float64 {
	mid := (start + end) / 2
	supporting := 0
	for _, r := range ranges {
		if r[0] <= mid && mid <= r[1] {
			supporting++
		}
	}
	return float64(supporting) / float64(len(ranges))
}

func medianInt(values []int) int {
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
