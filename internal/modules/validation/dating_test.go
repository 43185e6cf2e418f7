package validation

import (
	"context"
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/lexigraph-backend/internal/domain"
)

type fakeLexicon struct {
	byForm map[string][2]int
}

func (f *fakeLexicon) ByNormalizedForm(_ context.Context, form, lang string) ([]*types.LexicalEntity, error) {
	r, ok := f.byForm[form]
	if !ok || lang != "eng" {
		return nil, nil
	}
	start, end := r[0], r[1]
	return []*types.LexicalEntity{{
		ID:             uuid.New(),
		FormNormalized: form,
		LanguageCode:   lang,
		DateStart:      &start,
		DateEnd:        &end,
	}}, nil
}

func TestDateTextPredictsRange(t *testing.T) {
	lex := &fakeLexicon{byForm: map[string][2]int{
		"thou": {1400, 1700},
		"hast": {1500, 1650},
	}}
	d := NewTextDater(lex, testLogger(t))

	got, err := d.DateText(context.Background(), "thou hast dragons", "eng")
	if err != nil {
		t.Fatalf("date text: %v", err)
	}
	if got.PredictedStart != 1500 || got.PredictedEnd != 1650 {
		t.Fatalf("predicted [%d,%d], want [1500,1650]", got.PredictedStart, got.PredictedEnd)
	}
	if got.MatchedTokens != 2 || got.AnalyzedTokens != 3 {
		t.Fatalf("matched %d of %d tokens", got.MatchedTokens, got.AnalyzedTokens)
	}
	// coverage 2/3, agreement 1: both ranges cover the midpoint 1575.
	if !approx(got.Confidence, 2.0/3.0*0.5+0.5) {
		t.Fatalf("confidence = %v", got.Confidence)
	}
	if len(got.Diagnostic) != 1 || got.Diagnostic[0].Word != "hast" {
		t.Fatalf("diagnostic vocabulary = %+v, want the 150-year word", got.Diagnostic)
	}
	if !approx(got.Diagnostic[0].Value, 0.25) {
		t.Fatalf("diagnostic value = %v, want 0.25", got.Diagnostic[0].Value)
	}
}

func TestDateTextDisjointRangesFallBackToMedian(t *testing.T) {
	lex := &fakeLexicon{byForm: map[string][2]int{
		"blade":  {1000, 1100},
		"pistol": {1500, 1600},
		"helm":   {1200, 1300},
	}}
	d := NewTextDater(lex, testLogger(t))

	got, err := d.DateText(context.Background(), "blade pistol helm", "eng")
	if err != nil {
		t.Fatalf("date text: %v", err)
	}
	if got.PredictedStart != 1200 || got.PredictedEnd != 1300 {
		t.Fatalf("predicted [%d,%d], want median fallback [1200,1300]", got.PredictedStart, got.PredictedEnd)
	}
	// coverage 1, agreement 1/3: only one range covers the midpoint.
	if !approx(got.Confidence, 0.5+1.0/3.0*0.5) {
		t.Fatalf("confidence = %v", got.Confidence)
	}
}

func TestDateTextNoMatches(t *testing.T) {
	d := NewTextDater(&fakeLexicon{byForm: map[string][2]int{}}, testLogger(t))
	got, err := d.DateText(context.Background(), "entirely unknown vocabulary", "eng")
	if err != nil {
		t.Fatalf("date text: %v", err)
	}
	if got.MatchedTokens != 0 || got.Confidence != 0 || got.PredictedStart != 0 || got.PredictedEnd != 0 {
		t.Fatalf("unmatched text must not date: %+v", got)
	}
}

func TestDetectAnachronismsVerdicts(t *testing.T) {
	lex := &fakeLexicon{byForm: map[string][2]int{
		"sword":     {900, 1600},
		"telephone": {1876, 2000},
		"railway":   {1820, 2000},
		"cannon":    {1400, 1900},
		"doublet":   {1230, 1650},
	}}
	d := NewTextDater(lex, testLogger(t))
	ctx := context.Background()

	cases := []struct {
		name       string
		text       string
		claimed    int
		verdict    string
		confidence float64
		flagged    int
	}{
		{
			name:       "consistent vocabulary",
			text:       "sword against sword",
			claimed:    1200,
			verdict:    VerdictConsistent,
			confidence: 1.0,
			flagged:    0,
		},
		{
			name:       "minor gap stays consistent",
			text:       "a sword and a doublet",
			claimed:    1200,
			verdict:    VerdictConsistent,
			confidence: 0.9,
			flagged:    1,
		},
		{
			name:       "few significant gaps are suspicious",
			text:       "a sword beside the railway",
			claimed:    1200,
			verdict:    VerdictSuspicious,
			confidence: 0.6,
			flagged:    1,
		},
		{
			name:       "many significant gaps are anachronistic",
			text:       "telephone railway cannon sword",
			claimed:    1200,
			verdict:    VerdictAnachronistic,
			confidence: 0.3,
			flagged:    3,
		},
	}
	for _, c := range cases {
		got, err := d.DetectAnachronisms(ctx, c.text, c.claimed, "eng")
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if got.Verdict != c.verdict {
			t.Fatalf("%s: verdict = %s, want %s", c.name, got.Verdict, c.verdict)
		}
		if !approx(got.Confidence, c.confidence) {
			t.Fatalf("%s: confidence = %v, want %v", c.name, got.Confidence, c.confidence)
		}
		if len(got.Anachronisms) != c.flagged {
			t.Fatalf("%s: flagged %d words, want %d", c.name, len(got.Anachronisms), c.flagged)
		}
	}
}

func TestDetectAnachronismsOrdersByGap(t *testing.T) {
	lex := &fakeLexicon{byForm: map[string][2]int{
		"telephone": {1876, 2000},
		"railway":   {1820, 2000},
	}}
	d := NewTextDater(lex, testLogger(t))

	got, err := d.DetectAnachronisms(context.Background(), "railway telephone", 1200, "eng")
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(got.Anachronisms) != 2 || got.Anachronisms[0].Word != "telephone" {
		t.Fatalf("largest gap must sort first: %+v", got.Anachronisms)
	}
	if got.Anachronisms[0].GapYears != 676 || got.Anachronisms[0].Severity != "high" {
		t.Fatalf("gap/severity wrong: %+v", got.Anachronisms[0])
	}
}
