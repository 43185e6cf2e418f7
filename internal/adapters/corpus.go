package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	types "github.com/yungbote/lexigraph-backend/internal/domain"
	"github.com/yungbote/lexigraph-backend/internal/pkg/logger"
)

// corpusRecord is one lemma row from a historical corpus export: frequency
// plus a dated citation.
type corpusRecord struct {
	ID           string  `json:"id"`
	Lemma        string  `json:"lemma"`
	LangCode     string  `json:"lang_code"`
	Pos          string  `json:"pos"`
	Register     string  `json:"register"`
	FreqPerMille float64 `json:"freq_per_mille"`
	Citation     *struct {
		Text     string  `json:"text"`
		Work     string  `json:"work"`
		Year     *int    `json:"year"`
		YearConf float64 `json:"year_confidence"`
		Page     string  `json:"page"`
		URL      string  `json:"url"`
	} `json:"citation"`
	PeriodStart *int `json:"period_start"`
	PeriodEnd   *int `json:"period_end"`
}

type corpusSource struct {
	log    *logger.Logger
	corpus string
}

// NewCorpusSource reads historical-corpus frequency JSONL. The corpus name
// becomes the source database and frequency provenance.
func NewCorpusSource(log *logger.Logger, corpus string) Source {
	if corpus = strings.TrimSpace(corpus); corpus == "" {
		corpus = "corpus"
	}
	return &corpusSource{log: log.With("adapter", "corpus", "corpus", corpus), corpus: corpus}
}

func (s *corpusSource) Name() string { return s.corpus }

func (s *corpusSource) Stream(ctx context.Context, r io.Reader, out chan<- *types.RawObservation) error {
	return streamJSONL(ctx, s.log, s.Name(), r, out, s.decode)
}

func (s *corpusSource) decode(line []byte) (*types.RawObservation, error) {
	var rec corpusRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return nil, err
	}
	if rec.Lemma == "" || rec.ID == "" {
		return nil, fmt.Errorf("record missing id or lemma")
	}

	obs := &types.RawObservation{
		SourceID:        sourceID(s.Name(), rec.ID),
		SourceName:      s.Name(),
		Form:            rec.Lemma,
		LanguageCode:    rec.LangCode,
		Register:        corpusRegister(rec.Register),
		FrequencyScore:  rec.FreqPerMille,
		FrequencySource: s.Name(),
		DateStart:       rec.PeriodStart,
		DateEnd:         rec.PeriodEnd,
	}
	if rec.Pos != "" {
		obs.PartOfSpeech = []string{rec.Pos}
	}
	if rec.Citation != nil {
		obs.Attestation = &types.AttestationInput{
			TextExcerpt:        rec.Citation.Text,
			TextSource:         rec.Citation.Work,
			TextDate:           rec.Citation.Year,
			TextDateConfidence: rec.Citation.YearConf,
			PageReference:      rec.Citation.Page,
			URL:                rec.Citation.URL,
		}
		if rec.Citation.Year != nil {
			obs.DateSource = types.DateAttested
		}
	}
	return obs, nil
}

func corpusRegister(raw string) types.Register {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "FORMAL":
		return types.RegisterFormal
	case "COLLOQUIAL":
		return types.RegisterColloquial
	case "TECHNICAL":
		return types.RegisterTechnical
	case "SACRED":
		return types.RegisterSacred
	case "LITERARY":
		return types.RegisterLiterary
	case "SLANG":
		return types.RegisterSlang
	default:
		return ""
	}
}
