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

// clldRecord is one form row from a CLDF/lexibank-style export. These
// datasets carry comparative data: segmented forms, concepticon glosses and
// cognate-set memberships, often including reconstructed proto-forms.
type clldRecord struct {
	ID          string  `json:"ID"`
	Form        string  `json:"Form"`
	Segments    string  `json:"Segments"`
	LanguageID  string  `json:"Language_ID"`
	Language    string  `json:"Language_Name"`
	Concept     string  `json:"Parameter_Name"`
	ConceptSet  string  `json:"Concepticon_Gloss"`
	CognateSet  string  `json:"Cognacy"`
	Source      string  `json:"Source"`
	Comment     string  `json:"Comment"`
	ProtoForm   bool    `json:"Proto_Form"`
	DateStart   *int    `json:"Date_Start"`
	DateEnd     *int    `json:"Date_End"`
	DateConf    float64 `json:"Date_Confidence"`
	CognateWith []struct {
		Form       string `json:"Form"`
		LanguageID string `json:"Language_ID"`
	} `json:"Cognate_With"`
}

type clldSource struct {
	log     *logger.Logger
	dataset string
}

// NewCLLDSource reads a CLDF-style JSONL export. The dataset name scopes the
// idempotence keys since several lexibank datasets share record ids.
func NewCLLDSource(log *logger.Logger, dataset string) Source {
	if dataset = strings.TrimSpace(dataset); dataset == "" {
		dataset = "clld"
	}
	return &clldSource{log: log.With("adapter", "clld", "dataset", dataset), dataset: dataset}
}

func (s *clldSource) Name() string { return s.dataset }

func (s *clldSource) Stream(ctx context.Context, r io.Reader, out chan<- *types.RawObservation) error {
	return streamJSONL(ctx, s.log, s.Name(), r, out, s.decode)
}

func (s *clldSource) decode(line []byte) (*types.RawObservation, error) {
	var rec clldRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return nil, err
	}
	if rec.Form == "" || rec.ID == "" {
		return nil, fmt.Errorf("record missing id or form")
	}

	gloss := rec.ConceptSet
	if gloss == "" {
		gloss = rec.Concept
	}

	obs := &types.RawObservation{
		SourceID:       sourceID(s.Name(), rec.ID),
		SourceName:     s.Name(),
		Form:           rec.Form,
		FormPhonetic:   strings.ReplaceAll(rec.Segments, " ", ""),
		LanguageCode:   rec.LanguageID,
		LanguageName:   rec.Language,
		Gloss:          strings.ToLower(strings.TrimSpace(gloss)),
		Reconstruction: rec.ProtoForm || strings.HasPrefix(rec.Form, "*"),
		DateStart:      rec.DateStart,
		DateEnd:        rec.DateEnd,
		DateConfidence: rec.DateConf,
	}
	if rec.ConceptSet != "" {
		obs.SemanticFields = []string{strings.ToLower(rec.ConceptSet)}
	}
	if obs.Reconstruction {
		obs.DateSource = types.DateReconstructed
	} else if obs.DateStart != nil {
		// Comparative datasets date forms by period inference, not by text.
		obs.DateSource = types.DateInterpolated
	}

	for _, cog := range rec.CognateWith {
		if cog.Form == "" || cog.LanguageID == "" {
			continue
		}
		obs.RelatedForms = append(obs.RelatedForms, types.RelatedFormHint{
			Form:         cog.Form,
			LanguageCode: cog.LanguageID,
			Hint:         "cognate",
		})
	}
	return obs, nil
}
