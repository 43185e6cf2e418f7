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

// wiktionaryRecord is the shape of one extracted dictionary entry, after the
// upstream dump has been flattened to JSONL.
type wiktionaryRecord struct {
	ID        string `json:"id"`
	Word      string `json:"word"`
	Lang      string `json:"lang"`
	LangCode  string `json:"lang_code"`
	Pos       string `json:"pos"`
	Etymology string `json:"etymology_text"`
	Senses    []struct {
		Glosses []string `json:"glosses"`
		Topics  []string `json:"topics"`
	} `json:"senses"`
	Sounds []struct {
		IPA string `json:"ipa"`
	} `json:"sounds"`
	Related []struct {
		Word     string `json:"word"`
		LangCode string `json:"lang_code"`
		Kind     string `json:"kind"`
	} `json:"related"`
}

type wiktionarySource struct {
	log *logger.Logger
}

// NewWiktionarySource reads flattened dictionary-dump JSONL.
func NewWiktionarySource(log *logger.Logger) Source {
	return &wiktionarySource{log: log.With("adapter", "wiktionary")}
}

func (s *wiktionarySource) Name() string { return "wiktionary" }

func (s *wiktionarySource) Stream(ctx context.Context, r io.Reader, out chan<- *types.RawObservation) error {
	return streamJSONL(ctx, s.log, s.Name(), r, out, s.decode)
}

func (s *wiktionarySource) decode(line []byte) (*types.RawObservation, error) {
	var rec wiktionaryRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return nil, err
	}
	if rec.Word == "" {
		return nil, fmt.Errorf("record without word")
	}
	if rec.ID == "" {
		rec.ID = rec.LangCode + "/" + rec.Word + "/" + rec.Pos
	}

	obs := &types.RawObservation{
		SourceID:      sourceID(s.Name(), rec.ID),
		SourceName:    s.Name(),
		Form:          rec.Word,
		LanguageCode:  rec.LangCode,
		LanguageName:  rec.Lang,
		EtymologyText: strings.TrimSpace(rec.Etymology),
	}
	if rec.Pos != "" {
		obs.PartOfSpeech = []string{rec.Pos}
	}
	if len(rec.Sounds) > 0 {
		obs.FormPhonetic = rec.Sounds[0].IPA
	}

	for i, sense := range rec.Senses {
		for j, gloss := range sense.Glosses {
			gloss = strings.TrimSpace(gloss)
			if gloss == "" {
				continue
			}
			if i == 0 && j == 0 {
				obs.Gloss = gloss
			} else {
				obs.DefinitionsAlternate = append(obs.DefinitionsAlternate, gloss)
			}
		}
		obs.SemanticFields = append(obs.SemanticFields, sense.Topics...)
	}

	for _, rel := range rec.Related {
		if rel.Word == "" || rel.LangCode == "" {
			continue
		}
		obs.RelatedForms = append(obs.RelatedForms, types.RelatedFormHint{
			Form:         rel.Word,
			LanguageCode: rel.LangCode,
			Hint:         rel.Kind,
		})
	}
	return obs, nil
}
