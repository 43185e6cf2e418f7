package resolution

import (
	"context"

	"github.com/google/uuid"

	types "github.com/yungbote/lexigraph-backend/internal/domain"
	"github.com/yungbote/lexigraph-backend/internal/pkg/logger"
	"github.com/yungbote/lexigraph-backend/internal/pkg/phonetics"
)

// CandidateIndex is the read-only store surface the retriever needs. The
// production implementation wraps the entity repo; tests supply fakes.
type CandidateIndex interface {
	ByNormalizedForm(ctx context.Context, formNormalized, languageCode string) ([]*types.LexicalEntity, error)
	ByPhoneticCode(ctx context.Context, phoneticCode, languageCode string, limit int) ([]*types.LexicalEntity, error)
	ByLanguage(ctx context.Context, languageCode string, limit int) ([]*types.LexicalEntity, error)
}

const (
	// DefaultCandidateCap bounds the candidate set handed to the scorer.
	DefaultCandidateCap = 50
	// editDistanceMax is the fuzzy-neighbor radius on normalized keys.
	editDistanceMax = 2
	// languageScanLimit bounds the per-language scan backing the
	// edit-distance pass. A trigram index would replace this at scale.
	languageScanLimit = 500
)

type Retriever struct {
	index CandidateIndex
	log   *logger.Logger
	cap   int
}

func NewRetriever(index CandidateIndex, baseLog *logger.Logger, candidateCap int) *Retriever {
	if candidateCap <= 0 {
		candidateCap = DefaultCandidateCap
	}
	return &Retriever{
		index: index,
		log:   baseLog.With("component", "CandidateRetriever"),
		cap:   candidateCap,
	}
}

// Retrieve fetches the bounded set of plausibly-identical entities for a
// normalized form within one language: exact key matches first, then
// edit-distance neighbors, then phonetic-code neighbors. An empty result is
// a valid outcome (drives new-entity creation), never an error.
func (r *Retriever) Retrieve(ctx context.Context, nf NormalizedForm, languageCode string) ([]*types.LexicalEntity, error) {
	if nf.Key == "" || languageCode == "" {
		return nil, nil
	}

	seen := map[uuid.UUID]bool{}
	out := make([]*types.LexicalEntity, 0, r.cap)
	add := func(rows []*types.LexicalEntity) {
		for _, e := range rows {
			if e == nil || e.ID == uuid.Nil || seen[e.ID] || len(out) >= r.cap {
				continue
			}
			seen[e.ID] = true
			out = append(out, e)
		}
	}

	exact, err := r.index.ByNormalizedForm(ctx, nf.Key, languageCode)
	if err != nil {
		return nil, err
	}
	add(exact)
	if len(out) >= r.cap {
		return out, nil
	}

	scanned, err := r.index.ByLanguage(ctx, languageCode, languageScanLimit)
	if err != nil {
		return nil, err
	}
	for _, e := range scanned {
		if e == nil || seen[e.ID] {
			continue
		}
		// Cheap length pre-filter before the DP distance.
		if lenDiff(nf.Key, e.FormNormalized) > editDistanceMax {
			continue
		}
		if phonetics.Levenshtein(nf.Key, e.FormNormalized) <= editDistanceMax {
			add([]*types.LexicalEntity{e})
			if len(out) >= r.cap {
				return out, nil
			}
		}
	}

	if nf.PhoneticCode != "" {
		phonetic, err := r.index.ByPhoneticCode(ctx, nf.PhoneticCode, languageCode, r.cap)
		if err != nil {
			return nil, err
		}
		add(phonetic)
	}

	return out, nil
}

func lenDiff(a, b string) int {
	la := len([]rune(a))
	lb := len([]rune(b))
	if la > lb {
		return la - lb
	}
	return lb - la
}
