package resolution

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/yungbote/lexigraph-backend/internal/pkg/phonetics"
)

// MalformedFormError rejects observations whose written form cannot produce
// a usable lookup key. These observations are discarded, never retried.
type MalformedFormError struct {
	Form string
}

func (e *MalformedFormError) Error() string {
	return fmt.Sprintf("malformed form: %q produces no normalized key", e.Form)
}

// NormalizedForm carries the canonical lookup key and the retrieval-only
// phonetic code for one written form.
type NormalizedForm struct {
	Key          string
	PhoneticCode string
}

// Normalize canonicalizes a raw written form: case-fold, diacritic-strip,
// collapse punctuation and whitespace runs into single spaces. The phonetic
// code is computed from the same cleaned form and is used only for candidate
// retrieval, never for identity.
func Normalize(form string) (NormalizedForm, error) {
	lowered := strings.ToLower(strings.TrimSpace(form))
	stripped := phonetics.StripDiacritics(lowered)

	var b strings.Builder
	b.Grow(len(stripped))
	lastSpace := false
	for _, r := range stripped {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(r)
			lastSpace = false
		case r == '\'' || r == '*':
			// Apostrophes and the proto-form star are meaningful in
			// lexical data; keep them verbatim.
			b.WriteRune(r)
			lastSpace = false
		default:
			// Punctuation, whitespace and control characters collapse.
			if !lastSpace && b.Len() > 0 {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	key := strings.TrimSpace(b.String())
	if key == "" || key == "*" {
		return NormalizedForm{}, &MalformedFormError{Form: form}
	}

	return NormalizedForm{
		Key:          key,
		PhoneticCode: phonetics.Code(key),
	}, nil
}
