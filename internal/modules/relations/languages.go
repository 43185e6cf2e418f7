package relations

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed languages.yaml
var languagesYAML []byte

// Language is one entry of the embedded language reference table.
type Language struct {
	Code    string   `yaml:"code"`
	Name    string   `yaml:"name"`
	Family  string   `yaml:"family"`
	Branch  []string `yaml:"branch"`
	Aliases []string `yaml:"aliases"`
	Proto   bool     `yaml:"proto"`
}

// CorrespondencePair is one segment substitution of a family's sound
// correspondence normalization.
type CorrespondencePair struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type correspondenceSet struct {
	Family string               `yaml:"family"`
	Pairs  []CorrespondencePair `yaml:"pairs"`
}

type registryFile struct {
	Languages       []Language          `yaml:"languages"`
	Correspondences []correspondenceSet `yaml:"correspondences"`
}

// Registry resolves language names and codes and carries per-family sound
// correspondence rules for cognate comparison.
type Registry struct {
	byCode   map[string]*Language
	byName   map[string]*Language
	rules    map[string][]CorrespondencePair
	nameList []string // names sorted longest-first for text matching
}

// LoadRegistry parses the embedded language table.
func LoadRegistry() (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(languagesYAML, &file); err != nil {
		return nil, fmt.Errorf("relations: parse language registry: %w", err)
	}

	r := &Registry{
		byCode: map[string]*Language{},
		byName: map[string]*Language{},
		rules:  map[string][]CorrespondencePair{},
	}
	for i := range file.Languages {
		lang := &file.Languages[i]
		if lang.Code == "" || lang.Name == "" {
			return nil, fmt.Errorf("relations: language entry %d missing code or name", i)
		}
		r.byCode[lang.Code] = lang
		r.byName[strings.ToLower(lang.Name)] = lang
		r.nameList = append(r.nameList, lang.Name)
		for _, alias := range lang.Aliases {
			r.byName[strings.ToLower(alias)] = lang
			r.nameList = append(r.nameList, alias)
		}
	}
	for _, set := range file.Correspondences {
		pairs := make([]CorrespondencePair, len(set.Pairs))
		copy(pairs, set.Pairs)
		// Longest-first so digraphs apply before single segments.
		sort.SliceStable(pairs, func(i, j int) bool {
			return len(pairs[i].From) > len(pairs[j].From)
		})
		r.rules[set.Family] = pairs
	}
	sort.SliceStable(r.nameList, func(i, j int) bool {
		return len(r.nameList[i]) > len(r.nameList[j])
	})
	return r, nil
}

func (r *Registry) ByCode(code string) (*Language, bool) {
	l, ok := r.byCode[strings.TrimSpace(code)]
	return l, ok
}

func (r *Registry) ByName(name string) (*Language, bool) {
	l, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return l, ok
}

// Names returns every known language name and alias, longest first, for
// matching inside etymology text.
func (r *Registry) Names() []string {
	return r.nameList
}

// Siblings lists languages sharing the family and at least the first two
// branch segments with code, excluding code itself. These are the languages
// the cognate extractor compares against.
func (r *Registry) Siblings(code string) []*Language {
	base, ok := r.byCode[code]
	if !ok || len(base.Branch) == 0 {
		return nil
	}
	var out []*Language
	for _, cand := range r.byCode {
		if cand.Code == base.Code || cand.Family != base.Family {
			continue
		}
		if sharedPrefix(base.Branch, cand.Branch) >= minSharedBranch(base.Branch) {
			out = append(out, cand)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Normalize applies the family's sound correspondences to a form so that
// regularly-corresponding cognates compare as near-identical strings.
func (r *Registry) Normalize(form, family string) string {
	pairs, ok := r.rules[family]
	if !ok {
		return form
	}
	out := strings.ToLower(form)
	for _, p := range pairs {
		out = strings.ReplaceAll(out, p.From, p.To)
	}
	return out
}

func sharedPrefix(a, b []string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// Languages one step below the family root (e.g. proto-languages) treat the
// whole family as siblings; deeper languages require a shared sub-branch.
func minSharedBranch(branch []string) int {
	if len(branch) <= 1 {
		return 1
	}
	return 2
}
