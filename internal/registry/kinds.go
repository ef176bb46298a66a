// Package registry binds the generic collection editor to the registry's
// concrete child collections: contributors and keywords of software, links
// and participating organisations of projects.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"rsd-cli/internal/collection"
	"rsd-cli/internal/postgrest"
)

type Kind string

const (
	KindContributors  Kind = "contributors"
	KindKeywords      Kind = "keywords"
	KindLinks         Kind = "links"
	KindOrganisations Kind = "organisations"
)

var ErrUnknownKind = errors.New("unknown collection kind")

// Kinds lists every editable collection in display order.
func Kinds() []Kind {
	return []Kind{KindContributors, KindKeywords, KindLinks, KindOrganisations}
}

func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds() {
		if string(k) == s || strings.TrimSuffix(string(k), "s") == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q (want one of %s)", ErrUnknownKind, s, kindList())
}

func kindList() string {
	names := make([]string, 0, len(Kinds()))
	for _, k := range Kinds() {
		names = append(names, string(k))
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// Field is one editable attribute of a collection item.
type Field struct {
	Key      string
	Label    string
	Required bool
	Help     string
}

// Spec describes one kind of child collection.
type Spec[T collection.Item[T]] struct {
	Kind Kind
	// Noun names one item, e.g. "keyword".
	Noun string
	// Parent names the owning record type, "software" or "project".
	Parent    string
	Endpoint  postgrest.Endpoint
	Fields    []Field
	Duplicate func(existing, candidate T) bool

	get   func(T, string) string
	set   func(T, string, string) T
	title func(T) string
	check func(T) error
}

// Title is the one-line label of an item in lists.
func (s Spec[T]) Title(item T) string { return s.title(item) }

// Value returns the current text of a field.
func (s Spec[T]) Value(item T, key string) string { return s.get(item, key) }

// Values returns every field of item keyed by Field.Key.
func (s Spec[T]) Values(item T) map[string]string {
	out := make(map[string]string, len(s.Fields))
	for _, f := range s.Fields {
		out[f.Key] = s.get(item, f.Key)
	}
	return out
}

// Apply copies field values onto item and validates the result. Keys not
// present in values are left unchanged.
func (s Spec[T]) Apply(item T, values map[string]string) (T, error) {
	var zero T
	for key := range values {
		if !s.hasField(key) {
			return zero, fmt.Errorf("%s has no field %q: %w", s.Noun, key, postgrest.ErrValidation)
		}
	}
	for _, f := range s.Fields {
		v, ok := values[f.Key]
		if !ok {
			continue
		}
		item = s.set(item, f.Key, strings.TrimSpace(v))
	}
	for _, f := range s.Fields {
		if f.Required && strings.TrimSpace(s.get(item, f.Key)) == "" {
			return zero, fmt.Errorf("%s is required: %w", f.Label, postgrest.ErrValidation)
		}
	}
	if s.check != nil {
		if err := s.check(item); err != nil {
			return zero, fmt.Errorf("%w: %w", err, postgrest.ErrValidation)
		}
	}
	return item, nil
}

func (s Spec[T]) hasField(key string) bool {
	for _, f := range s.Fields {
		if f.Key == key {
			return true
		}
	}
	return false
}

// NewEditor returns an editor for parentID's collection of this kind.
func (s Spec[T]) NewEditor(client *postgrest.Client, parentID string, opts collection.EditorOptions[T]) *collection.Editor[T] {
	if opts.Noun == "" {
		opts.Noun = s.Noun
	}
	if opts.Duplicate == nil {
		opts.Duplicate = s.Duplicate
	}
	return collection.NewEditor[T](parentID, postgrest.NewCollection[T](client, s.Endpoint), opts)
}

func optional(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1":
		return true
	}
	return false
}
