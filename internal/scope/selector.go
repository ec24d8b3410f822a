// Package scope implements the single-select legal code toggle that scopes
// subsequent questions.
package scope

import (
	"strings"

	"legiscope/internal/backend"
)

// Selector holds the catalog and at most one selected code.
type Selector struct {
	catalog  []backend.Code
	selected *backend.Code
}

func NewSelector() *Selector { return &Selector{} }

// SetCatalog replaces the catalog. A selection that is no longer listed is
// dropped.
func (s *Selector) SetCatalog(codes []backend.Code) {
	s.catalog = append([]backend.Code(nil), codes...)
	if s.selected == nil {
		return
	}
	for _, code := range s.catalog {
		if sameCode(code, *s.selected) {
			return
		}
	}
	s.selected = nil
}

func (s *Selector) Catalog() []backend.Code {
	return append([]backend.Code(nil), s.catalog...)
}

// Select toggles code: selecting the current code clears the scope back to
// all codes, any other code becomes the sole selection.
func (s *Selector) Select(code backend.Code) {
	if s.selected != nil && sameCode(*s.selected, code) {
		s.selected = nil
		return
	}
	picked := code
	s.selected = &picked
}

// Clear resets the scope to all codes.
func (s *Selector) Clear() { s.selected = nil }

func (s *Selector) Selected() (backend.Code, bool) {
	if s.selected == nil {
		return backend.Code{}, false
	}
	return *s.selected, true
}

// IsSelected reports whether code is the current scope.
func (s *Selector) IsSelected(code backend.Code) bool {
	return s.selected != nil && sameCode(*s.selected, code)
}

// Label is the value sent as the request's code: the selected label, or nil
// for all codes.
func (s *Selector) Label() *string {
	if s.selected == nil {
		return nil
	}
	label := s.selected.Label
	return &label
}

// Filter returns the catalog entries whose label contains query, ignoring
// case. It never touches the selection.
func (s *Selector) Filter(query string) []backend.Code {
	if query == "" {
		return s.Catalog()
	}
	needle := strings.ToLower(query)
	out := make([]backend.Code, 0, len(s.catalog))
	for _, code := range s.catalog {
		if strings.Contains(strings.ToLower(code.Label), needle) {
			out = append(out, code)
		}
	}
	return out
}

// FindByLabel looks a code up by label, ignoring case.
func (s *Selector) FindByLabel(label string) (backend.Code, bool) {
	needle := strings.TrimSpace(label)
	for _, code := range s.catalog {
		if strings.EqualFold(code.Label, needle) {
			return code, true
		}
	}
	return backend.Code{}, false
}

func sameCode(a, b backend.Code) bool {
	if a.ID != "" || b.ID != "" {
		return a.ID == b.ID
	}
	return a.Label == b.Label
}
