package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legiscope/internal/backend"
)

var catalog = []backend.Code{
	{ID: "1", Label: "Code civil"},
	{ID: "2", Label: "Code du travail"},
	{ID: "5", Label: "Code de la route"},
	{ID: "11", Label: "Code général des impôts"},
}

func TestSelectToggles(t *testing.T) {
	s := NewSelector()
	s.SetCatalog(catalog)
	assert.Nil(t, s.Label(), "starts on all codes")

	s.Select(catalog[1])
	require.NotNil(t, s.Label())
	assert.Equal(t, "Code du travail", *s.Label())

	s.Select(catalog[1])
	assert.Nil(t, s.Label(), "second toggle returns to all codes")
	_, ok := s.Selected()
	assert.False(t, ok)
}

func TestSelectReplacesPreviousCode(t *testing.T) {
	s := NewSelector()
	s.SetCatalog(catalog)

	s.Select(catalog[0])
	s.Select(catalog[2])

	got, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, catalog[2], got)
	assert.False(t, s.IsSelected(catalog[0]))
	assert.True(t, s.IsSelected(catalog[2]))
}

func TestFilterIsCaseInsensitiveAndKeepsSelection(t *testing.T) {
	s := NewSelector()
	s.SetCatalog(catalog)
	s.Select(catalog[0])

	got := s.Filter("ROUTE")
	assert.Equal(t, []backend.Code{catalog[2]}, got)

	assert.Len(t, s.Filter("code"), len(catalog))
	assert.Len(t, s.Filter(""), len(catalog))
	assert.Empty(t, s.Filter("pénal"))
	assert.True(t, s.IsSelected(catalog[0]), "filtering must not change the selection")
}

func TestSetCatalogDropsStaleSelection(t *testing.T) {
	s := NewSelector()
	s.SetCatalog(catalog)
	s.Select(catalog[3])

	s.SetCatalog(catalog[:2])
	_, ok := s.Selected()
	assert.False(t, ok)
}

func TestFindByLabel(t *testing.T) {
	s := NewSelector()
	s.SetCatalog(catalog)

	code, ok := s.FindByLabel("code du TRAVAIL")
	require.True(t, ok)
	assert.Equal(t, "2", code.ID)

	_, ok = s.FindByLabel("Code rural")
	assert.False(t, ok)
}

func TestFilterKeepsSpacesInQuery(t *testing.T) {
	s := NewSelector()
	s.SetCatalog(catalog)

	assert.Equal(t, []backend.Code{catalog[2]}, s.Filter("de la "))
	assert.Equal(t, []backend.Code{catalog[1]}, s.Filter(" du "))
	assert.Empty(t, s.Filter("civil "))
	assert.Empty(t, s.Filter("  "))
}
