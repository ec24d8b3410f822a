package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legiscope/internal/analysis"
	"legiscope/internal/backend"
	"legiscope/internal/history"
)

func structuredRecord(t *testing.T) history.Record {
	t.Helper()
	result := analysis.NormalizeAnalysis([]byte(`{
		"position_pro": {
			"these": "Le salarié peut obtenir la requalification",
			"textes_applicables": ["Article L1242-1"],
			"arguments": [{"point": "Motif absent", "analyse": "Le contrat ne précise aucun motif.", "sources": []}, "Durée excessive"],
			"risques": ["Prescription"]
		},
		"position_contra": "INFORMATION_INSUFFISANTE",
		"points_de_vigilance": "Délai de deux ans",
		"synthese": "La requalification est probable."
	}`))
	require.True(t, result.IsStructured())
	label := "Code du travail"
	return history.NewRecord("Mon CDD peut-il être requalifié ?", &label, "réponse", result, backend.ChatReply{
		Timestamp: "2025-05-02T09:00:00",
		Mode:      backend.ModeOffline,
		Articles:  []backend.Article{{ID: "LEGIARTI000006901194", Title: "Article L1242-1", Code: "Code du travail", Excerpt: "Un contrat de travail\nà durée déterminée..."}},
	})
}

func TestMarkdownStructured(t *testing.T) {
	out := Markdown(structuredRecord(t))

	for _, want := range []string{
		"# Analyse juridique",
		"**Question :** Mon CDD peut-il être requalifié ?",
		"**Périmètre :** Code du travail · **Mode :** offline",
		"**Thèse :** Le salarié peut obtenir la requalification",
		"1. **Motif absent** : Le contrat ne précise aucun motif.",
		"   Sources : —",
		"2. **Argument 2** : Durée excessive",
		"## Position contraire\n\nInformation insuffisante.",
		"- Délai de deux ans",
		"## Synthèse\n\nLa requalification est probable.",
		"- **Article L1242-1** (Code du travail) `LEGIARTI000006901194`",
		"  > Un contrat de travail à durée déterminée...",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "Réponse brute")
	assert.Less(t, strings.Index(out, "Position favorable"), strings.Index(out, "Position contraire"))
}

func TestMarkdownPositionWithoutArguments(t *testing.T) {
	result := analysis.NormalizeAnalysis([]byte(`{"position_pro": {"these": "T"}, "synthese": ""}`))
	rec := history.NewRecord("q", nil, "a", result, backend.ChatReply{})
	out := Markdown(rec)

	assert.Contains(t, out, "Aucun argument détaillé.")
	assert.Contains(t, out, "**Textes applicables :** —")
	assert.Contains(t, out, "## Synthèse\n\nInformation insuffisante.")
	assert.Contains(t, out, "**Périmètre :** Tous les codes")
}

func TestMarkdownOpaqueAndAbsent(t *testing.T) {
	opaque := history.NewRecord("q", nil, "la réponse", analysis.Opaque("texte non structuré"), backend.ChatReply{})
	out := Markdown(opaque)
	assert.Contains(t, out, "## Réponse brute\n\ntexte non structuré")
	assert.NotContains(t, out, "Position favorable")

	absent := history.NewRecord("q", nil, "la réponse", analysis.Absent(), backend.ChatReply{})
	out = Markdown(absent)
	assert.Contains(t, out, "## Réponse\n\nla réponse")
	assert.NotContains(t, out, "Articles cités")
}

func TestMarkdownFlatPipelinePayload(t *testing.T) {
	result := analysis.NormalizeAnalysis([]byte(`{
		"validation_hypothesis": "CORRIGÉE : la rupture relève de la faute grave",
		"qualification": "Faute grave",
		"textes_applicables": ["LEGIARTI000006901112"],
		"argumentation": ["Abandon de poste caractérisé [[source:LEGIARTI000006901112]]"],
		"hypotheses": [],
		"risques": ["Contestation devant les prud'hommes"],
		"synthese": "Le licenciement est fondé.",
		"recommandations": [],
		"metadata": {"nombre_sources": 1}
	}`))
	require.True(t, result.IsStructured())
	answer := "### Qualification\nFaute grave\n\n### Argumentation\n- Abandon de poste caractérisé"
	rec := history.NewRecord("Abandon de poste ?", nil, answer, result, backend.ChatReply{})
	out := Markdown(rec)

	for _, want := range []string{
		"## Validation de l'hypothèse\n\nCORRIGÉE : la rupture relève de la faute grave",
		"## Qualification\n\nFaute grave",
		"## Textes applicables\n\n- LEGIARTI000006901112",
		"1. **Argument 1** : Abandon de poste caractérisé [[source:LEGIARTI000006901112]]",
		"## Risques\n\n- Contestation devant les prud'hommes",
		"## Synthèse\n\nLe licenciement est fondé.",
		"## Réponse\n\n### Qualification",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "Position favorable")
	assert.NotContains(t, out, "Information insuffisante.")
	assert.NotContains(t, out, "Points de vigilance")
}

func TestMarkdownBothSentinelsKeepsAnswer(t *testing.T) {
	result := analysis.NormalizeAnalysis([]byte(`{"position_pro": "INFORMATION_INSUFFISANTE", "position_contra": "INFORMATION_INSUFFISANTE", "synthese": ""}`))
	rec := history.NewRecord("q", nil, "corps de la réponse", result, backend.ChatReply{})
	out := Markdown(rec)

	assert.Contains(t, out, "## Position favorable\n\nInformation insuffisante.")
	assert.Contains(t, out, "## Réponse\n\ncorps de la réponse")
	assert.NotContains(t, Markdown(structuredRecord(t)), "## Réponse\n")
}

func TestHTML(t *testing.T) {
	rec := structuredRecord(t)
	rec.OriginalQuestion = "<script>alert(1)</script>"
	page, err := HTML(rec)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	assert.Contains(t, page, "@media print")
	assert.Contains(t, page, "<h1>Analyse juridique</h1>")
	assert.Contains(t, page, "<h2>Position favorable</h2>")
	assert.NotContains(t, page, "<script>alert(1)</script>")
}

func TestWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	now := time.Date(2025, 5, 2, 9, 30, 15, 0, time.Local)

	files, err := Write(dir, structuredRecord(t), now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "analyse_juridique_20250502_093015.md"), files.Markdown)
	assert.Equal(t, filepath.Join(dir, "analyse_juridique_20250502_093015.html"), files.HTML)

	raw, err := os.ReadFile(files.Markdown)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Position favorable")
	_, err = os.Stat(files.HTML)
	assert.NoError(t, err)
}
