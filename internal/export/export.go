// Package export renders a history record as a Markdown report and as a
// printable HTML page.
package export

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"legiscope/internal/analysis"
	"legiscope/internal/history"
)

const (
	Title = "Analyse juridique"

	insufficientText = "Information insuffisante."
	noArgumentText   = "Aucun argument détaillé."
	emptyCitation    = "—"
	rawHeading       = "Réponse brute"
	filePrefix       = "analyse_juridique_"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Markdown renders rec as a self-contained report.
func Markdown(rec history.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", Title)
	fmt.Fprintf(&b, "**Question :** %s\n\n", oneLine(rec.OriginalQuestion))
	fmt.Fprintf(&b, "**Périmètre :** %s · **Mode :** %s · **Date :** %s\n\n", rec.ScopeLabel(), rec.Mode, rec.Timestamp)

	switch rec.Analysis.Kind {
	case analysis.KindStructured:
		writeDebate(&b, rec.Analysis.Debate, rec.Answer)
	case analysis.KindOpaque:
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", rawHeading, strings.TrimSpace(rec.Analysis.Text))
	default:
		fmt.Fprintf(&b, "## Réponse\n\n%s\n\n", strings.TrimSpace(rec.Answer))
	}

	if len(rec.Articles) > 0 {
		b.WriteString("## Articles cités\n\n")
		for _, art := range rec.Articles {
			title := orDash(art.Title)
			fmt.Fprintf(&b, "- **%s**", title)
			if art.Code != "" {
				fmt.Fprintf(&b, " (%s)", art.Code)
			}
			if art.ID != "" {
				fmt.Fprintf(&b, " `%s`", art.ID)
			}
			b.WriteString("\n")
			if excerpt := oneLine(art.Excerpt); excerpt != "" {
				fmt.Fprintf(&b, "  > %s\n", excerpt)
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeDebate(b *strings.Builder, d *analysis.Debate, answer string) {
	if v := strings.TrimSpace(d.ValidationHypothesis); v != "" {
		fmt.Fprintf(b, "## Validation de l'hypothèse\n\n%s\n\n", v)
	}
	if q := strings.TrimSpace(d.Qualification); q != "" {
		fmt.Fprintf(b, "## Qualification\n\n%s\n\n", q)
	}
	if d.HasStances() {
		writeStance(b, "Position favorable", d.PositionPro)
		writeStance(b, "Position contraire", d.PositionContra)
	}
	if len(d.TextesApplicables) > 0 {
		b.WriteString("## Textes applicables\n\n")
		writeList(b, d.TextesApplicables)
	}
	if len(d.Argumentation) > 0 {
		b.WriteString("## Argumentation\n\n")
		writeArguments(b, d.Argumentation)
	}
	if len(d.Risques) > 0 {
		b.WriteString("## Risques\n\n")
		writeList(b, d.Risques)
	}

	if d.HasStances() || len(d.PointsDeVigilance) > 0 {
		b.WriteString("## Points de vigilance\n\n")
		writeList(b, d.PointsDeVigilance)
	}

	b.WriteString("## Synthèse\n\n")
	if s := strings.TrimSpace(d.Synthese); s != "" {
		fmt.Fprintf(b, "%s\n\n", s)
	} else {
		fmt.Fprintf(b, "%s\n\n", insufficientText)
	}

	if len(d.Recommandations) > 0 {
		b.WriteString("## Recommandations\n\n")
		writeList(b, d.Recommandations)
	}

	// Without a usable stance the backend's own answer carries the body.
	if !d.PositionPro.Available() && !d.PositionContra.Available() {
		if text := strings.TrimSpace(answer); text != "" && text != analysis.NoAnswer {
			fmt.Fprintf(b, "## Réponse\n\n%s\n\n", text)
		}
	}
}

func writeStance(b *strings.Builder, heading string, s analysis.Stance) {
	fmt.Fprintf(b, "## %s\n\n", heading)
	if !s.Available() {
		fmt.Fprintf(b, "%s\n\n", insufficientText)
		return
	}
	p := s.Position
	fmt.Fprintf(b, "**Thèse :** %s\n\n", strings.TrimSpace(p.These))
	fmt.Fprintf(b, "**Textes applicables :** %s\n\n", joinOrDash(p.TextesApplicables))

	b.WriteString("### Arguments\n\n")
	if len(p.Arguments) == 0 {
		fmt.Fprintf(b, "%s\n\n", noArgumentText)
	} else {
		writeArguments(b, p.Arguments)
	}

	if len(p.Risques) > 0 {
		b.WriteString("### Risques\n\n")
		writeList(b, p.Risques)
	}
}

func writeArguments(b *strings.Builder, args []analysis.Argument) {
	for i, arg := range args {
		fmt.Fprintf(b, "%d. **%s** : %s\n", i+1, arg.Label(i), orDash(oneLine(arg.Analyse)))
		fmt.Fprintf(b, "   Sources : %s\n", joinOrDash(arg.Sources))
	}
	b.WriteString("\n")
}

func writeList(b *strings.Builder, items analysis.List) {
	if len(items) == 0 {
		fmt.Fprintf(b, "%s\n\n", emptyCitation)
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", oneLine(item))
	}
	b.WriteString("\n")
}

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="fr">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Georgia, "Times New Roman", serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; color: #1b0f35; line-height: 1.5; }
h1, h2, h3 { font-family: Helvetica, Arial, sans-serif; }
h2 { border-bottom: 1px solid #ccc; padding-bottom: .2rem; margin-top: 2rem; }
blockquote { color: #555; border-left: 3px solid #01cdfe; margin-left: 0; padding-left: 1rem; }
code { font-size: .9em; }
@media print { body { margin: 0; max-width: none; } h2 { page-break-after: avoid; } li { page-break-inside: avoid; } }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// HTML renders rec as a standalone printable page.
func HTML(rec history.Record) (string, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(rec)), &body); err != nil {
		return "", fmt.Errorf("export: render markdown: %w", err)
	}
	var out bytes.Buffer
	err := page.Execute(&out, struct {
		Title string
		Body  template.HTML
	}{
		Title: Title + " - " + oneLine(rec.OriginalQuestion),
		Body:  template.HTML(body.String()),
	})
	if err != nil {
		return "", fmt.Errorf("export: render page: %w", err)
	}
	return out.String(), nil
}

// BaseName is the extension-less file name for an export taken at t.
func BaseName(t time.Time) string {
	return filePrefix + t.Format("20060102_150405")
}

// Files are the paths written by Write.
type Files struct {
	Markdown string
	HTML     string
}

// Write stores both renditions of rec in dir, creating it when needed.
func Write(dir string, rec history.Record, now time.Time) (Files, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Files{}, fmt.Errorf("export: create %s: %w", dir, err)
	}
	doc, err := HTML(rec)
	if err != nil {
		return Files{}, err
	}
	base := filepath.Join(dir, BaseName(now))
	files := Files{Markdown: base + ".md", HTML: base + ".html"}
	if err := os.WriteFile(files.Markdown, []byte(Markdown(rec)), 0o644); err != nil {
		return Files{}, fmt.Errorf("export: write markdown: %w", err)
	}
	if err := os.WriteFile(files.HTML, []byte(doc), 0o644); err != nil {
		return Files{}, fmt.Errorf("export: write html: %w", err)
	}
	return files, nil
}

func joinOrDash(items analysis.List) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if s := oneLine(item); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return emptyCitation
	}
	return strings.Join(parts, ", ")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return emptyCitation
	}
	return s
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
