package stub

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"legiscope/internal/backend"
)

// Codes is the fixed catalog served by /api/codes.
var Codes = []backend.Code{
	{ID: "1", Label: "Code civil"},
	{ID: "2", Label: "Code du travail"},
	{ID: "3", Label: "Code de commerce"},
	{ID: "4", Label: "Code pénal"},
	{ID: "5", Label: "Code de la route"},
	{ID: "6", Label: "Code de la santé publique"},
	{ID: "7", Label: "Code de l'action sociale et des familles"},
	{ID: "8", Label: "Code de l'éducation"},
	{ID: "9", Label: "Code de la propriété intellectuelle"},
	{ID: "10", Label: "Code de l'environnement"},
	{ID: "11", Label: "Code général des impôts"},
	{ID: "12", Label: "Code des postes et des communications électroniques"},
}

type codeHint struct {
	label    string
	keywords []string
}

// Checked in order; the first code with a matching keyword wins.
var codeHints = []codeHint{
	{"Code du travail", []string{"cdd", "contrat à durée déterminée", "contrat duree", "licenciement", "employeur", "salarie", "salarié", "prud'h", "prudhom"}},
	{"Code civil", []string{"responsabilité civile", "responsabilite", "contrat civil", "obligation", "dommage", "préjudice", "prejudice"}},
	{"Code de commerce", []string{"commerce", "société", "entreprise", "actionnaire", "cession parts"}},
	{"Code pénal", []string{"infraction", "délit", "crime", "pénal", "sanction pénale"}},
	{"Code de la route", []string{"permis", "conduite", "vehicule", "véhicule", "route", "infraction routière"}},
}

// sampleArticles are returned with simulated answers, keyed by code label.
var sampleArticles = map[string][]backend.Article{
	"Code civil": {
		{ID: "SIM-CCIV-1240", Title: "Article 1240", Code: "Code civil", Excerpt: "Tout fait quelconque de l'homme, qui cause à autrui un dommage, oblige celui par la faute duquel il est arrivé à le réparer."},
		{ID: "SIM-CCIV-1241", Title: "Article 1241", Code: "Code civil", Excerpt: "Chacun est responsable du dommage qu'il a causé non seulement par son fait, mais encore par sa négligence ou par son imprudence."},
	},
	"Code du travail": {
		{ID: "SIM-CTRAV-L1242-1", Title: "Article L1242-1", Code: "Code du travail", Excerpt: "Un contrat de travail à durée déterminée, quel que soit son motif, ne peut avoir ni pour objet ni pour effet de pourvoir durablement un emploi lié à l'activité normale et permanente de l'entreprise."},
	},
	"Code de commerce": {
		{ID: "SIM-CCOM-L210-6", Title: "Article L210-6", Code: "Code de commerce", Excerpt: "Les sociétés commerciales jouissent de la personnalité morale à dater de leur immatriculation au registre du commerce et des sociétés."},
	},
	"Code pénal": {
		{ID: "SIM-CPEN-121-3", Title: "Article 121-3", Code: "Code pénal", Excerpt: "Il n'y a point de crime ou de délit sans intention de le commettre."},
	},
	"Code de la route": {
		{ID: "SIM-CROUTE-L221-2", Title: "Article L221-2", Code: "Code de la route", Excerpt: "Le fait de conduire un véhicule sans être titulaire du permis de conduire correspondant à la catégorie du véhicule considéré est puni d'un an d'emprisonnement et de 15 000 euros d'amende."},
	},
}

// knownCode reports whether label is in the catalog, ignoring case, and
// returns the canonical label.
func knownCode(label string) (string, bool) {
	needle := strings.TrimSpace(label)
	for _, code := range Codes {
		if strings.EqualFold(code.Label, needle) {
			return code.Label, true
		}
	}
	return "", false
}

// inferCode guesses a code from the question wording.
func inferCode(question string) (string, bool) {
	q := strings.ToLower(question)
	for _, hint := range codeHints {
		if _, ok := knownCode(hint.label); !ok {
			continue
		}
		for _, token := range hint.keywords {
			if strings.Contains(q, token) {
				return hint.label, true
			}
		}
	}
	return "", false
}

var (
	wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	stopwords   = map[string]bool{
		"le": true, "la": true, "les": true, "un": true, "une": true, "de": true, "du": true,
		"des": true, "et": true, "ou": true, "dans": true, "pour": true, "par": true, "sur": true,
	}
)

// keywords extracts at most five search words from text.
func keywords(text string) []string {
	out := make([]string, 0, 5)
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if utf8.RuneCountInString(w) <= 3 || stopwords[w] {
			continue
		}
		out = append(out, w)
		if len(out) == 5 {
			break
		}
	}
	return out
}
