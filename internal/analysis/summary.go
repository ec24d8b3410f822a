package analysis

import "strings"

// BuildSummary derives the transcript synopsis of a structured analysis:
// pro block, contra block, then synthesis, separated by blank lines. It
// returns "" for anything that is not structured.
func BuildSummary(r Result) string {
	if !r.IsStructured() {
		return ""
	}
	d := r.Debate
	clauses := make([]string, 0, 5)
	clauses = appendStance(clauses, d.PositionPro, "Position favorable", "Argument clé")
	clauses = appendStance(clauses, d.PositionContra, "Position contraire", "Contre-argument")
	if synthese := strings.TrimSpace(d.Synthese); synthese != "" {
		clauses = append(clauses, "Synthèse : "+synthese)
	}
	return strings.Join(clauses, "\n\n")
}

func appendStance(clauses []string, s Stance, thesisLabel, argumentLabel string) []string {
	if !s.Available() {
		return clauses
	}
	clauses = append(clauses, thesisLabel+" : "+strings.TrimSpace(s.Position.These))
	if first, ok := s.Position.FirstArgument(); ok && strings.TrimSpace(first.Analyse) != "" {
		clauses = append(clauses, argumentLabel+" : "+strings.TrimSpace(first.Analyse))
	}
	return clauses
}
