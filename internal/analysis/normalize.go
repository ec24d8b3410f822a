package analysis

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// NoAnswer replaces an empty answer so the transcript never shows a blank
// assistant message.
const NoAnswer = "Aucune réponse."

// fencePattern matches a whole-string fenced block: marker, optional
// language tag, newline, body, marker.
var fencePattern = regexp.MustCompile("^```[A-Za-z0-9_+.-]*[ \\t]*\\r?\\n((?s).*?)```$")

// StripFence removes one optional fenced wrapper and trims the result.
// Unfenced text is returned trimmed.
func StripFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if match := fencePattern.FindStringSubmatch(trimmed); match != nil {
		return strings.TrimSpace(match[1])
	}
	return trimmed
}

// NormalizeAnalysis classifies the raw "analysis" field of a chat reply.
// Objects are taken as structured data directly; strings are unfenced and
// parsed; anything unparseable is kept as opaque text.
func NormalizeAnalysis(raw json.RawMessage) Result {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Absent()
	}
	switch trimmed[0] {
	case '{':
		var debate Debate
		if err := json.Unmarshal(trimmed, &debate); err != nil {
			return Opaque(string(trimmed))
		}
		return Structured(debate)
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return Opaque(string(trimmed))
		}
		return NormalizeText(text)
	default:
		return Opaque(string(trimmed))
	}
}

// NormalizeText applies the string branch of NormalizeAnalysis to text that
// has already been decoded.
func NormalizeText(text string) Result {
	body := StripFence(text)
	if body == "" {
		return Absent()
	}
	if strings.HasPrefix(body, "{") {
		var debate Debate
		if err := json.Unmarshal([]byte(body), &debate); err == nil {
			return Structured(debate)
		}
	}
	return Opaque(body)
}

// NormalizeAnswerText cleans the free-text answer for display.
func NormalizeAnswerText(raw string) string {
	body := StripFence(raw)
	if body == "" {
		return NoAnswer
	}
	return body
}

// DisplayText picks the transcript text for a completed exchange: the debate
// summary when there is one, the cleaned answer otherwise.
func DisplayText(summary, answer string) string {
	if strings.TrimSpace(summary) != "" {
		return summary
	}
	return NormalizeAnswerText(answer)
}
