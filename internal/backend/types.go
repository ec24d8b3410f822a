// Package backend is the HTTP client for the legal assistant API: health,
// code catalog and chat completion.
package backend

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Mode reports whether the backend answered with its model or its offline
// simulation.
type Mode string

const (
	ModeOnline  Mode = "online"
	ModeOffline Mode = "offline"
)

// Health is the /api/health payload.
type Health struct {
	Status string `json:"status"`
	Mode   Mode   `json:"mode"`
}

// EffectiveMode treats a missing mode as online.
func (h Health) EffectiveMode() Mode {
	if strings.TrimSpace(string(h.Mode)) == "" {
		return ModeOnline
	}
	return h.Mode
}

// Code is one entry of the legal code catalog.
type Code struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type codesResponse struct {
	Codes []Code `json:"codes"`
}

// ChatRequest is the /api/chat body. A nil Code means "all codes".
type ChatRequest struct {
	Question string  `json:"question"`
	Code     *string `json:"code"`
}

// Article is citation metadata passed through to the history untouched.
type Article struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Code    string `json:"code"`
	Excerpt string `json:"excerpt"`
	Source  string `json:"source,omitempty"`
}

// QueryAnalysis carries the search keywords and hypothesis the backend used.
type QueryAnalysis struct {
	Keywords   []string `json:"keywords,omitempty"`
	Hypothesis string   `json:"hypothesis,omitempty"`
}

// ChatReply is the /api/chat payload. Answer and Analysis stay raw: their
// shape varies between backend revisions.
type ChatReply struct {
	Question      string          `json:"question"`
	Code          *string         `json:"code"`
	Answer        json.RawMessage `json:"answer"`
	Analysis      json.RawMessage `json:"analysis"`
	Articles      []Article       `json:"articles"`
	QueryAnalysis *QueryAnalysis  `json:"query_analysis,omitempty"`
	Timestamp     string          `json:"timestamp"`
	Mode          Mode            `json:"mode"`
	Error         string          `json:"error,omitempty"`
}

// AnswerText returns the answer as a string. A JSON string is unquoted, null
// is empty, and any other value is returned as its JSON text.
func (r ChatReply) AnswerText() string {
	trimmed := bytes.TrimSpace(r.Answer)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err == nil {
			return text
		}
	}
	return string(trimmed)
}
