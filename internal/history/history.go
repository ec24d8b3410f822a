// Package history keeps the completed analyses of a session and the
// navigator that decides whether the list or one record is on screen.
package history

import (
	"time"

	"github.com/google/uuid"

	"legiscope/internal/analysis"
	"legiscope/internal/backend"
)

// Record is one completed question. It is never mutated after creation.
type Record struct {
	ID               string
	OriginalQuestion string
	Answer           string
	Analysis         analysis.Result
	Mode             backend.Mode
	Timestamp        string
	CodeScope        *string
	Articles         []backend.Article
}

// NewRecord builds a record from a successful reply. answer must already be
// the cleaned display text.
func NewRecord(question string, scope *string, answer string, result analysis.Result, reply backend.ChatReply) Record {
	var scoped *string
	if scope != nil {
		label := *scope
		scoped = &label
	}
	stamp := reply.Timestamp
	if stamp == "" {
		stamp = time.Now().UTC().Format(time.RFC3339)
	}
	mode := reply.Mode
	if mode == "" {
		mode = backend.ModeOnline
	}
	return Record{
		ID:               uuid.NewString(),
		OriginalQuestion: question,
		Answer:           answer,
		Analysis:         result,
		Mode:             mode,
		Timestamp:        stamp,
		CodeScope:        scoped,
		Articles:         append([]backend.Article(nil), reply.Articles...),
	}
}

// ScopeLabel returns the code label, or "Tous les codes".
func (r Record) ScopeLabel() string {
	if r.CodeScope == nil || *r.CodeScope == "" {
		return "Tous les codes"
	}
	return *r.CodeScope
}
