// Package session is the state engine behind the chat surface: it owns the
// transcript, the history navigator and the code scope, and runs the
// idle -> busy -> idle request lifecycle.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"legiscope/internal/analysis"
	"legiscope/internal/backend"
	"legiscope/internal/history"
	"legiscope/internal/scope"
	"legiscope/internal/transcript"
)

const (
	// Apology is appended to the transcript whenever a request fails.
	Apology = "Désolé, l'analyse n'a pas pu aboutir. Veuillez réessayer dans un instant."
	// GenericError is surfaced when the backend gives no detail.
	GenericError = "Impossible de joindre l'assistant juridique. Vérifiez que le serveur est démarré."
)

// ErrStale is reported by Resolve for a Pending that is not the request in
// flight.
var ErrStale = errors.New("session: stale request")

// State is the lifecycle state of the controller.
type State int

const (
	StateIdle State = iota
	StateBusy
)

func (s State) String() string {
	if s == StateBusy {
		return "busy"
	}
	return "idle"
}

// Asker is the part of the backend the controller needs.
type Asker interface {
	Chat(ctx context.Context, req backend.ChatRequest) (backend.ChatReply, error)
}

// Pending describes the request begun by Begin.
type Pending struct {
	ID          uint64
	Question    string
	Request     backend.ChatRequest
	UserMessage transcript.Message
}

// Outcome is what Resolve did.
type Outcome struct {
	OK      bool
	Message transcript.Message
	Record  history.Record
	Err     error
	ErrText string
}

// Session is not safe for concurrent use. Every mutator must run on the
// single goroutine that owns it; only Exchange may run elsewhere.
type Session struct {
	client     Asker
	logger     *zap.Logger
	transcript *transcript.Transcript
	nav        *history.Navigator
	scope      *scope.Selector

	state     State
	errText   string
	conn      Connection
	seq       uint64
	inflight  uint64
	startedAt time.Time
}

// Option configures a Session.
type Option func(*Session)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the transcript timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.transcript = transcript.New(transcript.WithClock(now))
	}
}

func New(client Asker, opts ...Option) *Session {
	s := &Session{
		client:     client,
		logger:     zap.NewNop(),
		transcript: transcript.New(),
		nav:        history.NewNavigator(),
		scope:      scope.NewSelector(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Begin starts a request. It returns false, touching nothing, when the
// question is blank or another request is in flight. Otherwise the session
// goes busy, the question is echoed to the transcript and the previous error
// is cleared.
func (s *Session) Begin(question string) (Pending, bool) {
	question = strings.TrimSpace(question)
	if question == "" || s.state == StateBusy {
		return Pending{}, false
	}
	s.state = StateBusy
	s.errText = ""
	s.seq++
	s.inflight = s.seq
	s.startedAt = time.Now()
	msg := s.transcript.Append(transcript.AuthorUser, question)
	p := Pending{
		ID:       s.seq,
		Question: question,
		Request: backend.ChatRequest{
			Question: question,
			Code:     s.scope.Label(),
		},
		UserMessage: msg,
	}
	s.logger.Debug("request started", zap.Uint64("request", p.ID), zap.Bool("scoped", p.Request.Code != nil))
	return p, true
}

// Exchange performs the network call for p. It does not touch session state
// and may run on another goroutine.
func (s *Session) Exchange(ctx context.Context, p Pending) (backend.ChatReply, error) {
	return s.client.Chat(ctx, p.Request)
}

// Resolve applies the result of p's exchange and returns the session to
// idle. On success the order is transcript append, history push (which also
// moves the navigator to the new record).
func (s *Session) Resolve(p Pending, reply backend.ChatReply, err error) Outcome {
	if s.state != StateBusy || p.ID != s.inflight {
		return Outcome{Err: ErrStale}
	}
	s.state = StateIdle
	elapsed := time.Since(s.startedAt)

	if err != nil {
		text := GenericError
		if detail, ok := backend.DetailOf(err); ok {
			text = detail
		}
		s.errText = text
		msg := s.transcript.Append(transcript.AuthorAssistant, Apology)
		s.logger.Warn("request failed",
			zap.Uint64("request", p.ID),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return Outcome{Message: msg, Err: err, ErrText: text}
	}

	result := analysis.NormalizeAnalysis(reply.Analysis)
	answer := analysis.NormalizeAnswerText(reply.AnswerText())
	display := analysis.DisplayText(analysis.BuildSummary(result), answer)

	msg := s.transcript.Append(transcript.AuthorAssistant, display)
	rec := history.NewRecord(p.Question, p.Request.Code, answer, result, reply)
	s.nav.Push(rec)
	s.logger.Info("request completed",
		zap.Uint64("request", p.ID),
		zap.String("record", rec.ID),
		zap.Stringer("analysis", result.Kind),
		zap.Int("articles", len(rec.Articles)),
		zap.Duration("elapsed", elapsed),
	)
	return Outcome{OK: true, Message: msg, Record: rec}
}

// Submit runs a whole request synchronously. It returns false when Begin
// refused the question.
func (s *Session) Submit(ctx context.Context, question string) (Outcome, bool) {
	p, ok := s.Begin(question)
	if !ok {
		return Outcome{}, false
	}
	reply, err := s.Exchange(ctx, p)
	return s.Resolve(p, reply, err), true
}

func (s *Session) State() State { return s.state }

func (s *Session) Busy() bool { return s.state == StateBusy }

// Err is the user-facing error of the last failed request, cleared by the
// next Begin.
func (s *Session) Err() string { return s.errText }

// ClearErr dismisses the error banner.
func (s *Session) ClearErr() { s.errText = "" }

func (s *Session) Transcript() *transcript.Transcript { return s.transcript }

func (s *Session) History() *history.Navigator { return s.nav }

func (s *Session) Scope() *scope.Selector { return s.scope }

func (s *Session) Connection() Connection { return s.conn }
