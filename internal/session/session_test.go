package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"legiscope/internal/backend"
	"legiscope/internal/history"
	"legiscope/internal/transcript"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type chatResult struct {
	reply backend.ChatReply
	err   error
}

type fakeBackend struct {
	results  []chatResult
	requests []backend.ChatRequest
	onChat   func(req backend.ChatRequest)

	health    backend.Health
	healthErr error
	codes     []backend.Code
	codesErr  error
}

func (f *fakeBackend) Chat(_ context.Context, req backend.ChatRequest) (backend.ChatReply, error) {
	f.requests = append(f.requests, req)
	if f.onChat != nil {
		f.onChat(req)
	}
	if len(f.results) == 0 {
		return backend.ChatReply{Answer: json.RawMessage(`"ok"`)}, nil
	}
	next := f.results[0]
	f.results = f.results[1:]
	return next.reply, next.err
}

func (f *fakeBackend) Health(context.Context) (backend.Health, error) { return f.health, f.healthErr }

func (f *fakeBackend) Codes(context.Context) ([]backend.Code, error) { return f.codes, f.codesErr }

const debateJSON = `{
	"position_pro": {"these": "X", "arguments": [{"analyse": "Y"}]},
	"position_contra": "INFORMATION_INSUFFISANTE",
	"points_de_vigilance": [],
	"synthese": "S"
}`

func structuredReply() backend.ChatReply {
	return backend.ChatReply{
		Answer:    json.RawMessage(`"texte brut"`),
		Analysis:  json.RawMessage(debateJSON),
		Articles:  []backend.Article{{ID: "LEGIARTI1", Title: "Article 1240", Code: "Code civil", Excerpt: "Tout fait quelconque..."}},
		Timestamp: "2025-05-02T09:00:00",
		Mode:      backend.ModeOffline,
	}
}

func TestBlankQuestionIsNoop(t *testing.T) {
	fake := &fakeBackend{}
	s := New(fake)

	for _, q := range []string{"", "   ", "\n\t"} {
		_, ok := s.Submit(context.Background(), q)
		assert.False(t, ok)
	}
	assert.Equal(t, StateIdle, s.State())
	assert.Zero(t, s.Transcript().Len())
	assert.Empty(t, fake.requests)
}

func TestSubmitWhileBusyIsNoop(t *testing.T) {
	fake := &fakeBackend{}
	s := New(fake)

	first, ok := s.Begin("première question")
	require.True(t, ok)
	require.True(t, s.Busy())

	_, ok = s.Begin("seconde question")
	assert.False(t, ok)
	_, ok = s.Submit(context.Background(), "troisième")
	assert.False(t, ok)
	assert.Equal(t, 1, s.Transcript().Len())
	assert.Zero(t, s.History().Len())

	out := s.Resolve(first, structuredReply(), nil)
	assert.True(t, out.OK)
	assert.Equal(t, StateIdle, s.State())
}

func TestSuccessfulSubmit(t *testing.T) {
	fake := &fakeBackend{results: []chatResult{{reply: structuredReply()}}}
	s := New(fake)
	fake.onChat = func(backend.ChatRequest) {
		assert.Equal(t, 1, s.Transcript().Len(), "the question is echoed before the call")
		assert.True(t, s.Busy())
	}

	out, ok := s.Submit(context.Background(), "  Responsabilité du fait d'autrui ?  ")
	require.True(t, ok)
	require.True(t, out.OK)

	msgs := s.Transcript().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, transcript.AuthorUser, msgs[0].Author)
	assert.Equal(t, "Responsabilité du fait d'autrui ?", msgs[0].Text)
	assert.Equal(t, transcript.AuthorAssistant, msgs[1].Author)
	assert.Equal(t, "Position favorable : X\n\nArgument clé : Y\n\nSynthèse : S", msgs[1].Text)

	assert.Equal(t, history.ViewDetail, s.History().View())
	active, ok := s.History().Active()
	require.True(t, ok)
	assert.Equal(t, out.Record.ID, active.ID)
	assert.Equal(t, "texte brut", active.Answer)
	assert.Equal(t, backend.ModeOffline, active.Mode)
	assert.Equal(t, "2025-05-02T09:00:00", active.Timestamp)
	assert.Len(t, active.Articles, 1)
	assert.True(t, active.Analysis.IsStructured())
	assert.Equal(t, StateIdle, s.State())
	assert.Empty(t, s.Err())
}

func TestTranscriptFallsBackToAnswer(t *testing.T) {
	fake := &fakeBackend{results: []chatResult{
		{reply: backend.ChatReply{Answer: json.RawMessage("\"```markdown\\nRéponse libre\\n```\""), Analysis: json.RawMessage(`"pas du json"`)}},
		{reply: backend.ChatReply{}},
	}}
	s := New(fake)

	out, _ := s.Submit(context.Background(), "q1")
	assert.Equal(t, "Réponse libre", out.Message.Text)
	assert.Equal(t, "pas du json", out.Record.Analysis.Text)

	out, _ = s.Submit(context.Background(), "q2")
	assert.Equal(t, "Aucune réponse.", out.Message.Text)
}

func TestConsecutiveSubmissions(t *testing.T) {
	const n = 4
	s := New(&fakeBackend{})

	var last history.Record
	for i := 0; i < n; i++ {
		out, ok := s.Submit(context.Background(), fmt.Sprintf("question %d", i))
		require.True(t, ok)
		require.True(t, out.OK)
		last = out.Record
		if i == 1 {
			s.History().Back()
		}
	}

	records := s.History().Records()
	require.Len(t, records, n)
	for i, rec := range records {
		assert.Equal(t, fmt.Sprintf("question %d", n-1-i), rec.OriginalQuestion)
	}
	assert.Equal(t, history.ViewDetail, s.History().View())
	active, _ := s.History().Active()
	assert.Equal(t, last.ID, active.ID)
	assert.Equal(t, 2*n, s.Transcript().Len())
}

func TestFailedRequest(t *testing.T) {
	detailErr := fmt.Errorf("chat: %w", &backend.Error{Op: "chat", Status: http.StatusBadRequest, Detail: "Code inconnu"})
	fake := &fakeBackend{results: []chatResult{
		{err: detailErr},
		{err: errors.New("connection refused")},
		{reply: structuredReply()},
	}}
	s := New(fake)

	out, ok := s.Submit(context.Background(), "q1")
	require.True(t, ok)
	assert.False(t, out.OK)
	assert.Equal(t, "Code inconnu", out.ErrText)
	assert.Equal(t, "Code inconnu", s.Err())
	assert.Equal(t, 2, s.Transcript().Len())
	last, _ := s.Transcript().Last()
	assert.Equal(t, Apology, last.Text)
	assert.Zero(t, s.History().Len())
	assert.Equal(t, history.ViewEmpty, s.History().View())
	assert.Equal(t, StateIdle, s.State())

	out, _ = s.Submit(context.Background(), "q2")
	assert.Equal(t, GenericError, out.ErrText)
	assert.Equal(t, 4, s.Transcript().Len())
	assert.Zero(t, s.History().Len())

	_, ok = s.Begin("q3")
	require.True(t, ok)
	assert.Empty(t, s.Err(), "a new request clears the previous error")
}

func TestScopeIsSentAsCode(t *testing.T) {
	fake := &fakeBackend{}
	s := New(fake)
	s.Scope().SetCatalog([]backend.Code{{ID: "2", Label: "Code du travail"}})

	s.Submit(context.Background(), "sans scope")
	s.Scope().Select(backend.Code{ID: "2", Label: "Code du travail"})
	out, _ := s.Submit(context.Background(), "avec scope")

	require.Len(t, fake.requests, 2)
	assert.Nil(t, fake.requests[0].Code)
	require.NotNil(t, fake.requests[1].Code)
	assert.Equal(t, "Code du travail", *fake.requests[1].Code)
	assert.Equal(t, "Code du travail", out.Record.ScopeLabel())
}

func TestResolveIgnoresStalePending(t *testing.T) {
	s := New(&fakeBackend{})
	p, _ := s.Begin("q")
	s.Resolve(p, backend.ChatReply{}, nil)

	out := s.Resolve(p, backend.ChatReply{}, nil)
	assert.ErrorIs(t, out.Err, ErrStale)
	assert.Equal(t, 2, s.Transcript().Len())
	assert.Equal(t, 1, s.History().Len())
}
