package archive

import (
	"bytes"
	"context"
	"encoding/csv"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legiscope/internal/analysis"
	"legiscope/internal/backend"
	"legiscope/internal/history"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	clock := time.Date(2025, 5, 2, 9, 0, 0, 0, time.UTC)
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "archive.db"), WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newRecord(question string, articles ...backend.Article) history.Record {
	return history.NewRecord(question, nil, "réponse", analysis.Absent(), backend.ChatReply{
		Timestamp: "2025-05-02T08:59:00",
		Articles:  articles,
	})
}

func TestSaveAndExport(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	first := newRecord("Responsabilité du commettant ?",
		backend.Article{ID: "LEGIARTI1", Code: "Code civil", Title: "Article 1242", Excerpt: "On est responsable, \"non seulement\"..."},
		backend.Article{ID: "LEGIARTI2", Code: "Code civil", Title: "Article 1240"},
	)
	require.NoError(t, s.Save(ctx, first))
	require.NoError(t, s.Save(ctx, newRecord("Sans article")))
	require.NoError(t, s.Save(ctx, newRecord("Licenciement", backend.Article{ID: "LEGIARTI3", Code: "Code du travail"})))

	queries, articles, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, queries)
	assert.Equal(t, 3, articles)

	var buf bytes.Buffer
	n, err := s.ExportCSV(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, CSVHeader, rows[0])
	assert.Equal(t, []string{"LEGIARTI1", "Code civil", "Article 1242", "On est responsable, \"non seulement\"...", "Responsabilité du commettant ?", "2025-05-02T09:01:00Z"}, rows[1])
	assert.Equal(t, "LEGIARTI2", rows[2][0])
	assert.Equal(t, "Licenciement", rows[3][4])
}

func TestSaveTwiceReplacesArticles(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	rec := newRecord("q", backend.Article{ID: "A"}, backend.Article{ID: "B"})
	require.NoError(t, s.Save(ctx, rec))
	require.NoError(t, s.Save(ctx, rec))

	queries, articles, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, queries)
	assert.Equal(t, 2, articles)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "archive.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	label := "Code pénal"
	rec := history.NewRecord("q", &label, "a", analysis.Absent(), backend.ChatReply{Articles: []backend.Article{{ID: "X"}}})
	require.NoError(t, s.Save(ctx, rec))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	_, articles, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, articles)
}

func TestExportEmptyArchive(t *testing.T) {
	var buf bytes.Buffer
	n, err := openStore(t).ExportCSV(context.Background(), &buf)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "article_id,code,title,excerpt,question,extracted_at\n", buf.String())
}
