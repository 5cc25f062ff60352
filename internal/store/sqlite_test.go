package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDurableStore(t *testing.T) *SQLiteInterpretationStore {
	t.Helper()
	s, err := NewSQLiteInterpretationStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testInterpretation(chartID, kind, subject string) *Interpretation {
	return &Interpretation{
		ChartID:        chartID,
		Kind:           kind,
		Subject:        subject,
		Content:        "Mercury in Gemini sharpens verbal agility.",
		Model:          "interp-7b",
		ContentVersion: "v1",
		Language:       "en",
		CreatedAt:      time.Now().UTC().Truncate(time.Second),
	}
}

func TestSQLiteStore_SaveAndGet_Roundtrip(t *testing.T) {
	// Given: an empty store
	s := newTestDurableStore(t)
	rec := testInterpretation("chart-1", "planet", "mercury")

	// When: saving and fetching the tuple
	require.NoError(t, s.Save(context.Background(), rec))
	got, err := s.Get(context.Background(), "chart-1", "planet", "mercury", "en")
	require.NoError(t, err)

	// Then: every field survives
	require.NotNil(t, got)
	assert.Equal(t, rec.ChartID, got.ChartID)
	assert.Equal(t, rec.Kind, got.Kind)
	assert.Equal(t, rec.Subject, got.Subject)
	assert.Equal(t, rec.Content, got.Content)
	assert.Equal(t, rec.Model, got.Model)
	assert.Equal(t, rec.ContentVersion, got.ContentVersion)
	assert.Equal(t, rec.Language, got.Language)
}

func TestSQLiteStore_Get_MissReturnsNil(t *testing.T) {
	s := newTestDurableStore(t)

	got, err := s.Get(context.Background(), "chart-1", "planet", "mercury", "en")

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_Save_UpsertsOnConflict(t *testing.T) {
	// Given: a stored record
	s := newTestDurableStore(t)
	rec := testInterpretation("chart-1", "planet", "mercury")
	require.NoError(t, s.Save(context.Background(), rec))

	// When: saving again for the same tuple with new content and version
	updated := testInterpretation("chart-1", "planet", "mercury")
	updated.Content = "Rewritten interpretation."
	updated.ContentVersion = "v2"
	require.NoError(t, s.Save(context.Background(), updated))

	// Then: exactly one record exists, holding the new content
	got, err := s.Get(context.Background(), "chart-1", "planet", "mercury", "en")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Rewritten interpretation.", got.Content)
	assert.Equal(t, "v2", got.ContentVersion)

	all, err := s.GetAll(context.Background(), "chart-1", "planet", "en")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLiteStore_LanguageIsPartOfTheKey(t *testing.T) {
	// Given: the same subject in two languages
	s := newTestDurableStore(t)
	en := testInterpretation("chart-1", "planet", "mercury")
	es := testInterpretation("chart-1", "planet", "mercury")
	es.Language = "es"
	es.Content = "Mercurio en Géminis agudiza la agilidad verbal."
	require.NoError(t, s.Save(context.Background(), en))
	require.NoError(t, s.Save(context.Background(), es))

	// Then: each language resolves independently
	gotEN, err := s.Get(context.Background(), "chart-1", "planet", "mercury", "en")
	require.NoError(t, err)
	gotES, err := s.Get(context.Background(), "chart-1", "planet", "mercury", "es")
	require.NoError(t, err)
	require.NotNil(t, gotEN)
	require.NotNil(t, gotES)
	assert.NotEqual(t, gotEN.Content, gotES.Content)
}

func TestSQLiteStore_GetAll_FiltersByKindAndLanguage(t *testing.T) {
	s := newTestDurableStore(t)
	require.NoError(t, s.Save(context.Background(), testInterpretation("chart-1", "planet", "mercury")))
	require.NoError(t, s.Save(context.Background(), testInterpretation("chart-1", "planet", "venus")))
	require.NoError(t, s.Save(context.Background(), testInterpretation("chart-1", "house", "house_7")))
	require.NoError(t, s.Save(context.Background(), testInterpretation("chart-2", "planet", "mercury")))

	all, err := s.GetAll(context.Background(), "chart-1", "planet", "en")

	require.NoError(t, err)
	assert.Len(t, all, 2)
	for _, rec := range all {
		assert.Equal(t, "chart-1", rec.ChartID)
		assert.Equal(t, "planet", rec.Kind)
	}
}

func TestSQLiteStore_Delete_RemovesKind(t *testing.T) {
	s := newTestDurableStore(t)
	require.NoError(t, s.Save(context.Background(), testInterpretation("chart-1", "planet", "mercury")))
	require.NoError(t, s.Save(context.Background(), testInterpretation("chart-1", "planet", "venus")))
	require.NoError(t, s.Save(context.Background(), testInterpretation("chart-1", "house", "house_7")))

	n, err := s.Delete(context.Background(), "chart-1", "planet", "en")

	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.Get(context.Background(), "chart-1", "house", "house_7", "en")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestSQLiteStore_ClosedStoreFailsWithStorageError(t *testing.T) {
	s, err := NewSQLiteInterpretationStore("")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Get(context.Background(), "chart-1", "planet", "mercury", "en")
	require.Error(t, err)

	err = s.Save(context.Background(), testInterpretation("chart-1", "planet", "mercury"))
	require.Error(t, err)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	// Given: a file-backed store with one record
	path := filepath.Join(t.TempDir(), "interp.db")
	s, err := NewSQLiteInterpretationStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), testInterpretation("chart-1", "planet", "mercury")))
	require.NoError(t, s.Close())

	// When: reopening the same path
	reopened, err := NewSQLiteInterpretationStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	// Then: the record is still there
	got, err := reopened.Get(context.Background(), "chart-1", "planet", "mercury", "en")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "mercury", got.Subject)
}
