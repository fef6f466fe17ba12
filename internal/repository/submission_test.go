package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/formdesk/internal/db"
	"github.com/templui/formdesk/internal/model"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := db.Init("sqlite", filepath.Join(t.TempDir(), "test.db")+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, db.RunMigrations(database.DB, "sqlite"))
	return database
}

func ptr[T any](v T) *T { return &v }

func newSubmission(short string, options ...string) *model.Submission {
	return &model.Submission{
		ShortAnswer: ptr(short),
		LongAnswer:  ptr("0123456789"),
		MultiSelect: model.Structured(options),
		CreatedAt:   time.Now().UTC(),
	}
}

func TestSubmissionCreateAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewSubmissionRepository(newTestDB(t))

	id, err := repo.Create(ctx, newSubmission("abc", "x", "y"))
	require.NoError(t, err)
	assert.Positive(t, id)

	items, total, err := repo.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)

	got := items[0]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "abc", *got.ShortAnswer)
	values, ok := got.MultiSelect.Values()
	require.True(t, ok)
	assert.Equal(t, []string{"x", "y"}, values)
	assert.False(t, got.CreatedAt.IsZero())
	assert.Nil(t, got.Email)
	assert.False(t, got.HasFile())
}

func TestSubmissionListDefaultsAndOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewSubmissionRepository(newTestDB(t))

	var ids []int64
	for i := 0; i < 12; i++ {
		id, err := repo.Create(ctx, newSubmission("abc"))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	items, total, err := repo.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	require.Len(t, items, 10)
	assert.Equal(t, ids[11], items[0].ID, "newest first")

	items, _, err = repo.List(ctx, 5, 10)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)
}

func TestSubmissionPageWalkCoversEveryRowOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewSubmissionRepository(newTestDB(t))

	const total = 23
	for i := 0; i < total; i++ {
		_, err := repo.Create(ctx, newSubmission("abc"))
		require.NoError(t, err)
	}

	for _, size := range []int{1, 4, 10, 23, 50} {
		pages := model.NewPagination(total, 1, size).Pages
		seen := map[int64]int{}
		for page := 1; page <= pages; page++ {
			items, count, err := repo.List(ctx, page, size)
			require.NoError(t, err)
			assert.Equal(t, total, count)
			for _, item := range items {
				seen[item.ID]++
			}
		}
		assert.Len(t, seen, total, "page size %d", size)
		for id, n := range seen {
			assert.Equal(t, 1, n, "id %d seen more than once with page size %d", id, size)
		}
	}
}

func TestSubmissionDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewSubmissionRepository(newTestDB(t))

	sub := newSubmission("abc")
	sub.FileRef = ptr("9f0c.pdf")
	id, err := repo.Create(ctx, sub)
	require.NoError(t, err)

	ref, ok, err := repo.FileRef(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "9f0c.pdf", ref)

	deleted, err := repo.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, id)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, ok, err = repo.FileRef(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.ByID(ctx, id)
	assert.ErrorIs(t, err, ErrSubmissionNotFound)

	deleted, err = repo.Delete(ctx, 424242)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestSubmissionIDsAreNotReused(t *testing.T) {
	ctx := context.Background()
	repo := NewSubmissionRepository(newTestDB(t))

	first, err := repo.Create(ctx, newSubmission("abc"))
	require.NoError(t, err)
	_, err = repo.Delete(ctx, first)
	require.NoError(t, err)

	second, err := repo.Create(ctx, newSubmission("abc"))
	require.NoError(t, err)
	assert.Greater(t, second, first)
}

func TestSubmissionReadToleratesLegacyMultiSelect(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	repo := NewSubmissionRepository(database)

	_, err := database.Exec(`INSERT INTO submissions (short_answer, multi_select, created_at) VALUES ('old', 'a,b', CURRENT_TIMESTAMP)`)
	require.NoError(t, err)

	items, _, err := repo.List(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)

	raw, ok := items[0].MultiSelect.RawValue()
	require.True(t, ok)
	assert.Equal(t, "a,b", raw)
}

func TestSubmissionExportAll(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	repo := NewSubmissionRepository(database)

	_, err := repo.Create(ctx, newSubmission("first", "x"))
	require.NoError(t, err)
	second := newSubmission("second")
	second.Email = ptr("a@example.com")
	_, err = repo.Create(ctx, second)
	require.NoError(t, err)

	rows, err := repo.ExportAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	short, ok := rows[0].Get("short_answer")
	require.True(t, ok)
	assert.Equal(t, "second", short)

	email, ok := rows[1].Get("email")
	require.True(t, ok)
	assert.Nil(t, email)

	ms, ok := rows[1].Get(model.MultiSelectColumn)
	require.True(t, ok)
	assert.Equal(t, `["x"]`, ms)

	assert.Equal(t, "id", rows[0][0].Name)
}

func TestSubmissionStorageErrorCarriesOperation(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	repo := NewSubmissionRepository(database)
	require.NoError(t, database.Close())

	_, err := repo.Create(ctx, newSubmission("abc"))

	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "create submission", storageErr.Op)
}
