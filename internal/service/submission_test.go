package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/formdesk/internal/model"
	"github.com/templui/formdesk/internal/repository"
	"github.com/templui/formdesk/internal/validation"
)

func validForm() map[string][]string {
	return map[string][]string{
		"shortAnswer": {"abc"},
		"longAnswer":  {"0123456789"},
	}
}

// failingCreate makes every insert fail with a storage error.
type failingCreate struct {
	repository.SubmissionRepository
}

func (failingCreate) Create(context.Context, *model.Submission) (int64, error) {
	return 0, &repository.StorageError{Op: "create submission", Err: errBoom}
}

func newSubmissionService(t *testing.T) (*SubmissionService, *recordingStorage, string) {
	t.Helper()
	store, dir := newRecordingStorage(t)
	repo := repository.NewSubmissionRepository(newTestDB(t))
	svc := NewSubmissionService(repo, store, nil, SubmissionOptions{MaxUploadSize: 1 << 20})
	return svc, store, dir
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestSubmitRoundTripsMultiSelect(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newSubmissionService(t)

	form := validForm()
	form["multiSelect"] = []string{"x", "y"}
	id, err := svc.Submit(ctx, form, nil)
	require.NoError(t, err)

	page, err := svc.List(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Submissions, 1)
	assert.Equal(t, id, page.Submissions[0].ID)

	values, ok := page.Submissions[0].MultiSelect.Values()
	require.True(t, ok)
	assert.Equal(t, []string{"x", "y"}, values)
	assert.Equal(t, model.Pagination{Total: 1, Page: 1, Limit: 10, Pages: 1}, page.Pagination)
}

func TestSubmitWrapsScalarMultiSelect(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newSubmissionService(t)

	form := validForm()
	form["multiSelect"] = []string{"only"}
	id, err := svc.Submit(ctx, form, nil)
	require.NoError(t, err)

	sub, err := svc.Get(ctx, id)
	require.NoError(t, err)
	values, ok := sub.MultiSelect.Values()
	require.True(t, ok)
	assert.Equal(t, []string{"only"}, values)
}

func TestSubmitStoresTypedFields(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newSubmissionService(t)

	form := validForm()
	form["number"] = []string{"42"}
	form["scale"] = []string{"7"}
	form["email"] = []string{"  Someone@Example.com "}
	form["singleSelect"] = []string{"b"}
	id, err := svc.Submit(ctx, form, nil)
	require.NoError(t, err)

	sub, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, sub.Number)
	assert.Equal(t, int64(42), *sub.Number)
	require.NotNil(t, sub.Scale)
	assert.Equal(t, int64(7), *sub.Scale)
	require.NotNil(t, sub.Email)
	assert.Equal(t, "someone@example.com", *sub.Email)
	assert.Nil(t, sub.Phone)
	assert.True(t, sub.MultiSelect.IsAbsent())
}

func TestSubmitValidationErrorStoresNothing(t *testing.T) {
	ctx := context.Background()
	svc, _, dir := newSubmissionService(t)

	form := map[string][]string{"shortAnswer": {"ab"}}
	_, err := svc.Submit(ctx, form, uploadHeader(t, "scan.pdf", "application/pdf", pdfBytes))

	var verr *validation.Error
	require.ErrorAs(t, err, &verr)

	page, err := svc.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, page.Pagination.Total)
	assert.Empty(t, dirEntries(t, dir))
}

func TestSubmitRejectsDisallowedFile(t *testing.T) {
	ctx := context.Background()
	svc, _, dir := newSubmissionService(t)

	_, err := svc.Submit(ctx, validForm(), uploadHeader(t, "data.json", "application/json", []byte(`{"a":1}`)))

	var ferr *validation.FileError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "Invalid file type. Only PDF, JPG, and PNG are allowed.", ferr.Reason)

	page, err := svc.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, page.Pagination.Total)
	assert.Empty(t, dirEntries(t, dir))
}

func TestSubmitStoresUploadUnderOpaqueName(t *testing.T) {
	ctx := context.Background()
	svc, _, dir := newSubmissionService(t)

	id, err := svc.Submit(ctx, validForm(), uploadHeader(t, "../../My Photo.PNG", "image/png", pngBytes))
	require.NoError(t, err)

	sub, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, sub.HasFile())
	assert.True(t, ValidFileRef(*sub.FileRef), *sub.FileRef)
	assert.Equal(t, ".png", filepath.Ext(*sub.FileRef))
	assert.NotContains(t, *sub.FileRef, "Photo")

	data, err := os.ReadFile(filepath.Join(dir, *sub.FileRef))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	f, err := svc.OpenFile(ctx, *sub.FileRef)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestSubmitRemovesUploadWhenInsertFails(t *testing.T) {
	ctx := context.Background()
	store, dir := newRecordingStorage(t)
	repo := failingCreate{repository.NewSubmissionRepository(newTestDB(t))}
	svc := NewSubmissionService(repo, store, nil, SubmissionOptions{})

	_, err := svc.Submit(ctx, validForm(), uploadHeader(t, "scan.pdf", "application/pdf", pdfBytes))

	var serr *repository.StorageError
	require.ErrorAs(t, err, &serr)
	assert.Len(t, store.deletedPaths(), 1)
	assert.Empty(t, dirEntries(t, dir))
}

func TestSubmitReportsUploadSaveFailure(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newSubmissionService(t)
	store.failSave = errBoom

	_, err := svc.Submit(ctx, validForm(), uploadHeader(t, "scan.pdf", "application/pdf", pdfBytes))

	assert.ErrorIs(t, err, errBoom)
	page, err := svc.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, page.Pagination.Total)
}

func TestSubmitNotifies(t *testing.T) {
	ctx := context.Background()
	store, _ := newRecordingStorage(t)
	notifier := &recordingNotifier{err: errBoom}
	svc := NewSubmissionService(repository.NewSubmissionRepository(newTestDB(t)), store, notifier, SubmissionOptions{})

	id, err := svc.Submit(ctx, validForm(), nil)
	require.NoError(t, err, "notification failures never fail a submit")
	svc.Wait()

	require.Len(t, notifier.subs, 1)
	assert.Equal(t, id, notifier.subs[0].ID)
}

func TestDeleteRemovesRowThenFile(t *testing.T) {
	ctx := context.Background()
	svc, store, dir := newSubmissionService(t)

	id, err := svc.Submit(ctx, validForm(), uploadHeader(t, "scan.pdf", "application/pdf", pdfBytes))
	require.NoError(t, err)
	require.Len(t, dirEntries(t, dir), 1)

	require.NoError(t, svc.Delete(ctx, id))
	svc.Wait()

	assert.Len(t, store.deletedPaths(), 1)
	assert.Empty(t, dirEntries(t, dir))

	err = svc.Delete(ctx, id)
	assert.ErrorIs(t, err, repository.ErrSubmissionNotFound)
}

func TestDeleteSucceedsWhenFileRemovalFails(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newSubmissionService(t)

	id, err := svc.Submit(ctx, validForm(), uploadHeader(t, "scan.pdf", "application/pdf", pdfBytes))
	require.NoError(t, err)

	store.failDelete = errBoom
	require.NoError(t, svc.Delete(ctx, id))
	svc.Wait()

	_, err = svc.Get(ctx, id)
	assert.ErrorIs(t, err, repository.ErrSubmissionNotFound)
}

func TestListClampsToMaxPageSize(t *testing.T) {
	ctx := context.Background()
	store, _ := newRecordingStorage(t)
	svc := NewSubmissionService(repository.NewSubmissionRepository(newTestDB(t)), store, nil, SubmissionOptions{MaxPageSize: 2})

	for i := 0; i < 3; i++ {
		_, err := svc.Submit(ctx, validForm(), nil)
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, 1, 100)
	require.NoError(t, err)
	assert.Len(t, page.Submissions, 2)
	assert.Equal(t, model.Pagination{Total: 3, Page: 1, Limit: 2, Pages: 2}, page.Pagination)
}

func TestExportCSV(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newSubmissionService(t)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }

	form := validForm()
	form["shortAnswer"] = []string{`say "hi", ok`}
	form["multiSelect"] = []string{"x", "y"}
	_, err := svc.Submit(ctx, form, nil)
	require.NoError(t, err)

	data, filename, err := svc.ExportCSV(ctx)
	require.NoError(t, err)
	assert.Equal(t, "submissions_2024-05-01.csv", filename)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	header := map[string]int{}
	for i, name := range records[0] {
		header[name] = i
	}
	assert.Equal(t, `say "hi", ok`, records[1][header["short_answer"]])
	assert.Equal(t, "x;y", records[1][header["multi_select"]])
	assert.Equal(t, "", records[1][header["email"]])
}

func TestOpenFileRejectsForeignNames(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newSubmissionService(t)

	for _, name := range []string{"../etc/passwd", "report.pdf", "0123456789abcdef0123456789abcdef.exe", ""} {
		_, err := svc.OpenFile(ctx, name)
		assert.ErrorIs(t, err, ErrFileNotFound, name)
	}

	_, err := svc.OpenFile(ctx, NewFileRef("missing.pdf"))
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestNormalizeForm(t *testing.T) {
	in := NormalizeForm(map[string][]string{
		"shortAnswer": {"  Cafe\u0301  "},
		"multiSelect": {" x ", "", "y"},
	})
	assert.Equal(t, "Café", in.ShortAnswer)
	assert.Equal(t, []string{" x ", "", "y"}, in.MultiSelect)

	in = NormalizeForm(map[string][]string{"multiSelect[]": {"p", "q"}})
	assert.Equal(t, []string{"p", "q"}, in.MultiSelect)

	in = NormalizeForm(map[string][]string{"multiSelect": {`["a","b"]`}})
	assert.Equal(t, []string{`["a","b"]`}, in.MultiSelect)

	in = NormalizeForm(map[string][]string{})
	assert.Equal(t, []string{}, in.MultiSelect)
}

func TestSubmitKeepsMultiSelectOptionsVerbatim(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newSubmissionService(t)

	tests := [][]string{
		{" x ", "y"},
		{"", "y"},
		{`["a","b"]`},
	}
	for _, options := range tests {
		form := validForm()
		form["multiSelect"] = options
		id, err := svc.Submit(ctx, form, nil)
		require.NoError(t, err)

		sub, err := svc.Get(ctx, id)
		require.NoError(t, err)
		values, ok := sub.MultiSelect.Values()
		require.True(t, ok)
		assert.Equal(t, options, values)
	}
}

func TestNewFileRef(t *testing.T) {
	a := NewFileRef("Scan.PDF")
	b := NewFileRef("Scan.PDF")

	assert.NotEqual(t, a, b)
	assert.True(t, ValidFileRef(a))
	assert.Equal(t, ".pdf", filepath.Ext(a))
}
