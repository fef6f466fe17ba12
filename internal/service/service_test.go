package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/templui/formdesk/internal/db"
	"github.com/templui/formdesk/internal/model"
	"github.com/templui/formdesk/internal/storage"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := db.Init("sqlite", filepath.Join(t.TempDir(), "test.db")+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, db.RunMigrations(database.DB, "sqlite"))
	return database
}

// recordingStorage wraps a real backend and can be told to fail.
type recordingStorage struct {
	storage.Storage

	mu         sync.Mutex
	failSave   error
	failDelete error
	deleted    []string
}

func (s *recordingStorage) Save(ctx context.Context, path string, file io.Reader) error {
	if s.failSave != nil {
		return s.failSave
	}
	return s.Storage.Save(ctx, path, file)
}

func (s *recordingStorage) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	s.deleted = append(s.deleted, path)
	s.mu.Unlock()
	if s.failDelete != nil {
		return s.failDelete
	}
	return s.Storage.Delete(ctx, path)
}

func (s *recordingStorage) deletedPaths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}

func newRecordingStorage(t *testing.T) (*recordingStorage, string) {
	t.Helper()
	dir := t.TempDir()
	local, err := storage.NewLocalStorage(dir, "/uploads")
	require.NoError(t, err)
	return &recordingStorage{Storage: local}, dir
}

type recordingNotifier struct {
	mu   sync.Mutex
	subs []*model.Submission
	err  error
}

func (n *recordingNotifier) SubmissionReceived(_ context.Context, sub *model.Submission) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs = append(n.subs, sub)
	return n.err
}

var errBoom = errors.New("boom")

var (
	pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")
)

func uploadHeader(t *testing.T, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="upload"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, "/", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(10<<20))

	return req.MultipartForm.File["upload"][0]
}
