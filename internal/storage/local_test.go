package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cfg "github.com/templui/formdesk/internal/config"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, "abc.pdf", strings.NewReader("%PDF-1.4")))

	f, err := s.Open(ctx, "abc.pdf")
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "%PDF-1.4", string(data))

	assert.Equal(t, "/uploads/abc.pdf", s.URL("abc.pdf"))

	require.NoError(t, s.Delete(ctx, "abc.pdf"))
	assert.ErrorIs(t, s.Delete(ctx, "abc.pdf"), ErrObjectNotFound)

	_, err = s.Open(ctx, "abc.pdf")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocalStorageRejectsEscapingPaths(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)

	assert.Error(t, s.Save(ctx, "../evil.png", strings.NewReader("x")))
	assert.Error(t, s.Save(ctx, "/etc/passwd", strings.NewReader("x")))
	assert.Error(t, s.Delete(ctx, "../evil.png"))

	_, err = s.Open(ctx, "../../etc/passwd")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestNewSelectsDriver(t *testing.T) {
	s, err := New(&cfg.Config{StorageDriver: cfg.StorageLocal, UploadDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)

	_, err = New(&cfg.Config{StorageDriver: "ftp"})
	assert.ErrorContains(t, err, "unknown storage driver")
}
