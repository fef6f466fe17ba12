package handler

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/templui/formdesk/internal/response"
	"github.com/templui/formdesk/internal/service"
)

// ServeUpload streams a stored attachment by its generated name.
func (h *submissionHandler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	file, err := h.submissionService.OpenFile(r.Context(), name)
	if errors.Is(err, service.ErrFileNotFound) {
		response.Error(w, http.StatusNotFound, "File not found")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer func() { _ = file.Close() }()

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if r.Method == http.MethodHead {
		return
	}

	_, err = io.Copy(w, file)
	if err != nil {
		slog.Warn("failed to stream upload", "error", err, "file", name)
	}
}
