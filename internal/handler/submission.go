package handler

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/templui/formdesk/internal/ctxkeys"
	"github.com/templui/formdesk/internal/model"
	"github.com/templui/formdesk/internal/repository"
	"github.com/templui/formdesk/internal/response"
	"github.com/templui/formdesk/internal/service"
	"github.com/templui/formdesk/internal/validation"
)

// Form field carrying the optional attachment.
const uploadField = "upload"

// Room for the text fields of a multipart body on top of the attachment.
const formOverhead = 1 << 20

type submissionHandler struct {
	submissionService *service.SubmissionService
	maxUploadSize     int64
}

func NewSubmissionHandler(submissionService *service.SubmissionService, maxUploadSize int64) *submissionHandler {
	return &submissionHandler{
		submissionService: submissionService,
		maxUploadSize:     maxUploadSize,
	}
}

type submitResponse struct {
	response.Body
	ID int64 `json:"id"`
}

func (h *submissionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+formOverhead)

	err := r.ParseMultipartForm(formOverhead)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(w, http.StatusBadRequest, validation.SizeError(h.maxUploadSize).Reason)
			return
		}
		slog.Warn("failed to parse submission form", "error", err, "request_id", ctxkeys.RequestID(r.Context()))
		response.Error(w, http.StatusBadRequest, "Invalid form data")
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	id, err := h.submissionService.Submit(r.Context(), r.PostForm, formFile(r.MultipartForm, uploadField))
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, submitResponse{
		Body: response.Body{Success: true, Message: "Form submitted successfully!"},
		ID:   id,
	})
}

// formFile returns the first file sent under field, or nil.
func formFile(form *multipart.Form, field string) *multipart.FileHeader {
	if form == nil || len(form.File[field]) == 0 {
		return nil
	}
	return form.File[field][0]
}

// submissionView is a submission as shown to admins, with a download link.
type submissionView struct {
	*model.Submission
	FileURL string `json:"fileUrl,omitempty"`
}

func (h *submissionHandler) view(sub *model.Submission) submissionView {
	v := submissionView{Submission: sub}
	if sub.HasFile() {
		v.FileURL = h.submissionService.FileURL(*sub.FileRef)
	}
	return v
}

// writeError maps service errors onto the JSON error envelope.
// Storage and unexpected failures are logged and answered generically.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *validation.Error
	var badFile *validation.FileError
	var storageErr *repository.StorageError

	switch {
	case errors.As(err, &invalid):
		response.JSON(w, http.StatusBadRequest, response.Body{
			Success: false,
			Message: "Validation failed",
			Errors:  invalid.Fields,
		})
	case errors.As(err, &badFile):
		response.Error(w, http.StatusBadRequest, badFile.Reason)
	case errors.Is(err, repository.ErrSubmissionNotFound):
		response.Error(w, http.StatusNotFound, "Submission not found")
	case errors.Is(err, service.ErrUnauthorized):
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
	case errors.As(err, &storageErr):
		slog.Error("storage operation failed",
			"error", storageErr.Err,
			"op", storageErr.Op,
			"id", storageErr.ID,
			"path", r.URL.Path,
			"request_id", ctxkeys.RequestID(r.Context()),
		)
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	default:
		slog.Error("request failed",
			"error", err,
			"path", r.URL.Path,
			"request_id", ctxkeys.RequestID(r.Context()),
		)
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
