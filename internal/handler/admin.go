package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/templui/formdesk/internal/ctxkeys"
	"github.com/templui/formdesk/internal/model"
	"github.com/templui/formdesk/internal/response"
)

type listResponse struct {
	Success     bool             `json:"success"`
	Submissions []submissionView `json:"submissions"`
	Pagination  model.Pagination `json:"pagination"`
}

type getResponse struct {
	Success    bool           `json:"success"`
	Submission submissionView `json:"submission"`
}

// List serves one page of submissions. Missing or invalid page/limit fall back to defaults.
func (h *submissionHandler) List(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page")
	limit := queryInt(r, "limit")

	result, err := h.submissionService.List(r.Context(), page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]submissionView, 0, len(result.Submissions))
	for _, sub := range result.Submissions {
		views = append(views, h.view(sub))
	}

	response.JSON(w, http.StatusOK, listResponse{
		Success:     true,
		Submissions: views,
		Pagination:  result.Pagination,
	})
}

func (h *submissionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		response.Error(w, http.StatusNotFound, "Submission not found")
		return
	}

	sub, err := h.submissionService.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, getResponse{Success: true, Submission: h.view(sub)})
}

func (h *submissionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		response.Error(w, http.StatusNotFound, "Submission not found")
		return
	}

	err := h.submissionService.Delete(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var admin string
	if claims := ctxkeys.Admin(r.Context()); claims != nil {
		admin = claims.Subject
	}
	slog.Info("submission deleted by admin", "id", id, "admin", admin)

	response.JSON(w, http.StatusOK, response.Body{Success: true, Message: "Submission deleted successfully"})
}

func (h *submissionHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	data, filename, err := h.submissionService.ExportCSV(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(data)
	if err != nil {
		slog.Warn("failed to write csv export", "error", err)
	}
}

// queryInt returns 0 for missing or malformed values.
func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
