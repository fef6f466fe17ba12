package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/templui/formdesk/internal/export"
	"github.com/templui/formdesk/internal/model"
	"github.com/templui/formdesk/internal/repository"
	"github.com/templui/formdesk/internal/storage"
	"github.com/templui/formdesk/internal/validation"
	"golang.org/x/text/unicode/norm"
)

var ErrFileNotFound = errors.New("file not found")

// Stored upload names: 32 hex characters plus an allowed extension.
var fileRefPattern = regexp.MustCompile(`^[0-9a-f]{32}\.(pdf|jpg|jpeg|png)$`)

// Notifier is told about every stored submission.
type Notifier interface {
	SubmissionReceived(ctx context.Context, sub *model.Submission) error
}

type SubmissionOptions struct {
	MaxUploadSize int64
	MaxPageSize   int // 0 = unbounded
}

type SubmissionService struct {
	submissions repository.SubmissionRepository
	storage     storage.Storage
	notifier    Notifier
	opts        SubmissionOptions
	now         func() time.Time

	// best-effort work that outlives the request
	background sync.WaitGroup
}

func NewSubmissionService(
	submissions repository.SubmissionRepository,
	storage storage.Storage,
	notifier Notifier,
	opts SubmissionOptions,
) *SubmissionService {
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = 1 << 20
	}
	return &SubmissionService{
		submissions: submissions,
		storage:     storage,
		notifier:    notifier,
		opts:        opts,
		now:         time.Now,
	}
}

// Submit validates a form post, stores its attachment under an opaque name
// and persists the submission. Nothing is kept when any step fails.
func (s *SubmissionService) Submit(ctx context.Context, form map[string][]string, upload *multipart.FileHeader) (int64, error) {
	in := NormalizeForm(form)

	err := validation.ValidateSubmission(&in)
	if err != nil {
		return 0, err
	}

	if upload != nil {
		err = validation.ValidateFile(upload, validation.UploadConstraints(s.opts.MaxUploadSize)...)
		if err != nil {
			return 0, err
		}
	}

	sub := toSubmission(in)
	sub.CreatedAt = s.now().UTC()

	if upload != nil {
		name, err := s.saveUpload(ctx, upload)
		if err != nil {
			return 0, err
		}
		sub.FileRef = &name
	}

	id, err := s.submissions.Create(ctx, sub)
	if err != nil {
		if sub.HasFile() {
			delErr := s.storage.Delete(context.WithoutCancel(ctx), *sub.FileRef)
			if delErr != nil {
				slog.Error("failed to delete upload during cleanup", "error", delErr, "file", *sub.FileRef)
			}
		}
		return 0, err
	}

	slog.Info("submission created", "id", id, "file", sub.HasFile())

	if s.notifier != nil {
		s.background.Go(func() {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			defer cancel()
			err := s.notifier.SubmissionReceived(ctx, sub)
			if err != nil {
				slog.Error("failed to send submission notification", "error", err, "id", id)
			}
		})
	}

	return id, nil
}

func (s *SubmissionService) saveUpload(ctx context.Context, upload *multipart.FileHeader) (string, error) {
	name := NewFileRef(upload.Filename)

	file, err := upload.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer func() { _ = file.Close() }()

	err = s.storage.Save(ctx, name, file)
	if err != nil {
		return "", &repository.StorageError{Op: "save upload", Err: err}
	}

	return name, nil
}

// List returns one page, newest first.
func (s *SubmissionService) List(ctx context.Context, page, limit int) (*model.SubmissionPage, error) {
	page, limit = model.NormalizePage(page, limit, s.opts.MaxPageSize)

	items, total, err := s.submissions.List(ctx, page, limit)
	if err != nil {
		return nil, err
	}

	return &model.SubmissionPage{
		Submissions: items,
		Pagination:  model.NewPagination(total, page, limit),
	}, nil
}

func (s *SubmissionService) Get(ctx context.Context, id int64) (*model.Submission, error) {
	return s.submissions.ByID(ctx, id)
}

// Delete removes the row, then removes its upload in the background.
// Row removal is the commit point: file cleanup failures are only logged.
func (s *SubmissionService) Delete(ctx context.Context, id int64) error {
	ref, hasFile, err := s.submissions.FileRef(ctx, id)
	if err != nil {
		return err
	}

	deleted, err := s.submissions.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return repository.ErrSubmissionNotFound
	}

	slog.Info("submission deleted", "id", id)

	if hasFile {
		s.background.Go(func() {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			defer cancel()
			err := s.storage.Delete(ctx, ref)
			if err != nil {
				slog.Error("failed to delete upload of deleted submission", "error", err, "id", id, "file", ref)
			}
		})
	}

	return nil
}

// ExportCSV renders every submission and names the file after today.
func (s *SubmissionService) ExportCSV(ctx context.Context) ([]byte, string, error) {
	rows, err := s.submissions.ExportAll(ctx)
	if err != nil {
		return nil, "", err
	}

	return export.ToCSV(rows, export.DefaultOptions), export.Filename(s.now()), nil
}

// OpenFile returns a stored upload by its generated name.
func (s *SubmissionService) OpenFile(ctx context.Context, name string) (io.ReadCloser, error) {
	if !ValidFileRef(name) {
		return nil, ErrFileNotFound
	}

	f, err := s.storage.Open(ctx, name)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, &repository.StorageError{Op: "open upload", Err: err}
	}

	return f, nil
}

// FileURL is where clients download an upload from.
func (s *SubmissionService) FileURL(name string) string {
	return s.storage.URL(name)
}

// Wait blocks until background cleanups and notifications finish.
func (s *SubmissionService) Wait() {
	s.background.Wait()
}

// NewFileRef returns an unpredictable storage name that keeps the original
// extension. The client's name is never used as a path.
func NewFileRef(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	return strings.ReplaceAll(uuid.NewString(), "-", "") + ext
}

// ValidFileRef reports whether name could have been produced by NewFileRef
// for an allowed attachment type.
func ValidFileRef(name string) bool {
	return fileRefPattern.MatchString(name)
}

// NormalizeForm maps posted form values onto the submission fields. Scalar
// text is trimmed and NFC-normalized. Multi-select options are stored as
// sent; a single value becomes a one-element list.
func NormalizeForm(form map[string][]string) validation.SubmissionInput {
	first := func(key string) string {
		values := form[key]
		if len(values) == 0 {
			return ""
		}
		return clean(values[0])
	}

	return validation.SubmissionInput{
		ShortAnswer:  first("shortAnswer"),
		LongAnswer:   first("longAnswer"),
		MultiSelect:  normalizeMulti(slices.Concat(form["multiSelect"], form["multiSelect[]"])),
		SingleSelect: first("singleSelect"),
		Date:         first("date"),
		Time:         first("time"),
		Phone:        first("phone"),
		Email:        strings.ToLower(first("email")),
		Number:       first("number"),
		Website:      first("website"),
		Scale:        first("scale"),
		Dropdown:     first("dropdown"),
	}
}

// normalizeMulti keeps the submitted options exactly as sent, in order.
func normalizeMulti(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func toSubmission(in validation.SubmissionInput) *model.Submission {
	sub := &model.Submission{
		ShortAnswer:  optional(in.ShortAnswer),
		LongAnswer:   optional(in.LongAnswer),
		SingleSelect: optional(in.SingleSelect),
		Date:         optional(in.Date),
		Time:         optional(in.Time),
		Phone:        optional(in.Phone),
		Email:        optional(in.Email),
		Number:       optionalInt(in.Number),
		Website:      optional(in.Website),
		Scale:        optionalInt(in.Scale),
		Dropdown:     optional(in.Dropdown),
	}
	if len(in.MultiSelect) > 0 {
		sub.MultiSelect = model.Structured(in.MultiSelect)
	}
	return sub
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// optionalInt parses an already validated integer field.
func optionalInt(s string) *int64 {
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
