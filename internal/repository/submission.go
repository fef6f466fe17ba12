package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/templui/formdesk/internal/model"
)

const submissionColumns = `id, short_answer, long_answer, multi_select, single_select, date, time, phone,
	email, number, website, scale, dropdown, file_ref, created_at`

// SubmissionRepository is the submission store.
type SubmissionRepository interface {
	Create(ctx context.Context, s *model.Submission) (int64, error)
	List(ctx context.Context, page, pageSize int) ([]*model.Submission, int, error)
	ByID(ctx context.Context, id int64) (*model.Submission, error)
	FileRef(ctx context.Context, id int64) (string, bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	ExportAll(ctx context.Context) ([]model.Row, error)
}

type submissionRepository struct {
	db *sqlx.DB
}

func NewSubmissionRepository(db *sqlx.DB) *submissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Create(ctx context.Context, s *model.Submission) (int64, error) {
	query := `INSERT INTO submissions (short_answer, long_answer, multi_select, single_select, date, time, phone,
	          email, number, website, scale, dropdown, file_ref, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	          RETURNING id`

	var id int64
	err := r.db.QueryRowxContext(ctx, query,
		s.ShortAnswer,
		s.LongAnswer,
		s.MultiSelect,
		s.SingleSelect,
		s.Date,
		s.Time,
		s.Phone,
		s.Email,
		s.Number,
		s.Website,
		s.Scale,
		s.Dropdown,
		s.FileRef,
		s.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, storageErr("create submission", 0, err)
	}

	s.ID = id
	return id, nil
}

// List returns one page ordered newest first plus the unfiltered row count.
// Non-positive page or pageSize fall back to 1 and 10.
func (r *submissionRepository) List(ctx context.Context, page, pageSize int) ([]*model.Submission, int, error) {
	page, pageSize = model.NormalizePage(page, pageSize, 0)

	var total int
	err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM submissions`)
	if err != nil {
		return nil, 0, storageErr("count submissions", 0, err)
	}

	submissions := []*model.Submission{}
	query := `SELECT ` + submissionColumns + ` FROM submissions
	          ORDER BY created_at DESC, id DESC
	          LIMIT $1 OFFSET $2`

	err = r.db.SelectContext(ctx, &submissions, query, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, storageErr("list submissions", 0, err)
	}

	return submissions, total, nil
}

func (r *submissionRepository) ByID(ctx context.Context, id int64) (*model.Submission, error) {
	submission := &model.Submission{}
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`

	err := r.db.GetContext(ctx, submission, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, storageErr("get submission", id, err)
	}

	return submission, nil
}

// FileRef returns the stored upload name of a submission. ok is false when
// the row does not exist or has no upload.
func (r *submissionRepository) FileRef(ctx context.Context, id int64) (string, bool, error) {
	var ref sql.NullString
	err := r.db.GetContext(ctx, &ref, `SELECT file_ref FROM submissions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storageErr("get file ref", id, err)
	}
	if !ref.Valid || ref.String == "" {
		return "", false, nil
	}
	return ref.String, true, nil
}

// Delete removes the row and reports whether one existed.
func (r *submissionRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM submissions WHERE id = $1`, id)
	if err != nil {
		return false, storageErr("delete submission", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, storageErr("delete submission", id, err)
	}

	return rows > 0, nil
}

// ExportAll returns every row newest first with all of its stored columns.
func (r *submissionRepository) ExportAll(ctx context.Context) ([]model.Row, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT * FROM submissions ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, storageErr("export submissions", 0, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, storageErr("export submissions", 0, err)
	}

	var out []model.Row
	for rows.Next() {
		values := make(map[string]any, len(columns))
		err = rows.MapScan(values)
		if err != nil {
			return nil, storageErr("export submissions", 0, err)
		}

		row := make(model.Row, 0, len(columns))
		for _, column := range columns {
			value := values[column]
			if b, ok := value.([]byte); ok {
				value = string(b)
			}
			row = append(row, model.Field{Name: column, Value: value})
		}
		out = append(out, row)
	}

	err = rows.Err()
	if err != nil {
		return nil, storageErr("export submissions", 0, err)
	}

	return out, nil
}
