package model

import (
	"time"
)

// Submission is one persisted form response.
type Submission struct {
	ID           int64     `db:"id" json:"id"`
	ShortAnswer  *string   `db:"short_answer" json:"shortAnswer"`
	LongAnswer   *string   `db:"long_answer" json:"longAnswer"`
	MultiSelect  Selection `db:"multi_select" json:"multiSelect"`
	SingleSelect *string   `db:"single_select" json:"singleSelect"`
	Date         *string   `db:"date" json:"date"`
	Time         *string   `db:"time" json:"time"`
	Phone        *string   `db:"phone" json:"phone"`
	Email        *string   `db:"email" json:"email"`
	Number       *int64    `db:"number" json:"number"`
	Website      *string   `db:"website" json:"website"`
	Scale        *int64    `db:"scale" json:"scale"`
	Dropdown     *string   `db:"dropdown" json:"dropdown"`
	FileRef      *string   `db:"file_ref" json:"file"`        // opaque generated name, never the client's
	CreatedAt    time.Time `db:"created_at" json:"createdAt"` // set once at insert
}

// HasFile reports whether an upload is attached.
func (s *Submission) HasFile() bool {
	return s.FileRef != nil && *s.FileRef != ""
}

// Multi-select column name, used by the CSV export.
const MultiSelectColumn = "multi_select"

// Pagination describes one page of a listing.
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// NewPagination computes the page count as ceil(total / limit).
func NewPagination(total, page, limit int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Total: total, Page: page, Limit: limit, Pages: pages}
}

// SubmissionPage is one page of submissions plus its pagination summary.
type SubmissionPage struct {
	Submissions []*Submission `json:"submissions"`
	Pagination  Pagination    `json:"pagination"`
}
