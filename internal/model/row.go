package model

// Field is one column of a stored record.
type Field struct {
	Name  string
	Value any
}

// Row is a stored record as ordered columns, independent of the Submission
// struct so that columns added by other writers survive an export.
type Row []Field

// Get returns the value of the named column.
func (r Row) Get(name string) (any, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

// NormalizePage applies listing defaults: non-positive values fall back to
// page 1 and 10 items. maxSize > 0 clamps the page size.
func NormalizePage(page, size, maxSize int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if maxSize > 0 && size > maxSize {
		size = maxSize
	}
	return page, size
}
