// Package export renders stored submissions as CSV.
package export

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/templui/formdesk/internal/model"
)

// MultiValueSeparator joins multi-select options inside one CSV cell.
const MultiValueSeparator = ";"

// Options controls how a record set is rendered.
type Options struct {
	// MultiValueColumns are columns holding an encoded option list.
	MultiValueColumns []string
}

// DefaultOptions flattens the submission multi-select column.
var DefaultOptions = Options{MultiValueColumns: []string{model.MultiSelectColumn}}

// ToCSV renders rows with a header made of the union of all column names,
// in first-seen order. Every cell is quoted and embedded quotes doubled.
// Missing or NULL values render as "". An empty set renders as no bytes.
func ToCSV(rows []model.Row, opts Options) []byte {
	columns := Columns(rows)
	if len(columns) == 0 {
		return []byte{}
	}

	multi := make(map[string]bool, len(opts.MultiValueColumns))
	for _, c := range opts.MultiValueColumns {
		multi[c] = true
	}

	var buf bytes.Buffer
	writeRecord(&buf, columns)

	cells := make([]string, len(columns))
	for _, row := range rows {
		for i, column := range columns {
			value, _ := row.Get(column)
			cells[i] = formatValue(value, multi[column])
		}
		writeRecord(&buf, cells)
	}

	return buf.Bytes()
}

// Columns returns the union of column names across rows in first-seen order.
func Columns(rows []model.Row) []string {
	seen := map[string]bool{}
	var columns []string
	for _, row := range rows {
		for _, f := range row {
			if !seen[f.Name] {
				seen[f.Name] = true
				columns = append(columns, f.Name)
			}
		}
	}
	return columns
}

// Filename names an export after the day it was produced.
func Filename(now time.Time) string {
	return fmt.Sprintf("submissions_%s.csv", now.Format("2006-01-02"))
}

func writeRecord(buf *bytes.Buffer, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strings.ReplaceAll(cell, `"`, `""`))
		buf.WriteByte('"')
	}
	buf.WriteString("\r\n")
}

func formatValue(value any, multiValue bool) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		if multiValue {
			return flatten(v)
		}
		return v
	case []byte:
		if multiValue {
			return flatten(string(v))
		}
		return string(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// flatten joins a structured option list, leaving unparseable values as stored.
func flatten(stored string) string {
	values, ok := model.ParseSelection(stored).Values()
	if !ok {
		return stored
	}
	return strings.Join(values, MultiValueSeparator)
}
