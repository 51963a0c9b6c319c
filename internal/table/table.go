package table

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Sentinel errors surfaced to the service layer.
var (
	// ErrUnreadableFile means every parser/encoding attempt failed.
	ErrUnreadableFile = errors.New("table: unreadable file")

	// ErrNoSuchColumn is returned when a named column is absent.
	ErrNoSuchColumn = errors.New("table: no such column")

	// ErrNotNumeric is returned when a text column is requested as a
	// numeric channel.
	ErrNotNumeric = errors.New("table: column is not numeric")
)

// Column is one named column of a loaded table. Text always holds the
// raw cell values. Values is non-nil only for numeric columns, with
// NaN standing in for cells that did not parse.
type Column struct {
	Name   string
	Text   []string
	Values []float64
}

// Numeric reports whether the column parsed as a numeric channel.
func (c *Column) Numeric() bool {
	return c.Values != nil
}

// Table is an ordered set of named columns of equal length.
type Table struct {
	columns []*Column
	index   map[string]*Column
}

// New builds a table from columns, preserving order. Column lengths
// are normalized to the longest column by padding with empty cells.
func New(columns []*Column) *Table {
	rows := 0
	for _, c := range columns {
		if len(c.Text) > rows {
			rows = len(c.Text)
		}
	}

	index := make(map[string]*Column, len(columns))
	for _, c := range columns {
		for len(c.Text) < rows {
			c.Text = append(c.Text, "")
		}
		if c.Values != nil {
			for len(c.Values) < rows {
				c.Values = append(c.Values, math.NaN())
			}
		}
		index[c.Name] = c
	}

	return &Table{columns: columns, index: index}
}

// Rows returns the number of data rows.
func (t *Table) Rows() int {
	if len(t.columns) == 0 {
		return 0
	}
	return len(t.columns[0].Text)
}

// Columns returns the columns in load order.
func (t *Table) Columns() []*Column {
	return t.columns
}

// Column looks a column up by name.
func (t *Table) Column(name string) (*Column, bool) {
	c, ok := t.index[name]
	return c, ok
}

// Numeric returns the parsed values of a numeric column.
func (t *Table) Numeric(name string) ([]float64, error) {
	c, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoSuchColumn, name)
	}
	if !c.Numeric() {
		return nil, fmt.Errorf("%w: %q", ErrNotNumeric, name)
	}
	return c.Values, nil
}

// NumericNames returns the names of all numeric columns in order.
func (t *Table) NumericNames() []string {
	var names []string
	for _, c := range t.columns {
		if c.Numeric() {
			names = append(names, c.Name)
		}
	}
	return names
}

// Drop removes a column by name. Dropping an absent column is a no-op.
func (t *Table) Drop(name string) {
	if _, ok := t.index[name]; !ok {
		return
	}
	delete(t.index, name)
	for i, c := range t.columns {
		if c.Name == name {
			t.columns = append(t.columns[:i], t.columns[i+1:]...)
			return
		}
	}
}

// buildColumns converts header+rows cell data into typed columns. A
// column is treated as numeric when at least half of its non-empty
// cells parse as numbers; unparseable cells become NaN.
func buildColumns(header []string, rows [][]string) []*Column {
	columns := make([]*Column, len(header))

	for j, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("Column %d", j+1)
		}

		text := make([]string, len(rows))
		values := make([]float64, len(rows))
		parsed, nonEmpty := 0, 0

		for i, row := range rows {
			cell := ""
			if j < len(row) {
				cell = strings.TrimSpace(row[j])
			}
			text[i] = cell

			if cell == "" {
				values[i] = math.NaN()
				continue
			}
			nonEmpty++

			if v, ok := parseCell(cell); ok {
				values[i] = v
				parsed++
			} else {
				values[i] = math.NaN()
			}
		}

		col := &Column{Name: name, Text: text}
		if parsed > 0 && parsed*2 >= nonEmpty {
			col.Values = values
		}
		columns[j] = col
	}

	return columns
}

// parseCell parses a single cell tolerantly, stripping thousands
// separators the way exported reports format large numbers.
func parseCell(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
