package table

import (
	"fmt"
	"path/filepath"
	"strings"
)

// loaderAttempt is one parser in the ordered fallthrough list.
type loaderAttempt struct {
	name string
	load func(string) (*Table, error)
}

// Load reads a data file into a table. The extension decides which
// parsers to try and in what order; each failing parser falls through
// to the next, and only full exhaustion is an error.
func Load(path string) (*Table, error) {
	var attempts []loaderAttempt

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xls", ".xlsm":
		attempts = []loaderAttempt{
			{"excel", LoadExcel},
			{"csv", LoadCSV},
		}
	case ".edf":
		attempts = []loaderAttempt{
			{"edf", LoadEDF},
		}
	case ".csv", ".tsv", ".txt":
		attempts = []loaderAttempt{
			{"csv", LoadCSV},
		}
	default:
		attempts = []loaderAttempt{
			{"excel", LoadExcel},
			{"csv", LoadCSV},
			{"edf", LoadEDF},
		}
	}

	var errs []string
	for _, attempt := range attempts {
		tbl, err := attempt.load(path)
		if err == nil {
			dropEventColumns(tbl)
			return tbl, nil
		}
		errs = append(errs, fmt.Sprintf("%s: %v", attempt.name, err))
	}

	return nil, fmt.Errorf("%w: all parsers failed: %s", ErrUnreadableFile, strings.Join(errs, "; "))
}

// dropEventColumns removes acquisition event-marker columns ("Chn 1
// Events" and the like) that capture software writes next to the
// signal channels. They are bookkeeping, not measurements.
func dropEventColumns(t *Table) {
	var drop []string
	for _, c := range t.Columns() {
		if strings.HasSuffix(c.Name, " Events") {
			drop = append(drop, c.Name)
		}
	}
	for _, name := range drop {
		t.Drop(name)
	}
}
