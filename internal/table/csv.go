package table

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// encodingAttempt is one entry in the ordered decode fallback list.
type encodingAttempt struct {
	name string
	// applies reports whether the attempt is worth making for the
	// given raw bytes (BOM or validity precheck).
	applies func(data []byte) bool
	decoder func() *encoding.Decoder
}

// Logger-exported capture export tools write UTF-16; hand-edited CSVs
// are usually UTF-8 or Windows-1252. The list is ordered from the
// strictest check to the catch-all.
var encodingAttempts = []encodingAttempt{
	{
		name:    "utf-8",
		applies: utf8.Valid,
		decoder: unicode.UTF8BOM.NewDecoder,
	},
	{
		name: "utf-16le",
		applies: func(data []byte) bool {
			return len(data) >= 2 && data[0] == 0xFF && data[1] == 0xFE
		},
		decoder: unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder,
	},
	{
		name: "utf-16be",
		applies: func(data []byte) bool {
			return len(data) >= 2 && data[0] == 0xFE && data[1] == 0xFF
		},
		decoder: unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder,
	},
	{
		name:    "windows-1252",
		applies: func([]byte) bool { return true },
		decoder: charmap.Windows1252.NewDecoder,
	},
}

// LoadCSV reads a delimited text file, trying each known encoding in
// order until one decodes and parses cleanly.
func LoadCSV(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrUnreadableFile)
	}

	var lastErr error
	for _, attempt := range encodingAttempts {
		if !attempt.applies(data) {
			continue
		}

		decoded, err := attempt.decoder().Bytes(data)
		if err != nil {
			lastErr = fmt.Errorf("decoding as %s: %w", attempt.name, err)
			continue
		}

		tbl, err := parseDelimited(string(decoded))
		if err != nil {
			lastErr = fmt.Errorf("parsing as %s: %w", attempt.name, err)
			continue
		}

		slog.Debug("parsed delimited file",
			slog.String("path", path),
			slog.String("encoding", attempt.name),
			slog.Int("rows", tbl.Rows()),
			slog.Int("columns", len(tbl.Columns())))
		return tbl, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, lastErr)
}

// parseDelimited parses decoded text with a sniffed delimiter. The
// first record is the header; at least one data row is required.
func parseDelimited(text string) (*Table, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = sniffDelimiter(text)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("need a header row and at least one data row, got %d rows", len(records))
	}

	return New(buildColumns(records[0], records[1:])), nil
}

// sniffDelimiter picks the delimiter that occurs most often in the
// first non-empty line. Comma wins ties.
func sniffDelimiter(text string) rune {
	line := text
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		line = text[:i]
	}

	best, bestCount := ',', strings.Count(line, ",")
	for _, cand := range []rune{';', '\t'} {
		if n := strings.Count(line, string(cand)); n > bestCount {
			best, bestCount = cand, n
		}
	}
	return best
}
