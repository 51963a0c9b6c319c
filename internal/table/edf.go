package table

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/OpenPSG/edf"
)

// LoadEDF reads an EDF/EDF+ signal capture into a table. This path is
// experimental: the supported workflow is exporting the capture to CSV
// first. Channel columns are named after the signal labels in the file
// header; a Relative Time column is synthesized from the record
// duration when the header carries one, and from the row index
// otherwise.
func LoadEDF(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	defer f.Close()

	reader, err := edf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}

	meta, err := readHeaderMeta(f)
	if err != nil {
		return nil, err
	}

	columns := make([]*Column, 0, meta.signalCount+1)

	var timeCol *Column
	signals := make([][]float64, meta.signalCount)
	maxLen := 0

	for i := 0; i < meta.signalCount; i++ {
		sr, err := reader.Signal(i)
		if err != nil {
			return nil, fmt.Errorf("%w: signal %d: %v", ErrUnreadableFile, i, err)
		}

		samples, err := readAllSamples(sr)
		if err != nil {
			return nil, fmt.Errorf("%w: signal %d: %v", ErrUnreadableFile, i, err)
		}
		signals[i] = samples
		if len(samples) > maxLen {
			maxLen = len(samples)
		}
	}

	if maxLen == 0 {
		return nil, fmt.Errorf("%w: capture contains no samples", ErrUnreadableFile)
	}

	// Relative Time first, matching the converted-CSV column layout.
	dt := meta.sampleInterval()
	timeText := make([]string, maxLen)
	timeValues := make([]float64, maxLen)
	for i := 0; i < maxLen; i++ {
		t := float64(i)
		if dt > 0 {
			t = float64(i) * dt
		}
		timeValues[i] = t
		timeText[i] = strconv.FormatFloat(t, 'g', -1, 64)
	}
	timeCol = &Column{Name: "Relative Time", Text: timeText, Values: timeValues}
	columns = append(columns, timeCol)

	for i, samples := range signals {
		name := meta.columnName(i)
		text := make([]string, len(samples))
		for j, v := range samples {
			text[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		columns = append(columns, &Column{Name: name, Text: text, Values: samples})
	}

	slog.Debug("parsed edf capture",
		slog.String("path", path),
		slog.Int("signals", meta.signalCount),
		slog.Int("samples", maxLen))

	return New(columns), nil
}

// readAllSamples drains a signal reader.
func readAllSamples(sr *edf.SignalReader) ([]float64, error) {
	var out []float64
	buf := make([]float64, 4096)
	for {
		n, err := sr.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// headerMeta is the slice of the EDF fixed header this loader needs:
// signal labels and dimensions for column names, and record timing for
// the synthesized time column. Offsets follow the EDF specification's
// fixed ASCII layout.
type headerMeta struct {
	signalCount      int
	recordDuration   float64
	samplesPerRecord []int
	labels           []string
	dimensions       []string
}

func (m *headerMeta) sampleInterval() float64 {
	if len(m.samplesPerRecord) == 0 || m.samplesPerRecord[0] <= 0 || m.recordDuration <= 0 {
		return 0
	}
	return m.recordDuration / float64(m.samplesPerRecord[0])
}

func (m *headerMeta) columnName(i int) string {
	label := ""
	if i < len(m.labels) {
		label = strings.TrimSpace(m.labels[i])
	}
	if label == "" {
		label = fmt.Sprintf("Signal %d", i+1)
	}
	if i < len(m.dimensions) {
		if dim := strings.TrimSpace(m.dimensions[i]); dim != "" {
			return fmt.Sprintf("%s [%s]", label, dim)
		}
	}
	return label
}

func readHeaderMeta(f *os.File) (*headerMeta, error) {
	fixed := make([]byte, 256)
	if _, err := f.ReadAt(fixed, 0); err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrUnreadableFile, err)
	}

	meta := &headerMeta{}
	meta.recordDuration, _ = strconv.ParseFloat(strings.TrimSpace(string(fixed[244:252])), 64)

	ns, err := strconv.Atoi(strings.TrimSpace(string(fixed[252:256])))
	if err != nil || ns <= 0 {
		return nil, fmt.Errorf("%w: bad signal count in header", ErrUnreadableFile)
	}
	meta.signalCount = ns

	readField := func(offset, width int) ([]string, error) {
		b := make([]byte, ns*width)
		if _, err := f.ReadAt(b, int64(offset)); err != nil {
			return nil, fmt.Errorf("%w: reading signal headers: %v", ErrUnreadableFile, err)
		}
		out := make([]string, ns)
		for i := 0; i < ns; i++ {
			out[i] = strings.TrimSpace(string(b[i*width : (i+1)*width]))
		}
		return out, nil
	}

	if meta.labels, err = readField(256, 16); err != nil {
		return nil, err
	}
	// Physical dimension block follows labels (16 bytes each) and
	// transducer types (80 bytes each).
	if meta.dimensions, err = readField(256+ns*96, 8); err != nil {
		return nil, err
	}
	// Samples-per-record block sits after prefiltering.
	spr, err := readField(256+ns*216, 8)
	if err != nil {
		return nil, err
	}
	meta.samplesPerRecord = make([]int, ns)
	for i, s := range spr {
		meta.samplesPerRecord[i], _ = strconv.Atoi(s)
	}

	return meta, nil
}
