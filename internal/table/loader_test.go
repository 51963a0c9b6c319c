package table

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OpenPSG/edf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, sheet string, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		require.NoError(t, f.SetSheetName("Sheet1", sheet))
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "capture.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoadExcel(t *testing.T) {
	path := writeWorkbook(t, "Raw Data", [][]interface{}{
		{"Relative Time", "Volt", "Amp"},
		{0.0, 12.1, 3.0},
		{0.001, 12.0, 260.0},
		{0.002, 11.8, 2.5},
	})

	tbl, err := LoadExcel(path)
	require.NoError(t, err)

	assert.Equal(t, 3, tbl.Rows())
	amps, err := tbl.Numeric("Amp")
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 260, 2.5}, amps)
}

func TestLoadExcel_TitleRowAboveHeader(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]interface{}{
		{"Peak Current Test"},
		{"Time", "Amp"},
		{0.0, 5.0},
		{1.0, 90.0},
	})

	tbl, err := LoadExcel(path)
	require.NoError(t, err)

	amps, err := tbl.Numeric("Amp")
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 90}, amps)
}

func TestLoadExcel_EmptyWorkbook(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", nil)

	_, err := LoadExcel(path)
	assert.ErrorIs(t, err, ErrUnreadableFile)
}

func writeEDF(t *testing.T, labels []string, records [][][]float64) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "capture.edf")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	signals := make([]edf.SignalHeader, len(labels))
	samplesPerRecord := len(records[0][0])
	for i, label := range labels {
		signals[i] = edf.SignalHeader{
			Label:             label,
			PhysicalDimension: "A",
			PhysicalMin:       -500,
			PhysicalMax:       500,
			DigitalMin:        -32768,
			DigitalMax:        32767,
			SamplesPerRecord:  samplesPerRecord,
		}
	}

	w, err := edf.Create(f, edf.Header{
		Version:            "0",
		PatientID:          "X",
		RecordingID:        "bench capture",
		StartTime:          time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		DataRecordDuration: time.Second,
		SignalCount:        len(labels),
		Signals:            signals,
	})
	require.NoError(t, err)

	for _, record := range records {
		require.NoError(t, w.WriteRecord(record))
	}
	require.NoError(t, w.Close())
	return path
}

func TestLoadEDF(t *testing.T) {
	path := writeEDF(t, []string{"Current", "Voltage"}, [][][]float64{
		{{0, 100, 200, 0}, {12, 12, 11, 12}},
		{{0, 0, 300, 0}, {12, 12, 11, 12}},
	})

	tbl, err := LoadEDF(path)
	require.NoError(t, err)

	assert.Equal(t, 8, tbl.Rows())

	names := tbl.NumericNames()
	require.Len(t, names, 3)
	assert.Equal(t, "Relative Time", names[0])
	assert.Equal(t, "Current [A]", names[1])
	assert.Equal(t, "Voltage [A]", names[2])

	current, err := tbl.Numeric("Current [A]")
	require.NoError(t, err)
	require.Len(t, current, 8)
	// 16-bit quantization over a 1000 A span stays well under 0.1 A.
	assert.InDelta(t, 200, current[2], 0.1)
	assert.InDelta(t, 300, current[6], 0.1)

	times, err := tbl.Numeric("Relative Time")
	require.NoError(t, err)
	assert.InDelta(t, 0.25, times[1], 1e-9, "one second per record, four samples each")
}

func TestLoad_Fallthrough(t *testing.T) {
	// CSV payload behind a misleading extension still loads: the excel
	// attempt fails and falls through to the csv parser.
	path := filepath.Join(t.TempDir(), "export.dat")
	require.NoError(t, os.WriteFile(path, []byte("Time,Amp\n0,1\n1,80\n"), 0644))

	tbl, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Rows())
}

func TestLoad_DropsEventColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.csv")
	data := "Relative Time,Chn 1 Current,Chn 1 Events,Chn 2 Events\n" +
		"0,1,0,0\n" +
		"0.1,80,1,0\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	tbl, err := Load(path)
	require.NoError(t, err)

	names := make([]string, 0, len(tbl.Columns()))
	for _, c := range tbl.Columns() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Relative Time", "Chn 1 Current"}, names)
}

func TestLoad_Exhausted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noise.bin")
	require.NoError(t, os.WriteFile(path, []byte{0x00, 0x01, 0x02, 0xFF}, 0644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrUnreadableFile)
}
