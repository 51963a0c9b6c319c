package report

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"pulsecli/internal/analysis"
	"pulsecli/internal/config"
	"pulsecli/internal/table"
)

// Sheet names of the generated workbook.
const (
	SheetRawData      = "Raw Data"
	SheetPulseSummary = "Pulse Summary"
	SheetAllData      = "All Data"
)

// WriteWorkbook writes the complete analysis workbook to path.
//
// The workbook mirrors the layout of the reports the bench operators
// already know: the untouched input on "Raw Data", one row per pulse
// plus channel totals on "Pulse Summary", and the input annotated with
// pulse membership columns on "All Data", with a line chart of every
// channel against the time axis.
func WriteWorkbook(path string, result *analysis.Result) error {
	if result == nil || result.Table == nil {
		return fmt.Errorf("report: result has no table data")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetRawData); err != nil {
		return fmt.Errorf("report: renaming sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetPulseSummary); err != nil {
		return fmt.Errorf("report: creating sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetAllData); err != nil {
		return fmt.Errorf("report: creating sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("report: creating style: %w", err)
	}

	if err := writeRawData(f, SheetRawData, result.Table, headerStyle); err != nil {
		return err
	}
	if err := writePulseSummary(f, result, headerStyle); err != nil {
		return err
	}
	if err := writeAllData(f, result, headerStyle); err != nil {
		return err
	}
	if err := addChannelChart(f, result); err != nil {
		return err
	}
	if err := addChartSheets(f, result); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("report: saving workbook: %w", err)
	}
	return nil
}

// writeRawData copies the loaded table verbatim onto sheet.
func writeRawData(f *excelize.File, sheet string, t *table.Table, headerStyle int) error {
	header := make([]interface{}, len(t.Columns()))
	for j, c := range t.Columns() {
		header[j] = c.Name
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("report: writing header: %w", err)
	}
	if err := styleHeader(f, sheet, len(header), headerStyle); err != nil {
		return err
	}

	for i := 0; i < t.Rows(); i++ {
		row := make([]interface{}, len(t.Columns()))
		for j, c := range t.Columns() {
			row[j] = cellValue(c, i)
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("report: writing row %d: %w", i+1, err)
		}
	}
	return nil
}

// writePulseSummary writes one row per detected pulse followed by a
// per-channel totals block.
func writePulseSummary(f *excelize.File, result *analysis.Result, headerStyle int) error {
	header := []interface{}{
		"Channel", "Pulse #", "Start Index", "End Index",
		"Start Time", "End Time", "Duration", "Samples", "Peak", "Peak Time", "Mean",
	}
	if err := f.SetSheetRow(SheetPulseSummary, "A1", &header); err != nil {
		return fmt.Errorf("report: writing summary header: %w", err)
	}
	if err := styleHeader(f, SheetPulseSummary, len(header), headerStyle); err != nil {
		return err
	}

	times := timeAxisValues(result)

	rowIdx := 2
	for _, ch := range result.Channels {
		values := channelValues(result, ch.Channel)
		for n, p := range ch.Pulses {
			row := []interface{}{
				ch.Channel, n + 1, p.Start, p.End,
				p.StartTime, p.EndTime, p.Duration, p.Samples,
				p.Peak, peakTime(values, times, p), p.Mean,
			}
			cell, _ := excelize.CoordinatesToCellName(1, rowIdx)
			if err := f.SetSheetRow(SheetPulseSummary, cell, &row); err != nil {
				return fmt.Errorf("report: writing summary row: %w", err)
			}
			rowIdx++
		}
	}

	// Channel totals, separated by a blank row.
	rowIdx++
	totalsHeader := []interface{}{"Channel", "Threshold", "Pulses", "Max Peak", "Min Peak", "Mean Peak"}
	cell, _ := excelize.CoordinatesToCellName(1, rowIdx)
	if err := f.SetSheetRow(SheetPulseSummary, cell, &totalsHeader); err != nil {
		return fmt.Errorf("report: writing totals header: %w", err)
	}
	for col := 1; col <= len(totalsHeader); col++ {
		c, _ := excelize.CoordinatesToCellName(col, rowIdx)
		f.SetCellStyle(SheetPulseSummary, c, c, headerStyle)
	}
	rowIdx++

	for _, ch := range result.Channels {
		row := []interface{}{ch.Channel, ch.Threshold, ch.Count(), ch.MaxPeak, ch.MinPeak, ch.MeanPeak}
		cell, _ := excelize.CoordinatesToCellName(1, rowIdx)
		if err := f.SetSheetRow(SheetPulseSummary, cell, &row); err != nil {
			return fmt.Errorf("report: writing totals row: %w", err)
		}
		rowIdx++
	}
	return nil
}

// timeAxisValues returns the result's time axis, falling back to
// sample indices when the time column is synthetic or unreadable.
func timeAxisValues(result *analysis.Result) []float64 {
	if result.Table != nil && result.TimeColumn != "" {
		if v, err := result.Table.Numeric(result.TimeColumn); err == nil {
			return v
		}
	}
	v := make([]float64, result.Samples)
	for i := range v {
		v[i] = float64(i)
	}
	return v
}

func channelValues(result *analysis.Result, channel string) []float64 {
	if result.Table == nil {
		return nil
	}
	v, err := result.Table.Numeric(channel)
	if err != nil {
		return nil
	}
	return v
}

// peakTime is the time of the first sample in the pulse that reaches
// the peak value.
func peakTime(values, times []float64, p analysis.Pulse) float64 {
	for i := p.Start; i <= p.End && i < len(values); i++ {
		if values[i] == p.Peak {
			if i < len(times) && !math.IsNaN(times[i]) {
				return times[i]
			}
			return float64(i)
		}
	}
	return p.StartTime
}

// writeAllData writes the table with one pulse membership column per
// channel appended. A cell holds the 1-based pulse number its row
// belongs to, or is left empty outside pulses.
func writeAllData(f *excelize.File, result *analysis.Result, headerStyle int) error {
	t := result.Table

	header := make([]interface{}, 0, len(t.Columns())+len(result.Channels))
	for _, c := range t.Columns() {
		header = append(header, c.Name)
	}
	for _, ch := range result.Channels {
		header = append(header, ch.Channel+" "+config.PulseColumnName)
	}
	if err := f.SetSheetRow(SheetAllData, "A1", &header); err != nil {
		return fmt.Errorf("report: writing all-data header: %w", err)
	}
	if err := styleHeader(f, SheetAllData, len(header), headerStyle); err != nil {
		return err
	}

	membership := pulseMembership(result, t.Rows())

	for i := 0; i < t.Rows(); i++ {
		row := make([]interface{}, 0, len(header))
		for _, c := range t.Columns() {
			row = append(row, cellValue(c, i))
		}
		for k := range result.Channels {
			if n := membership[k][i]; n > 0 {
				row = append(row, n)
			} else {
				row = append(row, nil)
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetAllData, cell, &row); err != nil {
			return fmt.Errorf("report: writing all-data row %d: %w", i+1, err)
		}
	}
	return nil
}

// pulseMembership maps, per channel, each row index to its 1-based
// pulse number (0 outside pulses).
func pulseMembership(result *analysis.Result, rows int) [][]int {
	membership := make([][]int, len(result.Channels))
	for k, ch := range result.Channels {
		membership[k] = make([]int, rows)
		for n, p := range ch.Pulses {
			for i := p.Start; i <= p.End && i < rows; i++ {
				membership[k][i] = n + 1
			}
		}
	}
	return membership
}

// addChannelChart embeds a line chart of every analyzed channel
// against the time axis on the All Data sheet.
func addChannelChart(f *excelize.File, result *analysis.Result) error {
	t := result.Table
	rows := t.Rows()
	if rows == 0 || len(result.Channels) == 0 {
		return nil
	}

	colOf := func(name string) int {
		for j, c := range t.Columns() {
			if c.Name == name {
				return j + 1
			}
		}
		return 0
	}

	var categories string
	if timeCol := colOf(result.TimeColumn); timeCol > 0 {
		letter, _ := excelize.ColumnNumberToName(timeCol)
		categories = fmt.Sprintf("'%s'!$%s$2:$%s$%d", SheetRawData, letter, letter, rows+1)
	}

	var series []excelize.ChartSeries
	for _, ch := range result.Channels {
		col := colOf(ch.Channel)
		if col == 0 {
			continue
		}
		letter, _ := excelize.ColumnNumberToName(col)
		series = append(series, excelize.ChartSeries{
			Name:       fmt.Sprintf("'%s'!$%s$1", SheetRawData, letter),
			Categories: categories,
			Values:     fmt.Sprintf("'%s'!$%s$2:$%s$%d", SheetRawData, letter, letter, rows+1),
		})
	}
	if len(series) == 0 {
		return nil
	}

	chart := &excelize.Chart{
		Type:   excelize.Line,
		Series: series,
		Title:  []excelize.RichTextRun{{Text: "Channel Signals"}},
		Legend: excelize.ChartLegend{Position: "bottom"},
		XAxis:  excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: result.TimeColumn}}},
		YAxis:  excelize.ChartAxis{MajorGridLines: true},
	}

	anchor, _ := excelize.CoordinatesToCellName(len(t.Columns())+len(result.Channels)+2, 2)
	if err := f.AddChart(SheetAllData, anchor, chart); err != nil {
		return fmt.Errorf("report: adding chart: %w", err)
	}
	return nil
}

// addChartSheets creates one chart sheet per analyzed channel, each a
// single-series line of that channel against the time axis.
func addChartSheets(f *excelize.File, result *analysis.Result) error {
	t := result.Table
	rows := t.Rows()
	if rows == 0 {
		return nil
	}

	colOf := func(name string) int {
		for j, c := range t.Columns() {
			if c.Name == name {
				return j + 1
			}
		}
		return 0
	}

	var categories string
	if timeCol := colOf(result.TimeColumn); timeCol > 0 {
		letter, _ := excelize.ColumnNumberToName(timeCol)
		categories = fmt.Sprintf("'%s'!$%s$2:$%s$%d", SheetRawData, letter, letter, rows+1)
	}

	for _, ch := range result.Channels {
		col := colOf(ch.Channel)
		if col == 0 {
			continue
		}
		letter, _ := excelize.ColumnNumberToName(col)
		chart := &excelize.Chart{
			Type: excelize.Line,
			Series: []excelize.ChartSeries{{
				Name:       fmt.Sprintf("'%s'!$%s$1", SheetRawData, letter),
				Categories: categories,
				Values:     fmt.Sprintf("'%s'!$%s$2:$%s$%d", SheetRawData, letter, letter, rows+1),
			}},
			Title: []excelize.RichTextRun{{Text: ch.Channel + " vs " + result.TimeColumn}},
			XAxis: excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: result.TimeColumn}}},
			YAxis: excelize.ChartAxis{MajorGridLines: true},
		}
		if err := f.AddChartSheet(chartSheetName(ch.Channel), chart); err != nil {
			return fmt.Errorf("report: adding chart sheet for %s: %w", ch.Channel, err)
		}
	}
	return nil
}

// chartSheetName keeps chart sheet names inside the 31 character sheet
// name limit.
func chartSheetName(channel string) string {
	name := channel + " Chart"
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}

// cellValue picks the typed value for a cell: parsed floats for
// numeric columns, raw text otherwise. NaN cells fall back to text so
// the workbook never contains #NUM! artifacts.
func cellValue(c *table.Column, i int) interface{} {
	if c.Numeric() && !math.IsNaN(c.Values[i]) {
		return c.Values[i]
	}
	if c.Text[i] == "" {
		return nil
	}
	return c.Text[i]
}

func styleHeader(f *excelize.File, sheet string, cols, style int) error {
	last, _ := excelize.CoordinatesToCellName(cols, 1)
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("report: styling header: %w", err)
	}
	return nil
}
