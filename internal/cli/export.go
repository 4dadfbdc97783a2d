package cli

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/vedika/internal/dasha"
)

const (
	dashaSheet   = "Dasha"
	summarySheet = "Summary"
)

// ExportDashaXLSX writes the timeline as a workbook: a Summary sheet with the birth
// nakshatra and balance, and a Dasha sheet with one row per period, depth-first.
func ExportDashaXLSX(w io.Writer, tl *dasha.Timeline, title string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(dashaSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	opts := tl.Options()
	n := tl.Nakshatra()
	summary := [][]any{
		{"Title", title},
		{"Birth (UTC)", tl.Birth().Format("2006-01-02 15:04:05")},
		{"Nakshatra", n.Name},
		{"Pada", n.Pada},
		{"First lord", tl.FirstLord().String()},
		{"Balance (years)", tl.BalanceYears()},
		{"Year basis", opts.YearBasis.String()},
		{"Depth", opts.MaxDepth},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	if err := f.SetColStyle(summarySheet, "A", bold); err != nil {
		return fmt.Errorf("style summary: %w", err)
	}
	if err := f.SetColWidth(summarySheet, "A", "B", 20); err != nil {
		return fmt.Errorf("size summary: %w", err)
	}

	header := []any{"Level", "Lord", "Chain", "Start (UTC)", "End (UTC)", "Years"}
	if err := f.SetSheetRow(dashaSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetRowStyle(dashaSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	row := 2
	year := float64(tl.YearLength())
	for p := range tl.All() {
		values := []any{
			p.Level.String(),
			p.Lord.String(),
			p.Label(),
			p.Start.UTC().Format("2006-01-02 15:04"),
			p.End.UTC().Format("2006-01-02 15:04"),
			float64(p.Duration()) / year,
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(dashaSheet, cell, &values); err != nil {
			return fmt.Errorf("write period %s: %w", p.Label(), err)
		}
		row++
	}
	if err := f.SetColWidth(dashaSheet, "A", "B", 16); err != nil {
		return fmt.Errorf("size columns: %w", err)
	}
	if err := f.SetColWidth(dashaSheet, "C", "E", 28); err != nil {
		return fmt.Errorf("size columns: %w", err)
	}
	if err := f.SetPanes(dashaSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}
	return f.Write(w)
}
