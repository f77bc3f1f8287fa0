// Package export renders extracted bond trades as a spreadsheet.
package export

import (
	"bytes"
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/dse-bonds/internal/model"
)

const (
	// DefaultFilename is the attachment name of an exported workbook.
	DefaultFilename = "DSE_bond_data.xlsx"
	// DefaultSheetName is the single sheet every workbook carries.
	DefaultSheetName = "Sheet1"
	// ContentType is the media type of an xlsx workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Options configures the workbook writer.
type Options struct {
	SheetName string // default Sheet1
}

// WriteXLSX writes trades to w as a workbook with one header row followed by
// one row per trade. Cells are written as strings, exactly as extracted.
func WriteXLSX(w io.Writer, trades []model.BondTrade, opts Options) error {
	name := opts.SheetName
	if name == "" {
		name = DefaultSheetName
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %q", name)
	}

	addRow(sheet, model.Headers())
	for _, t := range trades {
		addRow(sheet, t.Values())
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write workbook")
	}
	return nil
}

// XLSX returns the workbook for trades as bytes.
func XLSX(trades []model.BondTrade, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, trades, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadXLSX parses a workbook and returns the rows of the named sheet (the
// first sheet when name is empty) as strings.
func ReadXLSX(data []byte, name string) ([][]string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "export: open workbook")
	}

	var sheet *xlsx.Sheet
	if name != "" {
		s, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("export: sheet %q not found", name)
		}
		sheet = s
	} else {
		if len(f.Sheets) == 0 {
			return nil, eris.New("export: workbook has no sheets")
		}
		sheet = f.Sheets[0]
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
