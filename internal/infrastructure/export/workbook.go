// Package export renders Person records into xlsx workbooks.
package export

import (
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/erp/personportal/internal/domain/person"
)

// SheetName is the only sheet of an exported workbook
const SheetName = "Persons"

// Header is the first row of the sheet.
var Header = []string{"Name", "Contact", "Email"}

const (
	fontFamily = "Calibri"
	fontSize   = 12

	minColumnWidth = 10.0
	maxColumnWidth = 255.0
	columnPadding  = 2.0
)

// WorkbookBuilder builds the Persons workbook
type WorkbookBuilder struct{}

// NewWorkbookBuilder creates a new WorkbookBuilder
func NewWorkbookBuilder() *WorkbookBuilder {
	return &WorkbookBuilder{}
}

// Build writes a header row followed by one row per record, in order, styles
// the used range and widens every column to fit its content.
func (b *WorkbookBuilder) Build(people []person.Person) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	rows := make([][]string, 0, len(people)+1)
	rows = append(rows, Header)
	for _, p := range people {
		rows = append(rows, []string{p.Name, p.Contact, p.Email})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := styleRange(f, len(rows), len(Header)); err != nil {
		return nil, err
	}
	if err := fitColumns(f, rows); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// styleRange applies thin borders, the font and centering to the used range.
// A border on every side of every cell gives both the outside and the inside
// grid lines.
func styleRange(f *excelize.File, rowCount, colCount int) error {
	borders := make([]excelize.Border, 0, 4)
	for _, side := range []string{"left", "top", "right", "bottom"} {
		borders = append(borders, excelize.Border{Type: side, Color: "000000", Style: 1})
	}
	style, err := f.NewStyle(&excelize.Style{
		Border: borders,
		Font:   &excelize.Font{Family: fontFamily, Size: fontSize},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	last, err := excelize.CoordinatesToCellName(colCount, rowCount)
	if err != nil {
		return err
	}
	return f.SetCellStyle(SheetName, "A1", last, style)
}

func fitColumns(f *excelize.File, rows [][]string) error {
	for col := range Header {
		width := minColumnWidth
		for _, row := range rows {
			if w := float64(utf8.RuneCountInString(row[col])) + columnPadding; w > width {
				width = w
			}
		}
		if width > maxColumnWidth {
			width = maxColumnWidth
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, name, name, width); err != nil {
			return fmt.Errorf("set width of column %s: %w", name, err)
		}
	}
	return nil
}
