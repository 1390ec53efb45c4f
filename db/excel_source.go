package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"rollcall-roster/models"
)

// ExcelSource reads the roster from an .xlsx workbook. The first row of the
// sheet is the header; the same column rules as CSVSource apply.
type ExcelSource struct {
	Path  string
	Sheet string // Defaults to the first sheet
}

// NewExcelSource creates an ExcelSource for path. An empty sheet selects the first sheet.
func NewExcelSource(path, sheet string) *ExcelSource {
	return &ExcelSource{Path: path, Sheet: sheet}
}

func (s *ExcelSource) Name() string {
	if s.Sheet != "" {
		return "xlsx:" + s.Path + "#" + s.Sheet
	}
	return "xlsx:" + s.Path
}

// Students reads every non-blank data row of the sheet in order.
func (s *ExcelSource) Students(ctx context.Context) ([]models.Student, error) {
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel file: %w", err)
	}
	defer f.Close()

	sheetName := s.Sheet
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	if sheetName == "" {
		return nil, errors.New("excel file does not contain any sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows from sheet %s: %w", sheetName, err)
	}
	if len(rows) == 0 {
		_, err := findColumns(nil)
		return nil, err
	}

	cols, err := findColumns(rows[0])
	if err != nil {
		return nil, err
	}

	students := make([]models.Student, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if blankRow(row) {
			continue
		}
		// Sheet rows are 1-based and the header occupies row 1.
		student, err := cols.parseRow(padRow(row, len(rows[0])), i+2)
		if err != nil {
			return nil, err
		}
		students = append(students, student)
	}
	return students, nil
}

// blankRow reports whether every cell of row is empty. Cells holding only
// spaces are data, as they are in a CSV file.
func blankRow(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}

// padRow extends row to width with empty cells. excelize drops trailing
// empty cells, which would otherwise read as missing columns.
func padRow(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	padded := make([]string, width)
	copy(padded, row)
	return padded
}
