package db

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"rollcall-roster/models"
)

const utf8BOM = "\ufeff"

// CSVSource reads the roster from a comma-separated file with a header row.
type CSVSource struct {
	Path string
}

// NewCSVSource creates a CSVSource for path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

func (s *CSVSource) Name() string { return "csv:" + s.Path }

// Students reads every data row of the file in order.
func (s *CSVSource) Students(ctx context.Context) ([]models.Student, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open roster file: %w", err)
	}
	defer f.Close()

	return readCSV(ctx, f)
}

func readCSV(ctx context.Context, r io.Reader) ([]models.Student, error) {
	reader := csv.NewReader(r)
	// Rows may be longer or shorter than the header, and quotes inside an
	// unquoted cell are kept verbatim.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			// An empty file has no header, so both columns are missing.
			_, err = findColumns(nil)
			return nil, err
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	cols, err := findColumns(header)
	if err != nil {
		return nil, err
	}

	students := []models.Student{}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		line, _ := reader.FieldPos(0)
		student, err := cols.parseRow(row, line)
		if err != nil {
			return nil, err
		}
		students = append(students, student)
	}
	return students, nil
}
