package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"rollcall-roster/models"
)

// Header names every roster source must provide
const (
	ColumnStudentID = "studentId"
	ColumnClass     = "class"
)

var (
	// ErrMissingColumn is returned when a source header lacks a required column.
	ErrMissingColumn = errors.New("missing required column")
	// ErrNoRoster is returned when a source has no roster at all.
	ErrNoRoster = errors.New("roster not found")
)

// Source is a backend the roster is read from, once, at startup.
type Source interface {
	// Name identifies the source in logs and errors, e.g. "csv:/srv/data/data.csv".
	Name() string
	// Students returns every record in source order.
	Students(ctx context.Context) ([]models.Student, error)
}

// RowError reports a data row that could not be turned into a Student.
type RowError struct {
	Line   int    // 1-based line (CSV) or row (XLSX) number
	Column string // Column holding the bad value
	Value  string // Raw cell value
	Err    error
}

func (e *RowError) Error() string {
	if errors.Is(e.Err, ErrMissingColumn) {
		return fmt.Sprintf("line %d: column %s: %v", e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("line %d: column %s: invalid value %q: %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Load reads the whole roster from src. Any failure is fatal to the caller:
// no partial roster is ever returned.
func Load(ctx context.Context, src Source, logger *zap.Logger) ([]models.Student, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("Loading roster", zap.String("source", src.Name()))

	students, err := src.Students(ctx)
	if err != nil {
		logger.Error("Failed to load roster", zap.String("source", src.Name()), zap.Error(err))
		return nil, fmt.Errorf("load roster from %s: %w", src.Name(), err)
	}
	if students == nil {
		students = []models.Student{}
	}

	logger.Info("Roster loaded", zap.String("source", src.Name()), zap.Int("students", len(students)))
	return students, nil
}

// columns holds the positions of the required columns within a header row.
type columns struct {
	studentID int
	class     int
}

// findColumns locates the required columns in header. Extra columns are
// ignored; when a name repeats, the last occurrence wins.
func findColumns(header []string) (columns, error) {
	cols := columns{studentID: -1, class: -1}
	for i, name := range header {
		switch name {
		case ColumnStudentID:
			cols.studentID = i
		case ColumnClass:
			cols.class = i
		}
	}

	var missing []string
	if cols.studentID < 0 {
		missing = append(missing, ColumnStudentID)
	}
	if cols.class < 0 {
		missing = append(missing, ColumnClass)
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return cols, nil
}

// parseRow builds a Student from one data row. A row too short to reach
// either required column is rejected; cells past those columns are ignored.
func (c columns) parseRow(row []string, line int) (models.Student, error) {
	if c.studentID >= len(row) {
		return models.Student{}, &RowError{Line: line, Column: ColumnStudentID, Err: ErrMissingColumn}
	}
	if c.class >= len(row) {
		return models.Student{}, &RowError{Line: line, Column: ColumnClass, Err: ErrMissingColumn}
	}

	rawID := row[c.studentID]
	id, err := strconv.Atoi(strings.TrimSpace(rawID))
	if err != nil {
		return models.Student{}, &RowError{Line: line, Column: ColumnStudentID, Value: rawID, Err: err}
	}
	return models.Student{StudentID: id, Class: row[c.class]}, nil
}
