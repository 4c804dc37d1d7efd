package sheetrec

import "context"

// MajorDimension is the orientation of records within a sheet
type MajorDimension int

const (
	// Rows lays out one record per row; the header is row 1.
	Rows MajorDimension = iota
	// Columns lays out one record per column; the header is column A.
	Columns
)

// String returns the dimension name used by the Sheets API
func (d MajorDimension) String() string {
	if d == Columns {
		return "COLUMNS"
	}
	return "ROWS"
}

// Sheet identifies one tab of a spreadsheet
type Sheet struct {
	ID          int64  // stable sheet id, used as the schema cache key
	Title       string // tab name
	Index       int
	RowCount    int // grid size, zero when unknown
	ColumnCount int
}

// ValueRange is a block of values addressed by an A1 range
type ValueRange struct {
	Range  string
	Values [][]interface{}
}

// Service is the remote document backend that records are read from and written to.
// Implementations return errors that DefaultClassifier (or RetryPolicy.Classify) can
// sort into transient and fatal failures; they never retry on their own.
type Service interface {
	// ReadRange returns the values of rng laid out along dim
	ReadRange(ctx context.Context, documentID, rng string, dim MajorDimension) ([][]interface{}, error)

	// WriteBatch writes all ranges in a single request
	WriteBatch(ctx context.Context, documentID string, data []ValueRange, dim MajorDimension) error

	// InsertEmpty inserts one empty row (or column) so that it becomes position at (1-based)
	InsertEmpty(ctx context.Context, documentID string, sheet Sheet, at int, dim MajorDimension) error

	// DeletePosition removes the row (or column) at position at (1-based)
	DeletePosition(ctx context.Context, documentID string, sheet Sheet, at int, dim MajorDimension) error

	// AttachMetadata attaches a key/value pair to the row (or column) at position
	AttachMetadata(ctx context.Context, documentID string, sheet Sheet, position int, dim MajorDimension, key, value string) error

	// ListSheets returns the tabs of the document
	ListSheets(ctx context.Context, documentID string) ([]Sheet, error)

	// AppendRows writes values after the last used row (or column) of the sheet rng names
	AppendRows(ctx context.Context, documentID, rng string, values [][]interface{}, dim MajorDimension) error

	// ClearRange empties the cells of rng, keeping the grid
	ClearRange(ctx context.Context, documentID, rng string) error

	// AddNote sets the note of cell (A1, without sheet); an empty note removes it
	AddNote(ctx context.Context, documentID string, sheet Sheet, cell, note string) error
}
