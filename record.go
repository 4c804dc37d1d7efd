package sheetrec

import (
	"context"
	"fmt"
	"math"
	"reflect"
)

// closeEnoughEpsilon is the tolerance under which two numbers count as unchanged
const closeEnoughEpsilon = 1e-6

// Change is one entry of a record's change log
type Change struct {
	Field    string
	Previous interface{}
	Value    interface{}
}

// Record is one row of a sheet (one column under the Columns layout).
// Loaded records read and write a positional row through the sheet schema;
// records that were never saved keep their values in a field map instead.
type Record struct {
	client     *Client
	schema     Schema
	row        []interface{}          // authoritative when non-nil
	values     map[string]interface{} // authoritative when row is nil
	position   int                    // 1-based row (or column) number, 0 when unsaved
	sheet      Sheet
	documentID string
	dim        MajorDimension
	externalID string
	changes    []Change

	pendingMetadata bool
}

func newRowRecord(client *Client, schema Schema, row []interface{}, position int, documentID string, sheet Sheet, dim MajorDimension) *Record {
	cells := make([]interface{}, len(row))
	copy(cells, row)

	return &Record{
		client:     client,
		schema:     schema,
		row:        cells,
		position:   position,
		sheet:      sheet,
		documentID: documentID,
		dim:        dim,
	}
}

func newValueRecord(client *Client, schema Schema, documentID string, sheet Sheet, dim MajorDimension) *Record {
	return &Record{
		client:     client,
		schema:     schema,
		values:     make(map[string]interface{}),
		sheet:      sheet,
		documentID: documentID,
		dim:        dim,
	}
}

// Get returns the value of field, or nil when the field is unknown or empty
func (r *Record) Get(field string) interface{} {
	v, _ := r.lookup(field)
	return v
}

func (r *Record) lookup(field string) (interface{}, bool) {
	if r.row != nil {
		idx, ok := r.schema.Index(field)
		if !ok || idx >= len(r.row) {
			return nil, false
		}
		return r.row[idx], true
	}
	v, ok := r.values[field]
	return v, ok
}

// Set assigns value to field and appends to the change log. Assigning a value
// close enough to the current one changes nothing. nil is stored as "".
func (r *Record) Set(field string, value interface{}) error {
	if (r.row != nil || !r.schema.IsZero()) && !r.schema.Has(field) {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	if value == nil {
		value = ""
	}
	current := r.Get(field)
	if current == nil {
		current = ""
	}
	if closeEnough(current, value) {
		return nil
	}

	if r.row != nil {
		idx, ok := r.schema.Index(field)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
		for len(r.row) <= idx {
			r.row = append(r.row, "")
		}
		r.row[idx] = value
	} else {
		if r.values == nil {
			r.values = make(map[string]interface{})
		}
		r.values[field] = value
	}

	r.changes = append(r.changes, Change{Field: field, Previous: current, Value: value})
	return nil
}

// Changed reports whether the record has unsaved changes
func (r *Record) Changed() bool {
	return len(r.changes) > 0
}

// Changes returns a copy of the change log
func (r *Record) Changes() []Change {
	out := make([]Change, len(r.changes))
	copy(out, r.changes)
	return out
}

// Values returns every known field value
func (r *Record) Values() map[string]interface{} {
	out := make(map[string]interface{})
	if r.row != nil {
		for _, field := range r.schema.Fields() {
			if v, ok := r.lookup(field); ok {
				out[field] = v
			}
		}
		return out
	}
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Position returns the 1-based row (or column) number, 0 for unsaved records
func (r *Record) Position() int {
	return r.position
}

func (r *Record) Sheet() Sheet {
	return r.sheet
}

func (r *Record) DocumentID() string {
	return r.documentID
}

func (r *Record) Dimension() MajorDimension {
	return r.dim
}

func (r *Record) Schema() Schema {
	return r.schema
}

// SetExternalID sets an identifier that is stored as metadata on the record's
// row when the record is first inserted
func (r *Record) SetExternalID(id string) {
	r.externalID = id
}

func (r *Record) ExternalID() string {
	return r.externalID
}

// CellAddress returns the A1 address of field in this record, prefixed with the sheet name
func (r *Record) CellAddress(field string) (string, error) {
	idx, ok := r.schema.Index(field)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownColumn, field)
	}
	if r.position <= 0 {
		return "", ErrNoPosition
	}

	var cell string
	if r.dim == Columns {
		letters, err := ColumnToLetter(r.position)
		if err != nil {
			return "", err
		}
		cell = fmt.Sprintf("%s%d", letters, idx+1)
	} else {
		letters, err := ColumnToLetter(idx + 1)
		if err != nil {
			return "", err
		}
		cell = fmt.Sprintf("%s%d", letters, r.position)
	}
	return sheetPrefix(r.sheet) + cell, nil
}

// Save writes the record. A loaded record writes only its changed cells in one
// batch; a new record is inserted as a whole row (or column). The change log is
// cleared only when every remote call succeeded.
func (r *Record) Save(ctx context.Context) error {
	if r.documentID == "" {
		return ErrMissingDocument
	}
	if r.client == nil {
		return ErrNoSession
	}

	if r.position == 0 {
		return r.insert(ctx)
	}
	return r.saveChanges(ctx)
}

func (r *Record) saveChanges(ctx context.Context) error {
	if len(r.changes) > 0 {
		data := make([]ValueRange, 0, len(r.changes))
		for _, change := range r.changes {
			addr, err := r.CellAddress(change.Field)
			if err != nil {
				return err
			}
			data = append(data, ValueRange{
				Range:  addr,
				Values: [][]interface{}{{change.Value}},
			})
		}

		if err := r.client.writeBatch(ctx, r.documentID, data, r.dim); err != nil {
			return err
		}
	}

	if err := r.attachPendingMetadata(ctx); err != nil {
		return err
	}
	r.changes = nil
	return nil
}

func (r *Record) insert(ctx context.Context) error {
	schema := r.schema
	if schema.IsZero() {
		var err error
		if schema, err = r.client.Schema(ctx, r.documentID, r.sheet, r.dim); err != nil {
			return err
		}
	}

	row := make([]interface{}, schema.Width())
	for i := range row {
		row[i] = ""
	}
	for field, v := range r.values {
		idx, ok := schema.Index(field)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
		row[idx] = v
	}

	at := r.client.config.InsertPosition
	if err := r.client.insertEmpty(ctx, r.documentID, r.sheet, at, r.dim); err != nil {
		return err
	}

	// The empty row exists now; from here on the record is positioned so a
	// failed write is retried as a change write by the next Save.
	r.schema = schema
	r.position = at
	r.row = row
	r.values = nil
	r.pendingMetadata = r.externalID != ""

	start := fmt.Sprintf("A%d", at)
	if r.dim == Columns {
		letters, err := ColumnToLetter(at)
		if err != nil {
			return err
		}
		start = letters + "1"
	}
	data := []ValueRange{{Range: sheetPrefix(r.sheet) + start, Values: [][]interface{}{row}}}
	if err := r.client.writeBatch(ctx, r.documentID, data, r.dim); err != nil {
		return err
	}

	if err := r.attachPendingMetadata(ctx); err != nil {
		return err
	}
	r.changes = nil
	return nil
}

func (r *Record) attachPendingMetadata(ctx context.Context) error {
	if !r.pendingMetadata {
		return nil
	}
	key := r.client.config.MetadataKey
	if err := r.client.attachMetadata(ctx, r.documentID, r.sheet, r.position, r.dim, key, r.externalID); err != nil {
		return err
	}
	r.pendingMetadata = false
	return nil
}

// Destroy deletes the record's row (or column). Unsaved records are left alone.
// A destroyed record keeps its values and becomes unsaved.
func (r *Record) Destroy(ctx context.Context) error {
	if r.position == 0 {
		return nil
	}
	if r.documentID == "" {
		return ErrMissingDocument
	}
	if r.client == nil {
		return ErrNoSession
	}

	if err := r.client.deletePosition(ctx, r.documentID, r.sheet, r.position, r.dim); err != nil {
		return err
	}

	r.values = r.Values()
	r.row = nil
	r.position = 0
	r.changes = nil
	r.pendingMetadata = false
	return nil
}

func sheetPrefix(sheet Sheet) string {
	if sheet.Title == "" {
		return ""
	}
	return QuoteSheetName(sheet.Title) + "!"
}

// closeEnough reports whether b can replace a without counting as a change
func closeEnough(a, b interface{}) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	if isNumeric(a) && isNumeric(b) {
		return math.Abs(toFloat64(a)-toFloat64(b)) < closeEnoughEpsilon
	}
	return false
}
