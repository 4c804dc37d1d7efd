package sheetrec

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Client maps sheets of a remote document service to records
type Client struct {
	config  Config
	service Service
	session *Session
	retry   *RetryPolicy
	log     logrus.FieldLogger
}

// New creates a client for the given service. The session starts closed; call Open
// before loading records.
func New(service Service, config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	c := *config
	c.applyDefaults()

	session := NewSession(c.RenameRules)
	if c.Profiling {
		session.EnableProfiling()
	}

	retry := NewRetryPolicy(&c)
	retry.Profiler = session

	return &Client{
		config:  c,
		service: service,
		session: session,
		retry:   retry,
		log:     c.Logger,
	}
}

// Open starts the schema session
func (c *Client) Open() {
	c.session.Open()
}

// Close ends the schema session, dropping cached schemas
func (c *Client) Close() {
	c.session.Close()
}

func (c *Client) Session() *Session {
	return c.session
}

func (c *Client) Retry() *RetryPolicy {
	return c.retry
}

func (c *Client) Service() Service {
	return c.service
}

// SheetByName finds a sheet by title, ignoring case
func (c *Client) SheetByName(ctx context.Context, documentID, name string) (Sheet, error) {
	if documentID == "" {
		return Sheet{}, ErrMissingDocument
	}

	sheets, err := Call(ctx, c.retry, func(ctx context.Context) ([]Sheet, error) {
		return c.service.ListSheets(ctx, documentID)
	}, WithProfile("get_sheets", documentID))
	if err != nil {
		return Sheet{}, err
	}

	for _, s := range sheets {
		if strings.EqualFold(s.Title, name) {
			return s, nil
		}
	}
	return Sheet{}, fmt.Errorf("%w: %s", ErrSheetNotFound, name)
}

// Schema returns the schema of a sheet, reading its header on a cache miss
func (c *Client) Schema(ctx context.Context, documentID string, sheet Sheet, dim MajorDimension) (Schema, error) {
	if documentID == "" {
		return Schema{}, ErrMissingDocument
	}

	schema, ok, err := c.session.Schema(documentID, sheet)
	if err != nil {
		return Schema{}, err
	}
	if ok {
		return schema, nil
	}

	header := "1:1"
	if dim == Columns {
		header = "A:A"
	}
	rng := sheetPrefix(sheet) + header

	values, err := Call(ctx, c.retry, func(ctx context.Context) ([][]interface{}, error) {
		return c.service.ReadRange(ctx, documentID, rng, dim)
	}, WithProfile("get_range", rng))
	if err != nil {
		return Schema{}, err
	}
	if len(values) == 0 {
		return Schema{}, fmt.Errorf("%w: %s has no header", ErrNoSchema, rng)
	}

	schema = c.session.CreateSchema(values[0])
	if schema.IsZero() {
		return Schema{}, fmt.Errorf("%w: %s has no text header", ErrNoSchema, rng)
	}
	if err := c.session.SetSchema(documentID, sheet, schema); err != nil {
		return Schema{}, err
	}

	c.log.WithFields(logrus.Fields{
		"document": documentID,
		"sheet":    sheet.Title,
		"fields":   schema.Len(),
	}).Debug("Loaded schema")
	return schema, nil
}

// FromRangeValues wraps raw sheet values as records. values[0] is the header;
// values[i] becomes the record at position i+1.
func (c *Client) FromRangeValues(values [][]interface{}, documentID string, sheet Sheet, dim MajorDimension) ([]*Record, error) {
	if len(values) == 0 {
		return nil, ErrNoSchema
	}

	schema, ok, err := c.session.Schema(documentID, sheet)
	if err != nil {
		return nil, err
	}
	if !ok {
		schema = c.session.CreateSchema(values[0])
		if schema.IsZero() {
			return nil, ErrNoSchema
		}
		if err := c.session.SetSchema(documentID, sheet, schema); err != nil {
			return nil, err
		}
	}

	records := make([]*Record, 0, len(values)-1)
	for i, row := range values[1:] {
		records = append(records, newRowRecord(c, schema, row, i+2, documentID, sheet, dim))
	}
	return records, nil
}

// Records loads every record of a sheet
func (c *Client) Records(ctx context.Context, documentID string, sheet Sheet, dim MajorDimension) (*Collection, error) {
	if documentID == "" {
		return nil, ErrMissingDocument
	}
	if !c.session.IsOpen() {
		return nil, ErrNoSession
	}
	if sheet.Title == "" {
		return nil, fmt.Errorf("%w: sheet has no title", ErrSheetNotFound)
	}

	rng := quoteSheetName(sheet.Title)
	if sheet.ColumnCount > 0 && sheet.RowCount > 0 {
		var err error
		if rng, err = GridRange(sheet.Title, sheet.ColumnCount, sheet.RowCount); err != nil {
			return nil, err
		}
	}

	values, err := Call(ctx, c.retry, func(ctx context.Context) ([][]interface{}, error) {
		return c.service.ReadRange(ctx, documentID, rng, dim)
	}, WithProfile("get_range", rng))
	if err != nil {
		return nil, err
	}

	records, err := c.FromRangeValues(values, documentID, sheet, dim)
	if err != nil {
		return nil, err
	}
	c.log.WithFields(logrus.Fields{
		"document": documentID,
		"sheet":    sheet.Title,
		"records":  len(records),
	}).Debug("Loaded records")
	return NewCollection(records), nil
}

// NewRecord creates an unsaved record without a schema. Save resolves the
// schema and inserts the record.
func (c *Client) NewRecord(documentID string, sheet Sheet, dim MajorDimension) *Record {
	return newValueRecord(c, Schema{}, documentID, sheet, dim)
}

// BuildRecord creates an unsaved record checked against the sheet schema
func (c *Client) BuildRecord(ctx context.Context, documentID string, sheet Sheet, dim MajorDimension, values map[string]interface{}) (*Record, error) {
	schema, err := c.Schema(ctx, documentID, sheet, dim)
	if err != nil {
		return nil, err
	}

	r := newValueRecord(c, schema, documentID, sheet, dim)

	fields := make([]string, 0, len(values))
	for f := range values {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool {
		ii, _ := schema.Index(fields[i])
		jj, _ := schema.Index(fields[j])
		return ii < jj
	})
	for _, f := range fields {
		if err := r.Set(f, values[f]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (c *Client) writeBatch(ctx context.Context, documentID string, data []ValueRange, dim MajorDimension) error {
	err := c.retry.Execute(ctx, func(ctx context.Context) error {
		return c.service.WriteBatch(ctx, documentID, data, dim)
	}, WithProfile("batch_write", documentID))
	if err != nil {
		return err
	}
	c.log.WithFields(logrus.Fields{
		"document": documentID,
		"ranges":   len(data),
	}).Debug("Wrote ranges")
	return nil
}

func (c *Client) insertEmpty(ctx context.Context, documentID string, sheet Sheet, at int, dim MajorDimension) error {
	return c.retry.Execute(ctx, func(ctx context.Context) error {
		return c.service.InsertEmpty(ctx, documentID, sheet, at, dim)
	}, WithProfile("insert_dimension", sheet.Title))
}

func (c *Client) deletePosition(ctx context.Context, documentID string, sheet Sheet, at int, dim MajorDimension) error {
	return c.retry.Execute(ctx, func(ctx context.Context) error {
		return c.service.DeletePosition(ctx, documentID, sheet, at, dim)
	}, WithProfile("delete_dimension", sheet.Title))
}

func (c *Client) attachMetadata(ctx context.Context, documentID string, sheet Sheet, position int, dim MajorDimension, key, value string) error {
	return c.retry.Execute(ctx, func(ctx context.Context) error {
		return c.service.AttachMetadata(ctx, documentID, sheet, position, dim, key, value)
	}, WithProfile("create_metadata", sheet.Title))
}

// ReadRanges reads several ranges, one retried call each, in order
func (c *Client) ReadRanges(ctx context.Context, documentID string, ranges []string, dim MajorDimension) ([][][]interface{}, error) {
	if documentID == "" {
		return nil, ErrMissingDocument
	}

	result := make([][][]interface{}, 0, len(ranges))
	for _, rng := range ranges {
		values, err := Call(ctx, c.retry, func(ctx context.Context) ([][]interface{}, error) {
			return c.service.ReadRange(ctx, documentID, rng, dim)
		}, WithProfile("get_range", rng))
		if err != nil {
			return nil, err
		}
		result = append(result, values)
	}
	return result, nil
}

// AppendRange adds values below (or right of) the data of the sheet rng names.
// Cached schemas are untouched; appended lines are not headers.
func (c *Client) AppendRange(ctx context.Context, documentID, rng string, values [][]interface{}, dim MajorDimension) error {
	if documentID == "" {
		return ErrMissingDocument
	}
	if len(values) == 0 {
		return nil
	}
	return c.retry.Execute(ctx, func(ctx context.Context) error {
		return c.service.AppendRows(ctx, documentID, rng, values, dim)
	}, WithProfile("append_range", rng))
}

// ClearRange empties rng. Clearing the header row invalidates nothing; call
// Close and Open to drop cached schemas.
func (c *Client) ClearRange(ctx context.Context, documentID, rng string) error {
	if documentID == "" {
		return ErrMissingDocument
	}
	return c.retry.Execute(ctx, func(ctx context.Context) error {
		return c.service.ClearRange(ctx, documentID, rng)
	}, WithProfile("clear_range", rng))
}

// AddNote attaches a note to one cell of sheet
func (c *Client) AddNote(ctx context.Context, documentID string, sheet Sheet, cell, note string) error {
	if documentID == "" {
		return ErrMissingDocument
	}
	if _, _, err := SplitCell(cell); err != nil {
		return err
	}
	return c.retry.Execute(ctx, func(ctx context.Context) error {
		return c.service.AddNote(ctx, documentID, sheet, cell, note)
	}, WithProfile("add_note", sheet.Title+"!"+cell))
}
