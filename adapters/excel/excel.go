package excel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/ideamans/go-sheetrec"
	"github.com/xuri/excelize/v2"
)

// MetadataSheet is the very hidden sheet that stores attached metadata
const MetadataSheet = "_sheetrec_metadata"

const noteAuthor = "sheetrec"

// Service implements sheetrec.Service over local .xlsx workbooks
type Service struct {
	config *Config
	mu     sync.RWMutex
}

var _ sheetrec.Service = (*Service)(nil)

// Metadata is one key/value pair attached to a row or column
type Metadata struct {
	Sheet     string
	Dimension sheetrec.MajorDimension
	Position  int
	Key       string
	Value     string
}

// New creates a new Excel backend with the given configuration
func New(config *Config) (*Service, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	configCopy := *config
	return &Service{config: &configCopy}, nil
}

// Path returns the workbook file of documentID
func (s *Service) Path(documentID string) string {
	return s.config.Path(documentID)
}

// CreateWorkbook writes a new workbook holding one sheet with rows, replacing any existing file
func (s *Service) CreateWorkbook(ctx context.Context, documentID, sheet string, rows [][]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if def := f.GetSheetName(0); def != sheet {
		if err := f.SetSheetName(def, sheet); err != nil {
			return fmt.Errorf("failed to name sheet %s: %w", sheet, err)
		}
	}
	for i, row := range rows {
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = toCellValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	return s.save(f, documentID)
}

// ReadRange returns the values of rng. Trailing empty rows and cells are trimmed.
func (s *Service) ReadRange(ctx context.Context, documentID, rng string, dim sheetrec.MajorDimension) ([][]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.open(documentID)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	title, ref := sheetrec.SplitRange(rng)
	sheet, err := resolveSheet(f, title)
	if err != nil {
		return nil, err
	}
	b, err := parseRef(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, rng)
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	grid := make([][]interface{}, 0, len(rows))
	for r, row := range rows {
		rowNum := r + 1
		if !b.hasRow(rowNum) {
			continue
		}
		cells := make([]interface{}, 0, len(row))
		for c, raw := range row {
			colNum := c + 1
			if !b.hasCol(colNum) {
				continue
			}
			cells = append(cells, cellValue(f, sheet, colNum, rowNum, raw))
		}
		grid = append(grid, cells)
	}

	if dim == sheetrec.Columns {
		grid = transpose(grid)
	}
	return trim(grid), nil
}

// WriteBatch writes every range and saves the workbook once
func (s *Service) WriteBatch(ctx context.Context, documentID string, data []sheetrec.ValueRange, dim sheetrec.MajorDimension) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := s.open(documentID)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, vr := range data {
		title, ref := sheetrec.SplitRange(vr.Range)
		sheet, err := resolveSheet(f, title)
		if err != nil {
			return err
		}
		start := ref
		if i := strings.Index(ref, ":"); i >= 0 {
			start = ref[:i]
		}
		col, row, err := sheetrec.SplitCell(start)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidRange, vr.Range)
		}

		for i, major := range vr.Values {
			for j, v := range major {
				c, r := col+j, row+i
				if dim == sheetrec.Columns {
					c, r = col+i, row+j
				}
				cell, err := excelize.CoordinatesToCellName(c, r)
				if err != nil {
					return err
				}
				if err := f.SetCellValue(sheet, cell, toCellValue(v)); err != nil {
					return fmt.Errorf("failed to set %s!%s: %w", sheet, cell, err)
				}
			}
		}
	}
	return s.save(f, documentID)
}

// InsertEmpty inserts one empty row (or column) at position at. Attached
// metadata below (or right of) it moves along.
func (s *Service) InsertEmpty(ctx context.Context, documentID string, sheet sheetrec.Sheet, at int, dim sheetrec.MajorDimension) error {
	return s.update(ctx, documentID, sheet, func(f *excelize.File, name string) error {
		if dim == sheetrec.Columns {
			col, err := excelize.ColumnNumberToName(at)
			if err != nil {
				return err
			}
			if err := f.InsertCols(name, col, 1); err != nil {
				return fmt.Errorf("failed to insert column %s: %w", col, err)
			}
		} else if err := f.InsertRows(name, at, 1); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", at, err)
		}
		return shiftMetadata(f, name, dim, at, 1)
	})
}

// DeletePosition removes the row (or column) at position at with its metadata
func (s *Service) DeletePosition(ctx context.Context, documentID string, sheet sheetrec.Sheet, at int, dim sheetrec.MajorDimension) error {
	return s.update(ctx, documentID, sheet, func(f *excelize.File, name string) error {
		if dim == sheetrec.Columns {
			col, err := excelize.ColumnNumberToName(at)
			if err != nil {
				return err
			}
			if err := f.RemoveCol(name, col); err != nil {
				return fmt.Errorf("failed to remove column %s: %w", col, err)
			}
		} else if err := f.RemoveRow(name, at); err != nil {
			return fmt.Errorf("failed to remove row %d: %w", at, err)
		}
		return shiftMetadata(f, name, dim, at, -1)
	})
}

// AttachMetadata records key=value for the row (or column) at position in MetadataSheet
func (s *Service) AttachMetadata(ctx context.Context, documentID string, sheet sheetrec.Sheet, position int, dim sheetrec.MajorDimension, key, value string) error {
	return s.update(ctx, documentID, sheet, func(f *excelize.File, name string) error {
		entries, err := readMetadata(f)
		if err != nil {
			return err
		}
		entries = append(entries, Metadata{
			Sheet:     name,
			Dimension: dim,
			Position:  position,
			Key:       key,
			Value:     value,
		})
		return writeMetadata(f, entries)
	})
}

// Metadata returns every metadata entry attached in the workbook
func (s *Service) Metadata(ctx context.Context, documentID string) ([]Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.open(documentID)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return readMetadata(f)
}

// ListSheets returns the visible data sheets in workbook order
func (s *Service) ListSheets(ctx context.Context, documentID string) ([]sheetrec.Sheet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.open(documentID)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var result []sheetrec.Sheet
	for i, name := range f.GetSheetList() {
		if name == MetadataSheet {
			continue
		}
		result = append(result, sheetrec.Sheet{ID: int64(i), Title: name, Index: i})
	}
	return result, nil
}

// AppendRows writes values after the last used row (or column) of the sheet rng names
func (s *Service) AppendRows(ctx context.Context, documentID, rng string, values [][]interface{}, dim sheetrec.MajorDimension) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := s.open(documentID)
	if err != nil {
		return err
	}
	defer f.Close()

	title, _ := sheetrec.SplitRange(rng)
	sheet, err := resolveSheet(f, title)
	if err != nil {
		return err
	}

	var used [][]string
	if dim == sheetrec.Columns {
		used, err = f.GetCols(sheet)
	} else {
		used, err = f.GetRows(sheet)
	}
	if err != nil {
		return fmt.Errorf("failed to measure %s: %w", sheet, err)
	}
	next := len(used) + 1

	for i, line := range values {
		for j, v := range line {
			c, r := j+1, next+i
			if dim == sheetrec.Columns {
				c, r = next+i, j+1
			}
			cell, err := excelize.CoordinatesToCellName(c, r)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, toCellValue(v)); err != nil {
				return fmt.Errorf("failed to set %s!%s: %w", sheet, cell, err)
			}
		}
	}
	return s.save(f, documentID)
}

// ClearRange empties every used cell inside rng
func (s *Service) ClearRange(ctx context.Context, documentID, rng string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := s.open(documentID)
	if err != nil {
		return err
	}
	defer f.Close()

	title, ref := sheetrec.SplitRange(rng)
	sheet, err := resolveSheet(f, title)
	if err != nil {
		return err
	}
	b, err := parseRef(ref)
	if err != nil {
		return fmt.Errorf("%w: %s", err, rng)
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return fmt.Errorf("failed to get rows: %w", err)
	}
	for r, row := range rows {
		if !b.hasRow(r + 1) {
			continue
		}
		for c, raw := range row {
			if raw == "" || !b.hasCol(c+1) {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, nil); err != nil {
				return fmt.Errorf("failed to clear %s!%s: %w", sheet, cell, err)
			}
		}
	}
	return s.save(f, documentID)
}

// AddNote stores note as the cell comment, replacing an earlier one
func (s *Service) AddNote(ctx context.Context, documentID string, sheet sheetrec.Sheet, cell, note string) error {
	if _, _, err := sheetrec.SplitCell(cell); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRange, cell)
	}
	cell = strings.ToUpper(cell)

	return s.update(ctx, documentID, sheet, func(f *excelize.File, name string) error {
		if err := f.DeleteComment(name, cell); err != nil {
			return fmt.Errorf("failed to remove note of %s: %w", cell, err)
		}
		if note == "" {
			return nil
		}
		return f.AddComment(name, excelize.Comment{
			Author: noteAuthor,
			Cell:   cell,
			Text:   note,
		})
	})
}

// Notes returns the notes of a sheet keyed by cell
func (s *Service) Notes(ctx context.Context, documentID, sheet string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.open(documentID)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name, err := resolveSheet(f, sheet)
	if err != nil {
		return nil, err
	}
	comments, err := f.GetComments(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read notes: %w", err)
	}

	notes := make(map[string]string, len(comments))
	for _, c := range comments {
		text := c.Text
		for _, run := range c.Paragraph {
			text += run.Text
		}
		notes[c.Cell] = text
	}
	return notes, nil
}

func (s *Service) update(ctx context.Context, documentID string, sheet sheetrec.Sheet, fn func(f *excelize.File, name string) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := s.open(documentID)
	if err != nil {
		return err
	}
	defer f.Close()

	name := sheet.Title
	if name == "" {
		list := f.GetSheetList()
		if sheet.ID < 0 || int(sheet.ID) >= len(list) {
			return fmt.Errorf("%w: id %d", ErrSheetNotFound, sheet.ID)
		}
		name = list[sheet.ID]
	}
	if name, err = resolveSheet(f, name); err != nil {
		return err
	}

	if err := fn(f, name); err != nil {
		return err
	}
	return s.save(f, documentID)
}

func (s *Service) open(documentID string) (*excelize.File, error) {
	path := s.config.Path(documentID)
	f, err := excelize.OpenFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("workbook %s does not exist: %w", documentID, err)
		}
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	return f, nil
}

func (s *Service) save(f *excelize.File, documentID string) error {
	path := s.config.Path(documentID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}

// resolveSheet returns the stored name of title, matched case-insensitively.
// An empty title means the first sheet.
func resolveSheet(f *excelize.File, title string) (string, error) {
	list := f.GetSheetList()
	if title == "" {
		for _, name := range list {
			if name != MetadataSheet {
				return name, nil
			}
		}
		return "", ErrSheetNotFound
	}
	idx, err := f.GetSheetIndex(title)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrSheetNotFound, title, err)
	}
	if idx < 0 {
		return "", fmt.Errorf("%w: %s", ErrSheetNotFound, title)
	}
	return list[idx], nil
}

// cellValue types a raw cell: numbers become float64, booleans bool
func cellValue(f *excelize.File, sheet string, col, row int, raw string) interface{} {
	if raw == "" {
		return ""
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return raw
	}
	typ, err := f.GetCellType(sheet, cell)
	if err != nil {
		return raw
	}

	switch typ {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "TRUE")
	case excelize.CellTypeUnset, excelize.CellTypeNumber, excelize.CellTypeDate:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return n
		}
	}
	return raw
}

// toCellValue converts a record value to something excelize writes natively
func toCellValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return ""
	case []string:
		return strings.Join(val, ",")
	default:
		return val
	}
}

func transpose(grid [][]interface{}) [][]interface{} {
	width := 0
	for _, row := range grid {
		if len(row) > width {
			width = len(row)
		}
	}
	out := make([][]interface{}, width)
	for c := range out {
		out[c] = make([]interface{}, len(grid))
		for r, row := range grid {
			if c < len(row) {
				out[c][r] = row[c]
			} else {
				out[c][r] = ""
			}
		}
	}
	return out
}

// trim drops trailing empty cells of each line and trailing empty lines
func trim(grid [][]interface{}) [][]interface{} {
	for i, line := range grid {
		n := len(line)
		for n > 0 && line[n-1] == "" {
			n--
		}
		grid[i] = line[:n]
	}
	n := len(grid)
	for n > 0 && len(grid[n-1]) == 0 {
		n--
	}
	return grid[:n]
}
