package googlesheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ideamans/go-sheetrec"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Service implements sheetrec.Service over the Google Sheets API v4
type Service struct {
	service *sheets.Service
	config  Config
}

var _ sheetrec.Service = (*Service)(nil)

// NewService creates a Sheets backend with provided options
func NewService(ctx context.Context, config Config, opts ...option.ClientOption) (*Service, error) {
	config.applyDefaults()

	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Service{
		service: service,
		config:  config,
	}, nil
}

// ReadRange returns the values of rng, trailing empty rows and cells trimmed
func (s *Service) ReadRange(ctx context.Context, documentID, rng string, dim sheetrec.MajorDimension) ([][]interface{}, error) {
	resp, err := s.service.Spreadsheets.Values.Get(documentID, rng).
		MajorDimension(dim.String()).
		ValueRenderOption(s.config.ValueRenderOption).
		DateTimeRenderOption(dateTimeRenderOption).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get range %s: %w", rng, err)
	}

	values := make([][]interface{}, len(resp.Values))
	for i, row := range resp.Values {
		values[i] = make([]interface{}, len(row))
		for j, cell := range row {
			values[i][j] = convertCellValue(cell)
		}
	}
	return values, nil
}

// WriteBatch writes every range in one values batchUpdate request
func (s *Service) WriteBatch(ctx context.Context, documentID string, data []sheetrec.ValueRange, dim sheetrec.MajorDimension) error {
	if len(data) == 0 {
		return nil
	}

	req := &sheets.BatchUpdateValuesRequest{
		ValueInputOption: s.config.ValueInputOption,
		Data:             make([]*sheets.ValueRange, 0, len(data)),
	}
	for _, vr := range data {
		req.Data = append(req.Data, &sheets.ValueRange{
			Range:          vr.Range,
			MajorDimension: dim.String(),
			Values:         toSheetValues(vr.Values),
		})
	}

	_, err := s.service.Spreadsheets.Values.BatchUpdate(documentID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write %d ranges: %w", len(data), err)
	}
	return nil
}

// InsertEmpty inserts one empty row (or column) so that it becomes position at
func (s *Service) InsertEmpty(ctx context.Context, documentID string, sheet sheetrec.Sheet, at int, dim sheetrec.MajorDimension) error {
	err := s.batchUpdate(ctx, documentID, &sheets.Request{
		InsertDimension: &sheets.InsertDimensionRequest{
			Range:             dimensionRange(sheet, at, dim),
			InheritFromBefore: false,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to insert %s at %d: %w", strings.ToLower(dim.String()), at, err)
	}
	return nil
}

// DeletePosition deletes the row (or column) at position at
func (s *Service) DeletePosition(ctx context.Context, documentID string, sheet sheetrec.Sheet, at int, dim sheetrec.MajorDimension) error {
	err := s.batchUpdate(ctx, documentID, &sheets.Request{
		DeleteDimension: &sheets.DeleteDimensionRequest{
			Range: dimensionRange(sheet, at, dim),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s %d: %w", strings.ToLower(dim.String()), at, err)
	}
	return nil
}

// AttachMetadata stores key=value as developer metadata on the row (or column) at position
func (s *Service) AttachMetadata(ctx context.Context, documentID string, sheet sheetrec.Sheet, position int, dim sheetrec.MajorDimension, key, value string) error {
	err := s.batchUpdate(ctx, documentID, &sheets.Request{
		CreateDeveloperMetadata: &sheets.CreateDeveloperMetadataRequest{
			DeveloperMetadata: &sheets.DeveloperMetadata{
				MetadataKey:   key,
				MetadataValue: value,
				Visibility:    "DOCUMENT",
				Location: &sheets.DeveloperMetadataLocation{
					DimensionRange: dimensionRange(sheet, position, dim),
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to attach metadata %s: %w", key, err)
	}
	return nil
}

// ListSheets returns the properties of every sheet in the document
func (s *Service) ListSheets(ctx context.Context, documentID string) ([]sheetrec.Sheet, error) {
	resp, err := s.service.Spreadsheets.Get(documentID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get spreadsheet %s: %w", documentID, err)
	}

	result := make([]sheetrec.Sheet, 0, len(resp.Sheets))
	for _, sh := range resp.Sheets {
		if sh.Properties == nil {
			continue
		}
		sheet := sheetrec.Sheet{
			ID:    sh.Properties.SheetId,
			Title: sh.Properties.Title,
			Index: int(sh.Properties.Index),
		}
		if grid := sh.Properties.GridProperties; grid != nil {
			sheet.RowCount = int(grid.RowCount)
			sheet.ColumnCount = int(grid.ColumnCount)
		}
		result = append(result, sheet)
	}
	return result, nil
}

// AppendRows appends values after the table found in rng
func (s *Service) AppendRows(ctx context.Context, documentID, rng string, values [][]interface{}, dim sheetrec.MajorDimension) error {
	vr := &sheets.ValueRange{
		MajorDimension: dim.String(),
		Values:         toSheetValues(values),
	}
	_, err := s.service.Spreadsheets.Values.Append(documentID, rng, vr).
		ValueInputOption(s.config.ValueInputOption).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append to %s: %w", rng, err)
	}
	return nil
}

// ClearRange clears the values of rng, keeping formatting
func (s *Service) ClearRange(ctx context.Context, documentID, rng string) error {
	_, err := s.service.Spreadsheets.Values.Clear(documentID, rng, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to clear %s: %w", rng, err)
	}
	return nil
}

// AddNote sets the note of one cell
func (s *Service) AddNote(ctx context.Context, documentID string, sheet sheetrec.Sheet, cell, note string) error {
	col, row, err := sheetrec.SplitCell(cell)
	if err != nil {
		return err
	}
	err = s.batchUpdate(ctx, documentID, &sheets.Request{
		RepeatCell: &sheets.RepeatCellRequest{
			Range: &sheets.GridRange{
				SheetId:          sheet.ID,
				StartRowIndex:    int64(row - 1),
				EndRowIndex:      int64(row),
				StartColumnIndex: int64(col - 1),
				EndColumnIndex:   int64(col),
				ForceSendFields:  []string{"SheetId", "StartRowIndex", "StartColumnIndex"},
			},
			Cell:   &sheets.CellData{Note: note},
			Fields: "note",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to add note to %s: %w", cell, err)
	}
	return nil
}

func (s *Service) batchUpdate(ctx context.Context, documentID string, requests ...*sheets.Request) error {
	_, err := s.service.Spreadsheets.BatchUpdate(documentID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	return err
}

// dimensionRange addresses the single row (or column) at 1-based position.
// Sheet id 0 and index 0 are legal, so they are always sent.
func dimensionRange(sheet sheetrec.Sheet, position int, dim sheetrec.MajorDimension) *sheets.DimensionRange {
	return &sheets.DimensionRange{
		SheetId:         sheet.ID,
		Dimension:       dim.String(),
		StartIndex:      int64(position - 1),
		EndIndex:        int64(position),
		ForceSendFields: []string{"SheetId", "StartIndex"},
	}
}

func toSheetValues(rows [][]interface{}) [][]interface{} {
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		values[i] = make([]interface{}, len(row))
		for j, cell := range row {
			values[i][j] = convertToSheetValue(cell)
		}
	}
	return values
}

// convertCellValue normalizes a decoded API cell. Unformatted values arrive
// as float64, bool or string already.
func convertCellValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return ""
	case string, float64, bool:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// convertToSheetValue converts a Go value to a value the API accepts
func convertToSheetValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return ""
	case string, bool, float64, float32,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return val
	case time.Time:
		return sheetrec.ToSerialDate(val)
	case []string:
		return strings.Join(val, ",")
	default:
		return fmt.Sprintf("%v", val)
	}
}
