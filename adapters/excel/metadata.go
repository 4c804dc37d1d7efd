package excel

import (
	"fmt"
	"strconv"

	"github.com/ideamans/go-sheetrec"
	"github.com/xuri/excelize/v2"
)

var metadataHeader = []interface{}{"sheet", "dimension", "position", "key", "value"}

func readMetadata(f *excelize.File) ([]Metadata, error) {
	idx, err := f.GetSheetIndex(MetadataSheet)
	if err != nil || idx < 0 {
		return nil, err
	}

	rows, err := f.GetRows(MetadataSheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var entries []Metadata
	for i, row := range rows {
		if i == 0 || len(row) < 4 {
			continue
		}
		pos, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, fmt.Errorf("invalid metadata position %q in row %d", row[2], i+1)
		}
		m := Metadata{Sheet: row[0], Position: pos, Key: row[3]}
		if row[1] == sheetrec.Columns.String() {
			m.Dimension = sheetrec.Columns
		}
		if len(row) > 4 {
			m.Value = row[4]
		}
		entries = append(entries, m)
	}
	return entries, nil
}

// writeMetadata replaces the content of MetadataSheet, creating it very hidden
func writeMetadata(f *excelize.File, entries []Metadata) error {
	idx, err := f.GetSheetIndex(MetadataSheet)
	if err != nil {
		return err
	}

	previous := 0
	if idx < 0 {
		if _, err := f.NewSheet(MetadataSheet); err != nil {
			return fmt.Errorf("failed to create metadata sheet: %w", err)
		}
		if err := f.SetSheetVisible(MetadataSheet, false, true); err != nil {
			return err
		}
	} else {
		rows, err := f.GetRows(MetadataSheet)
		if err != nil {
			return err
		}
		previous = len(rows)
	}

	header := metadataHeader
	if err := f.SetSheetRow(MetadataSheet, "A1", &header); err != nil {
		return err
	}
	for i, m := range entries {
		row := []interface{}{m.Sheet, m.Dimension.String(), m.Position, m.Key, m.Value}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(MetadataSheet, cell, &row); err != nil {
			return err
		}
	}
	for r := previous; r > len(entries)+1; r-- {
		if err := f.RemoveRow(MetadataSheet, r); err != nil {
			return err
		}
	}
	return nil
}

// shiftMetadata follows an insert (delta 1) or removal (delta -1) at position at
func shiftMetadata(f *excelize.File, sheet string, dim sheetrec.MajorDimension, at, delta int) error {
	entries, err := readMetadata(f)
	if err != nil || len(entries) == 0 {
		return err
	}

	kept := entries[:0]
	for _, m := range entries {
		if m.Sheet != sheet || m.Dimension != dim || m.Position < at {
			kept = append(kept, m)
			continue
		}
		if delta < 0 && m.Position == at {
			continue
		}
		m.Position += delta
		kept = append(kept, m)
	}
	return writeMetadata(f, kept)
}
