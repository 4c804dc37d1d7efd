package excel

import (
	"errors"
	"fmt"

	"github.com/ideamans/go-sheetrec"
)

var (
	// ErrMissingDir is returned when the workbook directory is not specified
	ErrMissingDir = errors.New("workbook directory is required")

	// ErrSheetNotFound is returned when the specified sheet doesn't exist
	ErrSheetNotFound = fmt.Errorf("excel: %w", sheetrec.ErrSheetNotFound)

	// ErrInvalidRange is returned when a range cannot be read as A1 notation
	ErrInvalidRange = errors.New("invalid range")
)
