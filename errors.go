package sheetrec

import "errors"

var (
	ErrNoSession       = errors.New("no session")
	ErrNoSchema        = errors.New("no schema")
	ErrUnknownField    = errors.New("unknown field")
	ErrUnknownColumn   = errors.New("unknown column")
	ErrMissingDocument = errors.New("missing document id")
	ErrInvalidColumn   = errors.New("invalid column")
	ErrNoPosition      = errors.New("record has no position")
	ErrSheetNotFound   = errors.New("sheet not found")
)
