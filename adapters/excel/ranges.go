package excel

import (
	"strconv"
	"strings"

	"github.com/ideamans/go-sheetrec"
)

// box is an inclusive cell rectangle; zero bounds are open
type box struct {
	minCol, maxCol int
	minRow, maxRow int
}

func (b box) hasRow(row int) bool {
	return (b.minRow == 0 || row >= b.minRow) && (b.maxRow == 0 || row <= b.maxRow)
}

func (b box) hasCol(col int) bool {
	return (b.minCol == 0 || col >= b.minCol) && (b.maxCol == 0 || col <= b.maxCol)
}

// parseRef parses the part of an A1 range after the sheet name. It accepts
// "" (whole sheet), "B3", "A1:C10", "1:1", "2:5", "A:A" and "B:D".
func parseRef(ref string) (box, error) {
	if ref == "" {
		return box{}, nil
	}
	start, end := ref, ref
	if i := strings.Index(ref, ":"); i >= 0 {
		start, end = ref[:i], ref[i+1:]
	}

	c1, r1, err := parseBound(start)
	if err != nil {
		return box{}, err
	}
	c2, r2, err := parseBound(end)
	if err != nil {
		return box{}, err
	}
	if (c1 == 0) != (c2 == 0) && r1 == 0 {
		return box{}, ErrInvalidRange
	}

	b := box{minCol: c1, maxCol: c2, minRow: r1, maxRow: r2}
	if (b.maxCol != 0 && b.minCol > b.maxCol) || (b.maxRow != 0 && b.minRow > b.maxRow) {
		return box{}, ErrInvalidRange
	}
	return b, nil
}

// parseBound reads "B3", "B" or "3"; a missing part is returned as zero
func parseBound(s string) (col, row int, err error) {
	s = strings.ReplaceAll(s, "$", "")
	if s == "" {
		return 0, 0, ErrInvalidRange
	}
	i := 0
	for i < len(s) && (s[i] < '0' || s[i] > '9') {
		i++
	}
	if i > 0 {
		if col, err = sheetrec.LetterToColumn(s[:i]); err != nil {
			return 0, 0, ErrInvalidRange
		}
	}
	if i < len(s) {
		if row, err = strconv.Atoi(s[i:]); err != nil || row < 1 {
			return 0, 0, ErrInvalidRange
		}
	}
	return col, row, nil
}
