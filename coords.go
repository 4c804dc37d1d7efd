package sheetrec

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// RangeParts is the decomposition of an A1 range such as 'My Sheet'!A1:C10.
type RangeParts struct {
	Sheet string // unquoted sheet name, empty when the range has no sheet prefix
	Start string // e.g. "A1"
	End   string // e.g. "C10"
}

var (
	rangePattern    = regexp.MustCompile(`^(?:('(?:[^']|'')+'|[^\s'!]+)!)?([A-Za-z]+[0-9]+):([A-Za-z]+[0-9]+)$`)
	safeSheetName   = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	cellRefPattern  = regexp.MustCompile(`^([A-Za-z]+)([0-9]+)$`)
	columnsOnlyPart = regexp.MustCompile(`^[A-Za-z]+$`)
)

// ColumnToLetter converts a 1-based column number to its letters (1 -> A, 27 -> AA).
func ColumnToLetter(column int) (string, error) {
	if column <= 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidColumn, column)
	}

	var letters []byte
	for column > 0 {
		rem := (column - 1) % 26
		letters = append(letters, byte('A'+rem))
		column = (column - 1 - rem) / 26
	}

	// least significant letter was produced first
	for i, j := 0, len(letters)-1; i < j; i, j = i+1, j-1 {
		letters[i], letters[j] = letters[j], letters[i]
	}
	return string(letters), nil
}

// LetterToColumn converts column letters back to the 1-based column number.
// Lower case letters are accepted.
func LetterToColumn(letters string) (int, error) {
	if !columnsOnlyPart.MatchString(letters) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidColumn, letters)
	}

	column := 0
	for _, r := range strings.ToUpper(letters) {
		if column > (math.MaxInt-26)/26 {
			return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidColumn, letters)
		}
		column = column*26 + int(r-'A'+1)
	}
	return column, nil
}

// ParseRange splits a range of the form [Sheet!]A1:B2. The boolean result is
// false when s is not such a range.
func ParseRange(s string) (RangeParts, bool) {
	m := rangePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return RangeParts{}, false
	}
	return RangeParts{
		Sheet: unquoteSheetName(m[1]),
		Start: strings.ToUpper(m[2]),
		End:   strings.ToUpper(m[3]),
	}, true
}

// SplitRange separates the sheet prefix from the rest of a range. A range
// made of a quoted sheet name alone yields an empty ref. A range without a
// prefix yields an empty sheet.
func SplitRange(s string) (sheet, ref string) {
	if strings.HasPrefix(s, "'") {
		for i := 1; i < len(s); i++ {
			if s[i] != '\'' {
				continue
			}
			if i+1 < len(s) && s[i+1] == '\'' {
				i++
				continue
			}
			sheet = unquoteSheetName(s[:i+1])
			rest := s[i+1:]
			return sheet, strings.TrimPrefix(rest, "!")
		}
		return "", s
	}
	if i := strings.Index(s, "!"); i >= 0 {
		return s[:i], s[i+1:]
	}
	return "", s
}

// SplitCell splits an A1 cell reference into its column number and row.
func SplitCell(cell string) (column, row int, err error) {
	m := cellRefPattern.FindStringSubmatch(cell)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q is not a cell reference", ErrInvalidColumn, cell)
	}
	if column, err = LetterToColumn(m[1]); err != nil {
		return 0, 0, err
	}
	row, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, err
	}
	return column, row, nil
}

// QuoteSheetName returns title as it must appear in a range prefix.
func QuoteSheetName(title string) string {
	if safeSheetName.MatchString(title) {
		return title
	}
	return quoteSheetName(title)
}

// GridRange addresses the whole grid of a sheet, e.g. Sheet1!A1:Z1000.
func GridRange(title string, columns, rows int) (string, error) {
	last, err := ColumnToLetter(columns)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s!A1:%s%d", QuoteSheetName(title), last, rows), nil
}

func quoteSheetName(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func unquoteSheetName(s string) string {
	s = strings.TrimSuffix(s, "!")
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		s = strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	return s
}
