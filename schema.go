package sheetrec

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Schema maps normalized field names to zero-based header positions.
// A Schema is never modified after it is created.
type Schema struct {
	index map[string]int
}

// NewSchema builds a schema from an explicit field -> index mapping
func NewSchema(fields map[string]int) Schema {
	index := make(map[string]int, len(fields))
	for k, v := range fields {
		index[k] = v
	}
	return Schema{index: index}
}

// CreateSchema infers a schema from a header row. Headers are read left to
// right up to the first cell that is not non-empty text. A later duplicate
// name replaces the earlier one.
func CreateSchema(header []interface{}, renames map[string]string) Schema {
	index := make(map[string]int, len(header))
	for i, cell := range header {
		text, ok := cell.(string)
		if !ok {
			break
		}
		key := NormalizeFieldName(text)
		if key == "" {
			break
		}
		if renamed, ok := renames[key]; ok {
			key = renamed
		}
		index[key] = i
	}
	return Schema{index: index}
}

// Index returns the zero-based position of field
func (s Schema) Index(field string) (int, bool) {
	i, ok := s.index[field]
	return i, ok
}

// Has reports whether field is part of the schema
func (s Schema) Has(field string) bool {
	_, ok := s.index[field]
	return ok
}

// Fields returns the field names ordered by position
func (s Schema) Fields() []string {
	fields := make([]string, 0, len(s.index))
	for k := range s.index {
		fields = append(fields, k)
	}
	sort.Slice(fields, func(i, j int) bool {
		return s.index[fields[i]] < s.index[fields[j]]
	})
	return fields
}

// Len returns the number of fields
func (s Schema) Len() int {
	return len(s.index)
}

// Width is one past the largest index, the number of cells a full row spans
func (s Schema) Width() int {
	w := 0
	for _, i := range s.index {
		if i+1 > w {
			w = i + 1
		}
	}
	return w
}

// IsZero reports whether the schema has no fields
func (s Schema) IsZero() bool {
	return len(s.index) == 0
}

// NormalizeFieldName turns header text into a lower snake case field name:
// "Email Address" -> "email_address", "Prénom" -> "prenom".
func NormalizeFieldName(text string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(stripMarks, text)
	if err != nil {
		s = text
	}
	s = cases.Lower(language.Und).String(s)

	var b strings.Builder
	sep := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if sep && b.Len() > 0 {
				b.WriteByte('_')
			}
			sep = false
			b.WriteRune(r)
			continue
		}
		sep = true
	}
	return b.String()
}
