package sheetrec

import (
	"fmt"
	"sort"
)

// Predicate selects records
type Predicate func(*Record) bool

// FieldsEqual matches records whose fields all equal the expected values
func FieldsEqual(fields map[string]interface{}) Predicate {
	return func(r *Record) bool {
		for field, want := range fields {
			if !compareEqual(r.Get(field), want) {
				return false
			}
		}
		return true
	}
}

// Match adapts a structured query to a predicate. Paging is ignored.
func Match(query Query) Predicate {
	return func(r *Record) bool {
		return r.MatchesQuery(query)
	}
}

// Collection is an in-memory view over loaded records. It never calls the backend.
type Collection struct {
	records []*Record
}

// NewCollection wraps records, keeping their order
func NewCollection(records []*Record) *Collection {
	return &Collection{records: records}
}

// Len returns the number of records
func (c *Collection) Len() int {
	return len(c.records)
}

// Records returns the records in their current order
func (c *Collection) Records() []*Record {
	out := make([]*Record, len(c.records))
	copy(out, c.records)
	return out
}

// First returns the first record or nil
func (c *Collection) First() *Record {
	if len(c.records) == 0 {
		return nil
	}
	return c.records[0]
}

// Find returns the first record matching p, or nil
func (c *Collection) Find(p Predicate) *Record {
	if p == nil {
		return nil
	}
	for _, r := range c.records {
		if p(r) {
			return r
		}
	}
	return nil
}

// FindAll returns every record matching p in order. A nil predicate matches all.
func (c *Collection) FindAll(p Predicate) []*Record {
	result := []*Record{}
	for _, r := range c.records {
		if p == nil || p(r) {
			result = append(result, r)
		}
	}
	return result
}

// Count returns the number of records matching p. A nil predicate counts all.
func (c *Collection) Count(p Predicate) int {
	if p == nil {
		return len(c.records)
	}
	n := 0
	for _, r := range c.records {
		if p(r) {
			n++
		}
	}
	return n
}

// Query validates and applies a structured query
func (c *Collection) Query(query Query) ([]*Record, error) {
	if err := ValidateQuery(query); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}
	return ApplyQuery(c.records, query), nil
}

// Sort orders the records by field, stable, substituting def for missing
// values. descending reverses the result of the ascending sort.
func (c *Collection) Sort(field string, descending bool, def interface{}) {
	key := func(r *Record) interface{} {
		if v := r.Get(field); v != nil {
			return v
		}
		return def
	}

	sort.SliceStable(c.records, func(i, j int) bool {
		return compareSortKeys(key(c.records[i]), key(c.records[j])) < 0
	})

	if descending {
		for i, j := 0, len(c.records)-1; i < j; i, j = i+1, j-1 {
			c.records[i], c.records[j] = c.records[j], c.records[i]
		}
	}
}

// compareSortKeys orders nil first, then numbers and strings naturally, then
// anything else by its printed form
func compareSortKeys(a, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if c, ok := compareOrdered(a, b); ok {
		return c
	}
	sa, sb := fmt.Sprintf("%v", a), fmt.Sprintf("%v", b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}
