package sheetrec

import (
	"fmt"
	"reflect"
	"strings"
)

// Condition is a (field, operator, value) filter criterion
type Condition struct {
	Field    string
	Operator string      // ==, !=, >, >=, <, <=, in, between
	Value    interface{} // []interface{} for in, [2]interface{} for between
}

// Query is a conjunction of conditions with optional paging
type Query struct {
	Conditions []Condition
	Limit      int
	Offset     int
}

// Where starts a query with one condition
func Where(field, operator string, value interface{}) Query {
	return Query{}.And(field, operator, value)
}

// And returns a copy of q with one more condition
func (q Query) And(field, operator string, value interface{}) Query {
	conditions := make([]Condition, len(q.Conditions), len(q.Conditions)+1)
	copy(conditions, q.Conditions)
	q.Conditions = append(conditions, Condition{Field: field, Operator: operator, Value: value})
	return q
}

// Page returns a copy of q that skips offset matches and keeps at most limit
func (q Query) Page(offset, limit int) Query {
	q.Offset = offset
	q.Limit = limit
	return q
}

// evalCondition evaluates a single condition against a record
func evalCondition(record *Record, condition Condition) bool {
	// missing fields compare as nil
	value := record.Get(condition.Field)

	switch condition.Operator {
	case "==":
		return compareEqual(value, condition.Value)
	case "!=":
		return !compareEqual(value, condition.Value)
	case ">", ">=", "<", "<=":
		c, ok := compareOrdered(value, condition.Value)
		if !ok {
			return false
		}
		switch condition.Operator {
		case ">":
			return c > 0
		case ">=":
			return c >= 0
		case "<":
			return c < 0
		}
		return c <= 0
	case "in":
		return compareIn(value, condition.Value)
	case "between":
		return compareBetween(value, condition.Value)
	default:
		return false
	}
}

// MatchesQuery checks if a record matches all conditions in the query
func (r *Record) MatchesQuery(query Query) bool {
	for _, condition := range query.Conditions {
		if !evalCondition(r, condition) {
			return false
		}
	}
	return true
}

// compareEqual compares two values for equality
func compareEqual(a, b interface{}) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}

	if isNumeric(a) && isNumeric(b) {
		return toFloat64(a) == toFloat64(b)
	}

	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// compareOrdered compares two numbers or two strings. ok is false for any
// other combination.
func compareOrdered(a, b interface{}) (cmp int, ok bool) {
	if isNumeric(a) && isNumeric(b) {
		x, y := toFloat64(a), toFloat64(b)
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	}
	sa, okA := a.(string)
	sb, okB := b.(string)
	if okA && okB {
		return strings.Compare(sa, sb), true
	}
	return 0, false
}

// compareIn checks if a is in the list b
func compareIn(a, b interface{}) bool {
	list, ok := b.([]interface{})
	if !ok {
		return false
	}

	for _, item := range list {
		if compareEqual(a, item) {
			return true
		}
	}
	return false
}

// compareBetween reports whether a lies within the inclusive bounds in b
func compareBetween(a, b interface{}) bool {
	var bounds []interface{}
	switch v := b.(type) {
	case [2]interface{}:
		bounds = v[:]
	case []interface{}:
		bounds = v
	}
	if len(bounds) != 2 {
		return false
	}

	lo, ok := compareOrdered(a, bounds[0])
	if !ok || lo < 0 {
		return false
	}
	hi, ok := compareOrdered(a, bounds[1])
	return ok && hi <= 0
}

// number reads any Go integer or float kind as float64
func number(v interface{}) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func isNumeric(v interface{}) bool {
	_, ok := number(v)
	return ok
}

func toFloat64(v interface{}) float64 {
	f, _ := number(v)
	return f
}

var queryOperators = map[string]bool{
	"==": true, "!=": true, ">": true, ">=": true, "<": true, "<=": true, "in": true, "between": true,
}

// ApplyQuery returns the records matching every condition, in order, after
// skipping Offset matches and stopping at Limit (0 means no limit)
func ApplyQuery(records []*Record, query Query) []*Record {
	results := []*Record{}
	skip := query.Offset
	for _, r := range records {
		if query.Limit > 0 && len(results) == query.Limit {
			break
		}
		if !r.MatchesQuery(query) {
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		results = append(results, r)
	}
	return results
}

// ValidateQuery checks operators, operand shapes, field names and paging
func ValidateQuery(query Query) error {
	for i, cond := range query.Conditions {
		if cond.Field == "" {
			return fmt.Errorf("empty field name in condition %d", i)
		}
		if !queryOperators[cond.Operator] {
			return fmt.Errorf("invalid operator '%s' in condition %d", cond.Operator, i)
		}

		switch cond.Operator {
		case "in":
			if _, ok := cond.Value.([]interface{}); !ok {
				return fmt.Errorf("operator 'in' needs a []interface{} value in condition %d", i)
			}
		case "between":
			if !isBetweenBounds(cond.Value) {
				return fmt.Errorf("operator 'between' needs two bounds in condition %d", i)
			}
		}
	}

	if query.Limit < 0 || query.Offset < 0 {
		return fmt.Errorf("limit and offset must be non-negative")
	}
	return nil
}

func isBetweenBounds(v interface{}) bool {
	switch b := v.(type) {
	case [2]interface{}:
		return true
	case []interface{}:
		return len(b) == 2
	}
	return false
}
