package sheetrec

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// GetAsString returns the value as string or defaultValue if not found
func (r *Record) GetAsString(field string, defaultValue string) string {
	v, ok := r.lookup(field)
	if !ok || v == nil {
		return defaultValue
	}

	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "true"
		}
		return "false"
	case []string:
		return strings.Join(val, ",")
	default:
		return fmt.Sprintf("%v", val)
	}
}

// GetAsInt64 returns the value as int64 or defaultValue if not found
func (r *Record) GetAsInt64(field string, defaultValue int64) int64 {
	v, ok := r.lookup(field)
	if !ok {
		return defaultValue
	}

	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case float64:
		return int64(val)
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

// GetAsFloat64 returns the value as float64 or defaultValue if not found
func (r *Record) GetAsFloat64(field string, defaultValue float64) float64 {
	v, ok := r.lookup(field)
	if !ok {
		return defaultValue
	}

	if isNumeric(v) {
		return toFloat64(v)
	}
	if s, ok := v.(string); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// GetAsStrings returns a comma separated value as []string or defaultValue if not found
func (r *Record) GetAsStrings(field string, defaultValue []string) []string {
	v, ok := r.lookup(field)
	if !ok {
		return defaultValue
	}

	switch val := v.(type) {
	case []string:
		return val
	case string:
		if val == "" {
			return []string{}
		}
		return strings.Split(val, ",")
	case []interface{}:
		result := make([]string, len(val))
		for i, item := range val {
			result[i] = fmt.Sprintf("%v", item)
		}
		return result
	}
	return defaultValue
}

// GetAsBool returns the value as bool or defaultValue if not found
func (r *Record) GetAsBool(field string, defaultValue bool) bool {
	v, ok := r.lookup(field)
	if !ok {
		return defaultValue
	}

	switch val := v.(type) {
	case bool:
		return val
	case string:
		switch strings.ToLower(val) {
		case "true", "1":
			return true
		case "false", "0", "":
			return false
		}
	default:
		if isNumeric(val) {
			return toFloat64(val) != 0
		}
	}
	return defaultValue
}

// GetAsTime returns the value as time.Time or defaultValue if not found.
// Numbers are read as spreadsheet serial dates.
func (r *Record) GetAsTime(field string, defaultValue time.Time) time.Time {
	v, ok := r.lookup(field)
	if !ok {
		return defaultValue
	}

	switch val := v.(type) {
	case time.Time:
		return val
	case string:
		formats := []string{
			time.RFC3339,
			"2006-01-02 15:04:05",
			"2006-01-02",
			"1/2/2006 15:04:05",
			"1/2/2006",
		}
		for _, format := range formats {
			if t, err := time.Parse(format, val); err == nil {
				return t
			}
		}
	default:
		if isNumeric(val) {
			return FromSerialDate(toFloat64(val))
		}
	}
	return defaultValue
}

// SetString sets a string value
func (r *Record) SetString(field string, value string) error {
	return r.Set(field, value)
}

// SetInt64 sets an int64 value
func (r *Record) SetInt64(field string, value int64) error {
	return r.Set(field, value)
}

// SetFloat64 sets a float64 value
func (r *Record) SetFloat64(field string, value float64) error {
	return r.Set(field, value)
}

// SetStrings sets a []string value (stored as comma-separated string)
func (r *Record) SetStrings(field string, value []string) error {
	return r.Set(field, strings.Join(value, ","))
}

// SetBool sets a bool value
func (r *Record) SetBool(field string, value bool) error {
	return r.Set(field, value)
}

// SetTime sets a time.Time value (stored as a spreadsheet serial date)
func (r *Record) SetTime(field string, value time.Time) error {
	return r.Set(field, ToSerialDate(value))
}
