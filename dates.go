package sheetrec

import (
	"math"
	"time"
)

// serialEpoch is day zero of spreadsheet serial dates
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// ToSerialDate converts t to a spreadsheet serial number (days since 1899-12-30).
// The wall clock of t is kept; its location is not.
func ToSerialDate(t time.Time) float64 {
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	return wall.Sub(serialEpoch).Hours() / 24
}

// FromSerialDate converts a spreadsheet serial number to a UTC time, rounded to the second
func FromSerialDate(serial float64) time.Time {
	days := math.Floor(serial)
	secs := math.Round((serial - days) * 24 * 60 * 60)
	return serialEpoch.AddDate(0, 0, int(days)).Add(time.Duration(secs) * time.Second)
}
