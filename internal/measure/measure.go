package measure

import (
	"fmt"
	"strings"
	"time"
)

// MeasureType is the kind of meter a reading was taken from.
type MeasureType string

const (
	TypeWater MeasureType = "WATER"
	TypeGas   MeasureType = "GAS"
)

// ParseMeasureType normalizes and validates a measure type string.
// Matching is case-insensitive, so "water" and "WATER" are equivalent.
func ParseMeasureType(s string) (MeasureType, error) {
	switch MeasureType(strings.ToUpper(strings.TrimSpace(s))) {
	case TypeWater:
		return TypeWater, nil
	case TypeGas:
		return TypeGas, nil
	default:
		return "", fmt.Errorf("unknown measure type: %q", s)
	}
}

// Measure represents one meter reading for a customer
type Measure struct {
	MeasureUUID     string      `json:"measure_uuid"`
	CustomerCode    string      `json:"customer_code"`
	MeasureDatetime time.Time   `json:"measure_datetime"`
	MeasureType     MeasureType `json:"measure_type"`
	MeasureValue    int         `json:"measure_value"`
	ImageURL        string      `json:"image_url"`
	HasConfirmed    bool        `json:"has_confirmed"`
}

// monthWindow returns the inclusive [first instant, last instant] range of
// the calendar month containing t, computed from t's own year/month and
// location rather than from the request time.
func monthWindow(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}

// periodKey identifies the (customer, type, month) slot a reading occupies.
// Used by stores to enforce the one-reading-per-month rule.
func periodKey(customerCode string, measureType MeasureType, t time.Time) string {
	return fmt.Sprintf("%s|%s|%s", customerCode, measureType, t.Format("2006-01"))
}
