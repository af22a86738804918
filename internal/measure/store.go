package measure

import (
	"context"
	"time"
)

// Store defines the persistence boundary for readings.
type Store interface {
	// Create persists a new measure. It fails with ErrDuplicatePeriod when a
	// reading already exists for the same customer, type and calendar month.
	Create(ctx context.Context, m *Measure) error

	// Get retrieves a measure by its UUID, or ErrNotFound.
	Get(ctx context.Context, measureUUID string) (*Measure, error)

	// FindByPeriod returns the measure for customerCode/measureType whose
	// measure_datetime falls inside [from, to], or ErrNotFound.
	FindByPeriod(ctx context.Context, customerCode string, measureType MeasureType, from, to time.Time) (*Measure, error)

	// ListByCustomer returns all measures for a customer, optionally filtered
	// by type when measureType is non-empty.
	ListByCustomer(ctx context.Context, customerCode string, measureType MeasureType) ([]*Measure, error)

	// Update rewrites an existing measure.
	Update(ctx context.Context, m *Measure) error

	// Close closes the underlying connection.
	Close() error
}
