package measure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	measureBucketName = "measures"
	periodBucketName  = "periods"
)

// BoltStore implements the Store interface using BoltDB. A secondary periods
// bucket maps (customer, type, month) to the owning UUID so the monthly
// uniqueness rule holds even for concurrent uploads: the index entry and the
// record are written in the same transaction.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (or creates) the database file at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(measureBucketName)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(periodBucketName)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Create persists a measure and claims its monthly period slot.
func (b *BoltStore) Create(ctx context.Context, m *Measure) error {
	key := periodKey(m.CustomerCode, m.MeasureType, m.MeasureDatetime)
	return b.db.Update(func(tx *bbolt.Tx) error {
		periods := tx.Bucket([]byte(periodBucketName))
		if periods.Get([]byte(key)) != nil {
			return ErrDuplicatePeriod
		}
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshaling measure: %w", err)
		}
		bucket := tx.Bucket([]byte(measureBucketName))
		if err := bucket.Put([]byte(m.MeasureUUID), data); err != nil {
			return err
		}
		return periods.Put([]byte(key), []byte(m.MeasureUUID))
	})
}

// Get retrieves a measure by UUID.
func (b *BoltStore) Get(ctx context.Context, measureUUID string) (*Measure, error) {
	var m *Measure
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(measureBucketName))
		data := bucket.Get([]byte(measureUUID))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &m)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// FindByPeriod scans for a measure inside the [from, to] window.
func (b *BoltStore) FindByPeriod(ctx context.Context, customerCode string, measureType MeasureType, from, to time.Time) (*Measure, error) {
	var found *Measure
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(measureBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			if found != nil {
				return nil
			}
			var m Measure
			if err := json.Unmarshal(v, &m); err != nil {
				return fmt.Errorf("unmarshaling measure: %w", err)
			}
			if m.CustomerCode != customerCode || m.MeasureType != measureType {
				return nil
			}
			if m.MeasureDatetime.Before(from) || m.MeasureDatetime.After(to) {
				return nil
			}
			found = &m
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// ListByCustomer returns all measures for a customer, optionally filtered by type.
func (b *BoltStore) ListByCustomer(ctx context.Context, customerCode string, measureType MeasureType) ([]*Measure, error) {
	measures := make([]*Measure, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(measureBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var m Measure
			if err := json.Unmarshal(v, &m); err != nil {
				return fmt.Errorf("unmarshaling measure: %w", err)
			}
			if m.CustomerCode != customerCode {
				return nil
			}
			if measureType != "" && m.MeasureType != measureType {
				return nil
			}
			measures = append(measures, &m)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return measures, nil
}

// Update rewrites an existing measure. The period index is untouched: the
// customer, type and datetime of a measure are immutable after creation.
func (b *BoltStore) Update(ctx context.Context, m *Measure) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(measureBucketName))
		if bucket.Get([]byte(m.MeasureUUID)) == nil {
			return ErrNotFound
		}
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshaling measure: %w", err)
		}
		return bucket.Put([]byte(m.MeasureUUID), data)
	})
}

// Close closes the database connection.
func (b *BoltStore) Close() error {
	return b.db.Close()
}
