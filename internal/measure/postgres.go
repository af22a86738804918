package measure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS measures (
	measure_uuid     TEXT PRIMARY KEY,
	customer_code    TEXT NOT NULL,
	measure_datetime TIMESTAMPTZ NOT NULL,
	measure_type     TEXT NOT NULL,
	measure_value    INTEGER NOT NULL,
	image_url        TEXT NOT NULL,
	has_confirmed    BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE UNIQUE INDEX IF NOT EXISTS measures_period_idx
	ON measures (customer_code, measure_type, date_trunc('month', measure_datetime AT TIME ZONE 'UTC'));
`

// PostgresStore implements the Store interface on top of PostgreSQL. The
// unique index on (customer_code, measure_type, month) enforces the monthly
// uniqueness rule at the storage layer, closing the window between the
// duplicate check and the insert.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL and ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Create inserts a new measure.
func (p *PostgresStore) Create(ctx context.Context, m *Measure) error {
	query := `
		INSERT INTO measures (measure_uuid, customer_code, measure_datetime, measure_type, measure_value, image_url, has_confirmed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := p.pool.Exec(ctx, query,
		m.MeasureUUID,
		m.CustomerCode,
		m.MeasureDatetime,
		m.MeasureType,
		m.MeasureValue,
		m.ImageURL,
		m.HasConfirmed,
	)
	if isUniqueViolation(err) {
		return ErrDuplicatePeriod
	}
	if err != nil {
		return fmt.Errorf("inserting measure: %w", err)
	}
	return nil
}

// Get retrieves a measure by UUID.
func (p *PostgresStore) Get(ctx context.Context, measureUUID string) (*Measure, error) {
	query := `
		SELECT measure_uuid, customer_code, measure_datetime, measure_type, measure_value, image_url, has_confirmed
		FROM measures
		WHERE measure_uuid = $1
	`
	m, err := p.scanOne(p.pool.QueryRow(ctx, query, measureUUID))
	if err != nil {
		return nil, err
	}
	return m, nil
}

// FindByPeriod returns the measure inside the [from, to] window, if any.
func (p *PostgresStore) FindByPeriod(ctx context.Context, customerCode string, measureType MeasureType, from, to time.Time) (*Measure, error) {
	query := `
		SELECT measure_uuid, customer_code, measure_datetime, measure_type, measure_value, image_url, has_confirmed
		FROM measures
		WHERE customer_code = $1 AND measure_type = $2 AND measure_datetime BETWEEN $3 AND $4
		LIMIT 1
	`
	m, err := p.scanOne(p.pool.QueryRow(ctx, query, customerCode, measureType, from, to))
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListByCustomer returns all measures for a customer, oldest first.
func (p *PostgresStore) ListByCustomer(ctx context.Context, customerCode string, measureType MeasureType) ([]*Measure, error) {
	query := `
		SELECT measure_uuid, customer_code, measure_datetime, measure_type, measure_value, image_url, has_confirmed
		FROM measures
		WHERE customer_code = $1 AND ($2 = '' OR measure_type = $2)
		ORDER BY measure_datetime
	`
	rows, err := p.pool.Query(ctx, query, customerCode, string(measureType))
	if err != nil {
		return nil, fmt.Errorf("querying measures: %w", err)
	}
	defer rows.Close()

	measures := make([]*Measure, 0)
	for rows.Next() {
		var m Measure
		if err := rows.Scan(&m.MeasureUUID, &m.CustomerCode, &m.MeasureDatetime, &m.MeasureType, &m.MeasureValue, &m.ImageURL, &m.HasConfirmed); err != nil {
			return nil, fmt.Errorf("scanning measure: %w", err)
		}
		measures = append(measures, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return measures, nil
}

// Update rewrites the mutable fields of an existing measure.
func (p *PostgresStore) Update(ctx context.Context, m *Measure) error {
	query := `
		UPDATE measures
		SET measure_value = $2, has_confirmed = $3
		WHERE measure_uuid = $1
	`
	tag, err := p.pool.Exec(ctx, query, m.MeasureUUID, m.MeasureValue, m.HasConfirmed)
	if err != nil {
		return fmt.Errorf("updating measure: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the connection pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

func (p *PostgresStore) scanOne(row pgx.Row) (*Measure, error) {
	var m Measure
	err := row.Scan(&m.MeasureUUID, &m.CustomerCode, &m.MeasureDatetime, &m.MeasureType, &m.MeasureValue, &m.ImageURL, &m.HasConfirmed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning measure: %w", err)
	}
	return &m, nil
}
