package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/swasthya/sahayak/internal/escalation"
	"github.com/swasthya/sahayak/pkg/logger"
)

// DispatchStorage handles the global ambulance-dispatch request log.
// Records are append-only; status transitions are owned by an external
// fulfillment system.
type DispatchStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewDispatchStorage creates a new SQLite dispatch storage
func NewDispatchStorage(db *sql.DB, log *logger.Logger) (*DispatchStorage, error) {
	storage := &DispatchStorage{
		db:     db,
		logger: log.Named("sqlite-dispatches"),
	}

	if err := storage.initDB(); err != nil {
		return nil, err
	}

	return storage, nil
}

// initDB initializes the database tables
func (s *DispatchStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS dispatch_requests (
			id TEXT PRIMARY KEY,
			facility_name TEXT NOT NULL,
			facility_address TEXT NOT NULL,
			facility_phone TEXT NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			user_id TEXT NOT NULL DEFAULT 'anonymous',
			idempotency_key TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create dispatch_requests table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_dispatches_user_id ON dispatch_requests(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_dispatches_created_at ON dispatch_requests(created_at)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_dispatches_idempotency_key
			ON dispatch_requests(idempotency_key) WHERE idempotency_key != ''`,
	}
	for _, indexSQL := range indexes {
		if _, err := s.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create dispatch index: %w", err)
		}
	}

	return nil
}

// Record appends a dispatch request. When the record carries an idempotency
// key that was already seen, the existing request's ID is returned and no new
// row is written.
func (s *DispatchStorage) Record(ctx context.Context, record *escalation.DispatchRecord) (string, error) {
	if record.IdempotencyKey != "" {
		var existingID string
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM dispatch_requests WHERE idempotency_key = ?`,
			record.IdempotencyKey,
		).Scan(&existingID)
		switch {
		case err == nil:
			s.logger.Debug("Duplicate dispatch request, returning existing record",
				logger.String("dispatch_id", existingID),
				logger.String("idempotency_key", record.IdempotencyKey))
			return existingID, nil
		case err != sql.ErrNoRows:
			return "", fmt.Errorf("failed to check idempotency key: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dispatch_requests
		(id, facility_name, facility_address, facility_phone, latitude, longitude, user_id, idempotency_key, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.FacilityName,
		record.FacilityAddress,
		record.FacilityPhone,
		record.Location.Latitude,
		record.Location.Longitude,
		record.UserID,
		record.IdempotencyKey,
		record.Status,
		record.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert dispatch request: %w", err)
	}

	return record.ID, nil
}

// GetByID returns a single dispatch request
func (s *DispatchStorage) GetByID(ctx context.Context, id string) (*escalation.DispatchRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, facility_name, facility_address, facility_phone, latitude, longitude, user_id, idempotency_key, status, created_at
		FROM dispatch_requests
		WHERE id = ?`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query dispatch request: %w", err)
	}
	defer rows.Close()

	records, err := s.scanDispatchRows(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, sql.ErrNoRows
	}
	return records[0], nil
}

// GetRecent returns recent dispatch requests across all users
func (s *DispatchStorage) GetRecent(ctx context.Context, limit int) ([]*escalation.DispatchRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, facility_name, facility_address, facility_phone, latitude, longitude, user_id, idempotency_key, status, created_at
		FROM dispatch_requests
		ORDER BY created_at DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent dispatch requests: %w", err)
	}
	defer rows.Close()

	return s.scanDispatchRows(rows)
}

// scanDispatchRows scans database rows into DispatchRecord structs
func (s *DispatchStorage) scanDispatchRows(rows *sql.Rows) ([]*escalation.DispatchRecord, error) {
	var records []*escalation.DispatchRecord
	for rows.Next() {
		var record escalation.DispatchRecord
		var createdAt string

		if err := rows.Scan(
			&record.ID,
			&record.FacilityName,
			&record.FacilityAddress,
			&record.FacilityPhone,
			&record.Location.Latitude,
			&record.Location.Longitude,
			&record.UserID,
			&record.IdempotencyKey,
			&record.Status,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan dispatch request: %w", err)
		}

		parsed, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		record.CreatedAt = parsed

		records = append(records, &record)
	}

	return records, rows.Err()
}
