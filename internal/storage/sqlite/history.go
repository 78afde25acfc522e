package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/swasthya/sahayak/pkg/logger"
)

// HistoryRecord is one chat turn in a user's conversation history
type HistoryRecord struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryStorage handles per-user chat history. Failures here are non-fatal
// to the chat flow; callers log and continue.
type HistoryStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewHistoryStorage creates a new SQLite chat history storage
func NewHistoryStorage(db *sql.DB, log *logger.Logger) (*HistoryStorage, error) {
	storage := &HistoryStorage{
		db:     db,
		logger: log.Named("sqlite-history"),
	}

	if err := storage.initDB(); err != nil {
		return nil, err
	}

	return storage, nil
}

// initDB initializes the database tables
func (s *HistoryStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS chat_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create chat_history table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_history_user_id ON chat_history(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_history_created_at ON chat_history(created_at)`,
	}
	for _, indexSQL := range indexes {
		if _, err := s.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create history index: %w", err)
		}
	}

	return nil
}

// SaveMessage appends a chat turn for a user
func (s *HistoryStorage) SaveMessage(ctx context.Context, userID, role, text string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_history (user_id, role, text, created_at) VALUES (?, ?, ?, ?)`,
		userID,
		role,
		text,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert chat message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return id, nil
}

// GetLatestByUser returns a user's most recent chat turns, newest first
func (s *HistoryStorage) GetLatestByUser(ctx context.Context, userID string, limit int) ([]*HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, role, text, created_at
		FROM chat_history
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat history: %w", err)
	}
	defer rows.Close()

	var records []*HistoryRecord
	for rows.Next() {
		var record HistoryRecord
		var createdAt string

		if err := rows.Scan(&record.ID, &record.UserID, &record.Role, &record.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
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
