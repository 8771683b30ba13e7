package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mailtriage/internal/models"
)

// SentStore is the append-only send log. Rows are never updated or deleted;
// reads come back newest first.
type SentStore struct {
	db *sql.DB
}

func NewSentStore(db *sql.DB) *SentStore {
	return &SentStore{db: db}
}

// Append records one sent message.
func (s *SentStore) Append(ctx context.Context, msg *models.SentMessage) error {
	if msg == nil {
		return fmt.Errorf("sent message required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sent_messages (id, recipient, subject, body, sent_at) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.To, msg.Subject, msg.Body, msg.SentAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append sent message: %w", err)
	}
	return nil
}

// List returns the send log, newest first.
func (s *SentStore) List(ctx context.Context) ([]*models.SentMessage, error) {
	// seq breaks same-timestamp ties in insertion order.
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, recipient, subject, body, sent_at FROM sent_messages ORDER BY sent_at DESC, seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sent messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*models.SentMessage, 0)
	for rows.Next() {
		var msg models.SentMessage
		var sentAt time.Time
		if err := rows.Scan(&msg.ID, &msg.To, &msg.Subject, &msg.Body, &sentAt); err != nil {
			return nil, fmt.Errorf("scan sent message: %w", err)
		}
		msg.SentAt = sentAt
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sent messages: %w", err)
	}
	return messages, nil
}
