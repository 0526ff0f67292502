package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// MessageStore defines the interface for conversation log persistence.
type MessageStore interface {
	// Insert appends a message to the log.
	Insert(ctx context.Context, msg *MessageRecord) error
	// Delete removes a message by ID (used when a confirmation prompt resolves).
	Delete(ctx context.Context, id string) error
	// ListAll returns all messages ordered by creation time.
	ListAll(ctx context.Context) ([]MessageRecord, error)
	// DeleteAll clears the conversation log.
	DeleteAll(ctx context.Context) error
}

// MessageRepo provides methods for conversation log operations.
// It implements the MessageStore interface.
type MessageRepo struct {
	db *sql.DB
}

// NewMessageRepo creates a new MessageRepo.
func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Insert appends a message to the log.
func (r *MessageRepo) Insert(ctx context.Context, msg *MessageRecord) error {
	var confirmation any
	if msg.RequiresConfirmation != nil {
		if *msg.RequiresConfirmation {
			confirmation = 1
		} else {
			confirmation = 0
		}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (id, role, content, original_question, requires_confirmation, summary)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.Role, msg.Content, msg.OriginalQuestion, confirmation, msg.Summary,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// Delete removes a message by ID.
func (r *MessageRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM messages WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// ListAll returns all messages ordered by creation time.
func (r *MessageRepo) ListAll(ctx context.Context) ([]MessageRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, role, content, original_question, requires_confirmation, summary, created_at
		 FROM messages ORDER BY rowid`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var messages []MessageRecord
	for rows.Next() {
		var msg MessageRecord
		var confirmation sql.NullInt64
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &msg.OriginalQuestion, &confirmation, &msg.Summary, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if confirmation.Valid {
			value := confirmation.Int64 != 0
			msg.RequiresConfirmation = &value
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return messages, nil
}

// DeleteAll clears the conversation log.
func (r *MessageRepo) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM messages")
	if err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	return nil
}
