// Package sqlite persists conversations and persona profiles in a single
// SQLite database, using the pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/companionkit/agentic/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS personas (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	description     TEXT NOT NULL,
	instructions    TEXT NOT NULL,
	seed            TEXT NOT NULL,
	document_handle TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	seq             INTEGER NOT NULL,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	user_id         TEXT NOT NULL,
	created_at      TEXT NOT NULL,
	UNIQUE (conversation_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (conversation_id, seq);
`

// Store implements domain.ConversationStore and domain.PersonaStore on one
// database handle. Each message gets a per-conversation sequence number
// assigned inside its insert transaction, so persisted order is append order.
type Store struct {
	db *sql.DB
}

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// The modernc driver serializes writes on a single connection; keeping
	// the pool at one avoids SQLITE_BUSY on concurrent appends.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Append inserts one immutable record at the tail of the conversation.
func (s *Store) Append(ctx context.Context, conversationID string, msg domain.ConversationMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", domain.ErrPersistence, err)
	}
	defer tx.Rollback()

	var seq int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE conversation_id = ?`,
		conversationID,
	).Scan(&seq)
	if err != nil {
		return fmt.Errorf("%w: next seq: %v", domain.ErrPersistence, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, seq, role, content, user_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, conversationID, seq, string(msg.Role), msg.Content, msg.UserID,
		msg.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("%w: insert: %v", domain.ErrPersistence, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (s *Store) Messages(ctx context.Context, conversationID string) ([]domain.ConversationMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, user_id, created_at
		 FROM messages WHERE conversation_id = ? ORDER BY seq`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var messages []domain.ConversationMessage
	for rows.Next() {
		var msg domain.ConversationMessage
		var role, createdAt string
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &role, &msg.Content, &msg.UserID, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", domain.ErrPersistence, err)
		}
		msg.Role = domain.Role(role)
		msg.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing created_at: %v", domain.ErrPersistence, err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", domain.ErrPersistence, err)
	}
	return messages, nil
}

func (s *Store) DeleteMessages(ctx context.Context, conversationID string, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM messages WHERE conversation_id = ? AND user_id = ?`,
		conversationID, userID,
	)
	if err != nil {
		return fmt.Errorf("%w: delete: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (s *Store) GetPersona(ctx context.Context, id string) (domain.PersonaProfile, error) {
	var p domain.PersonaProfile
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, instructions, seed, document_handle
		 FROM personas WHERE id = ?`,
		id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Instructions, &p.Seed, &p.DocumentHandle)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PersonaProfile{}, domain.ErrPersonaNotFound
	}
	if err != nil {
		return domain.PersonaProfile{}, fmt.Errorf("%w: persona lookup: %v", domain.ErrPersistence, err)
	}
	return p, nil
}

// SavePersona upserts a profile. The pipeline never calls this; it exists for
// the external persona-management surface and for seeding.
func (s *Store) SavePersona(ctx context.Context, p domain.PersonaProfile) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO personas (id, name, description, instructions, seed, document_handle)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   name = excluded.name,
		   description = excluded.description,
		   instructions = excluded.instructions,
		   seed = excluded.seed,
		   document_handle = excluded.document_handle`,
		p.ID, p.Name, p.Description, p.Instructions, p.Seed, p.DocumentHandle,
	)
	if err != nil {
		return fmt.Errorf("%w: saving persona: %v", domain.ErrPersistence, err)
	}
	return nil
}

var (
	_ domain.ConversationStore = (*Store)(nil)
	_ domain.PersonaStore      = (*Store)(nil)
)
