package chat

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore persists conversation logs in the messages table. The seq
// column (bigserial) preserves append order across reads.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Append(ctx context.Context, msg *Message) error {
	query :=
		`INSERT INTO messages (id, conversation_key, sender, recipient, ciphertext, iv, ts)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 `

	_, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.ConversationKey, msg.From, msg.To, msg.Ciphertext, msg.IV, msg.Timestamp)
	if err != nil {
		return fmt.Errorf("error performing sql request: %v", err)
	}

	return nil
}

func (s *PostgresStore) History(ctx context.Context, a, b string) ([]Message, error) {
	query :=
		`SELECT id, conversation_key, sender, recipient, ciphertext, iv, ts FROM messages
		 WHERE conversation_key = $1
		 ORDER BY seq
		 `

	rows, err := s.db.QueryContext(ctx, query, Key(a, b))
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %v", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationKey, &m.From, &m.To, &m.Ciphertext, &m.IV, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("error scanning row: %v", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading rows: %v", err)
	}

	return out, nil
}
