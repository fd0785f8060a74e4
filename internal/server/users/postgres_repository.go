package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/svoychat/svoychat/internal/common"
)

const uniqueViolationCode = "23505"

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) (*PostgresRepository, error) {
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) Create(ctx context.Context, identity *Identity) (*Identity, error) {
	query :=
		`INSERT INTO users (id, username, kind, password_hash, public_key, enc_private_key)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		identity.ID, identity.Username, identity.Kind,
		identity.PasswordHash, identity.PublicKey, identity.EncPrivateKey).Scan(&identity.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return nil, common.ErrUsernameTaken
		}
		return nil, fmt.Errorf("error performing sql request: %v", err)
	}

	return identity, nil
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*Identity, error) {
	query :=
		`SELECT id, username, kind, password_hash, public_key, enc_private_key, created_at FROM users
		 WHERE username = $1
		 `

	identity := &Identity{}
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&identity.ID, &identity.Username, &identity.Kind,
		&identity.PasswordHash, &identity.PublicKey, &identity.EncPrivateKey, &identity.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %v", err)
	}

	return identity, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]Identity, error) {
	query :=
		`SELECT id, username, kind, password_hash, public_key, enc_private_key, created_at FROM users
		 ORDER BY username
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %v", err)
	}
	defer rows.Close()

	var out []Identity
	for rows.Next() {
		var identity Identity
		if err := rows.Scan(
			&identity.ID, &identity.Username, &identity.Kind,
			&identity.PasswordHash, &identity.PublicKey, &identity.EncPrivateKey, &identity.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning row: %v", err)
		}
		out = append(out, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading rows: %v", err)
	}

	return out, nil
}
