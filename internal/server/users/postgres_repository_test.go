package users

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svoychat/svoychat/internal/common"
)

func TestPostgresRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo, err := NewPostgresRepository(db)
	require.NoError(t, err)

	created := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("id1", "alice", KindCredentialed, "hash", "pubA", "blob").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	got, err := repo.Create(context.Background(), &Identity{
		ID: "id1", Username: "alice", Kind: KindCredentialed,
		PasswordHash: "hash", PublicKey: "pubA", EncPrivateKey: "blob",
	})
	require.NoError(t, err)
	assert.Equal(t, created, got.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CreateDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo, err := NewPostgresRepository(db)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pgconn.PgError{Code: uniqueViolationCode})

	_, err = repo.Create(context.Background(), &Identity{ID: "id1", Username: "alice", Kind: KindCredentialed})
	assert.True(t, errors.Is(err, common.ErrUsernameTaken))
}

func TestPostgresRepository_GetByUsername_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo, err := NewPostgresRepository(db)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT").
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "kind", "password_hash", "public_key", "enc_private_key", "created_at"}))

	_, err = repo.GetByUsername(context.Background(), "nobody")
	assert.True(t, errors.Is(err, common.ErrUserNotFound))
}

func TestPostgresRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo, err := NewPostgresRepository(db)
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"id", "username", "kind", "password_hash", "public_key", "enc_private_key", "created_at"}).
		AddRow("1", "alice", KindCredentialed, "h", "pubA", "blob", time.Now()).
		AddRow("2", "ghost", KindPresenceOnly, "", "", "", time.Now())

	mock.ExpectQuery("SELECT").WillReturnRows(rows)

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "alice", got[0].Username)
	assert.Equal(t, KindPresenceOnly, got[1].Kind)
}
