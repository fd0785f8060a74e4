// Package users tracks identities — their credentials, key material, and
// live connection bindings — behind a swappable persistence backend.
package users

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/svoychat/svoychat/internal/common"
	"github.com/svoychat/svoychat/internal/server/vault"
)

// Conn is the live connection handle the transport layer binds to an
// identity. The registry only ever pushes payloads through it; ownership and
// closing stay with the transport.
type Conn interface {
	Send(payload []byte) error
}

// PresenceEntry is one row of a presence snapshot.
type PresenceEntry struct {
	Username  string    `json:"username"`
	Online    bool      `json:"online"`
	CreatedAt time.Time `json:"created_at"`
}

// Registry implements the user registry: identity persistence via a
// Repository, credential handling via the vault, and an in-memory table of
// live connection bindings. At most one binding exists per identity; a new
// connection replaces the previous one without invalidating the identity.
type Registry struct {
	repo  Repository
	vault *vault.Vault

	mu       sync.Mutex
	bindings map[string]Conn // username -> live handle
	conns    map[Conn]string // reverse index for unbind
}

func NewRegistry(repo Repository, v *vault.Vault) *Registry {
	return &Registry{
		repo:     repo,
		vault:    v,
		bindings: make(map[string]Conn),
		conns:    make(map[Conn]string),
	}
}

// NormalizeUsername case-folds and trims a username. All registry operations
// address identities through this form.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Register creates a credentialed identity: the password is hashed, the
// private key is sealed by the vault, and the identity is persisted in one
// step. A duplicate username fails with common.ErrUsernameTaken and leaves
// no partial state behind.
func (r *Registry) Register(ctx context.Context, username, password, publicKey, privateKey string) (*Identity, error) {
	username = NormalizeUsername(username)
	if username == "" || password == "" || publicKey == "" || privateKey == "" {
		return nil, common.ErrValidation
	}

	hash, err := r.vault.HashPassword(password)
	if err != nil {
		return nil, common.ErrInternal
	}

	blob, err := r.vault.EncryptPrivateKey(privateKey, password)
	if err != nil {
		return nil, common.ErrInternal
	}

	identity := &Identity{
		ID:            uuid.NewString(),
		Username:      username,
		Kind:          KindCredentialed,
		PasswordHash:  hash,
		PublicKey:     publicKey,
		EncPrivateKey: blob,
		CreatedAt:     time.Now().UTC(),
	}

	return r.repo.Create(ctx, identity)
}

// Authenticate verifies the password for username and, on success, returns
// the identity together with the decrypted private key. A missing user and a
// wrong password are distinct errors internally; presence-only identities
// hold no credentials and behave as unknown users. A decryption failure
// after a successful hash check is surfaced as common.ErrDecryptionFailed —
// it means the blob is corrupted or the vault secret changed, not that the
// caller got the password wrong.
func (r *Registry) Authenticate(ctx context.Context, username, password string) (*Identity, string, error) {
	username = NormalizeUsername(username)
	if username == "" || password == "" {
		return nil, "", common.ErrValidation
	}

	identity, err := r.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, "", err
	}
	if identity.Kind != KindCredentialed {
		return nil, "", common.ErrUserNotFound
	}

	if !r.vault.VerifyPassword(password, identity.PasswordHash) {
		return nil, "", common.ErrInvalidPassword
	}

	privateKey, err := r.vault.DecryptPrivateKey(identity.EncPrivateKey, password)
	if err != nil {
		return nil, "", err
	}

	return identity, privateKey, nil
}

// Lookup returns the identity for username, for public key discovery.
func (r *Registry) Lookup(ctx context.Context, username string) (*Identity, error) {
	return r.repo.GetByUsername(ctx, NormalizeUsername(username))
}

// BindConnection associates conn with username, replacing any previous
// binding for that identity. Unknown usernames are auto-provisioned as
// presence-only identities, so a socket can announce itself before (or
// without ever) registering credentials.
func (r *Registry) BindConnection(ctx context.Context, username string, conn Conn) error {
	username = NormalizeUsername(username)
	if username == "" {
		return common.ErrValidation
	}

	if _, err := r.repo.GetByUsername(ctx, username); err != nil {
		if !errors.Is(err, common.ErrUserNotFound) {
			return err
		}
		_, err = r.repo.Create(ctx, &Identity{
			ID:        uuid.NewString(),
			Username:  username,
			Kind:      KindPresenceOnly,
			CreatedAt: time.Now().UTC(),
		})
		// a concurrent bind may have provisioned the identity first
		if err != nil && !errors.Is(err, common.ErrUsernameTaken) {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.bindings[username]; ok {
		delete(r.conns, prev)
	}
	r.bindings[username] = conn
	r.conns[conn] = username

	return nil
}

// UnbindConnection clears the binding held by conn and reports the username
// it was bound to. A stale unbind — one racing a newer connection for the
// same identity — finds no entry and is a no-op.
func (r *Registry) UnbindConnection(conn Conn) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	username, ok := r.conns[conn]
	if !ok {
		return "", false
	}
	delete(r.conns, conn)
	if r.bindings[username] == conn {
		delete(r.bindings, username)
	}
	return username, true
}

// ConnFor returns the live handle bound to username, if any.
func (r *Registry) ConnFor(username string) (Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.bindings[NormalizeUsername(username)]
	return conn, ok
}

// Presence lists every known identity with its online flag.
func (r *Registry) Presence(ctx context.Context) ([]PresenceEntry, error) {
	entries, _, err := r.Snapshot(ctx)
	return entries, err
}

// Snapshot returns the presence list together with all live handles, read
// under one lock so broadcast fan-out observes a consistent binding state.
func (r *Registry) Snapshot(ctx context.Context) ([]PresenceEntry, []Conn, error) {
	identities, err := r.repo.List(ctx)
	if err != nil {
		return nil, nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]PresenceEntry, 0, len(identities))
	for _, identity := range identities {
		_, online := r.bindings[identity.Username]
		entries = append(entries, PresenceEntry{
			Username:  identity.Username,
			Online:    online,
			CreatedAt: identity.CreatedAt,
		})
	}

	conns := make([]Conn, 0, len(r.bindings))
	for _, conn := range r.bindings {
		conns = append(conns, conn)
	}

	return entries, conns, nil
}
