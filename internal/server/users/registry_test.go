package users

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svoychat/svoychat/internal/common"
	"github.com/svoychat/svoychat/internal/server/vault"
)

type fakeConn struct {
	sent [][]byte
}

func (f *fakeConn) Send(payload []byte) error {
	f.sent = append(f.sent, payload)
	return nil
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(NewMemoryRepository(), vault.New("test-secret"))
}

func TestRegister_AuthenticateRoundTrip(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	identity, err := r.Register(ctx, "alice", "pw1", "pubA", "privA")
	require.NoError(t, err)
	assert.Equal(t, KindCredentialed, identity.Kind)
	assert.NotEqual(t, "pw1", identity.PasswordHash)
	assert.NotContains(t, identity.EncPrivateKey, "privA")

	got, privateKey, err := r.Authenticate(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "pubA", got.PublicKey)
	assert.Equal(t, "privA", privateKey)
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	_, err := r.Register(ctx, "alice", "pw1", "pubA", "privA")
	require.NoError(t, err)

	_, privateKey, err := r.Authenticate(ctx, "alice", "wrong")
	assert.True(t, errors.Is(err, common.ErrInvalidPassword))
	assert.Empty(t, privateKey)
}

func TestAuthenticate_UnknownUser(t *testing.T) {
	r := newTestRegistry(t)

	_, _, err := r.Authenticate(context.Background(), "nobody", "pw")
	assert.True(t, errors.Is(err, common.ErrUserNotFound))
}

func TestRegister_DuplicateLeavesStateUntouched(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	_, err := r.Register(ctx, "alice", "pw1", "pubA", "privA")
	require.NoError(t, err)

	_, err = r.Register(ctx, "alice", "pw2", "pubX", "privX")
	assert.True(t, errors.Is(err, common.ErrUsernameTaken))

	// the original identity must be intact
	_, privateKey, err := r.Authenticate(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.Equal(t, "privA", privateKey)

	entries, err := r.Presence(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRegister_Validation(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	for _, args := range [][4]string{
		{"", "pw", "pub", "priv"},
		{"alice", "", "pub", "priv"},
		{"alice", "pw", "", "priv"},
		{"alice", "pw", "pub", ""},
	} {
		_, err := r.Register(ctx, args[0], args[1], args[2], args[3])
		assert.True(t, errors.Is(err, common.ErrValidation), "args %v", args)
	}
}

func TestRegister_UsernameIsCaseNormalized(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	_, err := r.Register(ctx, "  Alice ", "pw1", "pubA", "privA")
	require.NoError(t, err)

	identity, err := r.Lookup(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.Username)

	_, err = r.Register(ctx, "ALICE", "pw2", "pubX", "privX")
	assert.True(t, errors.Is(err, common.ErrUsernameTaken))
}

func TestBindConnection_AutoProvisionsPresenceOnly(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	conn := &fakeConn{}

	require.NoError(t, r.BindConnection(ctx, "ghost", conn))

	identity, err := r.Lookup(ctx, "ghost")
	require.NoError(t, err)
	assert.Equal(t, KindPresenceOnly, identity.Kind)
	assert.Empty(t, identity.PublicKey)

	// presence-only identities cannot authenticate
	_, _, err = r.Authenticate(ctx, "ghost", "anything")
	assert.True(t, errors.Is(err, common.ErrUserNotFound))

	entries, err := r.Presence(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Online)
}

func TestBindConnection_LastRegistrationWins(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	first := &fakeConn{}
	second := &fakeConn{}

	require.NoError(t, r.BindConnection(ctx, "alice", first))
	require.NoError(t, r.BindConnection(ctx, "alice", second))

	got, ok := r.ConnFor("alice")
	require.True(t, ok)
	assert.Same(t, second, got.(*fakeConn))

	// a stale unbind from the replaced connection must not clear the new binding
	_, ok = r.UnbindConnection(first)
	assert.False(t, ok)

	_, ok = r.ConnFor("alice")
	assert.True(t, ok)
}

func TestUnbindConnection_ClearsPresenceKeepsIdentity(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	conn := &fakeConn{}

	_, err := r.Register(ctx, "alice", "pw1", "pubA", "privA")
	require.NoError(t, err)
	require.NoError(t, r.BindConnection(ctx, "alice", conn))

	username, ok := r.UnbindConnection(conn)
	require.True(t, ok)
	assert.Equal(t, "alice", username)

	entries, err := r.Presence(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Online)

	// identity survives the disconnect
	_, err = r.Lookup(ctx, "alice")
	assert.NoError(t, err)
}

func TestSnapshot_ReturnsLiveConns(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	c1, c2 := &fakeConn{}, &fakeConn{}
	require.NoError(t, r.BindConnection(ctx, "alice", c1))
	require.NoError(t, r.BindConnection(ctx, "bob", c2))

	entries, conns, err := r.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Len(t, conns, 2)
}
