package users

import "time"

// Kind distinguishes the two identity variants. A credentialed identity is
// produced by full registration and owns credentials and key material; a
// presence-only identity is auto-provisioned when an unknown username binds
// a connection and has neither.
type Kind string

const (
	KindCredentialed Kind = "credentialed"
	KindPresenceOnly Kind = "presence"
)

// Identity is a registered or presence-only participant, addressed by
// username. Usernames are case-normalized and globally unique. Credentials
// and key material are set exactly once, at registration.
type Identity struct {
	ID            string
	Username      string
	Kind          Kind
	PasswordHash  string
	PublicKey     string
	EncPrivateKey string
	CreatedAt     time.Time
}
