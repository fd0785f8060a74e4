// Package config handles configuration for the relay server, including
// defaults, JSON overlay, and command-line flags.
package config

import (
	"time"

	"github.com/svoychat/svoychat/internal/common"
)

// Config holds runtime settings for the svoychat server.
//
// Fields:
//   - Addr: bind address for the HTTP/WebSocket endpoint.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty selects the in-memory backend.
//   - SecretKey: HMAC secret for signing access tokens (HS256). When left
//     unconfigured, a random per-process secret is generated at startup, so
//     tokens do not survive a restart.
//   - VaultSecret: server-side component of the key-vault KDF input.
//     Rotating it invalidates every stored private-key blob.
//   - AccessTokenValidityDuration: access token lifetime.
//   - AllowUnknownRecipients: when true, messages to usernames that were never
//     registered are still stored (observed behavior of the original relay).
//   - ReturnPrivateKeyOnLogin: when true, login responses include the
//     decrypted private key; when false, clients must keep their own copy.
type Config struct {
	Addr                        string
	DatabaseDSN                 string
	SecretKey                   string
	VaultSecret                 string
	AccessTokenValidityDuration time.Duration
	AllowUnknownRecipients      bool
	ReturnPrivateKeyOnLogin     bool
}

// LoadDefaults populates Config with development defaults.
// NOTE: the vault secret default is insecure and must be overridden in
// production; the signing secret is filled in by LoadConfig when no value is
// configured.
func (c *Config) LoadDefaults() {
	c.Addr = ":3001"
	c.DatabaseDSN = ""
	c.SecretKey = ""
	c.VaultSecret = "vaultSecret"
	c.AccessTokenValidityDuration = 24 * time.Hour
	c.AllowUnknownRecipients = true
	c.ReturnPrivateKeyOnLogin = true
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags. An
// unconfigured signing secret is replaced with a random per-process one:
// sessions are short-lived, unlike the vault secret, which must stay stable
// across restarts to keep stored blobs decryptable.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)

	if cfg.SecretKey == "" {
		secret, err := common.MakeRandHexString(32)
		if err != nil {
			panic(err)
		}
		cfg.SecretKey = secret
	}

	return cfg
}
