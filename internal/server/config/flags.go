package config

import (
	"flag"
	"os"
	"time"

	"github.com/svoychat/svoychat/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":3001")
//	-d string   PostgreSQL DSN
//	-s string   token-signing HMAC secret
//	-v string   key-vault server secret
//	-t int      access token validity, minutes
//	-u bool     allow messages to unknown recipients
//	-p bool     return decrypted private key on login
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-v", "-t", "-u", "-p"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.Addr, "a", config.Addr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN (empty for in-memory)")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.VaultSecret, "v", config.VaultSecret, "key vault server secret")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")

	fs.BoolVar(&config.AllowUnknownRecipients, "u", config.AllowUnknownRecipients, "store messages addressed to unknown recipients")
	fs.BoolVar(&config.ReturnPrivateKeyOnLogin, "p", config.ReturnPrivateKeyOnLogin, "include decrypted private key in login response")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
}
