package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/svoychat/svoychat/internal/flagx"
	"github.com/svoychat/svoychat/internal/timex"
)

// JsonConfig is the JSON-file shape of Config. It uses timex.Duration for
// interval fields, which accepts both string values such as "24h" and integer
// nanoseconds. After unmarshalling, its fields are copied into the runtime
// Config struct.
type JsonConfig struct {
	Addr                        string         `json:"addr"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	VaultSecret                 string         `json:"vault_secret"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	AllowUnknownRecipients      *bool          `json:"allow_unknown_recipients"`
	ReturnPrivateKeyOnLogin     *bool          `json:"return_private_key_on_login"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags into the provided Config. If no file is named, nothing is
// loaded. An unreadable or malformed file panics: a half-applied config is
// worse than refusing to start.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.Addr != "" {
		config.Addr = c.Addr
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.VaultSecret != "" {
		config.VaultSecret = c.VaultSecret
	}
	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = time.Duration(c.AccessTokenValidityDuration.Duration)
	}
	if c.AllowUnknownRecipients != nil {
		config.AllowUnknownRecipients = *c.AllowUnknownRecipients
	}
	if c.ReturnPrivateKeyOnLogin != nil {
		config.ReturnPrivateKeyOnLogin = *c.ReturnPrivateKeyOnLogin
	}
}
