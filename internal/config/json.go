package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophvault/internal/flagx"
	"github.com/dmitrijs2005/gophvault/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer and
// zero values mean "not set" and leave the runtime Config untouched.
type JsonConfig struct {
	StoreDriver     string          `json:"store_driver"`
	DatabaseDSN     string          `json:"database_dsn"`
	LogLevel        string          `json:"log_level"`
	LogFormat       string          `json:"log_format"`
	IdleLockTimeout *timex.Duration `json:"idle_lock_timeout"`
	PasswordLength  int             `json:"password_length"`
	PassphraseWords int             `json:"passphrase_words"`
	UseKeyring      *bool           `json:"use_keyring"`

	ClipboardClearTimeout *timex.Duration `json:"clipboard_clear_timeout"`
}

// parseJson overlays cfg with the JSON file named by -c/-config. It panics on
// read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	jc.apply(cfg)
}

func (jc *JsonConfig) apply(cfg *Config) {
	if jc.StoreDriver != "" {
		cfg.StoreDriver = jc.StoreDriver
	}
	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
	if jc.LogFormat != "" {
		cfg.LogFormat = jc.LogFormat
	}
	if jc.IdleLockTimeout != nil {
		cfg.IdleLockTimeout = jc.IdleLockTimeout.Duration
	}
	if jc.PasswordLength != 0 {
		cfg.PasswordLength = jc.PasswordLength
	}
	if jc.PassphraseWords != 0 {
		cfg.PassphraseWords = jc.PassphraseWords
	}
	if jc.UseKeyring != nil {
		cfg.UseKeyring = *jc.UseKeyring
	}
	if jc.ClipboardClearTimeout != nil {
		cfg.ClipboardClearTimeout = jc.ClipboardClearTimeout.Duration
	}
}
