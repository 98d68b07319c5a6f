package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/chestkeeper/chestkeeper/internal/flagx"
	"github.com/chestkeeper/chestkeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "15m"
// or as integer nanoseconds. After parsing, values are copied into the
// runtime Config (which uses time.Duration).
type JsonConfig struct {
	AuthMode                     string         `json:"auth_mode"`
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	SessionTokenValidityDuration timex.Duration `json:"session_token_validity_duration"`
	OverrideLogin                string         `json:"override_login"`
	OverridePassword             string         `json:"override_password"`
	DirectoryDefaultDN           string         `json:"directory_default_dn"`
	DirectoryTimeout             timex.Duration `json:"directory_timeout"`
	TOTPIssuer                   string         `json:"totp_issuer"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The lookup order for the JSON file path is the -c or -config command-line
// flags; if neither is set, no JSON file is loaded. If the file cannot be
// read or contains invalid JSON, the function panics.
//
// The caller is expected to merge these values with defaults, environment
// values and command-line flags as part of the full configuration process.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
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

	config.AuthMode = c.AuthMode
	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.SessionTokenValidityDuration = time.Duration(c.SessionTokenValidityDuration.Duration)
	config.OverrideLogin = c.OverrideLogin
	config.OverridePassword = c.OverridePassword
	config.DirectoryDefaultDN = c.DirectoryDefaultDN
	config.DirectoryTimeout = time.Duration(c.DirectoryTimeout.Duration)
	config.TOTPIssuer = c.TOTPIssuer
}
