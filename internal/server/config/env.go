package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config with values from environment variables. A .env
// file in the working directory is loaded first, best effort, so local
// setups can keep the override identity out of the shell history.
//
// Recognized variables:
//
//	AUTH_MODE               "db" or "directory"
//	HTTP_ADDR               web bind address
//	DATABASE_DSN            PostgreSQL DSN
//	SECRET_KEY              JWT HMAC secret
//	SESSION_TOKEN_VALIDITY  Go duration, e.g. "12h"
//	OVERRIDE_LOGIN          bypass identity login
//	OVERRIDE_PASSWORD       bypass identity password
//	DIRECTORY_DEFAULT_DN    base DN for first-time directory logins
//	DIRECTORY_TIMEOUT       Go duration, e.g. "10s"
//	TOTP_ISSUER             issuer stamped into enrolled TOTP secrets
func parseEnv(config *Config) {
	_ = godotenv.Load()

	setString := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setDuration := func(dst *time.Duration, key string) {
		if v, ok := os.LookupEnv(key); ok {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	setString(&config.AuthMode, "AUTH_MODE")
	setString(&config.EndpointAddrHTTP, "HTTP_ADDR")
	setString(&config.DatabaseDSN, "DATABASE_DSN")
	setString(&config.SecretKey, "SECRET_KEY")
	setDuration(&config.SessionTokenValidityDuration, "SESSION_TOKEN_VALIDITY")
	setString(&config.OverrideLogin, "OVERRIDE_LOGIN")
	setString(&config.OverridePassword, "OVERRIDE_PASSWORD")
	setString(&config.DirectoryDefaultDN, "DIRECTORY_DEFAULT_DN")
	setDuration(&config.DirectoryTimeout, "DIRECTORY_TIMEOUT")
	setString(&config.TOTPIssuer, "TOTP_ISSUER")
}
