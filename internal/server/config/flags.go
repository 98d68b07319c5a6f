package config

import (
	"flag"
	"os"
	"time"

	"github.com/chestkeeper/chestkeeper/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-m string   auth mode, "db" or "directory"
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      session token validity, minutes
//	-n string   default directory DN for first-time logins
//	-w int      directory bind/search timeout, seconds
//	-i string   TOTP issuer name
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes
//     using flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers and then converted to
//     time.Duration values.
//   - The override identity pair deliberately has no flag form; it comes
//     from the environment only.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-m", "-a", "-d", "-s", "-t", "-n", "-w", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.AuthMode, "m", config.AuthMode, "auth mode (db or directory)")
	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	sessionTokenValidityDuration := fs.Int("t", int(config.SessionTokenValidityDuration.Minutes()), "session_token_validity_duration (in minutes)")

	fs.StringVar(&config.DirectoryDefaultDN, "n", config.DirectoryDefaultDN, "default directory DN")

	directoryTimeout := fs.Int("w", int(config.DirectoryTimeout.Seconds()), "directory timeout (in seconds)")

	fs.StringVar(&config.TOTPIssuer, "i", config.TOTPIssuer, "TOTP issuer")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionTokenValidityDuration = time.Duration(*sessionTokenValidityDuration) * time.Minute
	config.DirectoryTimeout = time.Duration(*directoryTimeout) * time.Second
}
