package config // package config loads application configuration from environment variables

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LedgerMode selects how ticket availability is serialized.
type LedgerMode string

const (
	// LedgerRowLock relies on SELECT ... FOR UPDATE inside a MySQL transaction.
	// Safe with any number of server instances sharing the database.
	LedgerRowLock LedgerMode = "row_lock"
	// LedgerInProcess serializes reservations with a per-event mutex held by
	// this process. Only valid for a single server instance.
	LedgerInProcess LedgerMode = "in_process"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
	Env            string          // application environment (dev, test, prod)
	Port           string          // HTTP port to listen on
	DBUser         string          // database username
	DBPass         string          // database password (optional)
	DBHost         string          // database host address
	DBPort         string          // database port number
	DBName         string          // database name
	DBMigrate      bool            // apply the embedded schema on startup
	JWTSecret      string          // secret used to sign access tokens
	AccessTTLMin   int             // access token time-to-live in minutes
	BcryptCost     int             // bcrypt cost for password hashing
	RequestTimeout time.Duration   // upper bound for a single service call
	LedgerMode     LedgerMode      // inventory serialization strategy
	AdminEmails    map[string]bool // signups with these emails get the ADMIN role
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must(); a missing or malformed
// value is reported as an error so main can log it and exit.
func Load() (Config, error) {
	var missing []string
	must := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := Config{
		Env:            envStr("APP_ENV", "dev"),
		Port:           envStr("APP_PORT", "8080"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         envStr("DB_PORT", "3306"),
		DBName:         must("DB_NAME"),
		DBMigrate:      envBool("DB_MIGRATE", true),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   envInt("ACCESS_TOKEN_TTL_MIN", 24*60),
		BcryptCost:     envInt("BCRYPT_COST", 10),
		RequestTimeout: envDur("REQUEST_TIMEOUT", 5*time.Second),
		LedgerMode:     LedgerMode(strings.ToLower(envStr("LEDGER_MODE", string(LedgerRowLock)))),
		AdminEmails:    parseEmails(os.Getenv("ADMIN_EMAILS")),
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	switch cfg.LedgerMode {
	case LedgerRowLock, LedgerInProcess:
	default:
		return Config{}, fmt.Errorf("invalid LEDGER_MODE %q", cfg.LedgerMode)
	}
	if cfg.AccessTTLMin < 1 {
		return Config{}, fmt.Errorf("invalid ACCESS_TOKEN_TTL_MIN: %d", cfg.AccessTTLMin)
	}
	return cfg, nil
}

// IsProduction reports whether the service runs with production defaults.
func (c Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

func parseEmails(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			m[p] = true
		}
	}
	return m
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch strings.ToLower(os.Getenv(k)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
