// Package config provides functionality for managing configuration options
// for the application using command-line flags, an optional JSON config file,
// a .env file and environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Duration is a time.Duration that reads "10s"-style strings from JSON.
type Duration struct {
	time.Duration
}

// UnmarshalJSON accepts either a duration string or integer nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		d.Duration = v
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid duration %s", b)
	}
	d.Duration = time.Duration(n)
	return nil
}

// Options holds the configuration values for the application.
type Options struct {
	// Address defines the server's listening address (ip:port).
	Address string `json:"address"`

	// DatabaseDSN is the Postgres connection string of the audit log.
	// The audit log is disabled when it is empty.
	DatabaseDSN string `json:"database_dsn"`

	// Config is the path to the Config file.
	Config string `json:"-"`

	// EnvFile is the path of the .env file loaded before reading the environment.
	EnvFile string `json:"-"`

	// QuickBaseRealm is the record store realm hostname.
	QuickBaseRealm string `json:"quickbase_realm"`
	// QuickBaseUserToken is the record store secret. It is only read from
	// the environment or the config file.
	QuickBaseUserToken string `json:"quickbase_user_token"`
	// QuickBaseBaseURL overrides the record store API root.
	QuickBaseBaseURL string `json:"quickbase_base_url"`
	// ClientsTableID overrides the Clients table ID.
	ClientsTableID string `json:"clients_table_id"`
	// VesselsTableID overrides the Vessels table ID.
	VesselsTableID string `json:"vessels_table_id"`
	// StoreTimeout bounds every record store call.
	StoreTimeout Duration `json:"store_timeout"`

	// JWTSecret verifies HS256 identity tokens.
	JWTSecret string `json:"jwt_secret"`
	// JWTPublicKeyPath is a PEM file verifying RS256 identity tokens.
	JWTPublicKeyPath string `json:"jwt_public_key_path"`
	// JWTIssuer, when set, must match the token's "iss" claim.
	JWTIssuer string `json:"jwt_issuer"`
	// JWTLeeway tolerates clock skew on the exp, nbf and iat claims.
	JWTLeeway Duration `json:"jwt_leeway"`

	// CORSOrigins is a comma-separated list of allowed browser origins.
	CORSOrigins string `json:"cors_origins"`

	// RateLimitRPS is the per-user request rate; 0 disables rate limiting.
	RateLimitRPS float64 `json:"rate_limit_rps"`
	// RateLimitBurst is the per-user burst size.
	RateLimitBurst int `json:"rate_limit_burst"`
	// RateLimitIdle is how long a user's limiter is kept without requests.
	RateLimitIdle Duration `json:"rate_limit_idle"`

	// AuditRetention is how long audit entries are kept.
	AuditRetention Duration `json:"audit_retention"`

	// LogLevel is the zap log level.
	LogLevel string `json:"log_level"`

	// TLSCertFile and TLSKeyFile enable HTTPS when both are set.
	TLSCertFile string `json:"tls_cert_file"`
	TLSKeyFile  string `json:"tls_key_file"`
}

// Defaults.
const (
	DefaultAddress        = ":8080"
	DefaultStoreTimeout   = 10 * time.Second
	DefaultCORSOrigins    = "http://localhost:5173"
	DefaultRateLimitRPS   = 10
	DefaultRateLimitBurst = 20
	DefaultRateLimitIdle  = 10 * time.Minute
	DefaultAuditRetention = 90 * 24 * time.Hour
	DefaultLogLevel       = "info"
)

func newFlagSet(o *Options) *flag.FlagSet {
	fs := flag.NewFlagSet("vesselportal", flag.ContinueOnError)
	fs.StringVar(&o.Address, "a", DefaultAddress, "run on ip:port server")
	fs.StringVar(&o.DatabaseDSN, "d", "", "audit log db address")
	fs.StringVar(&o.Config, "config", "config.json", "path to config file")
	fs.StringVar(&o.Config, "c", "config.json", "path to config file (shorthand)")
	fs.StringVar(&o.EnvFile, "env", ".env", "path to .env file")
	fs.StringVar(&o.QuickBaseRealm, "realm", "", "record store realm hostname")
	fs.StringVar(&o.QuickBaseBaseURL, "store-url", "", "record store API root")
	fs.StringVar(&o.ClientsTableID, "clients-table", "", "Clients table ID")
	fs.StringVar(&o.VesselsTableID, "vessels-table", "", "Vessels table ID")
	fs.DurationVar(&o.StoreTimeout.Duration, "store-timeout", DefaultStoreTimeout, "record store call timeout")
	fs.StringVar(&o.JWTPublicKeyPath, "jwt-key", "", "PEM public key for RS256 tokens")
	fs.StringVar(&o.JWTIssuer, "jwt-issuer", "", "required token issuer")
	fs.DurationVar(&o.JWTLeeway.Duration, "jwt-leeway", 0, "allowed clock skew on token time claims")
	fs.StringVar(&o.CORSOrigins, "cors", DefaultCORSOrigins, "comma-separated allowed origins")
	fs.Float64Var(&o.RateLimitRPS, "rate", DefaultRateLimitRPS, "per-user requests per second, 0 disables")
	fs.IntVar(&o.RateLimitBurst, "burst", DefaultRateLimitBurst, "per-user burst size")
	fs.DurationVar(&o.RateLimitIdle.Duration, "rate-idle", DefaultRateLimitIdle, "evict per-user limiters idle this long")
	fs.DurationVar(&o.AuditRetention.Duration, "audit-retention", DefaultAuditRetention, "audit log retention")
	fs.StringVar(&o.LogLevel, "l", DefaultLogLevel, "log level")
	fs.StringVar(&o.TLSCertFile, "tls-cert", "", "TLS certificate file")
	fs.StringVar(&o.TLSKeyFile, "tls-key", "", "TLS key file")
	return fs
}

// Load builds Options from args and the environment. Precedence, lowest
// first: defaults, config file, command-line flags, environment.
func Load(args []string) (*Options, error) {
	o := &Options{}
	fs := newFlagSet(o)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	explicit := map[string]string{}
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = f.Value.String() })

	if err := godotenv.Load(o.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		o.Config = configPath
	}

	if o.Config != "" {
		if _, err := os.Stat(o.Config); err == nil {
			data, err := os.ReadFile(o.Config)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}
			if err := json.Unmarshal(data, o); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
			// Explicit flags win over the file.
			if err := reapplyFlags(fs, explicit); err != nil {
				return nil, err
			}
		}
	}

	if err := applyEnv(o); err != nil {
		return nil, err
	}
	return o, nil
}

// reapplyFlags sets again the flags given on the command line.
func reapplyFlags(fs *flag.FlagSet, explicit map[string]string) error {
	for name, value := range explicit {
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("flag -%s: %w", name, err)
		}
	}
	return nil
}

func applyEnv(o *Options) error {
	str := map[string]*string{
		"SERVER_ADDRESS":          &o.Address,
		"DATABASE_DSN":            &o.DatabaseDSN,
		"QUICKBASE_REALM":         &o.QuickBaseRealm,
		"QUICKBASE_USER_TOKEN":    &o.QuickBaseUserToken,
		"QUICKBASE_BASE_URL":      &o.QuickBaseBaseURL,
		"QUICKBASE_CLIENTS_TABLE": &o.ClientsTableID,
		"QUICKBASE_VESSELS_TABLE": &o.VesselsTableID,
		"JWT_SECRET":              &o.JWTSecret,
		"JWT_PUBLIC_KEY_PATH":     &o.JWTPublicKeyPath,
		"JWT_ISSUER":              &o.JWTIssuer,
		"CORS_ORIGINS":            &o.CORSOrigins,
		"LOG_LEVEL":               &o.LogLevel,
		"TLS_CERT_FILE":           &o.TLSCertFile,
		"TLS_KEY_FILE":            &o.TLSKeyFile,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"STORE_TIMEOUT":   &o.StoreTimeout.Duration,
		"AUDIT_RETENTION": &o.AuditRetention.Duration,
		"JWT_LEEWAY":      &o.JWTLeeway.Duration,
		"RATE_LIMIT_IDLE": &o.RateLimitIdle.Duration,
	}
	for key, dst := range durations {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_RPS: %w", err)
		}
		o.RateLimitRPS = f
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_BURST: %w", err)
		}
		o.RateLimitBurst = n
	}
	return nil
}

// Validate reports missing or inconsistent settings.
func (o *Options) Validate() error {
	var errs []error
	if o.QuickBaseRealm == "" {
		errs = append(errs, errors.New("QUICKBASE_REALM must be set"))
	}
	if o.QuickBaseUserToken == "" {
		errs = append(errs, errors.New("QUICKBASE_USER_TOKEN must be set"))
	}
	if o.JWTSecret == "" && o.JWTPublicKeyPath == "" {
		errs = append(errs, errors.New("JWT_SECRET or JWT_PUBLIC_KEY_PATH must be set"))
	}
	if o.RateLimitRPS < 0 || o.RateLimitBurst < 0 {
		errs = append(errs, errors.New("rate limit values must not be negative"))
	}
	if o.JWTLeeway.Duration < 0 {
		errs = append(errs, errors.New("JWT_LEEWAY must not be negative"))
	}
	if (o.TLSCertFile == "") != (o.TLSKeyFile == "") {
		errs = append(errs, errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set together"))
	}
	return errors.Join(errs...)
}

// Origins splits CORSOrigins into trimmed, non-empty origins.
func (o *Options) Origins() []string {
	var out []string
	for _, p := range strings.Split(o.CORSOrigins, ",") {
		if v := strings.TrimRight(strings.TrimSpace(p), "/"); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Parse loads and validates options from the process arguments and
// environment, exiting on error.
func Parse() *Options {
	o, err := Load(os.Args[1:])
	if err != nil {
		log.Fatalf("error while loading config: %v", err)
	}
	if err := o.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	return o
}
