package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "ROOMBOOKING"

// Config captures configuration values for the room booking service.
type Config struct {
	HTTPPort             int
	Store                string
	SQLiteDSN            string
	PostgresURL          string
	SlotCatalog          string
	JWTSecret            string
	ConfirmSecret        string
	ConfirmTTL           time.Duration
	RedisAddr            string
	RedisPassword        string
	LeaseTTL             time.Duration
	RequestPollInterval  time.Duration
	SchedulePollInterval time.Duration
	RevertPolicy         string
	RateLimitPerMinute   int
	MaxWeeks             int
	Timezone             string
	LogLevel             string
	LogFormat            string
}

// Location resolves Timezone. An empty value selects time.Local.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func defaults(v *viper.Viper) {
	v.SetDefault("http_port", "8080")
	v.SetDefault("store", StoreSQLite)
	v.SetDefault("sqlite_dsn", "room-booking.db")
	v.SetDefault("confirm_ttl", "2m")
	v.SetDefault("lease_ttl", "30s")
	v.SetDefault("request_poll_interval", "5s")
	v.SetDefault("schedule_poll_interval", "15s")
	v.SetDefault("revert_policy", "best_effort")
	v.SetDefault("rate_limit_per_minute", "120")
	v.SetDefault("max_weeks", "52")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
}

// NewFlagSet declares the command-line flags Load understands.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "path to a YAML config file")
	fs.String("http-port", "", "HTTP listen port")
	fs.String("store", "", "store backend: sqlite, postgres or memory")
	fs.String("sqlite-dsn", "", "SQLite database path or DSN")
	fs.String("postgres-url", "", "PostgreSQL connection URL")
	fs.String("slot-catalog", "", "path to a YAML slot catalog")
	fs.String("redis-addr", "", "Redis address for distributed review leases")
	fs.String("revert-policy", "", "revert policy: best_effort or strict")
	fs.String("timezone", "", "IANA timezone for calendar dates")
	fs.String("log-level", "", "log level: debug, info, warn or error")
	fs.String("log-format", "", "log format: json or text")
	return fs
}

// Load reads configuration from defaults, an optional YAML file, ROOMBOOKING_*
// environment variables and args, later sources taking precedence.
//
// Missing required keys and invalid values are collected and reported together.
func Load(args []string) (Config, error) {
	fs := NewFlagSet("room-booking")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return LoadFlags(fs)
}

// LoadFlags is Load over an already parsed flag set.
func LoadFlags(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	defaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, key := range []string{"http_port", "store", "sqlite_dsn", "postgres_url", "slot_catalog", "redis_addr", "revert_policy", "timezone", "log_level", "log_format"} {
		if flag := fs.Lookup(strings.ReplaceAll(key, "_", "-")); flag != nil {
			if err := v.BindPFlag(key, flag); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", flag.Name, err)
			}
		}
	}

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 2)

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			invalid = append(invalid, "config")
		}
	}

	cfg := Config{
		Store:         strings.ToLower(strings.TrimSpace(v.GetString("store"))),
		SQLiteDSN:     strings.TrimSpace(v.GetString("sqlite_dsn")),
		PostgresURL:   strings.TrimSpace(v.GetString("postgres_url")),
		SlotCatalog:   strings.TrimSpace(v.GetString("slot_catalog")),
		JWTSecret:     strings.TrimSpace(v.GetString("jwt_secret")),
		ConfirmSecret: strings.TrimSpace(v.GetString("confirm_secret")),
		RedisAddr:     strings.TrimSpace(v.GetString("redis_addr")),
		RedisPassword: v.GetString("redis_password"),
		RevertPolicy:  strings.TrimSpace(v.GetString("revert_policy")),
		Timezone:      strings.TrimSpace(v.GetString("timezone")),
		LogLevel:      strings.ToLower(strings.TrimSpace(v.GetString("log_level"))),
		LogFormat:     strings.ToLower(strings.TrimSpace(v.GetString("log_format"))),
	}

	positiveInt := func(key string, dst *int) {
		n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
		if err != nil || n <= 0 {
			invalid = append(invalid, key)
			return
		}
		*dst = n
	}
	positiveDuration := func(key string, dst *time.Duration) {
		d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
		if err != nil || d <= 0 {
			invalid = append(invalid, key)
			return
		}
		*dst = d
	}

	positiveInt("http_port", &cfg.HTTPPort)
	positiveInt("rate_limit_per_minute", &cfg.RateLimitPerMinute)
	positiveInt("max_weeks", &cfg.MaxWeeks)
	positiveDuration("confirm_ttl", &cfg.ConfirmTTL)
	positiveDuration("lease_ttl", &cfg.LeaseTTL)
	positiveDuration("request_poll_interval", &cfg.RequestPollInterval)
	positiveDuration("schedule_poll_interval", &cfg.SchedulePollInterval)

	if cfg.JWTSecret == "" {
		missing = append(missing, "jwt_secret")
	}
	if cfg.ConfirmSecret == "" {
		missing = append(missing, "confirm_secret")
	}

	switch cfg.Store {
	case StoreSQLite:
		if cfg.SQLiteDSN == "" {
			missing = append(missing, "sqlite_dsn")
		}
	case StorePostgres:
		if cfg.PostgresURL == "" {
			missing = append(missing, "postgres_url")
		}
	case StoreMemory:
	default:
		invalid = append(invalid, "store")
	}

	switch cfg.RevertPolicy {
	case "best_effort", "strict":
	default:
		invalid = append(invalid, "revert_policy")
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		invalid = append(invalid, "log_level")
	}

	switch cfg.LogFormat {
	case "json", "text":
	default:
		invalid = append(invalid, "log_format")
	}

	if _, err := cfg.Location(); err != nil {
		invalid = append(invalid, "timezone")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("必須の設定値が指定されていません: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("設定値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
