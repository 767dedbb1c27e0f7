package main

import (
	"crypto/tls"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	driverTables = "aztables"
	driverSQLite = "sqlite"
	driverMemory = "memory"
)

// Config is the API service configuration, read from the environment.
type Config struct {
	Port  string
	Debug bool

	StorageDriver string
	ConnStr       string
	ColumnsTable  string
	TasksTable    string
	BoardID       string
	SQLitePath    string

	RedisConn  string
	CacheTTL   time.Duration
	DeduperTTL time.Duration

	ChangesQueue  string
	ChangeWorkers int
	ChangeBuffer  int
	ChangeHandoff time.Duration

	Auth0Domain     string
	Auth0Audience   string
	LocalAuthMode   string
	LocalAuthSecret string
	JWKSCacheTTL    time.Duration
}

func loadConfig(getenv func(string) string) (Config, error) {
	cfg := Config{
		Port:            valueOr(getenv("PORT"), "3000"),
		StorageDriver:   strings.ToLower(getenv("STORAGE_DRIVER")),
		ConnStr:         getenv("STORAGE_CONNECTION_STRING"),
		ColumnsTable:    valueOr(getenv("COLUMNS_TABLE"), "Columns"),
		TasksTable:      valueOr(getenv("TASKS_TABLE"), "Tasks"),
		BoardID:         valueOr(getenv("BOARD_ID"), "default"),
		SQLitePath:      getenv("SQLITE_PATH"),
		RedisConn:       getenv("REDIS_CONNECTION_STRING"),
		ChangesQueue:    getenv("CHANGES_QUEUE"),
		Auth0Domain:     getenv("AUTH0_DOMAIN"),
		Auth0Audience:   getenv("AUTH0_AUDIENCE"),
		LocalAuthMode:   strings.ToLower(getenv("LOCAL_AUTH_MODE")),
		LocalAuthSecret: getenv("LOCAL_AUTH_SHARED_SECRET"),
	}
	if dbg, err := strconv.ParseBool(getenv("DEBUG")); err == nil {
		cfg.Debug = dbg
	}

	var err error
	if cfg.CacheTTL, err = durationEnv(getenv, "CACHE_TTL", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.DeduperTTL, err = durationEnv(getenv, "DEDUPER_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.ChangeHandoff, err = durationEnv(getenv, "CHANGE_HANDOFF_TIMEOUT", 50*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.JWKSCacheTTL, err = durationEnv(getenv, "JWKS_CACHE_TTL", 15*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.ChangeWorkers, err = intEnv(getenv, "CHANGE_WORKERS", 4); err != nil {
		return Config{}, err
	}
	if cfg.ChangeBuffer, err = intEnv(getenv, "CHANGE_BUFFER", 64); err != nil {
		return Config{}, err
	}

	if cfg.StorageDriver == "" {
		switch {
		case cfg.ConnStr != "":
			cfg.StorageDriver = driverTables
		case cfg.SQLitePath != "":
			cfg.StorageDriver = driverSQLite
		default:
			cfg.StorageDriver = driverMemory
		}
	}
	switch cfg.StorageDriver {
	case driverTables:
		if cfg.ConnStr == "" {
			return Config{}, fmt.Errorf("STORAGE_CONNECTION_STRING is required for STORAGE_DRIVER=%s", driverTables)
		}
	case driverSQLite:
		if cfg.SQLitePath == "" {
			return Config{}, fmt.Errorf("SQLITE_PATH is required for STORAGE_DRIVER=%s", driverSQLite)
		}
	case driverMemory:
	default:
		return Config{}, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	if cfg.ChangesQueue != "" && cfg.ConnStr == "" {
		return Config{}, fmt.Errorf("CHANGES_QUEUE requires STORAGE_CONNECTION_STRING")
	}
	if cfg.Auth0Domain != "" && cfg.Auth0Audience == "" && cfg.LocalAuthMode == "" {
		return Config{}, fmt.Errorf("AUTH0_AUDIENCE is required when AUTH0_DOMAIN is set")
	}
	return cfg, nil
}

// AuthEnabled reports whether bearer tokens are checked.
func (c Config) AuthEnabled() bool {
	return c.LocalAuthMode != "" || c.Auth0Domain != ""
}

// redisOptions accepts a redis:// URL or the "host:port,password=..,ssl=true"
// form used by Azure Cache for Redis.
func redisOptions(conn string) *redis.Options {
	if opts, err := redis.ParseURL(conn); err == nil {
		return opts
	}
	parts := strings.Split(conn, ",")
	opts := &redis.Options{Addr: strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(kv[0])) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.EqualFold(kv[1], "true") {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func durationEnv(getenv func(string) string, name string, def time.Duration) (time.Duration, error) {
	v := getenv(name)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be greater than zero", name)
	}
	return d, nil
}

func intEnv(getenv func(string) string, name string, def int) (int, error) {
	v := getenv(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", name)
	}
	return n, nil
}
