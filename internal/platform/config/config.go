package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Log       LogConfig       `koanf:"log"`
	Auth      AuthConfig      `koanf:"auth"`
	Audit     AuditConfig     `koanf:"audit"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Redis     RedisConfig     `koanf:"redis"`
	NATS      NATSConfig      `koanf:"nats"`
	Stream    StreamConfig    `koanf:"stream"`
}

type AuthConfig struct {
	// DevMode accepts an X-User-Email header in place of a bearer token.
	DevMode bool      `koanf:"devmode"`
	JWT     JWTConfig `koanf:"jwt"`
}

type JWTConfig struct {
	SigningKey         string `koanf:"signingkey"`
	Issuer             string `koanf:"issuer"`
	ExpiryHours        int    `koanf:"expiryhours"`
	RefreshExpiryHours int    `koanf:"refreshexpiryhours"`
}

type ServerConfig struct {
	Host        string   `koanf:"host"`
	Port        int      `koanf:"port"`
	CORSOrigins []string `koanf:"corsorigins"`
}

type DatabaseConfig struct {
	URL            string `koanf:"url"`
	MigrationsPath string `koanf:"migrationspath"`
	MaxConns       int    `koanf:"maxconns"`
	ConnectRetries int    `koanf:"connectretries"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type AuditConfig struct {
	BufferSize      int `koanf:"buffersize"`
	BatchSize       int `koanf:"batchsize"`
	FlushIntervalMS int `koanf:"flushintervalms"`
}

type RateLimitConfig struct {
	Enabled    bool `koanf:"enabled"`
	Limit      int  `koanf:"limit"`
	WindowSecs int  `koanf:"windowsecs"`
	// TrustProxy keys clients by X-Forwarded-For / X-Real-IP. Enable only
	// behind a proxy that overwrites those headers.
	TrustProxy bool `koanf:"trustproxy"`
}

type RedisConfig struct {
	URL string `koanf:"url"`
}

type NATSConfig struct {
	URL    string `koanf:"url"`
	Prefix string `koanf:"prefix"`
}

type StreamConfig struct {
	BufferSize int `koanf:"buffersize"`
}

func Load(configPaths ...string) (*Config, error) {
	k := koanf.New(".")

	// .env is a convenience for local runs; real deployments set the environment.
	_ = godotenv.Load()

	// Defaults
	_ = k.Load(confmap.Provider(map[string]any{
		"server.port":                 8080,
		"server.host":                 "0.0.0.0",
		"server.corsorigins":          []string{"http://localhost:3001"},
		"database.maxconns":           25,
		"database.connectretries":     5,
		"database.migrationspath":     "migrations",
		"log.level":                   "info",
		"log.format":                  "json",
		"auth.devmode":                false,
		"auth.jwt.issuer":             "huddle",
		"auth.jwt.expiryhours":        24,
		"auth.jwt.refreshexpiryhours": 168,
		"audit.buffersize":            4096,
		"audit.batchsize":             100,
		"audit.flushintervalms":       500,
		"ratelimit.enabled":           true,
		"ratelimit.limit":             10,
		"ratelimit.windowsecs":        60,
		"ratelimit.trustproxy":        false,
		"nats.prefix":                 "huddle",
		"stream.buffersize":           32,
	}, "."), nil)

	// YAML file (optional)
	for _, path := range configPaths {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			// Config file is optional, skip if not found
			continue
		}
	}

	// Environment variables override everything
	// HUDDLE_SERVER_PORT -> server.port
	_ = k.Load(env.Provider("HUDDLE_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "HUDDLE_")),
			"_", ".",
		)
	}), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
