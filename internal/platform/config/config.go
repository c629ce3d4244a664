// Package config builds runtime configuration from environment variables
// plus a YAML source catalog describing the upstream registries. Env keeps
// main lean; the catalog lives in a file because per-source endpoints and
// quirks change more often than deployment wiring.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"facade/internal/domain"
)

// Server captures process-level configuration.
type Server struct {
	Addr            string
	LogLevel        string
	AdminJWTKey     string
	CatalogPath     string
	SnapshotTTL     time.Duration
	StaleRevalidate bool
	RefreshWorkers  int
	// VerifyInterval schedules the identity re-verification sweep; zero
	// disables it. VerifySample bounds how many cached identities one
	// sweep re-checks against the registry.
	VerifyInterval time.Duration
	VerifySample   int
	// DemoMode gates synthetic fixture data. Never derived from address
	// content; real buildings must never trip demo behavior.
	DemoMode bool

	Redis    Redis
	Postgres Postgres
	Kafka    Kafka
}

// Redis configures the snapshot store. Empty URL means the in-memory store.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Postgres configures the identity store. Empty DSN means in-memory.
type Postgres struct {
	DSN string
}

// Kafka configures the audit event producer. Empty brokers disable it.
type Kafka struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:            envOr("FACADE_ADDR", ":8080"),
		LogLevel:        envOr("FACADE_LOG_LEVEL", "info"),
		AdminJWTKey:     envOr("FACADE_ADMIN_JWT_KEY", ""),
		CatalogPath:     envOr("FACADE_SOURCE_CATALOG", "config/sources.yaml"),
		SnapshotTTL:     envDuration("FACADE_SNAPSHOT_TTL", 30*time.Minute),
		StaleRevalidate: os.Getenv("FACADE_STALE_REVALIDATE") == "true",
		RefreshWorkers:  envInt("FACADE_REFRESH_WORKERS", 4),
		VerifyInterval:  envDuration("FACADE_VERIFY_INTERVAL", 24*time.Hour),
		VerifySample:    envInt("FACADE_VERIFY_SAMPLE", 100),
		DemoMode:        os.Getenv("FACADE_DEMO_MODE") == "true",
		Redis: Redis{
			URL:          os.Getenv("FACADE_REDIS_URL"),
			PoolSize:     envInt("FACADE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("FACADE_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("FACADE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("FACADE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("FACADE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: Postgres{
			DSN: os.Getenv("FACADE_POSTGRES_DSN"),
		},
	}
	if brokers := os.Getenv("FACADE_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka = Kafka{
			Brokers: splitComma(brokers),
			Topic:   envOr("FACADE_KAFKA_TOPIC", "facade.compliance.events"),
		}
	}
	return cfg
}

// SourceCatalog describes the upstream registries an aggregation pass
// queries, keyed by source system.
type SourceCatalog struct {
	Sources map[domain.SourceSystem]SourceConfig `yaml:"sources"`
	// ZIPBoroughs backs borough inference when an address carries no
	// explicit borough token.
	ZIPBoroughs map[string]domain.Borough `yaml:"zipBoroughs"`
}

// Duration wraps time.Duration so "10s"-style values parse from YAML.
type Duration time.Duration

// UnmarshalYAML accepts time.ParseDuration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// SourceConfig holds one registry's endpoint and fetch bounds.
type SourceConfig struct {
	Endpoint string   `yaml:"endpoint"`
	PageSize int      `yaml:"pageSize"`
	MaxRows  int      `yaml:"maxRows"`
	Timeout  Duration `yaml:"timeout"`
}

// LoadCatalog reads and validates the YAML source catalog.
func LoadCatalog(path string) (SourceCatalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SourceCatalog{}, fmt.Errorf("read source catalog: %w", err)
	}
	var cat SourceCatalog
	if err := yaml.Unmarshal(raw, &cat); err != nil {
		return SourceCatalog{}, fmt.Errorf("parse source catalog: %w", err)
	}
	for _, sys := range domain.SourceSystems {
		sc, ok := cat.Sources[sys]
		if !ok {
			return SourceCatalog{}, fmt.Errorf("source catalog: missing %s", sys)
		}
		if sc.Endpoint == "" {
			return SourceCatalog{}, fmt.Errorf("source catalog: %s has no endpoint", sys)
		}
	}
	return cat.withDefaults(), nil
}

func (c SourceCatalog) withDefaults() SourceCatalog {
	for sys, sc := range c.Sources {
		if sc.PageSize <= 0 {
			sc.PageSize = 200
		}
		if sc.MaxRows <= 0 {
			sc.MaxRows = 1000
		}
		if sc.Timeout <= 0 {
			sc.Timeout = Duration(10 * time.Second)
		}
		c.Sources[sys] = sc
	}
	return c
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitComma(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
