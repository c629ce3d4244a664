package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facade/internal/domain"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadCatalog(t *testing.T) {
	path := writeCatalog(t, `
sources:
  HOUSING:
    endpoint: https://example.test/housing.json
    pageSize: 100
    maxRows: 500
    timeout: 5s
  PERMITS:
    endpoint: https://example.test/permits.json
  SANITATION:
    endpoint: https://example.test/sanitation.json
    timeout: 15s
zipBoroughs:
  "10014": MANHATTAN
  "11201": BROOKLYN
`)

	cat, err := LoadCatalog(path)
	require.NoError(t, err)

	housing := cat.Sources[domain.SourceHousing]
	assert.Equal(t, "https://example.test/housing.json", housing.Endpoint)
	assert.Equal(t, 100, housing.PageSize)
	assert.Equal(t, 500, housing.MaxRows)
	assert.Equal(t, Duration(5*time.Second), housing.Timeout)

	// Unset bounds fall back to defaults.
	permits := cat.Sources[domain.SourcePermits]
	assert.Equal(t, 200, permits.PageSize)
	assert.Equal(t, 1000, permits.MaxRows)
	assert.Equal(t, Duration(10*time.Second), permits.Timeout)

	assert.Equal(t, domain.BoroughManhattan, cat.ZIPBoroughs["10014"])
	assert.Equal(t, domain.BoroughBrooklyn, cat.ZIPBoroughs["11201"])
}

func TestLoadCatalogMissingSource(t *testing.T) {
	path := writeCatalog(t, `
sources:
  HOUSING:
    endpoint: https://example.test/housing.json
`)
	_, err := LoadCatalog(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PERMITS")
}

func TestLoadCatalogMissingEndpoint(t *testing.T) {
	path := writeCatalog(t, `
sources:
  HOUSING:
    endpoint: https://example.test/housing.json
  PERMITS:
    endpoint: ""
  SANITATION:
    endpoint: https://example.test/sanitation.json
`)
	_, err := LoadCatalog(path)
	require.Error(t, err)
}

func TestLoadCatalogBadDuration(t *testing.T) {
	path := writeCatalog(t, `
sources:
  HOUSING:
    endpoint: https://example.test/housing.json
    timeout: soon
  PERMITS:
    endpoint: https://example.test/permits.json
  SANITATION:
    endpoint: https://example.test/sanitation.json
`)
	_, err := LoadCatalog(path)
	require.Error(t, err)
}

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 30*time.Minute, cfg.SnapshotTTL)
	assert.Equal(t, 4, cfg.RefreshWorkers)
	assert.Equal(t, 24*time.Hour, cfg.VerifyInterval)
	assert.Equal(t, 100, cfg.VerifySample)
	assert.False(t, cfg.DemoMode)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("FACADE_ADDR", ":9090")
	t.Setenv("FACADE_SNAPSHOT_TTL", "5m")
	t.Setenv("FACADE_REFRESH_WORKERS", "8")
	t.Setenv("FACADE_KAFKA_BROKERS", "broker-1:9092, broker-2:9092")

	cfg := FromEnv()
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 5*time.Minute, cfg.SnapshotTTL)
	assert.Equal(t, 8, cfg.RefreshWorkers)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "facade.compliance.events", cfg.Kafka.Topic)
}
