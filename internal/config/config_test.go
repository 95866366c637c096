package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/jacentio/syllabus/store"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"SYLLABUS_ENVIRONMENT", "SYLLABUS_REGION", "AWS_REGION", "SYLLABUS_DYNAMODB_ENDPOINT",
		"SYLLABUS_PROFILE", "AWS_PROFILE", "SYLLABUS_TABLE_PREFIX", "SYLLABUS_FALLBACK_POLICY",
		"SYLLABUS_DISABLE_SCAN", "SYLLABUS_PAGE_SIZE", "SYLLABUS_MAX_PAGE_SIZE", "SYLLABUS_OFFLINE",
		"SYLLABUS_SCHEMA_FILE", "SYLLABUS_SEED_FILE", "SYLLABUS_LOG_LEVEL", "SYLLABUS_METRICS_NAMESPACE",
	} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "syllabus.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	sc, err := cfg.StoreConfig()
	require.NoError(t, err)
	assert.Equal(t, store.DefaultConfig(), sc)
}

func TestLoad_Env(t *testing.T) {
	clearEnv(t)
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("SYLLABUS_DYNAMODB_ENDPOINT", "http://localhost:8000")
	t.Setenv("SYLLABUS_TABLE_PREFIX", "dev_")
	t.Setenv("SYLLABUS_FALLBACK_POLICY", "any-transport-error")
	t.Setenv("SYLLABUS_DISABLE_SCAN", "yes")
	t.Setenv("SYLLABUS_PAGE_SIZE", "25")
	t.Setenv("SYLLABUS_OFFLINE", "1")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.Region)
	assert.True(t, cfg.Offline)

	opts := cfg.ClientOptions()
	assert.Equal(t, "http://localhost:8000", opts.Endpoint)

	sc, err := cfg.StoreConfig()
	require.NoError(t, err)
	assert.Equal(t, "dev_", sc.TablePrefix)
	assert.Equal(t, store.FallbackOnAnyTransportError, sc.FallbackPolicy)
	assert.True(t, sc.DisableScan)
	assert.Equal(t, int32(25), sc.DefaultPageSize)
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
environment: staging
region: us-east-1
tablePrefix: staging_
fallbackPolicy: never
logLevel: warn
`)
	t.Setenv("SYLLABUS_TABLE_PREFIX", "override_")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, "override_", cfg.TablePrefix)
	assert.Equal(t, "warn", cfg.LogLevel)

	sc, err := cfg.StoreConfig()
	require.NoError(t, err)
	assert.Equal(t, store.FallbackNever, sc.FallbackPolicy)
}

func TestLoad_EmptyFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeFile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{name: "unknown field", file: "colour: red\n"},
		{name: "bad policy", env: map[string]string{"SYLLABUS_FALLBACK_POLICY": "sometimes"}},
		{name: "bad level", env: map[string]string{"SYLLABUS_LOG_LEVEL": "loud"}},
		{name: "bad environment", env: map[string]string{"SYLLABUS_ENVIRONMENT": "prod"}},
		{name: "bad endpoint", env: map[string]string{"SYLLABUS_DYNAMODB_ENDPOINT": "not a url"}},
		{name: "page over max", env: map[string]string{"SYLLABUS_PAGE_SIZE": "600"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeFile(t, tt.file)
			}
			_, err := Load(path)
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("SYLLABUS_TEST_INT", "x")
	if got := getEnvInt("SYLLABUS_TEST_INT", 7); got != 7 {
		t.Errorf("expected fallback 7 for unparsable int, got %d", got)
	}
	t.Setenv("SYLLABUS_TEST_BOOL", "no")
	if getEnvBool("SYLLABUS_TEST_BOOL", true) {
		t.Errorf("expected false for %q", "no")
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("warn", "production")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	logger, err = NewLogger("debug", "development")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	_, err = NewLogger("loud", "development")
	assert.Error(t, err)
}
