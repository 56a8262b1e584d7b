package config

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
)

// setEnvVars устанавливает переменные окружения для теста и возвращает
// функцию очистки. Всегда вызывать defer cleanup().
func setEnvVars(t *testing.T, vars map[string]string) func() {
	t.Helper()

	// Сохраняем оригинальные значения
	originals := make(map[string]string)
	origSet := make(map[string]bool)
	for k := range vars {
		if v, ok := os.LookupEnv(k); ok {
			originals[k] = v
			origSet[k] = true
		}
	}

	// Устанавливаем новые
	for k, v := range vars {
		os.Setenv(k, v)
	}

	return func() {
		for k := range vars {
			if origSet[k] {
				os.Setenv(k, originals[k])
			} else {
				os.Unsetenv(k)
			}
		}
	}
}

// clearAllMPEnvVars очищает все переменные окружения MP_* для чистого теста.
func clearAllMPEnvVars(t *testing.T) func() {
	t.Helper()
	keys := []string{
		"MP_PORT", "MP_LOG_LEVEL", "MP_LOG_FORMAT",
		"MP_HTTP_READ_TIMEOUT", "MP_HTTP_WRITE_TIMEOUT", "MP_HTTP_IDLE_TIMEOUT",
		"MP_SHUTDOWN_TIMEOUT",
		"MP_DB_HOST", "MP_DB_PORT", "MP_DB_NAME", "MP_DB_USER",
		"MP_DB_PASSWORD", "MP_DB_SSL_MODE",
		"MP_UPLOAD_DIR",
		"MP_JWT_JWKS_URL", "MP_JWT_LEEWAY", "MP_JWKS_REFRESH_INTERVAL",
		"MP_CA_CERT_PATH", "MP_TLS_SKIP_VERIFY",
		"MP_CACHE_SIZE", "MP_CACHE_TTL",
		"MP_DEPHEALTH_GROUP", "MP_DEPHEALTH_CHECK_INTERVAL", "MP_DEPHEALTH_ISENTRY",
	}
	originals := make(map[string]string)
	origSet := make(map[string]bool)
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			originals[k] = v
			origSet[k] = true
		}
		os.Unsetenv(k)
	}
	return func() {
		for _, k := range keys {
			if origSet[k] {
				os.Setenv(k, originals[k])
			} else {
				os.Unsetenv(k)
			}
		}
	}
}

// requiredEnvVars возвращает минимальный набор обязательных переменных.
func requiredEnvVars() map[string]string {
	return map[string]string{
		"MP_DB_HOST":      "localhost",
		"MP_DB_NAME":      "manupedia",
		"MP_DB_USER":      "manupedia",
		"MP_DB_PASSWORD":  "secret",
		"MP_UPLOAD_DIR":   "/tmp/uploads",
		"MP_JWT_JWKS_URL": "https://idp.example.com/.well-known/jwks.json",
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	cleanup := clearAllMPEnvVars(t)
	defer cleanup()

	cleanupVars := setEnvVars(t, requiredEnvVars())
	defer cleanupVars()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	// Проверяем значения по умолчанию
	if cfg.Port != 8040 {
		t.Errorf("Port: ожидалось 8040, получено %d", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel: ожидалось INFO, получено %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat: ожидалось 'json', получено %q", cfg.LogFormat)
	}
	if cfg.HTTPReadTimeout != 30*time.Second {
		t.Errorf("HTTPReadTimeout: ожидалось 30s, получено %v", cfg.HTTPReadTimeout)
	}
	if cfg.HTTPWriteTimeout != 60*time.Second {
		t.Errorf("HTTPWriteTimeout: ожидалось 60s, получено %v", cfg.HTTPWriteTimeout)
	}
	if cfg.HTTPIdleTimeout != 120*time.Second {
		t.Errorf("HTTPIdleTimeout: ожидалось 120s, получено %v", cfg.HTTPIdleTimeout)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout: ожидалось 5s, получено %v", cfg.ShutdownTimeout)
	}
	if cfg.DBPort != 5432 {
		t.Errorf("DBPort: ожидалось 5432, получено %d", cfg.DBPort)
	}
	if cfg.DBSSLMode != "disable" {
		t.Errorf("DBSSLMode: ожидалось 'disable', получено %q", cfg.DBSSLMode)
	}
	if cfg.JWTLeeway != 30*time.Second {
		t.Errorf("JWTLeeway: ожидалось 30s, получено %v", cfg.JWTLeeway)
	}
	if cfg.JWKSRefreshInterval != 5*time.Minute {
		t.Errorf("JWKSRefreshInterval: ожидалось 5m, получено %v", cfg.JWKSRefreshInterval)
	}
	if cfg.CacheSize != 1000 {
		t.Errorf("CacheSize: ожидалось 1000, получено %d", cfg.CacheSize)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("CacheTTL: ожидалось 5m, получено %v", cfg.CacheTTL)
	}
	if cfg.DephealthGroup != "manupedia" {
		t.Errorf("DephealthGroup: ожидалось 'manupedia', получено %q", cfg.DephealthGroup)
	}
	if cfg.DephealthCheckInterval != 30*time.Second {
		t.Errorf("DephealthCheckInterval: ожидалось 30s, получено %v", cfg.DephealthCheckInterval)
	}
	if !cfg.DephealthIsEntry {
		t.Error("DephealthIsEntry: ожидалось true")
	}
}

func TestLoad_AllCustomValues(t *testing.T) {
	cleanup := clearAllMPEnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["MP_PORT"] = "8045"
	vars["MP_LOG_LEVEL"] = "debug"
	vars["MP_LOG_FORMAT"] = "text"
	vars["MP_DB_PORT"] = "15432"
	vars["MP_DB_SSL_MODE"] = "require"
	vars["MP_JWT_LEEWAY"] = "10s"
	vars["MP_JWKS_REFRESH_INTERVAL"] = "1m"
	vars["MP_CACHE_SIZE"] = "50"
	vars["MP_CACHE_TTL"] = "30s"
	vars["MP_DEPHEALTH_GROUP"] = "staging"
	vars["MP_DEPHEALTH_ISENTRY"] = "false"

	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if cfg.Port != 8045 {
		t.Errorf("Port: ожидалось 8045, получено %d", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel: ожидалось DEBUG, получено %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat: ожидалось 'text', получено %q", cfg.LogFormat)
	}
	if cfg.DBPort != 15432 {
		t.Errorf("DBPort: ожидалось 15432, получено %d", cfg.DBPort)
	}
	if cfg.DBSSLMode != "require" {
		t.Errorf("DBSSLMode: ожидалось 'require', получено %q", cfg.DBSSLMode)
	}
	if cfg.JWTLeeway != 10*time.Second {
		t.Errorf("JWTLeeway: ожидалось 10s, получено %v", cfg.JWTLeeway)
	}
	if cfg.CacheSize != 50 {
		t.Errorf("CacheSize: ожидалось 50, получено %d", cfg.CacheSize)
	}
	if cfg.DephealthIsEntry {
		t.Error("DephealthIsEntry: ожидалось false")
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	required := []string{
		"MP_DB_HOST", "MP_DB_NAME", "MP_DB_USER", "MP_DB_PASSWORD",
		"MP_UPLOAD_DIR", "MP_JWT_JWKS_URL",
	}

	for _, missing := range required {
		t.Run(missing, func(t *testing.T) {
			cleanup := clearAllMPEnvVars(t)
			defer cleanup()

			vars := requiredEnvVars()
			delete(vars, missing)
			cleanupVars := setEnvVars(t, vars)
			defer cleanupVars()

			_, err := Load()
			if err == nil {
				t.Fatalf("ожидалась ошибка при отсутствии %s", missing)
			}
			if !strings.Contains(err.Error(), missing) {
				t.Errorf("ошибка должна упоминать %s: %v", missing, err)
			}
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"некорректный порт", "MP_PORT", "not-a-number"},
		{"некорректный уровень логирования", "MP_LOG_LEVEL", "verbose"},
		{"некорректный формат логов", "MP_LOG_FORMAT", "xml"},
		{"некорректный SSL режим", "MP_DB_SSL_MODE", "maybe"},
		{"некорректная длительность", "MP_CACHE_TTL", "five minutes"},
		{"нулевой размер кэша", "MP_CACHE_SIZE", "0"},
		{"некорректное булево", "MP_TLS_SKIP_VERIFY", "yes-please"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := clearAllMPEnvVars(t)
			defer cleanup()

			vars := requiredEnvVars()
			vars[tt.key] = tt.val
			cleanupVars := setEnvVars(t, vars)
			defer cleanupVars()

			if _, err := Load(); err == nil {
				t.Fatalf("ожидалась ошибка для %s=%q", tt.key, tt.val)
			}
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := &Config{
		DBHost: "db.local", DBPort: 5433, DBName: "manupedia",
		DBUser: "mp", DBPassword: "pw", DBSSLMode: "disable",
	}

	dsn := cfg.DatabaseDSN()
	want := "host=db.local port=5433 dbname=manupedia user=mp password=pw sslmode=disable"
	if dsn != want {
		t.Errorf("DatabaseDSN() = %q, хотели %q", dsn, want)
	}

	url := cfg.DatabaseURL()
	wantURL := "postgres://mp:pw@db.local:5433/manupedia?sslmode=disable"
	if url != wantURL {
		t.Errorf("DatabaseURL() = %q, хотели %q", url, wantURL)
	}
}
