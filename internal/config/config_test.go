package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"
)

// setEnvs устанавливает переменные окружения на время теста.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

// minimalEnvs возвращает минимальный набор обязательных переменных.
func minimalEnvs() map[string]string {
	return map[string]string{
		"RM_DB_HOST":       "localhost",
		"RM_DB_NAME":       "reminder",
		"RM_DB_USER":       "reminder",
		"RM_DB_PASSWORD":   "secret",
		"RM_SMTP_HOST":     "smtp.example.com",
		"RM_SMTP_USERNAME": "noreply@example.com",
		"RM_JWT_JWKS_URL":  "https://keycloak.example.com/realms/reminder/protocol/openid-connect/certs",
	}
}

func TestLoad_MinimalConfig(t *testing.T) {
	setEnvs(t, minimalEnvs())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, ожидается 8080", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, ожидается Info", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, ожидается json", cfg.LogFormat)
	}
	if cfg.DBPort != 5432 {
		t.Errorf("DBPort = %d, ожидается 5432", cfg.DBPort)
	}
	if cfg.ScheduleTimezone != "Asia/Jakarta" {
		t.Errorf("ScheduleTimezone = %q, ожидается Asia/Jakarta", cfg.ScheduleTimezone)
	}
	if cfg.ScheduleLocation == nil || cfg.ScheduleLocation.String() != "Asia/Jakarta" {
		t.Errorf("ScheduleLocation = %v, ожидается Asia/Jakarta", cfg.ScheduleLocation)
	}
	if cfg.ScheduleHour != 8 || cfg.ScheduleMinute != 0 {
		t.Errorf("время запуска = %02d:%02d, ожидается 08:00", cfg.ScheduleHour, cfg.ScheduleMinute)
	}
	if cfg.CronSpec() != "0 8 * * *" {
		t.Errorf("CronSpec() = %q, ожидается \"0 8 * * *\"", cfg.CronSpec())
	}
	if !cfg.SchedulerEnabled {
		t.Error("SchedulerEnabled = false, ожидается true")
	}
	if cfg.ScanConcurrency != 1 {
		t.Errorf("ScanConcurrency = %d, ожидается 1", cfg.ScanConcurrency)
	}
	if cfg.MessageLocale != "en" {
		t.Errorf("MessageLocale = %q, ожидается en", cfg.MessageLocale)
	}
	if cfg.SMTPPort != 587 {
		t.Errorf("SMTPPort = %d, ожидается 587", cfg.SMTPPort)
	}
	if cfg.SMTPFrom != "noreply@example.com" {
		t.Errorf("SMTPFrom = %q, ожидается адрес из RM_SMTP_USERNAME", cfg.SMTPFrom)
	}
	if cfg.SMTPTLSPolicy != "mandatory" {
		t.Errorf("SMTPTLSPolicy = %q, ожидается mandatory", cfg.SMTPTLSPolicy)
	}
	if cfg.LedgerCacheSize != 10000 || cfg.LedgerCacheTTL != 24*time.Hour {
		t.Errorf("кэш журнала = %d/%v, ожидается 10000/24h", cfg.LedgerCacheSize, cfg.LedgerCacheTTL)
	}
	if cfg.RedisAddr != "" || len(cfg.KafkaBrokers) != 0 {
		t.Error("Redis и Kafka по умолчанию должны быть отключены")
	}
	if cfg.KafkaTopic != "reminder-dispatch-events" {
		t.Errorf("KafkaTopic = %q", cfg.KafkaTopic)
	}
	if len(cfg.RoleAdminGroups) != 1 || cfg.RoleAdminGroups[0] != "reminder-admins" {
		t.Errorf("RoleAdminGroups = %v", cfg.RoleAdminGroups)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, ожидается 10s", cfg.ShutdownTimeout)
	}
}

func TestLoad_CustomSchedule(t *testing.T) {
	envs := minimalEnvs()
	envs["RM_SCHEDULE_TIMEZONE"] = "Europe/Moscow"
	envs["RM_SCHEDULE_TIME"] = "06:30"
	envs["RM_SCAN_CONCURRENCY"] = "4"
	envs["RM_KAFKA_BROKERS"] = "kafka-1:9092, kafka-2:9092,"
	setEnvs(t, envs)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}
	if cfg.CronSpec() != "30 6 * * *" {
		t.Errorf("CronSpec() = %q, ожидается \"30 6 * * *\"", cfg.CronSpec())
	}
	if cfg.ScheduleLocation.String() != "Europe/Moscow" {
		t.Errorf("ScheduleLocation = %v", cfg.ScheduleLocation)
	}
	if cfg.ScanConcurrency != 4 {
		t.Errorf("ScanConcurrency = %d, ожидается 4", cfg.ScanConcurrency)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "kafka-2:9092" {
		t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
}

func TestLoad_AuthDisabledWithoutJWKS(t *testing.T) {
	envs := minimalEnvs()
	delete(envs, "RM_JWT_JWKS_URL")
	envs["RM_AUTH_ENABLED"] = "false"
	setEnvs(t, envs)

	if _, err := Load(); err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(map[string]string)
		wantKey string
	}{
		{"нет RM_DB_HOST", func(e map[string]string) { delete(e, "RM_DB_HOST") }, "RM_DB_HOST"},
		{"нет RM_SMTP_HOST", func(e map[string]string) { delete(e, "RM_SMTP_HOST") }, "RM_SMTP_HOST"},
		{"нет отправителя", func(e map[string]string) { delete(e, "RM_SMTP_USERNAME") }, "RM_SMTP_FROM"},
		{"нет JWKS при включённой аутентификации", func(e map[string]string) { delete(e, "RM_JWT_JWKS_URL") }, "RM_JWT_JWKS_URL"},
		{"неизвестный часовой пояс", func(e map[string]string) { e["RM_SCHEDULE_TIMEZONE"] = "Mars/Olympus" }, "RM_SCHEDULE_TIMEZONE"},
		{"некорректное время", func(e map[string]string) { e["RM_SCHEDULE_TIME"] = "25:00" }, "RM_SCHEDULE_TIME"},
		{"некорректный язык", func(e map[string]string) { e["RM_MESSAGE_LOCALE"] = "ru" }, "RM_MESSAGE_LOCALE"},
		{"некорректная политика TLS", func(e map[string]string) { e["RM_SMTP_TLS_POLICY"] = "always" }, "RM_SMTP_TLS_POLICY"},
		{"параллелизм вне диапазона", func(e map[string]string) { e["RM_SCAN_CONCURRENCY"] = "0" }, "RM_SCAN_CONCURRENCY"},
		{"некорректный SSL", func(e map[string]string) { e["RM_DB_SSL_MODE"] = "prefer" }, "RM_DB_SSL_MODE"},
		{"некорректный формат логов", func(e map[string]string) { e["RM_LOG_FORMAT"] = "xml" }, "RM_LOG_FORMAT"},
		{"некорректная длительность", func(e map[string]string) { e["RM_LEASE_TTL"] = "10" }, "RM_LEASE_TTL"},
		{"некорректный bool", func(e map[string]string) { e["RM_SCHEDULER_ENABLED"] = "maybe" }, "RM_SCHEDULER_ENABLED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envs := minimalEnvs()
			tt.mutate(envs)
			setEnvs(t, envs)

			_, err := Load()
			if err == nil {
				t.Fatal("Load() не вернул ошибку")
			}
			if !strings.Contains(err.Error(), tt.wantKey) {
				t.Errorf("ошибка %q не упоминает %s", err.Error(), tt.wantKey)
			}
		})
	}
}

func TestDatabaseURLs(t *testing.T) {
	cfg := &Config{
		DBHost: "db", DBPort: 5432, DBName: "reminder",
		DBUser: "user", DBPassword: "p@ss", DBSSLMode: "disable",
	}

	if got := cfg.MigrateURL(); got != "pgx5://user:p%40ss@db:5432/reminder?sslmode=disable" {
		t.Errorf("MigrateURL() = %q", got)
	}
	if got := cfg.DatabaseURL(); !strings.HasPrefix(got, "postgres://user:") {
		t.Errorf("DatabaseURL() = %q", got)
	}
}

func TestParseCSV(t *testing.T) {
	got := parseCSV(" a, ,b ,")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("parseCSV() = %v, ожидается [a b]", got)
	}
	if parseCSV("") != nil {
		t.Error("parseCSV(\"\") должен вернуть nil")
	}
}
