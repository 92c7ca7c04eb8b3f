// Пакет config — загрузка и валидация конфигурации сервиса напоминаний
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// ServiceName — имя сервиса в логах, health-ответах и topologymetrics.
const ServiceName = "expiry-reminder"

// Config содержит все параметры конфигурации сервиса.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Расписание ---

	// Часовой пояс ежедневного запуска (IANA, например Asia/Jakarta)
	ScheduleTimezone string
	// Загруженная локация ScheduleTimezone
	ScheduleLocation *time.Location
	// Час и минута ежедневного запуска
	ScheduleHour   int
	ScheduleMinute int
	// Запускать таймер при старте
	SchedulerEnabled bool
	// Количество документов, обрабатываемых параллельно в одном прогоне
	ScanConcurrency int
	// Таймаут обработки одного документа
	ScanDocumentTimeout time.Duration

	// --- Сообщения ---

	// Язык сообщений по умолчанию (en, id)
	MessageLocale string

	// --- SMTP ---

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	// Адрес отправителя (по умолчанию SMTPUsername)
	SMTPFrom string
	// Политика TLS: mandatory, opportunistic, none
	SMTPTLSPolicy string
	SMTPTimeout   time.Duration

	// --- Кэш журнала ---

	LedgerCacheSize int
	LedgerCacheTTL  time.Duration

	// --- Redis (опционально, распределённая блокировка прогона) ---

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// Время жизни блокировки прогона
	LeaseTTL time.Duration

	// --- Kafka (опционально, события об отправках) ---

	KafkaBrokers []string
	KafkaTopic   string

	// --- JWT ---

	// Включена ли проверка JWT на /api/v1/*
	AuthEnabled bool
	// Ожидаемый issuer JWT (пустой — не проверяется)
	JWTIssuer string
	// URL JWKS endpoint
	JWTJWKSURL string
	// Путь к CA-сертификату для JWKS (опционально)
	JWTCACertPath string
	// Допустимое отклонение времени при проверке JWT
	JWTLeeway time.Duration
	// Таймаут HTTP-клиента JWKS
	JWKSClientTimeout time.Duration
	// Интервал обновления JWKS-ключей
	JWKSRefreshInterval time.Duration
	// Группы IdP, дающие роль admin
	RoleAdminGroups []string
	// Группы IdP, дающие роль readonly
	RoleReadonlyGroups []string

	// --- topologymetrics ---

	DephealthGroup         string
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// RM_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("RM_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("RM_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("RM_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("RM_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("RM_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("RM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("RM_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	if cfg.DBHost, err = getEnvRequired("RM_DB_HOST"); err != nil {
		return nil, err
	}
	cfg.DBPort, err = getEnvInt("RM_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("RM_DB_PORT: %w", err)
	}
	if cfg.DBName, err = getEnvRequired("RM_DB_NAME"); err != nil {
		return nil, err
	}
	if cfg.DBUser, err = getEnvRequired("RM_DB_USER"); err != nil {
		return nil, err
	}
	if cfg.DBPassword, err = getEnvRequired("RM_DB_PASSWORD"); err != nil {
		return nil, err
	}

	cfg.DBSSLMode = getEnvDefault("RM_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("RM_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Расписание ---

	// RM_SCHEDULE_TIMEZONE — часовой пояс (по умолчанию Asia/Jakarta)
	cfg.ScheduleTimezone = getEnvDefault("RM_SCHEDULE_TIMEZONE", "Asia/Jakarta")
	cfg.ScheduleLocation, err = time.LoadLocation(cfg.ScheduleTimezone)
	if err != nil {
		return nil, fmt.Errorf("RM_SCHEDULE_TIMEZONE: неизвестный часовой пояс %q: %w", cfg.ScheduleTimezone, err)
	}

	// RM_SCHEDULE_TIME — время запуска HH:MM (по умолчанию 08:00)
	cfg.ScheduleHour, cfg.ScheduleMinute, err = parseClock(getEnvDefault("RM_SCHEDULE_TIME", "08:00"))
	if err != nil {
		return nil, fmt.Errorf("RM_SCHEDULE_TIME: %w", err)
	}

	cfg.SchedulerEnabled, err = getEnvBool("RM_SCHEDULER_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("RM_SCHEDULER_ENABLED: %w", err)
	}

	cfg.ScanConcurrency, err = getEnvInt("RM_SCAN_CONCURRENCY", 1)
	if err != nil {
		return nil, fmt.Errorf("RM_SCAN_CONCURRENCY: %w", err)
	}
	if cfg.ScanConcurrency < 1 || cfg.ScanConcurrency > 64 {
		return nil, fmt.Errorf("RM_SCAN_CONCURRENCY: значение %d вне допустимого диапазона 1-64", cfg.ScanConcurrency)
	}

	cfg.ScanDocumentTimeout, err = getEnvDuration("RM_SCAN_DOCUMENT_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RM_SCAN_DOCUMENT_TIMEOUT: %w", err)
	}

	// --- Сообщения ---

	cfg.MessageLocale = getEnvDefault("RM_MESSAGE_LOCALE", "en")
	if cfg.MessageLocale != "en" && cfg.MessageLocale != "id" {
		return nil, fmt.Errorf("RM_MESSAGE_LOCALE: недопустимое значение %q, допустимые: en, id", cfg.MessageLocale)
	}

	// --- SMTP ---

	if cfg.SMTPHost, err = getEnvRequired("RM_SMTP_HOST"); err != nil {
		return nil, err
	}
	cfg.SMTPPort, err = getEnvInt("RM_SMTP_PORT", 587)
	if err != nil {
		return nil, fmt.Errorf("RM_SMTP_PORT: %w", err)
	}
	cfg.SMTPUsername = getEnvDefault("RM_SMTP_USERNAME", "")
	cfg.SMTPPassword = getEnvDefault("RM_SMTP_PASSWORD", "")
	cfg.SMTPFrom = getEnvDefault("RM_SMTP_FROM", cfg.SMTPUsername)
	if cfg.SMTPFrom == "" {
		return nil, fmt.Errorf("RM_SMTP_FROM: адрес отправителя не задан (и RM_SMTP_USERNAME пуст)")
	}

	cfg.SMTPTLSPolicy = getEnvDefault("RM_SMTP_TLS_POLICY", "mandatory")
	switch cfg.SMTPTLSPolicy {
	case "mandatory", "opportunistic", "none":
	default:
		return nil, fmt.Errorf("RM_SMTP_TLS_POLICY: недопустимое значение %q, допустимые: mandatory, opportunistic, none", cfg.SMTPTLSPolicy)
	}

	cfg.SMTPTimeout, err = getEnvDuration("RM_SMTP_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RM_SMTP_TIMEOUT: %w", err)
	}

	// --- Кэш журнала ---

	cfg.LedgerCacheSize, err = getEnvInt("RM_LEDGER_CACHE_SIZE", 10000)
	if err != nil {
		return nil, fmt.Errorf("RM_LEDGER_CACHE_SIZE: %w", err)
	}
	if cfg.LedgerCacheSize < 0 {
		return nil, fmt.Errorf("RM_LEDGER_CACHE_SIZE: отрицательное значение %d", cfg.LedgerCacheSize)
	}
	cfg.LedgerCacheTTL, err = getEnvDuration("RM_LEDGER_CACHE_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("RM_LEDGER_CACHE_TTL: %w", err)
	}

	// --- Redis ---

	cfg.RedisAddr = getEnvDefault("RM_REDIS_ADDR", "")
	cfg.RedisPassword = getEnvDefault("RM_REDIS_PASSWORD", "")
	cfg.RedisDB, err = getEnvInt("RM_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("RM_REDIS_DB: %w", err)
	}
	cfg.LeaseTTL, err = getEnvDuration("RM_LEASE_TTL", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("RM_LEASE_TTL: %w", err)
	}

	// --- Kafka ---

	cfg.KafkaBrokers = parseCSV(getEnvDefault("RM_KAFKA_BROKERS", ""))
	cfg.KafkaTopic = getEnvDefault("RM_KAFKA_TOPIC", "reminder-dispatch-events")

	// --- JWT ---

	cfg.AuthEnabled, err = getEnvBool("RM_AUTH_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("RM_AUTH_ENABLED: %w", err)
	}
	cfg.JWTIssuer = getEnvDefault("RM_JWT_ISSUER", "")
	cfg.JWTJWKSURL = getEnvDefault("RM_JWT_JWKS_URL", "")
	if cfg.AuthEnabled && cfg.JWTJWKSURL == "" {
		return nil, fmt.Errorf("RM_JWT_JWKS_URL: обязательна при RM_AUTH_ENABLED=true")
	}
	cfg.JWTCACertPath = getEnvDefault("RM_JWT_CA_CERT_PATH", "")

	cfg.JWTLeeway, err = getEnvDuration("RM_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RM_JWT_LEEWAY: %w", err)
	}
	cfg.JWKSClientTimeout, err = getEnvDuration("RM_JWKS_CLIENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RM_JWKS_CLIENT_TIMEOUT: %w", err)
	}
	cfg.JWKSRefreshInterval, err = getEnvDuration("RM_JWKS_REFRESH_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("RM_JWKS_REFRESH_INTERVAL: %w", err)
	}

	cfg.RoleAdminGroups = parseCSV(getEnvDefault("RM_ROLE_ADMIN_GROUPS", "reminder-admins"))
	cfg.RoleReadonlyGroups = parseCSV(getEnvDefault("RM_ROLE_READONLY_GROUPS", "reminder-viewers"))

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("RM_DEPHEALTH_GROUP", "reminder")
	cfg.DephealthCheckInterval, err = getEnvDuration("RM_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("RM_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RM_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL для лейблов topologymetrics.
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.DBSSLMode,
	}
	return u.String()
}

// MigrateURL возвращает URL для golang-migrate (драйвер pgx5).
func (c *Config) MigrateURL() string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.DBSSLMode,
	}
	return u.String()
}

// CronSpec возвращает cron-выражение ежедневного запуска ("M H * * *").
func (c *Config) CronSpec() string {
	return fmt.Sprintf("%d %d * * *", c.ScheduleMinute, c.ScheduleHour)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseClock разбирает время суток в формате HH:MM.
func parseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("некорректное время %q, ожидается HH:MM", s)
	}
	return t.Hour(), t.Minute(), nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

// parseCSV разбирает строку, разделённую запятыми, на срез строк.
// Пробелы вокруг элементов убираются, пустые элементы игнорируются.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
