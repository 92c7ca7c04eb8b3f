// Точка входа сервиса напоминаний об истечении документов.
// Загружает конфигурацию, подключается к PostgreSQL, применяет миграции,
// собирает журнал отправок, нотификатор и координатор прогонов,
// запускает ежедневный планировщик, topologymetrics и HTTP-сервер
// с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	_ "time/tzdata" // часовые пояса расписания без системной tzdata

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/bigkaa/expiry-reminder/internal/api/handlers"
	"github.com/bigkaa/expiry-reminder/internal/api/middleware"
	"github.com/bigkaa/expiry-reminder/internal/api/openapi"
	"github.com/bigkaa/expiry-reminder/internal/config"
	"github.com/bigkaa/expiry-reminder/internal/database"
	"github.com/bigkaa/expiry-reminder/internal/events"
	"github.com/bigkaa/expiry-reminder/internal/i18n"
	"github.com/bigkaa/expiry-reminder/internal/lock"
	"github.com/bigkaa/expiry-reminder/internal/message"
	"github.com/bigkaa/expiry-reminder/internal/notifier"
	"github.com/bigkaa/expiry-reminder/internal/repository"
	"github.com/bigkaa/expiry-reminder/internal/server"
	"github.com/bigkaa/expiry-reminder/internal/service"
)

// scanLockKey — ключ распределённой блокировки прогона в Redis.
const scanLockKey = "expiry-reminder:scan"

func main() {
	// 0. .env (если есть) — до чтения конфигурации
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Не удалось прочитать .env", slog.String("error", err.Error()))
	}

	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Сервис напоминаний запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("timezone", cfg.ScheduleTimezone),
		slog.String("schedule", cfg.CronSpec()),
	)

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Repositories
	documentRepo := repository.NewDocumentRepository(pool)
	ledgerRepo := repository.NewDispatchRecordRepository(pool)

	// 6. Сообщения: каталоги локалей и рендерер
	bundle, err := i18n.Load(logger)
	if err != nil {
		logger.Error("Ошибка загрузки каталогов локалей", slog.String("error", err.Error()))
		os.Exit(1)
	}
	renderer := message.NewRenderer(bundle, cfg.MessageLocale)

	// 7. SMTP-нотификатор. Недоступность SMTP при старте не фатальна
	smtpNotifier := notifier.NewSMTPNotifier(notifier.SMTPConfig{
		Host:      cfg.SMTPHost,
		Port:      cfg.SMTPPort,
		Username:  cfg.SMTPUsername,
		Password:  cfg.SMTPPassword,
		From:      cfg.SMTPFrom,
		TLSPolicy: cfg.SMTPTLSPolicy,
		Timeout:   cfg.SMTPTimeout,
	}, logger)
	verifyCtx, verifyCancel := context.WithTimeout(ctx, cfg.SMTPTimeout)
	if err := smtpNotifier.Verify(verifyCtx); err != nil {
		logger.Warn("SMTP-сервер недоступен, напоминания будут записываться как FAILED",
			slog.String("host", cfg.SMTPHost),
			slog.String("error", err.Error()),
		)
	} else {
		logger.Info("SMTP-сервер доступен", slog.String("host", cfg.SMTPHost))
	}
	verifyCancel()

	// 8. Redis — распределённая блокировка прогона (опционально)
	var (
		redisClient *redis.Client
		redisLocker *lock.RedisLocker
		lease       service.DistributedLock
	)
	if cfg.RedisAddr != "" {
		redisClient = lock.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		redisLocker = lock.NewRedisLocker(redisClient, scanLockKey, cfg.LeaseTTL, logger)
		lease = redisLocker
		logger.Info("Распределённая блокировка прогона включена",
			slog.String("redis", cfg.RedisAddr),
			slog.String("lease_ttl", cfg.LeaseTTL.String()),
		)
	} else {
		logger.Info("RM_REDIS_ADDR не задан, прогоны защищены только внутри процесса")
	}

	// 9. Kafka — события об отправках (опционально)
	var (
		kafkaPublisher *events.KafkaPublisher
		publisher      service.EventPublisher
	)
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		publisher = kafkaPublisher
		logger.Info("Публикация событий в Kafka включена",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.String("topic", cfg.KafkaTopic),
		)
	}

	// 10. Services
	var ledgerCache *service.LedgerCache
	if cfg.LedgerCacheSize > 0 {
		ledgerCache = service.NewLedgerCache(cfg.LedgerCacheSize, cfg.LedgerCacheTTL)
		promauto.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "rm_ledger_cache_entries",
			Help: "Ключей (документ, контрольная точка) в кэше журнала",
		}, func() float64 { return float64(ledgerCache.Len()) })
	}
	dispatcher := service.NewDispatcher(
		ledgerRepo, ledgerCache, renderer, smtpNotifier, publisher,
		cfg.MessageLocale,
		logger,
	)
	guard := service.NewRunGuard(lease, logger)
	coordinator := service.NewCoordinator(
		documentRepo, dispatcher, guard,
		service.CoordinatorConfig{
			Location:        cfg.ScheduleLocation,
			Concurrency:     cfg.ScanConcurrency,
			DocumentTimeout: cfg.ScanDocumentTimeout,
		},
		logger,
	)
	recordsSvc := service.NewDispatchRecordService(ledgerRepo, ledgerCache, logger)
	probe := service.NewNotifierProbe(renderer, smtpNotifier, cfg.MessageLocale, logger)

	// 11. Планировщик ежедневного прогона
	scheduler, err := service.NewScheduler(coordinator, cfg.CronSpec(), cfg.ScheduleLocation, logger)
	if err != nil {
		logger.Error("Ошибка создания планировщика", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.SchedulerEnabled {
		scheduler.Start(ctx)
	} else {
		logger.Warn("Запуск по расписанию отключён (RM_SCHEDULER_ENABLED=false), доступен только ручной запуск")
	}

	// 12. topologymetrics — мониторинг зависимостей (PostgreSQL + JWKS)
	dephealthCfg := service.DephealthConfig{
		ServiceID:     config.ServiceName,
		Group:         cfg.DephealthGroup,
		PostgresURL:   cfg.DatabaseURL(),
		CheckInterval: cfg.DephealthCheckInterval,
	}
	if cfg.AuthEnabled {
		dephealthCfg.JWKSURL = cfg.JWTJWKSURL
	}
	dephealthSvc, dephealthErr := service.NewDephealthService(dephealthCfg, pgDB, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics",
			slog.String("error", startErr.Error()),
		)
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 13. Readiness checkers
	checks := []handlers.NamedChecker{
		{Name: "postgresql", Checker: database.NewReadinessChecker(pool)},
		{Name: "smtp", Checker: smtpNotifier},
		{Name: "scheduler", Checker: scheduler},
	}
	if redisLocker != nil {
		checks = append(checks, handlers.NamedChecker{Name: "redis", Checker: redisLocker})
	}
	if dephealthSvc != nil {
		checks = append(checks, handlers.NamedChecker{Name: "dependencies", Checker: dephealthSvc})
	}
	healthHandler := handlers.NewHealthHandler(checks...)

	// 14. API handler
	apiHandler := handlers.NewAPIHandler(healthHandler, scheduler, recordsSvc, probe, logger)

	validator, err := middleware.NewRequestValidator(openapi.Spec, logger)
	if err != nil {
		logger.Error("Ошибка загрузки OpenAPI-контракта", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 15. JWT middleware
	var jwtAuth *middleware.JWTAuth
	if cfg.AuthEnabled {
		jwtAuth, err = middleware.NewJWTAuth(middleware.JWTAuthConfig{
			JWKSURL:             cfg.JWTJWKSURL,
			CACertPath:          cfg.JWTCACertPath,
			Issuer:              cfg.JWTIssuer,
			AdminGroups:         cfg.RoleAdminGroups,
			ReadonlyGroups:      cfg.RoleReadonlyGroups,
			JWKSClientTimeout:   cfg.JWKSClientTimeout,
			JWKSRefreshInterval: cfg.JWKSRefreshInterval,
			Leeway:              cfg.JWTLeeway,
		}, logger)
		if err != nil {
			logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("JWT middleware инициализирован",
			slog.String("jwks_url", cfg.JWTJWKSURL),
			slog.String("issuer", cfg.JWTIssuer),
		)
	} else {
		logger.Warn("Аутентификация отключена (RM_AUTH_ENABLED=false), API доступен без токена")
	}

	// 16. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, validator, jwtAuth)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 17. Graceful shutdown фоновых задач
	logger.Info("Останавливаем фоновые задачи...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer stopCancel()
	if err := scheduler.Stop(stopCtx); err != nil {
		logger.Warn("Прогон не завершился до таймаута остановки", slog.String("error", err.Error()))
	}

	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Warn("Ошибка закрытия Kafka writer", slog.String("error", err.Error()))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Warn("Ошибка закрытия Redis-клиента", slog.String("error", err.Error()))
		}
	}

	logger.Info("Сервис напоминаний остановлен")
}
