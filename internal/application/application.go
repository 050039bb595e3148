package application

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/psds-microservice/support-engine/internal/config"
	"github.com/psds-microservice/support-engine/internal/database"
	"github.com/psds-microservice/support-engine/internal/handler"
	"github.com/psds-microservice/support-engine/internal/kafka"
	"github.com/psds-microservice/support-engine/internal/repository"
	"github.com/psds-microservice/support-engine/internal/router"
	"github.com/psds-microservice/support-engine/internal/service"
	"github.com/psds-microservice/support-engine/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// API — приложение режима api: HTTP-поверхность ядра поддержки.
type API struct {
	cfg      *config.Config
	httpSrv  *http.Server
	producer *kafka.Producer
	logger   *logrus.Logger
}

// NewAPI собирает зависимости: миграции, БД, хранилище выбора связанных
// обращений (Redis либо память), продюсер событий и слой сервисов.
func NewAPI(cfg *config.Config) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger := newLogger(cfg)

	if err := database.MigrateUp(cfg.DatabaseURL()); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	store := repository.NewStore(db)

	var choices session.ChoiceStore
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		choices = session.NewRedisStore(client, cfg.IssueChoiceTTL)
		logger.WithField("addr", cfg.RedisAddr).Info("issue-choice store: redis")
	} else {
		choices = session.NewMemoryStore(cfg.IssueChoiceTTL)
		logger.Info("issue-choice store: in-memory (REDIS_ADDR not set)")
	}

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicTicket, logger)

	guard := service.NewSpamGuard(store, cfg.SpamThreshold)
	eligibility := service.NewEligibilityResolver(store)
	dispatcher := service.NewDispatcher(store, guard, eligibility, choices, producer, logger)
	arbiter := service.NewClaimArbiter(store, eligibility, producer, logger)
	lifecycle := service.NewTicketLifecycle(store, producer, logger, cfg.CommissionBase)
	agents := service.NewAgentService(store, producer, logger)
	reports := service.NewReportService(store, cfg.StaleAfter)

	support := handler.NewSupportHandler(cfg, dispatcher, arbiter, lifecycle, agents, reports, logger)

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.New(support),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &API{
		cfg:      cfg,
		httpSrv:  httpSrv,
		producer: producer,
		logger:   logger,
	}, nil
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}
	if cfg.AppEnv == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

// Run запускает HTTP-сервер и блокируется до отмены ctx.
func (a *API) Run(ctx context.Context) error {
	host := a.cfg.AppHost
	if host == "0.0.0.0" {
		host = "localhost"
	}
	base := "http://" + host + ":" + a.cfg.HTTPPort
	a.logger.Infof("HTTP server listening on %s", a.httpSrv.Addr)
	a.logger.Infof("  Swagger UI:    %s/swagger", base)
	a.logger.Infof("  Swagger spec:  %s/swagger/openapi.json", base)
	a.logger.Infof("  Health:        %s/health", base)
	a.logger.Infof("  Ready:         %s/ready", base)
	a.logger.Infof("  API v1:        %s/api/v1/", base)

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.WithError(err).Error("http server")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := a.producer.Close(); err != nil {
		a.logger.WithError(err).Warn("kafka producer close")
	}
	return nil
}
