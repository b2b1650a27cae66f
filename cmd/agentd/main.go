package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/LaithAlz/me-agent/internal/agent"
	"github.com/LaithAlz/me-agent/internal/authority"
	"github.com/LaithAlz/me-agent/internal/catalog"
	"github.com/LaithAlz/me-agent/internal/infra"
	"github.com/LaithAlz/me-agent/internal/infra/auth"
	"github.com/LaithAlz/me-agent/internal/reasoner"
	memrepo "github.com/LaithAlz/me-agent/internal/repository/memory"
	"github.com/LaithAlz/me-agent/internal/repository/postgres"
	"github.com/LaithAlz/me-agent/internal/server"
	"github.com/LaithAlz/me-agent/internal/server/handler"
	"github.com/LaithAlz/me-agent/internal/sessionlog"
	"github.com/LaithAlz/me-agent/internal/store"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	// Контекст для управления жизненным циклом фоновых горутин
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Хранилища: Postgres или process-local (demo-режим без БД)
	var (
		policyStore  store.PolicyStore
		auditLog     store.AuditLog
		memoryStore  store.MemoryStore
		sessionStore store.SessionStore
		metaStore    store.MetaStore
	)
	if cfg.Database.URL != "" {
		pool, err := postgres.NewPool(appCtx, cfg.Database)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pool.Close()

		policyStore = postgres.NewPolicyRepo(pool)
		auditLog = postgres.NewAuditRepo(pool)
		memoryStore = postgres.NewMemoryRepo(pool)
		sessionStore = postgres.NewSessionRepo(pool)
		metaStore = postgres.NewMetaRepo(pool)
		logger.Info("storage: postgres")
	} else {
		policyStore = memrepo.NewPolicyStore()
		auditLog = memrepo.NewAuditLog()
		memoryStore = memrepo.NewMemoryStore()
		sessionStore = memrepo.NewSessionStore()
		metaStore = memrepo.NewMetaStore()
		logger.Warn("storage: in-memory (database.url is empty, data will not survive restart)")
	}

	// 2. Redis для инвалидации кэша политик (опционален)
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
	}

	// 3. Метрики
	reg := prometheus.DefaultRegisterer
	metrics := infra.NewMetrics(reg)

	// 4. Authority: кэш политик + движок решений
	policyCache := authority.NewPolicyCache(policyStore, rdb, logger)
	go policyCache.StartListener(appCtx)
	engine := authority.NewEngine(policyCache, auditLog, metrics, logger)

	// 5. Reasoner: OpenAI-совместимый клиент за лимитером и предохранителем
	rsn := reasoner.NewReliabilityWrapper(reasoner.NewOpenAIClient(cfg.Reasoner, logger), cfg.Reasoner)

	// 6. Фоновая запись сессий
	recorder := sessionlog.NewRecorder(sessionStore, cfg.Engine, metrics, logger)
	recorder.Start()

	// 7. Оркестратор рекомендаций
	cat := catalog.New()
	orc := agent.NewOrchestrator(
		memoryStore, sessionStore, metaStore,
		rsn, recorder, cat, policyCache,
		cfg.Engine, metrics, logger,
	)

	// 8. HTTP-поверхность
	sessions := auth.NewSessionManager(cfg.Auth, logger)
	srvHandler := server.New(
		logger, metrics, sessions,
		handler.NewAuthHandler(sessions, logger),
		handler.NewPolicyHandler(policyCache, logger),
		handler.NewAuthorityHandler(engine, policyCache, logger),
		handler.NewAuditHandler(auditLog, policyCache, logger),
		handler.NewAgentHandler(orc, logger),
		handler.NewShopifyHandler(cat),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      srvHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 9. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("me-agent backend started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-stop
	logger.Info("me-agent backend stopping...")

	// Даем 5 секунд на завершение запросов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	// Останавливаем фоновые горутины и дописываем буфер сессий
	cancel()
	recorder.Stop()

	logger.Info("me-agent backend exited properly")
}
