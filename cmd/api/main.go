package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"call-assistant/internal/auth"
	"call-assistant/internal/config"
	"call-assistant/internal/notify"
	"call-assistant/internal/store"
	"call-assistant/internal/telephony"
	"call-assistant/internal/voiceagent"
	"call-assistant/pkg/logger"
	"call-assistant/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

// deps are the process-wide resources routes are built from.
type deps struct {
	cfg       config.Config
	log       *slog.Logger
	db        *sql.DB
	rdb       *redis.Client
	auth      *auth.Manager
	provider  telephony.Provider
	limiter   voiceagent.Limiter
	deduper   telephony.Deduper
	pool      *notify.Pool
	publisher notify.Publisher
	mailer    notify.Mailer
}

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := store.Migrate(rootCtx, db); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	d := deps{cfg: cfg, log: log, db: db, auth: authManager}

	// Redis is optional: without it the AI cap is per process and status
	// dedupe falls back to the DB idempotency rules.
	if cfg.RedisEnabled() {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		d.rdb = rdb
		d.limiter = voiceagent.NewRedisLimiter(rdb, cfg.VoiceAgent.MaxConcurrentAI, cfg.VoiceAgent.SessionCapWindow)
		d.deduper = telephony.NewRedisDeduper(rdb, telephony.DefaultDedupeTTL)
	} else {
		log.Warn("redis disabled, using in-process limiter")
		d.limiter = voiceagent.NewLocalLimiter(cfg.VoiceAgent.MaxConcurrentAI)
		d.deduper = telephony.NoopDeduper{}
	}

	if cfg.Twilio.Sandbox {
		log.Warn("twilio sandbox provider in use")
		d.provider = telephony.NewSandboxProvider()
	} else {
		d.provider = telephony.NewTwilioProvider(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken)
	}

	d.pool, err = notify.NewPool(cfg.Notify.PoolSize, log)
	if err != nil {
		log.Error("notify pool init failed", "err", err)
		os.Exit(1)
	}

	if cfg.NATS.URL != "" {
		pub, err := notify.NewNATSPublisher(cfg.NATS.URL, log)
		if err != nil {
			log.Error("nats connect failed", "err", err)
			os.Exit(1)
		}
		d.publisher = pub
	} else {
		d.publisher = notify.NoopPublisher{}
	}
	defer d.publisher.Close()

	var mailer notify.Mailer = notify.LogMailer{}
	if cfg.SMTP.Host != "" {
		mailer = notify.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From)
	}
	d.mailer = notify.NewAsyncMailer(mailer, d.pool)

	r, err := buildRouter(rootCtx, d)
	if err != nil {
		log.Error("router init failed", "err", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "provider", d.provider.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	// Let queued notifications finish before the DB and NATS go away.
	if err := d.pool.Release(10 * time.Second); err != nil {
		log.Warn("notify pool did not drain", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
