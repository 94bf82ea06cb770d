package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gyaneshwarpardhi/imposter/internal/api"
	"github.com/gyaneshwarpardhi/imposter/internal/broadcast"
	"github.com/gyaneshwarpardhi/imposter/internal/config"
	"github.com/gyaneshwarpardhi/imposter/internal/identity"
	"github.com/gyaneshwarpardhi/imposter/internal/metrics"
	"github.com/gyaneshwarpardhi/imposter/internal/provider"
	"github.com/gyaneshwarpardhi/imposter/internal/provider/issuing"
	"github.com/gyaneshwarpardhi/imposter/internal/provider/mailtm"
	"github.com/gyaneshwarpardhi/imposter/internal/service"
	"github.com/gyaneshwarpardhi/imposter/internal/simulate"
	"github.com/gyaneshwarpardhi/imposter/internal/store"
	"github.com/gyaneshwarpardhi/imposter/internal/syncer"
	"github.com/gyaneshwarpardhi/imposter/internal/ttl"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	cfgPath := flag.String("config", "configs/imposter.yaml", "Path to YAML config")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// ── Load config ──────────────────────────────────────────────────────────
	loader, err := config.NewLoader(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg := loader.Config()
	if err := config.Validate(cfg); err != nil {
		slog.Error("config validation failed", "err", err)
		os.Exit(1)
	}
	listen := cfg.ListenAddr
	if *addr != "" {
		listen = *addr
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Store ────────────────────────────────────────────────────────────────
	var st store.Store
	if cfg.DatabaseDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseDSN)
		if err != nil {
			slog.Error("failed to connect to database", "err", err)
			os.Exit(1)
		}
		defer pool.Close()
		pg := store.NewPostgres(pool)
		if err := pg.InitSchema(ctx); err != nil {
			slog.Error("failed to initialize schema", "err", err)
			os.Exit(1)
		}
		st = pg
		slog.Info("using postgres store")
	} else {
		st = store.NewMemory()
		slog.Info("using in-memory store")
	}

	// ── Broadcaster + TTL scheduler ──────────────────────────────────────────
	broker := broadcast.New(cfg.Stream.Buffer)
	sched := ttl.New(func(kind identity.Kind, key string) {
		if err := st.SoftDelete(context.Background(), kind, key); err != nil {
			slog.Error("expiry failed", "kind", kind, "key", key, "err", err)
			return
		}
		metrics.ResourcesExpired.WithLabelValues(string(kind)).Inc()
		slog.Info("resource expired", "kind", kind, "key", key)
	}, time.Second)

	// ── Providers (variant fixed at startup, no runtime fallback) ────────────
	sim := provider.NewSimulated(cfg.Providers.SimulatedDomain)

	var mail provider.MailProvider = sim
	var mailSource provider.EventSource = sim
	if cfg.Providers.MailTM.Enabled {
		mt := mailtm.New(cfg.Providers.MailTM.BaseURL,
			time.Duration(cfg.Providers.MailTM.TimeoutMs)*time.Millisecond)
		mail, mailSource = mt, mt
		slog.Info("mail provider: mail.tm")
	} else {
		slog.Info("mail provider: simulated")
	}

	var cards provider.CardProvider = sim
	var cardSource provider.EventSource
	if cfg.Providers.Issuing.SecretKey != "" {
		ic := issuing.New(cfg.Providers.Issuing.BaseURL, cfg.Providers.Issuing.SecretKey,
			time.Duration(cfg.Providers.Issuing.TimeoutMs)*time.Millisecond)
		cards, cardSource = ic, ic
		slog.Info("card provider: issuing API")
	} else {
		slog.Info("card provider: simulated")
	}

	// ── Service ──────────────────────────────────────────────────────────────
	inbox := syncer.New(st, mailSource, broker)
	svc := service.New(st, sched, broker, mail, sim, cards, inbox)
	svc.ApplyTTLs(cfg.TTL.Email(), cfg.TTL.Phone(), cfg.TTL.Card())

	// ── Hot-reload watcher (TTL changes apply to new resources only) ─────────
	loader.OnChange(func(newCfg *config.Config) {
		if err := config.Validate(newCfg); err != nil {
			slog.Warn("hot-reload skipped: config invalid", "err", err)
			return
		}
		svc.ApplyTTLs(newCfg.TTL.Email(), newCfg.TTL.Phone(), newCfg.TTL.Card())
		slog.Info("TTLs hot-reloaded",
			"email", newCfg.TTL.Email(), "phone", newCfg.TTL.Phone(), "card", newCfg.TTL.Card())
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── Background loops ─────────────────────────────────────────────────────
	go sched.Run(ctx)
	go syncer.NewPoller(st, inbox, identity.KindEmail,
		cfg.Sync.PollInterval(), cfg.Sync.RequestTimeout()).Run(ctx)
	if cardSource != nil {
		go syncer.NewPoller(st, syncer.New(st, cardSource, broker), identity.KindCard,
			cfg.Sync.PollInterval(), cfg.Sync.RequestTimeout()).Run(ctx)
	}
	if !cfg.Simulation.Disabled {
		gen := simulate.New(svc, st, simulate.Intervals{
			SMSMin: cfg.Simulation.SMSMin(),
			SMSMax: cfg.Simulation.SMSMax(),
			TxMin:  cfg.Simulation.TxMin(),
			TxMax:  cfg.Simulation.TxMax(),
		})
		go gen.Run(ctx)
	}

	// ── HTTP server ──────────────────────────────────────────────────────────
	handler := api.New(svc, broker, st, loader)
	srv := &http.Server{
		Addr:        listen,
		Handler:     handler,
		ReadTimeout: 10 * time.Second,
		// No write timeout: /api/stream holds connections open.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	cancel() // stop background loops
	slog.Info("goodbye")
}
