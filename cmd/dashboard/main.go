package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/support1122/flashfire-dashboard/internal/api"
	"github.com/support1122/flashfire-dashboard/internal/backend"
	"github.com/support1122/flashfire-dashboard/internal/board"
	"github.com/support1122/flashfire-dashboard/internal/cache"
	"github.com/support1122/flashfire-dashboard/internal/config"
	"github.com/support1122/flashfire-dashboard/internal/database"
	"github.com/support1122/flashfire-dashboard/internal/logger"
	"github.com/support1122/flashfire-dashboard/internal/nats"
	"github.com/support1122/flashfire-dashboard/internal/publisher"
	"github.com/support1122/flashfire-dashboard/internal/web"
	"github.com/support1122/flashfire-dashboard/internal/web/handlers"
)

var version = "dev"

const (
	apiTitle       = "Flashfire Dashboard API"
	apiDescription = "Job application board: sessions, columns, moves and attachment gates"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// 2. Initialize logger
	if err := logger.Init(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, JSON: cfg.LogJSON}); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	log := logger.Get()
	log.Info().Str("version", version).Msg("starting dashboard")

	// 3. Setup context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	// 4. Open the warm cache
	db, err := database.New(ctx, cfg.CacheDriver, cfg.CacheDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open cache database")
	}
	defer db.Close()

	store, err := cache.New(db.GORM)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to migrate cache")
	}

	// 5. Connect to NATS; the board works without it
	var movePub board.MovePublisher
	if cfg.NatsURL != "" {
		nc, err := nats.New(ctx, cfg.NatsURL)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to nats, publishing disabled")
		} else {
			defer nc.Close()
			if err := nc.EnsureStream(ctx, cfg.NatsStream, []string{nats.SubjectAll}); err != nil {
				log.Warn().Err(err).Msg("failed to ensure stream")
			}
			movePub = publisher.NewNATSPublisher(nc)

			stop, err := nc.Subscribe(ctx, cfg.NatsStream, "dashboard-activity", nats.SubjectAll, publisher.NewActivityLog(log.Component("activity")).Handle)
			if err != nil {
				log.Warn().Err(err).Msg("failed to subscribe to board events")
			} else {
				defer stop()
			}
		}
	}

	// 6. Job API client
	client := backend.NewClient(backend.Config{
		BaseURL: cfg.BackendURL,
		Timeout: cfg.BackendTimeout,
		RPS:     cfg.BackendRPS,
		Burst:   cfg.BackendBurst,
	})

	// 7. WebSocket hub and board registry
	hub := web.NewHub(cfg.CORSOrigins...)
	go hub.Run()

	registry := board.NewRegistry(board.Options{
		Backend:   client,
		Cache:     store,
		Sink:      hub,
		Publisher: movePub,
		PageSize:  cfg.PageSize,
	})

	// 8. Templates and pages
	tmpl := web.NewTemplateEngine("", false)
	if err := tmpl.Load(); err != nil {
		log.Fatal().Err(err).Msg("failed to load templates")
	}

	webCfg := &web.Config{
		Port:        cfg.HTTPPort,
		StaticDir:   cfg.StaticDir,
		CORSOrigins: cfg.CORSOrigins,
		Version:     version,
	}
	server := web.NewServer(webCfg, registry, hub)
	server.RegisterBoardHandler(handlers.NewPagesHandler(tmpl, registry))

	// 9. REST API and docs
	apiServer := api.NewServer(&api.Config{
		Port:        cfg.HTTPPort,
		Title:       apiTitle,
		Description: apiDescription,
		Version:     version,
	}, &api.Dependencies{Boards: registry, Auth: store})
	server.RegisterAPI(apiServer.Mux())
	apiServer.MountDocsOn(server.Router(), apiTitle, apiDescription)
	server.SetupSPAFallback()

	// 10. Start server
	log.Info().Int("port", cfg.HTTPPort).Msg("starting web server")
	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	// 11. Wait for shutdown
	<-ctx.Done()
	log.Info().Msg("shutting down services...")

	hub.Broadcast(web.ShutdownEvent())
	registry.CloseAll()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server shutdown")
	}
	hub.Stop()

	log.Info().Msg("shutdown complete")
}
