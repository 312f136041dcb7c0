// Command server runs the conference backend: clause and amendment workflows,
// delegate chat, committee content, and the live event stream.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/munstack/conference-backend/internal/archive"
	"github.com/munstack/conference-backend/internal/broadcast"
	"github.com/munstack/conference-backend/internal/config"
	"github.com/munstack/conference-backend/internal/convert"
	"github.com/munstack/conference-backend/internal/format"
	"github.com/munstack/conference-backend/internal/http/handlers"
	httpapi "github.com/munstack/conference-backend/internal/http"
	"github.com/munstack/conference-backend/internal/observability"
	"github.com/munstack/conference-backend/internal/repo"
	"github.com/munstack/conference-backend/internal/services"
	"github.com/munstack/conference-backend/internal/storage"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

const shutdownGrace = 10 * time.Second

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	ctx := context.Background()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := shutdownOTel(ctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if cfg.OTEL.Enabled {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			log.Warn().Err(err).Msg("gorm tracing plugin")
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}
	if err := repo.Seed(ctx, db, cfg.ChairUsername, cfg.ChairPassword); err != nil {
		log.Fatal().Err(err).Msg("seed database")
	}

	uploads, err := storage.NewFileStore(cfg.UploadDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.UploadDir).Msg("upload store")
	}
	chatFiles, err := storage.NewFileStore(cfg.ChatFilesDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.ChatFilesDir).Msg("chat file store")
	}

	bus := broadcast.NewBus(log.With().Str("component", "broadcast").Logger())
	archiveLog := archive.NewLog(cfg.ArchivePath)
	converter := &convert.PandocConverter{Binary: cfg.PandocBin, MediaDir: cfg.MediaDir}
	formatter := format.NewClient(cfg.Format.Endpoint, cfg.Format.APIKey, cfg.Format.Model)

	clauses := services.NewClauseService(db, bus, uploads, converter)
	amendments := services.NewAmendmentService(db, bus, archiveLog)
	chat := services.NewChatService(db, bus, chatFiles, log.With().Str("component", "chat").Logger())
	groups := services.NewGroupService(db, bus, chatFiles)
	auth := services.NewAuthService(db, []byte(cfg.JWTSecret))
	content := services.NewContentService(db, bus)

	h := handlers.New(clauses, amendments, chat, groups, auth, content, formatter, bus, chatFiles)

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	httpapi.RegisterRoutes(engine, httpapi.Deps{Handlers: h, Auth: auth}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
	bus.Close()
	log.Info().Msg("bye")
}
