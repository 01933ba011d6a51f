package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	deskbot "github.com/ticketline/deskbot"
	"github.com/ticketline/deskbot/internal/config"
	"github.com/ticketline/deskbot/internal/handler"
	"github.com/ticketline/deskbot/internal/line"
	"github.com/ticketline/deskbot/internal/middleware"
	"github.com/ticketline/deskbot/internal/repository"
	"github.com/ticketline/deskbot/internal/service"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Run migrations
	migrationsFS, err := fs.Sub(deskbot.MigrationsFS, "migrations")
	if err != nil {
		slog.Error("failed to load embedded migrations", "error", err)
		os.Exit(1)
	}
	if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	sessionRepo := repository.NewSessionRepo(pool)
	deliveryRepo := repository.NewDeliveryRepo(pool)
	directoryRepo := repository.NewDirectoryRepo(pool)
	ticketRepo := repository.NewTicketRepo(pool)
	attachmentRepo := repository.NewAttachmentRepo(pool)

	// Initialize platform client and services
	client := line.NewClient(cfg.ChannelToken,
		line.WithEndpoints(cfg.APIBaseURL, cfg.DataBaseURL))

	sessions := service.NewSessionStore(sessionRepo, cfg.SessionTTL)
	attachments := service.NewAttachments(attachmentRepo, client, cfg.AttachmentDir)
	dialog := service.NewDialog(sessions, ticketRepo, directoryRepo, attachments)
	quota := service.NewQuota(deliveryRepo, cfg.PushMonthlyLimit, cfg.QuotaWarnPercent)
	gateway := service.NewGateway(client, deliveryRepo, quota)
	reaper := service.NewReaper(sessionRepo, attachments, cfg.ReaperInterval)

	// Initialize handler
	h := handler.New(handler.Deps{
		Cfg:         cfg,
		Dialog:      dialog,
		Sessions:    sessions,
		Gateway:     gateway,
		Directory:   directoryRepo,
		Attachments: attachments,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           middleware.Recover(middleware.Logging(h.Routes())),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		reaper.Run(ctx)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server stopped with error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
