// Package main запускает HTTP-сервер витрины аптеки.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/pharmacy-system/internal/cache"
	"github.com/mmeshcher/pharmacy-system/internal/config"
	"github.com/mmeshcher/pharmacy-system/internal/feed"
	"github.com/mmeshcher/pharmacy-system/internal/handler"
	"github.com/mmeshcher/pharmacy-system/internal/middleware"
	"github.com/mmeshcher/pharmacy-system/internal/repository"
	"github.com/mmeshcher/pharmacy-system/internal/store"
	"github.com/mmeshcher/pharmacy-system/internal/whatsapp"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	localCache, err := cache.Open(ctx, cfg.CachePath)
	if err != nil {
		sugar.Fatalw("local cache initialization error", "error", err.Error())
	}
	defer localCache.Close()

	var ownerNotifier store.OwnerNotifier
	if cfg.WhatsAppToken != "" {
		ownerNotifier = whatsapp.NewClient(cfg.WhatsAppToken, cfg.WhatsAppPhoneID, cfg.OwnerPhone)
	}

	notifier := store.NewLogNotifier(logger)
	sessions := store.NewSessionStore(repo, logger)
	orders := store.NewOrderStore(repo, notifier, ownerNotifier, logger)
	wishlist := store.NewWishlistStore(ctx, repo, localCache, notifier, logger)
	cart := store.NewCartStore(ctx, repo, localCache, notifier, logger)

	announcements := feed.New(repo, logger, cfg.FeedLimit, cfg.FeedInterval)

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret, sessions)
	h := handler.NewHandler(sessions, orders, wishlist, cart, announcements, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Фоновая зачистка заказов без позиций
	orders.StartOrphanSweep(ctx, cfg.SweepInterval, cfg.SweepGrace)

	// Живая лента объявлений
	g.Go(func() error {
		announcements.Run(ctx)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting pharmacy storefront server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
