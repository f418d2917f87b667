package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"tabletop_web/internal/api"
	"tabletop_web/internal/middleware"
	"tabletop_web/internal/repository"
	"tabletop_web/internal/service"
	"tabletop_web/internal/storage"
	"tabletop_web/pkg/config"
	"tabletop_web/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// 載入應用程式配置
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level)

	// 初始化資料庫連接
	db, err := storage.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repository.Migrate(db); err != nil {
		return err
	}
	repos := repository.NewRepositories(db)

	// 初始化 services，啟動時載入或建立所有房間
	services, err := service.NewServices(ctx, repos, service.Options{
		Prefix:       cfg.DB.Prefix,
		TotalRooms:   cfg.Rooms.Total,
		DiceURL:      cfg.Dice.URL,
		DiceTimeout:  cfg.Dice.Timeout,
		TicketSecret: cfg.Auth.TicketSecret,
		TicketTTL:    cfg.Auth.TicketTTL,
		Logger:       log,
	})
	if err != nil {
		return err
	}
	defer services.Close()

	// 設置 Gin 路由
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.RequestLogger(log.With("component", "http")), middleware.Recovery(log))
	api.SetupRoutes(r, services)

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "address", cfg.Server.Address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
