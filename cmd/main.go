package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nimishshah/portfolio_engine/config"
	"github.com/nimishshah/portfolio_engine/data"
	"github.com/nimishshah/portfolio_engine/data/cache"
	"github.com/nimishshah/portfolio_engine/data/repository/sqlRepo"
	"github.com/nimishshah/portfolio_engine/internal/externalApi/yahooApi"
	"github.com/nimishshah/portfolio_engine/internal/reportGenerator/xlsxGenerator"
	"github.com/nimishshah/portfolio_engine/internal/scheduler"
	"github.com/nimishshah/portfolio_engine/internal/service/portfolioService"
	"github.com/nimishshah/portfolio_engine/internal/transport/httpapi"
	"github.com/nimishshah/portfolio_engine/internal/transport/httpapi/middleware"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	dbClient := data.NewDbClient(cfg)
	defer dbClient.Close()

	repo := sqlRepo.NewSqlRepo(cfg, dbClient)

	var quoteCache portfolioService.Cache
	if cfg.Redis.Host != "" {
		redisClient := data.NewRedisClient(cfg)
		defer redisClient.Close()
		quoteCache = cache.NewRedisCache(redisClient, cfg)
	} else {
		slog.Info("redis not configured, quote caching disabled")
		quoteCache = cache.NewNoopCache()
	}

	yahooApiClient := yahooApi.New(cfg)

	reportGenerator := xlsxGenerator.New()

	portfolioSrv := portfolioService.New(cfg, repo, quoteCache, yahooApiClient, reportGenerator)

	loc, err := time.LoadLocation(cfg.Jobs.Timezone)
	if err != nil {
		slog.Error("can't load jobs timezone, falling back to UTC", slog.String("err", err.Error()))
		loc = time.UTC
	}

	sched := scheduler.New(loc)
	sched.NewCrontabJob("daily nav", func(ctx context.Context) error {
		_, err := portfolioSrv.ComputeNavAll(ctx)
		return err
	}, cfg.Jobs.DailyNavCrontab, false)
	sched.Start()
	defer sched.Stop()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger())

	controller := httpapi.NewPortfolioController(portfolioSrv)
	controller.Register(router)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.HTTP.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
	}()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", slog.String("err", err.Error()))
	}
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
