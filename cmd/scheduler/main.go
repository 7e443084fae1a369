package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/jpsistemas/jp-cobrancas/internal/cache"
	"github.com/jpsistemas/jp-cobrancas/internal/config"
	"github.com/jpsistemas/jp-cobrancas/internal/logger"
	"github.com/jpsistemas/jp-cobrancas/internal/repository"
	"github.com/jpsistemas/jp-cobrancas/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	log := logger.New(cfg.Logging)
	log.Info("Starting collection scheduler...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	registry, err := repository.NewRegistry(ctx, cfg.Database, log)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer registry.Close()

	redisClient := cache.NewRedisClient(cfg.Redis)
	defer redisClient.Close()
	redisCache := cache.NewRedisCache(redisClient)

	job := &dailyJob{
		tenants: registry,
		loans:   service.NewLoanService(registry, redisCache, cfg, log),
		charges: service.NewChargeService(registry, redisCache, cfg, log),
		log:     log,
	}

	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(cfg.Business.Location),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)

	if _, err := c.AddFunc(cfg.Scheduler.Cron, func() { job.Run(context.Background()) }); err != nil {
		log.WithError(err).WithField("spec", cfg.Scheduler.Cron).Fatal("Error scheduling daily job")
	}

	c.Start()
	log.WithField("spec", cfg.Scheduler.Cron).Info("Scheduler started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down scheduler...")
	<-c.Stop().Done()
	log.Info("Scheduler stopped")
}
