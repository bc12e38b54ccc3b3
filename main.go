package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/teatime/teatime/config"
	"github.com/teatime/teatime/middleware"
	"github.com/teatime/teatime/models"
	"github.com/teatime/teatime/repository"
	"github.com/teatime/teatime/routes"
	"github.com/teatime/teatime/utils"
)

const trendingWindow = 48 * time.Hour

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync() //nolint:errcheck

	db := config.InitDatabase(models.All()...)
	store := repository.NewStore(db, repository.Options{
		PostRewardPoints:     cfg.PostRewardPoints,
		ResponseRewardPoints: cfg.ResponseRewardPoints,
	})

	rc := utils.GetRedis()
	if rc == nil {
		utils.Logger.Warn("redis unavailable, caching disabled and token revocation kept in memory")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(reg)

	r := routes.SetupRouter(routes.Deps{
		Config:    cfg,
		Store:     store,
		Cache:     utils.NewCache(rc),
		Issuer:    utils.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.TokenTTLHours)*time.Hour),
		Blacklist: utils.NewTokenBlacklist(rc),
		Guard:     utils.NewRegistrationGuard(rc, time.Duration(cfg.RegisterCooldownSec)*time.Second, cfg.RegisterMaxPerIPPerDay),
		Registry:  reg,
		Metrics:   metrics,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	refresh := time.Duration(cfg.TrendingRefreshMinutes) * time.Minute
	utils.StartPeriodic(ctx, "trending", refresh, func(ctx context.Context) error {
		n, err := store.Posts.RefreshTrending(ctx, time.Now().Add(-trendingWindow), cfg.TrendingLikesThreshold)
		if err == nil && n > 0 {
			utils.Logger.Info("posts marked trending", zap.Int("count", n))
		}
		return err
	})

	if sqlDB, err := db.DB(); err == nil {
		utils.StartPeriodic(ctx, "db-pool-stats", 30*time.Second, func(context.Context) error {
			s := sqlDB.Stats()
			metrics.RecordDBPoolStats(s.OpenConnections, s.InUse, s.Idle, s.WaitCount, s.WaitDuration)
			return nil
		})
	}

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r, cancel); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
