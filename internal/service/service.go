package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jpsistemas/jp-cobrancas/internal/cache"
	"github.com/jpsistemas/jp-cobrancas/internal/config"
	"github.com/jpsistemas/jp-cobrancas/internal/domain"
	"github.com/jpsistemas/jp-cobrancas/internal/repository"
	"github.com/jpsistemas/jp-cobrancas/internal/tenant"
	customError "github.com/jpsistemas/jp-cobrancas/pkg/errors"
)

// StoreResolver returns the repositories of the tenant carried by ctx.
type StoreResolver interface {
	Store(ctx context.Context) (*repository.Store, error)
}

// base carries the collaborators every service shares.
type base struct {
	stores   StoreResolver
	cache    cache.Cache
	log      logrus.FieldLogger
	cacheTTL time.Duration
	today    func() domain.Date
}

func newBase(stores StoreResolver, c cache.Cache, cfg *config.Config, log logrus.FieldLogger) base {
	loc := cfg.Business.Location
	return base{
		stores:   stores,
		cache:    c,
		log:      log,
		cacheTTL: cfg.Redis.CacheTTL,
		today:    func() domain.Date { return domain.Today(loc) },
	}
}

func (b *base) store(ctx context.Context) (*repository.Store, error) {
	s, err := b.stores.Store(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return s, nil
}

// invalidateDashboard drops today's cached summary of the tenant in ctx.
// Failures only cost a stale read until the entry expires.
func (b *base) invalidateDashboard(ctx context.Context) {
	if b.cache == nil {
		return
	}
	t, ok := tenant.FromContext(ctx)
	if !ok {
		return
	}
	key := cache.DashboardKey(t.Database, b.today().String())
	if err := b.cache.Del(ctx, key); err != nil {
		logCacheError(b.log, err, key, "Failed to invalidate dashboard cache")
	}
}

// logCacheError records a cache failure that the request outlives.
func logCacheError(log logrus.FieldLogger, err error, key, msg string) {
	be := customError.WrapCacheError(err)
	log.WithError(be).WithFields(logrus.Fields{"key": key, "code": be.Code}).Warn(msg)
}

// lookupError turns a missing row into notFound and anything else into a
// storage error.
func lookupError(err error, notFound *customError.BusinessError) error {
	if customError.IsNotFound(err) {
		return notFound
	}
	return customError.WrapDatabaseError(err)
}
