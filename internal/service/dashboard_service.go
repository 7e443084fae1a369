package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/jpsistemas/jp-cobrancas/internal/cache"
	"github.com/jpsistemas/jp-cobrancas/internal/config"
	"github.com/jpsistemas/jp-cobrancas/internal/domain"
	"github.com/jpsistemas/jp-cobrancas/internal/tenant"
	customError "github.com/jpsistemas/jp-cobrancas/pkg/errors"
)

type DashboardService struct {
	base
}

func NewDashboardService(stores StoreResolver, c cache.Cache, cfg *config.Config, log logrus.FieldLogger) *DashboardService {
	return &DashboardService{base: newBase(stores, c, cfg, log)}
}

// Summary returns the tenant's figures for today, serving them from cache
// when a write has not invalidated them since.
func (s *DashboardService) Summary(ctx context.Context) (*domain.DashboardSummary, error) {
	t, ok := tenant.FromContext(ctx)
	if !ok {
		return nil, customError.WrapMissingTenant()
	}

	today := s.today()
	key := cache.DashboardKey(t.Database, today.String())
	if summary, ok := s.cached(ctx, key); ok {
		return summary, nil
	}

	store, err := s.store(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := refreshAging(ctx, store, today); err != nil {
		return nil, err
	}

	totals, err := store.Dashboard.Totals(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	loans, err := store.Loans.List(ctx, domain.LoanFilter{})
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	installments, err := store.Installments.ListAll(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	summary := &domain.DashboardSummary{
		Date:            today,
		DashboardTotals: *totals,
		Loans: map[string]domain.StatusTotals{
			domain.LoanStatusActive:  zeroTotals(),
			domain.LoanStatusOverdue: zeroTotals(),
			domain.LoanStatusSettled: zeroTotals(),
		},
		TotalLent: decimal.Zero,
	}

	byLoan := groupByLoan(installments)
	for _, view := range loans {
		own := byLoan[view.ID]
		status := domain.DeriveStatus(view.Loan, own, today)

		outstanding := domain.OutstandingBalance(own)
		if len(own) == 0 && status != domain.LoanStatusSettled {
			outstanding = view.FinalAmount
		}

		bucket := summary.Loans[status]
		bucket.Count++
		bucket.Principal = bucket.Principal.Add(view.Amount)
		bucket.Outstanding = bucket.Outstanding.Add(outstanding)
		summary.Loans[status] = bucket

		summary.TotalLent = summary.TotalLent.Add(view.Amount)
	}

	s.remember(ctx, key, summary)
	return summary, nil
}

func zeroTotals() domain.StatusTotals {
	return domain.StatusTotals{Principal: decimal.Zero, Outstanding: decimal.Zero}
}

func (s *DashboardService) cached(ctx context.Context, key string) (*domain.DashboardSummary, bool) {
	if s.cache == nil {
		return nil, false
	}

	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			logCacheError(s.log, err, key, "Dashboard cache read failed")
		}
		return nil, false
	}

	var summary domain.DashboardSummary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("Discarding unreadable dashboard cache entry")
		return nil, false
	}
	return &summary, true
}

func (s *DashboardService) remember(ctx context.Context, key string, summary *domain.DashboardSummary) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(summary)
	if err != nil {
		s.log.WithError(err).Warn("Failed to encode dashboard summary")
		return
	}
	if err := s.cache.Set(ctx, key, string(raw), s.cacheTTL); err != nil {
		logCacheError(s.log, err, key, "Dashboard cache write failed")
	}
}
