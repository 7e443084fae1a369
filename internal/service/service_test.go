package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/jpsistemas/jp-cobrancas/internal/config"
	"github.com/jpsistemas/jp-cobrancas/internal/domain"
	"github.com/jpsistemas/jp-cobrancas/internal/mocks"
	"github.com/jpsistemas/jp-cobrancas/internal/repository"
	"github.com/jpsistemas/jp-cobrancas/internal/tenant"
	customError "github.com/jpsistemas/jp-cobrancas/pkg/errors"
)

var today = domain.NewDate(2025, 7, 1)

const dashboardKey = "dashboard:jpcobrancas_ana:2025-07-01"

type staticResolver struct {
	store *repository.Store
}

func (r staticResolver) Store(context.Context) (*repository.Store, error) {
	return r.store, nil
}

// recordingTx runs transactions inline on the mock-backed store and counts
// how they ended.
type recordingTx struct {
	store     *repository.Store
	commits   int
	rollbacks int
}

func (r *recordingTx) InTx(_ context.Context, fn func(tx *repository.Store) error) error {
	if err := fn(r.store); err != nil {
		r.rollbacks++
		return err
	}
	r.commits++
	return nil
}

type fixture struct {
	ctx          context.Context
	cfg          *config.Config
	log          *logrus.Logger
	hook         *test.Hook
	cache        *mocks.MockCache
	clients      *mocks.MockClientRepository
	loans        *mocks.MockLoanRepository
	installments *mocks.MockInstallmentRepository
	charges      *mocks.MockChargeRepository
	payments     *mocks.MockPaymentRepository
	orders       *mocks.MockOrderRepository
	dashboard    *mocks.MockDashboardRepository
	tx           *recordingTx
	resolver     staticResolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log, hook := test.NewNullLogger()

	f := &fixture{
		ctx:          tenant.NewContext(context.Background(), tenant.Tenant{Username: "ana", Database: "jpcobrancas_ana"}),
		cfg:          &config.Config{Business: config.BusinessConfig{Location: time.UTC}, Redis: config.RedisConfig{CacheTTL: time.Minute}},
		log:          log,
		hook:         hook,
		cache:        &mocks.MockCache{},
		clients:      &mocks.MockClientRepository{},
		loans:        &mocks.MockLoanRepository{},
		installments: &mocks.MockInstallmentRepository{},
		charges:      &mocks.MockChargeRepository{},
		payments:     &mocks.MockPaymentRepository{},
		orders:       &mocks.MockOrderRepository{},
		dashboard:    &mocks.MockDashboardRepository{},
	}
	store := &repository.Store{
		Clients:      f.clients,
		Loans:        f.loans,
		Installments: f.installments,
		Charges:      f.charges,
		Payments:     f.payments,
		Orders:       f.orders,
		Dashboard:    f.dashboard,
	}
	f.tx = &recordingTx{store: store}
	store.Tx = f.tx
	f.resolver = staticResolver{store: store}

	t.Cleanup(func() {
		f.clients.AssertExpectations(t)
		f.loans.AssertExpectations(t)
		f.installments.AssertExpectations(t)
		f.charges.AssertExpectations(t)
		f.payments.AssertExpectations(t)
		f.orders.AssertExpectations(t)
		f.dashboard.AssertExpectations(t)
		f.cache.AssertExpectations(t)
	})
	return f
}

func (f *fixture) expectInvalidate() {
	f.cache.On("Del", f.ctx, []string{dashboardKey}).Return(nil).Once()
}

func (f *fixture) loanService() *LoanService {
	s := NewLoanService(f.resolver, f.cache, f.cfg, f.log)
	s.today = func() domain.Date { return today }
	return s
}

func (f *fixture) chargeService() *ChargeService {
	s := NewChargeService(f.resolver, f.cache, f.cfg, f.log)
	s.today = func() domain.Date { return today }
	return s
}

func (f *fixture) clientService() *ClientService {
	s := NewClientService(f.resolver, f.cache, f.cfg, f.log)
	s.today = func() domain.Date { return today }
	return s
}

func (f *fixture) dashboardService() *DashboardService {
	s := NewDashboardService(f.resolver, f.cache, f.cfg, f.log)
	s.today = func() domain.Date { return today }
	return s
}

func (f *fixture) orderService() *OrderService {
	s := NewOrderService(f.resolver, f.cfg, f.log)
	s.today = func() domain.Date { return today }
	return s
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func clientID(id int64) *int64 {
	return &id
}

func testLoan(id int64, status string) *domain.Loan {
	return &domain.Loan{
		ID:               id,
		ClientID:         clientID(1),
		Amount:           dec("1000"),
		DueDate:          domain.NewDate(2025, 6, 1),
		MonthlyRate:      dec("10"),
		LatePenaltyRate:  dec("2"),
		LoanType:         domain.LoanTypeInstallments,
		InstallmentCount: 3,
		Frequency:        domain.FrequencyMonthly,
		FinalAmount:      dec("300"),
		Status:           status,
	}
}

// testInstallments builds count installments of amount, the first due on first.
func testInstallments(loanID int64, count int, amount string, first domain.Date) []*domain.Installment {
	out := make([]*domain.Installment, 0, count)
	for n := 1; n <= count; n++ {
		out = append(out, &domain.Installment{
			ID:         loanID*100 + int64(n),
			LoanID:     loanID,
			Number:     n,
			Amount:     dec(amount),
			DueDate:    first.AddMonths(n - 1),
			Status:     domain.InstallmentStatusPending,
			PaidAmount: decimal.Zero,
		})
	}
	return out
}

func testCharge(id, loanID int64, original string) *domain.Charge {
	return &domain.Charge{
		ID:             id,
		LoanID:         loanID,
		ClientID:       clientID(1),
		OriginalAmount: dec(original),
		CurrentAmount:  dec(original),
		Interest:       decimal.Zero,
		Penalty:        decimal.Zero,
		Status:         domain.ChargeStatusPending,
	}
}

func requireKind(t *testing.T, err error, kind customError.Kind) *customError.BusinessError {
	t.Helper()
	be, ok := customError.As(err)
	require.True(t, ok, "expected a business error, got %v", err)
	require.Equal(t, kind, be.Kind)
	return be
}
