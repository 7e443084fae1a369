package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/jpsistemas/jp-cobrancas/internal/cache"
	"github.com/jpsistemas/jp-cobrancas/internal/config"
	"github.com/jpsistemas/jp-cobrancas/internal/domain"
	"github.com/jpsistemas/jp-cobrancas/internal/repository"
	customError "github.com/jpsistemas/jp-cobrancas/pkg/errors"
	"github.com/jpsistemas/jp-cobrancas/pkg/utils"
)

type ChargeService struct {
	base
}

func NewChargeService(stores StoreResolver, c cache.Cache, cfg *config.Config, log logrus.FieldLogger) *ChargeService {
	return &ChargeService{base: newBase(stores, c, cfg, log)}
}

func (s *ChargeService) List(ctx context.Context, filter domain.ChargeFilter) ([]*domain.ChargeView, error) {
	store, err := s.store(ctx)
	if err != nil {
		return nil, err
	}

	charges, err := store.Charges.List(ctx, filter)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return charges, nil
}

func (s *ChargeService) Get(ctx context.Context, id int64) (*domain.ChargeView, error) {
	store, err := s.store(ctx)
	if err != nil {
		return nil, err
	}

	charge, err := store.Charges.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, customError.WrapChargeNotFound(id))
	}
	return charge, nil
}

// Pay records a payment on a charge and allocates it to the loan's unpaid
// installments, earliest first. The amount may not exceed what is owed.
func (s *ChargeService) Pay(ctx context.Context, id int64, req *domain.PayChargeRequest) (*domain.PaymentReceipt, error) {
	store, err := s.store(ctx)
	if err != nil {
		return nil, err
	}

	today := s.today()
	var receipt *domain.PaymentReceipt
	err = store.WithTx(ctx, func(tx *repository.Store) error {
		charge, err := tx.Charges.GetForUpdate(ctx, id)
		if err != nil {
			return lookupError(err, customError.WrapChargeNotFound(id))
		}
		if charge.Status == domain.ChargeStatusPaid {
			return customError.WrapChargeAlreadyPaid(id)
		}

		loan, err := tx.Loans.GetByID(ctx, charge.LoanID)
		if err != nil {
			return lookupError(err, customError.WrapLoanNotFound(charge.LoanID))
		}
		installments, err := tx.Installments.ListByLoan(ctx, loan.ID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		if err := checkAmount(req.Amount, domain.OutstandingBalance(installments)); err != nil {
			return err
		}

		in := newPaymentInput(req.Amount, req.PaidOn, req.Method, req.Notes, today)
		receipt, err = applyPayment(ctx, tx, loan, installments, installments, charge, in, today)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"charge_id":   id,
		"amount":      req.Amount.String(),
		"loan_status": receipt.LoanStatus,
	}).Info("Charge payment recorded")
	s.invalidateDashboard(ctx)
	return receipt, nil
}

func (s *ChargeService) ListPayments(ctx context.Context, id int64) ([]*domain.Payment, error) {
	store, err := s.store(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := store.Charges.GetByID(ctx, id); err != nil {
		return nil, lookupError(err, customError.WrapChargeNotFound(id))
	}
	payments, err := store.Payments.ListByCharge(ctx, id)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return payments, nil
}

// RefreshAging recomputes interest, penalty and delay of every pending
// charge of the tenant, returning how many changed.
func (s *ChargeService) RefreshAging(ctx context.Context) (int, error) {
	store, err := s.store(ctx)
	if err != nil {
		return 0, err
	}

	refreshed, err := refreshAging(ctx, store, s.today())
	if refreshed > 0 {
		s.invalidateDashboard(ctx)
	}
	return refreshed, err
}

// refreshAging ages charges from a snapshot and rewrites, under lock, only
// those whose figures moved.
func refreshAging(ctx context.Context, store *repository.Store, today domain.Date) (int, error) {
	charges, err := store.Charges.ListPending(ctx)
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}
	if len(charges) == 0 {
		return 0, nil
	}

	loans, err := store.Loans.List(ctx, domain.LoanFilter{})
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}
	installments, err := store.Installments.ListAll(ctx)
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}

	loanByID := make(map[int64]*domain.Loan, len(loans))
	for _, view := range loans {
		loanByID[view.ID] = view.Loan
	}
	byLoan := groupByLoan(installments)

	refreshed := 0
	for _, charge := range charges {
		loan, ok := loanByID[charge.LoanID]
		if !ok {
			continue
		}

		aged := *charge
		utils.AgeCharge(&aged, loan, byLoan[charge.LoanID], today)
		if !agingChanged(charge, &aged) {
			continue
		}

		if err := syncLoan(ctx, store, charge.LoanID, today); err != nil {
			return refreshed, err
		}
		refreshed++
	}
	return refreshed, nil
}
