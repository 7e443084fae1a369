package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jpsistemas/jp-cobrancas/internal/cache"
	"github.com/jpsistemas/jp-cobrancas/internal/config"
	"github.com/jpsistemas/jp-cobrancas/internal/domain"
	"github.com/jpsistemas/jp-cobrancas/internal/repository"
	customError "github.com/jpsistemas/jp-cobrancas/pkg/errors"
	"github.com/jpsistemas/jp-cobrancas/pkg/utils"
)

const loanCreatedMessage = "Empréstimo criado com sucesso"

type LoanService struct {
	base
}

func NewLoanService(stores StoreResolver, c cache.Cache, cfg *config.Config, log logrus.FieldLogger) *LoanService {
	return &LoanService{base: newBase(stores, c, cfg, log)}
}

// Create stores a loan together with its installment schedule and its
// charge, in one transaction.
func (s *LoanService) Create(ctx context.Context, req *domain.CreateLoanRequest) (*domain.CreateLoanResponse, error) {
	if req.DueDate.IsZero() {
		return nil, customError.Validation("Data de vencimento é obrigatória", nil)
	}

	today := s.today()
	loan, err := loanFromRequest(req, today)
	if err != nil {
		return nil, err
	}

	store, err := s.store(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := store.Clients.GetByID(ctx, req.ClientID); err != nil {
		return nil, lookupError(err, customError.WrapClientNotFound(req.ClientID))
	}

	installments := utils.BuildSchedule(loan)
	for _, inst := range installments {
		inst.Status = domain.InstallmentStatusOn(inst, today)
	}
	// Backdated loans may already be late.
	loan.Status = domain.DeriveStatus(loan, installments, today)

	charge := newCharge(loan)
	utils.AgeCharge(charge, loan, installments, today)

	err = store.WithTx(ctx, func(tx *repository.Store) error {
		if err := tx.Loans.Create(ctx, loan); err != nil {
			return customError.WrapDatabaseError(err)
		}

		for _, inst := range installments {
			inst.LoanID = loan.ID
		}
		if err := tx.Installments.CreateBatch(ctx, installments); err != nil {
			return customError.WrapDatabaseError(err)
		}

		charge.LoanID = loan.ID
		if err := tx.Charges.Create(ctx, charge); err != nil {
			return customError.WrapDatabaseError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"loan_id":      loan.ID,
		"client_id":    req.ClientID,
		"installments": len(installments),
		"final_amount": loan.FinalAmount.String(),
	}).Info("Loan created")
	s.invalidateDashboard(ctx)

	return &domain.CreateLoanResponse{ID: loan.ID, Message: loanCreatedMessage}, nil
}

func loanFromRequest(req *domain.CreateLoanRequest, today domain.Date) (*domain.Loan, error) {
	clientID := req.ClientID
	loan := &domain.Loan{
		ClientID:        &clientID,
		Amount:          req.Amount,
		LoanDate:        req.LoanDate,
		DueDate:         req.DueDate,
		MonthlyRate:     req.MonthlyRate,
		LatePenaltyRate: req.LatePenaltyRate,
		Notes:           req.Notes,
		LoanType:        req.LoanType,
		Frequency:       req.Frequency,
		CalcMode:        req.CalcMode,
		Status:          domain.LoanStatusActive,
	}

	if loan.LoanDate.IsZero() {
		loan.LoanDate = today
	}
	if loan.LoanType == "" {
		loan.LoanType = domain.LoanTypeFixed
	}
	if loan.Frequency == "" {
		loan.Frequency = domain.FrequencyMonthly
	}
	if loan.CalcMode == "" {
		loan.CalcMode = domain.CalcModeInitialValue
	}

	count := 1
	if loan.LoanType == domain.LoanTypeInstallments {
		count = utils.SafeCount(req.InstallmentCount)
	}
	loan.InstallmentCount = count

	values, err := utils.ComputeLoanValues(loan.Amount, loan.MonthlyRate, req.FinalAmount, req.InstallmentAmount, count, loan.CalcMode)
	if err != nil {
		return nil, err
	}
	loan.FinalAmount = values.FinalAmount
	loan.InstallmentAmount = values.InstallmentAmount
	loan.MonthlyRate = values.EffectiveRate

	return loan, nil
}

// List returns loans with the status derived from their installments. A
// status filter applies to the derived status, not the stored one.
func (s *LoanService) List(ctx context.Context, filter domain.LoanFilter) ([]*domain.LoanView, error) {
	store, err := s.store(ctx)
	if err != nil {
		return nil, err
	}

	loans, err := store.Loans.List(ctx, domain.LoanFilter{ClientID: filter.ClientID})
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	installments, err := store.Installments.ListAll(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	today := s.today()
	byLoan := groupByLoan(installments)
	want := domain.NormalizeLoanStatus(filter.Status)

	views := make([]*domain.LoanView, 0, len(loans))
	for _, view := range loans {
		view.Evaluation = domain.Evaluate(view.Loan, byLoan[view.ID], today)
		view.Status = view.Evaluation.Status
		if want != "" && view.Status != want {
			continue
		}
		views = append(views, view)
	}
	return views, nil
}

// Get returns a loan with its installments and derived state.
func (s *LoanService) Get(ctx context.Context, id int64) (*domain.LoanView, error) {
	store, err := s.store(ctx)
	if err != nil {
		return nil, err
	}

	loan, err := store.Loans.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, customError.WrapLoanNotFound(id))
	}
	installments, err := store.Installments.ListByLoan(ctx, id)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	today := s.today()
	view := &domain.LoanView{Loan: loan, Installments: presentInstallments(installments, today)}
	view.Evaluation = domain.Evaluate(loan, installments, today)
	view.Status = view.Evaluation.Status

	if loan.ClientID != nil {
		client, err := store.Clients.GetByID(ctx, *loan.ClientID)
		switch {
		case err == nil:
			view.ClientName = client.Name
		case !customError.IsNotFound(err):
			return nil, customError.WrapDatabaseError(err)
		}
	}

	return view, nil
}

// presentInstallments shows each installment with the status it carries today.
func presentInstallments(installments []*domain.Installment, today domain.Date) []*domain.Installment {
	for _, inst := range installments {
		inst.Status = domain.InstallmentStatusOn(inst, today)
	}
	return installments
}

// Update changes the editable fields of a loan. Moving the due date of a
// single-payment loan moves its installment too.
func (s *LoanService) Update(ctx context.Context, id int64, req *domain.UpdateLoanRequest) (*domain.LoanView, error) {
	store, err := s.store(ctx)
	if err != nil {
		return nil, err
	}

	if req.ClientID != nil {
		if _, err := store.Clients.GetByID(ctx, *req.ClientID); err != nil {
			return nil, lookupError(err, customError.WrapClientNotFound(*req.ClientID))
		}
	}

	today := s.today()
	err = store.WithTx(ctx, func(tx *repository.Store) error {
		charge, err := lockCharge(ctx, tx, id)
		if err != nil {
			return err
		}
		loan, err := tx.Loans.GetByID(ctx, id)
		if err != nil {
			return lookupError(err, customError.WrapLoanNotFound(id))
		}
		installments, err := tx.Installments.ListByLoan(ctx, id)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		if req.ClientID != nil {
			clientID := *req.ClientID
			loan.ClientID = &clientID
			if charge != nil {
				charge.ClientID = &clientID
			}
		}
		if req.MonthlyRate != nil {
			loan.MonthlyRate = *req.MonthlyRate
		}
		if req.LatePenaltyRate != nil {
			loan.LatePenaltyRate = *req.LatePenaltyRate
		}
		if req.Notes != nil {
			loan.Notes = *req.Notes
		}
		if req.DueDate != nil && !req.DueDate.IsZero() {
			loan.DueDate = *req.DueDate
			if loan.LoanType != domain.LoanTypeInstallments && len(installments) == 1 && !installments[0].IsPaid() {
				installments[0].DueDate = loan.DueDate
				if err := tx.Installments.Update(ctx, installments[0]); err != nil {
					return customError.WrapDatabaseError(err)
				}
			}
		}

		if err := tx.Loans.Update(ctx, loan); err != nil {
			return customError.WrapDatabaseError(err)
		}
		if charge != nil && req.ClientID != nil {
			if err := tx.Charges.Update(ctx, charge); err != nil {
				return customError.WrapDatabaseError(err)
			}
		}

		_, err = reconcile(ctx, tx, loan, installments, charge, today)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidateDashboard(ctx)
	return s.Get(ctx, id)
}

// Delete removes a loan with its installments, charge and payments.
func (s *LoanService) Delete(ctx context.Context, id int64) error {
	store, err := s.store(ctx)
	if err != nil {
		return err
	}

	if _, err := store.Loans.GetByID(ctx, id); err != nil {
		return lookupError(err, customError.WrapLoanNotFound(id))
	}
	if err := store.Loans.Delete(ctx, id); err != nil {
		return customError.WrapDatabaseError(err)
	}

	s.log.WithField("loan_id", id).Info("Loan deleted")
	s.invalidateDashboard(ctx)
	return nil
}

func (s *LoanService) ListInstallments(ctx context.Context, loanID int64) ([]*domain.Installment, error) {
	store, err := s.store(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := store.Loans.GetByID(ctx, loanID); err != nil {
		return nil, lookupError(err, customError.WrapLoanNotFound(loanID))
	}
	installments, err := store.Installments.ListByLoan(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return presentInstallments(installments, s.today()), nil
}

// PayInstallment pays one installment, in full when no amount is given.
// Partial payments accumulate until the installment is covered.
func (s *LoanService) PayInstallment(ctx context.Context, loanID int64, number int, req *domain.PayInstallmentRequest) (*domain.PaymentReceipt, error) {
	store, err := s.store(ctx)
	if err != nil {
		return nil, err
	}

	today := s.today()
	var receipt *domain.PaymentReceipt
	err = store.WithTx(ctx, func(tx *repository.Store) error {
		loan, installments, charge, err := lockLoan(ctx, tx, loanID)
		if err != nil {
			return err
		}

		var target *domain.Installment
		for _, inst := range installments {
			if inst.Number == number {
				target = inst
				break
			}
		}
		if target == nil {
			return customError.WrapInstallmentNotFound(loanID, number)
		}
		if target.IsPaid() {
			return customError.WrapInstallmentAlreadyPaid(loanID, number)
		}

		amount := target.Remaining()
		if req.Amount != nil {
			amount = *req.Amount
		}
		if err := checkAmount(amount, target.Remaining()); err != nil {
			return err
		}

		notes := req.Notes
		if notes == "" {
			notes = fmt.Sprintf("Parcela %d", number)
		}
		in := newPaymentInput(amount, req.PaidOn, req.Method, notes, today)

		receipt, err = applyPayment(ctx, tx, loan, installments, []*domain.Installment{target}, charge, in, today)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"loan_id": loanID,
		"number":  number,
		"amount":  receipt.Payment.Amount.String(),
	}).Info("Installment payment recorded")
	s.invalidateDashboard(ctx)
	return receipt, nil
}

// Settle pays every remaining balance of a loan.
func (s *LoanService) Settle(ctx context.Context, loanID int64, req *domain.SettleLoanRequest) (*domain.PaymentReceipt, error) {
	store, err := s.store(ctx)
	if err != nil {
		return nil, err
	}

	today := s.today()
	var receipt *domain.PaymentReceipt
	err = store.WithTx(ctx, func(tx *repository.Store) error {
		loan, installments, charge, err := lockLoan(ctx, tx, loanID)
		if err != nil {
			return err
		}

		outstanding := domain.OutstandingBalance(installments)
		if !outstanding.IsPositive() {
			return customError.WrapLoanAlreadySettled(loanID)
		}

		notes := req.Notes
		if notes == "" {
			notes = "Quitação"
		}
		in := newPaymentInput(outstanding, req.PaidOn, req.Method, notes, today)

		receipt, err = applyPayment(ctx, tx, loan, installments, installments, charge, in, today)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"loan_id": loanID,
		"amount":  receipt.Payment.Amount.String(),
	}).Info("Loan settled")
	s.invalidateDashboard(ctx)
	return receipt, nil
}

// lockLoan takes the charge lock of a loan, then loads it with its
// installments. Reads happen after the lock so they see every committed
// payment.
func lockLoan(ctx context.Context, tx *repository.Store, loanID int64) (*domain.Loan, []*domain.Installment, *domain.Charge, error) {
	charge, err := lockCharge(ctx, tx, loanID)
	if err != nil {
		return nil, nil, nil, err
	}
	loan, err := tx.Loans.GetByID(ctx, loanID)
	if err != nil {
		return nil, nil, nil, lookupError(err, customError.WrapLoanNotFound(loanID))
	}
	if charge == nil {
		charge = newCharge(loan)
		if err := tx.Charges.Create(ctx, charge); err != nil {
			return nil, nil, nil, customError.WrapDatabaseError(err)
		}
	}
	installments, err := tx.Installments.ListByLoan(ctx, loanID)
	if err != nil {
		return nil, nil, nil, customError.WrapDatabaseError(err)
	}
	return loan, installments, charge, nil
}

// SyncStatuses persists the derived status of every loan of the tenant and
// marks late installments. It returns how many loans were rewritten.
func (s *LoanService) SyncStatuses(ctx context.Context) (int, error) {
	store, err := s.store(ctx)
	if err != nil {
		return 0, err
	}

	loans, err := store.Loans.List(ctx, domain.LoanFilter{})
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}
	installments, err := store.Installments.ListAll(ctx)
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}

	today := s.today()
	byLoan := groupByLoan(installments)
	synced := 0
	for _, view := range loans {
		if !needsSync(view.Loan, byLoan[view.ID], today) {
			continue
		}
		if err := syncLoan(ctx, store, view.ID, today); err != nil {
			return synced, err
		}
		synced++
	}

	if synced > 0 {
		s.invalidateDashboard(ctx)
	}
	return synced, nil
}
