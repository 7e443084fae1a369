package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jpsistemas/jp-cobrancas/internal/domain"
	"github.com/jpsistemas/jp-cobrancas/internal/repository"
	customError "github.com/jpsistemas/jp-cobrancas/pkg/errors"
	"github.com/jpsistemas/jp-cobrancas/pkg/utils"
)

// paymentInput is a payment as the services apply it, defaults resolved.
type paymentInput struct {
	amount decimal.Decimal
	paidOn domain.Date
	method string
	notes  string
}

func newPaymentInput(amount decimal.Decimal, paidOn domain.Date, method, notes string, today domain.Date) paymentInput {
	if paidOn.IsZero() {
		paidOn = today
	}
	if method == "" {
		method = domain.PaymentMethodCash
	}
	return paymentInput{amount: amount, paidOn: paidOn, method: method, notes: notes}
}

// newCharge opens the collection record of a freshly created loan.
func newCharge(loan *domain.Loan) *domain.Charge {
	return &domain.Charge{
		LoanID:         loan.ID,
		ClientID:       loan.ClientID,
		OriginalAmount: loan.FinalAmount,
		CurrentAmount:  loan.FinalAmount,
		Interest:       decimal.Zero,
		Penalty:        decimal.Zero,
		DueDate:        loan.DueDate,
		Status:         domain.ChargeStatusPending,
	}
}

// lockCharge locks the charge of a loan for the rest of tx. Every write to a
// loan's installments takes this lock first. A loan without a charge yields nil.
func lockCharge(ctx context.Context, tx *repository.Store, loanID int64) (*domain.Charge, error) {
	charge, err := tx.Charges.GetByLoanForUpdate(ctx, loanID)
	if err != nil {
		if customError.IsNotFound(err) {
			return nil, nil
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return charge, nil
}

// reconcile brings stored installment statuses, the loan status and the
// charge aging in line with the installments on today. charge may be nil.
func reconcile(ctx context.Context, tx *repository.Store, loan *domain.Loan, installments []*domain.Installment, charge *domain.Charge, today domain.Date) (domain.Evaluation, error) {
	for _, inst := range installments {
		status := domain.InstallmentStatusOn(inst, today)
		if status == inst.Status {
			continue
		}
		inst.Status = status
		if err := tx.Installments.Update(ctx, inst); err != nil {
			return domain.Evaluation{}, customError.WrapDatabaseError(err)
		}
	}

	ev := domain.Evaluate(loan, installments, today)
	if loan.Status != ev.Status {
		if err := tx.Loans.UpdateStatus(ctx, loan.ID, ev.Status); err != nil {
			return domain.Evaluation{}, customError.WrapDatabaseError(err)
		}
		loan.Status = ev.Status
	}

	if charge != nil {
		before := *charge
		utils.AgeCharge(charge, loan, installments, today)
		if agingChanged(&before, charge) {
			if err := tx.Charges.Update(ctx, charge); err != nil {
				return domain.Evaluation{}, customError.WrapDatabaseError(err)
			}
		}
	}

	return ev, nil
}

// needsSync reports whether reconcile would write anything for the loan,
// leaving the inputs untouched.
func needsSync(loan *domain.Loan, installments []*domain.Installment, today domain.Date) bool {
	for _, inst := range installments {
		if domain.InstallmentStatusOn(inst, today) != inst.Status {
			return true
		}
	}
	return domain.DeriveStatus(loan, installments, today) != loan.Status
}

func agingChanged(a, b *domain.Charge) bool {
	return !a.CurrentAmount.Equal(b.CurrentAmount) ||
		!a.Interest.Equal(b.Interest) ||
		!a.Penalty.Equal(b.Penalty) ||
		!a.DueDate.Equal(b.DueDate) ||
		a.DaysOverdue != b.DaysOverdue ||
		a.Status != b.Status ||
		!sameClient(a.ClientID, b.ClientID)
}

func sameClient(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// syncLoan re-reads one loan under its charge lock and reconciles it.
func syncLoan(ctx context.Context, s *repository.Store, loanID int64, today domain.Date) error {
	return s.WithTx(ctx, func(tx *repository.Store) error {
		charge, err := lockCharge(ctx, tx, loanID)
		if err != nil {
			return err
		}
		loan, err := tx.Loans.GetByID(ctx, loanID)
		if err != nil {
			return lookupError(err, customError.WrapLoanNotFound(loanID))
		}
		installments, err := tx.Installments.ListByLoan(ctx, loanID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		_, err = reconcile(ctx, tx, loan, installments, charge, today)
		return err
	})
}

// applyPayment records in against the charge and spreads it over targets,
// which must be a subset of installments. The caller holds the charge lock.
func applyPayment(ctx context.Context, tx *repository.Store, loan *domain.Loan, installments, targets []*domain.Installment, charge *domain.Charge, in paymentInput, today domain.Date) (*domain.PaymentReceipt, error) {
	allocations, _ := domain.AllocatePayment(targets, in.amount, in.paidOn)
	for _, a := range allocations {
		if err := tx.Installments.Update(ctx, a.Installment); err != nil {
			return nil, customError.WrapDatabaseError(err)
		}
	}

	payment := &domain.Payment{
		ChargeID: charge.ID,
		Amount:   in.amount,
		PaidOn:   in.paidOn,
		Method:   in.method,
		Notes:    in.notes,
	}
	if err := tx.Payments.Create(ctx, payment); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	ev, err := reconcile(ctx, tx, loan, installments, charge, today)
	if err != nil {
		return nil, err
	}

	return &domain.PaymentReceipt{
		Payment:     payment,
		LoanStatus:  ev.Status,
		Outstanding: domain.OutstandingBalance(installments),
	}, nil
}

// checkAmount rejects payments above what is owed.
func checkAmount(amount, outstanding decimal.Decimal) error {
	if !amount.IsPositive() {
		return customError.Validation("Valor do pagamento deve ser maior que zero", fmt.Errorf("amount %s", amount))
	}
	if amount.GreaterThan(outstanding) {
		return customError.WrapPaymentExceedsDebt(amount.StringFixed(2), outstanding.StringFixed(2))
	}
	return nil
}

// groupByLoan indexes installments by loan, keeping their order.
func groupByLoan(installments []*domain.Installment) map[int64][]*domain.Installment {
	byLoan := make(map[int64][]*domain.Installment)
	for _, inst := range installments {
		byLoan[inst.LoanID] = append(byLoan[inst.LoanID], inst)
	}
	return byLoan
}
