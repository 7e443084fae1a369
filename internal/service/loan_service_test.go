package service

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jpsistemas/jp-cobrancas/internal/domain"
	customError "github.com/jpsistemas/jp-cobrancas/pkg/errors"
)

func TestLoanService_Create_Installments(t *testing.T) {
	f := newFixture(t)
	svc := f.loanService()

	req := &domain.CreateLoanRequest{
		ClientID:         1,
		Amount:           dec("1000"),
		DueDate:          domain.NewDate(2025, 7, 10),
		MonthlyRate:      dec("10"),
		LoanType:         domain.LoanTypeInstallments,
		InstallmentCount: 3,
		Frequency:        domain.FrequencyMonthly,
	}

	f.clients.On("GetByID", f.ctx, int64(1)).Return(&domain.Client{ID: 1, Name: "Ana"}, nil)
	f.loans.On("Create", f.ctx, mock.MatchedBy(func(l *domain.Loan) bool {
		return l.FinalAmount.Equal(dec("1100")) &&
			l.InstallmentAmount.Equal(dec("366.66")) &&
			l.Status == domain.LoanStatusActive &&
			l.CalcMode == domain.CalcModeInitialValue &&
			l.LoanDate.Equal(today)
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Loan).ID = 10
	}).Return(nil)
	f.installments.On("CreateBatch", f.ctx, mock.MatchedBy(func(insts []*domain.Installment) bool {
		return len(insts) == 3 &&
			insts[0].LoanID == 10 &&
			insts[0].Amount.Equal(dec("366.66")) &&
			insts[2].Amount.Equal(dec("366.68")) &&
			insts[2].DueDate.String() == "2025-09-10"
	})).Return(nil)
	f.charges.On("Create", f.ctx, mock.MatchedBy(func(c *domain.Charge) bool {
		return c.LoanID == 10 &&
			c.OriginalAmount.Equal(dec("1100")) &&
			c.CurrentAmount.Equal(dec("1100")) &&
			c.Status == domain.ChargeStatusPending &&
			c.DueDate.String() == "2025-07-10"
	})).Return(nil)
	f.expectInvalidate()

	resp, err := svc.Create(f.ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int64(10), resp.ID)
	assert.Equal(t, loanCreatedMessage, resp.Message)
	assert.Equal(t, 1, f.tx.commits)
}

func TestLoanService_Create_RejectsUnpayableSchedules(t *testing.T) {
	finalAmount := dec("50")
	tests := []struct {
		name string
		req  *domain.CreateLoanRequest
	}{
		{
			name: "share below one cent",
			req: &domain.CreateLoanRequest{
				ClientID: 1, Amount: dec("1.00"), DueDate: domain.NewDate(2025, 7, 10),
				LoanType: domain.LoanTypeInstallments, InstallmentCount: 360,
			},
		},
		{
			name: "final value mode without final amount",
			req: &domain.CreateLoanRequest{
				ClientID: 1, Amount: dec("100"), DueDate: domain.NewDate(2025, 7, 10),
				CalcMode: domain.CalcModeFinalValue,
			},
		},
		{
			name: "fixed installment mode without installment amount",
			req: &domain.CreateLoanRequest{
				ClientID: 1, Amount: dec("100"), DueDate: domain.NewDate(2025, 7, 10),
				LoanType: domain.LoanTypeInstallments, InstallmentCount: 2,
				CalcMode: domain.CalcModeFixedInstall, FinalAmount: &finalAmount,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			svc := f.loanService()

			_, err := svc.Create(f.ctx, tt.req)
			requireKind(t, err, customError.KindValidation)
			f.loans.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestLoanService_Create_BackdatedLoanStartsOverdue(t *testing.T) {
	f := newFixture(t)
	svc := f.loanService()

	req := &domain.CreateLoanRequest{
		ClientID:        1,
		Amount:          dec("1000"),
		LoanDate:        domain.NewDate(2025, 5, 1),
		DueDate:         domain.NewDate(2025, 6, 1),
		MonthlyRate:     dec("10"),
		LatePenaltyRate: dec("2"),
	}

	f.clients.On("GetByID", f.ctx, int64(1)).Return(&domain.Client{ID: 1}, nil)
	f.loans.On("Create", f.ctx, mock.MatchedBy(func(l *domain.Loan) bool {
		return l.LoanType == domain.LoanTypeFixed && l.Status == domain.LoanStatusOverdue
	})).Return(nil)
	f.installments.On("CreateBatch", f.ctx, mock.MatchedBy(func(insts []*domain.Installment) bool {
		return len(insts) == 1 && insts[0].Status == domain.InstallmentStatusOverdue
	})).Return(nil)
	f.charges.On("Create", f.ctx, mock.MatchedBy(func(c *domain.Charge) bool {
		// 30 days late on 1100: penalty 2% once, interest 10%/30 per day.
		return c.DaysOverdue == 30 &&
			c.Penalty.Equal(dec("22")) &&
			c.Interest.Equal(dec("110")) &&
			c.CurrentAmount.Equal(dec("1232"))
	})).Return(nil)
	f.expectInvalidate()

	_, err := svc.Create(f.ctx, req)
	require.NoError(t, err)
}

func TestLoanService_Create_UnknownClient(t *testing.T) {
	f := newFixture(t)
	svc := f.loanService()

	f.clients.On("GetByID", f.ctx, int64(99)).Return(nil, sql.ErrNoRows)

	_, err := svc.Create(f.ctx, &domain.CreateLoanRequest{ClientID: 99, Amount: dec("10"), DueDate: today})
	be := requireKind(t, err, customError.KindNotFound)
	assert.ErrorIs(t, be, customError.ErrClientNotFound)
	f.loans.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestLoanService_List_UsesDerivedStatus(t *testing.T) {
	f := newFixture(t)
	svc := f.loanService()

	overdue := testLoan(1, domain.LoanStatusActive)
	settled := testLoan(2, domain.LoanStatusActive)
	paid := testInstallments(2, 1, "300", domain.NewDate(2025, 8, 1))
	paid[0].Status = domain.InstallmentStatusPaid

	f.loans.On("List", f.ctx, domain.LoanFilter{}).Return([]*domain.LoanView{{Loan: overdue}, {Loan: settled}}, nil)
	f.installments.On("ListAll", f.ctx).Return(append(testInstallments(1, 3, "100", domain.NewDate(2025, 6, 1)), paid...), nil)

	views, err := svc.List(f.ctx, domain.LoanFilter{Status: domain.LoanStatusOverdueLegacy})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, int64(1), views[0].ID)
	assert.Equal(t, domain.LoanStatusOverdue, views[0].Status)
	assert.Equal(t, "2025-06-01", views[0].Evaluation.NextDue.String())

	views, err = svc.List(f.ctx, domain.LoanFilter{})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, domain.LoanStatusSettled, views[1].Status)
}

func TestLoanService_Get(t *testing.T) {
	f := newFixture(t)
	svc := f.loanService()

	loan := testLoan(1, domain.LoanStatusActive)
	f.loans.On("GetByID", f.ctx, int64(1)).Return(loan, nil)
	f.installments.On("ListByLoan", f.ctx, int64(1)).Return(testInstallments(1, 3, "100", domain.NewDate(2025, 6, 1)), nil)
	f.clients.On("GetByID", f.ctx, int64(1)).Return(&domain.Client{ID: 1, Name: "Ana"}, nil)

	view, err := svc.Get(f.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Ana", view.ClientName)
	assert.Equal(t, domain.LoanStatusOverdue, view.Status)
	assert.Equal(t, 30, view.Evaluation.DaysOverdue)
	assert.Equal(t, domain.InstallmentStatusOverdue, view.Installments[0].Status)
	assert.Equal(t, domain.InstallmentStatusPending, view.Installments[1].Status)
}

func TestLoanService_PayInstallment_Partial(t *testing.T) {
	f := newFixture(t)
	svc := f.loanService()

	loan := testLoan(10, domain.LoanStatusActive)
	installments := testInstallments(10, 2, "500", domain.NewDate(2025, 7, 10))
	charge := testCharge(5, 10, "1000")
	charge.DueDate = domain.NewDate(2025, 7, 10)
	amount := dec("200")

	f.charges.On("GetByLoanForUpdate", f.ctx, int64(10)).Return(charge, nil)
	f.loans.On("GetByID", f.ctx, int64(10)).Return(loan, nil)
	f.installments.On("ListByLoan", f.ctx, int64(10)).Return(installments, nil)
	f.installments.On("Update", f.ctx, mock.MatchedBy(func(i *domain.Installment) bool {
		return i.Number == 1 && i.PaidAmount.Equal(amount) && i.Status == domain.InstallmentStatusPending
	})).Return(nil).Once()
	f.payments.On("Create", f.ctx, mock.MatchedBy(func(p *domain.Payment) bool {
		return p.ChargeID == 5 &&
			p.Amount.Equal(amount) &&
			p.Method == domain.PaymentMethodCash &&
			p.Notes == "Parcela 1" &&
			p.PaidOn.Equal(today)
	})).Return(nil)
	f.charges.On("Update", f.ctx, mock.MatchedBy(func(c *domain.Charge) bool {
		return c.CurrentAmount.Equal(dec("800")) && c.Status == domain.ChargeStatusPending
	})).Return(nil)
	f.expectInvalidate()

	receipt, err := svc.PayInstallment(f.ctx, 10, 1, &domain.PayInstallmentRequest{Amount: &amount})
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusActive, receipt.LoanStatus)
	assert.True(t, receipt.Outstanding.Equal(dec("800")))
	f.loans.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestLoanService_PayInstallment_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		number int
		amount string
		paid   bool
		kind   customError.Kind
		target error
	}{
		{name: "unknown installment", number: 7, kind: customError.KindNotFound, target: customError.ErrInstallmentNotFound},
		{name: "already paid", number: 1, paid: true, kind: customError.KindConflict, target: customError.ErrInstallmentPaid},
		{name: "more than owed", number: 1, amount: "500.01", kind: customError.KindValidation, target: customError.ErrPaymentExceedsDebt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			svc := f.loanService()

			installments := testInstallments(10, 2, "500", domain.NewDate(2025, 7, 10))
			if tt.paid {
				installments[0].Status = domain.InstallmentStatusPaid
				installments[0].PaidAmount = dec("500")
			}
			f.charges.On("GetByLoanForUpdate", f.ctx, int64(10)).Return(testCharge(5, 10, "1000"), nil)
			f.loans.On("GetByID", f.ctx, int64(10)).Return(testLoan(10, domain.LoanStatusActive), nil)
			f.installments.On("ListByLoan", f.ctx, int64(10)).Return(installments, nil)

			req := &domain.PayInstallmentRequest{}
			if tt.amount != "" {
				amount := dec(tt.amount)
				req.Amount = &amount
			}

			_, err := svc.PayInstallment(f.ctx, 10, tt.number, req)
			be := requireKind(t, err, tt.kind)
			assert.ErrorIs(t, be, tt.target)
			f.payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestLoanService_PayInstallment_OpensMissingCharge(t *testing.T) {
	f := newFixture(t)
	svc := f.loanService()

	loan := testLoan(10, domain.LoanStatusActive)
	loan.FinalAmount = dec("1000")
	installments := testInstallments(10, 2, "500", domain.NewDate(2025, 7, 10))

	f.charges.On("GetByLoanForUpdate", f.ctx, int64(10)).Return(nil, sql.ErrNoRows)
	f.loans.On("GetByID", f.ctx, int64(10)).Return(loan, nil)
	f.charges.On("Create", f.ctx, mock.MatchedBy(func(c *domain.Charge) bool {
		return c.LoanID == 10 && c.OriginalAmount.Equal(dec("1000"))
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Charge).ID = 77
	}).Return(nil)
	f.installments.On("ListByLoan", f.ctx, int64(10)).Return(installments, nil)
	f.installments.On("Update", f.ctx, mock.Anything).Return(nil)
	f.payments.On("Create", f.ctx, mock.MatchedBy(func(p *domain.Payment) bool {
		return p.ChargeID == 77 && p.Amount.Equal(dec("500"))
	})).Return(nil)
	f.charges.On("Update", f.ctx, mock.Anything).Return(nil)
	f.expectInvalidate()

	receipt, err := svc.PayInstallment(f.ctx, 10, 2, &domain.PayInstallmentRequest{Method: "pix"})
	require.NoError(t, err)
	assert.Equal(t, "pix", receipt.Payment.Method)
	assert.Equal(t, domain.InstallmentStatusPaid, installments[1].Status)
}

func TestLoanService_Settle(t *testing.T) {
	f := newFixture(t)
	svc := f.loanService()

	loan := testLoan(10, domain.LoanStatusOverdue)
	installments := testInstallments(10, 3, "100", domain.NewDate(2025, 6, 1))
	installments[0].Status = domain.InstallmentStatusOverdue
	installments[1].PaidAmount = dec("40")
	charge := testCharge(5, 10, "300")

	f.charges.On("GetByLoanForUpdate", f.ctx, int64(10)).Return(charge, nil)
	f.loans.On("GetByID", f.ctx, int64(10)).Return(loan, nil)
	f.installments.On("ListByLoan", f.ctx, int64(10)).Return(installments, nil)
	f.installments.On("Update", f.ctx, mock.Anything).Return(nil).Times(3)
	f.payments.On("Create", f.ctx, mock.MatchedBy(func(p *domain.Payment) bool {
		return p.Amount.Equal(dec("260")) && p.Notes == "Quitação"
	})).Return(nil)
	f.loans.On("UpdateStatus", f.ctx, int64(10), domain.LoanStatusSettled).Return(nil)
	f.charges.On("Update", f.ctx, mock.MatchedBy(func(c *domain.Charge) bool {
		return c.Status == domain.ChargeStatusPaid && c.CurrentAmount.IsZero() && c.DaysOverdue == 0
	})).Return(nil)
	f.expectInvalidate()

	receipt, err := svc.Settle(f.ctx, 10, &domain.SettleLoanRequest{})
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusSettled, receipt.LoanStatus)
	assert.True(t, receipt.Outstanding.IsZero())
	for _, inst := range installments {
		assert.True(t, inst.IsPaid())
	}
}

func TestLoanService_Settle_AlreadySettled(t *testing.T) {
	f := newFixture(t)
	svc := f.loanService()

	installments := testInstallments(10, 1, "100", domain.NewDate(2025, 6, 1))
	installments[0].Status = domain.InstallmentStatusPaid

	f.charges.On("GetByLoanForUpdate", f.ctx, int64(10)).Return(testCharge(5, 10, "100"), nil)
	f.loans.On("GetByID", f.ctx, int64(10)).Return(testLoan(10, domain.LoanStatusSettled), nil)
	f.installments.On("ListByLoan", f.ctx, int64(10)).Return(installments, nil)

	_, err := svc.Settle(f.ctx, 10, &domain.SettleLoanRequest{})
	requireKind(t, err, customError.KindConflict)
}

func TestLoanService_Update_MovesSinglePaymentDueDate(t *testing.T) {
	f := newFixture(t)
	svc := f.loanService()

	loan := testLoan(10, domain.LoanStatusOverdue)
	loan.LoanType = domain.LoanTypeFixed
	loan.FinalAmount = dec("1100")
	installment := testInstallments(10, 1, "1100", domain.NewDate(2025, 6, 1))
	installment[0].Status = domain.InstallmentStatusOverdue
	charge := testCharge(5, 10, "1100")
	newDue := domain.NewDate(2025, 8, 1)
	notes := "renegociado"

	f.charges.On("GetByLoanForUpdate", f.ctx, int64(10)).Return(charge, nil)
	f.loans.On("GetByID", f.ctx, int64(10)).Return(loan, nil)
	f.installments.On("ListByLoan", f.ctx, int64(10)).Return(installment, nil)
	f.installments.On("Update", f.ctx, mock.MatchedBy(func(i *domain.Installment) bool {
		return i.DueDate.Equal(newDue)
	})).Return(nil)
	f.loans.On("Update", f.ctx, mock.MatchedBy(func(l *domain.Loan) bool {
		return l.DueDate.Equal(newDue) && l.Notes == notes
	})).Return(nil)
	f.loans.On("UpdateStatus", f.ctx, int64(10), domain.LoanStatusActive).Return(nil)
	f.charges.On("Update", f.ctx, mock.MatchedBy(func(c *domain.Charge) bool {
		return c.DueDate.Equal(newDue) && c.DaysOverdue == 0
	})).Return(nil)
	f.expectInvalidate()
	f.clients.On("GetByID", f.ctx, int64(1)).Return(&domain.Client{ID: 1, Name: "Ana"}, nil)

	view, err := svc.Update(f.ctx, 10, &domain.UpdateLoanRequest{DueDate: &newDue, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusActive, view.Status)
}

func TestLoanService_Delete(t *testing.T) {
	f := newFixture(t)
	svc := f.loanService()

	f.loans.On("GetByID", f.ctx, int64(3)).Return(nil, sql.ErrNoRows).Once()
	requireKind(t, svc.Delete(f.ctx, 3), customError.KindNotFound)

	f.loans.On("GetByID", f.ctx, int64(4)).Return(testLoan(4, domain.LoanStatusActive), nil)
	f.loans.On("Delete", f.ctx, int64(4)).Return(nil)
	f.expectInvalidate()
	require.NoError(t, svc.Delete(f.ctx, 4))
}

func TestLoanService_SyncStatuses(t *testing.T) {
	f := newFixture(t)
	svc := f.loanService()

	current := testLoan(1, domain.LoanStatusActive)
	current.DueDate = domain.NewDate(2025, 7, 10)
	late := testLoan(2, domain.LoanStatusActive)

	snapshot := append(
		testInstallments(1, 1, "300", domain.NewDate(2025, 7, 10)),
		testInstallments(2, 1, "300", domain.NewDate(2025, 6, 1))...,
	)
	f.loans.On("List", f.ctx, domain.LoanFilter{}).Return([]*domain.LoanView{{Loan: current}, {Loan: late}}, nil)
	f.installments.On("ListAll", f.ctx).Return(snapshot, nil)

	// Only the late loan is re-read and rewritten.
	charge := testCharge(8, 2, "300")
	f.charges.On("GetByLoanForUpdate", f.ctx, int64(2)).Return(charge, nil)
	f.loans.On("GetByID", f.ctx, int64(2)).Return(testLoan(2, domain.LoanStatusActive), nil)
	f.installments.On("ListByLoan", f.ctx, int64(2)).Return(testInstallments(2, 1, "300", domain.NewDate(2025, 6, 1)), nil)
	f.installments.On("Update", f.ctx, mock.MatchedBy(func(i *domain.Installment) bool {
		return i.LoanID == 2 && i.Status == domain.InstallmentStatusOverdue
	})).Return(nil)
	f.loans.On("UpdateStatus", f.ctx, int64(2), domain.LoanStatusOverdue).Return(nil)
	f.charges.On("Update", f.ctx, mock.MatchedBy(func(c *domain.Charge) bool {
		return c.ID == 8 && c.DaysOverdue == 30
	})).Return(nil)
	f.expectInvalidate()

	synced, err := svc.SyncStatuses(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, synced)
}
