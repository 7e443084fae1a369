package utils

import (
	"fmt"

	"github.com/jpsistemas/jp-cobrancas/internal/domain"
	customError "github.com/jpsistemas/jp-cobrancas/pkg/errors"

	"github.com/shopspring/decimal"
)

var (
	hundred    = decimal.NewFromInt(100)
	daysPerMon = decimal.NewFromInt(30)
	minShare   = decimal.New(1, -2)
)

// LoanValues is the outcome of the loan calculation.
type LoanValues struct {
	FinalAmount       decimal.Decimal
	InstallmentAmount decimal.Decimal
	EffectiveRate     decimal.Decimal
}

// ComputeLoanValues derives the final amount, installment amount and monthly
// rate from whichever of them the user typed in (mode). The installment
// amount is the final amount split evenly and rounded down to the cent, so
// every installment of the schedule is worth at least 0.01.
func ComputeLoanValues(principal, rate decimal.Decimal, finalAmount, installmentAmount *decimal.Decimal, count int, mode string) (LoanValues, error) {
	n := decimal.NewFromInt(int64(SafeCount(count)))

	var values LoanValues
	switch mode {
	case domain.CalcModeFinalValue:
		if finalAmount == nil {
			return LoanValues{}, customError.Validation("valor_final é obrigatório quando tipo_calculo é valor_final", nil)
		}
		values.FinalAmount = finalAmount.Round(2)
		values.EffectiveRate = backComputeRate(principal, values.FinalAmount)
	case domain.CalcModeFixedInstall:
		if installmentAmount == nil {
			return LoanValues{}, customError.Validation("valor_parcela é obrigatório quando tipo_calculo é parcela_fixa", nil)
		}
		values.FinalAmount = installmentAmount.Round(2).Mul(n)
		values.EffectiveRate = backComputeRate(principal, values.FinalAmount)
	default:
		// Formula: Principal * (1 + rate/100)
		values.FinalAmount = principal.Mul(decimal.NewFromInt(1).Add(rate.Div(hundred))).Round(2)
		values.EffectiveRate = rate.Round(2)
	}

	values.InstallmentAmount = installmentShare(values.FinalAmount, SafeCount(count))
	if values.InstallmentAmount.LessThan(minShare) {
		return LoanValues{}, customError.Validation(
			fmt.Sprintf("Valor final %s não comporta %d parcelas de pelo menos 0.01", values.FinalAmount.StringFixed(2), SafeCount(count)),
			nil,
		)
	}

	return values, nil
}

// installmentShare is total/count rounded down to the cent.
func installmentShare(total decimal.Decimal, count int) decimal.Decimal {
	return total.Div(decimal.NewFromInt(int64(count))).RoundFloor(2)
}

// SafeCount treats a missing or non-positive installment count as a single payment.
func SafeCount(count int) int {
	if count <= 0 {
		return 1
	}
	return count
}

func backComputeRate(principal, finalAmount decimal.Decimal) decimal.Decimal {
	if principal.IsZero() {
		return decimal.Zero
	}
	return finalAmount.Sub(principal).Div(principal).Mul(hundred).Round(2)
}

// CalculateDueDate returns the due date of the given installment (1-based)
// when the first one falls on first.
func CalculateDueDate(first domain.Date, frequency string, number int) domain.Date {
	step := number - 1
	switch frequency {
	case domain.FrequencyDaily:
		return first.AddDays(step)
	case domain.FrequencyWeekly:
		return first.AddDays(7 * step)
	case domain.FrequencyBiweekly:
		return first.AddDays(14 * step)
	default:
		return first.AddMonths(step)
	}
}

// BuildSchedule generates the installments of a loan. Every installment but
// the last is worth the final amount split evenly and rounded down; the last
// takes the remainder, so the schedule sums to the final amount and no
// installment is worth less than the others.
func BuildSchedule(loan *domain.Loan) []*domain.Installment {
	count := SafeCount(loan.InstallmentCount)
	if loan.LoanType != domain.LoanTypeInstallments {
		count = 1
	}

	share := installmentShare(loan.FinalAmount, count)
	installments := make([]*domain.Installment, 0, count)
	allocated := decimal.Zero
	for number := 1; number <= count; number++ {
		amount := share
		if number == count {
			amount = loan.FinalAmount.Sub(allocated)
		}
		allocated = allocated.Add(amount)

		installments = append(installments, &domain.Installment{
			LoanID:     loan.ID,
			Number:     number,
			Amount:     amount,
			DueDate:    CalculateDueDate(loan.DueDate, loan.Frequency, number),
			Status:     domain.InstallmentStatusPending,
			PaidAmount: decimal.Zero,
		})
	}

	return installments
}

// AgeCharge recomputes the collection figures of a charge on the given day.
// Interest accrues daily at the loan's monthly rate over 30 days, the late
// penalty is charged once, both on the original amount.
func AgeCharge(charge *domain.Charge, loan *domain.Loan, installments []*domain.Installment, today domain.Date) {
	ev := domain.Evaluate(loan, installments, today)

	outstanding := charge.OriginalAmount
	if len(installments) > 0 {
		outstanding = domain.OutstandingBalance(installments)
	}

	if ev.NextDue != nil {
		charge.DueDate = *ev.NextDue
	}

	charge.DaysOverdue = 0
	charge.Interest = decimal.Zero
	charge.Penalty = decimal.Zero

	switch ev.Status {
	case domain.LoanStatusSettled:
		charge.Status = domain.ChargeStatusPaid
		charge.CurrentAmount = decimal.Zero
		return
	case domain.LoanStatusOverdue:
		days := decimal.NewFromInt(int64(ev.DaysOverdue))
		charge.DaysOverdue = ev.DaysOverdue
		charge.Penalty = charge.OriginalAmount.Mul(loan.LatePenaltyRate).Div(hundred).Round(2)
		charge.Interest = charge.OriginalAmount.Mul(loan.MonthlyRate).Div(hundred).Div(daysPerMon).Mul(days).Round(2)
	}

	charge.Status = domain.ChargeStatusPending
	charge.CurrentAmount = outstanding.Add(charge.Interest).Add(charge.Penalty).Round(2)
}
