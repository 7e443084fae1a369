package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	InstallmentStatusPending = "Pendente"
	InstallmentStatusPaid    = "Paga"
	InstallmentStatusOverdue = "Atrasada"
)

// Installment represents one scheduled payment of a loan
type Installment struct {
	ID         int64           `json:"id" db:"id"`
	LoanID     int64           `json:"emprestimo_id" db:"emprestimo_id"`
	Number     int             `json:"numero_parcela" db:"numero_parcela"`
	Amount     decimal.Decimal `json:"valor_parcela" db:"valor_parcela"`
	DueDate    Date            `json:"data_vencimento" db:"data_vencimento"`
	Status     string          `json:"status" db:"status"`
	PaidAmount decimal.Decimal `json:"valor_pago" db:"valor_pago"`
	PaidDate   *Date           `json:"data_pagamento" db:"data_pagamento"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

func (i *Installment) IsPaid() bool {
	return i.Status == InstallmentStatusPaid
}

// Remaining is what is still owed on the installment, never negative.
func (i *Installment) Remaining() decimal.Decimal {
	if i.IsPaid() {
		return decimal.Zero
	}
	rest := i.Amount.Sub(i.PaidAmount)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

type PayInstallmentRequest struct {
	Amount *decimal.Decimal `json:"valor_pago" validate:"omitempty,gt=0"`
	PaidOn Date             `json:"data_pagamento"`
	Method string           `json:"forma_pagamento" validate:"max=50"`
	Notes  string           `json:"observacoes"`
}

// Allocation records how much of a payment went to one installment.
type Allocation struct {
	Installment *Installment
	Amount      decimal.Decimal
}

// AllocatePayment spreads amount over the unpaid installments in sequence
// order, mutating them in place. It returns the touched installments and any
// amount left over after every installment is paid.
func AllocatePayment(installments []*Installment, amount decimal.Decimal, paidOn Date) ([]Allocation, decimal.Decimal) {
	var allocations []Allocation
	left := amount

	for _, inst := range SortInstallments(installments) {
		if !left.IsPositive() {
			break
		}
		due := inst.Remaining()
		if !due.IsPositive() {
			continue
		}

		part := decimal.Min(due, left)
		inst.PaidAmount = inst.PaidAmount.Add(part)
		left = left.Sub(part)

		if inst.PaidAmount.GreaterThanOrEqual(inst.Amount) {
			inst.Status = InstallmentStatusPaid
			paid := paidOn
			inst.PaidDate = &paid
		}
		allocations = append(allocations, Allocation{Installment: inst, Amount: part})
	}

	return allocations, left
}

// OutstandingBalance sums what is still owed across installments.
func OutstandingBalance(installments []*Installment) decimal.Decimal {
	total := decimal.Zero
	for _, inst := range installments {
		total = total.Add(inst.Remaining())
	}
	return total
}
