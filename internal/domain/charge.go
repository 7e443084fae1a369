package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ChargeStatusPending = "Pendente"
	ChargeStatusPaid    = "Paga"
)

// Charge represents the amount currently owed on a loan, tracked for collection
type Charge struct {
	ID             int64           `json:"id" db:"id"`
	LoanID         int64           `json:"emprestimo_id" db:"emprestimo_id"`
	ClientID       *int64          `json:"cliente_id" db:"cliente_id"`
	OriginalAmount decimal.Decimal `json:"valor_original" db:"valor_original"`
	CurrentAmount  decimal.Decimal `json:"valor_atualizado" db:"valor_atualizado"`
	Interest       decimal.Decimal `json:"juros_calculados" db:"juros_calculados"`
	Penalty        decimal.Decimal `json:"multa_calculada" db:"multa_calculada"`
	DueDate        Date            `json:"data_vencimento" db:"data_vencimento"`
	DaysOverdue    int             `json:"dias_atraso" db:"dias_atraso"`
	Status         string          `json:"status" db:"status"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// ChargeView adds the names the collection screen shows next to a charge.
type ChargeView struct {
	Charge
	ClientName string `json:"cliente_nome" db:"cliente_nome"`
}

type ChargeFilter struct {
	Status   string
	ClientID int64
	// OverdueOnly keeps pending charges with at least one day of delay.
	OverdueOnly bool
}

type PayChargeRequest struct {
	Amount decimal.Decimal `json:"valor" validate:"gt=0"`
	PaidOn Date            `json:"data_pagamento"`
	Method string          `json:"forma_pagamento" validate:"max=50"`
	Notes  string          `json:"observacoes"`
}
