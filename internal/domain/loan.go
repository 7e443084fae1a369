package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	LoanStatusActive        = "Ativo"
	LoanStatusPending       = "Pendente"
	LoanStatusOverdue       = "Atrasado"
	LoanStatusOverdueLegacy = "Em Atraso"
	LoanStatusSettled       = "Quitado"
)

const (
	LoanTypeFixed        = "fixed"
	LoanTypeInstallments = "in_installments"
)

const (
	FrequencyDaily    = "daily"
	FrequencyWeekly   = "weekly"
	FrequencyBiweekly = "biweekly"
	FrequencyMonthly  = "monthly"
)

// Calculation modes name which value the user typed in as the anchor.
const (
	CalcModeInitialValue = "valor_inicial"
	CalcModeFinalValue   = "valor_final"
	CalcModeFixedInstall = "parcela_fixa"
)

// Loan represents a loan entity
type Loan struct {
	ID                int64           `json:"id" db:"id"`
	ClientID          *int64          `json:"cliente_id" db:"cliente_id"`
	Amount            decimal.Decimal `json:"valor" db:"valor"`
	LoanDate          Date            `json:"data_emprestimo" db:"data_emprestimo"`
	DueDate           Date            `json:"data_vencimento" db:"data_vencimento"`
	MonthlyRate       decimal.Decimal `json:"juros_mensal" db:"juros_mensal"`
	LatePenaltyRate   decimal.Decimal `json:"multa_atraso" db:"multa_atraso"`
	Notes             string          `json:"observacoes" db:"observacoes"`
	LoanType          string          `json:"tipo_emprestimo" db:"tipo_emprestimo"`
	InstallmentCount  int             `json:"numero_parcelas" db:"numero_parcelas"`
	Frequency         string          `json:"frequencia" db:"frequencia"`
	InstallmentAmount decimal.Decimal `json:"valor_parcela" db:"valor_parcela"`
	FinalAmount       decimal.Decimal `json:"valor_final" db:"valor_final"`
	CalcMode          string          `json:"tipo_calculo" db:"tipo_calculo"`
	Status            string          `json:"status" db:"status"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// NormalizeLoanStatus maps legacy spellings onto the current status set.
func NormalizeLoanStatus(status string) string {
	if status == LoanStatusOverdueLegacy {
		return LoanStatusOverdue
	}
	return status
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	ClientID          int64            `json:"cliente_id" validate:"required,gt=0"`
	Amount            decimal.Decimal  `json:"valor" validate:"gt=0"`
	LoanDate          Date             `json:"data_emprestimo"`
	DueDate           Date             `json:"data_vencimento" validate:"required"`
	MonthlyRate       decimal.Decimal  `json:"juros_mensal" validate:"gte=0"`
	LatePenaltyRate   decimal.Decimal  `json:"multa_atraso" validate:"gte=0"`
	Notes             string           `json:"observacoes"`
	LoanType          string           `json:"tipo_emprestimo" validate:"omitempty,oneof=fixed in_installments"`
	InstallmentCount  int              `json:"numero_parcelas" validate:"gte=0,lte=360"`
	Frequency         string           `json:"frequencia" validate:"omitempty,oneof=daily weekly biweekly monthly"`
	CalcMode          string           `json:"tipo_calculo" validate:"omitempty,oneof=valor_inicial valor_final parcela_fixa"`
	FinalAmount       *decimal.Decimal `json:"valor_final,omitempty"`
	InstallmentAmount *decimal.Decimal `json:"valor_parcela,omitempty"`
}

type UpdateLoanRequest struct {
	ClientID        *int64           `json:"cliente_id" validate:"omitempty,gt=0"`
	DueDate         *Date            `json:"data_vencimento"`
	MonthlyRate     *decimal.Decimal `json:"juros_mensal" validate:"omitempty,gte=0"`
	LatePenaltyRate *decimal.Decimal `json:"multa_atraso" validate:"omitempty,gte=0"`
	Notes           *string          `json:"observacoes"`
}

// SettleLoanRequest pays off everything still owed on a loan at once.
type SettleLoanRequest struct {
	PaidOn Date   `json:"data_pagamento"`
	Method string `json:"forma_pagamento" validate:"max=50"`
	Notes  string `json:"observacoes"`
}

type CreateLoanResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

type LoanFilter struct {
	ClientID int64
	Status   string
}

// LoanView is a loan as displayed: stored fields plus the derived status.
type LoanView struct {
	*Loan
	ClientName   string         `json:"cliente_nome,omitempty" db:"cliente_nome"`
	Evaluation   Evaluation     `json:"avaliacao"`
	Installments []*Installment `json:"parcelas,omitempty"`
}
