package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethodCash is recorded when the payer does not say how they paid.
const PaymentMethodCash = "dinheiro"

// Payment is an append-only ledger row recorded against a charge
type Payment struct {
	ID        int64           `json:"id" db:"id"`
	ChargeID  int64           `json:"cobranca_id" db:"cobranca_id"`
	Amount    decimal.Decimal `json:"valor_pago" db:"valor_pago"`
	PaidOn    Date            `json:"data_pagamento" db:"data_pagamento"`
	Method    string          `json:"forma_pagamento" db:"forma_pagamento"`
	Notes     string          `json:"observacoes" db:"observacoes"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// PaymentReceipt is returned after a payment is applied to a loan.
type PaymentReceipt struct {
	Payment     *Payment        `json:"pagamento"`
	LoanStatus  string          `json:"status_emprestimo"`
	Outstanding decimal.Decimal `json:"saldo_devedor"`
}
