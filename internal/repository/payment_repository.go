package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/jpsistemas/jp-cobrancas/internal/domain"
)

type paymentRepository struct {
	db sqlx.ExtContext
}

func NewPaymentRepository(db sqlx.ExtContext) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO pagamentos (cobranca_id, valor_pago, data_pagamento, forma_pagamento, observacoes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	stamp(&payment.CreatedAt, nil)
	res, err := r.db.ExecContext(ctx, query,
		payment.ChargeID,
		payment.Amount,
		payment.PaidOn,
		payment.Method,
		payment.Notes,
		payment.CreatedAt,
	)
	if err != nil {
		return err
	}

	payment.ID, err = res.LastInsertId()
	return err
}

func (r *paymentRepository) ListByCharge(ctx context.Context, chargeID int64) ([]*domain.Payment, error) {
	query := `
		SELECT id, cobranca_id, valor_pago, data_pagamento, forma_pagamento,
			COALESCE(observacoes, '') AS observacoes, created_at
		FROM pagamentos
		WHERE cobranca_id = ?
		ORDER BY data_pagamento, id
	`

	payments := []*domain.Payment{}
	if err := sqlx.SelectContext(ctx, r.db, &payments, query, chargeID); err != nil {
		return nil, err
	}
	return payments, nil
}
