package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jpsistemas/jp-cobrancas/internal/domain"
)

const installmentColumns = `id, emprestimo_id, numero_parcela, valor_parcela, data_vencimento, status,
	valor_pago, data_pagamento, created_at, updated_at`

type installmentRepository struct {
	db sqlx.ExtContext
}

func NewInstallmentRepository(db sqlx.ExtContext) InstallmentRepository {
	return &installmentRepository{db: db}
}

func (r *installmentRepository) CreateBatch(ctx context.Context, installments []*domain.Installment) error {
	query := `
		INSERT INTO parcelas (emprestimo_id, numero_parcela, valor_parcela, data_vencimento, status, valor_pago,
			data_pagamento, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, inst := range installments {
		stamp(&inst.CreatedAt, &inst.UpdatedAt)
		res, err := r.db.ExecContext(ctx, query,
			inst.LoanID,
			inst.Number,
			inst.Amount,
			inst.DueDate,
			inst.Status,
			inst.PaidAmount,
			inst.PaidDate,
			inst.CreatedAt,
			inst.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if inst.ID, err = res.LastInsertId(); err != nil {
			return err
		}
	}

	return nil
}

func (r *installmentRepository) ListByLoan(ctx context.Context, loanID int64) ([]*domain.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM parcelas WHERE emprestimo_id = ? ORDER BY numero_parcela`

	installments := []*domain.Installment{}
	if err := sqlx.SelectContext(ctx, r.db, &installments, query, loanID); err != nil {
		return nil, err
	}
	return installments, nil
}

func (r *installmentRepository) ListAll(ctx context.Context) ([]*domain.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM parcelas ORDER BY emprestimo_id, numero_parcela`

	installments := []*domain.Installment{}
	if err := sqlx.SelectContext(ctx, r.db, &installments, query); err != nil {
		return nil, err
	}
	return installments, nil
}

func (r *installmentRepository) Update(ctx context.Context, installment *domain.Installment) error {
	query := `
		UPDATE parcelas
		SET data_vencimento = ?, status = ?, valor_pago = ?, data_pagamento = ?, updated_at = ?
		WHERE id = ?
	`

	installment.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		installment.DueDate,
		installment.Status,
		installment.PaidAmount,
		installment.PaidDate,
		installment.UpdatedAt,
		installment.ID,
	)
	return err
}
