package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jpsistemas/jp-cobrancas/internal/domain"
)

const chargeColumns = `c.id, c.emprestimo_id, c.cliente_id, c.valor_original, c.valor_atualizado,
	c.juros_calculados, c.multa_calculada, c.data_vencimento, c.dias_atraso, c.status, c.created_at, c.updated_at`

type chargeRepository struct {
	db sqlx.ExtContext
}

func NewChargeRepository(db sqlx.ExtContext) ChargeRepository {
	return &chargeRepository{db: db}
}

func (r *chargeRepository) Create(ctx context.Context, charge *domain.Charge) error {
	query := `
		INSERT INTO cobrancas (emprestimo_id, cliente_id, valor_original, valor_atualizado, juros_calculados,
			multa_calculada, data_vencimento, dias_atraso, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	stamp(&charge.CreatedAt, &charge.UpdatedAt)
	res, err := r.db.ExecContext(ctx, query,
		charge.LoanID,
		charge.ClientID,
		charge.OriginalAmount,
		charge.CurrentAmount,
		charge.Interest,
		charge.Penalty,
		charge.DueDate,
		charge.DaysOverdue,
		charge.Status,
		charge.CreatedAt,
		charge.UpdatedAt,
	)
	if err != nil {
		return err
	}

	charge.ID, err = res.LastInsertId()
	return err
}

func (r *chargeRepository) GetByID(ctx context.Context, id int64) (*domain.ChargeView, error) {
	query := `
		SELECT ` + chargeColumns + `, COALESCE(cl.nome, '') AS cliente_nome
		FROM cobrancas c
		LEFT JOIN clientes_cobrancas cl ON cl.id = c.cliente_id
		WHERE c.id = ?`

	var charge domain.ChargeView
	if err := sqlx.GetContext(ctx, r.db, &charge, query, id); err != nil {
		return nil, err
	}
	return &charge, nil
}

func (r *chargeRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Charge, error) {
	query := `SELECT ` + chargeColumns + ` FROM cobrancas c WHERE c.id = ? FOR UPDATE`

	var charge domain.Charge
	if err := sqlx.GetContext(ctx, r.db, &charge, query, id); err != nil {
		return nil, err
	}
	return &charge, nil
}

func (r *chargeRepository) GetByLoanForUpdate(ctx context.Context, loanID int64) (*domain.Charge, error) {
	query := `SELECT ` + chargeColumns + ` FROM cobrancas c WHERE c.emprestimo_id = ? FOR UPDATE`

	var charge domain.Charge
	if err := sqlx.GetContext(ctx, r.db, &charge, query, loanID); err != nil {
		return nil, err
	}
	return &charge, nil
}

func (r *chargeRepository) List(ctx context.Context, filter domain.ChargeFilter) ([]*domain.ChargeView, error) {
	query := `
		SELECT ` + chargeColumns + `, COALESCE(cl.nome, '') AS cliente_nome
		FROM cobrancas c
		LEFT JOIN clientes_cobrancas cl ON cl.id = c.cliente_id
		WHERE 1 = 1`
	var args []interface{}

	if filter.Status != "" {
		query += ` AND c.status = ?`
		args = append(args, filter.Status)
	}
	if filter.ClientID > 0 {
		query += ` AND c.cliente_id = ?`
		args = append(args, filter.ClientID)
	}
	if filter.OverdueOnly {
		query += ` AND c.status = ? AND c.dias_atraso > 0`
		args = append(args, domain.ChargeStatusPending)
	}
	query += ` ORDER BY c.data_vencimento, c.id`

	charges := []*domain.ChargeView{}
	if err := sqlx.SelectContext(ctx, r.db, &charges, query, args...); err != nil {
		return nil, err
	}
	return charges, nil
}

func (r *chargeRepository) ListPending(ctx context.Context) ([]*domain.Charge, error) {
	query := `SELECT ` + chargeColumns + ` FROM cobrancas c WHERE c.status = ? ORDER BY c.id`

	charges := []*domain.Charge{}
	if err := sqlx.SelectContext(ctx, r.db, &charges, query, domain.ChargeStatusPending); err != nil {
		return nil, err
	}
	return charges, nil
}

func (r *chargeRepository) Update(ctx context.Context, charge *domain.Charge) error {
	query := `
		UPDATE cobrancas
		SET cliente_id = ?, valor_atualizado = ?, juros_calculados = ?, multa_calculada = ?, data_vencimento = ?,
			dias_atraso = ?, status = ?, updated_at = ?
		WHERE id = ?
	`

	charge.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		charge.ClientID,
		charge.CurrentAmount,
		charge.Interest,
		charge.Penalty,
		charge.DueDate,
		charge.DaysOverdue,
		charge.Status,
		charge.UpdatedAt,
		charge.ID,
	)
	return err
}
