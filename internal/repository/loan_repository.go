package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jpsistemas/jp-cobrancas/internal/domain"
)

const loanColumns = `e.id, e.cliente_id, e.valor, e.data_emprestimo, e.data_vencimento, e.juros_mensal,
	e.multa_atraso, COALESCE(e.observacoes, '') AS observacoes, e.tipo_emprestimo, e.numero_parcelas,
	e.frequencia, e.valor_parcela, e.valor_final, e.tipo_calculo, e.status, e.created_at, e.updated_at`

type loanRepository struct {
	db sqlx.ExtContext
}

func NewLoanRepository(db sqlx.ExtContext) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO emprestimos (cliente_id, valor, data_emprestimo, data_vencimento, juros_mensal, multa_atraso,
			observacoes, tipo_emprestimo, numero_parcelas, frequencia, valor_parcela, valor_final, tipo_calculo,
			status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	stamp(&loan.CreatedAt, &loan.UpdatedAt)
	res, err := r.db.ExecContext(ctx, query,
		loan.ClientID,
		loan.Amount,
		loan.LoanDate,
		loan.DueDate,
		loan.MonthlyRate,
		loan.LatePenaltyRate,
		loan.Notes,
		loan.LoanType,
		loan.InstallmentCount,
		loan.Frequency,
		loan.InstallmentAmount,
		loan.FinalAmount,
		loan.CalcMode,
		loan.Status,
		loan.CreatedAt,
		loan.UpdatedAt,
	)
	if err != nil {
		return err
	}

	loan.ID, err = res.LastInsertId()
	return err
}

func (r *loanRepository) GetByID(ctx context.Context, id int64) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM emprestimos e WHERE e.id = ?`

	var loan domain.Loan
	if err := sqlx.GetContext(ctx, r.db, &loan, query, id); err != nil {
		return nil, err
	}
	loan.Status = domain.NormalizeLoanStatus(loan.Status)
	return &loan, nil
}

func (r *loanRepository) List(ctx context.Context, filter domain.LoanFilter) ([]*domain.LoanView, error) {
	query := `
		SELECT ` + loanColumns + `, COALESCE(c.nome, '') AS cliente_nome
		FROM emprestimos e
		LEFT JOIN clientes_cobrancas c ON c.id = e.cliente_id
		WHERE 1 = 1`
	var args []interface{}

	if filter.ClientID > 0 {
		query += ` AND e.cliente_id = ?`
		args = append(args, filter.ClientID)
	}
	query += ` ORDER BY e.data_emprestimo DESC, e.id DESC`

	loans := []*domain.LoanView{}
	if err := sqlx.SelectContext(ctx, r.db, &loans, query, args...); err != nil {
		return nil, err
	}
	for _, l := range loans {
		l.Status = domain.NormalizeLoanStatus(l.Status)
	}
	return loans, nil
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	query := `
		UPDATE emprestimos
		SET cliente_id = ?, data_vencimento = ?, juros_mensal = ?, multa_atraso = ?, observacoes = ?,
			status = ?, updated_at = ?
		WHERE id = ?
	`

	loan.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		loan.ClientID,
		loan.DueDate,
		loan.MonthlyRate,
		loan.LatePenaltyRate,
		loan.Notes,
		loan.Status,
		loan.UpdatedAt,
		loan.ID,
	)
	return err
}

func (r *loanRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE emprestimos SET status = ?, updated_at = ? WHERE id = ? AND status <> ?`

	_, err := r.db.ExecContext(ctx, query, status, time.Now(), id, status)
	return err
}

func (r *loanRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM emprestimos WHERE id = ?`, id)
	return err
}

func (r *loanRepository) CountUnsettledByClient(ctx context.Context, clientID int64) (int, error) {
	query := `SELECT COUNT(*) FROM emprestimos WHERE cliente_id = ? AND status <> ?`

	var count int
	if err := sqlx.GetContext(ctx, r.db, &count, query, clientID, domain.LoanStatusSettled); err != nil {
		return 0, err
	}
	return count, nil
}
