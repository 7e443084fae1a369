package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jpsistemas/jp-cobrancas/internal/domain"
)

const orderColumns = `id, cliente_nome, produto, quantidade, valor_unitario, valor_total, status,
	COALESCE(observacoes, '') AS observacoes, created_at, updated_at`

type orderRepository struct {
	db sqlx.ExtContext
}

func NewOrderRepository(db sqlx.ExtContext) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO pedidos (cliente_nome, produto, quantidade, valor_unitario, valor_total, status, observacoes,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	stamp(&order.CreatedAt, &order.UpdatedAt)
	res, err := r.db.ExecContext(ctx, query,
		order.ClientName,
		order.Product,
		order.Quantity,
		order.UnitPrice,
		order.Total,
		order.Status,
		order.Notes,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return err
	}

	order.ID, err = res.LastInsertId()
	return err
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM pedidos WHERE id = ?`

	var order domain.Order
	if err := sqlx.GetContext(ctx, r.db, &order, query, id); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM pedidos WHERE 1 = 1`
	var args []interface{}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		query += ` AND (cliente_nome LIKE ? OR produto LIKE ?)`
		pattern := containsPattern(filter.Search)
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	orders := []*domain.Order{}
	if err := sqlx.SelectContext(ctx, r.db, &orders, query, args...); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) Update(ctx context.Context, order *domain.Order) error {
	query := `
		UPDATE pedidos
		SET cliente_nome = ?, produto = ?, quantidade = ?, valor_unitario = ?, valor_total = ?, status = ?,
			observacoes = ?, updated_at = ?
		WHERE id = ?
	`

	order.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		order.ClientName,
		order.Product,
		order.Quantity,
		order.UnitPrice,
		order.Total,
		order.Status,
		order.Notes,
		order.UpdatedAt,
		order.ID,
	)
	return err
}

func (r *orderRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pedidos WHERE id = ?`, id)
	return err
}
