package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jpsistemas/jp-cobrancas/internal/domain"
)

const clientColumns = `id, nome, cpf_cnpj, telefone, email, endereco, cidade, estado, cep, status,
	motivo_lista_negra, COALESCE(observacoes, '') AS observacoes, created_at, updated_at`

type clientRepository struct {
	db sqlx.ExtContext
}

func NewClientRepository(db sqlx.ExtContext) ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) Create(ctx context.Context, client *domain.Client) error {
	query := `
		INSERT INTO clientes_cobrancas (nome, cpf_cnpj, telefone, email, endereco, cidade, estado, cep,
			status, motivo_lista_negra, observacoes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	stamp(&client.CreatedAt, &client.UpdatedAt)
	res, err := r.db.ExecContext(ctx, query,
		client.Name,
		client.TaxID,
		client.Phone,
		client.Email,
		client.Address,
		client.City,
		client.State,
		client.ZipCode,
		client.Status,
		client.BlacklistReason,
		client.Notes,
		client.CreatedAt,
		client.UpdatedAt,
	)
	if err != nil {
		return err
	}

	client.ID, err = res.LastInsertId()
	return err
}

func (r *clientRepository) GetByID(ctx context.Context, id int64) (*domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clientes_cobrancas WHERE id = ?`

	var client domain.Client
	if err := sqlx.GetContext(ctx, r.db, &client, query, id); err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) List(ctx context.Context, filter domain.ClientFilter) ([]*domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clientes_cobrancas WHERE 1 = 1`
	var args []interface{}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		query += ` AND (nome LIKE ? OR cpf_cnpj LIKE ?)`
		pattern := containsPattern(filter.Search)
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY nome`

	clients := []*domain.Client{}
	if err := sqlx.SelectContext(ctx, r.db, &clients, query, args...); err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *clientRepository) Update(ctx context.Context, client *domain.Client) error {
	query := `
		UPDATE clientes_cobrancas
		SET nome = ?, cpf_cnpj = ?, telefone = ?, email = ?, endereco = ?, cidade = ?, estado = ?, cep = ?,
			status = ?, motivo_lista_negra = ?, observacoes = ?, updated_at = ?
		WHERE id = ?
	`

	client.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		client.Name,
		client.TaxID,
		client.Phone,
		client.Email,
		client.Address,
		client.City,
		client.State,
		client.ZipCode,
		client.Status,
		client.BlacklistReason,
		client.Notes,
		client.UpdatedAt,
		client.ID,
	)
	return err
}

func (r *clientRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM clientes_cobrancas WHERE id = ?`, id)
	return err
}
