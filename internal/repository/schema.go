package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is applied statement by statement; the driver runs without
// multiStatements.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS clientes_cobrancas (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		nome VARCHAR(255) NOT NULL,
		cpf_cnpj VARCHAR(20) NOT NULL DEFAULT '',
		telefone VARCHAR(30) NOT NULL DEFAULT '',
		email VARCHAR(255) NOT NULL DEFAULT '',
		endereco VARCHAR(255) NOT NULL DEFAULT '',
		cidade VARCHAR(100) NOT NULL DEFAULT '',
		estado VARCHAR(2) NOT NULL DEFAULT '',
		cep VARCHAR(10) NOT NULL DEFAULT '',
		status VARCHAR(20) NOT NULL DEFAULT 'Ativo',
		motivo_lista_negra VARCHAR(500) NOT NULL DEFAULT '',
		observacoes TEXT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_clientes_status (status),
		INDEX idx_clientes_nome (nome)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS emprestimos (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		cliente_id BIGINT NULL,
		valor DECIMAL(12,2) NOT NULL,
		data_emprestimo DATE NULL,
		data_vencimento DATE NOT NULL,
		juros_mensal DECIMAL(10,2) NOT NULL DEFAULT 0,
		multa_atraso DECIMAL(10,2) NOT NULL DEFAULT 0,
		observacoes TEXT NULL,
		tipo_emprestimo VARCHAR(20) NOT NULL DEFAULT 'fixed',
		numero_parcelas INT NOT NULL DEFAULT 1,
		frequencia VARCHAR(20) NOT NULL DEFAULT 'monthly',
		valor_parcela DECIMAL(12,2) NOT NULL DEFAULT 0,
		valor_final DECIMAL(12,2) NOT NULL DEFAULT 0,
		tipo_calculo VARCHAR(20) NOT NULL DEFAULT 'valor_inicial',
		status VARCHAR(20) NOT NULL DEFAULT 'Ativo',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_emprestimos_cliente (cliente_id),
		CONSTRAINT fk_emprestimos_cliente FOREIGN KEY (cliente_id)
			REFERENCES clientes_cobrancas (id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS parcelas (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		emprestimo_id BIGINT NOT NULL,
		numero_parcela INT NOT NULL,
		valor_parcela DECIMAL(12,2) NOT NULL,
		data_vencimento DATE NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'Pendente',
		valor_pago DECIMAL(12,2) NOT NULL DEFAULT 0,
		data_pagamento DATE NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_parcela (emprestimo_id, numero_parcela),
		CONSTRAINT fk_parcelas_emprestimo FOREIGN KEY (emprestimo_id)
			REFERENCES emprestimos (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS cobrancas (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		emprestimo_id BIGINT NOT NULL,
		cliente_id BIGINT NULL,
		valor_original DECIMAL(12,2) NOT NULL,
		valor_atualizado DECIMAL(12,2) NOT NULL,
		juros_calculados DECIMAL(12,2) NOT NULL DEFAULT 0,
		multa_calculada DECIMAL(12,2) NOT NULL DEFAULT 0,
		data_vencimento DATE NOT NULL,
		dias_atraso INT NOT NULL DEFAULT 0,
		status VARCHAR(20) NOT NULL DEFAULT 'Pendente',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_cobranca_emprestimo (emprestimo_id),
		INDEX idx_cobrancas_status (status),
		CONSTRAINT fk_cobrancas_emprestimo FOREIGN KEY (emprestimo_id)
			REFERENCES emprestimos (id) ON DELETE CASCADE,
		CONSTRAINT fk_cobrancas_cliente FOREIGN KEY (cliente_id)
			REFERENCES clientes_cobrancas (id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS pagamentos (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		cobranca_id BIGINT NOT NULL,
		valor_pago DECIMAL(12,2) NOT NULL,
		data_pagamento DATE NOT NULL,
		forma_pagamento VARCHAR(50) NOT NULL DEFAULT 'dinheiro',
		observacoes TEXT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT fk_pagamentos_cobranca FOREIGN KEY (cobranca_id)
			REFERENCES cobrancas (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS pedidos (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		cliente_nome VARCHAR(255) NOT NULL,
		produto VARCHAR(255) NOT NULL,
		quantidade INT NOT NULL,
		valor_unitario DECIMAL(12,2) NOT NULL,
		valor_total DECIMAL(12,2) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pendente',
		observacoes TEXT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_pedidos_status (status)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates any missing table of a tenant database.
func EnsureSchema(ctx context.Context, db sqlx.ExecerContext) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
