package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/jpsistemas/jp-cobrancas/internal/domain"
)

type dashboardRepository struct {
	db sqlx.ExtContext
}

func NewDashboardRepository(db sqlx.ExtContext) DashboardRepository {
	return &dashboardRepository{db: db}
}

// Totals reads the client, charge and payment aggregates in one round trip.
// Charges are considered overdue once aging has recorded a delay.
func (r *dashboardRepository) Totals(ctx context.Context) (*domain.DashboardTotals, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM clientes_cobrancas) AS total_clientes,
			(SELECT COUNT(*) FROM clientes_cobrancas WHERE status = ?) AS clientes_lista_negra,
			(SELECT COUNT(*) FROM cobrancas WHERE status = ?) AS cobrancas_pendentes,
			(SELECT COALESCE(SUM(valor_atualizado), 0) FROM cobrancas WHERE status = ?) AS valor_pendente,
			(SELECT COUNT(*) FROM cobrancas WHERE status = ? AND dias_atraso > 0) AS cobrancas_atrasadas,
			(SELECT COALESCE(SUM(valor_atualizado), 0) FROM cobrancas WHERE status = ? AND dias_atraso > 0) AS valor_atrasado,
			(SELECT COALESCE(SUM(valor_pago), 0) FROM pagamentos) AS total_recebido
	`

	var totals domain.DashboardTotals
	err := sqlx.GetContext(ctx, r.db, &totals, query,
		domain.ClientStatusBlacklist,
		domain.ChargeStatusPending,
		domain.ChargeStatusPending,
		domain.ChargeStatusPending,
		domain.ChargeStatusPending,
	)
	if err != nil {
		return nil, err
	}
	return &totals, nil
}
