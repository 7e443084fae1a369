package domain

import "github.com/shopspring/decimal"

// StatusTotals counts loans in one derived status and sums what they are worth.
type StatusTotals struct {
	Count       int             `json:"quantidade"`
	Principal   decimal.Decimal `json:"valor_emprestado"`
	Outstanding decimal.Decimal `json:"saldo_devedor"`
}

// DashboardTotals holds the figures that come straight from SQL aggregates.
type DashboardTotals struct {
	Clients            int             `json:"total_clientes" db:"total_clientes"`
	BlacklistedClients int             `json:"clientes_lista_negra" db:"clientes_lista_negra"`
	PendingCharges     int             `json:"cobrancas_pendentes" db:"cobrancas_pendentes"`
	PendingAmount      decimal.Decimal `json:"valor_pendente" db:"valor_pendente"`
	OverdueCharges     int             `json:"cobrancas_atrasadas" db:"cobrancas_atrasadas"`
	OverdueAmount      decimal.Decimal `json:"valor_atrasado" db:"valor_atrasado"`
	TotalReceived      decimal.Decimal `json:"total_recebido" db:"total_recebido"`
}

// DashboardSummary is the response of the dashboard endpoint.
type DashboardSummary struct {
	Date  Date                    `json:"data_referencia"`
	Loans map[string]StatusTotals `json:"emprestimos"`
	DashboardTotals
	TotalLent decimal.Decimal `json:"total_emprestado"`
}
