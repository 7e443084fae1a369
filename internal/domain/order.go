package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending   = "pendente"
	OrderStatusDone      = "concluido"
	OrderStatusCancelled = "cancelado"
)

// Order is a JP Sistemas order, kept in the same tenant database as the loans.
type Order struct {
	ID         int64           `json:"id" db:"id"`
	ClientName string          `json:"cliente_nome" db:"cliente_nome"`
	Product    string          `json:"produto" db:"produto"`
	Quantity   int             `json:"quantidade" db:"quantidade"`
	UnitPrice  decimal.Decimal `json:"valor_unitario" db:"valor_unitario"`
	Total      decimal.Decimal `json:"valor_total" db:"valor_total"`
	Status     string          `json:"status" db:"status"`
	Notes      string          `json:"observacoes" db:"observacoes"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

// Recalculate keeps the total in line with quantity and unit price.
func (o *Order) Recalculate() {
	o.Total = o.UnitPrice.Mul(decimal.NewFromInt(int64(o.Quantity))).Round(2)
}

type CreateOrderRequest struct {
	ClientName string          `json:"cliente_nome" validate:"clientname,max=255"`
	Product    string          `json:"produto" validate:"required,max=255"`
	Quantity   int             `json:"quantidade" validate:"gt=0"`
	UnitPrice  decimal.Decimal `json:"valor_unitario" validate:"gte=0"`
	Status     string          `json:"status" validate:"omitempty,oneof=pendente concluido cancelado"`
	Notes      string          `json:"observacoes"`
}

type UpdateOrderRequest struct {
	ClientName *string          `json:"cliente_nome" validate:"omitempty,clientname,max=255"`
	Product    *string          `json:"produto" validate:"omitempty,max=255"`
	Quantity   *int             `json:"quantidade" validate:"omitempty,gt=0"`
	UnitPrice  *decimal.Decimal `json:"valor_unitario" validate:"omitempty,gte=0"`
	Status     *string          `json:"status" validate:"omitempty,oneof=pendente concluido cancelado"`
	Notes      *string          `json:"observacoes"`
}

type OrderFilter struct {
	Status string
	Search string
}
