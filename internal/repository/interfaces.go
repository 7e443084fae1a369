package repository

import (
	"context"

	"github.com/jpsistemas/jp-cobrancas/internal/domain"
)

// ClientRepository defines the interface for client data operations
type ClientRepository interface {
	Create(ctx context.Context, client *domain.Client) error
	GetByID(ctx context.Context, id int64) (*domain.Client, error)
	List(ctx context.Context, filter domain.ClientFilter) ([]*domain.Client, error)
	Update(ctx context.Context, client *domain.Client) error
	Delete(ctx context.Context, id int64) error
}

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// Create inserts the loan and sets its ID
	Create(ctx context.Context, loan *domain.Loan) error

	GetByID(ctx context.Context, id int64) (*domain.Loan, error)

	// List returns loans joined with their client's name, newest first
	List(ctx context.Context, filter domain.LoanFilter) ([]*domain.LoanView, error)

	Update(ctx context.Context, loan *domain.Loan) error

	// UpdateStatus persists a derived status
	UpdateStatus(ctx context.Context, id int64, status string) error

	// Delete removes the loan; installments, charge and payments cascade
	Delete(ctx context.Context, id int64) error

	// CountUnsettledByClient counts the client's loans not yet Quitado
	CountUnsettledByClient(ctx context.Context, clientID int64) (int, error)
}

// InstallmentRepository defines the interface for installment data operations
type InstallmentRepository interface {
	CreateBatch(ctx context.Context, installments []*domain.Installment) error

	// ListByLoan returns the loan's installments in sequence order
	ListByLoan(ctx context.Context, loanID int64) ([]*domain.Installment, error)

	// ListAll returns every installment of the tenant grouped by loan
	ListAll(ctx context.Context) ([]*domain.Installment, error)

	Update(ctx context.Context, installment *domain.Installment) error
}

// ChargeRepository defines the interface for charge data operations
type ChargeRepository interface {
	Create(ctx context.Context, charge *domain.Charge) error
	GetByID(ctx context.Context, id int64) (*domain.ChargeView, error)

	// GetForUpdate locks the charge row until the transaction ends
	GetForUpdate(ctx context.Context, id int64) (*domain.Charge, error)

	// GetByLoanForUpdate locks the charge of a loan until the transaction ends
	GetByLoanForUpdate(ctx context.Context, loanID int64) (*domain.Charge, error)

	List(ctx context.Context, filter domain.ChargeFilter) ([]*domain.ChargeView, error)
	ListPending(ctx context.Context) ([]*domain.Charge, error)
	Update(ctx context.Context, charge *domain.Charge) error
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// Create appends a payment record
	Create(ctx context.Context, payment *domain.Payment) error

	// ListByCharge retrieves all payments for a charge, oldest first
	ListByCharge(ctx context.Context, chargeID int64) ([]*domain.Payment, error)
}

// OrderRepository defines the interface for order data operations
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error)
	Update(ctx context.Context, order *domain.Order) error
	Delete(ctx context.Context, id int64) error
}

// DashboardRepository computes the aggregates that do not depend on derived status
type DashboardRepository interface {
	Totals(ctx context.Context) (*domain.DashboardTotals, error)
}
