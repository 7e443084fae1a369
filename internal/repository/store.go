package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store groups the repositories of one tenant database. It is built either
// on the pooled handle or on a transaction, so the same code serves both.
type Store struct {
	Clients      ClientRepository
	Loans        LoanRepository
	Installments InstallmentRepository
	Charges      ChargeRepository
	Payments     PaymentRepository
	Orders       OrderRepository
	Dashboard    DashboardRepository

	// Tx opens transactions for WithTx.
	Tx Transactor
}

// Transactor runs fn on a Store bound to one transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(tx *Store) error) error
}

// ErrNoTransactor is returned by WithTx on a Store assembled without one.
var ErrNoTransactor = errors.New("store has no transactor")

func NewStore(db *sqlx.DB) *Store {
	s := newStore(db)
	s.Tx = sqlxTransactor{db: db}
	return s
}

func newStore(ext sqlx.ExtContext) *Store {
	return &Store{
		Clients:      NewClientRepository(ext),
		Loans:        NewLoanRepository(ext),
		Installments: NewInstallmentRepository(ext),
		Charges:      NewChargeRepository(ext),
		Payments:     NewPaymentRepository(ext),
		Orders:       NewOrderRepository(ext),
		Dashboard:    NewDashboardRepository(ext),
	}
}

// WithTx runs fn against repositories bound to a single transaction,
// committing when fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.Tx == nil {
		return ErrNoTransactor
	}
	return s.Tx.InTx(ctx, fn)
}

type sqlxTransactor struct {
	db *sqlx.DB
}

func (t sqlxTransactor) InTx(ctx context.Context, fn func(tx *Store) error) error {
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(newStore(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// stamp fills the timestamps of a new row the way the column defaults would.
func stamp(created, updated *time.Time) {
	if created.IsZero() {
		*created = time.Now()
	}
	if updated != nil {
		*updated = *created
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching s anywhere.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(s)) + "%"
}
