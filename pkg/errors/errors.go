package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-sql-driver/mysql"
)

// Kind classifies a failure by how it must be answered.
type Kind int

const (
	KindStorage Kind = iota
	KindValidation
	KindNotFound
	KindConflict
)

// Domain errors
var (
	ErrClientNotFound      = errors.New("client not found")
	ErrLoanNotFound        = errors.New("loan not found")
	ErrInstallmentNotFound = errors.New("installment not found")
	ErrChargeNotFound      = errors.New("charge not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrInvalidClientName   = errors.New("invalid client name")
	ErrClientHasLoans      = errors.New("client has unsettled loans")
	ErrLoanAlreadySettled  = errors.New("loan is already settled")
	ErrInstallmentPaid     = errors.New("installment is already paid")
	ErrChargePaid          = errors.New("charge is already paid")
	ErrPaymentExceedsDebt  = errors.New("payment exceeds outstanding balance")
	ErrMissingTenant       = errors.New("tenant not found in context")
	ErrDuplicateEntry      = errors.New("duplicate entry")
)

// BusinessError represents a classified error. Message is safe to show to
// the client; Err keeps the cause for logs.
type BusinessError struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error kind onto a response status.
func (e *BusinessError) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// NewBusinessError creates a new business error
func NewBusinessError(kind Kind, code, message string, err error) *BusinessError {
	return &BusinessError{
		Kind:    kind,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeInvalidClientName = "INVALID_CLIENT_NAME"
	ErrCodeClientNotFound    = "CLIENT_NOT_FOUND"
	ErrCodeClientHasLoans    = "CLIENT_HAS_LOANS"
	ErrCodeLoanNotFound      = "LOAN_NOT_FOUND"
	ErrCodeLoanSettled       = "LOAN_ALREADY_SETTLED"
	ErrCodeInstallmentNF     = "INSTALLMENT_NOT_FOUND"
	ErrCodeInstallmentPaid   = "INSTALLMENT_ALREADY_PAID"
	ErrCodeChargePaid        = "CHARGE_ALREADY_PAID"
	ErrCodeChargeNotFound    = "CHARGE_NOT_FOUND"
	ErrCodePaymentExceeds    = "PAYMENT_EXCEEDS_DEBT"
	ErrCodeOrderNotFound     = "ORDER_NOT_FOUND"
	ErrCodeDuplicate         = "DUPLICATE_ENTRY"
	ErrCodeTenant            = "TENANT_REQUIRED"
	ErrCodeDatabaseError     = "DATABASE_ERROR"
	ErrCodeCacheError        = "CACHE_ERROR"
)

// Validation wraps a request validation failure.
func Validation(message string, err error) *BusinessError {
	return NewBusinessError(KindValidation, ErrCodeValidation, message, err)
}

func WrapInvalidClientName() *BusinessError {
	return NewBusinessError(
		KindValidation,
		ErrCodeInvalidClientName,
		"Nome do cliente é obrigatório e não pode ser um valor genérico",
		ErrInvalidClientName,
	)
}

func WrapClientNotFound(id int64) *BusinessError {
	return NewBusinessError(
		KindNotFound,
		ErrCodeClientNotFound,
		fmt.Sprintf("Cliente %d não encontrado", id),
		ErrClientNotFound,
	)
}

func WrapClientHasLoans(id int64, count int) *BusinessError {
	return NewBusinessError(
		KindConflict,
		ErrCodeClientHasLoans,
		fmt.Sprintf("Cliente %d possui %d empréstimo(s) em aberto e não pode ser excluído", id, count),
		ErrClientHasLoans,
	)
}

func WrapLoanNotFound(id int64) *BusinessError {
	return NewBusinessError(
		KindNotFound,
		ErrCodeLoanNotFound,
		fmt.Sprintf("Empréstimo %d não encontrado", id),
		ErrLoanNotFound,
	)
}

func WrapLoanAlreadySettled(id int64) *BusinessError {
	return NewBusinessError(
		KindConflict,
		ErrCodeLoanSettled,
		fmt.Sprintf("Empréstimo %d já está quitado", id),
		ErrLoanAlreadySettled,
	)
}

func WrapInstallmentNotFound(loanID int64, number int) *BusinessError {
	return NewBusinessError(
		KindNotFound,
		ErrCodeInstallmentNF,
		fmt.Sprintf("Parcela %d do empréstimo %d não encontrada", number, loanID),
		ErrInstallmentNotFound,
	)
}

func WrapInstallmentAlreadyPaid(loanID int64, number int) *BusinessError {
	return NewBusinessError(
		KindConflict,
		ErrCodeInstallmentPaid,
		fmt.Sprintf("Parcela %d do empréstimo %d já está paga", number, loanID),
		ErrInstallmentPaid,
	)
}

func WrapChargeAlreadyPaid(id int64) *BusinessError {
	return NewBusinessError(
		KindConflict,
		ErrCodeChargePaid,
		fmt.Sprintf("Cobrança %d já está paga", id),
		ErrChargePaid,
	)
}

func WrapChargeNotFound(id int64) *BusinessError {
	return NewBusinessError(
		KindNotFound,
		ErrCodeChargeNotFound,
		fmt.Sprintf("Cobrança %d não encontrada", id),
		ErrChargeNotFound,
	)
}

func WrapPaymentExceedsDebt(amount, outstanding string) *BusinessError {
	return NewBusinessError(
		KindValidation,
		ErrCodePaymentExceeds,
		fmt.Sprintf("Valor %s excede o saldo devedor de %s", amount, outstanding),
		ErrPaymentExceedsDebt,
	)
}

func WrapOrderNotFound(id int64) *BusinessError {
	return NewBusinessError(
		KindNotFound,
		ErrCodeOrderNotFound,
		fmt.Sprintf("Pedido %d não encontrado", id),
		ErrOrderNotFound,
	)
}

func WrapMissingTenant() *BusinessError {
	return NewBusinessError(
		KindValidation,
		ErrCodeTenant,
		"Sessão sem usuário associado",
		ErrMissingTenant,
	)
}

// WrapDatabaseError classifies a driver error. Duplicate keys become a
// conflict; everything else is a storage failure with a generic message.
func WrapDatabaseError(err error) *BusinessError {
	var be *BusinessError
	if errors.As(err, &be) {
		return be
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return NewBusinessError(KindConflict, ErrCodeDuplicate, "Registro duplicado", fmt.Errorf("%w: %v", ErrDuplicateEntry, err))
	}

	return NewBusinessError(
		KindStorage,
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		KindStorage,
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}

// IsNotFound reports whether err is a missing row from the driver.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// As exposes the BusinessError inside err, if any.
func As(err error) (*BusinessError, bool) {
	var be *BusinessError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
