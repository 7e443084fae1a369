package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/jpsistemas/jp-cobrancas/internal/domain"
	customError "github.com/jpsistemas/jp-cobrancas/pkg/errors"
)

const maxBodyBytes = 1 << 20

// Services consumed by the handlers.

type ClientService interface {
	Create(ctx context.Context, req *domain.CreateClientRequest) (*domain.Client, error)
	List(ctx context.Context, filter domain.ClientFilter) ([]*domain.Client, error)
	Get(ctx context.Context, id int64) (*domain.Client, error)
	Update(ctx context.Context, id int64, req *domain.UpdateClientRequest) (*domain.Client, error)
	Delete(ctx context.Context, id int64) error
	SetBlacklist(ctx context.Context, id int64, req *domain.BlacklistRequest) (*domain.Client, error)
}

type LoanService interface {
	Create(ctx context.Context, req *domain.CreateLoanRequest) (*domain.CreateLoanResponse, error)
	List(ctx context.Context, filter domain.LoanFilter) ([]*domain.LoanView, error)
	Get(ctx context.Context, id int64) (*domain.LoanView, error)
	Update(ctx context.Context, id int64, req *domain.UpdateLoanRequest) (*domain.LoanView, error)
	Delete(ctx context.Context, id int64) error
	ListInstallments(ctx context.Context, loanID int64) ([]*domain.Installment, error)
	PayInstallment(ctx context.Context, loanID int64, number int, req *domain.PayInstallmentRequest) (*domain.PaymentReceipt, error)
	Settle(ctx context.Context, loanID int64, req *domain.SettleLoanRequest) (*domain.PaymentReceipt, error)
}

type ChargeService interface {
	List(ctx context.Context, filter domain.ChargeFilter) ([]*domain.ChargeView, error)
	Get(ctx context.Context, id int64) (*domain.ChargeView, error)
	Pay(ctx context.Context, id int64, req *domain.PayChargeRequest) (*domain.PaymentReceipt, error)
	ListPayments(ctx context.Context, id int64) ([]*domain.Payment, error)
}

type DashboardService interface {
	Summary(ctx context.Context) (*domain.DashboardSummary, error)
}

type OrderService interface {
	Create(ctx context.Context, req *domain.CreateOrderRequest) (*domain.Order, error)
	List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error)
	Get(ctx context.Context, id int64) (*domain.Order, error)
	Update(ctx context.Context, id int64, req *domain.UpdateOrderRequest) (*domain.Order, error)
	Delete(ctx context.Context, id int64) error
}

// NewValidator returns a validator that understands decimals, calendar dates
// and the clientname rule, and reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(domain.Date); ok {
			return d.String()
		}
		return nil
	}, domain.Date{})

	_ = v.RegisterValidation("clientname", func(fl validator.FieldLevel) bool {
		return domain.ValidClientName(fl.Field().String())
	})

	return v
}

// decode reads a JSON body into dst and validates it.
func decode(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return customError.Validation("Corpo da requisição inválido", err)
	}
	return validate(v, dst)
}

// decodeOptional is decode for endpoints where the body may be left out.
func decodeOptional(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return customError.Validation("Corpo da requisição inválido", err)
	}
	return validate(v, dst)
}

func validate(v *validator.Validate, dst interface{}) error {
	err := v.Struct(dst)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return customError.Validation("Requisição inválida", err)
	}

	fields := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		if fe.Tag() == "clientname" {
			return customError.WrapInvalidClientName()
		}
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return customError.Validation("Campos inválidos: "+strings.Join(fields, ", "), err)
}

// pathID parses a positive integer path variable.
func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, customError.Validation(fmt.Sprintf("Parâmetro '%s' inválido", name), err)
	}
	return id, nil
}

// queryID parses an optional positive integer query parameter.
func queryID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, customError.Validation(fmt.Sprintf("Parâmetro '%s' inválido", name), err)
	}
	return id, nil
}
