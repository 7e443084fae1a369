package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/jpsistemas/jp-cobrancas/internal/domain"
	customError "github.com/jpsistemas/jp-cobrancas/pkg/errors"
	"github.com/jpsistemas/jp-cobrancas/pkg/response"
)

type LoanHandler struct {
	service   LoanService
	validator *validator.Validate
	log       logrus.FieldLogger
}

func NewLoanHandler(service LoanService, v *validator.Validate, log logrus.FieldLogger) *LoanHandler {
	return &LoanHandler{service: service, validator: v, log: log}
}

// Create handles POST /emprestimos
func (h *LoanHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLoanRequest
	if err := decode(w, r, h.validator, &req); err != nil {
		response.FromError(w, h.log, err)
		return
	}

	created, err := h.service.Create(r.Context(), &req)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.Created(w, created)
}

// List handles GET /emprestimos?cliente_id=&status=
func (h *LoanHandler) List(w http.ResponseWriter, r *http.Request) {
	clientID, err := queryID(r, "cliente_id")
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	filter := domain.LoanFilter{
		ClientID: clientID,
		Status:   strings.TrimSpace(r.URL.Query().Get("status")),
	}

	loans, err := h.service.List(r.Context(), filter)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.Success(w, loans)
}

// Get handles GET /emprestimos/{id}
func (h *LoanHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}

	loan, err := h.service.Get(r.Context(), id)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.Success(w, loan)
}

// Update handles PATCH /emprestimos/{id}
func (h *LoanHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}

	var req domain.UpdateLoanRequest
	if err := decode(w, r, h.validator, &req); err != nil {
		response.FromError(w, h.log, err)
		return
	}

	loan, err := h.service.Update(r.Context(), id, &req)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.Success(w, loan)
}

// Delete handles DELETE /emprestimos/{id}
func (h *LoanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.Message(w, "Empréstimo excluído com sucesso")
}

// ListInstallments handles GET /emprestimos/{id}/parcelas
func (h *LoanHandler) ListInstallments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}

	installments, err := h.service.ListInstallments(r.Context(), id)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.Success(w, installments)
}

// PayInstallment handles POST /emprestimos/{id}/parcelas/{numero}/pagar.
// An empty body pays the installment in full.
func (h *LoanHandler) PayInstallment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	number, err := strconv.Atoi(mux.Vars(r)["numero"])
	if err != nil || number <= 0 {
		response.FromError(w, h.log, customError.Validation("Parâmetro 'numero' inválido", err))
		return
	}

	var req domain.PayInstallmentRequest
	if err := decodeOptional(w, r, h.validator, &req); err != nil {
		response.FromError(w, h.log, err)
		return
	}

	receipt, err := h.service.PayInstallment(r.Context(), id, number, &req)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.Success(w, receipt)
}

// Settle handles POST /emprestimos/{id}/quitar
func (h *LoanHandler) Settle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}

	var req domain.SettleLoanRequest
	if err := decodeOptional(w, r, h.validator, &req); err != nil {
		response.FromError(w, h.log, err)
		return
	}

	receipt, err := h.service.Settle(r.Context(), id, &req)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.Success(w, receipt)
}
