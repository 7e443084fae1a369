package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/jpsistemas/jp-cobrancas/internal/domain"
	customError "github.com/jpsistemas/jp-cobrancas/pkg/errors"
	"github.com/jpsistemas/jp-cobrancas/pkg/response"
)

type ChargeHandler struct {
	service   ChargeService
	validator *validator.Validate
	log       logrus.FieldLogger
}

func NewChargeHandler(service ChargeService, v *validator.Validate, log logrus.FieldLogger) *ChargeHandler {
	return &ChargeHandler{service: service, validator: v, log: log}
}

// List handles GET /cobrancas?status=&cliente_id=&atrasadas=
func (h *ChargeHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	clientID, err := queryID(r, "cliente_id")
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}

	filter := domain.ChargeFilter{
		Status:   strings.TrimSpace(q.Get("status")),
		ClientID: clientID,
	}
	if raw := q.Get("atrasadas"); raw != "" {
		overdue, err := strconv.ParseBool(raw)
		if err != nil {
			response.FromError(w, h.log, customError.Validation("Parâmetro 'atrasadas' inválido", err))
			return
		}
		filter.OverdueOnly = overdue
	}

	charges, err := h.service.List(r.Context(), filter)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.Success(w, charges)
}

// Get handles GET /cobrancas/{id}
func (h *ChargeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}

	charge, err := h.service.Get(r.Context(), id)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.Success(w, charge)
}

// Pay handles POST /cobrancas/{id}/pagamentos
func (h *ChargeHandler) Pay(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}

	var req domain.PayChargeRequest
	if err := decode(w, r, h.validator, &req); err != nil {
		response.FromError(w, h.log, err)
		return
	}

	receipt, err := h.service.Pay(r.Context(), id, &req)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.Created(w, receipt)
}

// ListPayments handles GET /cobrancas/{id}/pagamentos
func (h *ChargeHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}

	payments, err := h.service.ListPayments(r.Context(), id)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.Success(w, payments)
}
