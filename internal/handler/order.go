package handler

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/jpsistemas/jp-cobrancas/internal/domain"
	"github.com/jpsistemas/jp-cobrancas/pkg/response"
)

type OrderHandler struct {
	service   OrderService
	validator *validator.Validate
	log       logrus.FieldLogger
}

func NewOrderHandler(service OrderService, v *validator.Validate, log logrus.FieldLogger) *OrderHandler {
	return &OrderHandler{service: service, validator: v, log: log}
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateOrderRequest
	if err := decode(w, r, h.validator, &req); err != nil {
		response.FromError(w, h.log, err)
		return
	}

	order, err := h.service.Create(r.Context(), &req)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.Created(w, order)
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.OrderFilter{
		Status: strings.TrimSpace(q.Get("status")),
		Search: strings.TrimSpace(q.Get("busca")),
	}

	orders, err := h.service.List(r.Context(), filter)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.Success(w, orders)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}

	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.Success(w, order)
}

func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}

	var req domain.UpdateOrderRequest
	if err := decode(w, r, h.validator, &req); err != nil {
		response.FromError(w, h.log, err)
		return
	}

	order, err := h.service.Update(r.Context(), id, &req)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.Success(w, order)
}

func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.Message(w, "Pedido excluído com sucesso")
}
