package handler

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/jpsistemas/jp-cobrancas/internal/domain"
	"github.com/jpsistemas/jp-cobrancas/pkg/response"
)

type ClientHandler struct {
	service   ClientService
	validator *validator.Validate
	log       logrus.FieldLogger
}

func NewClientHandler(service ClientService, v *validator.Validate, log logrus.FieldLogger) *ClientHandler {
	return &ClientHandler{service: service, validator: v, log: log}
}

// Create handles POST /clientes
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateClientRequest
	if err := decode(w, r, h.validator, &req); err != nil {
		response.FromError(w, h.log, err)
		return
	}

	client, err := h.service.Create(r.Context(), &req)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.Created(w, client)
}

// List handles GET /clientes?status=&busca=
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.ClientFilter{
		Status: strings.TrimSpace(q.Get("status")),
		Search: strings.TrimSpace(q.Get("busca")),
	}

	clients, err := h.service.List(r.Context(), filter)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.Success(w, clients)
}

// Get handles GET /clientes/{id}
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}

	client, err := h.service.Get(r.Context(), id)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.Success(w, client)
}

// Update handles PATCH /clientes/{id}
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}

	var req domain.UpdateClientRequest
	if err := decode(w, r, h.validator, &req); err != nil {
		response.FromError(w, h.log, err)
		return
	}

	client, err := h.service.Update(r.Context(), id, &req)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.Success(w, client)
}

// Delete handles DELETE /clientes/{id}
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.Message(w, "Cliente excluído com sucesso")
}

// SetBlacklist handles PUT /clientes/{id}/lista-negra
func (h *ClientHandler) SetBlacklist(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}

	var req domain.BlacklistRequest
	if err := decode(w, r, h.validator, &req); err != nil {
		response.FromError(w, h.log, err)
		return
	}

	client, err := h.service.SetBlacklist(r.Context(), id, &req)
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.Success(w, client)
}
