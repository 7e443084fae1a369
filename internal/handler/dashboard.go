package handler

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/jpsistemas/jp-cobrancas/pkg/response"
)

type DashboardHandler struct {
	service DashboardService
	log     logrus.FieldLogger
}

func NewDashboardHandler(service DashboardService, log logrus.FieldLogger) *DashboardHandler {
	return &DashboardHandler{service: service, log: log}
}

// Summary handles GET /dashboard
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		response.FromError(w, h.log, err)
		return
	}
	response.Success(w, summary)
}
