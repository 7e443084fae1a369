package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/jpsistemas/jp-cobrancas/internal/cache"
	"github.com/jpsistemas/jp-cobrancas/internal/config"
	"github.com/jpsistemas/jp-cobrancas/internal/handler"
	"github.com/jpsistemas/jp-cobrancas/internal/logger"
	"github.com/jpsistemas/jp-cobrancas/internal/middleware"
	"github.com/jpsistemas/jp-cobrancas/internal/repository"
	"github.com/jpsistemas/jp-cobrancas/internal/service"
	"github.com/jpsistemas/jp-cobrancas/pkg/response"
)

type handlers struct {
	clients   *handler.ClientHandler
	loans     *handler.LoanHandler
	charges   *handler.ChargeHandler
	dashboard *handler.DashboardHandler
	orders    *handler.OrderHandler
	health    *handler.HealthHandler
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	log := logger.New(cfg.Logging)

	// Amounts travel as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	registry, err := repository.NewRegistry(ctx, cfg.Database, log)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer registry.Close()

	redisClient := cache.NewRedisClient(cfg.Redis)
	defer redisClient.Close()
	redisCache := cache.NewRedisCache(redisClient)

	v := handler.NewValidator()
	h := handlers{
		clients:   handler.NewClientHandler(service.NewClientService(registry, redisCache, cfg, log), v, log),
		loans:     handler.NewLoanHandler(service.NewLoanService(registry, redisCache, cfg, log), v, log),
		charges:   handler.NewChargeHandler(service.NewChargeService(registry, redisCache, cfg, log), v, log),
		dashboard: handler.NewDashboardHandler(service.NewDashboardService(registry, redisCache, cfg, log), log),
		orders:    handler.NewOrderHandler(service.NewOrderService(registry, cfg, log), v, log),
		health:    handler.NewHealthHandler(registry.Admin(), redisClient, cfg.Health.Timeout, log),
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, 0, log)
	router := setupRoutes(h, cfg, limiter, log)

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      middleware.CORS(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.WithField("addr", server.Addr).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	log.Info("Server exited")
}

func setupRoutes(h handlers, cfg *config.Config, limiter *middleware.RateLimiter, log logrus.FieldLogger) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.RequestID, middleware.Logging(log), middleware.Recover(log))
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Rota não encontrada")
	})

	// Health check
	router.HandleFunc("/health", h.health.Health).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", h.health.Ready).Methods(http.MethodGet)

	api := router.NewRoute().Subrouter()
	api.Use(middleware.Tenant(cfg.Session.Secret, cfg.Database.TenantPrefix, log), limiter.Middleware)

	api.HandleFunc("/clientes", h.clients.Create).Methods(http.MethodPost)
	api.HandleFunc("/clientes", h.clients.List).Methods(http.MethodGet)
	api.HandleFunc("/clientes/{id}", h.clients.Get).Methods(http.MethodGet)
	api.HandleFunc("/clientes/{id}", h.clients.Update).Methods(http.MethodPatch)
	api.HandleFunc("/clientes/{id}", h.clients.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/clientes/{id}/lista-negra", h.clients.SetBlacklist).Methods(http.MethodPut)

	api.HandleFunc("/emprestimos", h.loans.Create).Methods(http.MethodPost)
	api.HandleFunc("/emprestimos", h.loans.List).Methods(http.MethodGet)
	api.HandleFunc("/emprestimos/{id}", h.loans.Get).Methods(http.MethodGet)
	api.HandleFunc("/emprestimos/{id}", h.loans.Update).Methods(http.MethodPatch)
	api.HandleFunc("/emprestimos/{id}", h.loans.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/emprestimos/{id}/parcelas", h.loans.ListInstallments).Methods(http.MethodGet)
	api.HandleFunc("/emprestimos/{id}/parcelas/{numero}/pagar", h.loans.PayInstallment).Methods(http.MethodPost)
	api.HandleFunc("/emprestimos/{id}/quitar", h.loans.Settle).Methods(http.MethodPost)

	api.HandleFunc("/cobrancas", h.charges.List).Methods(http.MethodGet)
	api.HandleFunc("/cobrancas/{id}", h.charges.Get).Methods(http.MethodGet)
	api.HandleFunc("/cobrancas/{id}/pagamentos", h.charges.ListPayments).Methods(http.MethodGet)
	api.HandleFunc("/cobrancas/{id}/pagamentos", h.charges.Pay).Methods(http.MethodPost)

	api.HandleFunc("/dashboard", h.dashboard.Summary).Methods(http.MethodGet)

	api.HandleFunc("/pedidos", h.orders.Create).Methods(http.MethodPost)
	api.HandleFunc("/pedidos", h.orders.List).Methods(http.MethodGet)
	api.HandleFunc("/pedidos/{id}", h.orders.Get).Methods(http.MethodGet)
	api.HandleFunc("/pedidos/{id}", h.orders.Update).Methods(http.MethodPatch)
	api.HandleFunc("/pedidos/{id}", h.orders.Delete).Methods(http.MethodDelete)

	return router
}
