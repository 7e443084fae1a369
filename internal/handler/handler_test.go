package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jpsistemas/jp-cobrancas/internal/domain"
	"github.com/jpsistemas/jp-cobrancas/internal/mocks"
	customError "github.com/jpsistemas/jp-cobrancas/pkg/errors"
)

func nullLogger() logrus.FieldLogger {
	log, _ := test.NewNullLogger()
	return log
}

func newRequest(method, target, body string, vars map[string]string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	return req
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestValidator(t *testing.T) {
	v := NewValidator()

	t.Run("decimal bounds", func(t *testing.T) {
		err := validate(v, &domain.PayChargeRequest{Amount: decimal.Zero})
		be, ok := customError.As(err)
		require.True(t, ok)
		assert.Equal(t, customError.KindValidation, be.Kind)
		assert.Contains(t, be.Message, "valor (gt)")

		assert.NoError(t, validate(v, &domain.PayChargeRequest{Amount: decimal.RequireFromString("0.01")}))
	})

	t.Run("optional decimal pointer", func(t *testing.T) {
		negative := decimal.RequireFromString("-1")
		assert.Error(t, validate(v, &domain.PayInstallmentRequest{Amount: &negative}))
		assert.NoError(t, validate(v, &domain.PayInstallmentRequest{}))
	})

	t.Run("required date", func(t *testing.T) {
		req := &domain.CreateLoanRequest{ClientID: 1, Amount: decimal.NewFromInt(100)}
		err := validate(v, req)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "data_vencimento (required)")

		req.DueDate = domain.NewDate(2025, 7, 1)
		assert.NoError(t, validate(v, req))
	})

	t.Run("client name rule", func(t *testing.T) {
		err := validate(v, &domain.CreateClientRequest{Name: "undefined"})
		be, ok := customError.As(err)
		require.True(t, ok)
		assert.Equal(t, customError.ErrCodeInvalidClientName, be.Code)

		assert.NoError(t, validate(v, &domain.CreateClientRequest{Name: "Maria"}))
	})

	t.Run("blacklist status with a space", func(t *testing.T) {
		assert.NoError(t, validate(v, &domain.BlacklistRequest{Status: "Lista Negra"}))
		assert.Error(t, validate(v, &domain.BlacklistRequest{Status: "Pendente"}))
	})
}

func TestLoanHandler_Create(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(*mocks.MockLoanService)
		expectedStatus int
		checkResponse  func(*testing.T, envelope)
	}{
		{
			name: "created",
			body: `{"cliente_id":1,"valor":1000,"data_vencimento":"2025-07-10","juros_mensal":10,"tipo_emprestimo":"in_installments","numero_parcelas":3}`,
			setupMock: func(m *mocks.MockLoanService) {
				m.On("Create", mock.Anything, mock.MatchedBy(func(req *domain.CreateLoanRequest) bool {
					return req.ClientID == 1 &&
						req.Amount.Equal(decimal.NewFromInt(1000)) &&
						req.DueDate.String() == "2025-07-10" &&
						req.InstallmentCount == 3
				})).Return(&domain.CreateLoanResponse{ID: 12, Message: "Empréstimo criado com sucesso"}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, env envelope) {
				var created domain.CreateLoanResponse
				require.NoError(t, json.Unmarshal(env.Data, &created))
				assert.Equal(t, int64(12), created.ID)
				assert.Equal(t, "Empréstimo criado com sucesso", created.Message)
			},
		},
		{
			name:           "malformed json",
			body:           `{"cliente_id":`,
			setupMock:      func(*mocks.MockLoanService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad date",
			body:           `{"cliente_id":1,"valor":10,"data_vencimento":"10/07/2025"}`,
			setupMock:      func(*mocks.MockLoanService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "non positive amount",
			body:           `{"cliente_id":1,"valor":0,"data_vencimento":"2025-07-10"}`,
			setupMock:      func(*mocks.MockLoanService) {},
			expectedStatus: http.StatusBadRequest,
			checkResponse: func(t *testing.T, env envelope) {
				assert.Equal(t, customError.ErrCodeValidation, env.Code)
				assert.Contains(t, env.Error, "valor")
			},
		},
		{
			name: "unknown client",
			body: `{"cliente_id":9,"valor":10,"data_vencimento":"2025-07-10"}`,
			setupMock: func(m *mocks.MockLoanService) {
				m.On("Create", mock.Anything, mock.Anything).Return(nil, customError.WrapClientNotFound(9)).Once()
			},
			expectedStatus: http.StatusNotFound,
			checkResponse: func(t *testing.T, env envelope) {
				assert.Equal(t, "Cliente 9 não encontrado", env.Error)
			},
		},
		{
			name: "storage failure is not exposed",
			body: `{"cliente_id":1,"valor":10,"data_vencimento":"2025-07-10"}`,
			setupMock: func(m *mocks.MockLoanService) {
				m.On("Create", mock.Anything, mock.Anything).
					Return(nil, customError.WrapDatabaseError(errors.New("Table 'parcelas' is full"))).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			checkResponse: func(t *testing.T, env envelope) {
				assert.NotContains(t, env.Error, "parcelas")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mocks.MockLoanService{}
			tt.setupMock(svc)
			h := NewLoanHandler(svc, NewValidator(), nullLogger())

			w := httptest.NewRecorder()
			h.Create(w, newRequest(http.MethodPost, "/emprestimos", tt.body, nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			env := decodeEnvelope(t, w)
			assert.Equal(t, tt.expectedStatus < 300, env.Success)
			if tt.checkResponse != nil {
				tt.checkResponse(t, env)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestLoanHandler_List(t *testing.T) {
	svc := &mocks.MockLoanService{}
	h := NewLoanHandler(svc, NewValidator(), nullLogger())

	svc.On("List", mock.Anything, domain.LoanFilter{ClientID: 3, Status: "Atrasado"}).
		Return([]*domain.LoanView{{Loan: &domain.Loan{ID: 1}}}, nil).Once()

	w := httptest.NewRecorder()
	h.List(w, newRequest(http.MethodGet, "/emprestimos?cliente_id=3&status=Atrasado", "", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.List(w, newRequest(http.MethodGet, "/emprestimos?cliente_id=abc", "", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.AssertExpectations(t)
}

func TestLoanHandler_PayInstallment(t *testing.T) {
	t.Run("empty body pays in full", func(t *testing.T) {
		svc := &mocks.MockLoanService{}
		h := NewLoanHandler(svc, NewValidator(), nullLogger())
		receipt := &domain.PaymentReceipt{Payment: &domain.Payment{ID: 1}, LoanStatus: domain.LoanStatusActive}
		svc.On("PayInstallment", mock.Anything, int64(5), 2, &domain.PayInstallmentRequest{}).Return(receipt, nil).Once()

		w := httptest.NewRecorder()
		h.PayInstallment(w, newRequest(http.MethodPost, "/emprestimos/5/parcelas/2/pagar", "", map[string]string{"id": "5", "numero": "2"}))

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("partial amount", func(t *testing.T) {
		svc := &mocks.MockLoanService{}
		h := NewLoanHandler(svc, NewValidator(), nullLogger())
		svc.On("PayInstallment", mock.Anything, int64(5), 1, mock.MatchedBy(func(req *domain.PayInstallmentRequest) bool {
			return req.Amount != nil && req.Amount.Equal(decimal.RequireFromString("150.5")) && req.Method == "pix"
		})).Return(&domain.PaymentReceipt{}, nil).Once()

		w := httptest.NewRecorder()
		h.PayInstallment(w, newRequest(http.MethodPost, "/emprestimos/5/parcelas/1/pagar",
			`{"valor_pago":150.5,"forma_pagamento":"pix"}`, map[string]string{"id": "5", "numero": "1"}))

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("conflict when already paid", func(t *testing.T) {
		svc := &mocks.MockLoanService{}
		h := NewLoanHandler(svc, NewValidator(), nullLogger())
		svc.On("PayInstallment", mock.Anything, int64(5), 1, mock.Anything).
			Return(nil, customError.WrapInstallmentAlreadyPaid(5, 1)).Once()

		w := httptest.NewRecorder()
		h.PayInstallment(w, newRequest(http.MethodPost, "/emprestimos/5/parcelas/1/pagar", "", map[string]string{"id": "5", "numero": "1"}))

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, customError.ErrCodeInstallmentPaid, decodeEnvelope(t, w).Code)
	})

	t.Run("bad path values", func(t *testing.T) {
		svc := &mocks.MockLoanService{}
		h := NewLoanHandler(svc, NewValidator(), nullLogger())

		for _, vars := range []map[string]string{
			{"id": "x", "numero": "1"},
			{"id": "0", "numero": "1"},
			{"id": "5", "numero": "-1"},
		} {
			w := httptest.NewRecorder()
			h.PayInstallment(w, newRequest(http.MethodPost, "/", "", vars))
			assert.Equal(t, http.StatusBadRequest, w.Code, vars)
		}
		svc.AssertNotCalled(t, "PayInstallment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestLoanHandler_Settle(t *testing.T) {
	svc := &mocks.MockLoanService{}
	h := NewLoanHandler(svc, NewValidator(), nullLogger())
	svc.On("Settle", mock.Anything, int64(5), &domain.SettleLoanRequest{Method: "pix"}).
		Return(&domain.PaymentReceipt{LoanStatus: domain.LoanStatusSettled}, nil).Once()

	w := httptest.NewRecorder()
	h.Settle(w, newRequest(http.MethodPost, "/emprestimos/5/quitar", `{"forma_pagamento":"pix"}`, map[string]string{"id": "5"}))

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestClientHandler(t *testing.T) {
	t.Run("create rejects placeholder names before the service", func(t *testing.T) {
		svc := &mocks.MockClientService{}
		h := NewClientHandler(svc, NewValidator(), nullLogger())

		w := httptest.NewRecorder()
		h.Create(w, newRequest(http.MethodPost, "/clientes", `{"nome":"N/A"}`, nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, customError.ErrCodeInvalidClientName, decodeEnvelope(t, w).Code)
		svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("list passes filters", func(t *testing.T) {
		svc := &mocks.MockClientService{}
		h := NewClientHandler(svc, NewValidator(), nullLogger())
		svc.On("List", mock.Anything, domain.ClientFilter{Status: "Lista Negra", Search: "ana"}).
			Return([]*domain.Client{}, nil).Once()

		w := httptest.NewRecorder()
		h.List(w, newRequest(http.MethodGet, "/clientes?status=Lista+Negra&busca=+ana+", "", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("delete with open loans", func(t *testing.T) {
		svc := &mocks.MockClientService{}
		h := NewClientHandler(svc, NewValidator(), nullLogger())
		svc.On("Delete", mock.Anything, int64(3)).Return(customError.WrapClientHasLoans(3, 1)).Once()

		w := httptest.NewRecorder()
		h.Delete(w, newRequest(http.MethodDelete, "/clientes/3", "", map[string]string{"id": "3"}))

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, customError.ErrCodeClientHasLoans, decodeEnvelope(t, w).Code)
	})

	t.Run("blacklist", func(t *testing.T) {
		svc := &mocks.MockClientService{}
		h := NewClientHandler(svc, NewValidator(), nullLogger())
		svc.On("SetBlacklist", mock.Anything, int64(3), &domain.BlacklistRequest{Status: "Lista Negra", Reason: "calote"}).
			Return(&domain.Client{ID: 3, Status: "Lista Negra"}, nil).Once()

		w := httptest.NewRecorder()
		h.SetBlacklist(w, newRequest(http.MethodPut, "/clientes/3/lista-negra", `{"status":"Lista Negra","motivo":"calote"}`, map[string]string{"id": "3"}))
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		h.SetBlacklist(w, newRequest(http.MethodPut, "/clientes/3/lista-negra", `{"status":"Quitado"}`, map[string]string{"id": "3"}))
		assert.Equal(t, http.StatusBadRequest, w.Code)

		svc.AssertExpectations(t)
	})
}

func TestChargeHandler(t *testing.T) {
	t.Run("list filters", func(t *testing.T) {
		svc := &mocks.MockChargeService{}
		h := NewChargeHandler(svc, NewValidator(), nullLogger())
		svc.On("List", mock.Anything, domain.ChargeFilter{Status: "Pendente", OverdueOnly: true}).
			Return([]*domain.ChargeView{}, nil).Once()

		w := httptest.NewRecorder()
		h.List(w, newRequest(http.MethodGet, "/cobrancas?status=Pendente&atrasadas=true", "", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		h.List(w, newRequest(http.MethodGet, "/cobrancas?atrasadas=talvez", "", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)

		svc.AssertExpectations(t)
	})

	t.Run("pay", func(t *testing.T) {
		svc := &mocks.MockChargeService{}
		h := NewChargeHandler(svc, NewValidator(), nullLogger())
		svc.On("Pay", mock.Anything, int64(8), mock.MatchedBy(func(req *domain.PayChargeRequest) bool {
			return req.Amount.Equal(decimal.NewFromInt(200)) && req.PaidOn.String() == "2025-07-01"
		})).Return(&domain.PaymentReceipt{Outstanding: decimal.NewFromInt(100)}, nil).Once()

		w := httptest.NewRecorder()
		h.Pay(w, newRequest(http.MethodPost, "/cobrancas/8/pagamentos", `{"valor":200,"data_pagamento":"2025-07-01"}`, map[string]string{"id": "8"}))
		assert.Equal(t, http.StatusCreated, w.Code)

		w = httptest.NewRecorder()
		h.Pay(w, newRequest(http.MethodPost, "/cobrancas/8/pagamentos", `{"valor":-5}`, map[string]string{"id": "8"}))
		assert.Equal(t, http.StatusBadRequest, w.Code)

		svc.AssertExpectations(t)
	})

	t.Run("overpayment", func(t *testing.T) {
		svc := &mocks.MockChargeService{}
		h := NewChargeHandler(svc, NewValidator(), nullLogger())
		svc.On("Pay", mock.Anything, int64(8), mock.Anything).
			Return(nil, customError.WrapPaymentExceedsDebt("500.00", "300.00")).Once()

		w := httptest.NewRecorder()
		h.Pay(w, newRequest(http.MethodPost, "/cobrancas/8/pagamentos", `{"valor":500}`, map[string]string{"id": "8"}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, customError.ErrCodePaymentExceeds, decodeEnvelope(t, w).Code)
	})
}

func TestDashboardHandler(t *testing.T) {
	svc := &mocks.MockDashboardService{}
	h := NewDashboardHandler(svc, nullLogger())
	svc.On("Summary", mock.Anything).Return(&domain.DashboardSummary{
		Date:            domain.NewDate(2025, 7, 1),
		DashboardTotals: domain.DashboardTotals{Clients: 5},
	}, nil).Once()

	w := httptest.NewRecorder()
	h.Summary(w, newRequest(http.MethodGet, "/dashboard", "", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Date    string `json:"data_referencia"`
		Clients int    `json:"total_clientes"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &data))
	assert.Equal(t, "2025-07-01", data.Date)
	assert.Equal(t, 5, data.Clients)
}

func TestOrderHandler(t *testing.T) {
	svc := &mocks.MockOrderService{}
	h := NewOrderHandler(svc, NewValidator(), nullLogger())

	svc.On("Create", mock.Anything, mock.MatchedBy(func(req *domain.CreateOrderRequest) bool {
		return req.Product == "Cabo" && req.Quantity == 2
	})).Return(&domain.Order{ID: 1}, nil).Once()
	svc.On("Get", mock.Anything, int64(7)).Return(nil, customError.WrapOrderNotFound(7)).Once()

	var body bytes.Buffer
	require.NoError(t, json.NewEncoder(&body).Encode(map[string]interface{}{
		"cliente_nome": "Loja", "produto": "Cabo", "quantidade": 2, "valor_unitario": 9.9,
	}))
	w := httptest.NewRecorder()
	h.Create(w, newRequest(http.MethodPost, "/pedidos", body.String(), nil))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	h.Create(w, newRequest(http.MethodPost, "/pedidos", `{"cliente_nome":"Loja","quantidade":2}`, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.Get(w, newRequest(http.MethodGet, "/pedidos/7", "", map[string]string{"id": "7"}))
	assert.Equal(t, http.StatusNotFound, w.Code)

	svc.AssertExpectations(t)
}

type stubDB struct{ err error }

func (s stubDB) PingContext(context.Context) error { return s.err }

type stubRedis struct{ err error }

func (s stubRedis) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", s.err)
}

func TestHealthHandler_Ready(t *testing.T) {
	tests := []struct {
		name     string
		dbErr    error
		redisErr error
		status   int
		checks   map[string]string
	}{
		{name: "all up", status: http.StatusOK, checks: map[string]string{"database": "ok", "redis": "ok"}},
		{name: "database down", dbErr: errors.New("refused"), status: http.StatusServiceUnavailable, checks: map[string]string{"database": "failed", "redis": "ok"}},
		{name: "redis down", redisErr: errors.New("timeout"), status: http.StatusServiceUnavailable, checks: map[string]string{"database": "ok", "redis": "failed"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(stubDB{tt.dbErr}, stubRedis{tt.redisErr}, time.Second, nullLogger())

			w := httptest.NewRecorder()
			h.Ready(w, newRequest(http.MethodGet, "/health/ready", "", nil))

			assert.Equal(t, tt.status, w.Code)
			var status HealthStatus
			require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &status))
			assert.Equal(t, tt.checks, status.Checks)
		})
	}
}

func TestHealthHandler_Health(t *testing.T) {
	h := NewHealthHandler(stubDB{}, stubRedis{}, 0, nullLogger())
	w := httptest.NewRecorder()
	h.Health(w, newRequest(http.MethodGet, "/health", "", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
