package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"ticketflow/internal/dbtest"
	"ticketflow/internal/domain"
	"ticketflow/internal/inventory"
	"ticketflow/internal/notify"
	"ticketflow/internal/order"
	"ticketflow/internal/utils"
	"ticketflow/internal/wallet"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	secret        = "test-secret"
	webhookSecret = "gateway-secret"
)

type server struct {
	t      *testing.T
	router *gin.Engine
	buyer  string
	admin  string
}

func newServer(t *testing.T) *server {
	gin.SetMode(gin.TestMode)
	gdb := dbtest.Open(t)
	require.NoError(t, gdb.Create(&domain.User{ID: 1, Username: "buyer"}).Error)
	require.NoError(t, gdb.Create(&domain.User{ID: 2, Username: "boss", Role: "admin"}).Error)

	broadcaster := notify.LogBroadcaster{}
	wallets := wallet.NewLedger(gdb, "VND")
	router, err := NewRouter(Deps{
		DB:            gdb,
		Orders:        order.NewEngine(gdb, wallets, broadcaster, nil),
		Wallets:       wallets,
		Stock:         inventory.NewLedger(gdb, broadcaster),
		JWTSecret:     secret,
		WebhookSecret: webhookSecret,
	})
	require.NoError(t, err)

	buyer, err := utils.GenerateJWT(1, secret, time.Hour)
	require.NoError(t, err)
	admin, err := utils.GenerateJWT(2, secret, time.Hour)
	require.NoError(t, err)
	return &server{t: t, router: router, buyer: buyer, admin: admin}
}

func (s *server) do(method, path, token string, body any, out any) int {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if out != nil {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w.Code
}

// seed creates an open event with one ticket type through the admin routes
func (s *server) seed(price int64, total int) string {
	s.t.Helper()
	var ev struct {
		Event domain.Event `json:"event"`
	}
	code := s.do(http.MethodPost, "/admin/events", s.admin, gin.H{
		"name":       "Summer Fest",
		"sale_start": time.Now().UTC().Add(-time.Hour),
	}, &ev)
	require.Equal(s.t, http.StatusCreated, code)

	var tt struct {
		TicketType domain.TicketType `json:"ticket_type"`
	}
	code = s.do(http.MethodPost, "/admin/events/"+ev.Event.ID+"/ticket-types", s.admin, gin.H{
		"name":           "GA",
		"unit_price":     decimal.NewFromInt(price),
		"total_quantity": total,
	}, &tt)
	require.Equal(s.t, http.StatusCreated, code)
	return tt.TicketType.ID
}

type transactionResponse struct {
	Transaction domain.Transaction `json:"transaction"`
}

// topUp requests a deposit as the buyer and has an admin approve it
func (s *server) topUp(amount int64) {
	s.t.Helper()
	var pending transactionResponse
	code := s.do(http.MethodPost, "/wallet/deposit", s.buyer, gin.H{"amount": decimal.NewFromInt(amount)}, &pending)
	require.Equal(s.t, http.StatusAccepted, code)
	require.Equal(s.t, domain.TxPending, pending.Transaction.Status)

	code = s.do(http.MethodPost, "/admin/wallet/deposits/"+pending.Transaction.ReferenceID+"/confirm", s.admin, gin.H{"approved": true}, nil)
	require.Equal(s.t, http.StatusOK, code)
}

func (s *server) balance() decimal.Decimal {
	s.t.Helper()
	var w struct {
		Wallet domain.Wallet `json:"wallet"`
	}
	require.Equal(s.t, http.StatusOK, s.do(http.MethodGet, "/wallet", s.buyer, nil, &w))
	return w.Wallet.Balance
}

func (s *server) notify(body []byte, signature string) int {
	s.t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/payments/deposits/notify", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, signature)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w.Code
}

type orderResponse struct {
	Order domain.Order `json:"order"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func TestReserveAndPayFlow(t *testing.T) {
	s := newServer(t)
	ttID := s.seed(100, 5)

	s.topUp(500)

	var reserved orderResponse
	code := s.do(http.MethodPost, "/orders", s.buyer, gin.H{"items": []gin.H{{"ticket_type_id": ttID, "quantity": 3}}}, &reserved)
	require.Equal(t, http.StatusCreated, code)
	assert.True(t, decimal.NewFromInt(300).Equal(reserved.Order.TotalAmount))

	var summary order.Summary
	code = s.do(http.MethodGet, "/orders/"+reserved.Order.ID+"/status", s.buyer, nil, &summary)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, domain.OrderPending, summary.Status)

	var paid orderResponse
	code = s.do(http.MethodPost, "/orders/"+reserved.Order.ID+"/pay", s.buyer, nil, &paid)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, domain.OrderPaid, paid.Order.Status)
	require.Len(t, paid.Order.Tickets, 3)

	code = s.do(http.MethodPost, "/orders/"+reserved.Order.ID+"/pay", s.buyer, nil, nil)
	assert.Equal(t, http.StatusOK, code, "paying twice is a no-op")

	var w struct {
		Wallet domain.Wallet `json:"wallet"`
	}
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/wallet", s.buyer, nil, &w))
	assert.True(t, decimal.NewFromInt(200).Equal(w.Wallet.Balance))

	var history wallet.Page
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/wallet/transactions?page_size=10", s.buyer, nil, &history))
	assert.Equal(t, int64(2), history.Total)

	var checkedIn struct {
		Ticket domain.Ticket `json:"ticket"`
	}
	code = s.do(http.MethodPost, "/admin/tickets/check-in", s.admin, gin.H{"code": paid.Order.Tickets[0].Code}, &checkedIn)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, domain.TicketUsed, checkedIn.Ticket.Status)

	var tt struct {
		TicketType domain.TicketType `json:"ticket_type"`
	}
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/ticket-types/"+ttID, "", nil, &tt))
	assert.Equal(t, 2, tt.TicketType.AvailableQuantity)
}

func TestErrorStatuses(t *testing.T) {
	s := newServer(t)
	ttID := s.seed(100, 1)

	var e errorResponse
	code := s.do(http.MethodPost, "/orders", s.buyer, gin.H{"items": []gin.H{{"ticket_type_id": ttID, "quantity": 2}}}, &e)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", e.Kind)

	code = s.do(http.MethodPost, "/orders", s.buyer, gin.H{"items": []gin.H{{"ticket_type_id": "nope", "quantity": 1}}}, &e)
	assert.Equal(t, http.StatusNotFound, code)

	var reserved orderResponse
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/orders", s.buyer, gin.H{"items": []gin.H{{"ticket_type_id": ttID, "quantity": 1}}}, &reserved))

	code = s.do(http.MethodPost, "/orders/"+reserved.Order.ID+"/pay", s.buyer, nil, &e)
	assert.Equal(t, http.StatusPaymentRequired, code)
	assert.Equal(t, "insufficient_funds", e.Kind)

	code = s.do(http.MethodGet, "/orders/"+reserved.Order.ID, s.admin, nil, &e)
	assert.Equal(t, http.StatusForbidden, code, "another user's order")
}

func TestAuthBoundaries(t *testing.T) {
	s := newServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/orders", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/orders", "garbage", nil, nil))
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/admin/events", s.buyer, gin.H{"name": "x"}, nil))

	stranger, err := utils.GenerateJWT(99, secret, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/admin/wallet/refund", stranger, gin.H{}, nil))
}

func TestAdminRefundAndCapacityEdit(t *testing.T) {
	s := newServer(t)
	ttID := s.seed(100, 5)

	var reserved orderResponse
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/orders", s.buyer, gin.H{"items": []gin.H{{"ticket_type_id": ttID, "quantity": 2}}}, &reserved))

	var e errorResponse
	code := s.do(http.MethodPatch, "/admin/ticket-types/"+ttID, s.admin, gin.H{"total_quantity": 1}, &e)
	assert.Equal(t, http.StatusBadRequest, code, "capacity below sold")

	var tt struct {
		TicketType domain.TicketType `json:"ticket_type"`
	}
	code = s.do(http.MethodPatch, "/admin/ticket-types/"+ttID, s.admin, gin.H{"total_quantity": 10}, &tt)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 8, tt.TicketType.AvailableQuantity)

	refund := gin.H{"user_id": 1, "amount": "50", "reference_id": reserved.Order.Code, "description": "goodwill"}
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/admin/wallet/refund", s.admin, refund, nil))
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/admin/wallet/refund", s.admin, refund, nil))

	var w struct {
		Wallet domain.Wallet `json:"wallet"`
	}
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/wallet", s.buyer, nil, &w))
	assert.True(t, decimal.NewFromInt(50).Equal(w.Wallet.Balance), "a repeated refund reference credits once")
}

func TestHealthAndMetrics(t *testing.T) {
	s := newServer(t)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/healthz", "", nil, nil))
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/metrics", "", nil, nil))
}

func TestStatusOf(t *testing.T) {
	cases := map[error]int{
		domain.NewError(domain.ErrNotFound, "x"):          http.StatusNotFound,
		domain.NewError(domain.ErrValidation, "x"):        http.StatusBadRequest,
		domain.NewError(domain.ErrUnauthorized, "x"):      http.StatusForbidden,
		domain.NewError(domain.ErrConflict, "x"):          http.StatusConflict,
		domain.NewError(domain.ErrInsufficientFunds, "x"): http.StatusPaymentRequired,
		domain.NewError(domain.ErrOrderExpired, "x"):      http.StatusGone,
		errors.New("disk on fire"):                        http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, StatusOf(err), err.Error())
	}
}

func TestBuyerDepositWaitsForConfirmation(t *testing.T) {
	s := newServer(t)

	var pending transactionResponse
	code := s.do(http.MethodPost, "/wallet/deposit", s.buyer, gin.H{"amount": "1000000"}, &pending)
	require.Equal(t, http.StatusAccepted, code)
	assert.True(t, s.balance().IsZero(), "a deposit request alone credits nothing")

	confirm := "/admin/wallet/deposits/" + pending.Transaction.ReferenceID + "/confirm"
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, confirm, s.buyer, gin.H{"approved": true}, nil))
	assert.True(t, s.balance().IsZero())

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, confirm, s.admin, gin.H{}, nil), "verdict required")
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, confirm, s.admin, gin.H{"approved": true}, nil))
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, confirm, s.admin, gin.H{"approved": true}, nil))
	assert.True(t, decimal.NewFromInt(1000000).Equal(s.balance()), "confirmed once")

	var e errorResponse
	code = s.do(http.MethodPost, "/admin/wallet/deposits/DEP-NOPE/confirm", s.admin, gin.H{"approved": true}, &e)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestGatewayNotification(t *testing.T) {
	s := newServer(t)

	var approved, declined transactionResponse
	require.Equal(t, http.StatusAccepted, s.do(http.MethodPost, "/wallet/deposit", s.buyer, gin.H{"amount": "300"}, &approved))
	require.Equal(t, http.StatusAccepted, s.do(http.MethodPost, "/wallet/deposit", s.buyer, gin.H{"amount": "700"}, &declined))

	ok, _ := json.Marshal(GatewayNotification{ReferenceID: approved.Transaction.ReferenceID, Approved: true})
	assert.Equal(t, http.StatusUnauthorized, s.notify(ok, ""), "unsigned")
	assert.Equal(t, http.StatusUnauthorized, s.notify(ok, utils.SignPayload(ok, "forged")), "wrong key")
	assert.True(t, s.balance().IsZero())

	assert.Equal(t, http.StatusOK, s.notify(ok, utils.SignPayload(ok, webhookSecret)))
	assert.Equal(t, http.StatusOK, s.notify(ok, utils.SignPayload(ok, webhookSecret)), "gateway retry")

	no, _ := json.Marshal(GatewayNotification{ReferenceID: declined.Transaction.ReferenceID, Approved: false})
	assert.Equal(t, http.StatusOK, s.notify(no, utils.SignPayload(no, webhookSecret)))

	assert.True(t, decimal.NewFromInt(300).Equal(s.balance()))

	var history wallet.Page
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/wallet/transactions", s.buyer, nil, &history))
	statuses := map[string]domain.TransactionStatus{}
	for _, tx := range history.Transactions {
		statuses[tx.ReferenceID] = tx.Status
	}
	assert.Equal(t, domain.TxSuccess, statuses[approved.Transaction.ReferenceID])
	assert.Equal(t, domain.TxFailed, statuses[declined.Transaction.ReferenceID])
}
