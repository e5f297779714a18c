package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"cashgame/internal/auth"
	"cashgame/internal/ledger"
	"cashgame/internal/models"
	"cashgame/internal/services"

	"github.com/shopspring/decimal"
)

func TestAddTransactionParsesAmounts(t *testing.T) {
	var got services.AppendRequest
	handler := newTestHandler(stubReconcileDB{}, fakeTxRunner{}, stubOperatorStore{}, stubAuditStore{}, stubRegisterService{}, stubTransactionService{
		appendFn: func(_ context.Context, _ auth.Actor, req services.AppendRequest) (models.Transaction, error) {
			got = req
			return models.Transaction{
				ID:         "tx-1",
				PlayerID:   req.PlayerID,
				RegisterID: "reg-1",
				Type:       req.Kind,
				Chips:      req.Chips,
				Payment:    req.Payment,
				Method:     req.Method,
				CreatedAt:  time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC),
			}, nil
		},
	})

	rr := serve(t, handler, http.MethodPost, "/players/p-1/transactions",
		`{"type":"buy-in","chips":"12.50","payment":10,"method":"card"}`, "op-1", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.PlayerID != "p-1" || got.Kind != ledger.KindBuyIn || got.Method != ledger.MethodCard {
		t.Fatalf("unexpected request: %#v", got)
	}
	if !got.Chips.Equal(decimal.RequireFromString("12.5")) || !got.Payment.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected amounts: chips=%s payment=%s", got.Chips, got.Payment)
	}
	body := decodeBody(t, rr)
	if body["chips"] != "12.50" || body["payment"] != "10.00" || body["created_at"] != "2026-03-01T21:00:00Z" {
		t.Fatalf("unexpected payload: %#v", body)
	}
}

func TestAddTransactionPaymentOptional(t *testing.T) {
	var got services.AppendRequest
	handler := newTestHandler(stubReconcileDB{}, fakeTxRunner{}, stubOperatorStore{}, stubAuditStore{}, stubRegisterService{}, stubTransactionService{
		appendFn: func(_ context.Context, _ auth.Actor, req services.AppendRequest) (models.Transaction, error) {
			got = req
			return models.Transaction{ID: "tx-1"}, nil
		},
	})

	rr := serve(t, handler, http.MethodPost, "/players/p-1/transactions",
		`{"type":"cash-out","chips":25,"method":"cash"}`, "op-1", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if !got.Payment.IsZero() {
		t.Fatalf("expected zero payment, got %s", got.Payment)
	}
}

func TestAddTransactionRejectsBadAmounts(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		prefix string
	}{
		{"missing chips", `{"type":"buy-in","method":"cash"}`, "chips:"},
		{"too many decimals", `{"type":"buy-in","chips":1.005,"method":"cash"}`, "chips:"},
		{"bad payment", `{"type":"buy-in","chips":5,"payment":0.001,"method":"cash"}`, "payment:"},
		{"not a number", `{"type":"buy-in","chips":"abc","method":"cash"}`, "invalid payload"},
		{"chips beyond storage", `{"type":"buy-in","chips":1000000000000,"method":"cash"}`, "chips: amount exceeds the maximum"},
		{"payment beyond storage", `{"type":"buy-in","chips":5,"payment":"1000000000000.00","method":"cash"}`, "payment: amount exceeds the maximum"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newTestHandler(stubReconcileDB{}, fakeTxRunner{}, stubOperatorStore{}, stubAuditStore{}, stubRegisterService{}, stubTransactionService{
				appendFn: func(context.Context, auth.Actor, services.AppendRequest) (models.Transaction, error) {
					t.Fatal("service must not be called")
					return models.Transaction{}, nil
				},
			})

			rr := serve(t, handler, http.MethodPost, "/players/p-1/transactions", tc.body, "op-1", nil)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rr.Code)
			}
			message, _ := decodeBody(t, rr)["error"].(string)
			if !strings.HasPrefix(message, tc.prefix) {
				t.Fatalf("expected error starting with %q, got %q", tc.prefix, message)
			}
		})
	}
}

func TestAddTransactionServiceErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"negative chips", services.ErrNegativeChips, http.StatusBadRequest},
		{"unknown method", services.ErrUnknownMethod, http.StatusBadRequest},
		{"amount too large", services.ErrAmountTooLarge, http.StatusBadRequest},
		{"closed register", services.ErrRegisterClosed, http.StatusConflict},
		{"unknown player", services.ErrPlayerNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newTestHandler(stubReconcileDB{}, fakeTxRunner{}, stubOperatorStore{}, stubAuditStore{}, stubRegisterService{}, stubTransactionService{
				appendFn: func(context.Context, auth.Actor, services.AppendRequest) (models.Transaction, error) {
					return models.Transaction{}, tc.err
				},
			})

			rr := serve(t, handler, http.MethodPost, "/players/p-1/transactions",
				`{"type":"buy-in","chips":-5,"method":"cash"}`, "op-1", nil)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
		})
	}
}

func TestDeleteTransaction(t *testing.T) {
	var gotID string
	handler := newTestHandler(stubReconcileDB{}, fakeTxRunner{}, stubOperatorStore{}, stubAuditStore{}, stubRegisterService{}, stubTransactionService{
		removeFn: func(_ context.Context, actor auth.Actor, transactionID string) error {
			if actor.ID != "op-1" {
				t.Fatalf("unexpected actor %q", actor.ID)
			}
			gotID = transactionID
			if transactionID == "missing" {
				return services.ErrTransactionNotFound
			}
			return nil
		},
	})

	rr := serve(t, handler, http.MethodDelete, "/transactions/tx-1", nil, "op-1", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if gotID != "tx-1" {
		t.Fatalf("unexpected transaction id %q", gotID)
	}

	rr = serve(t, handler, http.MethodDelete, "/transactions/missing", nil, "op-1", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestGetPlayerPosition(t *testing.T) {
	handler := newTestHandler(stubReconcileDB{}, fakeTxRunner{}, stubOperatorStore{}, stubAuditStore{}, stubRegisterService{}, stubTransactionService{
		playerPositionFn: func(_ context.Context, playerID string) (models.PlayerPosition, error) {
			return models.PlayerPosition{
				Player: models.Player{ID: playerID, RegisterID: "reg-1", Name: "Alice"},
				Position: ledger.Tally([]ledger.Entry{
					{Kind: ledger.KindBuyIn, Chips: decimal.NewFromInt(40), Payment: decimal.NewFromInt(30), Method: ledger.MethodCash},
					{Kind: ledger.KindBuyIn, Chips: decimal.NewFromInt(10), Payment: decimal.NewFromInt(10), Method: ledger.MethodVoucher},
				}),
			}, nil
		},
	})

	rr := serve(t, handler, http.MethodGet, "/players/p-1", nil, "op-1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["balance"] != "-10.00" || body["total_payments"] != "40.00" {
		t.Fatalf("unexpected position: %#v", body)
	}
	payments, _ := body["payments"].(map[string]any)
	if payments["cash"] != "30.00" || payments["voucher"] != "10.00" || payments["card"] != "0.00" {
		t.Fatalf("unexpected payments: %#v", payments)
	}
}

func TestListPlayerTransactions(t *testing.T) {
	created := time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC)
	handler := newTestHandler(stubReconcileDB{}, fakeTxRunner{}, stubOperatorStore{}, stubAuditStore{}, stubRegisterService{}, stubTransactionService{
		listByPlayerFn: func(_ context.Context, playerID string) ([]models.Transaction, error) {
			return []models.Transaction{
				{ID: "tx-2", PlayerID: playerID, CreatedAt: created.Add(time.Minute)},
				{ID: "tx-1", PlayerID: playerID, CreatedAt: created},
			}, nil
		},
	})

	rr := serve(t, handler, http.MethodGet, "/players/p-1/transactions", nil, "op-1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"id":"tx-2"`) {
		t.Fatalf("unexpected payload: %s", rr.Body.String())
	}
}
