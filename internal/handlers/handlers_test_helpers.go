package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"cashgame/internal/auth"
	"cashgame/internal/config"
	"cashgame/internal/db"
	"cashgame/internal/models"
	"cashgame/internal/services"
	"cashgame/internal/store"
	"cashgame/internal/websocket"

	"github.com/jmoiron/sqlx"
)

type fakeTxRunner struct {
	withTxFn func(ctx context.Context, fn func(*sqlx.Tx) error) error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.withTxFn != nil {
		return f.withTxFn(ctx, fn)
	}
	return fn(nil)
}

type stubReconcileDB struct {
	selectFn func(ctx context.Context, dest any, query string, args ...any) error
}

func (s stubReconcileDB) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	if s.selectFn == nil {
		return nil
	}
	return s.selectFn(ctx, dest, query, args...)
}

type stubOperatorStore struct {
	createFn     func(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error
	getByEmailFn func(ctx context.Context, email string) (models.Operator, error)
	getByIDFn    func(ctx context.Context, operatorID string) (models.Operator, error)
}

func (s stubOperatorStore) Create(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, username, email, passwordHash)
}

func (s stubOperatorStore) GetByEmail(ctx context.Context, email string) (models.Operator, error) {
	if s.getByEmailFn == nil {
		return models.Operator{}, nil
	}
	return s.getByEmailFn(ctx, email)
}

func (s stubOperatorStore) GetByID(ctx context.Context, operatorID string) (models.Operator, error) {
	if s.getByIDFn == nil {
		return models.Operator{}, nil
	}
	return s.getByIDFn(ctx, operatorID)
}

type stubAuditStore struct {
	logFn             func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	listFn            func(ctx context.Context, limit, offset int) ([]store.AuditEntry, error)
	listForRegisterFn func(ctx context.Context, registerID string) ([]store.AuditEntry, error)
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, actorID, action, entityType, entityID, data)
}

func (s stubAuditStore) List(ctx context.Context, limit, offset int) ([]store.AuditEntry, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, limit, offset)
}

func (s stubAuditStore) ListForRegister(ctx context.Context, registerID string) ([]store.AuditEntry, error) {
	if s.listForRegisterFn == nil {
		return nil, nil
	}
	return s.listForRegisterFn(ctx, registerID)
}

type stubRegisterService struct {
	createFn        func(ctx context.Context, actor auth.Actor, name, notes *string) (models.Register, error)
	addPlayerFn     func(ctx context.Context, actor auth.Actor, registerID, name string) (models.Player, error)
	closeFn         func(ctx context.Context, actor auth.Actor, registerID string) (models.Register, error)
	authorizeEditFn func(ctx context.Context, actor auth.Actor, registerID, secret string) (auth.Actor, error)
	listOpenFn      func(ctx context.Context) ([]models.Register, error)
	listClosedFn    func(ctx context.Context, search string, page, limit int) (services.ClosedPage, error)
	detailFn        func(ctx context.Context, registerID string) (models.RegisterDetail, error)
}

func (s stubRegisterService) Create(ctx context.Context, actor auth.Actor, name, notes *string) (models.Register, error) {
	if s.createFn == nil {
		return models.Register{}, nil
	}
	return s.createFn(ctx, actor, name, notes)
}

func (s stubRegisterService) AddPlayer(ctx context.Context, actor auth.Actor, registerID, name string) (models.Player, error) {
	if s.addPlayerFn == nil {
		return models.Player{}, nil
	}
	return s.addPlayerFn(ctx, actor, registerID, name)
}

func (s stubRegisterService) Close(ctx context.Context, actor auth.Actor, registerID string) (models.Register, error) {
	if s.closeFn == nil {
		return models.Register{}, nil
	}
	return s.closeFn(ctx, actor, registerID)
}

func (s stubRegisterService) AuthorizeEdit(ctx context.Context, actor auth.Actor, registerID, secret string) (auth.Actor, error) {
	if s.authorizeEditFn == nil {
		return actor.WithEditGrant(registerID), nil
	}
	return s.authorizeEditFn(ctx, actor, registerID, secret)
}

func (s stubRegisterService) ListOpen(ctx context.Context) ([]models.Register, error) {
	if s.listOpenFn == nil {
		return nil, nil
	}
	return s.listOpenFn(ctx)
}

func (s stubRegisterService) ListClosed(ctx context.Context, search string, page, limit int) (services.ClosedPage, error) {
	if s.listClosedFn == nil {
		return services.ClosedPage{Page: page, Limit: limit}, nil
	}
	return s.listClosedFn(ctx, search, page, limit)
}

func (s stubRegisterService) Detail(ctx context.Context, registerID string) (models.RegisterDetail, error) {
	if s.detailFn == nil {
		return models.RegisterDetail{}, nil
	}
	return s.detailFn(ctx, registerID)
}

type stubTransactionService struct {
	appendFn         func(ctx context.Context, actor auth.Actor, req services.AppendRequest) (models.Transaction, error)
	removeFn         func(ctx context.Context, actor auth.Actor, transactionID string) error
	listByPlayerFn   func(ctx context.Context, playerID string) ([]models.Transaction, error)
	playerPositionFn func(ctx context.Context, playerID string) (models.PlayerPosition, error)
}

func (s stubTransactionService) Append(ctx context.Context, actor auth.Actor, req services.AppendRequest) (models.Transaction, error) {
	if s.appendFn == nil {
		return models.Transaction{}, nil
	}
	return s.appendFn(ctx, actor, req)
}

func (s stubTransactionService) Remove(ctx context.Context, actor auth.Actor, transactionID string) error {
	if s.removeFn == nil {
		return nil
	}
	return s.removeFn(ctx, actor, transactionID)
}

func (s stubTransactionService) ListByPlayer(ctx context.Context, playerID string) ([]models.Transaction, error) {
	if s.listByPlayerFn == nil {
		return nil, nil
	}
	return s.listByPlayerFn(ctx, playerID)
}

func (s stubTransactionService) PlayerPosition(ctx context.Context, playerID string) (models.PlayerPosition, error) {
	if s.playerPositionFn == nil {
		return models.PlayerPosition{}, nil
	}
	return s.playerPositionFn(ctx, playerID)
}

func testConfig() config.Config {
	return config.Config{
		AppEnv:         "test",
		Port:           "0",
		DatabaseURL:    "",
		JWTSecret:      "secret",
		TokenTTL:       time.Minute,
		AllowedOrigins: "*",
		EditGrantTTL:   time.Minute,
	}
}

func newTestHandler(reconcileDB store.Selecter, txRunner db.TxRunner, operators OperatorStore, audit AuditStore, registers RegisterService, transactions TransactionService) *Handler {
	return New(reconcileDB, txRunner, testConfig(), operators, audit, registers, transactions, websocket.NewHub())
}

// serve runs a request through the full router, authenticated as userID when
// it is non-empty.
func serve(t *testing.T, h *Handler, method, path string, body any, userID string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			payload.WriteString(raw)
		} else if err := json.NewEncoder(&payload).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := auth.GenerateToken("secret", userID, time.Minute)
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body %q: %v", rr.Body.String(), err)
	}
	return body
}
