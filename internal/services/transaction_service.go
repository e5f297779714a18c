package services

import (
	"context"
	"encoding/json"
	"time"

	"cashgame/internal/auth"
	"cashgame/internal/db"
	"cashgame/internal/ledger"
	"cashgame/internal/models"
	"cashgame/internal/money"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// TransactionService appends to and deletes from a player's transaction log.
type TransactionService struct {
	partitions
	txRunner   db.TxRunner
	auditStore AuditStore
	policy     auth.AuthorizationPolicy
	now        func() time.Time
}

func NewTransactionService(txRunner db.TxRunner, registers RegisterStore, players PlayerStore, transactions TransactionStore, auditStore AuditStore, policy auth.AuthorizationPolicy, hub SummaryHub) *TransactionService {
	return &TransactionService{
		partitions: partitions{
			registers:    registers,
			players:      players,
			transactions: transactions,
			hub:          hub,
		},
		txRunner:   txRunner,
		auditStore: auditStore,
		policy:     policy,
		now:        time.Now,
	}
}

type AppendRequest struct {
	PlayerID string
	Kind     ledger.Kind
	Chips    decimal.Decimal
	Payment  decimal.Decimal
	Method   ledger.Method
}

func (r AppendRequest) validate() error {
	if r.Chips.IsNegative() {
		return ErrNegativeChips
	}
	if r.Payment.IsNegative() {
		return ErrNegativePayment
	}
	if !money.WithinLimit(r.Chips) || !money.WithinLimit(r.Payment) {
		return ErrAmountTooLarge
	}
	if !r.Kind.Valid() {
		return ErrUnknownKind
	}
	if !r.Method.Valid() {
		return ErrUnknownMethod
	}
	return nil
}

func (s *TransactionService) Append(ctx context.Context, actor auth.Actor, req AppendRequest) (models.Transaction, error) {
	if !actor.Authenticated() {
		return models.Transaction{}, ErrUnauthenticated
	}
	if err := req.validate(); err != nil {
		return models.Transaction{}, err
	}
	player, closed, err := s.player(ctx, req.PlayerID)
	if err != nil {
		return models.Transaction{}, err
	}
	if closed && !s.policy.CanEditClosed(actor, player.RegisterID) {
		return models.Transaction{}, ErrRegisterClosed
	}
	t := models.Transaction{
		ID:         uuid.NewString(),
		PlayerID:   player.ID,
		RegisterID: player.RegisterID,
		Type:       req.Kind,
		Chips:      req.Chips,
		Payment:    req.Payment,
		Method:     req.Method,
		CreatedAt:  s.now().UTC(),
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if closed {
			if err := s.transactions.CreateClosed(ctx, tx, t); err != nil {
				return err
			}
			if err := s.registers.TouchClosed(ctx, tx, t.RegisterID, t.CreatedAt); err != nil {
				return err
			}
		} else {
			if err := s.lockOpen(ctx, tx, t.RegisterID); err != nil {
				return err
			}
			if err := s.transactions.Create(ctx, tx, t); err != nil {
				return err
			}
			if err := s.registers.TouchOpen(ctx, tx, t.RegisterID, t.CreatedAt); err != nil {
				return err
			}
		}
		data, err := json.Marshal(t)
		if err != nil {
			return err
		}
		return s.auditStore.LogForRegister(ctx, tx, t.RegisterID, actor.ID, "transaction.append", "transaction", t.ID, string(data))
	})
	if err != nil {
		return models.Transaction{}, classify(err)
	}
	s.publish(ctx, t.RegisterID, "transaction.appended")
	return t, nil
}

// Remove hard-deletes a transaction. The audit row keeps the deleted content.
func (s *TransactionService) Remove(ctx context.Context, actor auth.Actor, transactionID string) error {
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}
	t, closed, err := s.transaction(ctx, transactionID)
	if err != nil {
		return err
	}
	if closed && !s.policy.CanEditClosed(actor, t.RegisterID) {
		return ErrRegisterClosed
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var deleted int64
		var err error
		if closed {
			deleted, err = s.transactions.DeleteClosed(ctx, tx, transactionID)
		} else {
			if err := s.lockOpen(ctx, tx, t.RegisterID); err != nil {
				return err
			}
			deleted, err = s.transactions.Delete(ctx, tx, transactionID)
		}
		if err != nil {
			return err
		}
		if deleted == 0 {
			return ErrTransactionNotFound
		}
		data, err := json.Marshal(t)
		if err != nil {
			return err
		}
		return s.auditStore.LogForRegister(ctx, tx, t.RegisterID, actor.ID, "transaction.remove", "transaction", transactionID, string(data))
	})
	if err != nil {
		return classify(err)
	}
	s.publish(ctx, t.RegisterID, "transaction.removed")
	return nil
}

// ListByPlayer returns the player's log, newest first, from whichever
// partition holds the player.
func (s *TransactionService) ListByPlayer(ctx context.Context, playerID string) ([]models.Transaction, error) {
	_, closed, err := s.player(ctx, playerID)
	if err != nil {
		return nil, err
	}
	var rows []models.Transaction
	if closed {
		rows, err = s.transactions.ListClosedByPlayer(ctx, playerID)
	} else {
		rows, err = s.transactions.ListByPlayer(ctx, playerID)
	}
	if err != nil {
		return nil, classify(err)
	}
	return rows, nil
}

// PlayerPosition returns the player's derived totals alongside the player.
func (s *TransactionService) PlayerPosition(ctx context.Context, playerID string) (models.PlayerPosition, error) {
	player, _, err := s.player(ctx, playerID)
	if err != nil {
		return models.PlayerPosition{}, err
	}
	rows, err := s.ListByPlayer(ctx, playerID)
	if err != nil {
		return models.PlayerPosition{}, err
	}
	return models.PlayerPosition{Player: player, Position: ledger.Tally(models.Entries(rows))}, nil
}
