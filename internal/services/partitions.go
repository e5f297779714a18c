package services

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"sort"
	"time"

	"cashgame/internal/ledger"
	"cashgame/internal/models"
	"cashgame/internal/store"
	"cashgame/internal/websocket"
)

type RegisterStore interface {
	CreateOpen(ctx context.Context, tx store.Execer, reg models.Register) error
	GetOpen(ctx context.Context, registerID string) (models.Register, error)
	GetOpenForUpdate(ctx context.Context, tx store.Getter, registerID string) (models.Register, error)
	GetClosed(ctx context.Context, registerID string) (models.Register, error)
	InsertClosed(ctx context.Context, tx store.Execer, reg models.Register) error
	DeleteOpen(ctx context.Context, tx store.Execer, registerID string) (int64, error)
	TouchOpen(ctx context.Context, tx store.Execer, registerID string, at time.Time) error
	TouchClosed(ctx context.Context, tx store.Execer, registerID string, at time.Time) error
	ListOpen(ctx context.Context) ([]models.Register, error)
	ListClosed(ctx context.Context, search string, limit, offset int) ([]models.Register, error)
	CountClosed(ctx context.Context, search string) (int, error)
}

type PlayerStore interface {
	Create(ctx context.Context, tx store.Execer, player models.Player) error
	CreateClosed(ctx context.Context, tx store.Execer, player models.Player) error
	GetByID(ctx context.Context, playerID string) (models.Player, error)
	GetClosedByID(ctx context.Context, playerID string) (models.Player, error)
	ListByRegister(ctx context.Context, registerID string) ([]models.Player, error)
	ListClosedByRegister(ctx context.Context, registerID string) ([]models.Player, error)
	CopyToClosed(ctx context.Context, tx store.Execer, registerID string) (int64, error)
	DeleteByRegister(ctx context.Context, tx store.Execer, registerID string) (int64, error)
}

type TransactionStore interface {
	Create(ctx context.Context, tx store.Execer, t models.Transaction) error
	CreateClosed(ctx context.Context, tx store.Execer, t models.Transaction) error
	GetByID(ctx context.Context, transactionID string) (models.Transaction, error)
	GetClosedByID(ctx context.Context, transactionID string) (models.Transaction, error)
	Delete(ctx context.Context, tx store.Execer, transactionID string) (int64, error)
	DeleteClosed(ctx context.Context, tx store.Execer, transactionID string) (int64, error)
	ListByPlayer(ctx context.Context, playerID string) ([]models.Transaction, error)
	ListClosedByPlayer(ctx context.Context, playerID string) ([]models.Transaction, error)
	ListByRegister(ctx context.Context, registerID string) ([]models.Transaction, error)
	ListClosedByRegister(ctx context.Context, registerID string) ([]models.Transaction, error)
	CopyToClosed(ctx context.Context, tx store.Execer, registerID string) (int64, error)
	DeleteByRegister(ctx context.Context, tx store.Execer, registerID string) (int64, error)
}

type AuditStore interface {
	LogForRegister(ctx context.Context, tx store.Execer, registerID, actorID, action, entityType, entityID, data string) error
}

type SummaryHub interface {
	BroadcastSummary(registerID string, update websocket.SummaryUpdate)
}

// partitions resolves ids against the open partition first and the closed
// one second. The bool results report whether the record was found closed.
type partitions struct {
	registers    RegisterStore
	players      PlayerStore
	transactions TransactionStore
	hub          SummaryHub
}

func (p partitions) register(ctx context.Context, registerID string) (models.Register, bool, error) {
	reg, err := p.registers.GetOpen(ctx, registerID)
	if err == nil {
		return reg, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Register{}, false, classify(err)
	}
	reg, err = p.registers.GetClosed(ctx, registerID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Register{}, false, ErrRegisterNotFound
	}
	if err != nil {
		return models.Register{}, false, classify(err)
	}
	return reg, true, nil
}

func (p partitions) player(ctx context.Context, playerID string) (models.Player, bool, error) {
	player, err := p.players.GetByID(ctx, playerID)
	if err == nil {
		return player, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Player{}, false, classify(err)
	}
	player, err = p.players.GetClosedByID(ctx, playerID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Player{}, false, ErrPlayerNotFound
	}
	if err != nil {
		return models.Player{}, false, classify(err)
	}
	return player, true, nil
}

func (p partitions) transaction(ctx context.Context, transactionID string) (models.Transaction, bool, error) {
	t, err := p.transactions.GetByID(ctx, transactionID)
	if err == nil {
		return t, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, false, classify(err)
	}
	t, err = p.transactions.GetClosedByID(ctx, transactionID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, false, ErrTransactionNotFound
	}
	if err != nil {
		return models.Transaction{}, false, classify(err)
	}
	return t, true, nil
}

// lockOpen takes the row lock on an open register for the rest of the
// transaction. A register that closed in the meantime reports ErrRegisterClosed.
func (p partitions) lockOpen(ctx context.Context, tx store.Getter, registerID string) error {
	_, err := p.registers.GetOpenForUpdate(ctx, tx, registerID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRegisterClosed
	}
	return err
}

func (p partitions) detail(ctx context.Context, reg models.Register, closed bool) (models.RegisterDetail, error) {
	var players []models.Player
	var transactions []models.Transaction
	var err error
	if closed {
		players, err = p.players.ListClosedByRegister(ctx, reg.ID)
		if err == nil {
			transactions, err = p.transactions.ListClosedByRegister(ctx, reg.ID)
		}
	} else {
		players, err = p.players.ListByRegister(ctx, reg.ID)
		if err == nil {
			transactions, err = p.transactions.ListByRegister(ctx, reg.ID)
		}
	}
	if err != nil {
		return models.RegisterDetail{}, classify(err)
	}
	return buildDetail(reg, players, transactions), nil
}

// buildDetail folds the log into per-player positions and the register
// summary. Transactions come out newest first.
func buildDetail(reg models.Register, players []models.Player, transactions []models.Transaction) models.RegisterDetail {
	byPlayer := make(map[string][]ledger.Entry, len(players))
	for _, t := range transactions {
		byPlayer[t.PlayerID] = append(byPlayer[t.PlayerID], t.Entry())
	}
	detail := models.RegisterDetail{
		Register:     reg,
		Players:      make([]models.PlayerPosition, 0, len(players)),
		Transactions: append([]models.Transaction(nil), transactions...),
	}
	positions := make([]ledger.Position, 0, len(players))
	for _, player := range players {
		pos := ledger.Tally(byPlayer[player.ID])
		positions = append(positions, pos)
		detail.Players = append(detail.Players, models.PlayerPosition{Player: player, Position: pos})
	}
	sort.SliceStable(detail.Transactions, func(i, j int) bool {
		return detail.Transactions[i].CreatedAt.After(detail.Transactions[j].CreatedAt)
	})
	detail.Summary = ledger.Summarize(positions)
	return detail
}

// publish pushes the recomputed summary to live subscribers. Failures are
// logged and dropped; the mutation has already committed.
func (p partitions) publish(ctx context.Context, registerID, event string) {
	if p.hub == nil {
		return
	}
	reg, closed, err := p.register(ctx, registerID)
	if err != nil {
		log.Printf("summary broadcast for register %s skipped: %v", registerID, err)
		return
	}
	detail, err := p.detail(ctx, reg, closed)
	if err != nil {
		log.Printf("summary broadcast for register %s skipped: %v", registerID, err)
		return
	}
	p.hub.BroadcastSummary(registerID, websocket.NewSummaryUpdate(registerID, event, reg.Status(), detail.Summary))
}
