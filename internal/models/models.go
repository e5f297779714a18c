package models

import (
	"time"

	"cashgame/internal/ledger"

	"github.com/shopspring/decimal"
)

const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

type Operator struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Register is a cash session. ClosedAt is nil while the register lives in the
// open partition.
type Register struct {
	ID                string     `db:"id" json:"id"`
	Name              *string    `db:"name" json:"name,omitempty"`
	Notes             *string    `db:"notes" json:"notes,omitempty"`
	CreatedBy         string     `db:"created_by" json:"created_by"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	LastTransactionAt *time.Time `db:"last_transaction_at" json:"last_transaction_at,omitempty"`
	ClosedAt          *time.Time `db:"closed_at" json:"closed_at,omitempty"`
}

func (r Register) Status() string {
	if r.ClosedAt != nil {
		return StatusClosed
	}
	return StatusOpen
}

func (r Register) IsClosed() bool {
	return r.ClosedAt != nil
}

type Player struct {
	ID         string    `db:"id" json:"id"`
	RegisterID string    `db:"register_id" json:"register_id"`
	Name       string    `db:"name" json:"name"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type Transaction struct {
	ID         string          `db:"id" json:"id"`
	PlayerID   string          `db:"player_id" json:"player_id"`
	RegisterID string          `db:"register_id" json:"register_id"`
	Type       ledger.Kind     `db:"type" json:"type"`
	Chips      decimal.Decimal `db:"chips" json:"chips"`
	Payment    decimal.Decimal `db:"payment" json:"payment"`
	Method     ledger.Method   `db:"method" json:"method"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

func (t Transaction) Entry() ledger.Entry {
	return ledger.Entry{
		Kind:    t.Type,
		Chips:   t.Chips,
		Payment: t.Payment,
		Method:  t.Method,
	}
}

func Entries(transactions []Transaction) []ledger.Entry {
	entries := make([]ledger.Entry, 0, len(transactions))
	for _, t := range transactions {
		entries = append(entries, t.Entry())
	}
	return entries
}

type PlayerPosition struct {
	Player   Player
	Position ledger.Position
}

type RegisterDetail struct {
	Register     Register
	Players      []PlayerPosition
	Transactions []Transaction
	Summary      ledger.Summary
}
