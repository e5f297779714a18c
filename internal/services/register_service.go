package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"cashgame/internal/auth"
	"cashgame/internal/db"
	"cashgame/internal/models"
	"cashgame/internal/validator"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	// MaxPage bounds page numbers so the row offset cannot overflow.
	MaxPage = 10000
)

// RegisterService owns the register lifecycle: creation, players, the
// open-to-closed move and edit grants on closed registers.
type RegisterService struct {
	partitions
	txRunner   db.TxRunner
	auditStore AuditStore
	policy     auth.AuthorizationPolicy
	now        func() time.Time
}

func NewRegisterService(txRunner db.TxRunner, registers RegisterStore, players PlayerStore, transactions TransactionStore, auditStore AuditStore, policy auth.AuthorizationPolicy, hub SummaryHub) *RegisterService {
	return &RegisterService{
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

type ClosedPage struct {
	Registers []models.Register
	Total     int
	Page      int
	Limit     int
}

func (s *RegisterService) Create(ctx context.Context, actor auth.Actor, name, notes *string) (models.Register, error) {
	if !actor.Authenticated() {
		return models.Register{}, ErrUnauthenticated
	}
	name = trimOptional(name)
	if name != nil {
		if err := validator.ValidateName(*name); err != nil {
			return models.Register{}, invalid(err)
		}
	}
	notes = trimOptional(notes)
	if notes != nil {
		if err := validator.ValidateNotes(*notes); err != nil {
			return models.Register{}, invalid(err)
		}
	}
	reg := models.Register{
		ID:        uuid.NewString(),
		Name:      name,
		Notes:     notes,
		CreatedBy: actor.ID,
		CreatedAt: s.now().UTC(),
	}
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.registers.CreateOpen(ctx, tx, reg); err != nil {
			return err
		}
		data, err := json.Marshal(reg)
		if err != nil {
			return err
		}
		return s.auditStore.LogForRegister(ctx, tx, reg.ID, actor.ID, "register.create", "register", reg.ID, string(data))
	})
	if err != nil {
		return models.Register{}, classify(err)
	}
	return reg, nil
}

// AddPlayer seats a new player. Closed registers accept players only from an
// actor holding an edit grant for them.
func (s *RegisterService) AddPlayer(ctx context.Context, actor auth.Actor, registerID, name string) (models.Player, error) {
	if !actor.Authenticated() {
		return models.Player{}, ErrUnauthenticated
	}
	if err := validator.ValidateName(name); err != nil {
		return models.Player{}, invalid(err)
	}
	_, closed, err := s.register(ctx, registerID)
	if err != nil {
		return models.Player{}, err
	}
	if closed && !s.policy.CanEditClosed(actor, registerID) {
		return models.Player{}, ErrRegisterClosed
	}
	player := models.Player{
		ID:         uuid.NewString(),
		RegisterID: registerID,
		Name:       strings.TrimSpace(name),
		CreatedAt:  s.now().UTC(),
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if closed {
			if err := s.players.CreateClosed(ctx, tx, player); err != nil {
				return err
			}
		} else {
			if err := s.lockOpen(ctx, tx, registerID); err != nil {
				return err
			}
			if err := s.players.Create(ctx, tx, player); err != nil {
				return err
			}
		}
		data, err := json.Marshal(player)
		if err != nil {
			return err
		}
		return s.auditStore.LogForRegister(ctx, tx, registerID, actor.ID, "player.add", "player", player.ID, string(data))
	})
	if err != nil {
		return models.Player{}, classify(err)
	}
	s.publish(ctx, registerID, "player.added")
	return player, nil
}

// Close moves the register with all of its players and transactions from the
// open partition to the closed one. Either everything moves or nothing does.
func (s *RegisterService) Close(ctx context.Context, actor auth.Actor, registerID string) (models.Register, error) {
	if !actor.Authenticated() {
		return models.Register{}, ErrUnauthenticated
	}
	if !s.policy.CanClose(actor) {
		return models.Register{}, ErrWrongSecret
	}
	var closedReg models.Register
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		reg, err := s.registers.GetOpenForUpdate(ctx, tx, registerID)
		if errors.Is(err, sql.ErrNoRows) {
			return s.missingOpenRegister(ctx, registerID)
		}
		if err != nil {
			return err
		}
		closedAt := s.now().UTC()
		reg.ClosedAt = &closedAt
		if err := s.registers.InsertClosed(ctx, tx, reg); err != nil {
			return err
		}
		players, err := s.players.CopyToClosed(ctx, tx, registerID)
		if err != nil {
			return err
		}
		transactions, err := s.transactions.CopyToClosed(ctx, tx, registerID)
		if err != nil {
			return err
		}
		if _, err := s.transactions.DeleteByRegister(ctx, tx, registerID); err != nil {
			return err
		}
		if _, err := s.players.DeleteByRegister(ctx, tx, registerID); err != nil {
			return err
		}
		deleted, err := s.registers.DeleteOpen(ctx, tx, registerID)
		if err != nil {
			return err
		}
		if deleted != 1 {
			return fmt.Errorf("open register %s removed %d rows", registerID, deleted)
		}
		data, err := json.Marshal(map[string]any{
			"closed_at":    closedAt,
			"players":      players,
			"transactions": transactions,
		})
		if err != nil {
			return err
		}
		if err := s.auditStore.LogForRegister(ctx, tx, registerID, actor.ID, "register.close", "register", registerID, string(data)); err != nil {
			return err
		}
		closedReg = reg
		return nil
	})
	if err != nil {
		return models.Register{}, classify(err)
	}
	log.Printf("register %s closed by %s", registerID, actor.ID)
	s.publish(ctx, registerID, "register.closed")
	return closedReg, nil
}

func (s *RegisterService) missingOpenRegister(ctx context.Context, registerID string) error {
	_, err := s.registers.GetClosed(ctx, registerID)
	if err == nil {
		return ErrRegisterAlreadyClosed
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRegisterNotFound
	}
	return err
}

// AuthorizeEdit checks the edit secret for a closed register and returns the
// actor carrying a grant for it. The register stays closed.
func (s *RegisterService) AuthorizeEdit(ctx context.Context, actor auth.Actor, registerID, secret string) (auth.Actor, error) {
	if !actor.Authenticated() {
		return actor, ErrUnauthenticated
	}
	_, closed, err := s.register(ctx, registerID)
	if err != nil {
		return actor, err
	}
	if !closed {
		return actor, ErrRegisterOpen
	}
	if !s.policy.ConfirmEdit(secret) {
		return actor, ErrWrongSecret
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.auditStore.LogForRegister(ctx, tx, registerID, actor.ID, "register.edit_grant", "register", registerID, "{}")
	})
	if err != nil {
		return actor, classify(err)
	}
	return actor.WithEditGrant(registerID), nil
}

func (s *RegisterService) ListOpen(ctx context.Context) ([]models.Register, error) {
	regs, err := s.registers.ListOpen(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return regs, nil
}

// ListClosed pages through closed registers, newest close first, filtered by
// a case-insensitive name substring.
func (s *RegisterService) ListClosed(ctx context.Context, search string, page, limit int) (ClosedPage, error) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	regs, err := s.registers.ListClosed(ctx, search, limit, (page-1)*limit)
	if err != nil {
		return ClosedPage{}, classify(err)
	}
	total, err := s.registers.CountClosed(ctx, search)
	if err != nil {
		return ClosedPage{}, classify(err)
	}
	return ClosedPage{Registers: regs, Total: total, Page: page, Limit: limit}, nil
}

func (s *RegisterService) Detail(ctx context.Context, registerID string) (models.RegisterDetail, error) {
	reg, closed, err := s.register(ctx, registerID)
	if err != nil {
		return models.RegisterDetail{}, err
	}
	return s.detail(ctx, reg, closed)
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
