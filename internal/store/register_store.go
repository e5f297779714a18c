package store

import (
	"context"
	"strconv"
	"strings"
	"time"

	"cashgame/internal/models"
)

// RegisterStore reads and writes registers in both partitions: open_registers
// for live sessions and closed_registers for the archive.
type RegisterStore struct {
	db DB
}

func NewRegisterStore(db DB) *RegisterStore {
	return &RegisterStore{db: db}
}

func (s *RegisterStore) CreateOpen(ctx context.Context, tx Execer, reg models.Register) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO open_registers (id, name, notes, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, reg.ID, reg.Name, reg.Notes, reg.CreatedBy, reg.CreatedAt)
	return err
}

func (s *RegisterStore) GetOpen(ctx context.Context, registerID string) (models.Register, error) {
	var row models.Register
	err := s.db.GetContext(ctx, &row, `
		SELECT id, name, notes, created_by, created_at, last_transaction_at
		FROM open_registers
		WHERE id = $1
	`, registerID)
	if err != nil {
		return models.Register{}, err
	}
	return row, nil
}

// GetOpenForUpdate locks the open row so a concurrent close or append waits.
func (s *RegisterStore) GetOpenForUpdate(ctx context.Context, tx Getter, registerID string) (models.Register, error) {
	var row models.Register
	err := tx.GetContext(ctx, &row, `
		SELECT id, name, notes, created_by, created_at, last_transaction_at
		FROM open_registers
		WHERE id = $1
		FOR UPDATE
	`, registerID)
	if err != nil {
		return models.Register{}, err
	}
	return row, nil
}

func (s *RegisterStore) GetClosed(ctx context.Context, registerID string) (models.Register, error) {
	var row models.Register
	err := s.db.GetContext(ctx, &row, `
		SELECT id, name, notes, created_by, created_at, last_transaction_at, closed_at
		FROM closed_registers
		WHERE id = $1
	`, registerID)
	if err != nil {
		return models.Register{}, err
	}
	return row, nil
}

func (s *RegisterStore) InsertClosed(ctx context.Context, tx Execer, reg models.Register) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO closed_registers (id, name, notes, created_by, created_at, last_transaction_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, reg.ID, reg.Name, reg.Notes, reg.CreatedBy, reg.CreatedAt, reg.LastTransactionAt, reg.ClosedAt)
	return err
}

func (s *RegisterStore) DeleteOpen(ctx context.Context, tx Execer, registerID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM open_registers WHERE id = $1`, registerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *RegisterStore) TouchOpen(ctx context.Context, tx Execer, registerID string, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE open_registers
		SET last_transaction_at = $1
		WHERE id = $2
	`, at, registerID)
	return err
}

func (s *RegisterStore) TouchClosed(ctx context.Context, tx Execer, registerID string, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE closed_registers
		SET last_transaction_at = $1
		WHERE id = $2
	`, at, registerID)
	return err
}

func (s *RegisterStore) ListOpen(ctx context.Context) ([]models.Register, error) {
	var rows []models.Register
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, name, notes, created_by, created_at, last_transaction_at
		FROM open_registers
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListClosed pages through the archive, newest close first. An empty search
// matches every register; otherwise the name must contain it, ignoring case.
func (s *RegisterStore) ListClosed(ctx context.Context, search string, limit, offset int) ([]models.Register, error) {
	var rows []models.Register
	query := `
		SELECT id, name, notes, created_by, created_at, last_transaction_at, closed_at
		FROM closed_registers
	`
	args := []any{}
	if strings.TrimSpace(search) != "" {
		query += ` WHERE name ILIKE $1`
		args = append(args, likePattern(search))
	}
	param := len(args) + 1
	query += " ORDER BY closed_at DESC LIMIT $" + strconv.Itoa(param) + " OFFSET $" + strconv.Itoa(param+1)
	args = append(args, limit, offset)
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *RegisterStore) CountClosed(ctx context.Context, search string) (int, error) {
	var count int
	var err error
	if strings.TrimSpace(search) == "" {
		err = s.db.GetContext(ctx, &count, `SELECT COUNT(1) FROM closed_registers`)
	} else {
		err = s.db.GetContext(ctx, &count, `SELECT COUNT(1) FROM closed_registers WHERE name ILIKE $1`, likePattern(search))
	}
	return count, err
}
