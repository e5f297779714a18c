package store

import (
	"context"

	"cashgame/internal/models"
)

type PlayerStore struct {
	db DB
}

func NewPlayerStore(db DB) *PlayerStore {
	return &PlayerStore{db: db}
}

func (s *PlayerStore) Create(ctx context.Context, tx Execer, player models.Player) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO players (id, game_id, name, created_at)
		VALUES ($1, $2, $3, $4)
	`, player.ID, player.RegisterID, player.Name, player.CreatedAt)
	return err
}

// CreateClosed adds a player to an archived register. Only reachable under an
// edit grant.
func (s *PlayerStore) CreateClosed(ctx context.Context, tx Execer, player models.Player) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO closed_players (id, closed_register_id, name, created_at)
		VALUES ($1, $2, $3, $4)
	`, player.ID, player.RegisterID, player.Name, player.CreatedAt)
	return err
}

func (s *PlayerStore) GetByID(ctx context.Context, playerID string) (models.Player, error) {
	var row models.Player
	err := s.db.GetContext(ctx, &row, `
		SELECT id, game_id AS register_id, name, created_at
		FROM players
		WHERE id = $1
	`, playerID)
	if err != nil {
		return models.Player{}, err
	}
	return row, nil
}

func (s *PlayerStore) GetClosedByID(ctx context.Context, playerID string) (models.Player, error) {
	var row models.Player
	err := s.db.GetContext(ctx, &row, `
		SELECT id, closed_register_id AS register_id, name, created_at
		FROM closed_players
		WHERE id = $1
	`, playerID)
	if err != nil {
		return models.Player{}, err
	}
	return row, nil
}

func (s *PlayerStore) ListByRegister(ctx context.Context, registerID string) ([]models.Player, error) {
	var rows []models.Player
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, game_id AS register_id, name, created_at
		FROM players
		WHERE game_id = $1
		ORDER BY created_at, id
	`, registerID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *PlayerStore) ListClosedByRegister(ctx context.Context, registerID string) ([]models.Player, error) {
	var rows []models.Player
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, closed_register_id AS register_id, name, created_at
		FROM closed_players
		WHERE closed_register_id = $1
		ORDER BY created_at, id
	`, registerID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *PlayerStore) CopyToClosed(ctx context.Context, tx Execer, registerID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO closed_players (id, closed_register_id, name, created_at)
		SELECT id, game_id, name, created_at
		FROM players
		WHERE game_id = $1
	`, registerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *PlayerStore) DeleteByRegister(ctx context.Context, tx Execer, registerID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM players WHERE game_id = $1`, registerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
