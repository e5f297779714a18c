package store

import (
	"context"

	"cashgame/internal/models"
)

type OperatorStore struct {
	db DB
}

func NewOperatorStore(db DB) *OperatorStore {
	return &OperatorStore{db: db}
}

func (s *OperatorStore) Create(ctx context.Context, tx Execer, id, username, email, passwordHash string) error {
	query := `
		INSERT INTO operators (id, username, email, password_hash)
		VALUES ($1, $2, $3, $4)
	`
	_, err := tx.ExecContext(ctx, query, id, username, email, passwordHash)
	return err
}

func (s *OperatorStore) GetByEmail(ctx context.Context, email string) (models.Operator, error) {
	var row models.Operator
	err := s.db.GetContext(ctx, &row, `SELECT id, username, email, password_hash, created_at FROM operators WHERE email = $1`, email)
	if err != nil {
		return models.Operator{}, err
	}
	return row, nil
}

func (s *OperatorStore) GetByID(ctx context.Context, operatorID string) (models.Operator, error) {
	var row models.Operator
	err := s.db.GetContext(ctx, &row, `SELECT id, username, email, created_at FROM operators WHERE id = $1`, operatorID)
	if err != nil {
		return models.Operator{}, err
	}
	return row, nil
}
