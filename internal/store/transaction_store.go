package store

import (
	"context"

	"cashgame/internal/models"
)

// TransactionStore keeps the per-player log. Open transactions reach their
// register through players.game_id; closed ones carry closed_register_id.
type TransactionStore struct {
	db DB
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

const openTransactionColumns = `
	t.id, t.player_id, p.game_id AS register_id, t.type, t.chips, t.payment, t.method, t.created_at
`

const closedTransactionColumns = `
	id, player_id, closed_register_id AS register_id, type, chips, payment, method, created_at
`

func (s *TransactionStore) Create(ctx context.Context, tx Execer, t models.Transaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, player_id, type, chips, payment, method, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, t.ID, t.PlayerID, string(t.Type), t.Chips, t.Payment, string(t.Method), t.CreatedAt)
	return err
}

func (s *TransactionStore) CreateClosed(ctx context.Context, tx Execer, t models.Transaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO closed_transactions (id, player_id, closed_register_id, type, chips, payment, method, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, t.ID, t.PlayerID, t.RegisterID, string(t.Type), t.Chips, t.Payment, string(t.Method), t.CreatedAt)
	return err
}

func (s *TransactionStore) GetByID(ctx context.Context, transactionID string) (models.Transaction, error) {
	var row models.Transaction
	err := s.db.GetContext(ctx, &row, `
		SELECT `+openTransactionColumns+`
		FROM transactions t
		JOIN players p ON p.id = t.player_id
		WHERE t.id = $1
	`, transactionID)
	if err != nil {
		return models.Transaction{}, err
	}
	return row, nil
}

func (s *TransactionStore) GetClosedByID(ctx context.Context, transactionID string) (models.Transaction, error) {
	var row models.Transaction
	err := s.db.GetContext(ctx, &row, `
		SELECT `+closedTransactionColumns+`
		FROM closed_transactions
		WHERE id = $1
	`, transactionID)
	if err != nil {
		return models.Transaction{}, err
	}
	return row, nil
}

func (s *TransactionStore) Delete(ctx context.Context, tx Execer, transactionID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, transactionID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *TransactionStore) DeleteClosed(ctx context.Context, tx Execer, transactionID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM closed_transactions WHERE id = $1`, transactionID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *TransactionStore) ListByPlayer(ctx context.Context, playerID string) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+openTransactionColumns+`
		FROM transactions t
		JOIN players p ON p.id = t.player_id
		WHERE t.player_id = $1
		ORDER BY t.created_at DESC, t.id DESC
	`, playerID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *TransactionStore) ListClosedByPlayer(ctx context.Context, playerID string) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+closedTransactionColumns+`
		FROM closed_transactions
		WHERE player_id = $1
		ORDER BY created_at DESC, id DESC
	`, playerID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *TransactionStore) ListByRegister(ctx context.Context, registerID string) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+openTransactionColumns+`
		FROM transactions t
		JOIN players p ON p.id = t.player_id
		WHERE p.game_id = $1
		ORDER BY t.created_at DESC, t.id DESC
	`, registerID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *TransactionStore) ListClosedByRegister(ctx context.Context, registerID string) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+closedTransactionColumns+`
		FROM closed_transactions
		WHERE closed_register_id = $1
		ORDER BY created_at DESC, id DESC
	`, registerID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CopyToClosed archives every transaction of the register's players, tagging
// each row with the register id.
func (s *TransactionStore) CopyToClosed(ctx context.Context, tx Execer, registerID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO closed_transactions (id, player_id, closed_register_id, type, chips, payment, method, created_at)
		SELECT t.id, t.player_id, p.game_id, t.type, t.chips, t.payment, t.method, t.created_at
		FROM transactions t
		JOIN players p ON p.id = t.player_id
		WHERE p.game_id = $1
	`, registerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *TransactionStore) DeleteByRegister(ctx context.Context, tx Execer, registerID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		DELETE FROM transactions
		WHERE player_id IN (SELECT id FROM players WHERE game_id = $1)
	`, registerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
