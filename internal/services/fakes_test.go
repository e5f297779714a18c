package services

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"cashgame/internal/auth"
	"cashgame/internal/models"
	"cashgame/internal/store"
	"cashgame/internal/websocket"

	"github.com/jmoiron/sqlx"
)

// memState is an in-memory copy of both partitions.
type memState struct {
	openRegisters      map[string]models.Register
	closedRegisters    map[string]models.Register
	openPlayers        map[string]models.Player
	closedPlayers      map[string]models.Player
	openTransactions   map[string]models.Transaction
	closedTransactions map[string]models.Transaction
	audit              []auditCall
}

type auditCall struct {
	registerID, actorID, action, entityType, entityID, data string
}

func (s memState) clone() memState {
	out := memState{
		openRegisters:      make(map[string]models.Register, len(s.openRegisters)),
		closedRegisters:    make(map[string]models.Register, len(s.closedRegisters)),
		openPlayers:        make(map[string]models.Player, len(s.openPlayers)),
		closedPlayers:      make(map[string]models.Player, len(s.closedPlayers)),
		openTransactions:   make(map[string]models.Transaction, len(s.openTransactions)),
		closedTransactions: make(map[string]models.Transaction, len(s.closedTransactions)),
		audit:              append([]auditCall(nil), s.audit...),
	}
	for k, v := range s.openRegisters {
		out.openRegisters[k] = v
	}
	for k, v := range s.closedRegisters {
		out.closedRegisters[k] = v
	}
	for k, v := range s.openPlayers {
		out.openPlayers[k] = v
	}
	for k, v := range s.closedPlayers {
		out.closedPlayers[k] = v
	}
	for k, v := range s.openTransactions {
		out.openTransactions[k] = v
	}
	for k, v := range s.closedTransactions {
		out.closedTransactions[k] = v
	}
	return out
}

type memDB struct {
	state    memState
	failures map[string]error
}

func newMemDB() *memDB {
	return &memDB{state: memState{}.clone(), failures: map[string]error{}}
}

func (m *memDB) check(op string) error {
	return m.failures[op]
}

// memTxRunner restores the snapshot taken before fn when fn fails, the way a
// database rollback would.
type memTxRunner struct {
	db        *memDB
	commits   int
	rollbacks int
}

func (r *memTxRunner) WithTx(_ context.Context, fn func(*sqlx.Tx) error) error {
	saved := r.db.state.clone()
	if err := fn(nil); err != nil {
		r.db.state = saved
		r.rollbacks++
		return err
	}
	r.commits++
	return nil
}

type memRegisters struct{ db *memDB }

func (m memRegisters) CreateOpen(_ context.Context, _ store.Execer, reg models.Register) error {
	if err := m.db.check("registers.CreateOpen"); err != nil {
		return err
	}
	m.db.state.openRegisters[reg.ID] = reg
	return nil
}

func (m memRegisters) GetOpen(_ context.Context, registerID string) (models.Register, error) {
	reg, ok := m.db.state.openRegisters[registerID]
	if !ok {
		return models.Register{}, sql.ErrNoRows
	}
	return reg, nil
}

func (m memRegisters) GetOpenForUpdate(ctx context.Context, _ store.Getter, registerID string) (models.Register, error) {
	if err := m.db.check("registers.GetOpenForUpdate"); err != nil {
		return models.Register{}, err
	}
	return m.GetOpen(ctx, registerID)
}

func (m memRegisters) GetClosed(_ context.Context, registerID string) (models.Register, error) {
	reg, ok := m.db.state.closedRegisters[registerID]
	if !ok {
		return models.Register{}, sql.ErrNoRows
	}
	return reg, nil
}

func (m memRegisters) InsertClosed(_ context.Context, _ store.Execer, reg models.Register) error {
	if err := m.db.check("registers.InsertClosed"); err != nil {
		return err
	}
	m.db.state.closedRegisters[reg.ID] = reg
	return nil
}

func (m memRegisters) DeleteOpen(_ context.Context, _ store.Execer, registerID string) (int64, error) {
	if err := m.db.check("registers.DeleteOpen"); err != nil {
		return 0, err
	}
	if _, ok := m.db.state.openRegisters[registerID]; !ok {
		return 0, nil
	}
	delete(m.db.state.openRegisters, registerID)
	return 1, nil
}

func (m memRegisters) TouchOpen(_ context.Context, _ store.Execer, registerID string, at time.Time) error {
	reg := m.db.state.openRegisters[registerID]
	reg.LastTransactionAt = &at
	m.db.state.openRegisters[registerID] = reg
	return nil
}

func (m memRegisters) TouchClosed(_ context.Context, _ store.Execer, registerID string, at time.Time) error {
	reg := m.db.state.closedRegisters[registerID]
	reg.LastTransactionAt = &at
	m.db.state.closedRegisters[registerID] = reg
	return nil
}

func (m memRegisters) ListOpen(_ context.Context) ([]models.Register, error) {
	var regs []models.Register
	for _, reg := range m.db.state.openRegisters {
		regs = append(regs, reg)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].CreatedAt.After(regs[j].CreatedAt) })
	return regs, nil
}

func (m memRegisters) matchingClosed(search string) []models.Register {
	needle := strings.ToLower(strings.TrimSpace(search))
	var regs []models.Register
	for _, reg := range m.db.state.closedRegisters {
		name := ""
		if reg.Name != nil {
			name = strings.ToLower(*reg.Name)
		}
		if needle == "" || strings.Contains(name, needle) {
			regs = append(regs, reg)
		}
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].ClosedAt.After(*regs[j].ClosedAt) })
	return regs
}

func (m memRegisters) ListClosed(_ context.Context, search string, limit, offset int) ([]models.Register, error) {
	regs := m.matchingClosed(search)
	if offset >= len(regs) {
		return nil, nil
	}
	end := offset + limit
	if end > len(regs) {
		end = len(regs)
	}
	return regs[offset:end], nil
}

func (m memRegisters) CountClosed(_ context.Context, search string) (int, error) {
	return len(m.matchingClosed(search)), nil
}

type memPlayers struct{ db *memDB }

func (m memPlayers) Create(_ context.Context, _ store.Execer, player models.Player) error {
	m.db.state.openPlayers[player.ID] = player
	return nil
}

func (m memPlayers) CreateClosed(_ context.Context, _ store.Execer, player models.Player) error {
	m.db.state.closedPlayers[player.ID] = player
	return nil
}

func (m memPlayers) GetByID(_ context.Context, playerID string) (models.Player, error) {
	player, ok := m.db.state.openPlayers[playerID]
	if !ok {
		return models.Player{}, sql.ErrNoRows
	}
	return player, nil
}

func (m memPlayers) GetClosedByID(_ context.Context, playerID string) (models.Player, error) {
	player, ok := m.db.state.closedPlayers[playerID]
	if !ok {
		return models.Player{}, sql.ErrNoRows
	}
	return player, nil
}

func playersOf(players map[string]models.Player, registerID string) []models.Player {
	var out []models.Player
	for _, p := range players {
		if p.RegisterID == registerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m memPlayers) ListByRegister(_ context.Context, registerID string) ([]models.Player, error) {
	return playersOf(m.db.state.openPlayers, registerID), nil
}

func (m memPlayers) ListClosedByRegister(_ context.Context, registerID string) ([]models.Player, error) {
	return playersOf(m.db.state.closedPlayers, registerID), nil
}

func (m memPlayers) CopyToClosed(_ context.Context, _ store.Execer, registerID string) (int64, error) {
	if err := m.db.check("players.CopyToClosed"); err != nil {
		return 0, err
	}
	var n int64
	for _, p := range playersOf(m.db.state.openPlayers, registerID) {
		m.db.state.closedPlayers[p.ID] = p
		n++
	}
	return n, nil
}

func (m memPlayers) DeleteByRegister(_ context.Context, _ store.Execer, registerID string) (int64, error) {
	if err := m.db.check("players.DeleteByRegister"); err != nil {
		return 0, err
	}
	var n int64
	for id, p := range m.db.state.openPlayers {
		if p.RegisterID == registerID {
			delete(m.db.state.openPlayers, id)
			n++
		}
	}
	return n, nil
}

type memTransactions struct{ db *memDB }

func (m memTransactions) Create(_ context.Context, _ store.Execer, t models.Transaction) error {
	if err := m.db.check("transactions.Create"); err != nil {
		return err
	}
	m.db.state.openTransactions[t.ID] = t
	return nil
}

func (m memTransactions) CreateClosed(_ context.Context, _ store.Execer, t models.Transaction) error {
	m.db.state.closedTransactions[t.ID] = t
	return nil
}

func (m memTransactions) GetByID(_ context.Context, transactionID string) (models.Transaction, error) {
	t, ok := m.db.state.openTransactions[transactionID]
	if !ok {
		return models.Transaction{}, sql.ErrNoRows
	}
	return t, nil
}

func (m memTransactions) GetClosedByID(_ context.Context, transactionID string) (models.Transaction, error) {
	t, ok := m.db.state.closedTransactions[transactionID]
	if !ok {
		return models.Transaction{}, sql.ErrNoRows
	}
	return t, nil
}

func (m memTransactions) Delete(_ context.Context, _ store.Execer, transactionID string) (int64, error) {
	if _, ok := m.db.state.openTransactions[transactionID]; !ok {
		return 0, nil
	}
	delete(m.db.state.openTransactions, transactionID)
	return 1, nil
}

func (m memTransactions) DeleteClosed(_ context.Context, _ store.Execer, transactionID string) (int64, error) {
	if _, ok := m.db.state.closedTransactions[transactionID]; !ok {
		return 0, nil
	}
	delete(m.db.state.closedTransactions, transactionID)
	return 1, nil
}

func newestFirst(transactions map[string]models.Transaction, keep func(models.Transaction) bool) []models.Transaction {
	var out []models.Transaction
	for _, t := range transactions {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m memTransactions) ListByPlayer(_ context.Context, playerID string) ([]models.Transaction, error) {
	return newestFirst(m.db.state.openTransactions, func(t models.Transaction) bool { return t.PlayerID == playerID }), nil
}

func (m memTransactions) ListClosedByPlayer(_ context.Context, playerID string) ([]models.Transaction, error) {
	return newestFirst(m.db.state.closedTransactions, func(t models.Transaction) bool { return t.PlayerID == playerID }), nil
}

func (m memTransactions) ListByRegister(_ context.Context, registerID string) ([]models.Transaction, error) {
	return newestFirst(m.db.state.openTransactions, func(t models.Transaction) bool { return t.RegisterID == registerID }), nil
}

func (m memTransactions) ListClosedByRegister(_ context.Context, registerID string) ([]models.Transaction, error) {
	return newestFirst(m.db.state.closedTransactions, func(t models.Transaction) bool { return t.RegisterID == registerID }), nil
}

func (m memTransactions) CopyToClosed(_ context.Context, _ store.Execer, registerID string) (int64, error) {
	if err := m.db.check("transactions.CopyToClosed"); err != nil {
		return 0, err
	}
	var n int64
	for id, t := range m.db.state.openTransactions {
		if t.RegisterID == registerID {
			m.db.state.closedTransactions[id] = t
			n++
		}
	}
	return n, nil
}

func (m memTransactions) DeleteByRegister(_ context.Context, _ store.Execer, registerID string) (int64, error) {
	if err := m.db.check("transactions.DeleteByRegister"); err != nil {
		return 0, err
	}
	var n int64
	for id, t := range m.db.state.openTransactions {
		if t.RegisterID == registerID {
			delete(m.db.state.openTransactions, id)
			n++
		}
	}
	return n, nil
}

type memAudit struct{ db *memDB }

func (m memAudit) LogForRegister(_ context.Context, _ store.Execer, registerID, actorID, action, entityType, entityID, data string) error {
	if err := m.db.check("audit.Log"); err != nil {
		return err
	}
	m.db.state.audit = append(m.db.state.audit, auditCall{registerID, actorID, action, entityType, entityID, data})
	return nil
}

// stubPolicy compares secrets in plain text and honours grants on the actor.
type stubPolicy struct {
	closeSecret string
	editSecret  string
}

func (p stubPolicy) CanClose(actor auth.Actor) bool {
	return actor.Secret != "" && actor.Secret == p.closeSecret
}

func (p stubPolicy) CanEditClosed(actor auth.Actor, registerID string) bool {
	return actor.HasEditGrant(registerID)
}

func (p stubPolicy) ConfirmEdit(secret string) bool {
	return secret != "" && secret == p.editSecret
}

type stubHub struct {
	calls []websocket.SummaryUpdate
}

func (s *stubHub) BroadcastSummary(_ string, update websocket.SummaryUpdate) {
	s.calls = append(s.calls, update)
}

// tickingClock hands out strictly increasing timestamps.
type tickingClock struct {
	at time.Time
}

func (c *tickingClock) Now() time.Time {
	c.at = c.at.Add(time.Second)
	return c.at
}

type fixture struct {
	db           *memDB
	runner       *memTxRunner
	hub          *stubHub
	registers    *RegisterService
	transactions *TransactionService
}

const (
	closeSecret = "452631"
	editSecret  = "458697"
)

func newFixture() fixture {
	memdb := newMemDB()
	runner := &memTxRunner{db: memdb}
	hub := &stubHub{}
	policy := stubPolicy{closeSecret: closeSecret, editSecret: editSecret}
	clock := &tickingClock{at: time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)}
	registers := NewRegisterService(runner, memRegisters{memdb}, memPlayers{memdb}, memTransactions{memdb}, memAudit{memdb}, policy, hub)
	registers.now = clock.Now
	transactions := NewTransactionService(runner, memRegisters{memdb}, memPlayers{memdb}, memTransactions{memdb}, memAudit{memdb}, policy, hub)
	transactions.now = clock.Now
	return fixture{db: memdb, runner: runner, hub: hub, registers: registers, transactions: transactions}
}
