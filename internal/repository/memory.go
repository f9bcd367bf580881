package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/Dan9191/loan-ledger/internal/models"
)

type document interface {
	Key() string
	Version() int64
}

// table keeps documents in insertion order
type table[T document] struct {
	order []string
	rows  map[string]T
}

func newTable[T document]() *table[T] {
	return &table[T]{rows: make(map[string]T)}
}

func (t *table[T]) upsert(docs []T) {
	for _, d := range docs {
		cur, ok := t.rows[d.Key()]
		if !ok {
			t.order = append(t.order, d.Key())
		} else if cur.Version() > d.Version() {
			continue
		}
		t.rows[d.Key()] = d
	}
}

func (t *table[T]) all() []T {
	out := make([]T, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, t.rows[k])
	}
	return out
}

func (t *table[T]) deleteFunc(del func(T) bool) int {
	n := 0
	t.order = slices.DeleteFunc(t.order, func(k string) bool {
		if del(t.rows[k]) {
			delete(t.rows, k)
			n++
			return true
		}
		return false
	})
	return n
}

// Memory is an in-process Backend, used when no database is configured and in tests
type Memory struct {
	mu            sync.RWMutex
	users         *table[models.User]
	loans         *table[models.LoanRecord]
	notifications *table[models.Notification]
	config        map[models.ConfigKey]int64
	defaultBudget int64
}

// NewMemory initializes an empty in-memory store
func NewMemory(defaultBudget int64) *Memory {
	return &Memory{
		users:         newTable[models.User](),
		loans:         newTable[models.LoanRecord](),
		notifications: newTable[models.Notification](),
		config:        make(map[models.ConfigKey]int64),
		defaultBudget: defaultBudget,
	}
}

func (m *Memory) Snapshot(_ context.Context) (models.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := models.Snapshot{
		Users:         m.users.all(),
		Loans:         m.loans.all(),
		Notifications: m.notifications.all(),
		Budget:        m.defaultBudget,
	}
	if v, ok := m.config[models.ConfigBudget]; ok {
		snap.Budget = v
	}
	snap.RankProfit = m.config[models.ConfigRankProfit]
	return snap, nil
}

func (m *Memory) SaveUsers(_ context.Context, users []models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users.upsert(users)
	return nil
}

func (m *Memory) SaveLoans(_ context.Context, loans []models.LoanRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loans.upsert(loans)
	return nil
}

func (m *Memory) SaveNotifications(_ context.Context, notifications []models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications.upsert(notifications)
	return nil
}

func (m *Memory) SaveConfig(_ context.Context, key models.ConfigKey, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config[key] = value
	return nil
}

func (m *Memory) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.users.deleteFunc(func(u models.User) bool { return u.ID == id }) == 0 {
		return ErrNotFound
	}
	m.loans.deleteFunc(func(l models.LoanRecord) bool { return l.UserID == id })
	m.notifications.deleteFunc(func(n models.Notification) bool { return n.UserID == id })
	return nil
}

func (m *Memory) Cleanup(_ context.Context, policy Retention) (CleanupResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res CleanupResult
	res.Loans = m.loans.deleteFunc(policy.LoanExpired)
	excess := policy.ExcessNotifications(m.notifications.all())
	res.Notifications = m.notifications.deleteFunc(func(n models.Notification) bool {
		_, found := slices.BinarySearch(excess, n.ID)
		return found
	})
	return res, nil
}

func (m *Memory) Ping(_ context.Context) error { return nil }
