// Package service is the ledger agent: it owns the local ledger, applies borrower and
// staff actions to it, keeps it reconciled with the store and writes changes back.
package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Dan9191/loan-ledger/internal/cache"
	"github.com/Dan9191/loan-ledger/internal/config"
	"github.com/Dan9191/loan-ledger/internal/ledger"
	"github.com/Dan9191/loan-ledger/internal/models"
	"github.com/Dan9191/loan-ledger/internal/reconcile"
	"github.com/Dan9191/loan-ledger/internal/repository"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// StaffID is the id of the configured staff account
const StaffID = "AD01"

// Alerter notifies staff about new work
type Alerter interface {
	LoanApplied(loan models.LoanRecord) error
	SettlementRequested(loan models.LoanRecord) error
	UpgradeRequested(user models.User, target models.Rank) error
}

// SessionCache persists the active session across restarts
type SessionCache interface {
	Save(s cache.Session) error
	Load() (cache.Session, bool, error)
	Clear() error
}

// Option customizes a Service
type Option func(*Service)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithAlerter sets the staff alert sender
func WithAlerter(a Alerter) Option {
	return func(s *Service) { s.alerts = a }
}

// WithSessionCache sets where the active session is kept
func WithSessionCache(c SessionCache) Option {
	return func(s *Service) { s.sessions = c }
}

// WithIDSource replaces the random source of user ids and notification ids
func WithIDSource(intn func(n int) int, notificationID func() string) Option {
	return func(s *Service) {
		s.intn = intn
		s.notificationID = notificationID
	}
}

// Service handles business logic
type Service struct {
	store  repository.Store
	log    *logrus.Logger
	config *config.Config

	alerts         Alerter
	sessions       SessionCache
	now            func() time.Time
	intn           func(n int) int
	notificationID func() string
	staff          models.User

	// cycle serializes polls and write-backs so they never interleave
	cycle sync.Mutex

	mu      sync.Mutex
	state   ledger.State
	pending ledger.Changes
	dirty   reconcile.Dirty
	session *cache.Session

	debounce *reconcile.Debouncer
}

// NewService initializes a new service
func NewService(store repository.Store, log *logrus.Logger, cfg *config.Config, opts ...Option) (*Service, error) {
	s := &Service{
		store:  store,
		log:    log,
		config: cfg,
		now:    time.Now,
		intn:   rand.IntN,
		state:  ledger.State{Budget: cfg.InitialBudget},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.staff = models.User{
		ID:         StaffID,
		Phone:      cfg.StaffPhone,
		FullName:   "STAFF",
		Rank:       models.RankDiamond,
		TotalLimit: ledger.Limit(models.RankDiamond),
		IsAdmin:    true,
	}
	if cfg.StaffPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.StaffPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash staff password: %w", err)
		}
		s.staff.PasswordHash = string(hash)
	}

	s.debounce = reconcile.NewDebouncer(cfg.PersistDebounce, s.flush)
	return s, nil
}

func (s *Service) env() ledger.Env {
	return ledger.Env{Now: s.now(), NewID: s.notificationID}
}

// State returns a copy of the local ledger
func (s *Service) State() ledger.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Load fetches the first snapshot, retrying until it succeeds or ctx is done,
// and resumes the cached session
func (s *Service) Load(ctx context.Context) error {
	for {
		snap, err := s.store.Snapshot(ctx)
		if err == nil {
			if s.install(snap).Any() {
				s.debounce.Trigger()
			}
			break
		}
		s.log.Warnf("Initial load failed, retrying: %v", err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to load ledger: %w", ctx.Err())
		case <-time.After(s.config.FetchRetryDelay):
		}
	}
	s.resumeSession()
	return nil
}

func (s *Service) install(snap models.Snapshot) ledger.Changes {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = ledger.State{
		Users:         snap.Users,
		Loans:         snap.Loans,
		Notifications: ledger.TrimNotifications(snap.Notifications),
		Budget:        snap.Budget,
		RankProfit:    snap.RankProfit,
	}
	next, changes := ledger.Evaluate(s.state, s.env())
	s.state = next
	s.markPending(changes)
	s.log.Infof("Ledger loaded: %d users, %d loans, %d notifications",
		len(snap.Users), len(snap.Loans), len(snap.Notifications))
	return changes
}

// Poll merges the current store snapshot into the local ledger. A failed fetch
// leaves the ledger as it is until the next tick.
func (s *Service) Poll(ctx context.Context) error {
	s.cycle.Lock()
	defer s.cycle.Unlock()

	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		s.log.Warnf("Poll failed: %v", err)
		return err
	}
	if snap.StorageFull {
		s.log.Warnf("Store is full (%s MB)", snap.StorageUsage)
	}

	s.mu.Lock()
	res := reconcile.MergeSnapshot(s.state, snap, s.dirty, s.now(), s.config.GraceWindow)
	next, derived := ledger.Evaluate(res.State, s.env())
	s.state = next
	s.markPending(derived)
	if s.session != nil {
		if u, ok := next.User(s.session.User.ID); ok && reconcile.Fresher(s.session.User, u.Public()) {
			s.session.User = u.Public()
			s.saveSession()
		}
	}
	s.mu.Unlock()

	if res.Changes.Any() || derived.Any() {
		s.log.Debugf("Poll merged remote changes %+v, derived %+v", res.Changes, derived)
	}
	if derived.Any() {
		s.debounce.Trigger()
	}
	return nil
}

// Dispatch applies an action to the local ledger and schedules its write-back.
// A rejected action changes nothing.
func (s *Service) Dispatch(ctx context.Context, a ledger.Action) (ledger.State, error) {
	s.mu.Lock()
	next, changes, err := ledger.Apply(s.state, a, s.env())
	if err != nil {
		s.mu.Unlock()
		return ledger.State{}, err
	}
	next, derived := ledger.Evaluate(next, s.env())
	changes.Add(derived)
	s.state = next
	s.markPending(changes)
	if s.session != nil {
		if u, ok := next.User(s.session.User.ID); ok {
			s.session.User = u.Public()
			s.saveSession()
		}
	}
	out := next.Clone()
	s.mu.Unlock()

	s.log.Debugf("Applied %T: %+v", a, changes)
	if changes.Immediate {
		s.persistNow(ctx)
	} else if changes.Any() {
		s.debounce.Trigger()
	}
	return out, nil
}

// markPending must be called with mu held
func (s *Service) markPending(c ledger.Changes) {
	s.pending.Add(c)
	if c.Budget {
		s.dirty.Budget = true
	}
	if c.RankProfit {
		s.dirty.RankProfit = true
	}
}

// Close writes back anything still pending and stops the debouncer
func (s *Service) Close(ctx context.Context) {
	s.persistNow(ctx)
	s.debounce.Stop()
}
