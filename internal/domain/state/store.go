package state

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/adspredia/adspredia-api/internal/pkg/clock"
	"github.com/adspredia/adspredia-api/internal/pkg/idgen"
	"github.com/adspredia/adspredia-api/internal/pkg/kvstore"
	"github.com/adspredia/adspredia-api/internal/pkg/logger"
	"github.com/adspredia/adspredia-api/internal/pkg/scheduler"
)

const (
	DefaultKey           = "ads_predia_state"
	DefaultWelcomeBonus  = int64(100)
	DefaultApprovalDelay = 5 * time.Second
)

// Options wires a Store to its slot and collaborators. Zero values get defaults.
type Options struct {
	Key           string
	Slot          kvstore.Store
	IDs           idgen.Generator
	Clock         clock.Clock
	ApprovalDelay time.Duration
	WelcomeBonus  int64
	Catalog       *Catalog
	Logger        *zerolog.Logger
	OnChange      func(Event)
}

// Store owns one application aggregate. Every operation runs to completion
// under mu and rewrites the whole snapshot before returning.
type Store struct {
	mu    sync.Mutex
	state AppState

	key           string
	slot          kvstore.Store
	ids           idgen.Generator
	clock         clock.Clock
	approvalDelay time.Duration
	welcomeBonus  int64
	onChange      func(Event)
	log           zerolog.Logger

	approvals *scheduler.Scheduler
}

// Open rehydrates the aggregate stored under opts.Key, or seeds a fresh one
// when the slot is empty.
func Open(ctx context.Context, opts Options) (*Store, error) {
	s := &Store{
		key:           opts.Key,
		slot:          opts.Slot,
		ids:           opts.IDs,
		clock:         opts.Clock,
		approvalDelay: opts.ApprovalDelay,
		welcomeBonus:  opts.WelcomeBonus,
		onChange:      opts.OnChange,
	}
	if s.key == "" {
		s.key = DefaultKey
	}
	if s.slot == nil {
		s.slot = kvstore.NewMemory()
	}
	if s.ids == nil {
		s.ids = idgen.UUID()
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.approvalDelay <= 0 {
		s.approvalDelay = DefaultApprovalDelay
	}
	if s.welcomeBonus <= 0 {
		s.welcomeBonus = DefaultWelcomeBonus
	}
	if opts.Logger != nil {
		s.log = opts.Logger.With().Str("state_key", s.key).Logger()
	} else {
		s.log = logger.Component("state").With().Str("state_key", s.key).Logger()
	}
	s.approvals = scheduler.New(s.clock)

	data, err := s.slot.Get(ctx, s.key)
	switch {
	case errors.Is(err, kvstore.ErrNotFound):
		catalog := DefaultCatalog()
		if opts.Catalog != nil {
			catalog = *opts.Catalog
		}
		s.state = catalog.initialState()
		s.mu.Lock()
		s.persistLocked(ctx)
		s.mu.Unlock()
		s.log.Info().Int("tasks", len(s.state.Tasks)).Int("ads", len(s.state.AvailableAds)).Msg("seeded new state")
	case err != nil:
		return nil, fmt.Errorf("load state %s: %w", s.key, err)
	default:
		st, err := Decode(data)
		if err != nil {
			return nil, fmt.Errorf("load state %s: %w", s.key, err)
		}
		s.state = st
		s.resumePendingDeposits()
	}

	return s, nil
}

// Key returns the slot key the aggregate is persisted under
func (s *Store) Key() string { return s.key }

// Close stops pending approval timers
func (s *Store) Close() {
	s.approvals.Stop()
}

func (s *Store) now() time.Time {
	return s.clock.Now().UTC()
}

// mutate runs fn under the lock, persists if fn applied a change, and emits
// the resulting event once the lock is released.
func (s *Store) mutate(ctx context.Context, operation string, fn func() bool) bool {
	s.mu.Lock()
	if !fn() {
		s.mu.Unlock()
		return false
	}
	s.persistLocked(ctx)
	ev := s.eventLocked(EventStateChanged, operation, "")
	s.mu.Unlock()

	s.emit(ev)
	return true
}

func (s *Store) persistLocked(ctx context.Context) {
	data, err := Encode(s.state)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to encode state")
		return
	}
	if err := s.slot.Put(ctx, s.key, data); err != nil {
		s.log.Error().Err(err).Msg("failed to persist state")
	}
}

func (s *Store) eventLocked(t EventType, operation, txID string) Event {
	ev := Event{Type: t, Operation: operation, TransactionID: txID, At: s.now()}
	if s.state.User != nil {
		balance := s.state.User.Balance
		ev.Balance = &balance
	}
	return ev
}

func (s *Store) emit(ev Event) {
	if s.onChange != nil {
		s.onChange(ev)
	}
}

func (s *Store) newTransaction(t TransactionType, status TransactionStatus, amount int64, description string) Transaction {
	return Transaction{
		ID:          s.ids.NewID(),
		Type:        t,
		Amount:      amount,
		Date:        s.now(),
		Status:      status,
		Description: description,
	}
}

func (s *Store) prependLocked(tx Transaction) {
	s.state.Transactions = append([]Transaction{tx}, s.state.Transactions...)
}

// Login replaces the current user with a fresh profile holding the welcome bonus.
// There is no credential or duplicate check.
func (s *Store) Login(ctx context.Context, email, name string) User {
	var u User
	s.mutate(ctx, "login", func() bool {
		s.state.User = &User{
			ID:               s.ids.NewID(),
			Name:             name,
			Email:            email,
			Balance:          s.welcomeBonus,
			JoinedAt:         s.now(),
			CompletedTaskIDs: []string{},
		}
		u = s.state.User.clone()
		return true
	})
	s.log.Info().Str("user_id", u.ID).Str("email", email).Msg("user logged in")
	return u
}

// Logout clears the user; the ledger and catalogs stay
func (s *Store) Logout(ctx context.Context) {
	s.mutate(ctx, "logout", func() bool {
		s.state.User = nil
		return true
	})
}

// AddCoins credits a logged-in user and records an earning
func (s *Store) AddCoins(ctx context.Context, amount int64, description string) bool {
	return s.mutate(ctx, "add_coins", func() bool {
		return s.addCoinsLocked(amount, description)
	})
}

func (s *Store) addCoinsLocked(amount int64, description string) bool {
	u := s.state.User
	if u == nil || amount <= 0 || !canCredit(u, amount) {
		return false
	}
	u.Balance += amount
	u.TotalEarnings += amount
	s.prependLocked(s.newTransaction(TransactionTypeEarning, TransactionStatusCompleted, amount, description))
	return true
}

// canCredit reports whether amount fits on top of the user's balance and earnings
func canCredit(u *User, amount int64) bool {
	return amount <= math.MaxInt64-u.Balance && amount <= math.MaxInt64-u.TotalEarnings
}

// DeductCoins debits a logged-in user with enough balance and records an expense.
// It reports false and changes nothing otherwise.
func (s *Store) DeductCoins(ctx context.Context, amount int64, description string) bool {
	return s.mutate(ctx, "deduct_coins", func() bool {
		return s.deductCoinsLocked(amount, description)
	})
}

func (s *Store) deductCoinsLocked(amount int64, description string) bool {
	u := s.state.User
	if u == nil || amount <= 0 || u.Balance < amount {
		return false
	}
	u.Balance -= amount
	s.prependLocked(s.newTransaction(TransactionTypeExpense, TransactionStatusCompleted, amount, description))
	return true
}

// CreateTask pays the reward out of the user's balance and lists the task first
// in the task catalog.
func (s *Store) CreateTask(ctx context.Context, nt NewTask) (Task, bool) {
	var created Task
	ok := s.mutate(ctx, "create_task", func() bool {
		if nt.Type == "" {
			nt.Type = TaskKindTask
		}
		if !nt.Type.Valid() || nt.Reward <= 0 {
			return false
		}
		if nt.Type != TaskKindWebsite {
			nt.Duration = 0
		}
		if !s.deductCoinsLocked(nt.Reward, "Created task: "+nt.Title) {
			return false
		}
		created = Task{
			ID:          s.ids.NewID(),
			Title:       nt.Title,
			Description: nt.Description,
			Reward:      nt.Reward,
			Link:        nt.Link,
			Type:        nt.Type,
			Category:    nt.Category,
			Duration:    nt.Duration,
		}
		s.state.Tasks = append([]Task{created}, s.state.Tasks...)
		return true
	})
	if ok {
		s.log.Info().Str("task_id", created.ID).Int64("reward", created.Reward).Msg("task created")
	}
	return created, ok
}

// CompleteTask credits the task reward once per user. Unknown ids, a missing
// user and repeat completions are no-ops.
func (s *Store) CompleteTask(ctx context.Context, taskID string) bool {
	return s.mutate(ctx, "complete_task", func() bool {
		task, found := s.findTaskLocked(taskID)
		u := s.state.User
		if !found || u == nil || u.HasCompleted(taskID) {
			return false
		}
		if !s.addCoinsLocked(task.Reward, "Completed: "+task.Title) {
			return false
		}
		u.CompletedTasks++
		u.CompletedTaskIDs = append(u.CompletedTaskIDs, taskID)
		return true
	})
}

// Withdraw debits immediately and records a pending withdrawal. Nothing ever
// moves a withdrawal out of pending.
func (s *Store) Withdraw(ctx context.Context, method string, amount int64) (Transaction, bool) {
	var tx Transaction
	ok := s.mutate(ctx, "withdraw", func() bool {
		u := s.state.User
		if u == nil || amount <= 0 || u.Balance < amount {
			return false
		}
		u.Balance -= amount
		tx = s.newTransaction(TransactionTypeWithdraw, TransactionStatusPending, amount, "Withdrawal via "+method)
		s.prependLocked(tx)
		return true
	})
	if ok {
		s.log.Info().Str("transaction_id", tx.ID).Int64("amount", amount).Str("method", method).Msg("withdrawal requested")
	}
	return tx, ok
}

func (s *Store) findTaskLocked(id string) (Task, bool) {
	for _, catalog := range [][]Task{s.state.Tasks, s.state.AvailableAds} {
		for _, t := range catalog {
			if t.ID == id {
				return t, true
			}
		}
	}
	return Task{}, false
}

// Snapshot returns a deep copy of the aggregate
func (s *Store) Snapshot() AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// User returns the logged-in user, if any
func (s *Store) User() (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.User == nil {
		return User{}, false
	}
	return s.state.User.clone(), true
}

// Transactions returns the ledger, newest first
func (s *Store) Transactions() []Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Transaction{}, s.state.Transactions...)
}

// Tasks returns the task catalog
func (s *Store) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Task{}, s.state.Tasks...)
}

// Ads returns the ad catalog
func (s *Store) Ads() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Task{}, s.state.AvailableAds...)
}

// AllTasks returns the task catalog followed by the ad catalog
func (s *Store) AllTasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]Task, 0, len(s.state.Tasks)+len(s.state.AvailableAds))
	all = append(all, s.state.Tasks...)
	return append(all, s.state.AvailableAds...)
}

// FindTask looks id up in both catalogs
func (s *Store) FindTask(id string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findTaskLocked(id)
}
