package state

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/adspredia/adspredia-api/internal/pkg/clock"
	"github.com/adspredia/adspredia-api/internal/pkg/idgen"
	"github.com/adspredia/adspredia-api/internal/pkg/kvstore"
)

var testStart = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	store  *Store
	clock  *clock.Fake
	slot   *kvstore.Memory
	events []Event
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return openTestEnv(t, kvstore.NewMemory(), clock.NewFake(testStart))
}

func openTestEnv(t *testing.T, slot *kvstore.Memory, c *clock.Fake) *testEnv {
	t.Helper()
	nop := zerolog.Nop()
	env := &testEnv{clock: c, slot: slot}
	s, err := Open(context.Background(), Options{
		Slot:     slot,
		IDs:      idgen.NewSequence("id"),
		Clock:    c,
		Logger:   &nop,
		OnChange: func(ev Event) { env.events = append(env.events, ev) },
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(s.Close)
	env.store = s
	return env
}

func (e *testEnv) persisted(t *testing.T) AppState {
	t.Helper()
	data, err := e.slot.Get(context.Background(), DefaultKey)
	if err != nil {
		t.Fatalf("read slot: %v", err)
	}
	st, err := Decode(data)
	if err != nil {
		t.Fatalf("decode slot: %v", err)
	}
	return st
}

func TestOpenSeedsDefaultCatalog(t *testing.T) {
	env := newTestEnv(t)

	snap := env.store.Snapshot()
	if snap.User != nil {
		t.Fatalf("expected no user, got %+v", snap.User)
	}
	if len(snap.Transactions) != 0 {
		t.Fatalf("expected empty ledger, got %d entries", len(snap.Transactions))
	}
	def := DefaultCatalog()
	if diff := cmp.Diff(def.Tasks, snap.Tasks); diff != "" {
		t.Fatalf("tasks mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(def.Ads, snap.AvailableAds); diff != "" {
		t.Fatalf("ads mismatch (-want +got):\n%s", diff)
	}
	if env.slot.Puts() != 1 {
		t.Fatalf("expected seeded state to be written once, got %d puts", env.slot.Puts())
	}
}

func TestLoginGrantsWelcomeBonus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u := env.store.Login(ctx, "ali@example.com", "Ali")
	if u.Balance != 100 || u.TotalEarnings != 0 || u.CompletedTasks != 0 {
		t.Fatalf("unexpected new user: %+v", u)
	}
	if !u.JoinedAt.Equal(testStart) {
		t.Fatalf("expected joinedAt %v, got %v", testStart, u.JoinedAt)
	}
	if len(u.CompletedTaskIDs) != 0 {
		t.Fatalf("expected empty completed set, got %v", u.CompletedTaskIDs)
	}
	if len(env.store.Transactions()) != 0 {
		t.Fatal("login should not write a transaction")
	}

	second := env.store.Login(ctx, "sara@example.com", "Sara")
	if second.ID == u.ID {
		t.Fatal("expected login to replace the user with a new id")
	}
	got, ok := env.store.User()
	if !ok || got.Email != "sara@example.com" || got.Balance != 100 {
		t.Fatalf("unexpected current user: %+v", got)
	}
}

func TestLogoutKeepsLedgerAndCatalogs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.store.Login(ctx, "a@b.c", "A")
	env.store.AddCoins(ctx, 10, "bonus")
	env.store.Logout(ctx)

	if _, ok := env.store.User(); ok {
		t.Fatal("expected no user after logout")
	}
	if len(env.store.Transactions()) != 1 {
		t.Fatalf("expected ledger to survive logout, got %d", len(env.store.Transactions()))
	}
	if env.persisted(t).User != nil {
		t.Fatal("expected persisted user to be null")
	}
}

func TestAddAndDeductCoins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if env.store.AddCoins(ctx, 10, "x") {
		t.Fatal("expected AddCoins without user to fail")
	}
	if env.store.DeductCoins(ctx, 10, "x") {
		t.Fatal("expected DeductCoins without user to fail")
	}

	env.store.Login(ctx, "a@b.c", "A")
	if !env.store.AddCoins(ctx, 50, "bonus") {
		t.Fatal("expected AddCoins to succeed")
	}
	if env.store.AddCoins(ctx, 0, "zero") || env.store.AddCoins(ctx, -5, "neg") {
		t.Fatal("expected non-positive amounts to be rejected")
	}
	if !env.store.DeductCoins(ctx, 30, "spend") {
		t.Fatal("expected DeductCoins to succeed")
	}
	if env.store.DeductCoins(ctx, 1000, "too much") {
		t.Fatal("expected DeductCoins beyond balance to fail")
	}

	u, _ := env.store.User()
	if u.Balance != 120 || u.TotalEarnings != 50 {
		t.Fatalf("expected balance 120 earnings 50, got %d %d", u.Balance, u.TotalEarnings)
	}

	txs := env.store.Transactions()
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	if txs[0].Type != TransactionTypeExpense || txs[0].Amount != 30 || txs[0].Description != "spend" {
		t.Fatalf("expected newest expense first, got %+v", txs[0])
	}
	if txs[1].Type != TransactionTypeEarning || txs[1].Status != TransactionStatusCompleted {
		t.Fatalf("unexpected earning entry: %+v", txs[1])
	}
}

func TestCreditsNeverOverflowBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.store.Login(ctx, "a@b.c", "A")

	if env.store.AddCoins(ctx, math.MaxInt64, "huge") {
		t.Fatal("expected a credit past MaxInt64 to be refused")
	}

	tx, ok := env.store.Deposit(ctx, "Payeer", math.MaxInt64, "BIG")
	if !ok {
		t.Fatal("expected the deposit to be recorded")
	}
	env.clock.Advance(5 * time.Second)

	u, _ := env.store.User()
	if u.Balance != 100 || u.TotalEarnings != 0 {
		t.Fatalf("expected balance untouched at 100, got %d (earnings %d)", u.Balance, u.TotalEarnings)
	}
	txs := env.store.Transactions()
	if len(txs) != 1 || txs[0].ID != tx.ID || txs[0].Status != TransactionStatusApproved {
		t.Fatalf("expected the deposit to leave pending without a credit, got %+v", txs)
	}
}

func TestCreateTask(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	nt := NewTask{Title: "Like my page", Description: "d", Reward: 40, Link: "https://x.test", Type: TaskKindTask}

	if _, ok := env.store.CreateTask(ctx, nt); ok {
		t.Fatal("expected CreateTask without user to fail")
	}

	env.store.Login(ctx, "a@b.c", "A")
	before := env.store.Snapshot()

	big := nt
	big.Reward = 150
	if _, ok := env.store.CreateTask(ctx, big); ok {
		t.Fatal("expected CreateTask beyond balance to fail")
	}
	if diff := cmp.Diff(before, env.store.Snapshot()); diff != "" {
		t.Fatalf("failed CreateTask changed state:\n%s", diff)
	}

	task, ok := env.store.CreateTask(ctx, nt)
	if !ok {
		t.Fatal("expected CreateTask to succeed")
	}
	tasks := env.store.Tasks()
	if tasks[0].ID != task.ID || tasks[0].Title != "Like my page" {
		t.Fatalf("expected created task first, got %+v", tasks[0])
	}
	if len(tasks) != len(before.Tasks)+1 {
		t.Fatalf("expected one more task, got %d", len(tasks))
	}
	u, _ := env.store.User()
	if u.Balance != 60 {
		t.Fatalf("expected balance 60, got %d", u.Balance)
	}
	tx := env.store.Transactions()[0]
	if tx.Type != TransactionTypeExpense || tx.Description != "Created task: Like my page" {
		t.Fatalf("unexpected expense entry: %+v", tx)
	}
}

func TestCompleteTaskIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if env.store.CompleteTask(ctx, "t1") {
		t.Fatal("expected completion without user to fail")
	}
	env.store.Login(ctx, "a@b.c", "A")

	if !env.store.CompleteTask(ctx, "t1") {
		t.Fatal("expected first completion to succeed")
	}
	if env.store.CompleteTask(ctx, "t1") {
		t.Fatal("expected second completion to be a no-op")
	}
	if env.store.CompleteTask(ctx, "missing") {
		t.Fatal("expected unknown task to be a no-op")
	}
	if !env.store.CompleteTask(ctx, "w3") {
		t.Fatal("expected ad completion to succeed")
	}

	u, _ := env.store.User()
	if u.Balance != 180 || u.TotalEarnings != 80 || u.CompletedTasks != 2 {
		t.Fatalf("unexpected user after completions: %+v", u)
	}
	if diff := cmp.Diff([]string{"t1", "w3"}, u.CompletedTaskIDs); diff != "" {
		t.Fatalf("completed ids mismatch:\n%s", diff)
	}
	txs := env.store.Transactions()
	if len(txs) != 2 || txs[1].Description != "Completed: Follow on Twitter" {
		t.Fatalf("unexpected ledger: %+v", txs)
	}
}

func TestDepositApprovedAfterDelay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.store.Login(ctx, "a@b.c", "A")

	tx, ok := env.store.Deposit(ctx, "JazzCash", 100, "TRX123")
	if !ok {
		t.Fatal("expected deposit to succeed")
	}
	if tx.Status != TransactionStatusPending || tx.Description != "Deposit via JazzCash (TRX: TRX123)" {
		t.Fatalf("unexpected deposit: %+v", tx)
	}
	if u, _ := env.store.User(); u.Balance != 100 {
		t.Fatalf("deposit credited early: %d", u.Balance)
	}

	// a newer entry shifts the deposit away from index 0
	env.store.AddCoins(ctx, 5, "bonus")

	env.clock.Advance(4 * time.Second)
	if env.store.Transactions()[1].Status != TransactionStatusPending {
		t.Fatal("deposit approved before the delay elapsed")
	}
	env.clock.Advance(time.Second)

	txs := env.store.Transactions()
	if txs[1].ID != tx.ID || txs[1].Status != TransactionStatusApproved {
		t.Fatalf("expected deposit approved, got %+v", txs[1])
	}
	if txs[0].Status != TransactionStatusCompleted {
		t.Fatalf("approval touched the wrong entry: %+v", txs[0])
	}
	u, _ := env.store.User()
	if u.Balance != 205 || u.TotalEarnings != 5 {
		t.Fatalf("expected balance 205 earnings 5, got %d %d", u.Balance, u.TotalEarnings)
	}
	if env.persisted(t).Transactions[1].Status != TransactionStatusApproved {
		t.Fatal("approval was not persisted")
	}

	last := env.events[len(env.events)-1]
	if last.Type != EventDepositApproved || last.TransactionID != tx.ID || last.Balance == nil || *last.Balance != 205 {
		t.Fatalf("unexpected approval event: %+v", last)
	}
}

func TestDepositWithoutUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tx, ok := env.store.Deposit(ctx, "Payeer", 300, "P1")
	if !ok {
		t.Fatal("expected deposit without user to be recorded")
	}
	env.clock.Advance(5 * time.Second)

	txs := env.store.Transactions()
	if len(txs) != 1 || txs[0].ID != tx.ID || txs[0].Status != TransactionStatusApproved {
		t.Fatalf("expected approved deposit, got %+v", txs)
	}
	if _, ok := env.store.User(); ok {
		t.Fatal("approval must not create a user")
	}
}

func TestDepositCreditsUserLoggedInAtApproval(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.store.Login(ctx, "first@x.y", "First")
	env.store.Deposit(ctx, "Easypaisa", 100, "E1")
	env.store.Login(ctx, "second@x.y", "Second")
	env.clock.Advance(5 * time.Second)

	u, _ := env.store.User()
	if u.Email != "second@x.y" || u.Balance != 200 {
		t.Fatalf("expected second user credited to 200, got %+v", u)
	}
}

func TestCancelDepositApproval(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.store.Login(ctx, "a@b.c", "A")

	tx, _ := env.store.Deposit(ctx, "Payeer", 100, "T")
	if diff := cmp.Diff([]string{tx.ID}, env.store.PendingApprovals()); diff != "" {
		t.Fatalf("pending approvals mismatch:\n%s", diff)
	}
	if !env.store.CancelDepositApproval(tx.ID) {
		t.Fatal("expected cancel to succeed")
	}
	env.clock.Advance(time.Minute)

	if env.store.Transactions()[0].Status != TransactionStatusPending {
		t.Fatal("cancelled approval still fired")
	}
	if u, _ := env.store.User(); u.Balance != 100 {
		t.Fatalf("expected balance unchanged, got %d", u.Balance)
	}
}

func TestDepositRejectsNonPositiveAmount(t *testing.T) {
	env := newTestEnv(t)
	if _, ok := env.store.Deposit(context.Background(), "Payeer", 0, "T"); ok {
		t.Fatal("expected zero deposit to fail")
	}
	if len(env.store.PendingApprovals()) != 0 {
		t.Fatal("rejected deposit scheduled an approval")
	}
}

func TestWithdrawStaysPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, ok := env.store.Withdraw(ctx, "Bank Transfer", 10); ok {
		t.Fatal("expected withdraw without user to fail")
	}
	env.store.Login(ctx, "a@b.c", "A")
	if _, ok := env.store.Withdraw(ctx, "Bank Transfer", 101); ok {
		t.Fatal("expected withdraw beyond balance to fail")
	}

	tx, ok := env.store.Withdraw(ctx, "Bank Transfer", 60)
	if !ok {
		t.Fatal("expected withdraw to succeed")
	}
	if tx.Type != TransactionTypeWithdraw || tx.Status != TransactionStatusPending || tx.Description != "Withdrawal via Bank Transfer" {
		t.Fatalf("unexpected withdrawal: %+v", tx)
	}
	if u, _ := env.store.User(); u.Balance != 40 {
		t.Fatalf("expected immediate debit to 40, got %d", u.Balance)
	}

	env.clock.Advance(time.Hour)
	if env.store.Transactions()[0].Status != TransactionStatusPending {
		t.Fatal("withdrawal left pending")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	slot := kvstore.NewMemory()
	c := clock.NewFake(testStart)
	env := openTestEnv(t, slot, c)
	ctx := context.Background()

	env.store.Login(ctx, "a@b.c", "A")
	env.store.CompleteTask(ctx, "t2")
	env.store.CreateTask(ctx, NewTask{Title: "Visit", Reward: 20, Link: "https://v.test", Type: TaskKindWebsite, Duration: 30})
	env.store.Withdraw(ctx, "Payeer", 10)
	want := env.store.Snapshot()

	reopened := openTestEnv(t, slot, c)
	if diff := cmp.Diff(want, reopened.store.Snapshot()); diff != "" {
		t.Fatalf("rehydrated state mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenResumesPendingDeposits(t *testing.T) {
	slot := kvstore.NewMemory()
	c := clock.NewFake(testStart)
	first := openTestEnv(t, slot, c)
	ctx := context.Background()

	first.store.Login(ctx, "a@b.c", "A")
	tx, _ := first.store.Deposit(ctx, "JazzCash", 100, "R")
	first.store.Close()

	c.Advance(2 * time.Second)
	second := openTestEnv(t, slot, c)
	if diff := cmp.Diff([]string{tx.ID}, second.store.PendingApprovals()); diff != "" {
		t.Fatalf("expected deposit rescheduled:\n%s", diff)
	}

	c.Advance(2 * time.Second)
	if second.store.Transactions()[0].Status != TransactionStatusPending {
		t.Fatal("resumed approval fired early")
	}
	c.Advance(time.Second)
	if second.store.Transactions()[0].Status != TransactionStatusApproved {
		t.Fatal("resumed approval did not fire")
	}
	if u, _ := second.store.User(); u.Balance != 200 {
		t.Fatalf("expected balance 200, got %d", u.Balance)
	}
}

func TestOpenRejectsCorruptSnapshot(t *testing.T) {
	slot := kvstore.NewMemory()
	if err := slot.Put(context.Background(), DefaultKey, []byte("{not json")); err != nil {
		t.Fatalf("seed slot: %v", err)
	}
	_, err := Open(context.Background(), Options{Slot: slot, Clock: clock.NewFake(testStart)})
	if !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("expected ErrInvalidSnapshot, got %v", err)
	}
}

type failingSlot struct{ *kvstore.Memory }

func (failingSlot) Put(context.Context, string, []byte) error { return errors.New("disk full") }

func TestPersistFailureKeepsMemoryState(t *testing.T) {
	nop := zerolog.Nop()
	s, err := Open(context.Background(), Options{
		Slot:   failingSlot{kvstore.NewMemory()},
		IDs:    idgen.NewSequence("id"),
		Clock:  clock.NewFake(testStart),
		Logger: &nop,
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	s.Login(context.Background(), "a@b.c", "A")
	if !s.AddCoins(context.Background(), 5, "x") {
		t.Fatal("expected mutation to succeed despite the write failure")
	}
	if u, _ := s.User(); u.Balance != 105 {
		t.Fatalf("expected balance 105, got %d", u.Balance)
	}
}

func TestEveryMutationPersists(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	base := env.slot.Puts()

	env.store.Login(ctx, "a@b.c", "A")
	env.store.AddCoins(ctx, 1, "x")
	env.store.DeductCoins(ctx, 1000, "rejected")
	env.store.CompleteTask(ctx, "t1")

	if got := env.slot.Puts() - base; got != 3 {
		t.Fatalf("expected 3 writes, got %d", got)
	}
	if len(env.events) != 3 {
		t.Fatalf("expected 3 change events, got %d", len(env.events))
	}
	if diff := cmp.Diff(env.store.Snapshot(), env.persisted(t)); diff != "" {
		t.Fatalf("persisted state lags memory:\n%s", diff)
	}
}
