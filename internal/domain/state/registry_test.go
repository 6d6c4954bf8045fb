package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/adspredia/adspredia-api/internal/pkg/clock"
	"github.com/adspredia/adspredia-api/internal/pkg/idgen"
	"github.com/adspredia/adspredia-api/internal/pkg/kvstore"
)

func TestRegistryIsolatesDevices(t *testing.T) {
	slot := kvstore.NewMemory()
	c := clock.NewFake(testStart)
	nop := zerolog.Nop()

	type notice struct {
		device string
		ev     Event
	}
	var notices []notice
	reg := NewRegistry(Options{Slot: slot, IDs: idgen.NewSequence("id"), Clock: c, Logger: &nop}, func(deviceID string, ev Event) {
		notices = append(notices, notice{deviceID, ev})
	})
	defer reg.Close()
	ctx := context.Background()

	a, err := reg.Get(ctx, "dev-a")
	if err != nil {
		t.Fatalf("get dev-a: %v", err)
	}
	b, err := reg.Get(ctx, "dev-b")
	if err != nil {
		t.Fatalf("get dev-b: %v", err)
	}
	again, _ := reg.Get(ctx, "dev-a")
	if again != a {
		t.Fatal("expected the same store for repeated Get")
	}
	if reg.Len() != 2 {
		t.Fatalf("expected 2 open stores, got %d", reg.Len())
	}

	a.Login(ctx, "a@x.y", "A")
	b.Deposit(ctx, "Payeer", 50, "B1")
	c.Advance(5 * time.Second)

	if _, ok := b.User(); ok {
		t.Fatal("login leaked across devices")
	}
	if a.Key() != "ads_predia_state:dev-a" {
		t.Fatalf("unexpected key %q", a.Key())
	}
	if _, err := slot.Get(ctx, DeviceKey("dev-b")); err != nil {
		t.Fatalf("expected dev-b slot to be written: %v", err)
	}

	if len(notices) != 3 {
		t.Fatalf("expected 3 notices, got %d", len(notices))
	}
	if notices[0].device != "dev-a" || notices[2].device != "dev-b" || notices[2].ev.Type != EventDepositApproved {
		t.Fatalf("unexpected notices: %+v", notices)
	}
}

func TestRegistryEvictReloads(t *testing.T) {
	slot := kvstore.NewMemory()
	nop := zerolog.Nop()
	reg := NewRegistry(Options{Slot: slot, Clock: clock.NewFake(testStart), Logger: &nop}, nil)
	defer reg.Close()
	ctx := context.Background()

	s, _ := reg.Get(ctx, "d")
	s.Login(ctx, "a@x.y", "A")
	reg.Evict("d")

	reloaded, err := reg.Get(ctx, "d")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded == s {
		t.Fatal("expected a fresh store after Evict")
	}
	if u, ok := reloaded.User(); !ok || u.Email != "a@x.y" {
		t.Fatalf("expected persisted user, got %+v", u)
	}
}

func TestRegistryClosed(t *testing.T) {
	reg := NewRegistry(Options{Clock: clock.NewFake(testStart)}, nil)
	reg.Close()
	if _, err := reg.Get(context.Background(), "d"); !errors.Is(err, ErrStoreClosed) {
		t.Fatalf("expected ErrStoreClosed, got %v", err)
	}
}

func TestRegistryEvictsIdleStores(t *testing.T) {
	slot := kvstore.NewMemory()
	c := clock.NewFake(testStart)
	nop := zerolog.Nop()
	reg := NewRegistry(Options{Slot: slot, Clock: c, ApprovalDelay: 2 * time.Minute, Logger: &nop}, nil, WithIdleTTL(time.Minute))
	defer reg.Close()
	ctx := context.Background()

	a, _ := reg.Get(ctx, "dev-a")
	if _, err := reg.Get(ctx, "dev-b"); err != nil {
		t.Fatalf("get dev-b: %v", err)
	}

	c.Advance(30 * time.Second)
	reg.Get(ctx, "dev-a")
	a.Login(ctx, "a@x.y", "A")
	if _, ok := a.Deposit(ctx, "Payeer", 50, "A1"); !ok {
		t.Fatal("expected deposit to be recorded")
	}

	c.Advance(30 * time.Second)
	if reg.Len() != 1 {
		t.Fatalf("expected only the idle dev-b to be evicted, got %d open", reg.Len())
	}

	c.Advance(time.Minute)
	if reg.Len() != 1 {
		t.Fatalf("expected dev-a to stay open while its approval is pending, got %d open", reg.Len())
	}

	c.Advance(time.Minute)
	if reg.Len() != 0 {
		t.Fatalf("expected dev-a to be evicted once approved, got %d open", reg.Len())
	}

	reloaded, err := reg.Get(ctx, "dev-a")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded == a {
		t.Fatal("expected a fresh store after idle eviction")
	}
	if u, ok := reloaded.User(); !ok || u.Balance != 150 {
		t.Fatalf("expected the approved deposit to survive eviction, got %+v", u)
	}
}

func TestRegistryWithoutIdleTTLKeepsStores(t *testing.T) {
	c := clock.NewFake(testStart)
	nop := zerolog.Nop()
	reg := NewRegistry(Options{Clock: c, Logger: &nop}, nil)
	defer reg.Close()

	reg.Get(context.Background(), "d")
	c.Advance(24 * time.Hour)
	if n := reg.EvictIdle(); n != 0 || reg.Len() != 1 {
		t.Fatalf("expected no eviction without a TTL, evicted %d, %d open", n, reg.Len())
	}
}
