package service

import (
	"context"
	"testing"

	perr "hush/internal/platform/errors"
	"hush/internal/platform/kv"
	"hush/internal/services/localstate/domain"
	"hush/internal/services/localstate/repo"
)

func newSvc(t *testing.T) (*Service, kv.Store) {
	t.Helper()
	st := kv.NewMem()
	return New(repo.New(st)), st
}

func TestGetOrCreateIdentity_StableAcrossCalls(t *testing.T) {
	t.Parallel()

	svc, _ := newSvc(t)
	ctx := context.Background()

	a, err := svc.GetOrCreateIdentity(ctx)
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if a == "" {
		t.Fatal("empty token")
	}
	b, _ := svc.GetOrCreateIdentity(ctx)
	if a != b {
		t.Fatalf("token changed across calls: %q vs %q", a, b)
	}
}

func TestGetOrCreateIdentity_SurvivesReopen(t *testing.T) {
	t.Parallel()

	st := kv.NewMem()
	a, _ := New(repo.New(st)).GetOrCreateIdentity(context.Background())

	// a fresh service over the same store stands in for a process restart
	b, _ := New(repo.New(st)).GetOrCreateIdentity(context.Background())
	if a != b {
		t.Fatalf("token not persisted: %q vs %q", a, b)
	}
}

// failingStorage errors on every operation
type failingStorage struct{}

func (failingStorage) LoadIdentity() (string, bool, error) {
	return "", false, perr.Storagef("down")
}
func (failingStorage) SaveIdentity(string) error { return perr.Storagef("down") }
func (failingStorage) LoadLedger(string) (domain.Ledger, error) {
	return domain.NewLedger(), perr.Storagef("down")
}
func (failingStorage) SaveLedger(string, domain.Ledger) error { return perr.Storagef("down") }

func TestGetOrCreateIdentity_DegradesToEphemeral(t *testing.T) {
	t.Parallel()

	svc := NewWith(failingStorage{}, func() string { return "usr_ephemeral" })
	ctx := context.Background()

	tok, err := svc.GetOrCreateIdentity(ctx)
	if err != nil {
		t.Fatalf("storage failure must not be fatal: %v", err)
	}
	if tok != "usr_ephemeral" {
		t.Fatalf("got %q", tok)
	}
	// the session keeps the same ephemeral token
	again, _ := svc.GetOrCreateIdentity(ctx)
	if again != tok {
		t.Fatalf("ephemeral token changed: %q vs %q", again, tok)
	}
}

// zeroLedgerStorage returns the zero Ledger with nil maps, as a minimal
// Storage that skips NewLedger would
type zeroLedgerStorage struct{ failingStorage }

func (zeroLedgerStorage) LoadLedger(string) (domain.Ledger, error) {
	return domain.Ledger{}, nil
}

func TestLedger_ZeroValueFromStorageIsUsable(t *testing.T) {
	t.Parallel()

	svc := NewWith(zeroLedgerStorage{}, nil)
	const id = "usr_x"

	if on := svc.ToggleLike(id, "w1"); !on {
		t.Fatal("toggle on a zero-value ledger should turn the like on")
	}
	if !svc.MarkReported(id, "w2") {
		t.Fatal("report on a zero-value ledger should succeed")
	}
	svc.SetLastSeen(id, "w3", 2)
	if got := svc.LastSeen(id, "w3"); got != 2 {
		t.Fatalf("last seen = %d, want 2", got)
	}
}

func TestToggleLike_DoubleToggleRestoresMembership(t *testing.T) {
	t.Parallel()

	svc, _ := newSvc(t)
	const id = "usr_x"
	const w = "w1"

	if svc.IsLiked(id, w) {
		t.Fatal("fresh ledger should not contain the whisper")
	}
	if on := svc.ToggleLike(id, w); !on {
		t.Fatal("first toggle should turn the like on")
	}
	if !svc.IsLiked(id, w) {
		t.Fatal("membership should follow the toggle")
	}
	if on := svc.ToggleLike(id, w); on {
		t.Fatal("second toggle should turn the like off")
	}
	if svc.IsLiked(id, w) {
		t.Fatal("double toggle must restore the original membership")
	}
}

func TestMarkReported_Idempotent(t *testing.T) {
	t.Parallel()

	svc, _ := newSvc(t)
	const id = "usr_x"
	const w = "w1"

	if !svc.MarkReported(id, w) {
		t.Fatal("first report should succeed")
	}
	if svc.MarkReported(id, w) {
		t.Fatal("second report must be refused")
	}
	if !svc.IsReported(id, w) {
		t.Fatal("whisper should stay reported")
	}
}

func TestLedger_WriteThroughSurvivesReopen(t *testing.T) {
	t.Parallel()

	st := kv.NewMem()
	const id = "usr_x"

	a := New(repo.New(st))
	a.ToggleLike(id, "w1")
	a.MarkReported(id, "w2")
	a.ToggleReplyLike(id, "r1")
	a.SetLastSeen(id, "w3", 4)

	b := New(repo.New(st))
	if !b.IsLiked(id, "w1") {
		t.Fatal("like lost across reopen")
	}
	if !b.IsReported(id, "w2") {
		t.Fatal("report lost across reopen")
	}
	if !b.IsReplyLiked(id, "r1") {
		t.Fatal("reply like lost across reopen")
	}
	if got := b.LastSeen(id, "w3"); got != 4 {
		t.Fatalf("last seen lost across reopen: got %d", got)
	}
}

func TestClearWhisper_DropsAllEntries(t *testing.T) {
	t.Parallel()

	svc, _ := newSvc(t)
	const id = "usr_x"
	const w = "w1"

	svc.ToggleLike(id, w)
	svc.MarkReported(id, w)
	svc.SetLastSeen(id, w, 7)

	svc.ClearWhisper(id, w)

	if svc.IsLiked(id, w) || svc.IsReported(id, w) || svc.LastSeen(id, w) != 0 {
		t.Fatal("clear should drop every entry for the whisper")
	}
}

func TestLedgers_AreIdentityScoped(t *testing.T) {
	t.Parallel()

	svc, _ := newSvc(t)
	svc.ToggleLike("usr_a", "w1")

	if svc.IsLiked("usr_b", "w1") {
		t.Fatal("ledger state leaked across identities")
	}
}
