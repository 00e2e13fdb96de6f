package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"hush/internal/core/lifecycle"
	"hush/internal/core/placement"
	"hush/internal/modkit/repokit"
	perr "hush/internal/platform/errors"
	"hush/internal/platform/kv"
	"hush/internal/platform/testkit"
	"hush/internal/services/board/domain"
	lsdom "hush/internal/services/localstate/domain"
	lsrepo "hush/internal/services/localstate/repo"
	lssvc "hush/internal/services/localstate/service"
)

// fakeStore is an in-memory StoragePort that records the exact atomic
// operations the service sends
type fakeStore struct {
	mu       sync.Mutex
	whispers []domain.Whisper // newest first, like the remote ordering

	loveDeltas      map[string][]int
	reportIncs      map[string]int
	replyLoveDeltas map[string][]int

	failWith error // when set, every mutation fails without applying
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		loveDeltas:      map[string][]int{},
		reportIncs:      map[string]int{},
		replyLoveDeltas: map[string][]int{},
	}
}

func (f *fakeStore) Snapshot(context.Context) ([]domain.Whisper, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Whisper, len(f.whispers))
	copy(out, f.whispers)
	return out, nil
}

func (f *fakeStore) Insert(_ context.Context, w domain.Whisper) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.whispers = append([]domain.Whisper{w}, f.whispers...)
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	for i, w := range f.whispers {
		if w.ID == id {
			f.whispers = append(f.whispers[:i], f.whispers[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeStore) IncrementLove(_ context.Context, id string, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.loveDeltas[id] = append(f.loveDeltas[id], delta)
	for i := range f.whispers {
		if f.whispers[i].ID == id {
			f.whispers[i].Loves += delta
		}
	}
	return nil
}

func (f *fakeStore) IncrementReport(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.reportIncs[id]++
	for i := range f.whispers {
		if f.whispers[i].ID == id {
			f.whispers[i].Reports++
		}
	}
	return nil
}

func (f *fakeStore) InsertReply(_ context.Context, r domain.Reply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	for i := range f.whispers {
		if f.whispers[i].ID == r.WhisperID {
			r.Seq = int64(len(f.whispers[i].Replies) + 1)
			f.whispers[i].Replies = append(f.whispers[i].Replies, r)
		}
	}
	return nil
}

func (f *fakeStore) IncrementReplyLove(_ context.Context, whisperID, replyID string, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.replyLoveDeltas[replyID] = append(f.replyLoveDeltas[replyID], delta)
	for i := range f.whispers {
		if f.whispers[i].ID != whisperID {
			continue
		}
		for j := range f.whispers[i].Replies {
			if f.whispers[i].Replies[j].ID == replyID {
				f.whispers[i].Replies[j].Loves += delta
			}
		}
	}
	return nil
}

func sum(xs []int) int {
	n := 0
	for _, x := range xs {
		n += x
	}
	return n
}

// nopTx satisfies repokit.TxRunner for binders that ignore the queryer
type nopTx struct{}

func (nopTx) Exec(context.Context, string, ...any) (repokit.CommandTag, error) { return nil, nil }
func (nopTx) Query(context.Context, string, ...any) (repokit.Rows, error)      { return nil, nil }
func (nopTx) QueryRow(context.Context, string, ...any) repokit.Row             { return nil }
func (nopTx) Tx(_ context.Context, fn func(q repokit.Queryer) error) error     { return fn(nopTx{}) }

func newTestService(t *testing.T, fs *fakeStore) *Service {
	t.Helper()
	ledger := lssvc.New(lsrepo.New(kv.NewMem()))
	binder := repokit.BindFunc[domain.StoragePort](func(repokit.Queryer) domain.StoragePort { return fs })
	svc := New(nopTx{}, binder, ledger, Options{})
	svc.refresh(context.Background())
	return svc
}

func TestPublish_PositionInBoundsAndGate(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	svc := newTestService(t, fs)
	ctx := context.Background()

	w, err := svc.Publish(ctx, "usr_a", domain.Draft{Text: "hello out there"})
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if !placement.InBounds(w.Position) {
		t.Fatalf("position out of bounds: %+v", w.Position)
	}
	if w.DisplayName != domain.DefaultDisplayName {
		t.Fatalf("blank name should default, got %q", w.DisplayName)
	}

	// one live whisper per identity
	_, err = svc.Publish(ctx, "usr_a", domain.Draft{Text: "second"})
	if perr.CodeOf(err) != perr.ErrorCodeTooManyRequests {
		t.Fatalf("expected publish gate, got %v", err)
	}

	// a different identity is free to publish
	if _, err := svc.Publish(ctx, "usr_b", domain.Draft{Text: "hi"}); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
}

func TestPublish_ValidationAndMood(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newFakeStore())
	ctx := context.Background()

	if _, err := svc.Publish(ctx, "usr_a", domain.Draft{Text: "   "}); perr.CodeOf(err) != perr.ErrorCodeValidation {
		t.Fatalf("blank text should fail validation, got %v", err)
	}
	if _, err := svc.Publish(ctx, "usr_a", domain.Draft{Text: "x", Mood: "grumpy"}); perr.CodeOf(err) != perr.ErrorCodeInvalidArgument {
		t.Fatalf("unknown mood should be rejected, got %v", err)
	}
}

func TestPublish_MasksText(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	svc := newTestService(t, fs)

	w, err := svc.Publish(context.Background(), "usr_a", domain.Draft{Text: "i hate rain"})
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if w.Text != "i **** rain" {
		t.Fatalf("text not masked: %q", w.Text)
	}
}

func TestLike_DoubleToggleNetsZero(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	svc := newTestService(t, fs)
	ctx := context.Background()

	w, _ := svc.Publish(ctx, "owner", domain.Draft{Text: "psst"})

	on, err := svc.Like(ctx, "usr_x", w.ID)
	if err != nil || !on {
		t.Fatalf("first like: on=%v err=%v", on, err)
	}
	on, err = svc.Like(ctx, "usr_x", w.ID)
	if err != nil || on {
		t.Fatalf("second like: on=%v err=%v", on, err)
	}

	deltas := fs.loveDeltas[w.ID]
	if len(deltas) != 2 || deltas[0] != 1 || deltas[1] != -1 {
		t.Fatalf("deltas = %v", deltas)
	}
	if sum(deltas) != 0 {
		t.Fatalf("net delta = %d, want 0", sum(deltas))
	}
}

func TestLike_SelfForbidden(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	svc := newTestService(t, fs)
	ctx := context.Background()

	w, _ := svc.Publish(ctx, "owner", domain.Draft{Text: "mine"})
	if _, err := svc.Like(ctx, "owner", w.ID); perr.CodeOf(err) != perr.ErrorCodeInvalidArgument {
		t.Fatalf("self-like should be rejected, got %v", err)
	}
	if len(fs.loveDeltas[w.ID]) != 0 {
		t.Fatal("no delta may be sent for a rejected like")
	}
}

func TestLike_MissingWhisper(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newFakeStore())
	if _, err := svc.Like(context.Background(), "usr_x", "nope"); perr.CodeOf(err) != perr.ErrorCodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLike_FailedSendRollsBackLedger(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	svc := newTestService(t, fs)
	ctx := context.Background()

	w, _ := svc.Publish(ctx, "owner", domain.Draft{Text: "psst"})

	fs.mu.Lock()
	fs.failWith = perr.Unavailablef("remote store call failed")
	fs.mu.Unlock()

	on, err := svc.Like(ctx, "usr_x", w.ID)
	if err == nil {
		t.Fatal("expected error")
	}
	if on {
		t.Fatal("failed send must report the rolled back state")
	}

	// the flip was undone, a retry starts from scratch
	fs.mu.Lock()
	fs.failWith = nil
	fs.mu.Unlock()
	on, err = svc.Like(ctx, "usr_x", w.ID)
	if err != nil || !on {
		t.Fatalf("retry after rollback: on=%v err=%v", on, err)
	}
	if deltas := fs.loveDeltas[w.ID]; len(deltas) != 1 || deltas[0] != 1 {
		t.Fatalf("deltas = %v", deltas)
	}
}

func TestReport_SecondCallSendsNoIncrement(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	svc := newTestService(t, fs)
	ctx := context.Background()

	w, _ := svc.Publish(ctx, "owner", domain.Draft{Text: "psst"})

	if err := svc.Report(ctx, "usr_x", w.ID); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if err := svc.Report(ctx, "usr_x", w.ID); err != nil {
		t.Fatalf("repeat report must be a no-op success: %v", err)
	}
	if got := fs.reportIncs[w.ID]; got != 1 {
		t.Fatalf("remote increments = %d, want 1", got)
	}
}

// racingLedger lands a full competing report for the same pair inside the
// first reported-state read, before the caller takes the in-flight gate,
// and hands the caller the stale answer
type racingLedger struct {
	lsdom.LedgerPort
	svc      *Service
	fired    bool
	raceErr  error
	whisper  string
	identity string
}

func (l *racingLedger) IsReported(identity, whisperID string) bool {
	v := l.LedgerPort.IsReported(identity, whisperID)
	if !l.fired && identity == l.identity && whisperID == l.whisper {
		l.fired = true
		l.raceErr = l.svc.Report(context.Background(), identity, whisperID)
	}
	return v
}

func TestReport_CompetingReportSendsOneIncrement(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	rl := &racingLedger{LedgerPort: lssvc.New(lsrepo.New(kv.NewMem()))}
	binder := repokit.BindFunc[domain.StoragePort](func(repokit.Queryer) domain.StoragePort { return fs })
	svc := New(nopTx{}, binder, rl, Options{})
	rl.svc = svc
	svc.refresh(context.Background())
	ctx := context.Background()

	w, err := svc.Publish(ctx, "owner", domain.Draft{Text: "psst"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	rl.identity, rl.whisper = "usr_x", w.ID

	if err := svc.Report(ctx, "usr_x", w.ID); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if rl.raceErr != nil {
		t.Fatalf("competing report: %v", rl.raceErr)
	}
	if got := fs.reportIncs[w.ID]; got != 1 {
		t.Fatalf("remote increments = %d, want 1", got)
	}
}

func TestReport_ThresholdHidesFromFeed(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	svc := newTestService(t, fs)
	ctx := context.Background()

	w, _ := svc.Publish(ctx, "owner", domain.Draft{Text: "psst"})

	for _, id := range []string{"usr_1", "usr_2", "usr_3"} {
		if err := svc.Report(ctx, id, w.ID); err != nil {
			t.Fatalf("report from %s: %v", id, err)
		}
	}
	if got := fs.reportIncs[w.ID]; got != lifecycle.ReportThreshold {
		t.Fatalf("increments = %d", got)
	}

	feed, _ := svc.Feed(ctx, "usr_viewer", 0)
	for _, v := range feed.Whispers {
		if v.ID == w.ID {
			t.Fatal("whisper at threshold must be hidden from the feed")
		}
	}

	// the owner still reaches it
	ownFeed, _ := svc.Feed(ctx, "owner", 0)
	if ownFeed.Own == nil || ownFeed.Own.ID != w.ID {
		t.Fatal("owner must still see their moderated whisper")
	}
}

func TestConcurrentGate_RejectsSecondCall(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	svc := newTestService(t, fs)
	ctx := context.Background()

	w, _ := svc.Publish(ctx, "owner", domain.Draft{Text: "psst"})

	release, err := svc.acquire("usr_x", w.ID)
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if _, err := svc.Like(ctx, "usr_x", w.ID); perr.CodeOf(err) != perr.ErrorCodeConflict {
		t.Fatalf("expected conflict while in flight, got %v", err)
	}
	// a different identity is not gated
	if _, err := svc.Like(ctx, "usr_y", w.ID); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	release()
	if _, err := svc.Like(ctx, "usr_x", w.ID); err != nil {
		t.Fatalf("after release: %v", err)
	}
}

func TestReply_AppendsAndMasks(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	svc := newTestService(t, fs)
	ctx := context.Background()

	w, _ := svc.Publish(ctx, "owner", domain.Draft{Text: "psst"})

	if err := svc.Reply(ctx, "usr_x", w.ID, "you are stupid", ""); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if err := svc.Reply(ctx, "usr_x", w.ID, "second", ""); err != nil {
		t.Fatalf("unexpected: %v", err)
	}

	got, _ := findWhisper(svc.Canonical(), w.ID)
	if len(got.Replies) != 2 {
		t.Fatalf("replies = %d", len(got.Replies))
	}
	if got.Replies[0].Text != "you are ****" {
		t.Fatalf("reply not masked: %q", got.Replies[0].Text)
	}

	if err := svc.Reply(ctx, "usr_x", w.ID, "  ", ""); perr.CodeOf(err) != perr.ErrorCodeValidation {
		t.Fatalf("empty reply should fail validation, got %v", err)
	}

	// vanished whisper drops the reply silently
	if err := svc.Reply(ctx, "usr_x", "gone", "hello", ""); err != nil {
		t.Fatalf("reply to missing whisper must not fail: %v", err)
	}
}

func TestLikeReply_AtomicPerReplyCounter(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	svc := newTestService(t, fs)
	ctx := context.Background()

	w, _ := svc.Publish(ctx, "owner", domain.Draft{Text: "psst"})
	_ = svc.Reply(ctx, "usr_a", w.ID, "first", "")
	got, _ := findWhisper(svc.Canonical(), w.ID)
	rep := got.Replies[0]

	on, err := svc.LikeReply(ctx, "usr_x", w.ID, rep.ID)
	if err != nil || !on {
		t.Fatalf("on=%v err=%v", on, err)
	}
	on, err = svc.LikeReply(ctx, "usr_x", w.ID, rep.ID)
	if err != nil || on {
		t.Fatalf("on=%v err=%v", on, err)
	}
	deltas := fs.replyLoveDeltas[rep.ID]
	if len(deltas) != 2 || sum(deltas) != 0 {
		t.Fatalf("deltas = %v", deltas)
	}

	// vanished target is a silent no-op
	on, err = svc.LikeReply(ctx, "usr_x", w.ID, "gone")
	if err != nil || on {
		t.Fatalf("missing reply: on=%v err=%v", on, err)
	}
}

func TestDeleteOwn_ReopensPublishGate(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	svc := newTestService(t, fs)
	ctx := context.Background()

	if _, err := svc.Publish(ctx, "usr_a", domain.Draft{Text: "mine"}); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	feed, _ := svc.Feed(ctx, "usr_a", 0)
	if feed.CanPublish {
		t.Fatal("publish gate should be closed")
	}

	if err := svc.DeleteOwn(ctx, "usr_a"); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	feed, _ = svc.Feed(ctx, "usr_a", 0)
	if !feed.CanPublish {
		t.Fatal("publish gate should reopen after delete")
	}

	// deleting again is a no-op success
	if err := svc.DeleteOwn(ctx, "usr_a"); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
}

func TestFeed_UnreadAndMarkRead(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	svc := newTestService(t, fs)
	ctx := context.Background()

	w, _ := svc.Publish(ctx, "owner", domain.Draft{Text: "psst"})
	for i := 0; i < 5; i++ {
		_ = svc.Reply(ctx, "usr_x", w.ID, "hey", "")
	}
	svc.ledger.SetLastSeen("owner", w.ID, 2)

	feed, _ := svc.Feed(ctx, "owner", 0)
	if feed.Unread != 3 {
		t.Fatalf("unread = %d, want 3", feed.Unread)
	}

	_ = svc.MarkRead(ctx, "owner")
	feed, _ = svc.Feed(ctx, "owner", 0)
	if feed.Unread != 0 {
		t.Fatalf("unread after mark read = %d", feed.Unread)
	}
}

func TestTimeLeft_UsesClockSeam(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newFakeStore())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	testkit.Swap(t, &svc.now, func() time.Time { return base.Add(23 * time.Hour) })

	w := domain.Whisper{CreatedAt: base.UnixMilli()}
	got := svc.TimeLeft(w)
	if got.Bucket != lifecycle.LessThanHour {
		t.Fatalf("bucket = %v", got.Bucket)
	}

	testkit.Swap(t, &svc.now, func() time.Time { return base.Add(lifecycle.TTL) })
	if svc.TimeLeft(w).Bucket != lifecycle.Expired {
		t.Fatal("whisper at ttl must be expired")
	}
}

// pushNotifier delivers manual pushes and counts Listen invocations
type pushNotifier struct {
	mu      sync.Mutex
	listens int
	pushes  chan string
}

func (n *pushNotifier) Listen(ctx context.Context, _ string, fn func(string)) error {
	n.mu.Lock()
	n.listens++
	n.mu.Unlock()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case p := <-n.pushes:
			fn(p)
		}
	}
}

func TestStart_FollowsPushesAndTearsDown(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	ledger := lssvc.New(lsrepo.New(kv.NewMem()))
	binder := repokit.BindFunc[domain.StoragePort](func(repokit.Queryer) domain.StoragePort { return fs })
	notifier := &pushNotifier{pushes: make(chan string)}
	svc := New(nopTx{}, binder, ledger, Options{Notifier: notifier})

	ctx, cancel := context.WithCancel(context.Background())
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("unexpected: %v", err)
	}

	// a push after an out-of-band insert refreshes the canonical list
	fs.mu.Lock()
	fs.whispers = append(fs.whispers, domain.Whisper{ID: "w1", OwnerIdentity: "o", CreatedAt: time.Now().UnixMilli()})
	fs.mu.Unlock()

	notifier.pushes <- "insert:w1"
	deadline := time.Now().Add(2 * time.Second)
	for len(svc.Canonical()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("push did not refresh the canonical list")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	// after teardown nothing consumes pushes anymore
	select {
	case notifier.pushes <- "insert:w2":
		// a racing in-flight loop may consume one final push before it
		// observes cancellation; the next send must never be consumed
		select {
		case notifier.pushes <- "insert:w3":
			t.Fatal("subscription still alive after cancel")
		case <-time.After(100 * time.Millisecond):
		}
	case <-time.After(100 * time.Millisecond):
	}
}
