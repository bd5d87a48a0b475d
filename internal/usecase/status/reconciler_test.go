package status_test

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"chanwatch/internal/domain/entity"
	"chanwatch/internal/usecase/status"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var ignoreTimestamps = cmpopts.IgnoreFields(entity.Channel{}, "LastCheckedAt", "UpdatedAt", "CreatedAt")

func TestReconcile_ReachableWithoutPublications(t *testing.T) {
	repo := newStubRepo()
	ch := repo.add("https://example.com/@sample", entity.StatusPending)
	if ch.Status != entity.StatusPending {
		t.Fatalf("new channel status = %s, want pending", ch.Status)
	}

	prober := &stubProber{results: map[string]entity.ProbeResult{
		ch.Reference: {Accessible: true, DisplayName: strPtr("Sample"), ExternalID: strPtr("UCsample")},
	}}
	fetcher := &stubFetcher{}
	r := status.NewReconciler(repo, prober, fetcher, nil)

	out, err := r.Reconcile(context.Background(), ch)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	stored, _ := repo.Get(context.Background(), ch.ID)
	if stored.Status != entity.StatusActive {
		t.Errorf("status = %s, want active", stored.Status)
	}
	if stored.LatestTitle != nil || stored.LatestViewCount != 0 {
		t.Errorf("snapshot = (%v, %d), want (nil, 0)", stored.LatestTitle, stored.LatestViewCount)
	}
	if stored.LastCheckedAt == nil {
		t.Error("last_checked_at not stamped")
	}
	if !out.Accessible || !out.Resolved || out.Latest != nil {
		t.Errorf("outcome = %+v", out)
	}
	if diff := cmp.Diff(stored, out.Channel); diff != "" {
		t.Errorf("outcome channel differs from stored (-stored +out):\n%s", diff)
	}
}

func TestReconcile_NotFoundClearsSnapshot(t *testing.T) {
	repo := newStubRepo()
	ch := repo.add("https://www.youtube.com/@gone", entity.StatusActive)
	ch.DisplayName = strPtr("Gone Channel")
	ch.LatestTitle = strPtr("old video")
	ch.LatestViewCount = 99
	_ = repo.Update(context.Background(), ch)

	prober := &stubProber{results: map[string]entity.ProbeResult{
		ch.Reference: {Accessible: false, Error: "Channel not found (404)"},
	}}
	fetcher := &stubFetcher{}
	r := status.NewReconciler(repo, prober, fetcher, nil)

	out, err := r.Reconcile(context.Background(), ch)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !strings.Contains(out.Error, "404") {
		t.Errorf("error = %q, want it to mention 404", out.Error)
	}

	stored, _ := repo.Get(context.Background(), ch.ID)
	want := &entity.Channel{
		ID:          ch.ID,
		Reference:   ch.Reference,
		DisplayName: strPtr("Gone Channel"),
		Status:      entity.StatusInactive,
	}
	if diff := cmp.Diff(want, stored, ignoreTimestamps); diff != "" {
		t.Errorf("stored mismatch (-want +got):\n%s", diff)
	}
	if len(fetcher.calls) != 0 {
		t.Errorf("fetcher called %d times for unreachable channel", len(fetcher.calls))
	}
}

func TestReconcile_AdoptsLatestPublication(t *testing.T) {
	repo := newStubRepo()
	ch := repo.add("https://www.youtube.com/@live", entity.StatusPending)

	prober := &stubProber{results: map[string]entity.ProbeResult{
		ch.Reference: {Accessible: true, DisplayName: strPtr("Live"), ExternalID: strPtr("UClive")},
	}}
	fetcher := &stubFetcher{pubs: map[string]*entity.Publication{
		"UClive": {ItemID: "v1", Title: "Episode 12", ViewCount: 4321, URL: entity.WatchURL("v1")},
	}}
	r := status.NewReconciler(repo, prober, fetcher, nil)

	if _, err := r.Reconcile(context.Background(), ch); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	stored, _ := repo.Get(context.Background(), ch.ID)
	want := &entity.Channel{
		ID:              ch.ID,
		Reference:       ch.Reference,
		ExternalID:      strPtr("UClive"),
		DisplayName:     strPtr("Live"),
		Status:          entity.StatusActive,
		LatestTitle:     strPtr("Episode 12"),
		LatestViewCount: 4321,
	}
	if diff := cmp.Diff(want, stored, ignoreTimestamps); diff != "" {
		t.Errorf("stored mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcile_IdempotentOnStableChannel(t *testing.T) {
	repo := newStubRepo()
	ch := repo.add("https://www.youtube.com/@stable", entity.StatusPending)

	prober := &stubProber{results: map[string]entity.ProbeResult{
		ch.Reference: {Accessible: true, DisplayName: strPtr("Stable"), ExternalID: strPtr("UCstable")},
	}}
	fetcher := &stubFetcher{pubs: map[string]*entity.Publication{
		"UCstable": {ItemID: "v1", Title: "Same", ViewCount: 10},
	}}
	r := status.NewReconciler(repo, prober, fetcher, nil)

	var snapshots []*entity.Channel
	for i := 0; i < 3; i++ {
		current, _ := repo.Get(context.Background(), ch.ID)
		if _, err := r.Reconcile(context.Background(), current); err != nil {
			t.Fatalf("Reconcile #%d: %v", i, err)
		}
		stored, _ := repo.Get(context.Background(), ch.ID)
		snapshots = append(snapshots, stored)
	}
	for i := 1; i < len(snapshots); i++ {
		if diff := cmp.Diff(snapshots[0], snapshots[i], ignoreTimestamps); diff != "" {
			t.Errorf("pass %d diverged (-first +later):\n%s", i, diff)
		}
	}
}

func TestReconcile_KeepsPriorNameAndStoredExternalID(t *testing.T) {
	repo := newStubRepo()
	ch := repo.add("https://www.youtube.com/c/custom", entity.StatusActive)
	ch.DisplayName = strPtr("Known Name")
	ch.ExternalID = strPtr("UCstored")
	_ = repo.Update(context.Background(), ch)

	prober := &stubProber{results: map[string]entity.ProbeResult{
		ch.Reference: {Accessible: true},
	}}
	fetcher := &stubFetcher{pubs: map[string]*entity.Publication{
		"UCstored": {ItemID: "v9", Title: "From stored id", ViewCount: 1},
	}}
	r := status.NewReconciler(repo, prober, fetcher, nil)

	out, err := r.Reconcile(context.Background(), ch)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if got := out.Channel.Name(); got != "Known Name" {
		t.Errorf("name = %q, want prior name", got)
	}
	if diff := cmp.Diff([]string{"UCstored"}, fetcher.calls); diff != "" {
		t.Errorf("fetcher calls (-want +got):\n%s", diff)
	}
	if out.Channel.LatestTitle == nil || *out.Channel.LatestTitle != "From stored id" {
		t.Errorf("latest title = %v", out.Channel.LatestTitle)
	}
}

func TestReconcile_UnresolvedClearsSnapshot(t *testing.T) {
	repo := newStubRepo()
	ch := repo.add("https://www.youtube.com/c/custom", entity.StatusActive)
	ch.LatestTitle = strPtr("stale")
	ch.LatestViewCount = 5
	_ = repo.Update(context.Background(), ch)

	prober := &stubProber{results: map[string]entity.ProbeResult{
		ch.Reference: {Accessible: true, DisplayName: strPtr("Custom")},
	}}
	fetcher := &stubFetcher{}
	r := status.NewReconciler(repo, prober, fetcher, nil)

	out, err := r.Reconcile(context.Background(), ch)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if out.Resolved {
		t.Error("expected unresolved outcome")
	}
	if len(fetcher.calls) != 0 {
		t.Errorf("fetcher called without an external id")
	}
	if out.Channel.LatestTitle != nil || out.Channel.LatestViewCount != 0 {
		t.Errorf("snapshot not cleared: (%v, %d)", out.Channel.LatestTitle, out.Channel.LatestViewCount)
	}
	if out.Channel.ExternalID != nil {
		t.Errorf("external id = %v, want nil", *out.Channel.ExternalID)
	}
}

func TestReconcile_NotifiesTransitions(t *testing.T) {
	tests := []struct {
		name       string
		from       entity.ChannelStatus
		accessible bool
		wantChange bool
	}{
		{"active to inactive", entity.StatusActive, false, true},
		{"inactive to active", entity.StatusInactive, true, true},
		{"pending to active", entity.StatusPending, true, false},
		{"pending to inactive", entity.StatusPending, false, false},
		{"active stays active", entity.StatusActive, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newStubRepo()
			ch := repo.add("https://www.youtube.com/@flip", tt.from)
			res := entity.ProbeResult{Accessible: tt.accessible, DisplayName: strPtr("Flip")}
			if !tt.accessible {
				res = entity.ProbeResult{Error: "HTTP 503"}
			}
			prober := &stubProber{results: map[string]entity.ProbeResult{ch.Reference: res}}
			notifier := &recordingNotifier{}
			r := status.NewReconciler(repo, prober, &stubFetcher{}, notifier)

			out, err := r.Reconcile(context.Background(), ch)
			if err != nil {
				t.Fatalf("Reconcile: %v", err)
			}
			if (out.Change != nil) != tt.wantChange {
				t.Errorf("change = %+v, want change=%v", out.Change, tt.wantChange)
			}
			if got := len(notifier.changes); got != map[bool]int{true: 1, false: 0}[tt.wantChange] {
				t.Errorf("notifications = %d", got)
			}
			if tt.wantChange && notifier.changes[0].Previous != tt.from {
				t.Errorf("previous = %s, want %s", notifier.changes[0].Previous, tt.from)
			}
		})
	}
}

func TestReconcile_PersistFailure(t *testing.T) {
	repo := newStubRepo()
	prober := &stubProber{results: map[string]entity.ProbeResult{}}
	r := status.NewReconciler(repo, prober, &stubFetcher{}, nil)

	// 既に削除されたチャンネル
	_, err := r.Reconcile(context.Background(), &entity.Channel{ID: 42, Reference: "https://www.youtube.com/@deleted"})
	if !errors.Is(err, entity.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	repo.err = errors.New("disk full")
	ch := &entity.Channel{ID: 1, Reference: "x"}
	if _, err := r.Reconcile(context.Background(), ch); err == nil {
		t.Error("expected persistence error")
	}

	if _, err := r.Reconcile(context.Background(), nil); !errors.Is(err, entity.ErrInvalidInput) {
		t.Errorf("nil channel err = %v", err)
	}
}

func TestReconcile_ConcurrentSameChannelSharesOnePass(t *testing.T) {
	repo := newStubRepo()
	ch := repo.add("https://www.youtube.com/@busy", entity.StatusPending)
	gate := make(chan struct{})
	prober := &stubProber{
		gate: gate,
		results: map[string]entity.ProbeResult{
			ch.Reference: {Accessible: true, DisplayName: strPtr("Busy")},
		},
	}
	r := status.NewReconciler(repo, prober, &stubFetcher{}, nil)

	const callers = 5
	var wg sync.WaitGroup
	outs := make([]*status.Outcome, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := r.Reconcile(context.Background(), ch)
			if err != nil {
				t.Errorf("Reconcile: %v", err)
				return
			}
			outs[i] = out
		}()
	}
	// 最初のパスが Probe 内で止まるまで待つ
	for prober.Calls() == 0 {
		runtime.Gosched()
	}
	close(gate)
	wg.Wait()

	if n := int(repo.updates.Load()); n > prober.Calls() {
		t.Errorf("updates = %d, probes = %d; every write must come from a full pass", n, prober.Calls())
	}
	for i, out := range outs {
		if out == nil || out.Channel.Status != entity.StatusActive || out.Channel.Name() != "Busy" {
			t.Errorf("caller %d got %+v", i, out)
		}
	}
}

// funcProber delegates to fn and counts calls.
type funcProber struct {
	calls atomic.Int32
	fn    func(ctx context.Context, call int32) entity.ProbeResult
}

func (p *funcProber) Probe(ctx context.Context, _ string) entity.ProbeResult {
	return p.fn(ctx, p.calls.Add(1))
}

// blockUntilDone behaves like a page probe cut off by the caller.
func blockUntilDone(entered chan<- struct{}) func(context.Context, int32) entity.ProbeResult {
	return func(ctx context.Context, call int32) entity.ProbeResult {
		if call == 1 {
			close(entered)
			<-ctx.Done()
			return entity.ProbeResult{Error: ctx.Err().Error()}
		}
		return entity.ProbeResult{Accessible: true, DisplayName: strPtr("Healthy")}
	}
}

func TestReconcile_CallerDeadlineDuringProbeWritesNothing(t *testing.T) {
	repo := newStubRepo()
	ch := repo.add("https://www.youtube.com/@healthy", entity.StatusActive)
	ch.LatestTitle = strPtr("kept")
	ch.LatestViewCount = 7
	_ = repo.Update(context.Background(), ch)
	updatesBefore := repo.updates.Load()

	entered := make(chan struct{})
	prober := &funcProber{fn: blockUntilDone(entered)}
	notifier := &recordingNotifier{}
	r := status.NewReconciler(repo, prober, &stubFetcher{}, notifier)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	out, err := r.Reconcile(ctx, ch)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want DeadlineExceeded", err)
	}
	if out != nil {
		t.Errorf("outcome = %+v, want nil", out)
	}

	// 打ち切られたパスが終わるまで待ってから、新しいパスを実行する
	if _, err := r.Reconcile(context.Background(), ch); err != nil {
		t.Fatalf("follow-up Reconcile: %v", err)
	}

	if got := repo.updates.Load() - updatesBefore; got != 1 {
		t.Errorf("updates = %d, want 1 (follow-up pass only)", got)
	}
	stored, _ := repo.Get(context.Background(), ch.ID)
	if stored.Status != entity.StatusActive {
		t.Errorf("status = %s, want active", stored.Status)
	}
	if n := len(notifier.changes); n != 0 {
		t.Errorf("notifications = %d, want 0: %+v", n, notifier.changes[0])
	}
}

func TestReconcile_SharedPassSurvivesOneCallerCancelling(t *testing.T) {
	repo := newStubRepo()
	ch := repo.add("https://www.youtube.com/@shared", entity.StatusActive)

	entered := make(chan struct{})
	prober := &funcProber{fn: blockUntilDone(entered)}
	notifier := &recordingNotifier{}
	r := status.NewReconciler(repo, prober, &stubFetcher{}, notifier)

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := r.Reconcile(leaderCtx, ch)
		leaderErr <- err
	}()
	<-entered

	type result struct {
		out *status.Outcome
		err error
	}
	follower := make(chan result, 1)
	go func() {
		out, err := r.Reconcile(context.Background(), ch)
		follower <- result{out, err}
	}()
	time.Sleep(20 * time.Millisecond)
	cancelLeader()

	if err := <-leaderErr; !errors.Is(err, context.Canceled) {
		t.Errorf("leader err = %v, want Canceled", err)
	}
	res := <-follower
	if res.err != nil {
		t.Fatalf("follower err = %v", res.err)
	}
	if !res.out.Accessible || res.out.Channel.Status != entity.StatusActive {
		t.Errorf("follower outcome = %+v", res.out)
	}
	stored, _ := repo.Get(context.Background(), ch.ID)
	if stored.Status != entity.StatusActive {
		t.Errorf("stored status = %s, want active", stored.Status)
	}
	if n := len(notifier.changes); n != 0 {
		t.Errorf("notifications = %d, want 0", n)
	}
}

func TestReconcile_SkippedProbeKeepsStoredRecord(t *testing.T) {
	repo := newStubRepo()
	ch := repo.add("https://www.youtube.com/@steady", entity.StatusActive)
	ch.DisplayName = strPtr("Steady")
	ch.LatestTitle = strPtr("kept")
	ch.LatestViewCount = 12
	_ = repo.Update(context.Background(), ch)
	before, _ := repo.Get(context.Background(), ch.ID)
	updatesBefore := repo.updates.Load()

	prober := &stubProber{results: map[string]entity.ProbeResult{
		ch.Reference: {Skipped: true, Error: "not probed: circuit breaker is open"},
	}}
	fetcher := &stubFetcher{}
	notifier := &recordingNotifier{}
	r := status.NewReconciler(repo, prober, fetcher, notifier)

	out, err := r.Reconcile(context.Background(), before)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !out.Skipped || out.Accessible {
		t.Errorf("outcome = %+v, want skipped", out)
	}
	if diff := cmp.Diff(before, out.Channel); diff != "" {
		t.Errorf("outcome channel changed (-before +out):\n%s", diff)
	}
	if got := repo.updates.Load(); got != updatesBefore {
		t.Errorf("updates = %d, want %d", got, updatesBefore)
	}
	stored, _ := repo.Get(context.Background(), ch.ID)
	if diff := cmp.Diff(before, stored); diff != "" {
		t.Errorf("stored record changed (-before +stored):\n%s", diff)
	}
	if len(fetcher.calls) != 0 || len(notifier.changes) != 0 {
		t.Errorf("fetcher calls = %d, notifications = %d", len(fetcher.calls), len(notifier.changes))
	}
}
