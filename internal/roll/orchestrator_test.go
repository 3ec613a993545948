package roll

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"auraroll/internal/cooldown"
	"auraroll/internal/identity"
	"auraroll/internal/rewards"
)

const testSteamID = "76561197960287930"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeVerifier accepts the assertion "good" for any claim and fails every
// other assertion with the kind mapped in failures (default rejected).
type fakeVerifier struct {
	mu       sync.Mutex
	calls    int
	failures map[string]identity.Kind
	entered  chan struct{}
	release  chan struct{}
}

func (v *fakeVerifier) Verify(ctx context.Context, claimed, assertion string) (string, error) {
	v.mu.Lock()
	v.calls++
	v.mu.Unlock()

	if v.entered != nil {
		v.entered <- struct{}{}
	}
	if v.release != nil {
		<-v.release
	}
	if assertion == "good" {
		return claimed, nil
	}
	kind, ok := v.failures[assertion]
	if !ok {
		kind = identity.KindRejected
	}
	return "", &identity.VerificationError{Kind: kind, Detail: "fake"}
}

func (v *fakeVerifier) Calls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

type fakeGranter struct {
	mu     sync.Mutex
	err    error
	grants []string
	ctxErr error
}

func (g *fakeGranter) Grant(ctx context.Context, who, rewardID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ctxErr = ctx.Err()
	g.grants = append(g.grants, who+":"+rewardID)
	return g.err
}

func (g *fakeGranter) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.grants)
}

type fixture struct {
	orch     *Orchestrator
	tracker  *cooldown.Tracker
	verifier *fakeVerifier
	granter  *fakeGranter
	clock    *fakeClock
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	table, err := rewards.NewTable([]rewards.Entry{
		{RewardID: "100", Weight: 75},
		{RewardID: "101", Weight: 30},
		{RewardID: "102", Weight: 10},
		{RewardID: "103", Weight: 3},
		{RewardID: "104", Weight: 1},
	})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	if cfg.VerifyTimeout == 0 {
		cfg.VerifyTimeout = time.Second
	}
	if cfg.GrantTimeout == 0 {
		cfg.GrantTimeout = time.Second
	}

	f := &fixture{
		tracker:  cooldown.NewTracker(60 * time.Second),
		verifier: &fakeVerifier{},
		granter:  &fakeGranter{},
		clock:    &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
	f.orch = New(cfg, f.tracker, f.verifier, table, f.granter,
		WithClock(f.clock.Now),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return f
}

func TestRoll_Granted(t *testing.T) {
	f := newFixture(t, Config{RequireAssertion: true})

	out := f.orch.Roll(context.Background(), Request{Identity: testSteamID, Assertion: "good"})
	if out.Kind != KindGranted {
		t.Fatalf("Kind = %q, want %q (err: %v)", out.Kind, KindGranted, out.Err)
	}
	if out.RewardID == "" || out.RollID == "" {
		t.Errorf("granted outcome missing ids: %+v", out)
	}
	if out.Identity != testSteamID {
		t.Errorf("Identity = %q, want %q", out.Identity, testSteamID)
	}
	if f.granter.Calls() != 1 {
		t.Errorf("grant calls = %d, want 1", f.granter.Calls())
	}
	if ready, _ := f.tracker.CheckAndIsReady(testSteamID, f.clock.Now()); ready {
		t.Error("cooldown should be consumed after a granted roll")
	}
}

func TestRoll_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		req  Request
	}{
		{"missing identity", Config{RequireAssertion: true}, Request{Assertion: "good"}},
		{"missing assertion when required", Config{RequireAssertion: true}, Request{Identity: testSteamID}},
		{"identity with whitespace", Config{RequireAssertion: true}, Request{Identity: "7656 1197", Assertion: "good"}},
		{"assertion with control chars", Config{RequireAssertion: true}, Request{Identity: testSteamID, Assertion: "go\x00od"}},
		{"missing identity in trusted mode", Config{RequireAssertion: false}, Request{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.cfg)
			out := f.orch.Roll(context.Background(), tt.req)
			if out.Kind != KindRejected {
				t.Fatalf("Kind = %q, want %q", out.Kind, KindRejected)
			}
			if out.Reason == "" {
				t.Error("rejected outcome should carry a reason")
			}
			if f.verifier.Calls() != 0 || f.granter.Calls() != 0 {
				t.Errorf("network calls made: verify=%d grant=%d", f.verifier.Calls(), f.granter.Calls())
			}
			if f.tracker.Len() != 0 {
				t.Errorf("cooldown touched: Len() = %d", f.tracker.Len())
			}
			if ready, _ := f.tracker.CheckAndIsReady(testSteamID, f.clock.Now()); !ready {
				t.Error("identity should remain ready")
			}
		})
	}
}

func TestRoll_TrustedModeSkipsVerification(t *testing.T) {
	f := newFixture(t, Config{RequireAssertion: false})

	out := f.orch.Roll(context.Background(), Request{Identity: testSteamID})
	if out.Kind != KindGranted {
		t.Fatalf("Kind = %q, want %q", out.Kind, KindGranted)
	}
	if f.verifier.Calls() != 0 {
		t.Errorf("verify calls = %d, want 0", f.verifier.Calls())
	}

	// An assertion, when present, is still verified.
	f.clock.Advance(time.Minute)
	out = f.orch.Roll(context.Background(), Request{Identity: testSteamID, Assertion: "bad"})
	if out.Kind != KindVerificationFailed {
		t.Fatalf("Kind = %q, want %q", out.Kind, KindVerificationFailed)
	}
}

func TestRoll_FailedVerificationDoesNotConsumeCooldown(t *testing.T) {
	f := newFixture(t, Config{RequireAssertion: true})

	out := f.orch.Roll(context.Background(), Request{Identity: testSteamID, Assertion: "bad"})
	if out.Kind != KindVerificationFailed {
		t.Fatalf("first roll Kind = %q, want %q", out.Kind, KindVerificationFailed)
	}
	if f.granter.Calls() != 0 {
		t.Errorf("grant calls = %d, want 0", f.granter.Calls())
	}

	out = f.orch.Roll(context.Background(), Request{Identity: testSteamID, Assertion: "good"})
	if out.Kind != KindGranted {
		t.Fatalf("second roll Kind = %q, want %q", out.Kind, KindGranted)
	}
}

func TestRoll_VerificationKindsCollapse(t *testing.T) {
	kinds := []identity.Kind{identity.KindUnavailable, identity.KindRejected, identity.KindMismatch}

	for _, kind := range kinds {
		t.Run(string(kind), func(t *testing.T) {
			f := newFixture(t, Config{RequireAssertion: true})
			f.verifier.failures = map[string]identity.Kind{"x": kind}

			out := f.orch.Roll(context.Background(), Request{Identity: testSteamID, Assertion: "x"})
			if out.Kind != KindVerificationFailed {
				t.Fatalf("Kind = %q, want %q", out.Kind, KindVerificationFailed)
			}
			if out.Reason != string(kind) {
				t.Errorf("Reason = %q, want %q", out.Reason, kind)
			}
			if identity.KindOf(out.Err) != kind {
				t.Errorf("KindOf(Err) = %q, want %q", identity.KindOf(out.Err), kind)
			}
			if f.tracker.Len() != 0 || f.granter.Calls() != 0 {
				t.Error("failed verification must have no side effects")
			}
		})
	}
}

func TestRoll_GrantFailureStillConsumesCooldown(t *testing.T) {
	f := newFixture(t, Config{RequireAssertion: true})
	f.granter.err = errors.New("inventory down")

	out := f.orch.Roll(context.Background(), Request{Identity: testSteamID, Assertion: "good"})
	if out.Kind != KindGrantFailed {
		t.Fatalf("Kind = %q, want %q", out.Kind, KindGrantFailed)
	}
	if out.RewardID == "" {
		t.Error("grant failure should report the sampled reward")
	}

	out = f.orch.Roll(context.Background(), Request{Identity: testSteamID, Assertion: "good"})
	if out.Kind != KindCooldownActive {
		t.Fatalf("retry Kind = %q, want %q", out.Kind, KindCooldownActive)
	}
	if f.verifier.Calls() != 1 {
		t.Errorf("verify calls = %d, want 1 (retry must not re-verify)", f.verifier.Calls())
	}
}

func TestRoll_CooldownCountsDownThenAccepts(t *testing.T) {
	f := newFixture(t, Config{RequireAssertion: true})
	req := Request{Identity: testSteamID, Assertion: "good"}

	if out := f.orch.Roll(context.Background(), req); out.Kind != KindGranted {
		t.Fatalf("first roll Kind = %q", out.Kind)
	}

	prev := 0
	for i, step := range []time.Duration{0, 15 * time.Second, 30 * time.Second, 14 * time.Second} {
		f.clock.Advance(step)
		out := f.orch.Roll(context.Background(), req)
		if out.Kind != KindCooldownActive {
			t.Fatalf("attempt %d Kind = %q, want %q", i, out.Kind, KindCooldownActive)
		}
		if out.RemainingSeconds <= 0 {
			t.Fatalf("attempt %d RemainingSeconds = %d, want > 0", i, out.RemainingSeconds)
		}
		if i > 0 && out.RemainingSeconds >= prev {
			t.Errorf("attempt %d remaining %d did not decrease from %d", i, out.RemainingSeconds, prev)
		}
		prev = out.RemainingSeconds
	}

	f.clock.Advance(time.Duration(prev) * time.Second)
	if out := f.orch.Roll(context.Background(), req); out.Kind != KindGranted {
		t.Fatalf("roll after window Kind = %q, want %q", out.Kind, KindGranted)
	}
	if f.verifier.Calls() != 2 {
		t.Errorf("verify calls = %d, want 2", f.verifier.Calls())
	}
}

func TestRoll_ConcurrentSameIdentity(t *testing.T) {
	f := newFixture(t, Config{RequireAssertion: true})
	f.verifier.entered = make(chan struct{}, 1)
	f.verifier.release = make(chan struct{})

	req := Request{Identity: testSteamID, Assertion: "good"}
	first := make(chan Outcome, 1)
	go func() {
		first <- f.orch.Roll(context.Background(), req)
	}()

	// Wait until the first roll is inside verification, then race it.
	<-f.verifier.entered
	second := f.orch.Roll(context.Background(), req)
	close(f.verifier.release)
	got := <-first

	if got.Kind != KindGranted {
		t.Errorf("first Kind = %q, want %q", got.Kind, KindGranted)
	}
	if second.Kind != KindCooldownActive {
		t.Errorf("second Kind = %q, want %q", second.Kind, KindCooldownActive)
	}
	if f.granter.Calls() != 1 {
		t.Errorf("grant calls = %d, want 1", f.granter.Calls())
	}
}

func TestRoll_ConcurrentManyCallers(t *testing.T) {
	f := newFixture(t, Config{RequireAssertion: true})

	const callers = 16
	results := make(chan Outcome, callers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results <- f.orch.Roll(context.Background(), Request{Identity: testSteamID, Assertion: "good"})
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	counts := make(map[Kind]int)
	for out := range results {
		counts[out.Kind]++
	}
	if counts[KindGranted] != 1 {
		t.Errorf("granted = %d, want 1 (counts: %v)", counts[KindGranted], counts)
	}
	if counts[KindCooldownActive] != callers-1 {
		t.Errorf("rate limited = %d, want %d", counts[KindCooldownActive], callers-1)
	}
}

func TestRoll_CallerCancellationDoesNotAbortGrant(t *testing.T) {
	f := newFixture(t, Config{RequireAssertion: true})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := f.orch.Roll(ctx, Request{Identity: testSteamID, Assertion: "good"})
	if out.Kind != KindGranted {
		t.Fatalf("Kind = %q, want %q", out.Kind, KindGranted)
	}
	if f.granter.ctxErr != nil {
		t.Errorf("grant saw cancelled context: %v", f.granter.ctxErr)
	}
}
