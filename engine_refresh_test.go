package authgate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paygate-labs/authgate/provider"
)

func TestRefreshReusesLiveProviderToken(t *testing.T) {
	fp := &fakeProvider{grant: testGrant(time.Minute, time.Hour)}
	e, _ := newTestEngine(t, fp)
	ctx := context.Background()

	pair, err := e.Login(ctx, "ada", "pw")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	rotated, err := e.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if rotated.AccessToken == pair.AccessToken || rotated.RefreshToken == pair.RefreshToken {
		t.Fatal("rotation returned an unrotated credential")
	}

	// The provider access token was still live, so no upstream call happens.
	if _, refreshCalls, _ := fp.counts(); refreshCalls != 0 {
		t.Fatalf("expected no provider refresh, got %d calls", refreshCalls)
	}

	if _, err := e.Validate(ctx, rotated.AccessToken); err != nil {
		t.Fatalf("rotated access credential rejected: %v", err)
	}
}

func TestRefreshIsSingleUse(t *testing.T) {
	fp := &fakeProvider{grant: testGrant(time.Minute, time.Hour)}
	e, _ := newTestEngine(t, fp)
	ctx := context.Background()

	pair, err := e.Login(ctx, "ada", "pw")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := e.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("first Refresh failed: %v", err)
	}

	// Replaying the consumed credential must fail and be counted.
	if _, err := e.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid on replay, got %v", err)
	}
	snap := e.MetricsSnapshot()
	if snap.Counters[MetricRefreshReplayDetected] != 1 {
		t.Fatalf("replay counter = %d, want 1", snap.Counters[MetricRefreshReplayDetected])
	}
}

func TestRefreshReplayDoesNotKillCurrentLineage(t *testing.T) {
	fp := &fakeProvider{grant: testGrant(time.Minute, time.Hour)}
	e, _ := newTestEngine(t, fp)
	ctx := context.Background()

	pair, err := e.Login(ctx, "ada", "pw")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	rotated, err := e.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if _, err := e.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid on replay, got %v", err)
	}

	// The winner's credentials stay usable after the replay attempt.
	if _, err := e.Refresh(ctx, rotated.RefreshToken); err != nil {
		t.Fatalf("current refresh credential rejected after replay: %v", err)
	}
}

func TestRefreshCascadesWhenProviderAccessExpired(t *testing.T) {
	fp := &fakeProvider{grant: testGrant(5*time.Second, time.Hour)}
	e, _ := newTestEngine(t, fp)
	ctx := context.Background()

	pair, err := e.Login(ctx, "ada", "pw")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// Provider pair handed out on cascade.
	fp.refreshGrant = testGrant(time.Minute, 2*time.Hour)
	fp.refreshGrant.AccessToken = "prov-access-2"
	fp.refreshGrant.RefreshToken = "prov-refresh-2"

	// Move the engine clock past the provider access expiry. The records are
	// still in the store; only the shadowed token is stale.
	e.now = func() time.Time { return time.Now().Add(6 * time.Second) }

	rotated, err := e.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if _, refreshCalls, _ := fp.counts(); refreshCalls != 1 {
		t.Fatalf("provider refresh calls = %d, want 1", refreshCalls)
	}
	if fp.lastRefreshToken != "prov-refresh" {
		t.Fatalf("cascade used token %q, want stored provider refresh token", fp.lastRefreshToken)
	}

	// The new session shadows the rotated provider pair.
	ps, err := e.ProviderSession(ctx, "user-1")
	if err != nil {
		t.Fatalf("ProviderSession failed: %v", err)
	}
	if ps.AccessToken != "prov-access-2" || ps.RefreshToken != "prov-refresh-2" {
		t.Fatalf("provider pair not rotated: %+v", ps)
	}
	if _, err := e.Validate(ctx, rotated.AccessToken); err != nil {
		t.Fatalf("rotated access credential rejected: %v", err)
	}
}

func TestRefreshCascadeRejectedUpstream(t *testing.T) {
	fp := &fakeProvider{
		grant:      testGrant(5*time.Second, time.Hour),
		refreshErr: provider.ErrInvalidCredentials,
	}
	e, _ := newTestEngine(t, fp)
	ctx := context.Background()

	pair, err := e.Login(ctx, "ada", "pw")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	e.now = func() time.Time { return time.Now().Add(6 * time.Second) }

	if _, err := e.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid, got %v", err)
	}
}

func TestRefreshCascadeProviderDown(t *testing.T) {
	fp := &fakeProvider{
		grant:      testGrant(5*time.Second, time.Hour),
		refreshErr: provider.ErrUnavailable,
	}
	e, _ := newTestEngine(t, fp)
	ctx := context.Background()

	pair, err := e.Login(ctx, "ada", "pw")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	e.now = func() time.Time { return time.Now().Add(6 * time.Second) }

	if _, err := e.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestRefreshRejectsAccessCredential(t *testing.T) {
	fp := &fakeProvider{grant: testGrant(time.Minute, time.Hour)}
	e, _ := newTestEngine(t, fp)
	ctx := context.Background()

	pair, err := e.Login(ctx, "ada", "pw")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// Access credentials carry no token identifier and must not rotate.
	if _, err := e.Refresh(ctx, pair.AccessToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid, got %v", err)
	}
}

func TestRefreshRejectsGarbage(t *testing.T) {
	e, _ := newTestEngine(t, &fakeProvider{})

	if _, err := e.Refresh(context.Background(), "not-a-jwt"); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid, got %v", err)
	}
}

func TestRefreshUnknownSubject(t *testing.T) {
	e, _ := newTestEngine(t, &fakeProvider{})

	// Well-signed credential with no backing session record.
	cred, _, err := e.codec.IssueRefresh("ghost", "Ghost", "", time.Hour)
	if err != nil {
		t.Fatalf("IssueRefresh failed: %v", err)
	}
	if _, err := e.Refresh(context.Background(), cred); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid, got %v", err)
	}
}

func TestRefreshAfterRecordExpiry(t *testing.T) {
	fp := &fakeProvider{grant: testGrant(time.Minute, time.Hour)}
	e, mr := newTestEngine(t, fp)
	ctx := context.Background()

	pair, err := e.Login(ctx, "ada", "pw")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	mr.FastForward(2 * time.Hour)

	if _, err := e.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid, got %v", err)
	}
}

func TestRefreshStoreUnavailable(t *testing.T) {
	fp := &fakeProvider{grant: testGrant(time.Minute, time.Hour)}
	e, mr := newTestEngine(t, fp)
	ctx := context.Background()

	pair, err := e.Login(ctx, "ada", "pw")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	mr.Close()

	if _, err := e.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
