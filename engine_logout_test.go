package authgate

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLogoutRevokesAndDeletes(t *testing.T) {
	fp := &fakeProvider{grant: testGrant(time.Minute, time.Hour)}
	e, mr := newTestEngine(t, fp)
	ctx := context.Background()

	pair, err := e.Login(ctx, "ada", "pw")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	revoked, err := e.Logout(ctx, "user-1")
	if err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if !revoked {
		t.Fatal("expected provider revoke to be acknowledged")
	}
	if _, _, revokeCalls := fp.counts(); revokeCalls != 1 {
		t.Fatalf("revoke calls = %d, want 1", revokeCalls)
	}
	if fp.lastRevokedToken != "prov-access" {
		t.Fatalf("revoked token %q, want stored provider access token", fp.lastRevokedToken)
	}

	if mr.Exists("session:user-1:access") || mr.Exists("session:user-1:refresh") {
		t.Fatal("session records survived logout")
	}
	if _, err := e.Validate(ctx, pair.AccessToken); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired after logout, got %v", err)
	}
	if _, err := e.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid after logout, got %v", err)
	}
}

func TestLogoutDeletesLocallyWhenRevokeFails(t *testing.T) {
	fp := &fakeProvider{
		grant:     testGrant(time.Minute, time.Hour),
		revokeErr: errors.New("upstream 502"),
	}
	e, mr := newTestEngine(t, fp)
	ctx := context.Background()

	if _, err := e.Login(ctx, "ada", "pw"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	revoked, err := e.Logout(ctx, "user-1")
	if err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if revoked {
		t.Fatal("revoked must be false when the provider rejects the revoke")
	}
	if mr.Exists("session:user-1:access") {
		t.Fatal("local session must be deleted regardless of the provider")
	}
}

func TestLogoutWithoutSessionIsIdempotent(t *testing.T) {
	fp := &fakeProvider{}
	e, _ := newTestEngine(t, fp)

	revoked, err := e.Logout(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if revoked {
		t.Fatal("nothing to revoke")
	}
	if _, _, revokeCalls := fp.counts(); revokeCalls != 0 {
		t.Fatalf("revoke calls = %d, want 0", revokeCalls)
	}
}

func TestLogoutStoreUnavailable(t *testing.T) {
	fp := &fakeProvider{grant: testGrant(time.Minute, time.Hour)}
	e, mr := newTestEngine(t, fp)
	ctx := context.Background()

	if _, err := e.Login(ctx, "ada", "pw"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	mr.Close()

	if _, err := e.Logout(ctx, "user-1"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestProviderSessionRoundTrip(t *testing.T) {
	fp := &fakeProvider{grant: testGrant(time.Minute, time.Hour)}
	e, _ := newTestEngine(t, fp)
	ctx := context.Background()

	if _, err := e.Login(ctx, "ada", "pw"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	ps, err := e.ProviderSession(ctx, "user-1")
	if err != nil {
		t.Fatalf("ProviderSession failed: %v", err)
	}
	if ps.AccessToken != "prov-access" || ps.RefreshToken != "prov-refresh" {
		t.Fatalf("unexpected provider pair: %+v", ps)
	}

	if _, err := e.Logout(ctx, "user-1"); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := e.ProviderSession(ctx, "user-1"); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}
