package authgate

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMetricsCountLifecycle(t *testing.T) {
	fp := &fakeProvider{grant: testGrant(time.Minute, time.Hour)}
	e, _ := newTestEngine(t, fp)
	ctx := context.Background()

	pair, err := e.Login(ctx, "ada", "pw")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := e.Validate(ctx, pair.AccessToken); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if _, err := e.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if _, err := e.Logout(ctx, "user-1"); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	snap := e.MetricsSnapshot()
	want := map[MetricID]uint64{
		MetricLoginSuccess:    1,
		MetricSessionCreated:  1,
		MetricValidateSuccess: 1,
		MetricRefreshSuccess:  1,
		MetricLogout:          1,
		MetricSessionRevoked:  1,
		MetricLoginFailure:    0,
		MetricRefreshFailure:  0,
	}
	for id, n := range want {
		if snap.Counters[id] != n {
			t.Errorf("counter %d = %d, want %d", id, snap.Counters[id], n)
		}
	}
}

func TestMetricsValidateLatencyHistogram(t *testing.T) {
	fp := &fakeProvider{grant: testGrant(time.Minute, time.Hour)}
	e, _ := newTestEngine(t, fp)
	ctx := context.Background()

	pair, err := e.Login(ctx, "ada", "pw")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := e.Validate(ctx, pair.AccessToken); err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
	}

	buckets := e.MetricsSnapshot().Histograms[MetricValidateLatency]
	if len(buckets) != histBucketCount {
		t.Fatalf("bucket count %d, want %d", len(buckets), histBucketCount)
	}
	var total uint64
	for _, b := range buckets {
		total += b
	}
	if total != 3 {
		t.Fatalf("histogram observations = %d, want 3", total)
	}
}

func TestMetricsDisabledSnapshotIsEmpty(t *testing.T) {
	fp := &fakeProvider{grant: testGrant(time.Minute, time.Hour)}

	_, rdb := newTestRedis(t)
	priv, pub := testSigningKeys(t)
	cfg := defaultConfig()
	cfg.JWT.SigningMethod = "ed25519"
	cfg.JWT.PrivateKey = priv
	cfg.JWT.PublicKey = pub

	e, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithProvider(fp).
		WithMetricsEnabled(false).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(e.Close)

	if _, err := e.Login(context.Background(), "ada", "pw"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	snap := e.MetricsSnapshot()
	if len(snap.Counters) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap.Counters)
	}
}

func TestMetricsConcurrentIncrements(t *testing.T) {
	m := newMetrics(MetricsConfig{Enabled: true})

	const goroutines = 16
	const perGoroutine = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				m.Inc(MetricValidateSuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Snapshot().Counters[MetricValidateSuccess]; got != goroutines*perGoroutine {
		t.Fatalf("counter = %d, want %d", got, goroutines*perGoroutine)
	}
}

func TestMetricsOutOfRangeIDIsIgnored(t *testing.T) {
	m := newMetrics(MetricsConfig{Enabled: true})
	m.Inc(metricIDCount)
	m.Inc(MetricID(9999))

	for id, n := range m.Snapshot().Counters {
		if n != 0 {
			t.Fatalf("counter %d = %d, want 0", id, n)
		}
	}
}
