package registry

import (
	"log/slog"
	"net"
	"os"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func endpoint(port int) *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}
}

func TestTouchRegistersOnce(t *testing.T) {
	r := New(testLogger())
	base := time.Now()

	if !r.Touch(endpoint(50001), base) {
		t.Error("Expected first touch to report a new client")
	}

	// Repeated traffic from the same address must refresh, never duplicate.
	for i := 1; i <= 5; i++ {
		if r.Touch(endpoint(50001), base.Add(time.Duration(i)*time.Second)) {
			t.Errorf("Expected touch %d to refresh, not register", i)
		}
	}

	if r.Count() != 1 {
		t.Fatalf("Expected exactly 1 client, got %d", r.Count())
	}

	snapshot := r.Snapshot()
	if got, want := snapshot[0].LastSeen, base.Add(5*time.Second); !got.Equal(want) {
		t.Errorf("Expected last seen %v, got %v", want, got)
	}
}

func TestTouchDistinguishesEndpoints(t *testing.T) {
	r := New(testLogger())
	now := time.Now()

	r.Touch(endpoint(50001), now)
	r.Touch(endpoint(50002), now)
	r.Touch(&net.UDPAddr{IP: net.IPv4(10, 0, 0, 7), Port: 50001}, now)

	if r.Count() != 3 {
		t.Errorf("Expected 3 distinct clients, got %d", r.Count())
	}
}

func TestEvictThreshold(t *testing.T) {
	r := New(testLogger())
	base := time.Now()
	threshold := 4 * time.Second

	r.Touch(endpoint(50001), base)                    // will expire
	r.Touch(endpoint(50002), base.Add(3*time.Second)) // still alive

	// Before the sweep both clients are present.
	if r.Count() != 2 {
		t.Fatalf("Expected 2 clients before eviction, got %d", r.Count())
	}

	// Exactly at the threshold the client survives; eviction requires
	// silence strictly longer than the threshold.
	if evicted := r.Evict(base.Add(threshold), threshold); len(evicted) != 0 {
		t.Errorf("Expected no eviction at exact threshold, evicted %d", len(evicted))
	}

	evicted := r.Evict(base.Add(threshold+time.Second), threshold)
	if len(evicted) != 1 {
		t.Fatalf("Expected 1 evicted client, got %d", len(evicted))
	}

	if evicted[0].Endpoint.Port != 50001 {
		t.Errorf("Expected client 50001 evicted, got %d", evicted[0].Endpoint.Port)
	}

	if r.Count() != 1 {
		t.Errorf("Expected 1 surviving client, got %d", r.Count())
	}
}

func TestSnapshotIsIsolated(t *testing.T) {
	r := New(testLogger())
	now := time.Now()
	r.Touch(endpoint(50001), now)

	snapshot := r.Snapshot()
	snapshot[0].LastSeen = now.Add(-time.Hour)

	// Mutating the snapshot must not age the live entry.
	if evicted := r.Evict(now, 4*time.Second); len(evicted) != 0 {
		t.Errorf("Snapshot mutation leaked into registry, evicted %d", len(evicted))
	}
}

func TestSnapshotEndpointsDoNotAliasRegistry(t *testing.T) {
	r := New(testLogger())
	now := time.Now()
	r.Touch(endpoint(50001), now)

	snapshot := r.Snapshot()
	snapshot[0].Endpoint.Port = 60000
	snapshot[0].Endpoint.IP[len(snapshot[0].Endpoint.IP)-1] = 99

	// The live entry must be untouched: the original address still
	// refreshes instead of registering anew.
	if r.Touch(endpoint(50001), now) {
		t.Error("Endpoint mutation through the snapshot reached the registry")
	}

	fresh := r.Snapshot()
	if got := fresh[0].Endpoint.String(); got != "127.0.0.1:50001" {
		t.Errorf("Expected registry endpoint 127.0.0.1:50001, got %s", got)
	}
}

func TestRefreshAll(t *testing.T) {
	r := New(testLogger())
	base := time.Now()

	r.Touch(endpoint(50001), base.Add(-10*time.Second))
	r.Touch(endpoint(50002), base.Add(-10*time.Second))

	r.RefreshAll(base)

	if evicted := r.Evict(base.Add(time.Second), 4*time.Second); len(evicted) != 0 {
		t.Errorf("Expected refreshed clients to survive, evicted %d", len(evicted))
	}
}

func TestRestoreAssignsGracePeriod(t *testing.T) {
	r := New(testLogger())
	now := time.Now()

	restored := r.Restore([]PersistedClient{
		{Address: "127.0.0.1", Port: 50001},
		{Address: "10.0.0.7", Port: 50002},
	}, now)

	if restored != 2 {
		t.Fatalf("Expected 2 restored clients, got %d", restored)
	}

	for _, client := range r.Snapshot() {
		if !client.LastSeen.Equal(now) {
			t.Errorf("Expected restored client %s to have last seen %v, got %v",
				client.Endpoint, now, client.LastSeen)
		}
	}
}

func TestRestoreSkipsMalformedEntries(t *testing.T) {
	r := New(testLogger())
	now := time.Now()

	restored := r.Restore([]PersistedClient{
		{Address: "127.0.0.1", Port: 50001},
		{Address: "not-an-address", Port: 50002},
		{Address: "10.0.0.7", Port: 50003},
		{Address: "10.0.0.8", Port: 0},
	}, now)

	if restored != 2 {
		t.Errorf("Expected 2 valid clients restored, got %d", restored)
	}
}

func TestRestoreClearsExistingClients(t *testing.T) {
	r := New(testLogger())
	now := time.Now()

	r.Touch(endpoint(50001), now)
	r.Restore([]PersistedClient{{Address: "10.0.0.7", Port: 50002}}, now)

	snapshot := r.Snapshot()
	if len(snapshot) != 1 {
		t.Fatalf("Expected 1 client after restore, got %d", len(snapshot))
	}

	if snapshot[0].Endpoint.Port != 50002 {
		t.Errorf("Expected restore to replace prior clients, found port %d", snapshot[0].Endpoint.Port)
	}
}

func TestPersistRestoreRoundTrip(t *testing.T) {
	r := New(testLogger())
	base := time.Now().Add(-time.Minute)

	r.Touch(endpoint(50001), base)
	r.Touch(endpoint(50002), base)

	encoded, err := EncodeClients(r.Snapshot())
	if err != nil {
		t.Fatalf("EncodeClients failed: %v", err)
	}

	persisted, err := DecodeClients(encoded)
	if err != nil {
		t.Fatalf("DecodeClients failed: %v", err)
	}

	restoreTime := time.Now()
	fresh := New(testLogger())
	if restored := fresh.Restore(persisted, restoreTime); restored != 2 {
		t.Fatalf("Expected 2 clients after round trip, got %d", restored)
	}

	want := map[string]bool{"127.0.0.1:50001": true, "127.0.0.1:50002": true}
	for _, client := range fresh.Snapshot() {
		if !want[client.Endpoint.String()] {
			t.Errorf("Unexpected client %s after round trip", client.Endpoint)
		}
		// Historical timestamps are not preserved across the round trip.
		if !client.LastSeen.Equal(restoreTime) {
			t.Errorf("Expected last seen reset to restore time, got %v", client.LastSeen)
		}
	}
}

func TestPersistPreservesIPv6Zone(t *testing.T) {
	r := New(testLogger())
	now := time.Now()

	linkLocal := &net.UDPAddr{IP: net.ParseIP("fe80::1"), Port: 50001, Zone: "eth0"}
	r.Touch(linkLocal, now)

	encoded, err := EncodeClients(r.Snapshot())
	if err != nil {
		t.Fatalf("EncodeClients failed: %v", err)
	}

	persisted, err := DecodeClients(encoded)
	if err != nil {
		t.Fatalf("DecodeClients failed: %v", err)
	}
	if len(persisted) != 1 || persisted[0].Zone != "eth0" {
		t.Fatalf("Expected zone eth0 to persist, got %+v", persisted)
	}

	fresh := New(testLogger())
	fresh.Restore(persisted, now)

	restored := fresh.Snapshot()
	if len(restored) != 1 {
		t.Fatalf("Expected 1 restored client, got %d", len(restored))
	}
	if got := restored[0].Endpoint.String(); got != "[fe80::1%eth0]:50001" {
		t.Errorf("Expected restored endpoint [fe80::1%%eth0]:50001, got %s", got)
	}
}

func TestDecodeClientsRejectsGarbage(t *testing.T) {
	if _, err := DecodeClients("{not json"); err == nil {
		t.Fatal("Expected error decoding garbage, got nil")
	}
}
