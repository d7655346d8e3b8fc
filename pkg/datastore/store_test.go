package datastore

import (
	"testing"
	"time"

	"github.com/cuemby/ridgedb/pkg/types"
)

func openTestStore(t *testing.T, ttlSeconds int64) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), ttlSeconds, types.EngineOptions{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestWriteBatchAtomicPutAndMeta(t *testing.T) {
	s := openTestStore(t, 0)

	b := NewBatch()
	b.Put(NamespaceData, []byte("k1"), []byte("v1"))
	b.Put(NamespaceData, []byte("k2"), []byte("v2"))
	b.Put(NamespaceMeta, types.ClockKey, types.EncodeClock(2))

	if err := s.WriteBatch(b); err != nil {
		t.Fatalf("WriteBatch() error = %v", err)
	}

	v, ok, err := s.Get(NamespaceData, []byte("k1"))
	if err != nil || !ok || string(v) != "v1" {
		t.Errorf("Get(k1) = (%q, %v, %v), want (\"v1\", true, nil)", v, ok, err)
	}

	clockBytes, ok, err := s.Get(NamespaceMeta, types.ClockKey)
	if err != nil || !ok {
		t.Fatalf("Get(meta, CLOCK_K) = (_, %v, %v)", ok, err)
	}
	clocked, err := types.DecodeClockTTL(clockBytes)
	if err != nil || clocked != 2 {
		t.Errorf("clocked = (%d, %v), want (2, nil)", clocked, err)
	}
}

func TestScanIsSnapshotIsolated(t *testing.T) {
	s := openTestStore(t, 0)

	b := NewBatch()
	b.Put(NamespaceData, []byte("a"), []byte("1"))
	b.Put(NamespaceData, []byte("b"), []byte("2"))
	if err := s.WriteBatch(b); err != nil {
		t.Fatalf("WriteBatch() error = %v", err)
	}

	it, err := s.Scan(NamespaceData, nil, nil, true, true)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	defer func() { _ = it.Close() }()

	// Mutate after the iterator was opened; the scan must not observe it.
	b2 := NewBatch()
	b2.Put(NamespaceData, []byte("c"), []byte("3"))
	if err := s.WriteBatch(b2); err != nil {
		t.Fatalf("second WriteBatch() error = %v", err)
	}

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.KV().Key))
	}

	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("scan keys = %v, want [a b]", keys)
	}
}

func TestTTLExpiryPreservesClockedOnMeta(t *testing.T) {
	s := openTestStore(t, 1)

	b := NewBatch()
	b.Put(NamespaceData, []byte("k"), []byte("v"))
	b.Put(NamespaceMeta, types.ClockKey, types.EncodeClockTTL(5, time.Now().UnixNano()))
	if err := s.WriteBatch(b); err != nil {
		t.Fatalf("WriteBatch() error = %v", err)
	}

	time.Sleep(1500 * time.Millisecond)
	s.ForceCompaction()

	if _, ok, _ := s.Get(NamespaceData, []byte("k")); ok {
		t.Error("Get(data, k) found a value after TTL expiry + compaction")
	}

	clockBytes, ok, err := s.Get(NamespaceMeta, types.ClockKey)
	if err != nil || !ok {
		t.Fatalf("Get(meta, CLOCK_K) = (_, %v, %v)", ok, err)
	}
	clocked, err := types.DecodeClockTTL(clockBytes)
	if err != nil || clocked != 5 {
		t.Errorf("clocked after compaction = (%d, %v), want (5, nil)", clocked, err)
	}
}

func TestForceFlushInvokesHandler(t *testing.T) {
	s := openTestStore(t, 0)

	called := make(chan Namespace, 1)
	s.SetEventHandler(EventHandler{
		OnFlushCompleted: func(ns Namespace) { called <- ns },
	})

	s.ForceFlush()

	select {
	case ns := <-called:
		if ns != NamespaceData {
			t.Errorf("OnFlushCompleted ns = %v, want data", ns)
		}
	case <-time.After(time.Second):
		t.Fatal("OnFlushCompleted was not called")
	}
}

func TestApproximateCount(t *testing.T) {
	s := openTestStore(t, 0)

	b := NewBatch()
	b.Put(NamespaceData, []byte("a"), []byte("1"))
	b.Put(NamespaceData, []byte("b"), []byte("2"))
	if err := s.WriteBatch(b); err != nil {
		t.Fatalf("WriteBatch() error = %v", err)
	}

	count, err := s.ApproximateCount(NamespaceData)
	if err != nil {
		t.Fatalf("ApproximateCount() error = %v", err)
	}
	if count != 2 {
		t.Errorf("ApproximateCount() = %d, want 2", count)
	}
}
