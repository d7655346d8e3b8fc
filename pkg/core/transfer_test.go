package core

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/cuemby/ridgedb/pkg/checkpoint"
	"github.com/cuemby/ridgedb/pkg/replication"
	"github.com/cuemby/ridgedb/pkg/types"
	"google.golang.org/grpc"
)

func startFollowerServer(t *testing.T, follower *Core) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := grpc.NewServer()
	replication.RegisterServer(s, replication.NewService(follower))
	go s.Serve(lis)
	t.Cleanup(s.Stop)
	return lis.Addr().String()
}

// Scenario 3: the primary puts keys at clocks 1..N, backs up, transfers
// to a fresh follower; after apply_backup the follower's clocked() equals
// N and its scan matches the primary byte-for-byte.
func TestScenarioTransferToReplicatesFollowerExactly(t *testing.T) {
	primaryCfg := types.DefaultConfig(t.TempDir())
	primary, err := Open(primaryCfg, newTestIdentity("core-0"))
	if err != nil {
		t.Fatalf("Open primary: %v", err)
	}
	defer primary.Destroy()
	if err := primary.ApplyRoleEvent(types.RoleEvent{Type: types.BecamePrimary}); err != nil {
		t.Fatalf("ApplyRoleEvent: %v", err)
	}

	followerIdentity := newTestIdentity("core-0")
	followerCfg := types.DefaultConfig(t.TempDir())
	follower, err := Open(followerCfg, followerIdentity)
	if err != nil {
		t.Fatalf("Open follower: %v", err)
	}
	defer follower.Destroy()

	addr := startFollowerServer(t, follower)

	const n = 20
	for clock := uint64(1); clock <= n; clock++ {
		putAt(t, primary, clock, []byte(fmt.Sprintf("k%d", clock)), []byte(fmt.Sprintf("v%d", clock)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	target := types.CoreIdentity{
		MpuID:           followerIdentity.MpuID,
		CoreID:          followerIdentity.CoreID,
		NetworkLocation: addr,
	}
	if err := primary.TransferTo(ctx, target); err != nil {
		t.Fatalf("TransferTo: %v", err)
	}

	followerClocked, err := follower.Clocked()
	if err != nil || followerClocked != n {
		t.Fatalf("follower Clocked() = %d, %v; want %d, nil", followerClocked, err, n)
	}

	primaryReader, err := primary.Reader()
	if err != nil {
		t.Fatalf("primary Reader: %v", err)
	}
	followerReader, err := follower.Reader()
	if err != nil {
		t.Fatalf("follower Reader: %v", err)
	}
	for clock := uint64(1); clock <= n; clock++ {
		key := []byte(fmt.Sprintf("k%d", clock))
		want, ok, err := primaryReader.Get(key)
		if err != nil || !ok {
			t.Fatalf("primary missing key %s", key)
		}
		got, ok, err := followerReader.Get(key)
		if err != nil || !ok {
			t.Fatalf("follower missing key %s after transfer", key)
		}
		if string(got) != string(want) {
			t.Fatalf("follower[%s] = %q, want %q", key, got, want)
		}
	}

	// P6: apply_backup applied twice fails cleanly the second time and
	// leaves the first call's result intact.
	if err := follower.CommitIncomingSnapshot(followerIdentity.MpuID, followerIdentity.CoreID); err == nil {
		t.Fatal("second CommitIncomingSnapshot should fail (remote-checkpoint already consumed)")
	}
	followerClockedAfter, err := follower.Clocked()
	if err != nil || followerClockedAfter != n {
		t.Fatalf("follower Clocked() after failed second apply_backup = %d, %v; want %d, nil", followerClockedAfter, err, n)
	}
}

// P7: while a transfer is in progress the pinned checkpoint survives a
// concurrent prune(keep=0).
func TestPinnedCheckpointSurvivesPruneDuringTransfer(t *testing.T) {
	c := newTestCore(t, 0)
	putAt(t, c, 1, []byte("k"), []byte("v"))

	if err := c.backup(); err != nil {
		t.Fatalf("backup: %v", err)
	}
	name, err := c.checkpoints.Latest(checkpoint.LocalPrefix)
	if err != nil || name == "" {
		t.Fatalf("Latest: %q, %v", name, err)
	}

	c.checkpoints.Pin(name)
	if err := c.checkpoints.Prune(0); err != nil {
		t.Fatalf("Prune: %v", err)
	}

	names, err := c.checkpoints.List(checkpoint.LocalPrefix)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	found := false
	for _, n := range names {
		if n == name {
			found = true
		}
	}
	if !found {
		t.Fatalf("pinned checkpoint %s was pruned; survivors: %v", name, names)
	}
	c.checkpoints.Unpin(name)
}
