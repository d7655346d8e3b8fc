package replication

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc"
)

type fakeBackend struct {
	stagingDir string
	committed  map[string]bool
}

func newFakeBackend(t *testing.T) *fakeBackend {
	return &fakeBackend{
		stagingDir: t.TempDir(),
		committed:  map[string]bool{},
	}
}

func (b *fakeBackend) PrepareIncomingSnapshot(mpuID, coreID string) (string, error) {
	dir := filepath.Join(b.stagingDir, mpuID, coreID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func (b *fakeBackend) CommitIncomingSnapshot(mpuID, coreID string) error {
	b.committed[mpuID+"/"+coreID] = true
	return nil
}

func startTestServer(t *testing.T, backend Backend) (addr string, stop func()) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := grpc.NewServer()
	RegisterServer(s, NewService(backend))
	go s.Serve(lis)
	return lis.Addr().String(), s.Stop
}

func TestTransferBackupStagesDirectory(t *testing.T) {
	backend := newFakeBackend(t)
	addr, stop := startTestServer(t, backend)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := Dial(ctx, addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	resp, err := client.TransferBackup(ctx, &TransferBackupRequest{MpuID: "mpu-1", CoreID: "core-0"})
	if err != nil {
		t.Fatalf("TransferBackup: %v", err)
	}
	if _, err := os.Stat(resp.Path); err != nil {
		t.Errorf("staged directory %s not created: %v", resp.Path, err)
	}
}

func TestApplyBackupCommits(t *testing.T) {
	backend := newFakeBackend(t)
	addr, stop := startTestServer(t, backend)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := Dial(ctx, addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	if _, err := client.ApplyBackup(ctx, &ApplyBackupRequest{MpuID: "mpu-1", CoreID: "core-0"}); err != nil {
		t.Fatalf("ApplyBackup: %v", err)
	}
	if !backend.committed["mpu-1/core-0"] {
		t.Error("expected backend to record commit for mpu-1/core-0")
	}
}

func TestSendDirectoryReconstructsFiles(t *testing.T) {
	backend := newFakeBackend(t)
	addr, stop := startTestServer(t, backend)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := Dial(ctx, addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	resp, err := client.TransferBackup(ctx, &TransferBackupRequest{MpuID: "mpu-1", CoreID: "core-0"})
	if err != nil {
		t.Fatalf("TransferBackup: %v", err)
	}

	srcDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "data.db"), []byte("hello checkpoint"), 0o644); err != nil {
		t.Fatalf("write source file: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(srcDir, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir sub: %v", err)
	}
	if err := os.WriteFile(filepath.Join(srcDir, "sub", "nested.db"), []byte("nested bytes"), 0o644); err != nil {
		t.Fatalf("write nested file: %v", err)
	}

	transferResp, err := client.SendDirectory(ctx, srcDir, resp.Path)
	if err != nil {
		t.Fatalf("SendDirectory: %v", err)
	}
	wantBytes := int64(len("hello checkpoint") + len("nested bytes"))
	if transferResp.BytesWritten != wantBytes {
		t.Errorf("BytesWritten = %d, want %d", transferResp.BytesWritten, wantBytes)
	}

	got, err := os.ReadFile(filepath.Join(resp.Path, "data.db"))
	if err != nil {
		t.Fatalf("read reconstructed data.db: %v", err)
	}
	if string(got) != "hello checkpoint" {
		t.Errorf("data.db content = %q, want %q", got, "hello checkpoint")
	}

	gotNested, err := os.ReadFile(filepath.Join(resp.Path, "sub", "nested.db"))
	if err != nil {
		t.Fatalf("read reconstructed sub/nested.db: %v", err)
	}
	if string(gotNested) != "nested bytes" {
		t.Errorf("sub/nested.db content = %q, want %q", gotNested, "nested bytes")
	}
}

func TestReachabilityCheckerDetectsClosedPort(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := lis.Addr().String()
	lis.Close()

	checker := NewReachabilityChecker(addr)
	checker.Timeout = 200 * time.Millisecond
	result := checker.Check(context.Background())
	if result.Healthy {
		t.Error("expected closed port to be unreachable")
	}
}

func TestReachabilityStatusRequiresConsecutiveFailures(t *testing.T) {
	status := NewReachabilityStatus()
	ok := ReachabilityResult{Healthy: true}
	bad := ReachabilityResult{Healthy: false}

	status.Update(bad, 3)
	if !status.Healthy() {
		t.Error("single failure should not flip status unhealthy with threshold 3")
	}
	status.Update(bad, 3)
	status.Update(bad, 3)
	if status.Healthy() {
		t.Error("three consecutive failures should flip status unhealthy")
	}
	status.Update(ok, 3)
	if !status.Healthy() {
		t.Error("a single success should recover status")
	}
}
