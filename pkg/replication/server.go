package replication

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cuemby/ridgedb/pkg/log"
)

// Backend is what pkg/core's storage core satisfies to answer replication
// RPCs: staging an incoming snapshot and swapping it in. Where incoming
// file chunks land on disk is taken from the paths the chunks carry.
type Backend interface {
	// PrepareIncomingSnapshot stages an empty destination directory for
	// mpuID/coreID and returns its absolute path.
	PrepareIncomingSnapshot(mpuID, coreID string) (string, error)
	// CommitIncomingSnapshot swaps the staged snapshot in as the live
	// Data Store for mpuID/coreID.
	CommitIncomingSnapshot(mpuID, coreID string) error
}

// Service implements Server against a Backend.
type Service struct {
	backend Backend
}

// NewService builds a Server backed by backend.
func NewService(backend Backend) *Service {
	return &Service{backend: backend}
}

func (s *Service) TransferBackup(ctx context.Context, req *TransferBackupRequest) (*TransferBackupResponse, error) {
	path, err := s.backend.PrepareIncomingSnapshot(req.MpuID, req.CoreID)
	if err != nil {
		return nil, fmt.Errorf("replication: prepare incoming snapshot for %s/%s: %w", req.MpuID, req.CoreID, err)
	}
	return &TransferBackupResponse{Path: path}, nil
}

func (s *Service) ApplyBackup(ctx context.Context, req *ApplyBackupRequest) (*ApplyBackupResponse, error) {
	if err := s.backend.CommitIncomingSnapshot(req.MpuID, req.CoreID); err != nil {
		return nil, fmt.Errorf("replication: commit incoming snapshot for %s/%s: %w", req.MpuID, req.CoreID, err)
	}
	return &ApplyBackupResponse{}, nil
}

// FileTransfer writes every chunk it receives to disk under the path
// carried by each file's header chunk, per the wire protocol documented
// on FileChunk: a path-only chunk opens a file, data chunks append to it,
// and an empty-Data chunk closes it.
func (s *Service) FileTransfer(stream Replication_FileTransferServer) error {
	logger := log.WithComponent("replication")

	var current *os.File
	var currentPath string
	var total int64

	closeCurrent := func() error {
		if current == nil {
			return nil
		}
		err := current.Close()
		current = nil
		return err
	}
	defer closeCurrent()

	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			if closeErr := closeCurrent(); closeErr != nil {
				return closeErr
			}
			return stream.SendAndClose(&FileTransferResponse{BytesWritten: total})
		}
		if err != nil {
			return fmt.Errorf("replication: recv file chunk: %w", err)
		}

		if chunk.Path != "" {
			if err := closeCurrent(); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(chunk.Path), 0o755); err != nil {
				return fmt.Errorf("replication: create directory for %s: %w", chunk.Path, err)
			}
			f, err := os.Create(chunk.Path)
			if err != nil {
				return fmt.Errorf("replication: create %s: %w", chunk.Path, err)
			}
			current = f
			currentPath = chunk.Path
			continue
		}

		if len(chunk.Data) == 0 {
			if err := closeCurrent(); err != nil {
				return err
			}
			continue
		}

		if current == nil {
			return fmt.Errorf("replication: data chunk received with no open file")
		}
		n, err := current.Write(chunk.Data)
		if err != nil {
			return fmt.Errorf("replication: write %s: %w", currentPath, err)
		}
		total += int64(n)
		logger.Debug().Str("path", currentPath).Int("bytes", n).Msg("wrote chunk")
	}
}
