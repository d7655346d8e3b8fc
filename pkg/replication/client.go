package replication

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Replication_FileTransferClient is the client-side handle for the
// FileTransfer RPC: the caller Sends a sequence of FileChunks and
// CloseAndRecvs a single FileTransferResponse.
type Replication_FileTransferClient interface {
	Send(*FileChunk) error
	CloseAndRecv() (*FileTransferResponse, error)
	grpc.ClientStream
}

type replicationFileTransferClient struct {
	grpc.ClientStream
}

func (c *replicationFileTransferClient) Send(chunk *FileChunk) error {
	return c.ClientStream.SendMsg(chunk)
}

func (c *replicationFileTransferClient) CloseAndRecv() (*FileTransferResponse, error) {
	if err := c.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	resp := new(FileTransferResponse)
	if err := c.ClientStream.RecvMsg(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Client is a thin wrapper over a grpc.ClientConn that speaks the
// Replication service via the JSON codec registered in codec.go.
type Client struct {
	cc *grpc.ClientConn
}

// NewClient wraps an already-dialed connection. Dial establishes one with
// the right codec and transport options for most callers.
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc}
}

// Dial connects to a peer's replication endpoint over plaintext gRPC.
// mTLS is out of scope for this adapter; see doc.go.
func Dial(ctx context.Context, target string) (*Client, error) {
	cc, err := grpc.DialContext(ctx, target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("replication: dial %s: %w", target, err)
	}
	return &Client{cc: cc}, nil
}

// Close tears down the underlying connection.
func (c *Client) Close() error {
	return c.cc.Close()
}

// TransferBackup asks the peer to stage a snapshot destination for the
// named core and returns the local path it prepared.
func (c *Client) TransferBackup(ctx context.Context, req *TransferBackupRequest) (*TransferBackupResponse, error) {
	resp := new(TransferBackupResponse)
	err := c.cc.Invoke(ctx, "/"+serviceName+"/TransferBackup", req, resp)
	if err != nil {
		return nil, fmt.Errorf("replication: TransferBackup: %w", err)
	}
	return resp, nil
}

// ApplyBackup asks the peer to swap its staged snapshot in as the live
// Data Store for the named core.
func (c *Client) ApplyBackup(ctx context.Context, req *ApplyBackupRequest) (*ApplyBackupResponse, error) {
	resp := new(ApplyBackupResponse)
	err := c.cc.Invoke(ctx, "/"+serviceName+"/ApplyBackup", req, resp)
	if err != nil {
		return nil, fmt.Errorf("replication: ApplyBackup: %w", err)
	}
	return resp, nil
}

func (c *Client) fileTransfer(ctx context.Context) (Replication_FileTransferClient, error) {
	desc := &grpc.StreamDesc{StreamName: "FileTransfer", ClientStreams: true}
	stream, err := c.cc.NewStream(ctx, desc, "/"+serviceName+"/FileTransfer")
	if err != nil {
		return nil, fmt.Errorf("replication: open FileTransfer stream: %w", err)
	}
	return &replicationFileTransferClient{stream}, nil
}

// SendDirectory streams every regular file under localDir to the peer as
// a sequence of path-then-data chunks, one path per file, and returns the
// peer's reported byte count. destPath is the root directory name the
// peer should reconstruct files under; it need not match localDir.
func (c *Client) SendDirectory(ctx context.Context, localDir, destPath string) (*FileTransferResponse, error) {
	stream, err := c.fileTransfer(ctx)
	if err != nil {
		return nil, err
	}

	err = filepath.Walk(localDir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(localDir, path)
		if err != nil {
			return err
		}
		remotePath := filepath.Join(destPath, rel)
		if err := stream.Send(&FileChunk{Path: remotePath}); err != nil {
			return fmt.Errorf("replication: send path header for %s: %w", rel, err)
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		buf := make([]byte, 64*1024)
		for {
			n, readErr := f.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				if err := stream.Send(&FileChunk{Data: chunk}); err != nil {
					return fmt.Errorf("replication: send data for %s: %w", rel, err)
				}
			}
			if readErr == io.EOF {
				break
			}
			if readErr != nil {
				return readErr
			}
		}
		return stream.Send(&FileChunk{Data: []byte{}})
	})
	if err != nil {
		return nil, err
	}

	resp, err := stream.CloseAndRecv()
	if err != nil {
		return nil, fmt.Errorf("replication: close FileTransfer stream: %w", err)
	}
	return resp, nil
}
