package replication

import (
	"context"

	"google.golang.org/grpc"
)

// serviceName is the fully-qualified gRPC service name, matching what
// protoc-gen-go-grpc would derive from a "service Replication" definition
// in a replication.proto this package stands in for.
const serviceName = "ridgedb.replication.Replication"

// Server is the interface a replication backend implements; TransferBackup
// and ApplyBackup correspond to the RPCs of the same name, FileTransfer to
// the one-shot file-streaming primitive.
type Server interface {
	TransferBackup(context.Context, *TransferBackupRequest) (*TransferBackupResponse, error)
	ApplyBackup(context.Context, *ApplyBackupRequest) (*ApplyBackupResponse, error)
	FileTransfer(Replication_FileTransferServer) error
}

// Replication_FileTransferServer is the server-side handle for the
// client-streaming FileTransfer RPC: the server Recvs a sequence of
// FileChunks and SendAndCloses a single FileTransferResponse.
type Replication_FileTransferServer interface {
	Recv() (*FileChunk, error)
	SendAndClose(*FileTransferResponse) error
	grpc.ServerStream
}

type replicationFileTransferServer struct {
	grpc.ServerStream
}

func (s *replicationFileTransferServer) Recv() (*FileChunk, error) {
	m := new(FileChunk)
	if err := s.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *replicationFileTransferServer) SendAndClose(resp *FileTransferResponse) error {
	return s.ServerStream.SendMsg(resp)
}

func transferBackupHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(TransferBackupRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).TransferBackup(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/TransferBackup"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).TransferBackup(ctx, req.(*TransferBackupRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func applyBackupHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(ApplyBackupRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).ApplyBackup(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/ApplyBackup"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).ApplyBackup(ctx, req.(*ApplyBackupRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func fileTransferHandler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(Server).FileTransfer(&replicationFileTransferServer{stream})
}

// serviceDesc is the hand-written equivalent of what protoc-gen-go-grpc
// emits for a service with two unary RPCs and one client-streaming RPC.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "TransferBackup", Handler: transferBackupHandler},
		{MethodName: "ApplyBackup", Handler: applyBackupHandler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "FileTransfer",
			Handler:       fileTransferHandler,
			ClientStreams: true,
		},
	},
	Metadata: "replication.proto",
}

// RegisterServer registers srv with s under the Replication service.
func RegisterServer(s *grpc.Server, srv Server) {
	s.RegisterService(&serviceDesc, srv)
}
