package replication

// The wire messages below are ordinary Go structs serialized by the JSON
// codec in codec.go. There is no .proto file: see doc.go for why.

// TransferBackupRequest names the core a peer wants to stage an incoming
// snapshot for.
type TransferBackupRequest struct {
	MpuID  string `json:"mpu_id"`
	CoreID string `json:"core_id"`
}

// TransferBackupResponse carries the absolute local path the follower
// created (or recreated) for the incoming snapshot.
type TransferBackupResponse struct {
	Path string `json:"path"`
}

// ApplyBackupRequest names the core whose staged snapshot should be
// swapped in as the new live Data Store.
type ApplyBackupRequest struct {
	MpuID  string `json:"mpu_id"`
	CoreID string `json:"core_id"`
}

// ApplyBackupResponse is empty; its presence documents that apply_backup
// is a unary RPC with a response, not fire-and-forget.
type ApplyBackupResponse struct{}

// FileChunk is one message of the FileTransfer client-streaming RPC. One
// stream can carry several files: a chunk with Path and no Data opens the
// file at that path, the following chunks carry its raw bytes in Data, and
// an empty Data chunk closes it. The stream itself ends when the client
// closes its send side.
type FileChunk struct {
	Path string `json:"path,omitempty"`
	Data []byte `json:"data,omitempty"`
}

// FileTransferResponse is returned once the client closes the stream.
type FileTransferResponse struct {
	BytesWritten int64 `json:"bytes_written"`
}
