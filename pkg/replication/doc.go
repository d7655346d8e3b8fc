// Package replication is the Replication Transport Adapter: a gRPC
// service that moves checkpoint snapshots from a primary core to a
// follower core and applies them there.
//
// There is no .proto file. The retrieval pack this module was built from
// did not include generated protobuf stubs for this domain, and protoc
// is unavailable in this environment, so service.go hand-writes the
// grpc.ServiceDesc that protoc-gen-go-grpc would otherwise emit, and
// codec.go registers a JSON encoding.Codec under content-subtype "json"
// in place of protobuf wire encoding. The RPC shapes (two unary calls,
// one client-streaming call) are exactly what a
// "service Replication { ... }" definition would produce.
//
// The three RPCs:
//
//   - TransferBackup asks a peer to stage an empty destination directory
//     for a given core's incoming snapshot and returns its path.
//   - FileTransfer streams the snapshot's files to that path: a
//     path-only FileChunk opens a file, data-bearing chunks append to
//     it, and an empty-Data chunk closes it. Client and server walk this
//     protocol in SendDirectory and Service.FileTransfer respectively.
//   - ApplyBackup asks the peer to swap the staged snapshot in as its
//     live Data Store.
//
// Dial uses insecure, plaintext transport credentials. Mutual TLS and
// request authentication are out of scope for this adapter; a production
// deployment would terminate this traffic behind a service mesh or add
// transport credentials to Dial.
//
// ReachabilityChecker is a cheap TCP pre-check run before a transfer is
// attempted, so a dead peer fails fast rather than stalling inside a gRPC
// dial timeout; ReachabilityStatus folds repeated probes with a
// consecutive-failure threshold to avoid flapping on a single dropped
// probe.
package replication
