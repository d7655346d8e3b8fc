package core

import "github.com/cuemby/ridgedb/pkg/datastore"

// Reader is a snapshot-isolated read handle over the data namespace. It
// requires no locking: reads bypass the control-plane serializer and go
// straight to the Data Store.
type Reader struct {
	store *datastore.Store
}

// Get returns the value for key, or (nil, false) if absent.
func (r *Reader) Get(key []byte) ([]byte, bool, error) {
	return r.store.Get(datastore.NamespaceData, key)
}

// Scan opens a point-in-time iterator over [lo, hi) in the data
// namespace, optionally including either endpoint. The returned Iterator
// must be closed by the caller.
func (r *Reader) Scan(lo, hi []byte, includeLo, includeHi bool) (*datastore.Iterator, error) {
	return r.store.Scan(datastore.NamespaceData, lo, hi, includeLo, includeHi)
}
