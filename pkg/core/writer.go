package core

import (
	"github.com/cuemby/ridgedb/pkg/datastore"
	"github.com/cuemby/ridgedb/pkg/types"
)

// Writer is a write-batch builder scoped to one Instruction. Put/Delete
// calls accumulate against the data namespace; Flush augments the batch
// with the new clocked value and commits it atomically.
type Writer struct {
	core        *Core
	instruction types.Instruction
	batch       *datastore.Batch
}

// Put stages a put against the data namespace.
func (w *Writer) Put(key, value []byte) {
	w.batch.Put(datastore.NamespaceData, key, value)
}

// Delete stages a delete against the data namespace.
func (w *Writer) Delete(key []byte) {
	w.batch.Delete(datastore.NamespaceData, key)
}

// Instruction returns the instruction this writer is scoped to.
func (w *Writer) Instruction() types.Instruction {
	return w.instruction
}

// Len reports the number of data-namespace operations staged so far (not
// counting the meta clock entry Flush adds).
func (w *Writer) Len() int {
	return w.batch.Len()
}
