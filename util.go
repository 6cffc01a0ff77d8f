package voxtree

import (
	"bytes"
	"sync"
)

var bufferPool sync.Pool = sync.Pool{
	New: func() any {
		return bytes.NewBuffer(nil)
	},
}

// packRecords gathers the attribute records of the voxels at idx into one
// record, element by element.
func packRecords(a *Attributes, idx []int) []byte {
	if a == nil || len(idx) == 0 || len(a.Schema) == 0 {
		return nil
	}
	// Temporary location to put values. We'll copy them to an exact-sized buffer when done.
	buf := bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		bufferPool.Put(buf)
	}()

	for e := range a.Schema {
		for _, i := range idx {
			buf.Write(a.Value(e, i))
		}
	}

	// Copy to shrink the allocation.
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out
}
