package main

import (
	cbg "github.com/whyrusleeping/cbor-gen"

	"github.com/openvoxel/go-voxtree/internal"
)

func main() {
	if err := cbg.WriteTupleEncodersToFile("internal/cbor_gen.go", "internal",
		internal.Manifest{},
		internal.BlockRecord{},
		internal.AttrRecord{},
		internal.Extent{},
		internal.Slice{},
		internal.ChildLink{},
		internal.Element{},
	); err != nil {
		panic(err)
	}
}
