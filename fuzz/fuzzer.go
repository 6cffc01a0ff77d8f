package fuzzer

import (
	"fmt"
)

var Debug = false

type opCode byte

const (
	opAdd opCode = iota
	opAddSeen
	opRemove
	opRemoveSeen
	opLookup
	opLookupSeen
	opBuild
	opFlush
	opReload
	opMax
)

type op struct {
	code    opCode
	x, y, z uint32
	value   byte
}

func Parse(data []byte) (ops []op) {
	scratch := make([]byte, 5)

	for len(data) > 0 {
		clear(scratch)
		n := copy(scratch, data)
		data = data[n:]

		code := opCode(scratch[0] % byte(opMax))
		ops = append(ops, op{code, uint32(scratch[1]) % gridSide, uint32(scratch[2]) % gridSide, uint32(scratch[3]) % gridSide, scratch[4]})
	}
	return ops
}

func Fuzz(data []byte) int {
	if len(data) < 1 {
		return -1
	}

	tr := newCheckedTree(data[0] % (depth - 1))
	for _, op := range Parse(data[1:]) {
		switch op.code {
		case opAdd:
			tr.add(op.x, op.y, op.z, op.value)
		case opAddSeen:
			tr.addSeen(op.x, op.value)
		case opRemove:
			tr.remove(op.x, op.y, op.z)
		case opRemoveSeen:
			tr.removeSeen(op.x)
		case opLookup:
			tr.lookup(op.x, op.y, op.z)
		case opLookupSeen:
			tr.lookupSeen(op.x)
		case opBuild:
			tr.build()
		case opFlush:
			tr.flush()
		case opReload:
			tr.reload()
		default:
			panic("impossible")
		}
	}
	if Debug {
		fmt.Printf("checking\n")
	}
	tr.check()
	return 0
}
