package voxtree

import (
	"fmt"

	"github.com/openvoxel/go-voxtree/vcurve"
	"golang.org/x/xerrors"
)

// MaxSliceSide bounds the edge length of a Slice's cube.
const MaxSliceSide = 1024

// Slice describes the occupied voxels of one cubical region at one level,
// ahead of being compiled into Blocks. Positions are Morton codes relative
// to the cube. Child Slices describe the next level for subregions of the
// cube and may differ in size.
type Slice struct {
	Level uint8
	Side  uint32
	// ParentVcurveBegin is the global code, at Level-1, of the cell holding
	// the cube's first voxel.
	ParentVcurveBegin uint64

	positions []uint64
	attrs     *Attributes

	parent   *Slice
	children []*Slice
}

// NewSlice returns an empty Slice. The cube must be aligned to its own size
// and fit inside the level's grid.
func NewSlice(level uint8, side uint32, parentVcurveBegin uint64) (*Slice, error) {
	s := &Slice{Level: level, Side: side, ParentVcurveBegin: parentVcurveBegin}
	if err := s.checkCube(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Slice) checkCube() error {
	if s.Level < 1 || s.Level > vcurve.MaxLevel {
		return fmt.Errorf("slice level %d out of range [1, %d]", s.Level, vcurve.MaxLevel)
	}
	depth, ok := vcurve.Log2(s.Side)
	if !ok || s.Side < 2 || s.Side > MaxSliceSide {
		return fmt.Errorf("slice side %d must be a power of two in [2, %d]", s.Side, MaxSliceSide)
	}
	if depth > s.Level {
		return xerrors.Errorf("side %d exceeds the grid at level %d: %w", s.Side, s.Level, ErrOutOfCube)
	}
	if s.Begin()%vcurve.Volume(depth) != 0 {
		return xerrors.Errorf("cube at %d is not aligned to side %d: %w", s.Begin(), s.Side, ErrOutOfCube)
	}
	if s.Begin()>>(3*uint64(depth)) >= vcurve.Volume(s.Level-depth) {
		return xerrors.Errorf("cube at %d outside level %d: %w", s.Begin(), s.Level, ErrOutOfCube)
	}
	return nil
}

// depth is log2 of the side.
func (s *Slice) depth() uint8 {
	d, _ := vcurve.Log2(s.Side)
	return d
}

// Begin is the global code of the cube's first voxel.
func (s *Slice) Begin() uint64 { return s.ParentVcurveBegin << 3 }

// Range is the span of global codes the cube covers at Level.
func (s *Slice) Range() vcurve.Range {
	return vcurve.Range{Begin: s.Begin(), End: s.Begin() + vcurve.Volume(s.depth())}
}

// CubeLevel and CubeMorton name the single node whose cell is the cube.
func (s *Slice) CubeLevel() uint8 { return s.Level - s.depth() }

func (s *Slice) CubeMorton() uint64 { return vcurve.Ancestor(s.Begin(), s.Level, s.CubeLevel()) }

// Append adds a position relative to the cube.
func (s *Slice) Append(pos uint64) error {
	if pos >= vcurve.Volume(s.depth()) {
		return xerrors.Errorf("position %d, side %d: %w", pos, s.Side, ErrOutOfCube)
	}
	if n := len(s.positions); n > 0 && s.positions[n-1] >= pos {
		return xerrors.Errorf("position %d after %d: %w", pos, s.positions[n-1], ErrUnordered)
	}
	s.positions = append(s.positions, pos)
	return nil
}

// AppendGlobal adds a position given as a global code at Level.
func (s *Slice) AppendGlobal(code uint64) error {
	if !s.Range().ContainsCode(code) {
		return xerrors.Errorf("code %d not in %v: %w", code, s.Range(), ErrOutOfCube)
	}
	return s.Append(code - s.Begin())
}

// Positions returns the relative positions. The slice must not be modified.
func (s *Slice) Positions() []uint64 { return s.positions }

func (s *Slice) Len() int { return len(s.positions) }

// Global returns the i'th position as a global code at Level.
func (s *Slice) Global(i int) uint64 { return s.Begin() + s.positions[i] }

func (s *Slice) Attributes() *Attributes { return s.attrs }

// SetAttributes attaches the per voxel payload. It must describe exactly one
// record per position by the time the Slice is inserted.
func (s *Slice) SetAttributes(a *Attributes) { s.attrs = a }

func (s *Slice) Parent() *Slice { return s.parent }

func (s *Slice) Children() []*Slice { return s.children }

// AddChild links c as the next child Slice. Children must be added in
// Morton order, must not overlap and must lie inside s.
func (s *Slice) AddChild(c *Slice) error {
	if c.parent != nil {
		return fmt.Errorf("slice already has a parent")
	}
	if c.Level != s.Level+1 {
		return fmt.Errorf("child at level %d below slice at level %d", c.Level, s.Level)
	}
	outer := vcurve.Range{Begin: s.Range().Begin << 3, End: s.Range().End << 3}
	if !outer.Contains(c.Range()) {
		return xerrors.Errorf("child cube %v not in %v: %w", c.Range(), outer, ErrOutOfCube)
	}
	if n := len(s.children); n > 0 && s.children[n-1].Range().End > c.Range().Begin {
		return xerrors.Errorf("child cube %v after %v: %w", c.Range(), s.children[n-1].Range(), ErrOverlap)
	}
	c.parent = s
	s.children = append(s.children, c)
	return nil
}

// Release drops the links between s and its descendants.
func (s *Slice) Release() {
	for _, c := range s.children {
		c.Release()
		c.parent = nil
	}
	s.children = nil
	s.positions = nil
	s.attrs = nil
}

func (s *Slice) String() string {
	return fmt.Sprintf("slice level=%d side=%d begin=%d voxels=%d children=%d", s.Level, s.Side, s.Begin(), len(s.positions), len(s.children))
}

// ElementType is the scalar type of one attribute component.
type ElementType uint8

const (
	Uint8 ElementType = iota + 1
	Uint16
	Uint32
	Uint64
	Float32
	Float64
)

// Size is the width of one component in bytes.
func (t ElementType) Size() uint32 {
	switch t {
	case Uint8:
		return 1
	case Uint16:
		return 2
	case Uint32, Float32:
		return 4
	case Uint64, Float64:
		return 8
	default:
		return 0
	}
}

func (t ElementType) String() string {
	switch t {
	case Uint8:
		return "u8"
	case Uint16:
		return "u16"
	case Uint32:
		return "u32"
	case Uint64:
		return "u64"
	case Float32:
		return "f32"
	case Float64:
		return "f64"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Element is one named attribute with a fixed number of bytes per voxel.
type Element struct {
	Name     string
	Type     ElementType
	Semantic string
	Stride   uint32
}

// Schema lists the attributes carried per voxel.
type Schema []Element

// Validate checks every element has a known type and a stride that is a
// whole number of components.
func (s Schema) Validate() error {
	seen := make(map[string]struct{}, len(s))
	for _, e := range s {
		if e.Type.Size() == 0 {
			return fmt.Errorf("element %q: unknown type %d", e.Name, e.Type)
		}
		if e.Stride == 0 || e.Stride%e.Type.Size() != 0 {
			return fmt.Errorf("element %q: stride %d is not a multiple of %s", e.Name, e.Stride, e.Type)
		}
		if _, ok := seen[e.Name]; ok {
			return fmt.Errorf("element %q declared twice", e.Name)
		}
		seen[e.Name] = struct{}{}
	}
	return nil
}

// Stride is the number of bytes one voxel carries across all elements.
func (s Schema) Stride() uint32 {
	var n uint32
	for _, e := range s {
		n += e.Stride
	}
	return n
}

// Attributes holds one buffer per schema element, each count*stride long.
type Attributes struct {
	Schema  Schema
	Buffers [][]byte
}

func NewAttributes(schema Schema) *Attributes {
	return &Attributes{Schema: schema, Buffers: make([][]byte, len(schema))}
}

// Append adds one voxel's record, one value per element.
func (a *Attributes) Append(values ...[]byte) error {
	if len(values) != len(a.Schema) {
		return fmt.Errorf("record has %d values, schema has %d elements", len(values), len(a.Schema))
	}
	for i, v := range values {
		if uint32(len(v)) != a.Schema[i].Stride {
			return fmt.Errorf("element %q: value of %d bytes, stride is %d", a.Schema[i].Name, len(v), a.Schema[i].Stride)
		}
	}
	for i, v := range values {
		a.Buffers[i] = append(a.Buffers[i], v...)
	}
	return nil
}

// Count returns the number of records, or an error if the buffers disagree.
func (a *Attributes) Count() (int, error) {
	if len(a.Buffers) != len(a.Schema) {
		return 0, fmt.Errorf("%d buffers for %d elements", len(a.Buffers), len(a.Schema))
	}
	n := -1
	for i, e := range a.Schema {
		if uint32(len(a.Buffers[i]))%e.Stride != 0 {
			return 0, fmt.Errorf("element %q: buffer of %d bytes is not a multiple of stride %d", e.Name, len(a.Buffers[i]), e.Stride)
		}
		c := len(a.Buffers[i]) / int(e.Stride)
		if n >= 0 && c != n {
			return 0, fmt.Errorf("element %q holds %d records, expected %d", e.Name, c, n)
		}
		n = c
	}
	return max(n, 0), nil
}

// Value returns element e of record i.
func (a *Attributes) Value(e, i int) []byte {
	st := int(a.Schema[e].Stride)
	return a.Buffers[e][i*st : (i+1)*st]
}
