package pattern

// Node is one element of a parsed pattern tree. Trees are immutable after
// parsing; queries never mutate them.
type Node interface {
	nodeID() int
}

// LeafNode is a single slot: a note, an offset from the root, or a rest.
type LeafNode struct {
	id  int
	val Value
}

// SeqNode subdivides its slot among its children proportionally by weight.
type SeqNode struct {
	id       int
	children []Node
	weights  []Rat
}

// StackNode plays all children over the same slot (polyphony).
type StackNode struct {
	id       int
	children []Node
}

// AltNode plays one branch per cycle, round-robin weighted by whole cycles.
type AltNode struct {
	id       int
	branches []Node
	weights  []int64
}

// FastNode compresses its child in time by factor, yielding factor
// repetitions per cycle.
type FastNode struct {
	id     int
	factor Rat
	child  Node
}

// SlowNode stretches its child in time by factor.
type SlowNode struct {
	id     int
	factor Rat
	child  Node
}

// DegradeNode drops each of its child's events with probability prob,
// deterministically per cycle.
type DegradeNode struct {
	id    int
	prob  float64
	child Node
}

func (n *LeafNode) nodeID() int    { return n.id }
func (n *SeqNode) nodeID() int     { return n.id }
func (n *StackNode) nodeID() int   { return n.id }
func (n *AltNode) nodeID() int     { return n.id }
func (n *FastNode) nodeID() int    { return n.id }
func (n *SlowNode) nodeID() int    { return n.id }
func (n *DegradeNode) nodeID() int { return n.id }

// ValueKind discriminates leaf values.
type ValueKind int

const (
	ValueRest ValueKind = iota
	ValueNote           // absolute MIDI note from a note name
	ValueOffset         // numeric offset, resolved against the root at query time
)

// Value is a leaf's payload before root resolution.
type Value struct {
	Kind   ValueKind
	Note   int     // ValueNote: absolute MIDI value
	Offset float64 // ValueOffset: signed offset from the root
}

// Resolve turns a leaf value into a MIDI note number given the root.
// Rests never resolve; callers filter them out before resolving.
func (v Value) Resolve(root int) int {
	switch v.Kind {
	case ValueNote:
		return v.Note
	case ValueOffset:
		// Fractional offsets round to the nearest semitone.
		if v.Offset >= 0 {
			return root + int(v.Offset+0.5)
		}
		return root + int(v.Offset-0.5)
	default:
		return 0
	}
}
