package pattern

import (
	"fmt"
	"strconv"
)

// Pattern is a compiled mini-notation tree. Parsing happens once at
// construction; queries share the immutable tree.
type Pattern struct {
	root  Node
	text  string
	nodes int
}

// Text returns the original pattern text.
func (p *Pattern) Text() string { return p.text }

// Parse compiles mini-notation text. Any malformed input fails the whole
// parse; no partial tree is ever returned.
//
// Grammar, highest precedence first:
//
//	[...]    subdivision group
//	<...>    alternation group (one branch per cycle)
//	@n !n *n /n ? ?p   postfix weight / replicate / fast / slow / degrade
//	whitespace         sequencing
//	,                  stack (polyphony), top level and inside any group
//
// Rests are ~ or a bare -. Leaves are signed numbers (offsets from the root)
// or note names (letter, stackable #/b accidentals, optional octave digit).
func Parse(text string) (*Pattern, error) {
	p := &parser{src: text}
	root, err := p.parseStack(0)
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, fmt.Errorf("unexpected %q at %d", p.src[p.pos], p.pos)
	}
	if root == nil {
		return nil, fmt.Errorf("empty pattern")
	}
	return &Pattern{root: root, text: text, nodes: p.nextID}, nil
}

// MustParse is a test and example helper; it panics on malformed text.
func MustParse(text string) *Pattern {
	p, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return p
}

type parser struct {
	src    string
	pos    int
	nextID int
}

func (p *parser) id() int {
	id := p.nextID
	p.nextID++
	return id
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && isSpace(p.src[p.pos]) {
		p.pos++
	}
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }

// term closers; a sequence ends at any of these.
func isTerminator(b byte) bool { return b == ',' || b == ']' || b == '>' }

// parseStack parses comma-separated sequences until the closing byte
// (0 at top level).
func (p *parser) parseStack(closer byte) (Node, error) {
	var parts []Node
	for {
		seq, err := p.parseSequence(false)
		if err != nil {
			return nil, err
		}
		parts = append(parts, seq)
		p.skipSpace()
		if p.pos < len(p.src) && p.src[p.pos] == ',' {
			p.pos++
			continue
		}
		break
	}
	p.skipSpace()
	if closer != 0 {
		if p.pos >= len(p.src) || p.src[p.pos] != closer {
			return nil, fmt.Errorf("missing %q at %d", closer, p.pos)
		}
		p.pos++
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return &StackNode{id: p.id(), children: parts}, nil
}

// parseSequence parses whitespace-separated terms. With alternation=true
// each term becomes a whole-cycle branch instead of a subdivision, and
// weights must be whole cycle counts.
func (p *parser) parseSequence(alternation bool) (Node, error) {
	var children []Node
	var weights []Rat
	for {
		p.skipSpace()
		if p.pos >= len(p.src) || isTerminator(p.src[p.pos]) {
			break
		}
		node, weight, repeat, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		for i := 0; i < repeat; i++ {
			rep := node
			if i > 0 {
				rep = p.cloneTerm(node)
			}
			children = append(children, rep)
			weights = append(weights, weight)
		}
	}
	if len(children) == 0 {
		return nil, fmt.Errorf("empty group at %d", p.pos)
	}
	if alternation {
		alt := &AltNode{id: p.id(), branches: children}
		for _, w := range weights {
			if w.Den() != 1 || w.Num() < 1 {
				return nil, fmt.Errorf("alternation weight must be a whole cycle count, got %s", w)
			}
			alt.weights = append(alt.weights, w.Num())
		}
		return alt, nil
	}
	if len(children) == 1 && weights[0].Equal(RatInt(1)) {
		return children[0], nil
	}
	return &SeqNode{id: p.id(), children: children, weights: weights}, nil
}

// cloneTerm deep-copies a replicated term with fresh node ids. Each slot a
// `!n` produces is its own occurrence, so a degrade inside it must make its
// own draws instead of mirroring its siblings.
func (p *parser) cloneTerm(n Node) Node {
	switch n := n.(type) {
	case *LeafNode:
		return &LeafNode{id: p.id(), val: n.val}
	case *SeqNode:
		c := &SeqNode{id: p.id(), weights: n.weights}
		for _, ch := range n.children {
			c.children = append(c.children, p.cloneTerm(ch))
		}
		return c
	case *StackNode:
		c := &StackNode{id: p.id()}
		for _, ch := range n.children {
			c.children = append(c.children, p.cloneTerm(ch))
		}
		return c
	case *AltNode:
		c := &AltNode{id: p.id(), weights: n.weights}
		for _, b := range n.branches {
			c.branches = append(c.branches, p.cloneTerm(b))
		}
		return c
	case *FastNode:
		return &FastNode{id: p.id(), factor: n.factor, child: p.cloneTerm(n.child)}
	case *SlowNode:
		return &SlowNode{id: p.id(), factor: n.factor, child: p.cloneTerm(n.child)}
	case *DegradeNode:
		return &DegradeNode{id: p.id(), prob: n.prob, child: p.cloneTerm(n.child)}
	default:
		return n
	}
}

// parseTerm parses one atom plus its postfix modifiers, returning the node,
// its weight within the enclosing sequence, and its replication count.
func (p *parser) parseTerm() (Node, Rat, int, error) {
	node, err := p.parseAtom()
	if err != nil {
		return nil, Rat{}, 0, err
	}
	weight := RatInt(1)
	repeat := 1
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case '@':
			p.pos++
			w, err := p.parseRat("weight")
			if err != nil {
				return nil, Rat{}, 0, err
			}
			if w.Num() < 0 {
				return nil, Rat{}, 0, fmt.Errorf("negative weight at %d", p.pos)
			}
			weight = w
		case '!':
			p.pos++
			n, err := p.parseInt("replicate count")
			if err != nil {
				return nil, Rat{}, 0, err
			}
			if n < 1 {
				return nil, Rat{}, 0, fmt.Errorf("replicate count must be >= 1 at %d", p.pos)
			}
			repeat = n
		case '*':
			p.pos++
			f, err := p.parseRat("fast factor")
			if err != nil {
				return nil, Rat{}, 0, err
			}
			if f.Num() <= 0 {
				return nil, Rat{}, 0, fmt.Errorf("fast factor must be positive at %d", p.pos)
			}
			node = &FastNode{id: p.id(), factor: f, child: node}
		case '/':
			p.pos++
			f, err := p.parseRat("slow factor")
			if err != nil {
				return nil, Rat{}, 0, err
			}
			if f.Num() <= 0 {
				return nil, Rat{}, 0, fmt.Errorf("slow factor must be positive at %d", p.pos)
			}
			node = &SlowNode{id: p.id(), factor: f, child: node}
		case '?':
			p.pos++
			prob := 0.5
			if p.pos < len(p.src) && (isDigit(p.src[p.pos]) || p.src[p.pos] == '.') {
				v, err := p.parseFloat("probability")
				if err != nil {
					return nil, Rat{}, 0, err
				}
				if v < 0 || v > 1 {
					return nil, Rat{}, 0, fmt.Errorf("probability %v outside [0, 1]", v)
				}
				prob = v
			}
			node = &DegradeNode{id: p.id(), prob: prob, child: node}
		default:
			return node, weight, repeat, nil
		}
	}
	return node, weight, repeat, nil
}

func (p *parser) parseAtom() (Node, error) {
	if p.pos >= len(p.src) {
		return nil, fmt.Errorf("unexpected end of pattern")
	}
	switch b := p.src[p.pos]; {
	case b == '[':
		p.pos++
		return p.parseStack(']')
	case b == '<':
		p.pos++
		return p.parseAlternation()
	case b == '~':
		p.pos++
		return &LeafNode{id: p.id(), val: Value{Kind: ValueRest}}, nil
	case b == '-' && !p.digitFollows():
		p.pos++
		return &LeafNode{id: p.id(), val: Value{Kind: ValueRest}}, nil
	case b == '-' || b == '+' || isDigit(b) || b == '.':
		off, err := p.parseFloat("offset")
		if err != nil {
			return nil, err
		}
		return &LeafNode{id: p.id(), val: Value{Kind: ValueOffset, Offset: off}}, nil
	case isNoteLetter(b):
		start := p.pos
		p.pos++
		for p.pos < len(p.src) && (lower(p.src[p.pos]) == 'b' || p.src[p.pos] == '#') {
			p.pos++
		}
		if p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
		}
		note, err := ParseNoteName(p.src[start:p.pos])
		if err != nil {
			return nil, fmt.Errorf("%v at %d", err, start)
		}
		return &LeafNode{id: p.id(), val: Value{Kind: ValueNote, Note: note}}, nil
	default:
		return nil, fmt.Errorf("unknown token %q at %d", b, p.pos)
	}
}

// parseAlternation parses the body of <...>. Commas inside the angle
// brackets stack independent alternations, same as everywhere else.
func (p *parser) parseAlternation() (Node, error) {
	var parts []Node
	for {
		alt, err := p.parseSequence(true)
		if err != nil {
			return nil, err
		}
		parts = append(parts, alt)
		p.skipSpace()
		if p.pos < len(p.src) && p.src[p.pos] == ',' {
			p.pos++
			continue
		}
		break
	}
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '>' {
		return nil, fmt.Errorf("missing %q at %d", '>', p.pos)
	}
	p.pos++
	if len(parts) == 1 {
		return parts[0], nil
	}
	return &StackNode{id: p.id(), children: parts}, nil
}

func (p *parser) digitFollows() bool {
	return p.pos+1 < len(p.src) && (isDigit(p.src[p.pos+1]) || p.src[p.pos+1] == '.')
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func (p *parser) scanNumber(what string) (string, error) {
	start := p.pos
	if p.pos < len(p.src) && (p.src[p.pos] == '-' || p.src[p.pos] == '+') {
		p.pos++
	}
	digits := 0
	for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
		p.pos++
		digits++
	}
	if p.pos < len(p.src) && p.src[p.pos] == '.' {
		p.pos++
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
			digits++
		}
	}
	if digits == 0 {
		return "", fmt.Errorf("invalid %s at %d", what, start)
	}
	return p.src[start:p.pos], nil
}

func (p *parser) parseFloat(what string) (float64, error) {
	s, err := p.scanNumber(what)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return v, nil
}

func (p *parser) parseInt(what string) (int, error) {
	s, err := p.scanNumber(what)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return v, nil
}

// parseRat parses an integer or decimal literal as an exact rational.
func (p *parser) parseRat(what string) (Rat, error) {
	s, err := p.scanNumber(what)
	if err != nil {
		return Rat{}, err
	}
	neg := false
	if s[0] == '+' {
		s = s[1:]
	} else if s[0] == '-' {
		neg = true
		s = s[1:]
	}
	num := int64(0)
	den := int64(1)
	frac := false
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			frac = true
			continue
		}
		num = num*10 + int64(s[i]-'0')
		if frac {
			den *= 10
		}
	}
	if neg {
		num = -num
	}
	return NewRat(num, den), nil
}
