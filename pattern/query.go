package pattern

import "fmt"

// Hap is one event occurrence. Whole is the event's full slot; Part is the
// portion overlapping the queried arc. The onset (Whole.Begin) is the only
// instant at which a trigger fires, so an event straddling a query boundary
// never fires twice.
type Hap struct {
	Whole Span
	Part  Span
	Value int
}

// HasOnset reports whether the queried arc contained the event's onset.
func (h Hap) HasOnset() bool { return h.Whole.Begin.Equal(h.Part.Begin) }

func (h Hap) String() string {
	return fmt.Sprintf("%s %s %d", h.Whole, h.Part, h.Value)
}

type queryCtx struct {
	root int
	seed uint64
}

// Query evaluates the pattern over an absolute time arc. The arc may span
// any number of cycles; it is split at cycle boundaries internally. Results
// are ordered cycle by cycle, then by tree declaration order. Queries are
// pure: the same arc with the same root and seed always returns the same
// haps, including identical degrade outcomes.
func (p *Pattern) Query(span Span, root int, seed uint64) []Hap {
	if span.Empty() {
		return nil
	}
	ctx := &queryCtx{root: root, seed: seed}
	return queryNode(p.root, span, ctx)
}

func queryNode(n Node, span Span, ctx *queryCtx) []Hap {
	switch n := n.(type) {
	case *LeafNode:
		return queryLeaf(n, span, ctx)
	case *SeqNode:
		return querySeq(n, span, ctx)
	case *StackNode:
		var out []Hap
		for _, c := range n.children {
			out = append(out, queryNode(c, span, ctx)...)
		}
		return out
	case *AltNode:
		return queryAlt(n, span, ctx)
	case *FastNode:
		return queryScaled(n.child, span, n.factor, ctx)
	case *SlowNode:
		return queryScaled(n.child, span, RatInt(1).Div(n.factor), ctx)
	case *DegradeNode:
		return queryDegrade(n, span, ctx)
	default:
		return nil
	}
}

// queryLeaf emits one hap per cycle the arc touches; the whole span is the
// full cycle slot. Rests emit nothing.
func queryLeaf(n *LeafNode, span Span, ctx *queryCtx) []Hap {
	if n.val.Kind == ValueRest {
		return nil
	}
	var out []Hap
	for _, piece := range cycleSpans(span) {
		c := piece.Begin.Floor()
		out = append(out, Hap{
			Whole: Span{Begin: RatInt(c), End: RatInt(c + 1)},
			Part:  piece,
			Value: n.val.Resolve(ctx.root),
		})
	}
	return out
}

// querySeq partitions each cycle proportionally by weight and recurses into
// every child slot the arc touches, re-expressing the arc in the child's
// local cycle coordinates and mapping results back.
func querySeq(n *SeqNode, span Span, ctx *queryCtx) []Hap {
	total := RatInt(0)
	for _, w := range n.weights {
		total = total.Add(w)
	}
	if total.Num() == 0 {
		return nil
	}
	var out []Hap
	for _, piece := range cycleSpans(span) {
		c := piece.Begin.Floor()
		cycle := RatInt(c)
		cum := RatInt(0)
		for i, child := range n.children {
			w := n.weights[i]
			if w.Num() == 0 {
				continue
			}
			slotBegin := cycle.Add(cum.Div(total))
			cum = cum.Add(w)
			slotEnd := cycle.Add(cum.Div(total))
			slot := Span{Begin: slotBegin, End: slotEnd}
			inter := piece.Intersect(slot)
			if inter.Empty() {
				continue
			}
			width := slotEnd.Sub(slotBegin)
			toChild := func(t Rat) Rat { return cycle.Add(t.Sub(slotBegin).Div(width)) }
			fromChild := func(t Rat) Rat { return slotBegin.Add(t.Sub(cycle).Mul(width)) }
			sub := queryNode(child, Span{Begin: toChild(inter.Begin), End: toChild(inter.End)}, ctx)
			for _, h := range sub {
				out = append(out, Hap{
					Whole: Span{Begin: fromChild(h.Whole.Begin), End: fromChild(h.Whole.End)},
					Part:  Span{Begin: fromChild(h.Part.Begin), End: fromChild(h.Part.End)},
					Value: h.Value,
				})
			}
		}
	}
	return out
}

// queryAlt selects one branch per cycle by weighted round robin. A branch
// with weight w holds for w consecutive cycles, and sees its own consecutive
// cycle numbering so nested alternations keep advancing.
func queryAlt(n *AltNode, span Span, ctx *queryCtx) []Hap {
	var total int64
	for _, w := range n.weights {
		total += w
	}
	if total == 0 {
		return nil
	}
	var out []Hap
	for _, piece := range cycleSpans(span) {
		c := piece.Begin.Floor()
		r := c % total
		if r < 0 {
			r += total
		}
		rounds := (c - r) / total
		var start int64
		for i, branch := range n.branches {
			w := n.weights[i]
			if r < start+w {
				childCycle := rounds*w + (r - start)
				offset := RatInt(childCycle - c)
				shifted := Span{Begin: piece.Begin.Add(offset), End: piece.End.Add(offset)}
				for _, h := range queryNode(branch, shifted, ctx) {
					out = append(out, Hap{
						Whole: Span{Begin: h.Whole.Begin.Sub(offset), End: h.Whole.End.Sub(offset)},
						Part:  Span{Begin: h.Part.Begin.Sub(offset), End: h.Part.End.Sub(offset)},
						Value: h.Value,
					})
				}
				break
			}
			start += w
		}
	}
	return out
}

// queryScaled compresses time by factor (fast) or expands it (slow via the
// reciprocal): child time = outer time * factor.
func queryScaled(child Node, span Span, factor Rat, ctx *queryCtx) []Hap {
	scaled := Span{Begin: span.Begin.Mul(factor), End: span.End.Mul(factor)}
	sub := queryNode(child, scaled, ctx)
	out := make([]Hap, 0, len(sub))
	for _, h := range sub {
		out = append(out, Hap{
			Whole: Span{Begin: h.Whole.Begin.Div(factor), End: h.Whole.End.Div(factor)},
			Part:  Span{Begin: h.Part.Begin.Div(factor), End: h.Part.End.Div(factor)},
			Value: h.Value,
		})
	}
	return out
}

// queryDegrade drops child haps with probability prob. The draw depends only
// on (seed, node identity, onset position), so re-querying any sub-arc of a
// cycle reproduces the same kept/dropped set.
func queryDegrade(n *DegradeNode, span Span, ctx *queryCtx) []Hap {
	sub := queryNode(n.child, span, ctx)
	out := sub[:0]
	for _, h := range sub {
		if degradeDraw(ctx.seed, n.id, h.Whole.Begin) >= n.prob {
			out = append(out, h)
		}
	}
	return out
}
