package pattern

import (
	"reflect"
	"testing"
)

func fullCycle(c int64) Span {
	return Span{Begin: RatInt(c), End: RatInt(c + 1)}
}

func values(haps []Hap) []int {
	out := make([]int, len(haps))
	for i, h := range haps {
		out[i] = h.Value
	}
	return out
}

func TestQuerySequence(t *testing.T) {
	p := MustParse("0 1 2 3")
	haps := p.Query(fullCycle(0), 60, 1)
	if len(haps) != 4 {
		t.Fatalf("expected 4 haps, got %d", len(haps))
	}
	if !reflect.DeepEqual(values(haps), []int{60, 61, 62, 63}) {
		t.Fatalf("expected values 60..63, got %v", values(haps))
	}
	for i, h := range haps {
		wantBegin := NewRat(int64(i), 4)
		wantEnd := NewRat(int64(i+1), 4)
		if !h.Whole.Begin.Equal(wantBegin) || !h.Whole.End.Equal(wantEnd) {
			t.Fatalf("hap %d: expected whole [%s, %s), got %s", i, wantBegin, wantEnd, h.Whole)
		}
		if !h.HasOnset() {
			t.Fatalf("hap %d: expected onset inside full-cycle arc", i)
		}
	}
}

func TestQueryWeights(t *testing.T) {
	p := MustParse("0@2 1")
	haps := p.Query(fullCycle(0), 60, 1)
	if len(haps) != 2 {
		t.Fatalf("expected 2 haps, got %d", len(haps))
	}
	if !haps[0].Whole.Begin.Equal(RatInt(0)) || !haps[0].Whole.End.Equal(NewRat(2, 3)) {
		t.Fatalf("hap 0: expected [0, 2/3), got %s", haps[0].Whole)
	}
	if !haps[1].Whole.Begin.Equal(NewRat(2, 3)) || !haps[1].Whole.End.Equal(RatInt(1)) {
		t.Fatalf("hap 1: expected [2/3, 1), got %s", haps[1].Whole)
	}
}

func TestQueryZeroWeight(t *testing.T) {
	p := MustParse("0@0 1")
	haps := p.Query(fullCycle(0), 60, 1)
	if len(haps) != 1 {
		t.Fatalf("zero-weight sibling must emit nothing, got %d haps", len(haps))
	}
	if haps[0].Value != 61 || !haps[0].Whole.Length().Equal(RatInt(1)) {
		t.Fatalf("surviving sibling should fill the cycle, got %v", haps[0])
	}
}

func TestQueryReplicate(t *testing.T) {
	p := MustParse("0!3")
	haps := p.Query(fullCycle(0), 60, 1)
	if len(haps) != 3 {
		t.Fatalf("expected 3 haps, got %d", len(haps))
	}
	total := RatInt(0)
	for _, h := range haps {
		if !h.Whole.Length().Equal(NewRat(1, 3)) {
			t.Fatalf("expected equal spans of 1/3, got %s", h.Whole)
		}
		total = total.Add(h.Whole.Length())
	}
	if !total.Equal(RatInt(1)) {
		t.Fatalf("spans must sum to the cycle, got %s", total)
	}
}

func TestQueryRests(t *testing.T) {
	p := MustParse("0 ~ 2 -")
	haps := p.Query(fullCycle(0), 60, 1)
	if len(haps) != 2 {
		t.Fatalf("rests must not emit, got %d haps", len(haps))
	}
	if haps[0].Value != 60 || haps[1].Value != 62 {
		t.Fatalf("expected 60, 62, got %v", values(haps))
	}
}

func TestQueryStackOrderStable(t *testing.T) {
	p := MustParse("[c4, e4, g4]")
	haps := p.Query(fullCycle(0), 60, 1)
	if !reflect.DeepEqual(values(haps), []int{60, 64, 67}) {
		t.Fatalf("stack must keep declaration order, got %v", values(haps))
	}
	for _, h := range haps {
		if !h.Whole.Length().Equal(RatInt(1)) {
			t.Fatalf("stacked notes share the whole slot, got %s", h.Whole)
		}
	}
}

func TestQueryAlternation(t *testing.T) {
	p := MustParse("<0 2 4>")
	for c, want := range []int{60, 62, 64, 60, 62, 64} {
		haps := p.Query(fullCycle(int64(c)), 60, 1)
		if len(haps) != 1 || haps[0].Value != want {
			t.Fatalf("cycle %d: expected %d, got %v", c, want, values(haps))
		}
	}
}

func TestQueryAlternationWeighted(t *testing.T) {
	p := MustParse("<0@2 1>")
	want := []int{60, 60, 61, 60, 60, 61}
	for c, w := range want {
		haps := p.Query(fullCycle(int64(c)), 60, 1)
		if len(haps) != 1 || haps[0].Value != w {
			t.Fatalf("cycle %d: expected %d, got %v", c, w, values(haps))
		}
	}
}

func TestQueryFastAlternation(t *testing.T) {
	// <0 2 4 5>*4 runs the alternation through four cycles within one
	// outer cycle.
	p := MustParse("<0 2 4 5>*4")
	haps := p.Query(fullCycle(0), 60, 1)
	if !reflect.DeepEqual(values(haps), []int{60, 62, 64, 65}) {
		t.Fatalf("expected 60 62 64 65, got %v", values(haps))
	}
	for i, h := range haps {
		if !h.Whole.Begin.Equal(NewRat(int64(i), 4)) {
			t.Fatalf("hap %d: expected onset %s, got %s", i, NewRat(int64(i), 4), h.Whole.Begin)
		}
	}
}

func TestQueryFastLeaf(t *testing.T) {
	p := MustParse("0*3")
	haps := p.Query(fullCycle(0), 60, 1)
	if len(haps) != 3 {
		t.Fatalf("expected 3 repetitions, got %d", len(haps))
	}
	for i, h := range haps {
		if !h.Whole.Length().Equal(NewRat(1, 3)) {
			t.Fatalf("hap %d: expected span 1/3, got %s", i, h.Whole)
		}
	}
}

func TestQuerySlow(t *testing.T) {
	p := MustParse("[0 1]/2")
	first := p.Query(fullCycle(0), 60, 1)
	if len(first) != 1 || first[0].Value != 60 {
		t.Fatalf("cycle 0: expected only 60, got %v", values(first))
	}
	if !first[0].Whole.Begin.Equal(RatInt(0)) || !first[0].Whole.End.Equal(RatInt(1)) {
		t.Fatalf("cycle 0: expected whole [0, 1), got %s", first[0].Whole)
	}
	second := p.Query(fullCycle(1), 60, 1)
	if len(second) != 1 || second[0].Value != 61 {
		t.Fatalf("cycle 1: expected only 61, got %v", values(second))
	}
}

func TestQueryOnsetOnlyAtWholeBegin(t *testing.T) {
	p := MustParse("0 1")
	arc := Span{Begin: NewRat(1, 4), End: NewRat(3, 4)}
	haps := p.Query(arc, 60, 1)
	if len(haps) != 2 {
		t.Fatalf("expected 2 haps, got %d", len(haps))
	}
	if haps[0].HasOnset() {
		t.Fatalf("first hap's onset is outside the arc; it must not retrigger")
	}
	if !haps[1].HasOnset() {
		t.Fatalf("second hap's onset lies in the arc")
	}
	if !haps[0].Part.Begin.Equal(NewRat(1, 4)) || !haps[0].Part.End.Equal(NewRat(1, 2)) {
		t.Fatalf("first part should clip to the arc, got %s", haps[0].Part)
	}
}

func TestQueryMultiCycleArc(t *testing.T) {
	p := MustParse("0 1")
	haps := p.Query(Span{Begin: RatInt(0), End: RatInt(2)}, 60, 1)
	if !reflect.DeepEqual(values(haps), []int{60, 61, 60, 61}) {
		t.Fatalf("expected two full cycles in order, got %v", values(haps))
	}
	if !haps[2].Whole.Begin.Equal(RatInt(1)) {
		t.Fatalf("second cycle should start at 1, got %s", haps[2].Whole.Begin)
	}
}

func TestQueryDeterministic(t *testing.T) {
	p := MustParse("[0 1 2 3]? <4 5>?0.3")
	arc := Span{Begin: RatInt(0), End: RatInt(8)}
	a := p.Query(arc, 60, 42)
	b := p.Query(arc, 60, 42)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("identical queries must return identical haps")
	}
}

func TestQueryDegradeStableAcrossSplitArcs(t *testing.T) {
	p := MustParse("[0 1 2 3]?0.5")
	whole := p.Query(fullCycle(0), 60, 7)
	var split []Hap
	split = append(split, p.Query(Span{Begin: RatInt(0), End: NewRat(1, 2)}, 60, 7)...)
	split = append(split, p.Query(Span{Begin: NewRat(1, 2), End: RatInt(1)}, 60, 7)...)
	if len(whole) != len(split) {
		t.Fatalf("split query changed the kept set: %d vs %d", len(whole), len(split))
	}
	for i := range whole {
		if whole[i].Value != split[i].Value || !whole[i].Whole.Begin.Equal(split[i].Whole.Begin) {
			t.Fatalf("hap %d differs between whole and split queries", i)
		}
	}
}

func TestQueryDegradeStatistics(t *testing.T) {
	p := MustParse("0?0.75")
	kept := 0
	const cycles = 10000
	for c := int64(0); c < cycles; c++ {
		kept += len(p.Query(fullCycle(c), 60, 99))
	}
	ratio := float64(kept) / cycles
	if ratio < 0.22 || ratio > 0.28 {
		t.Fatalf("expected ~25%% kept, got %.1f%%", ratio*100)
	}
}

func TestQueryReplicatedDegradeDrawsIndependently(t *testing.T) {
	// Each slot of a replicated degraded term makes its own draw: over many
	// cycles the two slots of "0?!2" must frequently disagree. With p = 0.5
	// exactly one survives in about half the cycles.
	p := MustParse("0?!2")
	mixed := 0
	const cycles = 1000
	for c := int64(0); c < cycles; c++ {
		if len(p.Query(fullCycle(c), 60, 5)) == 1 {
			mixed++
		}
	}
	if mixed < 400 || mixed > 600 {
		t.Fatalf("one-of-two cycles = %d/%d, want about half", mixed, cycles)
	}
}

func TestQueryDegradeSeedChangesOutcome(t *testing.T) {
	p := MustParse("[0 1 2 3 4 5 6 7]?")
	arc := Span{Begin: RatInt(0), End: RatInt(16)}
	a := len(p.Query(arc, 60, 1))
	b := len(p.Query(arc, 60, 2))
	// 128 draws; identical keep counts under both seeds are possible but a
	// fully identical hap list is not expected.
	if a == b && reflect.DeepEqual(p.Query(arc, 60, 1), p.Query(arc, 60, 2)) {
		t.Fatalf("different seeds should give different degrade outcomes")
	}
}

func TestQueryNestedGroups(t *testing.T) {
	p := MustParse("0 [1 2]")
	haps := p.Query(fullCycle(0), 60, 1)
	if !reflect.DeepEqual(values(haps), []int{60, 61, 62}) {
		t.Fatalf("expected 60 61 62, got %v", values(haps))
	}
	if !haps[1].Whole.Begin.Equal(NewRat(1, 2)) || !haps[1].Whole.End.Equal(NewRat(3, 4)) {
		t.Fatalf("expected nested slot [1/2, 3/4), got %s", haps[1].Whole)
	}
}
