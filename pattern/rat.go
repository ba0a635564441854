package pattern

import "fmt"

// Rat is an exact rational number used for all cycle-time arithmetic.
// Nested fast/slow wrappers multiply positions repeatedly; floats drift,
// fractions don't. Conversion to real ticks happens only at the scheduler
// boundary.
type Rat struct {
	num int64
	den int64 // always > 0
}

// NewRat returns num/den in lowest terms. A zero denominator panics: it can
// only come from a programming error, never from pattern text.
func NewRat(num, den int64) Rat {
	if den == 0 {
		panic("pattern: rational with zero denominator")
	}
	if den < 0 {
		num, den = -num, -den
	}
	g := gcd(abs64(num), den)
	if g > 1 {
		num /= g
		den /= g
	}
	return Rat{num: num, den: den}
}

// RatInt returns n as a rational.
func RatInt(n int64) Rat {
	return Rat{num: n, den: 1}
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func (r Rat) Num() int64 { return r.num }
func (r Rat) Den() int64 { return r.den }

func (r Rat) Add(o Rat) Rat { return NewRat(r.num*o.den+o.num*r.den, r.den*o.den) }
func (r Rat) Sub(o Rat) Rat { return NewRat(r.num*o.den-o.num*r.den, r.den*o.den) }
func (r Rat) Mul(o Rat) Rat { return NewRat(r.num*o.num, r.den*o.den) }

// Div panics on division by zero; fast/slow factors are validated at parse
// time so a zero factor never reaches here.
func (r Rat) Div(o Rat) Rat { return NewRat(r.num*o.den, r.den*o.num) }

// Cmp returns -1, 0 or 1.
func (r Rat) Cmp(o Rat) int {
	d := r.num*o.den - o.num*r.den
	switch {
	case d < 0:
		return -1
	case d > 0:
		return 1
	default:
		return 0
	}
}

func (r Rat) Less(o Rat) bool   { return r.Cmp(o) < 0 }
func (r Rat) LessEq(o Rat) bool { return r.Cmp(o) <= 0 }
func (r Rat) Equal(o Rat) bool  { return r.Cmp(o) == 0 }

// Floor returns the largest integer <= r.
func (r Rat) Floor() int64 {
	q := r.num / r.den
	if r.num < 0 && r.num%r.den != 0 {
		q--
	}
	return q
}

func (r Rat) Min(o Rat) Rat {
	if o.Less(r) {
		return o
	}
	return r
}

func (r Rat) Max(o Rat) Rat {
	if r.Less(o) {
		return o
	}
	return r
}

// Float converts to float64. Scheduler-boundary use only.
func (r Rat) Float() float64 {
	return float64(r.num) / float64(r.den)
}

func (r Rat) String() string {
	if r.den == 1 {
		return fmt.Sprintf("%d", r.num)
	}
	return fmt.Sprintf("%d/%d", r.num, r.den)
}

// Span is a half-open time interval [Begin, End) in absolute cycle time:
// cycle c occupies [c, c+1).
type Span struct {
	Begin Rat
	End   Rat
}

// Intersect clips s to o. Empty results have Begin >= End.
func (s Span) Intersect(o Span) Span {
	return Span{Begin: s.Begin.Max(o.Begin), End: s.End.Min(o.End)}
}

// Empty reports whether the span contains no time.
func (s Span) Empty() bool { return !s.Begin.Less(s.End) }

// Length returns End - Begin.
func (s Span) Length() Rat { return s.End.Sub(s.Begin) }

// Contains reports whether t lies in [Begin, End).
func (s Span) Contains(t Rat) bool { return s.Begin.LessEq(t) && t.Less(s.End) }

func (s Span) String() string {
	return fmt.Sprintf("[%s, %s)", s.Begin, s.End)
}

// cycleSpans splits s at whole-cycle boundaries. Structural nodes (sequence,
// alternation, leaf slots) repeat per cycle, so they evaluate one cycle piece
// at a time.
func cycleSpans(s Span) []Span {
	if s.Empty() {
		return nil
	}
	var out []Span
	begin := s.Begin
	for begin.Less(s.End) {
		next := RatInt(begin.Floor() + 1)
		end := next.Min(s.End)
		out = append(out, Span{Begin: begin, End: end})
		begin = end
	}
	return out
}
