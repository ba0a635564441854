package pattern

import "testing"

func TestParseNoteName(t *testing.T) {
	cases := []struct {
		tok  string
		want int
	}{
		{"c4", 60},
		{"c", 48},
		{"c#4", 61},
		{"eb4", 63},
		{"f##4", 67},
		{"a", 57},
		{"b3", 59},
		{"bb3", 58},
		{"g9", 127},
		{"C#4", 61},
	}
	for _, c := range cases {
		got, err := ParseNoteName(c.tok)
		if err != nil {
			t.Fatalf("%q: %v", c.tok, err)
		}
		if got != c.want {
			t.Fatalf("%q: expected %d, got %d", c.tok, c.want, got)
		}
	}
}

func TestParseNoteNameInvalid(t *testing.T) {
	for _, tok := range []string{"", "h4", "c44", "c4x", "4c"} {
		if _, err := ParseNoteName(tok); err == nil {
			t.Fatalf("expected error for %q", tok)
		}
	}
}

func TestResolveOffset(t *testing.T) {
	cases := []struct {
		off  float64
		root int
		want int
	}{
		{0, 60, 60},
		{7, 60, 67},
		{-12, 60, 48},
		{0.4, 60, 60},
		{0.6, 60, 61},
		{-0.6, 60, 59},
	}
	for _, c := range cases {
		v := Value{Kind: ValueOffset, Offset: c.off}
		if got := v.Resolve(c.root); got != c.want {
			t.Fatalf("offset %v root %d: expected %d, got %d", c.off, c.root, c.want, got)
		}
	}
}
