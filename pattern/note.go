package pattern

import "fmt"

// Pitch class offsets within an octave, C major spelling.
var noteOffsets = map[byte]int{
	'c': 0, 'd': 2, 'e': 4, 'f': 5, 'g': 7, 'a': 9, 'b': 11,
}

// DefaultOctave applies when a note name omits its octave digit.
// c3 = MIDI 48, matching the (octave+1)*12 convention.
const DefaultOctave = 3

// ParseNoteName resolves a note-name token (letter, accidentals, optional
// octave digit) to an absolute MIDI value. Accidentals stack: "f##4" = 67.
func ParseNoteName(tok string) (int, error) {
	if tok == "" {
		return 0, fmt.Errorf("empty note name")
	}
	base, ok := noteOffsets[lower(tok[0])]
	if !ok {
		return 0, fmt.Errorf("invalid note letter %q", tok[0])
	}
	i := 1
	shift := 0
	for i < len(tok) {
		switch lower(tok[i]) {
		case '#':
			shift++
			i++
		case 'b':
			shift--
			i++
		default:
			goto accidentalsDone
		}
	}
accidentalsDone:
	octave := DefaultOctave
	if i < len(tok) {
		if tok[i] < '0' || tok[i] > '9' || i+1 != len(tok) {
			return 0, fmt.Errorf("invalid note name %q", tok)
		}
		octave = int(tok[i] - '0')
	}
	return (octave+1)*12 + base + shift, nil
}

func lower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + 32
	}
	return b
}

func isNoteLetter(b byte) bool {
	_, ok := noteOffsets[lower(b)]
	return ok
}
