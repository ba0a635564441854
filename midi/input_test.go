package midi

import "testing"

func TestInputCloseLeavesEmitSafe(t *testing.T) {
	in := &Input{
		events: make(chan Event, 1),
		done:   make(chan struct{}),
	}
	if err := in.Close(); err != nil {
		t.Fatal(err)
	}

	// A driver callback racing Close may still deliver; it must not panic.
	in.emit(Event{Type: NoteOn, Note: 60})

	select {
	case <-in.Done():
	default:
		t.Fatal("Done not signalled after Close")
	}

	// Close is idempotent.
	if err := in.Close(); err != nil {
		t.Fatal(err)
	}
}
