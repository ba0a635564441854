package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/J-Broadway/TrapCode/config"
	"github.com/J-Broadway/TrapCode/debug"
	"github.com/J-Broadway/TrapCode/midi"
	"github.com/J-Broadway/TrapCode/sequencer"
	"github.com/J-Broadway/TrapCode/theme"
	"github.com/J-Broadway/TrapCode/tui"
)

func main() {
	if os.Getenv("TRAPCODE_DEBUG") != "" {
		if err := debug.Enable(); err != nil {
			fmt.Printf("debug log: %v\n", err)
		}
		defer debug.Disable()
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("config: %v\n", err)
		os.Exit(1)
	}

	pal := theme.Default()
	if cfg.Palette != "" {
		pal, err = theme.LoadGPL(cfg.Palette)
		if err != nil {
			fmt.Printf("palette: %v\n", err)
			os.Exit(1)
		}
	}
	th := theme.New(pal)

	transport := sequencer.NewTransport(cfg.BPM, cfg.PPQ)
	output := midi.NewOutput(cfg.Output.PortName)
	defer output.Close()

	session := sequencer.NewSession(transport, output, sequencer.Defaults{
		Velocity:   cfg.Defaults.Velocity,
		Length:     cfg.Defaults.Length,
		CycleBeats: cfg.Defaults.CycleBeats,
		Channel:    cfg.Output.Channel,
		Seed:       cfg.Defaults.Seed,
	})

	var entries []tui.Entry
	var livePatterns []config.PatternConfig
	for _, pc := range cfg.Patterns {
		if pc.Live {
			livePatterns = append(livePatterns, pc)
			continue
		}
		opts := sequencer.PatternOpts{
			Root:       cfg.RootNote(pc),
			CycleBeats: pc.CycleBeats,
			Channel:    pc.Channel,
			Velocity:   pc.Velocity,
			Length:     pc.Length,
			Cut:        pc.Cut,
		}
		if _, err := session.Bind(pc.Name, pc.Text, opts); err != nil {
			fmt.Printf("pattern %q: %v\n", pc.Name, err)
			os.Exit(1)
		}
		if pc.AutoStart {
			session.Start(pc.Name)
		}
		entries = append(entries, tui.Entry{Name: pc.Name, Text: pc.Text, Opts: opts})
	}

	if cfg.Input.Enabled {
		in, err := midi.OpenInput(cfg.Input.PortName)
		if err != nil {
			fmt.Printf("input: %v\n", err)
			os.Exit(1)
		}
		defer in.Close()
		go runInput(in, session, livePatterns)
	}

	// Drive the scheduler well above tick rate so arcs stay short.
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := session.Update(); err != nil {
					debug.Log("main", "update: %v", err)
				}
			}
		}
	}()
	defer close(done)

	transport.Play()

	m := tui.NewModel(session, transport, th, entries)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// liveBase keeps synthetic ids for incoming notes clear of the output's
// own voice ids.
const liveBase = sequencer.VoiceID(1 << 32)

// runInput turns incoming MIDI notes into triggers. With live patterns
// configured, each note-on binds instances rooted at the played note and
// linked to a synthetic voice id; the note-off releases that id, which
// cascades to every voice the instances spawned. Without live patterns
// the input is a plain echo through the session.
func runInput(in *midi.Input, session *sequencer.Session, live []config.PatternConfig) {
	for {
		var ev midi.Event
		select {
		case <-in.Done():
			return
		case ev = <-in.Events():
		}
		note := int(ev.Note)
		switch ev.Type {
		case midi.NoteOn:
			if len(live) == 0 {
				if err := session.PlayNote(note, int(ev.Velocity)); err != nil {
					debug.Log("main", "play note %d: %v", note, err)
				}
				continue
			}
			ext := liveBase + sequencer.VoiceID(note)
			for _, pc := range live {
				name := fmt.Sprintf("%s@%d", pc.Name, note)
				opts := sequencer.PatternOpts{
					Root:       note,
					CycleBeats: pc.CycleBeats,
					Channel:    pc.Channel,
					Velocity:   int(ev.Velocity),
					Length:     pc.Length,
					Cut:        pc.Cut,
					BoundTo:    ext,
				}
				if _, err := session.Bind(name, pc.Text, opts); err != nil {
					debug.Log("main", "live bind %q: %v", name, err)
					continue
				}
				session.Start(name)
			}
		case midi.NoteOff:
			if len(live) == 0 {
				if err := session.StopNote(note); err != nil {
					debug.Log("main", "stop note %d: %v", note, err)
				}
				continue
			}
			ext := liveBase + sequencer.VoiceID(note)
			if err := session.NotifyRelease(ext); err != nil {
				debug.Log("main", "release %d: %v", note, err)
			}
			for _, pc := range live {
				session.Unbind(fmt.Sprintf("%s@%d", pc.Name, note))
			}
		}
	}
}
