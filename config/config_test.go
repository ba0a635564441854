package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	cut := false
	cfg := DefaultConfig()
	cfg.Output.PortName = "FluidSynth"
	cfg.BPM = 140
	cfg.Patterns = []PatternConfig{
		{Name: "bass", Text: "0 ~ [3 5] 7", Root: "c2", CycleBeats: 4, Cut: &cut},
	}

	path := filepath.Join(t.TempDir(), "config.json")
	if err := cfg.SaveFile(path); err != nil {
		t.Fatal(err)
	}

	got, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.BPM != 140 || got.Output.PortName != "FluidSynth" {
		t.Fatalf("round trip lost fields: %+v", got)
	}
	p := got.FindPattern("bass")
	if p == nil {
		t.Fatal("pattern missing after round trip")
	}
	if p.Text != "0 ~ [3 5] 7" || p.CycleBeats != 4 {
		t.Fatalf("pattern fields drifted: %+v", p)
	}
	if p.Cut == nil || *p.Cut {
		t.Fatal("cut flag lost")
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BPM != 120 || cfg.PPQ != 96 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadRejectsBadPatternText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"patterns": [{"name": "bad", "text": "[0 1"}]}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected validation error for unparseable pattern")
	}
}

func TestValidateRejectsDuplicateNames(t *testing.T) {
	cfg := &Config{
		Patterns: []PatternConfig{
			{Name: "a", Text: "0"},
			{Name: "a", Text: "1"},
		},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected duplicate name error")
	}
}

func TestRootNoteFallbacks(t *testing.T) {
	cfg := DefaultConfig() // defaults.root = c4
	if got := cfg.RootNote(PatternConfig{}); got != 60 {
		t.Fatalf("default root = %d, want 60", got)
	}
	if got := cfg.RootNote(PatternConfig{Root: "a3"}); got != 57 {
		t.Fatalf("explicit root = %d, want 57", got)
	}
}
