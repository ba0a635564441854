package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/J-Broadway/TrapCode/pattern"
)

// PatternConfig defines a saved named pattern
type PatternConfig struct {
	Name       string  `json:"name"`
	Text       string  `json:"text"`
	Root       string  `json:"root,omitempty"`       // note name, e.g. "c4"
	CycleBeats float64 `json:"cycleBeats,omitempty"` // 0 uses the default
	Channel    uint8   `json:"channel,omitempty"`
	Velocity   int     `json:"velocity,omitempty"`
	Length     float64 `json:"length,omitempty"` // fixed beats; 0 uses event spans
	Cut        *bool   `json:"cut,omitempty"`
	AutoStart  bool    `json:"autoStart,omitempty"`
	Live       bool    `json:"live,omitempty"` // bound per incoming note instead of at startup
}

// OutputConfig defines the synth MIDI output
type OutputConfig struct {
	PortName string `json:"portName,omitempty"`
	Channel  uint8  `json:"channel,omitempty"`
}

// InputConfig defines an optional MIDI input for live playing
type InputConfig struct {
	PortName string `json:"portName,omitempty"`
	Enabled  bool   `json:"enabled,omitempty"`
}

// DefaultsConfig seeds pattern fields left unset
type DefaultsConfig struct {
	Velocity   int     `json:"velocity,omitempty"`
	Length     float64 `json:"length,omitempty"`
	CycleBeats float64 `json:"cycleBeats,omitempty"`
	Root       string  `json:"root,omitempty"`
	Seed       uint64  `json:"seed,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Output   OutputConfig    `json:"output,omitempty"`
	Input    InputConfig     `json:"input,omitempty"`
	BPM      float64         `json:"bpm,omitempty"`
	PPQ      int             `json:"ppq,omitempty"`
	Palette  string          `json:"palette,omitempty"` // .gpl path; empty uses the built-in gradient
	Defaults DefaultsConfig  `json:"defaults,omitempty"`
	Patterns []PatternConfig `json:"patterns,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		BPM: 120,
		PPQ: 96,
		Defaults: DefaultsConfig{
			Velocity:   100,
			Length:     0,
			CycleBeats: 1,
			Root:       "c4",
		},
		Patterns: []PatternConfig{
			{Name: "lead", Text: "0 [4 7] <12 7> ~", CycleBeats: 2},
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "trapcode"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found.
// Pattern text is validated here so a typo fails at startup instead of at
// the first tick.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

// LoadFile reads a config from an explicit path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks pattern text and note names without touching MIDI.
func (c *Config) Validate() error {
	if c.Defaults.Root != "" {
		if _, err := pattern.ParseNoteName(c.Defaults.Root); err != nil {
			return fmt.Errorf("defaults.root: %w", err)
		}
	}
	seen := make(map[string]bool)
	for _, p := range c.Patterns {
		if p.Name == "" {
			return fmt.Errorf("pattern %q has no name", p.Text)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate pattern name %q", p.Name)
		}
		seen[p.Name] = true
		if _, err := pattern.Parse(p.Text); err != nil {
			return fmt.Errorf("pattern %q: %w", p.Name, err)
		}
		if p.Root != "" {
			if _, err := pattern.ParseNoteName(p.Root); err != nil {
				return fmt.Errorf("pattern %q root: %w", p.Name, err)
			}
		}
	}
	return nil
}

// RootNote resolves a pattern's root to a MIDI note, falling back to the
// config default and then middle C.
func (c *Config) RootNote(p PatternConfig) int {
	name := p.Root
	if name == "" {
		name = c.Defaults.Root
	}
	if name == "" {
		name = "c4"
	}
	n, err := pattern.ParseNoteName(name)
	if err != nil {
		return 60
	}
	return n
}

// Save writes the config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes the config to an explicit path.
func (c *Config) SaveFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// FindPattern finds a pattern config by name
func (c *Config) FindPattern(name string) *PatternConfig {
	for i := range c.Patterns {
		if c.Patterns[i].Name == name {
			return &c.Patterns[i]
		}
	}
	return nil
}

// SetPattern adds or updates a pattern config
func (c *Config) SetPattern(p PatternConfig) {
	for i := range c.Patterns {
		if c.Patterns[i].Name == p.Name {
			c.Patterns[i] = p
			return
		}
	}
	c.Patterns = append(c.Patterns, p)
}
