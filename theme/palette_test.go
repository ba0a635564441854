package theme

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadGPL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.gpl")
	data := `GIMP Palette
Name: Test Gradient
Columns: 3
# comment line
10 20 30	dark
120 130 140	mid
250 240 230	light
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadGPL(path)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Test Gradient" {
		t.Fatalf("Name = %q, want %q", p.Name, "Test Gradient")
	}
	if len(p.Colors) != 3 {
		t.Fatalf("got %d colors, want 3", len(p.Colors))
	}
	if p.Colors[0] != (RGB{10, 20, 30}) || p.Colors[2] != (RGB{250, 240, 230}) {
		t.Fatalf("colors = %v", p.Colors)
	}
}

func TestLoadGPLRejectsEmptyPalette(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.gpl")
	if err := os.WriteFile(path, []byte("GIMP Palette\nName: Nothing\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadGPL(path); err == nil {
		t.Fatal("expected error for a palette with no colors")
	}
}

func TestLoadGPLMissingFile(t *testing.T) {
	if _, err := LoadGPL(filepath.Join(t.TempDir(), "absent.gpl")); err == nil {
		t.Fatal("expected error for a missing file")
	}
}

func TestDefaultLookupEndpoints(t *testing.T) {
	p := Default()
	if p.Lookup(0) != p.Colors[0] {
		t.Fatal("Lookup(0) should return the first color")
	}
	if p.Lookup(1) != p.Colors[len(p.Colors)-1] {
		t.Fatal("Lookup(1) should return the last color")
	}
	if p.Lookup(-2) != p.Colors[0] || p.Lookup(2) != p.Colors[len(p.Colors)-1] {
		t.Fatal("out-of-range lookups should clamp to the endpoints")
	}
}
