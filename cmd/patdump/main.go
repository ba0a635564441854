package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/J-Broadway/TrapCode/midi"
	"github.com/J-Broadway/TrapCode/pattern"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "ports":
		listPorts()
	case "dump":
		dump(os.Args[2:])
	case "note":
		noteName(os.Args[2:])
	default:
		usage()
	}
}

func usage() {
	fmt.Println("Pattern inspection tool")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  dump <pattern> [cycles] [root]  - parse and print events")
	fmt.Println("  note <name>                     - resolve a note name to MIDI")
	fmt.Println("  ports                           - list MIDI output ports")
}

func listPorts() {
	ports := midi.Ports()
	if len(ports) == 0 {
		fmt.Println("No MIDI output ports")
		return
	}
	for i, name := range ports {
		fmt.Printf("  %d: %s\n", i, name)
	}
}

func dump(args []string) {
	if len(args) < 1 {
		usage()
		return
	}
	text := args[0]

	cycles := int64(1)
	if len(args) >= 2 {
		n, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil || n < 1 {
			fmt.Printf("bad cycle count %q\n", args[1])
			return
		}
		cycles = n
	}

	root := 60
	if len(args) >= 3 {
		n, err := pattern.ParseNoteName(args[2])
		if err != nil {
			fmt.Printf("bad root: %v\n", err)
			return
		}
		root = n
	}

	p, err := pattern.Parse(text)
	if err != nil {
		fmt.Printf("parse: %v\n", err)
		os.Exit(1)
	}

	span := pattern.Span{Begin: pattern.NewRat(0, 1), End: pattern.NewRat(cycles, 1)}
	haps := p.Query(span, root, 1)

	fmt.Printf("%q over %d cycle(s), root %d\n\n", text, cycles, root)
	fmt.Printf("%-12s %-12s %-12s %s\n", "onset", "end", "length", "note")
	for _, h := range haps {
		if !h.HasOnset() {
			continue
		}
		fmt.Printf("%-12s %-12s %-12s %d\n",
			h.Whole.Begin, h.Whole.End, h.Whole.Length(), h.Value)
	}
}

func noteName(args []string) {
	if len(args) < 1 {
		usage()
		return
	}
	n, err := pattern.ParseNoteName(args[0])
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s = %d\n", args[0], n)
}
