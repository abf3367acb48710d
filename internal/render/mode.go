// Package render turns a collected turn transcript into human-readable
// output: a full timeline, a final-answer summary card, and a standalone
// response card, each in document (styled) or plain (box-drawn) mode.
package render

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// Mode selects the output fidelity of the renderer.
type Mode int

const (
	// ModeAuto probes the environment once at construction and resolves
	// to ModeDocument or ModePlain.
	ModeAuto Mode = iota
	// ModeDocument emits styled blocks, rendered markdown, tables, and
	// inline images for capable displays.
	ModeDocument
	// ModePlain emits box-drawn text carrying the same content.
	ModePlain
)

// String returns the mode's config-file spelling.
func (m Mode) String() string {
	switch m {
	case ModeDocument:
		return "document"
	case ModePlain:
		return "plain"
	default:
		return "auto"
	}
}

// ParseMode converts a config-file spelling into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "auto":
		return ModeAuto, nil
	case "document":
		return ModeDocument, nil
	case "plain":
		return ModePlain, nil
	}
	return ModeAuto, fmt.Errorf("unknown render mode %q (want auto, document, or plain)", s)
}

// DetectMode inspects the runtime environment and returns ModeDocument
// when stdout is an interactive terminal that is not declared dumb,
// ModePlain otherwise. It is a pure inspection with no side effects;
// callers override it by passing an explicit mode to New.
func DetectMode() Mode {
	if os.Getenv("TERM") == "dumb" {
		return ModePlain
	}
	fd := os.Stdout.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return ModeDocument
	}
	return ModePlain
}

// detectWidth returns the terminal width, or fallback when stdout is not
// a terminal or the probe fails.
func detectWidth(fallback int) int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}
