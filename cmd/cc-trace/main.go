// Command cc-trace renders a Claude agent event stream for humans: a live
// activity trace while the stream is read, then a conversation timeline
// and final summary card when it ends.
//
// Input is newline-delimited stream-json, read from stdin or a file:
//
//	claude -p "..." --output-format stream-json | cc-trace
//	cc-trace -input turn.jsonl -mode plain
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nixlim/cc-trace/internal/config"
	"github.com/nixlim/cc-trace/internal/events"
	"github.com/nixlim/cc-trace/internal/render"
	"github.com/nixlim/cc-trace/internal/tracker"
	"github.com/nixlim/cc-trace/internal/tui"
)

func main() {
	configFlag := flag.String("config", "", "Path to config file (default ~/.config/cc-trace/config.toml)")
	inputFlag := flag.String("input", "-", "Event stream file, or - for stdin")
	modeFlag := flag.String("mode", "", "Render mode: auto, document, or plain (overrides config)")
	modelFlag := flag.String("model", "", "Model name shown on the final card (default: from the init event)")
	followFlag := flag.Bool("follow", false, "Show the live trace in a scrolling terminal UI")
	responseFlag := flag.Bool("response-only", false, "Print only the final response card")
	flag.Parse()

	var loadResult *config.LoadResult
	var err error
	if *configFlag != "" {
		loadResult, err = config.LoadFrom(*configFlag)
	} else {
		loadResult, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "cc-trace: config error: %v\n", err)
		os.Exit(1)
	}
	cfg := loadResult.Config

	for _, w := range loadResult.Warnings {
		fmt.Fprintf(os.Stderr, "cc-trace: config warning: %s\n", w)
	}

	modeName := cfg.Render.Mode
	if *modeFlag != "" {
		modeName = *modeFlag
	}
	mode, err := render.ParseMode(modeName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cc-trace: %v\n", err)
		os.Exit(1)
	}

	in, err := openInput(*inputFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cc-trace: %v\n", err)
		os.Exit(1)
	}
	defer in.Close()

	renderer := render.New(
		render.WithMode(mode),
		render.WithMarkdownStyle(cfg.Render.MarkdownStyle),
		render.WithMaxBodyLines(cfg.Render.MaxBodyLines),
	)

	collector := events.NewCollector(cfg.Display.EventBufferSize)
	dec := events.NewDecoder(in)

	if *followFlag {
		if err := runFollow(dec, collector, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "cc-trace: %v\n", err)
			os.Exit(1)
		}
	} else if err := runLive(dec, collector, cfg, renderer, *responseFlag); err != nil {
		fmt.Fprintf(os.Stderr, "cc-trace: %v\n", err)
		os.Exit(1)
	}

	evts := collector.Events()
	if *responseFlag {
		fmt.Print(renderer.ResponseCard(evts))
		return
	}
	fmt.Println()
	fmt.Print(renderer.Transcript(evts))
	fmt.Println()
	fmt.Print(renderer.FinalCard(evts, *modelFlag))
}

// runLive drives the tracker directly against stdout while collecting the
// transcript.
func runLive(dec *events.Decoder, collector *events.Collector, cfg config.Config, renderer *render.Renderer, quiet bool) error {
	sink := io.Writer(os.Stdout)
	if quiet {
		sink = io.Discard
	}
	tr := tracker.New(sink,
		tracker.WithStyling(cfg.Display.ActivityStyling && renderer.Mode() == render.ModeDocument),
		tracker.WithMaxWidth(cfg.Display.MaxWidth),
	)
	ctx := &tracker.Context{}
	ctx.Reset()

	for {
		ev, err := dec.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		tr.Handle(ctx, ev)
		collector.Add(ev)
	}
}

// runFollow drives the tracker into a channel feeding the follow TUI.
func runFollow(dec *events.Decoder, collector *events.Collector, cfg config.Config) error {
	lines := make(chan string, 64)
	tr := tracker.New(&lineWriter{ch: lines},
		tracker.WithStyling(cfg.Display.ActivityStyling),
		tracker.WithMaxWidth(cfg.Display.MaxWidth),
	)
	ctx := &tracker.Context{}
	ctx.Reset()

	go func() {
		defer close(lines)
		for {
			ev, err := dec.Next()
			if err != nil {
				return
			}
			tr.Handle(ctx, ev)
			collector.Add(ev)
		}
	}()

	p := tea.NewProgram(tui.NewModel(lines), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// lineWriter forwards each written line to a channel.
type lineWriter struct {
	ch  chan string
	buf strings.Builder
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		s := w.buf.String()
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			break
		}
		w.ch <- s[:i]
		w.buf.Reset()
		w.buf.WriteString(s[i+1:])
	}
	return len(p), nil
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	return f, nil
}
