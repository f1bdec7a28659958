package ui

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"golang.org/x/term"
)

var terminalInitialized bool

// InitTerminal prepares the terminal before any lipgloss/bubbletea
// output. termenv probes the background color with an OSC 11 query and
// the terminal's reply can land in the middle of our stdout; presetting
// COLORFGBG skips the probe entirely.
func InitTerminal() {
	if terminalInitialized {
		return
	}
	terminalInitialized = true

	if os.Getenv("COLORFGBG") == "" {
		os.Setenv("COLORFGBG", "0;15")
	}

	if term.IsTerminal(int(os.Stdout.Fd())) {
		// Focus in/out events (^[[I / ^[[O) corrupt progress lines on
		// iTerm2 and friends; turn reporting off and drain any replies
		// already in flight.
		fmt.Fprint(os.Stdout, "\033[?1004l")
		time.Sleep(20 * time.Millisecond)
		FlushStdinWithTimeout(150 * time.Millisecond)
	}
}

// ResetTerminalAfterTUI restores sane terminal modes once the sync view
// exits. bubbletea turns its own modes off, but late async responses
// (cursor position reports, OSC replies) can still arrive after the
// program returns and would print as garbage into the summary.
func ResetTerminalAfterTUI() {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return
	}

	fmt.Fprint(os.Stdout, "\033[?1004l") // focus reporting off
	fmt.Fprint(os.Stdout, "\033[?1003l") // mouse tracking off
	fmt.Fprint(os.Stdout, "\033[?1000l")
	fmt.Fprint(os.Stdout, "\033[?1006l")
	fmt.Fprint(os.Stdout, "\033[?25h") // cursor back on
	fmt.Fprint(os.Stdout, "\r")

	time.Sleep(30 * time.Millisecond)
	FlushStdinWithTimeout(150 * time.Millisecond)
}

// FlushStdinWithTimeout discards pending stdin bytes for the given
// duration. Only runs when stdin is a terminal: reading from a pipe
// here would eat real input.
func FlushStdinWithTimeout(timeout time.Duration) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return
	}

	if err := syscall.SetNonblock(fd, true); err != nil {
		return
	}
	defer syscall.SetNonblock(fd, false)

	buf := make([]byte, 256)
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if n, _ := os.Stdin.Read(buf); n <= 0 {
			time.Sleep(5 * time.Millisecond)
		}
	}
}
