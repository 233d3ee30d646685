package main

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// LineEditor reads input lines in raw mode with history and basic editing.
type LineEditor struct {
	fd      int
	history []string
}

// NewLineEditor creates an editor over stdin.
func NewLineEditor() *LineEditor {
	return &LineEditor{fd: int(os.Stdin.Fd())}
}

// Close releases nothing today; it exists so callers can defer cleanup
// symmetrically with NewLineEditor.
func (e *LineEditor) Close() {}

// ReadLine reads one line, returning io.EOF on Ctrl-D at an empty prompt.
func (e *LineEditor) ReadLine(prompt string) (string, error) {
	oldState, err := term.MakeRaw(e.fd)
	if err != nil {
		return "", err
	}
	defer term.Restore(e.fd, oldState)

	fmt.Print(prompt)

	var line []rune
	histIndex := len(e.history)
	buf := make([]byte, 1)

	redraw := func() {
		fmt.Print("\r\x1b[K", prompt, string(line))
	}

	for {
		if _, err := os.Stdin.Read(buf); err != nil {
			return "", err
		}
		switch c := buf[0]; c {
		case '\r', '\n':
			fmt.Print("\r\n")
			text := string(line)
			if text != "" {
				e.history = append(e.history, text)
			}
			return text, nil
		case 0x03: // Ctrl-C: drop the line
			fmt.Print("^C\r\n", prompt)
			line = line[:0]
			histIndex = len(e.history)
		case 0x04: // Ctrl-D
			if len(line) == 0 {
				return "", io.EOF
			}
		case 0x7f, 0x08: // backspace
			if len(line) > 0 {
				line = line[:len(line)-1]
				redraw()
			}
		case 0x1b: // escape sequence
			seq := make([]byte, 2)
			if _, err := os.Stdin.Read(seq[:1]); err != nil {
				return "", err
			}
			if seq[0] != '[' {
				continue
			}
			if _, err := os.Stdin.Read(seq[1:]); err != nil {
				return "", err
			}
			switch seq[1] {
			case 'A': // up
				if histIndex > 0 {
					histIndex--
					line = []rune(e.history[histIndex])
					redraw()
				}
			case 'B': // down
				if histIndex < len(e.history) {
					histIndex++
					if histIndex == len(e.history) {
						line = line[:0]
					} else {
						line = []rune(e.history[histIndex])
					}
					redraw()
				}
			}
		default:
			if c >= 0x20 {
				line = append(line, rune(c))
				fmt.Print(string(rune(c)))
			}
		}
	}
}
