// Package interaction handles keyboard input for the live dashboard.
package interaction

import (
	"os"

	"golang.org/x/term"
)

// KeyType represents the type of key pressed
type KeyType int

const (
	KeyChar KeyType = iota
	KeyEscape
)

// KeyEvent represents a keyboard event
type KeyEvent struct {
	Key  rune
	Type KeyType
}

// KeyboardReader reads keystrokes from stdin in raw mode.
type KeyboardReader struct {
	oldState *term.State
	input    chan KeyEvent
	stop     chan struct{}
}

// NewKeyboardReader switches the terminal to raw mode and starts
// reading. Close restores the terminal.
func NewKeyboardReader() (*KeyboardReader, error) {
	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return nil, err
	}

	kr := &KeyboardReader{
		oldState: oldState,
		input:    make(chan KeyEvent, 10),
		stop:     make(chan struct{}),
	}
	go kr.readInput()
	return kr, nil
}

func (kr *KeyboardReader) readInput() {
	buf := make([]byte, 3)
	for {
		select {
		case <-kr.stop:
			return
		default:
			n, err := os.Stdin.Read(buf)
			if err != nil || n == 0 {
				continue
			}
			event := kr.parseInput(buf[:n])
			if event == nil {
				continue
			}
			select {
			case kr.input <- *event:
			case <-kr.stop:
				return
			}
		}
	}
}

// parseInput parses raw keyboard input
func (kr *KeyboardReader) parseInput(buf []byte) *KeyEvent {
	if len(buf) == 0 {
		return nil
	}

	// Ctrl+C comes through as a plain byte in raw mode.
	if buf[0] == 3 {
		return &KeyEvent{Key: 3, Type: KeyChar}
	}

	if buf[0] == 27 {
		if len(buf) == 1 {
			return &KeyEvent{Key: 27, Type: KeyEscape}
		}
		// Arrow keys and other CSI sequences are not used.
		return nil
	}

	return &KeyEvent{Key: rune(buf[0]), Type: KeyChar}
}

// Events returns the keyboard event channel
func (kr *KeyboardReader) Events() <-chan KeyEvent {
	return kr.input
}

// Close stops the keyboard reader and restores terminal
func (kr *KeyboardReader) Close() error {
	close(kr.stop)
	if kr.oldState != nil {
		return term.Restore(int(os.Stdin.Fd()), kr.oldState)
	}
	return nil
}
