package interaction

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// KeyboardReader decodes raw-mode keyboard input into intents
type KeyboardReader struct {
	oldState *unix.Termios
	intents  chan Intent
	stop     chan struct{}
}

// NewKeyboardReader switches the terminal to raw mode and starts decoding
func NewKeyboardReader() (*KeyboardReader, error) {
	kr := &KeyboardReader{
		intents: make(chan Intent, 10),
		stop:    make(chan struct{}),
	}

	if err := kr.enableRawMode(); err != nil {
		return nil, err
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

			intent := decodeKey(buf[:n])
			if intent == IntentNone {
				continue
			}

			select {
			case kr.intents <- intent:
			case <-kr.stop:
				return
			}
		}
	}
}

// decodeKey maps one raw input chunk to an intent.
func decodeKey(buf []byte) Intent {
	if len(buf) == 0 {
		return IntentNone
	}

	// Ctrl+C
	if buf[0] == 3 {
		return IntentQuit
	}

	// Arrow keys arrive as ESC [ A / ESC [ B.
	if buf[0] == 27 {
		if len(buf) >= 3 && buf[1] == '[' {
			switch buf[2] {
			case 'A':
				return IntentSelectUp
			case 'B':
				return IntentSelectDown
			}
		}
		return IntentNone
	}

	switch buf[0] {
	case 'q', 'Q':
		return IntentQuit
	case 's', 'S':
		return IntentToggleMonitor
	case 'd', 'D':
		return IntentDeleteMonitor
	case 'r', 'R':
		return IntentReconnectMonitor
	case 'x', 'X':
		return IntentTerminateConnections
	case 'c', 'C':
		return IntentClearFeed
	case 'k', 'K':
		return IntentSelectUp
	case 'j', 'J':
		return IntentSelectDown
	default:
		return IntentNone
	}
}

// Poll waits up to timeout for the next intent.
func (kr *KeyboardReader) Poll(timeout time.Duration) (Intent, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case intent := <-kr.intents:
		return intent, true
	case <-timer.C:
		return IntentNone, false
	}
}

// Close stops the reader and restores the terminal
func (kr *KeyboardReader) Close() error {
	close(kr.stop)
	return kr.disableRawMode()
}
