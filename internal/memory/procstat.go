package memory

import (
	"bytes"
	"fmt"
	"time"
)

// parseProcState returns the state letter from /proc/<pid>/stat content.
// The command name is parenthesized and may itself contain ") ", so the
// state is taken after the last ')'.
func parseProcState(stat []byte) (byte, error) {
	i := bytes.LastIndexByte(stat, ')')
	if i < 0 || i+2 >= len(stat) || stat[i+1] != ' ' {
		return 0, fmt.Errorf("memory: malformed stat %q", stat)
	}
	return stat[i+2], nil
}

// waitStopped polls read until the reported state is stopped ('T') or
// traced ('t'). It fails once the process is gone or timeout passes.
func waitStopped(read func() ([]byte, error), timeout, interval time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		stat, err := read()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrNotStopped, err)
		}
		state, err := parseProcState(stat)
		if err != nil {
			return err
		}
		switch state {
		case 'T', 't':
			return nil
		case 'Z', 'X', 'x':
			return fmt.Errorf("%w: state %c", ErrNotStopped, state)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: still in state %c after %v", ErrNotStopped, state, timeout)
		}
		time.Sleep(interval)
	}
}
