//go:build !windows

/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights - Escape Key Cancellation
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package chat

import (
	"context"
	"os"
	"syscall"
	"time"

	"golang.org/x/term"
)

// KeyEscape is the byte sent by a lone Escape key press
const KeyEscape = 0x1b

const (
	pollInterval   = 20 * time.Millisecond
	sequenceWindow = 50 * time.Millisecond
)

// ListenForEscape calls cancel when Escape is pressed while a request is
// in flight. It returns once done is closed or ctx ends. Arrow keys also
// start with ESC, so an ESC followed quickly by more bytes is ignored.
func ListenForEscape(ctx context.Context, done <-chan struct{}, cancel context.CancelFunc) {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return // not a terminal
	}
	defer func() {
		_ = term.Restore(fd, oldState) //nolint:errcheck // Best effort restore
	}()

	buf := make([]byte, 8)
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		default:
		}

		if !stdinHasData(fd, pollInterval) {
			continue
		}
		n, err := syscall.Read(fd, buf[:1])
		if err != nil || n == 0 || buf[0] != KeyEscape {
			continue
		}

		if stdinHasData(fd, sequenceWindow) {
			_, _ = syscall.Read(fd, buf) //nolint:errcheck // Drain the escape sequence
			continue
		}
		cancel()
		return
	}
}
