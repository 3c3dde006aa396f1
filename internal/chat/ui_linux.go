//go:build linux

/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights - Terminal Input Polling
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package chat

import (
	"syscall"
	"time"
)

// stdinHasData reports whether fd becomes readable within timeout
func stdinHasData(fd int, timeout time.Duration) bool {
	var readFds syscall.FdSet
	readFds.Bits[fd/64] |= 1 << (uint(fd) % 64)

	// Usec is int64 on Linux
	tv := syscall.Timeval{
		Sec:  int64(timeout / time.Second),
		Usec: int64((timeout % time.Second) / time.Microsecond),
	}

	n, err := syscall.Select(fd+1, &readFds, nil, nil, &tv)
	return err == nil && n > 0
}
