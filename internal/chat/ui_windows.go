//go:build windows

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

import "context"

// ListenForEscape waits for done or ctx. Escape cancellation needs
// select(2) on stdin, which Windows consoles do not offer.
func ListenForEscape(ctx context.Context, done <-chan struct{}, cancel context.CancelFunc) {
	select {
	case <-done:
	case <-ctx.Done():
	}
}
