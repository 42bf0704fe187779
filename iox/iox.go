// Package iox provides small I/O cleanup helpers, used by the audit logger
// and the webhook relay.
package iox

import "io"

// DiscardClose closes c and discards the error.
// Use in defer statements where close errors are unactionable:
//
//	defer iox.DiscardClose(f)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc returns a cleanup function that closes c.
// Designed for t.Cleanup and b.Cleanup registration:
//
//	t.Cleanup(iox.CloseFunc(client))
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}

// DiscardErr calls fn and discards the returned error.
// Use for non-Close cleanup calls (e.g. Flush) where errors are unactionable:
//
//	defer iox.DiscardErr(w.Flush)
func DiscardErr(fn func() error) { _ = fn() }

// LogFunc is called with a non-nil close error.
type LogFunc func(err error)

// CloseLogged closes c and routes any error to log instead of discarding it,
// for handles where a silently discarded close error could hide a
// truncated write.
func CloseLogged(c io.Closer, log LogFunc) {
	if err := c.Close(); err != nil && log != nil {
		log(err)
	}
}
