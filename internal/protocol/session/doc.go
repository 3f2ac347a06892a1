// Package session owns one Ember+ TCP session on either side of the wire.
//
// Ownership boundary:
// - S101 message read/write over a net.Conn with timeouts
// - keep-alive answer, probe and dead-peer detection
// - outstanding invocation tracking
// - retry/backoff primitives for consumers
package session
