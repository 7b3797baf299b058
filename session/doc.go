// Package session resolves agent-side session identity from the
// handshake payload and environment-variable fallback of spec.md §6.
package session
