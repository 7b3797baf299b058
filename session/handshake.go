// File: session/handshake.go
// Package session resolves the agent-side session identity of spec.md §6:
// a handshake payload string, falling back to environment variables, that
// identifies the (host_pid, session_id) pair naming this capture's
// shared-memory arenas.
//
// Grounded on control/config.go's plain key/value parsing style, adapted
// from a long-lived config map to a one-shot payload parse.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package session

import (
	"os"
	"strconv"
	"strings"

	"github.com/momentics/ada-trace/api"
)

// Env var names recognized as fallbacks per spec.md §6.
const (
	EnvHostPID   = "ADA_SHM_HOST_PID"
	EnvSessionID = "ADA_SHM_SESSION_ID"
)

// Identity names one end-to-end capture session, per spec.md's Glossary
// ("one end-to-end capture bounded by agent init and clean or abnormal
// shutdown; identified by (host_pid, session_id)").
type Identity struct {
	HostPID   uint32
	SessionID uint64
}

// payloadSeparators is the accepted set of key/value pair delimiters,
// spec.md §6: "separators ;,\n\r\t accepted".
const payloadSeparators = ";,\n\r\t"

// Resolve parses payload per spec.md §6's handshake contract, falling
// back to ADA_SHM_HOST_PID/ADA_SHM_SESSION_ID when a field is absent or
// malformed, and returning api.ErrInvalidHandshake if both the payload
// and the environment leave either field unresolved.
func Resolve(payload string) (Identity, error) {
	fields := parsePayload(payload)

	hostPID, ok := resolveUint32(fields, "host_pid", "pid", EnvHostPID, 10)
	if !ok {
		return Identity{}, api.ErrInvalidHandshake
	}
	sessionID, ok := resolveUint64(fields, "session_id", "sid", EnvSessionID, 16)
	if !ok {
		return Identity{}, api.ErrInvalidHandshake
	}
	return Identity{HostPID: hostPID, SessionID: sessionID}, nil
}

func parsePayload(payload string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.FieldsFunc(payload, func(r rune) bool {
		return strings.ContainsRune(payloadSeparators, r)
	}) {
		k, v, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return out
}

func resolveUint32(fields map[string]string, primary, alias, envVar string, base int) (uint32, bool) {
	if v, ok := firstKey(fields, primary, alias); ok {
		if n, err := strconv.ParseUint(v, base, 32); err == nil {
			return uint32(n), true
		}
	}
	if v := os.Getenv(envVar); v != "" {
		if n, err := strconv.ParseUint(v, base, 32); err == nil {
			return uint32(n), true
		}
	}
	return 0, false
}

func resolveUint64(fields map[string]string, primary, alias, envVar string, base int) (uint64, bool) {
	if v, ok := firstKey(fields, primary, alias); ok {
		if n, err := parseUintAnyBase(v, base); err == nil {
			return n, true
		}
	}
	// ADA_SHM_SESSION_ID is documented as hex (spec.md §6), unlike the
	// payload field which accepts hex-or-decimal.
	if v := os.Getenv(envVar); v != "" {
		if n, err := strconv.ParseUint(strings.TrimPrefix(v, "0x"), 16, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// parseUintAnyBase accepts the "hex-or-decimal" form spec.md §6 allows
// for session_id: a leading 0x forces hex, otherwise it tries decimal
// first and falls back to hex.
func parseUintAnyBase(v string, preferredBase int) (uint64, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(v, "0x"), "0X")
	if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
		return strconv.ParseUint(trimmed, 16, 64)
	}
	if n, err := strconv.ParseUint(v, 10, 64); err == nil {
		return n, nil
	}
	return strconv.ParseUint(v, preferredBase, 64)
}

func firstKey(fields map[string]string, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := fields[k]; ok && v != "" {
			return v, true
		}
	}
	return "", false
}
