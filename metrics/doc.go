// Package metrics implements the metrics component (C12) of spec.md
// §4.11: per-thread sliding-window rate derivation and system-wide
// snapshot aggregation.
package metrics
