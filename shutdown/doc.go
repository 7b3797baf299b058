// Package shutdown implements the phased shutdown coordinator (C11) of
// spec.md §4.10.
package shutdown
