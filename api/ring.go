// Package api
// Author: momentics
//
// Ring contract for the fixed-width, single-producer/single-consumer event
// ring shared between a hook thread and the drain thread.

package api

// Ring is a fixed-capacity SPSC circular buffer of fixed-width records.
// Exactly one producer goroutine (or OS thread, via cgo) and one consumer
// goroutine may call the respective halves of this interface concurrently;
// calling Write from two producers, or Read from two consumers, breaks the
// lock-free invariants.
type Ring[T any] interface {
	// Write appends one record. Returns false if the ring is full; on
	// failure the ring increments its overflow counter internally.
	Write(rec T) bool

	// Read removes and returns the oldest record; ok is false if empty.
	Read() (rec T, ok bool)

	// ReadBatch drains up to max records into buf, returning the count
	// actually read.
	ReadBatch(buf []T, max int) int

	// DropOldest advances the read position by one without returning the
	// record, reclaiming a slot during pool exhaustion. Returns false if
	// the ring was already empty.
	DropOldest() bool

	// AvailableRead reports the number of records ready for Read.
	AvailableRead() int

	// AvailableWrite reports the number of free slots for Write.
	AvailableWrite() int

	// OverflowCount reports the number of Write calls that found the ring
	// full, since construction.
	OverflowCount() uint64

	// Cap returns the fixed, power-of-two capacity.
	Cap() int
}
