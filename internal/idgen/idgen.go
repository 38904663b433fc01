// Package idgen derives stable 128-bit resource identifiers from a fixed
// namespace, a per-resource-type tag byte, and arbitrary seed bytes, so the
// same physical device always yields the same identifier across restarts
// (spec.md P1).
package idgen

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// Namespace is the fixed root namespace all derived ids hash under. The
// value itself carries no meaning beyond being stable across releases: it
// keys persisted state, so it must never change.
var Namespace = uuid.MustParse("a4c4da04-95c9-4c70-a0d2-3053a55c8afb")

// RType tags the resource kind contributing to id derivation. Values are
// assigned once and never reused or renumbered — like Namespace, they key
// persisted state.
type RType byte

const (
	RTypeDevice RType = iota + 1
	RTypeLight
	RTypeGroupedLight
	RTypeRoom
	RTypeScene
	RTypeBridgeHome
	RTypeEntertainment
	RTypeEntertainmentConfiguration
	RTypeZigbeeConnectivity
	RTypeButton
	RTypeBridge
	RTypeTaurus
	RTypeStub
)

// Deterministic derives a 128-bit identifier from the fixed namespace, the
// type tag, and seed. Equal (tag, seed) pairs always yield equal ids; this
// is the Go equivalent of UUIDv5 derivation and requires no randomness or
// wall-clock input.
func Deterministic(tag RType, seed ...[]byte) uuid.UUID {
	total := 1
	for _, s := range seed {
		total += len(s)
	}
	buf := make([]byte, 0, total)
	buf = append(buf, byte(tag))
	for _, s := range seed {
		buf = append(buf, s...)
	}
	return uuid.NewSHA1(Namespace, buf)
}

// DeterministicString is a convenience wrapper for string seeds.
func DeterministicString(tag RType, seed string) uuid.UUID {
	return Deterministic(tag, []byte(seed))
}

// DeterministicFrom derives a new id from an existing id plus a type tag —
// used e.g. to derive a Light id from its owning Device's id
// (`RType::Light.deterministic(link_device)` in the reference backend).
func DeterministicFrom(tag RType, from uuid.UUID) uuid.UUID {
	b := [16]byte(from)
	return Deterministic(tag, b[:])
}

// DeterministicIndexed derives an id from a string seed plus a numeric
// index, used for WLED segments (`(name, index)` tuples).
func DeterministicIndexed(tag RType, seed string, index uint64) uuid.UUID {
	idxBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(idxBytes, index)
	return Deterministic(tag, []byte(seed), idxBytes)
}
