// Package identity defines the 48-bit node identifier used throughout the
// protocol engine, and the opaque signing seam required by the handshake
// layer (charging). Signing itself is explicitly out of scope: the core only
// needs an interface it can call through, per spec's external-collaborator
// model for cryptography.
package identity

import (
	"encoding/binary"
	"fmt"
)

// NodeID is a 48-bit opaque identifier, unique per node for the lifetime of
// a simulation run. It is stored in the low 48 bits of a uint64; the top 16
// bits are always zero.
type NodeID uint64

// MaxNodeID is the largest value a NodeID may hold (2^48 - 1).
const MaxNodeID NodeID = 1<<48 - 1

// NodeIDFromBytes reads a big-endian 6-byte node id, as it appears on the
// wire in the sender_id header field and the PREVIOUS_HOP / PROVIDER_ID /
// CONSUMER_ID / HEAD_ID TLVs.
func NodeIDFromBytes(b [6]byte) NodeID {
	var buf [8]byte
	copy(buf[2:], b[:])
	return NodeID(binary.BigEndian.Uint64(buf[:]))
}

// Bytes renders the node id as the 6-byte big-endian form used on the wire.
func (id NodeID) Bytes() [6]byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id))
	var out [6]byte
	copy(out[:], buf[2:])
	return out
}

// Valid reports whether id fits in 48 bits.
func (id NodeID) Valid() bool {
	return id <= MaxNodeID
}

// String renders the id the way node names appear in logs and traces.
func (id NodeID) String() string {
	return fmt.Sprintf("%012x", uint64(id))
}

// Signer is the opaque external signing service. The core never implements
// cryptography; NopSigner exists only so components that take a Signer can
// be constructed and tested without a real PKI wired in.
type Signer interface {
	Sign(payload []byte) ([]byte, error)
	Verify(payload, signature []byte) bool
}

// NopSigner is a pass-through Signer: it signs nothing and accepts every
// signature. Production deployments must supply a real Signer.
type NopSigner struct{}

// Sign returns an empty signature.
func (NopSigner) Sign(payload []byte) ([]byte, error) { return nil, nil }

// Verify always reports success.
func (NopSigner) Verify(payload, signature []byte) bool { return true }
