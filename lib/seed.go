package lib

import (
	"bytes"
	"encoding/hex"

	"go.dedis.ch/kyber/v3"
	"golang.org/x/xerrors"
)

// SeedLength is the byte length of a shared seed. It equals the encoded
// length of a group element of the suite, since a seed is the reduction of
// a shared-secret point to bytes.
const SeedLength = 32

// ErrSeedLength is returned when two seeds of different lengths are
// combined, or a seed of the wrong length is constructed.
var ErrSeedLength = xerrors.New("seed length mismatch")

// Seed is the shared random value jointly produced by one epoch of the
// protocol, used to elect the slot leaders of a later epoch.
type Seed []byte

// NewSeed returns the given bytes as a seed, checking the length.
func NewSeed(buf []byte) (Seed, error) {
	if len(buf) != SeedLength {
		return nil, ErrSeedLength
	}
	return Seed(buf), nil
}

// ZeroSeed returns the neutral element of Xor.
func ZeroSeed() Seed {
	return make(Seed, SeedLength)
}

// Xor combines two seeds element-wise. The operation is commutative and
// associative with ZeroSeed as identity, so the epoch seed is the same for
// any order of contributions.
func (s Seed) Xor(other Seed) (Seed, error) {
	if len(s) != len(other) {
		return nil, ErrSeedLength
	}
	out := make(Seed, len(s))
	for i := range s {
		out[i] = s[i] ^ other[i]
	}
	return out, nil
}

// Equal compares two seeds bitwise.
func (s Seed) Equal(other Seed) bool {
	return bytes.Equal(s, other)
}

func (s Seed) String() string {
	return hex.EncodeToString(s)
}

// SecretToSeed reduces a shared-secret group element to a seed by taking
// its canonical byte encoding.
func SecretToSeed(secret kyber.Point) (Seed, error) {
	buf, err := secret.MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("marshalling secret: %v", err)
	}
	return NewSeed(buf)
}
