package lib

import (
	"crypto/cipher"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/onet/v3/log"

	"go.dedis.ch/ssc"
)

func TestMain(m *testing.M) {
	log.MainTest(m)
}

func TestSeed_New(t *testing.T) {
	_, err := NewSeed(make([]byte, SeedLength-1))
	require.Equal(t, ErrSeedLength, err)

	s, err := NewSeed(make([]byte, SeedLength))
	require.NoError(t, err)
	require.True(t, s.Equal(ZeroSeed()))
}

func TestSeed_Xor(t *testing.T) {
	out, err := Seed{0x01, 0x02}.Xor(Seed{0x03, 0x04})
	require.NoError(t, err)
	require.True(t, out.Equal(Seed{0x02, 0x06}))

	_, err = Seed{0x01}.Xor(Seed{0x01, 0x02})
	require.Equal(t, ErrSeedLength, err)
}

func TestSeed_XorAlgebra(t *testing.T) {
	rand := random.New()
	a := randomSeed(t, rand)
	b := randomSeed(t, rand)
	c := randomSeed(t, rand)

	ab, err := a.Xor(b)
	require.NoError(t, err)
	ba, err := b.Xor(a)
	require.NoError(t, err)
	require.True(t, ab.Equal(ba))

	bc, err := b.Xor(c)
	require.NoError(t, err)
	left, err := a.Xor(bc)
	require.NoError(t, err)
	right, err := ab.Xor(c)
	require.NoError(t, err)
	require.True(t, left.Equal(right))

	aa, err := a.Xor(a)
	require.NoError(t, err)
	require.True(t, aa.Equal(ZeroSeed()))

	az, err := a.Xor(ZeroSeed())
	require.NoError(t, err)
	require.True(t, az.Equal(a))
}

func TestSeed_SecretToSeed(t *testing.T) {
	secret := ssc.Suite.Point().Pick(random.New())
	s1, err := SecretToSeed(secret)
	require.NoError(t, err)
	require.Len(t, []byte(s1), SeedLength)

	s2, err := SecretToSeed(secret)
	require.NoError(t, err)
	require.True(t, s1.Equal(s2))

	other, err := SecretToSeed(ssc.Suite.Point().Pick(random.New()))
	require.NoError(t, err)
	require.False(t, s1.Equal(other))
}

func randomSeed(t *testing.T, rand cipher.Stream) Seed {
	s, err := SecretToSeed(ssc.Suite.Point().Pick(rand))
	require.NoError(t, err)
	return s
}
