package lib

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/util/key"
	"go.dedis.ch/kyber/v3/util/random"

	"go.dedis.ch/ssc"
)

func vssKeyPairs(n int) ([]kyber.Scalar, []kyber.Point) {
	privs := make([]kyber.Scalar, n)
	pubs := make([]kyber.Point, n)
	for i := 0; i < n; i++ {
		kp := key.NewKeyPair(ssc.Suite)
		privs[i] = kp.Private
		pubs[i] = kp.Public
	}
	return privs, pubs
}

func TestGenCommitmentAndOpening(t *testing.T) {
	_, pubs := vssKeyPairs(3)

	c, o, err := GenCommitmentAndOpening(2, pubs, random.New())
	require.NoError(t, err)
	require.Len(t, c.Shares, 3)
	require.Equal(t, 2, c.Threshold())
	for i, vk := range pubs {
		require.True(t, c.Shares[i].VssKey.Equal(vk))
	}
	require.NoError(t, VerifyCommitment(c))
	require.NoError(t, VerifyOpening(c, o))
}

// Any valid (t, n) pair must produce a commitment and opening that verify
// against each other.
func TestGenCommitmentAndOpening_Range(t *testing.T) {
	for n := 1; n <= 5; n++ {
		_, pubs := vssKeyPairs(n)
		for thr := 1; thr <= n; thr++ {
			c, o, err := GenCommitmentAndOpening(thr, pubs, random.New())
			require.NoError(t, err, "t=%d n=%d", thr, n)
			require.NoError(t, VerifyCommitment(c), "t=%d n=%d", thr, n)
			require.NoError(t, VerifyOpening(c, o), "t=%d n=%d", thr, n)
		}
	}
}

func TestGenCommitmentAndOpening_BadThreshold(t *testing.T) {
	_, pubs := vssKeyPairs(3)

	_, _, err := GenCommitmentAndOpening(0, pubs, random.New())
	require.Equal(t, ErrBadThreshold, err)
	_, _, err = GenCommitmentAndOpening(4, pubs, random.New())
	require.Equal(t, ErrBadThreshold, err)
}

func TestGenCommitmentAndOpening_DuplicateKey(t *testing.T) {
	_, pubs := vssKeyPairs(3)
	pubs[2] = pubs[0]

	_, _, err := GenCommitmentAndOpening(2, pubs, random.New())
	require.Equal(t, ErrDuplicateVssKey, err)
}

// Two runs with the same inputs must produce independent secrets.
func TestGenCommitmentAndOpening_Fresh(t *testing.T) {
	_, pubs := vssKeyPairs(3)

	c1, o1, err := GenCommitmentAndOpening(2, pubs, random.New())
	require.NoError(t, err)
	c2, o2, err := GenCommitmentAndOpening(2, pubs, random.New())
	require.NoError(t, err)

	require.False(t, o1.Secret.Equal(o2.Secret))
	require.False(t, c1.Equal(c2))
	require.Error(t, VerifyOpening(c1, o2))
	require.Error(t, VerifyOpening(c2, o1))
}
