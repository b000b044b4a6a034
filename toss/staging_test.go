package toss

import (
	"testing"

	"github.com/stretchr/testify/require"

	"go.dedis.ch/ssc/lib"
)

func TestStaging_ReadThrough(t *testing.T) {
	parts := makeParticipants(t, 3, 2, 0)
	source := NewState(nil)
	populate(t, source, parts[:2])

	st := NewStaging(source)
	require.Len(t, st.Commitments(), 2)

	st.PutCommitment(parts[2].sc)
	st.PutCertificate(parts[2].cert)
	require.Len(t, st.Commitments(), 3)
	require.Len(t, st.Certificates(), 3)
	// Nothing reached the source yet.
	require.Len(t, source.Commitments(), 2)
	require.Len(t, source.Certificates(), 2)

	st.DelCommitment(parts[0].id)
	require.Len(t, st.Commitments(), 2)
	require.Len(t, source.Commitments(), 2)
}

func TestStaging_Commit(t *testing.T) {
	parts := makeParticipants(t, 3, 2, 0)
	source := NewState(nil)
	populate(t, source, parts[:2])

	st := NewStaging(source)
	st.PutCertificate(parts[2].cert)
	st.PutCommitment(parts[2].sc)
	st.PutOpening(parts[2].id, parts[2].opening)
	st.DelOpening(parts[0].id)
	st.DelShares(parts[0].id)
	require.NoError(t, st.SetEpochOrSlot(lib.NewSlotPos(0, 4)))

	require.NoError(t, st.Commit())

	require.Len(t, source.Commitments(), 3)
	require.Len(t, source.Openings(), 2)
	_, ok := source.Openings()[parts[0].id]
	require.False(t, ok)
	require.Equal(t, lib.NewSlotPos(0, 4), source.EpochOrSlot())
	checkInvariants(t, source, 0)

	// The journal is emptied by the commit; a second commit is a no-op.
	require.NoError(t, st.Commit())
	require.Len(t, source.Commitments(), 3)
}

func TestStaging_Rollback(t *testing.T) {
	parts := makeParticipants(t, 3, 2, 0)
	source := NewState(nil)
	populate(t, source, parts[:2])

	st := NewStaging(source)
	st.PutCommitment(parts[2].sc)
	st.DelCommitment(parts[0].id)
	st.ResetCOS()
	require.NoError(t, st.SetEpochOrSlot(lib.NewSlotPos(0, 9)))

	st.Rollback()

	require.Len(t, source.Commitments(), 2)
	require.Len(t, source.Openings(), 2)
	require.Equal(t, lib.NewEpochBoundary(0), source.EpochOrSlot())
	// The staging is reusable after a rollback.
	require.Len(t, st.Commitments(), 2)
	require.Equal(t, lib.NewEpochBoundary(0), st.EpochOrSlot())
}

func TestStaging_Reset(t *testing.T) {
	parts := makeParticipants(t, 3, 2, 0)
	source := NewState(nil)
	populate(t, source, parts)

	st := NewStaging(source)
	st.ResetCOS()
	st.PutCommitment(parts[0].sc)

	require.Len(t, st.Commitments(), 1)
	require.Len(t, st.Openings(), 0)
	require.Len(t, st.Shares(), 0)
	// Certificates survive a staged reset.
	require.Len(t, st.Certificates(), 3)
	require.Len(t, source.Commitments(), 3)

	require.NoError(t, st.Commit())
	require.Len(t, source.Commitments(), 1)
	require.Len(t, source.Openings(), 0)
	require.Len(t, source.Certificates(), 3)
}

func TestStaging_Clock(t *testing.T) {
	source := NewState(nil)
	require.NoError(t, source.SetEpochOrSlot(lib.NewSlotPos(1, 2)))

	st := NewStaging(source)
	require.Equal(t, ErrClock, st.SetEpochOrSlot(lib.NewSlotPos(1, 1)))
	require.NoError(t, st.SetEpochOrSlot(lib.NewSlotPos(1, 3)))
	require.Equal(t, ErrClock, st.SetEpochOrSlot(lib.NewSlotPos(1, 2)))
	require.Equal(t, lib.NewSlotPos(1, 3), st.EpochOrSlot())
	require.Equal(t, lib.NewSlotPos(1, 2), source.EpochOrSlot())
}
