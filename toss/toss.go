// Package toss holds the per-epoch accumulator of the shared-seed
// computation. The accumulator collects the verified commitments,
// openings, decrypted shares and VSS certificates of the running epoch,
// and reduces them to the epoch seed once the epoch closes.
//
// Writes are unchecked inserts: the caller must have verified every
// message and checked the sender's eligibility before putting it. A
// Staging wrapper journals the writes of one block-application pass so
// the pass can be committed or rolled back atomically.
package toss

import (
	"golang.org/x/xerrors"

	"go.dedis.ch/ssc/lib"
)

// Rejection vocabulary shared by the drivers feeding the accumulator.
var (
	// ErrWrongPhase rejects a message whose carrying slot falls outside
	// the message's phase window.
	ErrWrongPhase = xerrors.New("message outside its phase window")
	// ErrDuplicate rejects a second submission by the same participant
	// for the same phase.
	ErrDuplicate = xerrors.New("participant already submitted this phase")
	// ErrUnknownParticipant rejects a sender without stake or without a
	// stable VSS certificate.
	ErrUnknownParticipant = xerrors.New("participant not eligible")
	// ErrNoCommitment rejects an opening or share referring to a
	// stakeholder that has no commitment this epoch.
	ErrNoCommitment = xerrors.New("no commitment for this participant")
	// ErrClock rejects a position earlier than the current one.
	ErrClock = xerrors.New("clock must not go backwards")
)

// TossRead is the read-only view over the accumulator. The returned maps
// are copies and can be inspected concurrently with other reads.
type TossRead interface {
	// Commitments returns the signed commitments, one per stakeholder.
	Commitments() lib.CommitmentsMap
	// Openings returns the revealed secrets, one per stakeholder.
	Openings() lib.OpeningsMap
	// Shares returns the decrypted shares, keyed by decryptor and then by
	// the stakeholder whose secret the share belongs to.
	Shares() lib.SharesMap
	// Certificates returns the announced VSS keys.
	Certificates() lib.VssCertificatesMap
	// StableCertificates returns the certificates that were settled when
	// the given epoch began.
	StableCertificates(epoch uint32) lib.VssCertificatesMap
	// Richmen returns the stakeholders eligible at the given epoch, or
	// false if the stake distribution is not known yet.
	Richmen(epoch uint32) (lib.StakeSet, bool)
	// EpochOrSlot returns the accumulator's logical clock.
	EpochOrSlot() lib.EpochOrSlot
}

// Toss is the read-write interface over the accumulator. The put
// operations overwrite existing entries; rejecting duplicates is the
// driver's responsibility.
type Toss interface {
	TossRead

	PutCommitment(sc *lib.SignedCommitment)
	PutOpening(id lib.StakeholderID, o *lib.Opening)
	PutShares(id lib.StakeholderID, shares lib.InnerSharesMap)
	PutCertificate(cert *lib.VssCertificate)

	DelCommitment(id lib.StakeholderID)
	DelOpening(id lib.StakeholderID)
	DelShares(id lib.StakeholderID)

	// ResetCOS clears commitments, openings and shares. Certificates
	// persist across epochs until they expire.
	ResetCOS()
	// SetEpochOrSlot advances the logical clock; it never goes backwards.
	SetEpochOrSlot(pos lib.EpochOrSlot) error
}

// Richmen is the stake oracle the accumulator reads eligibility from. The
// oracle is maintained by an external collaborator; the accumulator never
// caches or refreshes it.
type Richmen interface {
	RichmenAt(epoch uint32) (lib.StakeSet, bool)
}

// RichmenMap is a map-backed stake oracle, used by drivers that are told
// the stake distribution explicitly.
type RichmenMap map[uint32]lib.StakeSet

// RichmenAt implements the Richmen interface.
func (m RichmenMap) RichmenAt(epoch uint32) (lib.StakeSet, bool) {
	set, ok := m[epoch]
	return set, ok
}
