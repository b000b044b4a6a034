package service

import (
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/share/pvss"
	"go.dedis.ch/onet/v3/network"

	"go.dedis.ch/ssc/lib"
)

func init() {
	network.RegisterMessages(
		&Configure{}, &ConfigureReply{},
		&SetRichmen{}, &SetRichmenReply{},
		&AdvanceClock{}, &AdvanceClockReply{},
		&ProcessCommitment{}, &ProcessCommitmentReply{},
		&ProcessOpening{}, &ProcessOpeningReply{},
		&ProcessShares{}, &ProcessSharesReply{},
		&ProcessCertificate{}, &ProcessCertificateReply{},
		&ApplyBlock{}, &ApplyBlockReply{},
		&GetSeed{}, &GetSeedReply{},
		&GetStatus{}, &GetStatusReply{},
	)
}

// Configure sets the protocol constant k at system initialization. It is
// immutable afterwards.
type Configure struct {
	K uint32
}

// ConfigureReply is returned once the node accepted the constant.
type ConfigureReply struct{}

// Stake is one stakeholder's coin in a stake distribution.
type Stake struct {
	Public kyber.Point
	Coin   uint64
}

// SetRichmen installs the stake distribution for an epoch, as reported by
// the stake oracle.
type SetRichmen struct {
	Epoch  uint32
	Stakes []Stake
}

// SetRichmenReply is returned once the distribution is installed.
type SetRichmenReply struct{}

// AdvanceClock moves the accumulator's logical clock. Crossing an epoch
// boundary rolls the accumulator over.
type AdvanceClock struct {
	Pos lib.EpochOrSlot
}

// AdvanceClockReply is returned once the clock advanced.
type AdvanceClockReply struct{}

// ProcessCommitment submits a signed commitment carried by a block at the
// given slot.
type ProcessCommitment struct {
	Slot       lib.SlotID
	Commitment *lib.SignedCommitment
}

// ProcessCommitmentReply is returned when the commitment was accepted.
type ProcessCommitmentReply struct{}

// ProcessOpening submits a stakeholder's opening carried by a block at
// the given slot.
type ProcessOpening struct {
	Slot    lib.SlotID
	Public  kyber.Point
	Opening *lib.Opening
}

// ProcessOpeningReply is returned when the opening was accepted.
type ProcessOpeningReply struct{}

// OwnerShare is one decrypted share, labelled with the stakeholder whose
// commitment it belongs to.
type OwnerShare struct {
	Owner kyber.Point
	Share *pvss.PubVerShare
}

// ProcessShares submits the shares a stakeholder decrypted, carried by a
// block at the given slot.
type ProcessShares struct {
	Slot   lib.SlotID
	Public kyber.Point
	Shares []OwnerShare
}

// ProcessSharesReply is returned when the shares were accepted.
type ProcessSharesReply struct{}

// ProcessCertificate submits a VSS certificate. Certificates are not
// bound to a phase and may be refreshed any time before they expire.
type ProcessCertificate struct {
	Certificate *lib.VssCertificate
}

// ProcessCertificateReply is returned when the certificate was accepted.
type ProcessCertificateReply struct{}

// OpeningMsg is an opening entry of a block.
type OpeningMsg struct {
	Public  kyber.Point
	Opening *lib.Opening
}

// SharesMsg is a shares entry of a block.
type SharesMsg struct {
	Public kyber.Point
	Shares []OwnerShare
}

// ApplyBlock applies all operations of one block atomically: either every
// entry is verified and accumulated, or none is. The block must not cross
// an epoch boundary; advance the clock first.
type ApplyBlock struct {
	Slot         lib.SlotID
	Certificates []*lib.VssCertificate
	Commitments  []*lib.SignedCommitment
	Openings     []OpeningMsg
	Shares       []SharesMsg
}

// ApplyBlockReply is returned when the whole block was accumulated.
type ApplyBlockReply struct{}

// GetSeed asks for the seed of the accumulator's current transcript.
type GetSeed struct{}

// GetSeedReply carries the epoch seed.
type GetSeedReply struct {
	Seed lib.Seed
}

// GetStatus asks for a summary of the accumulator.
type GetStatus struct{}

// GetStatusReply summarizes the accumulator.
type GetStatusReply struct {
	K            uint32
	Pos          lib.EpochOrSlot
	Phase        string
	Commitments  int
	Openings     int
	Shares       int
	Certificates int
}
