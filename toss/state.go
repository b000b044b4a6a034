package toss

import (
	"go.dedis.ch/ssc/lib"
)

// State is the in-memory accumulator of one epoch. It is operated
// single-threaded by the block-application pipeline; concurrent readers
// must go through the copies returned by the read interface.
type State struct {
	commitments lib.CommitmentsMap
	openings    lib.OpeningsMap
	shares      lib.SharesMap
	certs       lib.VssCertificatesMap
	stable      map[uint32]lib.VssCertificatesMap
	pos         lib.EpochOrSlot
	richmen     Richmen
}

// NewState returns an empty accumulator positioned at the boundary of
// epoch 0, reading eligibility from the given oracle.
func NewState(richmen Richmen) *State {
	return &State{
		commitments: make(lib.CommitmentsMap),
		openings:    make(lib.OpeningsMap),
		shares:      make(lib.SharesMap),
		certs:       make(lib.VssCertificatesMap),
		stable:      make(map[uint32]lib.VssCertificatesMap),
		pos:         lib.NewEpochBoundary(0),
		richmen:     richmen,
	}
}

// Commitments implements the TossRead interface.
func (s *State) Commitments() lib.CommitmentsMap {
	return s.commitments.Clone()
}

// Openings implements the TossRead interface.
func (s *State) Openings() lib.OpeningsMap {
	return s.openings.Clone()
}

// Shares implements the TossRead interface.
func (s *State) Shares() lib.SharesMap {
	return s.shares.Clone()
}

// Certificates implements the TossRead interface.
func (s *State) Certificates() lib.VssCertificatesMap {
	return s.certs.Clone()
}

// StableCertificates implements the TossRead interface. The stable set of
// an epoch is the certificate map captured when the epoch began.
func (s *State) StableCertificates(epoch uint32) lib.VssCertificatesMap {
	if m, ok := s.stable[epoch]; ok {
		return m.Clone()
	}
	return make(lib.VssCertificatesMap)
}

// Richmen implements the TossRead interface.
func (s *State) Richmen(epoch uint32) (lib.StakeSet, bool) {
	if s.richmen == nil {
		return nil, false
	}
	return s.richmen.RichmenAt(epoch)
}

// EpochOrSlot implements the TossRead interface.
func (s *State) EpochOrSlot() lib.EpochOrSlot {
	return s.pos
}

// PutCommitment implements the Toss interface.
func (s *State) PutCommitment(sc *lib.SignedCommitment) {
	s.commitments[sc.ID()] = sc
}

// PutOpening implements the Toss interface.
func (s *State) PutOpening(id lib.StakeholderID, o *lib.Opening) {
	s.openings[id] = o
}

// PutShares implements the Toss interface.
func (s *State) PutShares(id lib.StakeholderID, shares lib.InnerSharesMap) {
	s.shares[id] = shares.Clone()
}

// PutCertificate implements the Toss interface.
func (s *State) PutCertificate(cert *lib.VssCertificate) {
	s.certs[cert.ID()] = cert
}

// DelCommitment implements the Toss interface.
func (s *State) DelCommitment(id lib.StakeholderID) {
	delete(s.commitments, id)
}

// DelOpening implements the Toss interface.
func (s *State) DelOpening(id lib.StakeholderID) {
	delete(s.openings, id)
}

// DelShares implements the Toss interface.
func (s *State) DelShares(id lib.StakeholderID) {
	delete(s.shares, id)
}

// ResetCOS implements the Toss interface.
func (s *State) ResetCOS() {
	s.commitments = make(lib.CommitmentsMap)
	s.openings = make(lib.OpeningsMap)
	s.shares = make(lib.SharesMap)
}

// SetEpochOrSlot implements the Toss interface.
func (s *State) SetEpochOrSlot(pos lib.EpochOrSlot) error {
	if pos.Cmp(s.pos) < 0 {
		return ErrClock
	}
	s.pos = pos
	return nil
}

// Rollover moves the accumulator to the boundary of a new epoch: expired
// certificates are dropped, the remaining ones become the epoch's stable
// set, and the commitments, openings and shares of the closed epoch are
// cleared.
func (s *State) Rollover(epoch uint32) error {
	if err := s.SetEpochOrSlot(lib.NewEpochBoundary(epoch)); err != nil {
		return err
	}
	for id, cert := range s.certs {
		if cert.Expiry < epoch {
			delete(s.certs, id)
		}
	}
	s.stable[epoch] = s.certs.Clone()
	s.ResetCOS()
	return nil
}
