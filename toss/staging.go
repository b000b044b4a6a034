package toss

import (
	"golang.org/x/xerrors"

	"go.dedis.ch/ssc/lib"
)

type opType int

const (
	opPutCommitment opType = iota + 1
	opPutOpening
	opPutShares
	opPutCertificate
	opDelCommitment
	opDelOpening
	opDelShares
	opReset
	opSetPos
)

type instr struct {
	ty     opType
	id     lib.StakeholderID
	sc     *lib.SignedCommitment
	o      *lib.Opening
	shares lib.InnerSharesMap
	cert   *lib.VssCertificate
	pos    lib.EpochOrSlot
}

// Staging journals the mutations of one block-application pass over a
// source accumulator. Reads see the journaled state; nothing reaches the
// source until Commit replays the journal onto it. Rollback drops the
// journal. The staging becomes invalid if the source is modified directly.
type Staging struct {
	source Toss

	instrList []instr

	commitments    lib.CommitmentsMap
	delCommitments map[lib.StakeholderID]bool
	openings       lib.OpeningsMap
	delOpenings    map[lib.StakeholderID]bool
	shares         lib.SharesMap
	delShares      map[lib.StakeholderID]bool
	certs          lib.VssCertificatesMap
	pos            *lib.EpochOrSlot
	reset          bool
}

// NewStaging returns an empty staging over the given source.
func NewStaging(source Toss) *Staging {
	s := &Staging{source: source}
	s.clear()
	return s
}

func (s *Staging) clear() {
	s.instrList = nil
	s.commitments = make(lib.CommitmentsMap)
	s.delCommitments = make(map[lib.StakeholderID]bool)
	s.openings = make(lib.OpeningsMap)
	s.delOpenings = make(map[lib.StakeholderID]bool)
	s.shares = make(lib.SharesMap)
	s.delShares = make(map[lib.StakeholderID]bool)
	s.certs = make(lib.VssCertificatesMap)
	s.pos = nil
	s.reset = false
}

// Commitments implements the TossRead interface.
func (s *Staging) Commitments() lib.CommitmentsMap {
	out := make(lib.CommitmentsMap)
	if !s.reset {
		out = s.source.Commitments()
	}
	for id := range s.delCommitments {
		delete(out, id)
	}
	for id, sc := range s.commitments {
		out[id] = sc
	}
	return out
}

// Openings implements the TossRead interface.
func (s *Staging) Openings() lib.OpeningsMap {
	out := make(lib.OpeningsMap)
	if !s.reset {
		out = s.source.Openings()
	}
	for id := range s.delOpenings {
		delete(out, id)
	}
	for id, o := range s.openings {
		out[id] = o
	}
	return out
}

// Shares implements the TossRead interface.
func (s *Staging) Shares() lib.SharesMap {
	out := make(lib.SharesMap)
	if !s.reset {
		out = s.source.Shares()
	}
	for id := range s.delShares {
		delete(out, id)
	}
	for id, inner := range s.shares {
		out[id] = inner.Clone()
	}
	return out
}

// Certificates implements the TossRead interface.
func (s *Staging) Certificates() lib.VssCertificatesMap {
	out := s.source.Certificates()
	for id, cert := range s.certs {
		out[id] = cert
	}
	return out
}

// StableCertificates implements the TossRead interface.
func (s *Staging) StableCertificates(epoch uint32) lib.VssCertificatesMap {
	return s.source.StableCertificates(epoch)
}

// Richmen implements the TossRead interface.
func (s *Staging) Richmen(epoch uint32) (lib.StakeSet, bool) {
	return s.source.Richmen(epoch)
}

// EpochOrSlot implements the TossRead interface.
func (s *Staging) EpochOrSlot() lib.EpochOrSlot {
	if s.pos != nil {
		return *s.pos
	}
	return s.source.EpochOrSlot()
}

// PutCommitment implements the Toss interface.
func (s *Staging) PutCommitment(sc *lib.SignedCommitment) {
	id := sc.ID()
	delete(s.delCommitments, id)
	s.commitments[id] = sc
	s.instrList = append(s.instrList, instr{ty: opPutCommitment, sc: sc})
}

// PutOpening implements the Toss interface.
func (s *Staging) PutOpening(id lib.StakeholderID, o *lib.Opening) {
	delete(s.delOpenings, id)
	s.openings[id] = o
	s.instrList = append(s.instrList, instr{ty: opPutOpening, id: id, o: o})
}

// PutShares implements the Toss interface.
func (s *Staging) PutShares(id lib.StakeholderID, shares lib.InnerSharesMap) {
	delete(s.delShares, id)
	s.shares[id] = shares.Clone()
	s.instrList = append(s.instrList,
		instr{ty: opPutShares, id: id, shares: shares.Clone()})
}

// PutCertificate implements the Toss interface.
func (s *Staging) PutCertificate(cert *lib.VssCertificate) {
	s.certs[cert.ID()] = cert
	s.instrList = append(s.instrList, instr{ty: opPutCertificate, cert: cert})
}

// DelCommitment implements the Toss interface.
func (s *Staging) DelCommitment(id lib.StakeholderID) {
	delete(s.commitments, id)
	s.delCommitments[id] = true
	s.instrList = append(s.instrList, instr{ty: opDelCommitment, id: id})
}

// DelOpening implements the Toss interface.
func (s *Staging) DelOpening(id lib.StakeholderID) {
	delete(s.openings, id)
	s.delOpenings[id] = true
	s.instrList = append(s.instrList, instr{ty: opDelOpening, id: id})
}

// DelShares implements the Toss interface.
func (s *Staging) DelShares(id lib.StakeholderID) {
	delete(s.shares, id)
	s.delShares[id] = true
	s.instrList = append(s.instrList, instr{ty: opDelShares, id: id})
}

// ResetCOS implements the Toss interface.
func (s *Staging) ResetCOS() {
	s.reset = true
	s.commitments = make(lib.CommitmentsMap)
	s.delCommitments = make(map[lib.StakeholderID]bool)
	s.openings = make(lib.OpeningsMap)
	s.delOpenings = make(map[lib.StakeholderID]bool)
	s.shares = make(lib.SharesMap)
	s.delShares = make(map[lib.StakeholderID]bool)
	s.instrList = append(s.instrList, instr{ty: opReset})
}

// SetEpochOrSlot implements the Toss interface.
func (s *Staging) SetEpochOrSlot(pos lib.EpochOrSlot) error {
	if pos.Cmp(s.EpochOrSlot()) < 0 {
		return ErrClock
	}
	p := pos
	s.pos = &p
	s.instrList = append(s.instrList, instr{ty: opSetPos, pos: pos})
	return nil
}

// Commit replays the journal onto the source and empties the staging.
func (s *Staging) Commit() error {
	for _, in := range s.instrList {
		switch in.ty {
		case opPutCommitment:
			s.source.PutCommitment(in.sc)
		case opPutOpening:
			s.source.PutOpening(in.id, in.o)
		case opPutShares:
			s.source.PutShares(in.id, in.shares)
		case opPutCertificate:
			s.source.PutCertificate(in.cert)
		case opDelCommitment:
			s.source.DelCommitment(in.id)
		case opDelOpening:
			s.source.DelOpening(in.id)
		case opDelShares:
			s.source.DelShares(in.id)
		case opReset:
			s.source.ResetCOS()
		case opSetPos:
			if err := s.source.SetEpochOrSlot(in.pos); err != nil {
				return err
			}
		default:
			return xerrors.New("invalid instruction during commit")
		}
	}
	s.clear()
	return nil
}

// Rollback drops every journaled mutation, leaving the source untouched.
func (s *Staging) Rollback() {
	s.clear()
}
