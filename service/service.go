// Package service runs the shared-seed computation driver on a conode.
// It owns the per-epoch accumulator, verifies every submitted message,
// checks the sender's eligibility against the stake oracle and the stable
// certificates, gates submissions by protocol phase, and rejects
// duplicates. Verified messages are accumulated; at the end of an epoch
// the transcript reduces to the FTS seed.
package service

import (
	"sync"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/onet/v3"
	"go.dedis.ch/onet/v3/log"
	"go.dedis.ch/onet/v3/network"
	"golang.org/x/xerrors"

	"go.dedis.ch/ssc/lib"
	"go.dedis.ch/ssc/toss"
)

// ServiceName is the name to refer to the shared-seed service.
const ServiceName = "SharedSeed"

var serviceID onet.ServiceID

var storageKey = []byte("storage")

const dbVersion = 1

func init() {
	var err error
	serviceID, err = onet.RegisterNewService(ServiceName, newService)
	log.ErrFatal(err)
	network.RegisterMessages(&storage{})
}

// Service is the shared-seed computation driver of one conode.
type Service struct {
	*onet.ServiceProcessor

	mutex   sync.Mutex
	phases  lib.Phases
	richmen toss.RichmenMap
	state   *toss.State
	storage *storage
}

// storage is the on-disk part of the service: the accumulator snapshot.
// The stake distributions are not persisted; the oracle re-installs them
// after a restart.
type storage struct {
	Snapshot *toss.Snapshot
}

// Configure message handler. Sets the protocol constant k once.
func (s *Service) Configure(req *Configure) (*ConfigureReply, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if req.K == 0 {
		return nil, xerrors.New("k must be positive")
	}
	if s.phases.K != 0 && s.phases.K != req.K {
		return nil, xerrors.New("k is immutable once set")
	}
	s.phases.K = req.K
	log.Lvl2(s.ServerIdentity(), "configured with k =", req.K)
	return &ConfigureReply{}, nil
}

// SetRichmen message handler. Installs the stake distribution reported by
// the stake oracle for one epoch.
func (s *Service) SetRichmen(req *SetRichmen) (*SetRichmenReply, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	set := make(lib.StakeSet, len(req.Stakes))
	for _, stake := range req.Stakes {
		set[lib.NewStakeholderID(stake.Public)] = stake.Coin
	}
	s.richmen[req.Epoch] = set
	return &SetRichmenReply{}, nil
}

// AdvanceClock message handler. Moves the logical clock forward; crossing
// into a new epoch rolls the accumulator over.
func (s *Service) AdvanceClock(req *AdvanceClock) (*AdvanceClockReply,
	error) {

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.advance(req.Pos); err != nil {
		return nil, err
	}
	return &AdvanceClockReply{}, s.save()
}

// advance must be called with the mutex held.
func (s *Service) advance(pos lib.EpochOrSlot) error {
	cur := s.state.EpochOrSlot()
	if pos.Cmp(cur) < 0 {
		return toss.ErrClock
	}
	if pos.Epoch > cur.Epoch {
		log.Lvl2(s.ServerIdentity(), "rolling over to epoch", pos.Epoch)
		if err := s.state.Rollover(pos.Epoch); err != nil {
			return err
		}
	}
	if !pos.Boundary {
		return s.state.SetEpochOrSlot(pos)
	}
	return nil
}

// ProcessCommitment message handler.
func (s *Service) ProcessCommitment(req *ProcessCommitment) (
	*ProcessCommitmentReply, error) {

	s.mutex.Lock()
	defer s.mutex.Unlock()

	err := s.advance(lib.NewSlotPos(req.Slot.Epoch, req.Slot.Slot))
	if err != nil {
		return nil, err
	}
	if err := s.checkCommitment(s.state, req.Slot, req.Commitment); err != nil {
		return nil, err
	}
	s.state.PutCommitment(req.Commitment)
	return &ProcessCommitmentReply{}, s.save()
}

// ProcessOpening message handler.
func (s *Service) ProcessOpening(req *ProcessOpening) (
	*ProcessOpeningReply, error) {

	s.mutex.Lock()
	defer s.mutex.Unlock()

	err := s.advance(lib.NewSlotPos(req.Slot.Epoch, req.Slot.Slot))
	if err != nil {
		return nil, err
	}
	if err := s.checkOpening(s.state, req.Slot, req.Public, req.Opening); err != nil {
		return nil, err
	}
	s.state.PutOpening(lib.NewStakeholderID(req.Public), req.Opening)
	return &ProcessOpeningReply{}, s.save()
}

// ProcessShares message handler.
func (s *Service) ProcessShares(req *ProcessShares) (*ProcessSharesReply,
	error) {

	s.mutex.Lock()
	defer s.mutex.Unlock()

	err := s.advance(lib.NewSlotPos(req.Slot.Epoch, req.Slot.Slot))
	if err != nil {
		return nil, err
	}
	inner, err := s.checkShares(s.state, req.Slot, req.Public, req.Shares)
	if err != nil {
		return nil, err
	}
	s.state.PutShares(lib.NewStakeholderID(req.Public), inner)
	return &ProcessSharesReply{}, s.save()
}

// ProcessCertificate message handler.
func (s *Service) ProcessCertificate(req *ProcessCertificate) (
	*ProcessCertificateReply, error) {

	s.mutex.Lock()
	defer s.mutex.Unlock()

	epoch := s.state.EpochOrSlot().Epoch
	if err := s.checkCertificate(req.Certificate, epoch); err != nil {
		return nil, err
	}
	s.state.PutCertificate(req.Certificate)
	return &ProcessCertificateReply{}, s.save()
}

// ApplyBlock message handler. Verifies and accumulates all entries of one
// block, in order, against the staged state; any rejection rolls the
// whole block back.
func (s *Service) ApplyBlock(req *ApplyBlock) (*ApplyBlockReply, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if req.Slot.Epoch != s.state.EpochOrSlot().Epoch {
		return nil, xerrors.New(
			"block crosses an epoch: advance the clock first")
	}

	staging := toss.NewStaging(s.state)
	if err := s.applyBlock(staging, req); err != nil {
		staging.Rollback()
		return nil, err
	}
	if err := staging.Commit(); err != nil {
		return nil, err
	}
	return &ApplyBlockReply{}, s.save()
}

func (s *Service) applyBlock(staging *toss.Staging, req *ApplyBlock) error {
	err := staging.SetEpochOrSlot(lib.NewSlotPos(req.Slot.Epoch,
		req.Slot.Slot))
	if err != nil {
		return err
	}
	for _, cert := range req.Certificates {
		if err := s.checkCertificate(cert, req.Slot.Epoch); err != nil {
			return err
		}
		staging.PutCertificate(cert)
	}
	for _, sc := range req.Commitments {
		if err := s.checkCommitment(staging, req.Slot, sc); err != nil {
			return err
		}
		staging.PutCommitment(sc)
	}
	for _, msg := range req.Openings {
		err := s.checkOpening(staging, req.Slot, msg.Public, msg.Opening)
		if err != nil {
			return err
		}
		staging.PutOpening(lib.NewStakeholderID(msg.Public), msg.Opening)
	}
	for _, msg := range req.Shares {
		inner, err := s.checkShares(staging, req.Slot, msg.Public,
			msg.Shares)
		if err != nil {
			return err
		}
		staging.PutShares(lib.NewStakeholderID(msg.Public), inner)
	}
	return nil
}

// GetSeed message handler. Reduces the current transcript to the seed.
func (s *Service) GetSeed(req *GetSeed) (*GetSeedReply, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	seed, err := toss.CalcSeed(s.state)
	if err != nil {
		return nil, err
	}
	return &GetSeedReply{Seed: seed}, nil
}

// GetStatus message handler.
func (s *Service) GetStatus(req *GetStatus) (*GetStatusReply, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	pos := s.state.EpochOrSlot()
	phase := lib.PhaseIdle
	if !pos.Boundary {
		phase = s.phases.Classify(pos.Slot)
	}
	return &GetStatusReply{
		K:            s.phases.K,
		Pos:          pos,
		Phase:        phase.String(),
		Commitments:  len(s.state.Commitments()),
		Openings:     len(s.state.Openings()),
		Shares:       len(s.state.Shares()),
		Certificates: len(s.state.Certificates()),
	}, nil
}

// eligible must hold for every sender of a commitment, opening or shares:
// listed in the epoch's richmen and owner of a stable certificate.
func (s *Service) eligible(view toss.TossRead, epoch uint32,
	id lib.StakeholderID) (*lib.VssCertificate, error) {

	richmen, ok := view.Richmen(epoch)
	if !ok {
		return nil, xerrors.Errorf("no stake known for epoch %d: %w",
			epoch, toss.ErrUnknownParticipant)
	}
	if _, ok := richmen[id]; !ok {
		return nil, xerrors.Errorf("no stake for %v: %w", id,
			toss.ErrUnknownParticipant)
	}
	cert, ok := view.StableCertificates(epoch)[id]
	if !ok {
		return nil, xerrors.Errorf("no stable certificate for %v: %w", id,
			toss.ErrUnknownParticipant)
	}
	return cert, nil
}

func (s *Service) checkCommitment(view toss.TossRead, slot lib.SlotID,
	sc *lib.SignedCommitment) error {

	if s.phases.ClassifySlot(slot) != lib.PhaseCommitment {
		return toss.ErrWrongPhase
	}
	id := sc.ID()
	if _, err := s.eligible(view, slot.Epoch, id); err != nil {
		return err
	}
	if _, ok := view.Commitments()[id]; ok {
		return toss.ErrDuplicate
	}
	if check := lib.VerifySignedCommitment(slot.Epoch, sc); !check.Ok() {
		return check.Err()
	}
	return nil
}

func (s *Service) checkOpening(view toss.TossRead, slot lib.SlotID,
	public kyber.Point, o *lib.Opening) error {

	if s.phases.ClassifySlot(slot) != lib.PhaseOpening {
		return toss.ErrWrongPhase
	}
	id := lib.NewStakeholderID(public)
	if _, err := s.eligible(view, slot.Epoch, id); err != nil {
		return err
	}
	sc, ok := view.Commitments()[id]
	if !ok {
		return toss.ErrNoCommitment
	}
	if _, ok := view.Openings()[id]; ok {
		return toss.ErrDuplicate
	}
	return lib.VerifyOpening(sc.Commitment, o)
}

func (s *Service) checkShares(view toss.TossRead, slot lib.SlotID,
	public kyber.Point, shares []OwnerShare) (lib.InnerSharesMap, error) {

	if s.phases.ClassifySlot(slot) != lib.PhaseShares {
		return nil, toss.ErrWrongPhase
	}
	id := lib.NewStakeholderID(public)
	cert, err := s.eligible(view, slot.Epoch, id)
	if err != nil {
		return nil, err
	}
	if _, ok := view.Shares()[id]; ok {
		return nil, toss.ErrDuplicate
	}

	commitments := view.Commitments()
	inner := make(lib.InnerSharesMap, len(shares))
	for _, os := range shares {
		owner := lib.NewStakeholderID(os.Owner)
		sc, ok := commitments[owner]
		if !ok {
			return nil, toss.ErrNoCommitment
		}
		encShare := sc.Commitment.ShareFor(cert.VssKey)
		if encShare == nil {
			return nil, xerrors.Errorf("commitment of %v has no share "+
				"for decryptor %v", owner, id)
		}
		err := lib.VerifyDecShare(cert.VssKey, encShare, os.Share)
		if err != nil {
			return nil, err
		}
		if _, ok := inner[owner]; ok {
			return nil, toss.ErrDuplicate
		}
		inner[owner] = os.Share
	}
	return inner, nil
}

func (s *Service) checkCertificate(cert *lib.VssCertificate,
	epoch uint32) error {

	// Certificates bootstrap eligibility, so only stake is required.
	richmen, ok := s.state.Richmen(epoch)
	if !ok {
		return xerrors.Errorf("no stake known for epoch %d: %w", epoch,
			toss.ErrUnknownParticipant)
	}
	if _, ok := richmen[cert.ID()]; !ok {
		return xerrors.Errorf("no stake for %v: %w", cert.ID(),
			toss.ErrUnknownParticipant)
	}
	return lib.VerifyCertificate(cert, epoch)
}

// save must be called with the mutex held.
func (s *Service) save() error {
	s.storage.Snapshot = s.state.Snapshot()
	err := s.Save(storageKey, s.storage)
	if err != nil {
		log.Error("couldn't save service data:", err)
		return err
	}
	return nil
}

// tryLoad restores the accumulator from the previous run, if any.
func (s *Service) tryLoad() error {
	s.storage = &storage{}
	ver, err := s.LoadVersion()
	if err != nil {
		return err
	}
	if ver < dbVersion {
		if err := s.save(); err != nil {
			return err
		}
		return s.SaveVersion(dbVersion)
	}
	msg, err := s.Load(storageKey)
	if err != nil {
		return err
	}
	if msg == nil {
		return nil
	}
	var ok bool
	s.storage, ok = msg.(*storage)
	if !ok {
		return xerrors.New("stored data of wrong type")
	}
	if s.storage.Snapshot != nil {
		s.state, err = toss.FromSnapshot(s.storage.Snapshot, s.richmen)
		if err != nil {
			return err
		}
		log.Lvl2(s.ServerIdentity(), "restored accumulator at",
			s.state.EpochOrSlot())
	}
	return nil
}

func newService(c *onet.Context) (onet.Service, error) {
	s := &Service{
		ServiceProcessor: onet.NewServiceProcessor(c),
		richmen:          make(toss.RichmenMap),
	}
	s.state = toss.NewState(s.richmen)
	err := s.RegisterHandlers(s.Configure, s.SetRichmen, s.AdvanceClock,
		s.ProcessCommitment, s.ProcessOpening, s.ProcessShares,
		s.ProcessCertificate, s.ApplyBlock, s.GetSeed, s.GetStatus)
	if err != nil {
		return nil, xerrors.Errorf("registering handlers: %v", err)
	}
	if err := s.tryLoad(); err != nil {
		return nil, err
	}
	return s, nil
}
