package service

import (
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/onet/v3"
	"golang.org/x/xerrors"

	"go.dedis.ch/ssc"
	"go.dedis.ch/ssc/lib"
)

// Client communicates with the shared-seed services of a roster. State
// changes are fanned out to every node, mirroring how each node's driver
// sees the same chain; queries go to the first node.
type Client struct {
	*onet.Client
	Roster *onet.Roster
}

// NewClient instantiates a new client for the given roster.
func NewClient(roster *onet.Roster) *Client {
	return &Client{
		Client: onet.NewClient(ssc.Suite, ServiceName),
		Roster: roster,
	}
}

func (c *Client) broadcast(msg interface{}) error {
	for _, si := range c.Roster.List {
		if err := c.SendProtobuf(si, msg, nil); err != nil {
			return xerrors.Errorf("sending to %s: %v", si.Address, err)
		}
	}
	return nil
}

// Configure sets the protocol constant k on every node.
func (c *Client) Configure(k uint32) error {
	return c.broadcast(&Configure{K: k})
}

// SetRichmen installs the stake distribution for an epoch on every node.
func (c *Client) SetRichmen(epoch uint32, stakes []Stake) error {
	return c.broadcast(&SetRichmen{Epoch: epoch, Stakes: stakes})
}

// AdvanceClock moves the logical clock on every node.
func (c *Client) AdvanceClock(pos lib.EpochOrSlot) error {
	return c.broadcast(&AdvanceClock{Pos: pos})
}

// ProcessCommitment submits a signed commitment to every node.
func (c *Client) ProcessCommitment(slot lib.SlotID,
	sc *lib.SignedCommitment) error {

	return c.broadcast(&ProcessCommitment{Slot: slot, Commitment: sc})
}

// ProcessOpening submits an opening to every node.
func (c *Client) ProcessOpening(slot lib.SlotID, public kyber.Point,
	o *lib.Opening) error {

	return c.broadcast(&ProcessOpening{Slot: slot, Public: public,
		Opening: o})
}

// ProcessShares submits decrypted shares to every node.
func (c *Client) ProcessShares(slot lib.SlotID, public kyber.Point,
	shares []OwnerShare) error {

	return c.broadcast(&ProcessShares{Slot: slot, Public: public,
		Shares: shares})
}

// ProcessCertificate submits a VSS certificate to every node.
func (c *Client) ProcessCertificate(cert *lib.VssCertificate) error {
	return c.broadcast(&ProcessCertificate{Certificate: cert})
}

// ApplyBlock applies a block of operations atomically on every node.
func (c *Client) ApplyBlock(block *ApplyBlock) error {
	return c.broadcast(block)
}

// Seed returns the seed of the current transcript.
func (c *Client) Seed() (lib.Seed, error) {
	reply := &GetSeedReply{}
	err := c.SendProtobuf(c.Roster.List[0], &GetSeed{}, reply)
	if err != nil {
		return nil, xerrors.Errorf("requesting seed: %v", err)
	}
	return reply.Seed, nil
}

// Status returns a summary of the accumulator.
func (c *Client) Status() (*GetStatusReply, error) {
	reply := &GetStatusReply{}
	err := c.SendProtobuf(c.Roster.List[0], &GetStatus{}, reply)
	if err != nil {
		return nil, xerrors.Errorf("requesting status: %v", err)
	}
	return reply, nil
}
