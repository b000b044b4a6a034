package service

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/util/key"
	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/onet/v3"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"

	"go.dedis.ch/ssc"
	"go.dedis.ch/ssc/lib"
	"go.dedis.ch/ssc/toss"
)

func TestMain(m *testing.M) {
	log.MainTest(m)
}

type participant struct {
	keys    *key.Pair
	vss     *key.Pair
	cert    *lib.VssCertificate
	sc      *lib.SignedCommitment
	opening *lib.Opening
}

func (p *participant) id() lib.StakeholderID {
	return lib.NewStakeholderID(p.keys.Public)
}

// makeParticipants prepares n stakeholders with certificates and one
// commitment each for the given epoch, sharing among all n VSS keys.
func makeParticipants(t *testing.T, n, thr int,
	epoch uint32) []*participant {

	parts := make([]*participant, n)
	vssPubs := make([]kyber.Point, n)
	for i := range parts {
		p := &participant{
			keys: key.NewKeyPair(ssc.Suite),
			vss:  key.NewKeyPair(ssc.Suite),
		}
		vssPubs[i] = p.vss.Public
		parts[i] = p
	}
	for _, p := range parts {
		cert, err := lib.NewVssCertificate(p.keys.Private, p.keys.Public,
			p.vss.Public, epoch+10)
		require.NoError(t, err)
		p.cert = cert

		c, o, err := lib.GenCommitmentAndOpening(thr, vssPubs, random.New())
		require.NoError(t, err)
		sc, err := lib.NewSignedCommitment(p.keys.Private, p.keys.Public,
			epoch, c)
		require.NoError(t, err)
		p.sc = sc
		p.opening = o
	}
	return parts
}

func stakes(parts []*participant) []Stake {
	out := make([]Stake, len(parts))
	for i, p := range parts {
		out[i] = Stake{Public: p.keys.Public, Coin: 1000}
	}
	return out
}

// bootstrap configures the service, installs the stake, accepts the
// certificates during epoch 0 and rolls over to epoch 1, where the
// certificates are stable.
func bootstrap(t *testing.T, s *Service, parts []*participant) {
	_, err := s.Configure(&Configure{K: 2})
	require.NoError(t, err)
	_, err = s.Configure(&Configure{K: 3})
	require.Error(t, err)

	for _, epoch := range []uint32{0, 1} {
		_, err = s.SetRichmen(&SetRichmen{Epoch: epoch,
			Stakes: stakes(parts)})
		require.NoError(t, err)
	}
	for _, p := range parts {
		_, err = s.ProcessCertificate(&ProcessCertificate{
			Certificate: p.cert})
		require.NoError(t, err)
	}
	_, err = s.AdvanceClock(&AdvanceClock{Pos: lib.NewEpochBoundary(1)})
	require.NoError(t, err)
}

func TestService_EpochFlow(t *testing.T) {
	local := onet.NewLocalTest(ssc.Suite)
	defer local.CloseAll()
	servers, _, _ := local.GenTree(1, true)
	s := local.GetServices(servers, serviceID)[0].(*Service)

	parts := makeParticipants(t, 3, 2, 1)
	bootstrap(t, s, parts)

	// A certificate from a stranger is rejected.
	stranger := makeParticipants(t, 1, 1, 1)[0]
	_, err := s.ProcessCertificate(&ProcessCertificate{
		Certificate: stranger.cert})
	require.True(t, xerrors.Is(err, toss.ErrUnknownParticipant))

	// Commitment phase: slots 0 and 1 of epoch 1.
	for _, p := range parts {
		_, err = s.ProcessCommitment(&ProcessCommitment{
			Slot: lib.SlotID{Epoch: 1, Slot: 0}, Commitment: p.sc})
		require.NoError(t, err)
	}
	_, err = s.ProcessCommitment(&ProcessCommitment{
		Slot: lib.SlotID{Epoch: 1, Slot: 1}, Commitment: parts[0].sc})
	require.True(t, xerrors.Is(err, toss.ErrDuplicate))

	// An opening submitted during the commitment phase is rejected.
	_, err = s.ProcessOpening(&ProcessOpening{
		Slot: lib.SlotID{Epoch: 1, Slot: 1}, Public: parts[0].keys.Public,
		Opening: parts[0].opening})
	require.True(t, xerrors.Is(err, toss.ErrWrongPhase))

	// Opening phase: slots 4 and 5.
	for _, p := range parts[:2] {
		_, err = s.ProcessOpening(&ProcessOpening{
			Slot: lib.SlotID{Epoch: 1, Slot: 4}, Public: p.keys.Public,
			Opening: p.opening})
		require.NoError(t, err)
	}
	// A commitment submitted during the opening phase is rejected.
	_, err = s.ProcessCommitment(&ProcessCommitment{
		Slot: lib.SlotID{Epoch: 1, Slot: 4}, Commitment: parts[2].sc})
	require.True(t, xerrors.Is(err, toss.ErrWrongPhase))

	// Shares phase: every participant decrypts its share of every
	// commitment, so the third secret is recoverable without its opening.
	for _, p := range parts {
		var shares []OwnerShare
		for _, owner := range parts {
			ds, err := lib.DecryptShare(owner.sc.Commitment, p.vss.Public,
				p.vss.Private)
			require.NoError(t, err)
			shares = append(shares, OwnerShare{Owner: owner.keys.Public,
				Share: ds})
		}
		_, err = s.ProcessShares(&ProcessShares{
			Slot: lib.SlotID{Epoch: 1, Slot: 8}, Public: p.keys.Public,
			Shares: shares})
		require.NoError(t, err)
	}

	status, err := s.GetStatus(&GetStatus{})
	require.NoError(t, err)
	require.Equal(t, 3, status.Commitments)
	require.Equal(t, 2, status.Openings)
	require.Equal(t, 3, status.Shares)
	require.Equal(t, 3, status.Certificates)
	require.Equal(t, "shares", status.Phase)

	// The seed equals the XOR of all three contributions.
	reply, err := s.GetSeed(&GetSeed{})
	require.NoError(t, err)
	expected := lib.ZeroSeed()
	for _, p := range parts {
		part, err := lib.SecretToSeed(p.opening.SecretPoint())
		require.NoError(t, err)
		expected, err = expected.Xor(part)
		require.NoError(t, err)
	}
	require.True(t, reply.Seed.Equal(expected))

	// Rolling into epoch 2 clears the transcript but not the certificates.
	_, err = s.AdvanceClock(&AdvanceClock{Pos: lib.NewEpochBoundary(2)})
	require.NoError(t, err)
	status, err = s.GetStatus(&GetStatus{})
	require.NoError(t, err)
	require.Equal(t, 0, status.Commitments)
	require.Equal(t, 3, status.Certificates)
}

func TestService_OpeningNeedsCommitment(t *testing.T) {
	local := onet.NewLocalTest(ssc.Suite)
	defer local.CloseAll()
	servers, _, _ := local.GenTree(1, true)
	s := local.GetServices(servers, serviceID)[0].(*Service)

	parts := makeParticipants(t, 3, 2, 1)
	bootstrap(t, s, parts)

	// parts[0] never committed.
	_, err := s.ProcessOpening(&ProcessOpening{
		Slot: lib.SlotID{Epoch: 1, Slot: 4}, Public: parts[0].keys.Public,
		Opening: parts[0].opening})
	require.True(t, xerrors.Is(err, toss.ErrNoCommitment))

	// An opening that does not match the commitment is rejected too.
	_, err = s.ProcessCommitment(&ProcessCommitment{
		Slot: lib.SlotID{Epoch: 1, Slot: 0}, Commitment: parts[1].sc})
	require.NoError(t, err)
	_, err = s.ProcessOpening(&ProcessOpening{
		Slot: lib.SlotID{Epoch: 1, Slot: 4}, Public: parts[1].keys.Public,
		Opening: parts[2].opening})
	require.Error(t, err)
}

func TestService_ApplyBlock(t *testing.T) {
	local := onet.NewLocalTest(ssc.Suite)
	defer local.CloseAll()
	servers, _, _ := local.GenTree(1, true)
	s := local.GetServices(servers, serviceID)[0].(*Service)

	parts := makeParticipants(t, 3, 2, 1)
	bootstrap(t, s, parts)

	_, err := s.ApplyBlock(&ApplyBlock{
		Slot:        lib.SlotID{Epoch: 1, Slot: 0},
		Commitments: []*lib.SignedCommitment{parts[0].sc, parts[1].sc},
	})
	require.NoError(t, err)

	status, err := s.GetStatus(&GetStatus{})
	require.NoError(t, err)
	require.Equal(t, 2, status.Commitments)

	// One bad entry rolls back the whole block.
	_, err = s.ApplyBlock(&ApplyBlock{
		Slot:        lib.SlotID{Epoch: 1, Slot: 1},
		Commitments: []*lib.SignedCommitment{parts[2].sc, parts[0].sc},
	})
	require.True(t, xerrors.Is(err, toss.ErrDuplicate))

	status, err = s.GetStatus(&GetStatus{})
	require.NoError(t, err)
	require.Equal(t, 2, status.Commitments)
	require.Equal(t, lib.NewSlotPos(1, 0), status.Pos)

	_, err = s.ApplyBlock(&ApplyBlock{
		Slot:        lib.SlotID{Epoch: 1, Slot: 1},
		Commitments: []*lib.SignedCommitment{parts[2].sc},
	})
	require.NoError(t, err)
	status, err = s.GetStatus(&GetStatus{})
	require.NoError(t, err)
	require.Equal(t, 3, status.Commitments)
}

func TestClient_Status(t *testing.T) {
	local := onet.NewTCPTest(ssc.Suite)
	defer local.CloseAll()
	_, roster, _ := local.GenTree(3, true)

	client := NewClient(roster)
	require.NoError(t, client.Configure(2))

	parts := makeParticipants(t, 3, 2, 1)
	for _, epoch := range []uint32{0, 1} {
		require.NoError(t, client.SetRichmen(epoch, stakes(parts)))
	}
	for _, p := range parts {
		require.NoError(t, client.ProcessCertificate(p.cert))
	}
	require.NoError(t, client.AdvanceClock(lib.NewEpochBoundary(1)))
	require.NoError(t, client.ProcessCommitment(
		lib.SlotID{Epoch: 1, Slot: 0}, parts[0].sc))

	status, err := client.Status()
	require.NoError(t, err)
	require.Equal(t, uint32(2), status.K)
	require.Equal(t, 1, status.Commitments)
	require.Equal(t, 3, status.Certificates)
	require.Equal(t, "commitment", status.Phase)
}
