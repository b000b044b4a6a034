package lib

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/share/pvss"
	"go.dedis.ch/onet/v3/network"

	"go.dedis.ch/ssc"
)

func init() {
	network.RegisterMessages(&Commitment{}, &SignedCommitment{}, &Opening{},
		&VssCertificate{})
}

// StakeholderID identifies a stakeholder by the digest of its public
// signing key. All maps of the subsystem are keyed by it; equality and
// hashing are bitwise.
type StakeholderID [32]byte

// NewStakeholderID computes the identifier of the given public key.
func NewStakeholderID(public kyber.Point) StakeholderID {
	h := sha256.New()
	_, _ = public.MarshalTo(h)
	var id StakeholderID
	copy(id[:], h.Sum(nil))
	return id
}

// String returns the first 8 bytes of the ID as a hex-encoded string.
func (id StakeholderID) String() string {
	return fmt.Sprintf("%x", id[0:8])
}

// EncShare pairs a VSS public key with the encrypted share destined to it.
type EncShare struct {
	VssKey kyber.Point
	Share  *pvss.PubVerShare
}

// Commitment is the first-phase message of an epoch. Extra holds the
// polynomial commitments of the shared secret with respect to the protocol
// base point H, so len(Extra) is the sharing threshold and Extra[0] commits
// the secret itself. Proof binds the secret group element so that an
// opening can be checked against it. Shares enumerates the intended
// recipients, ordered by share index; the VSS keys must be unique.
type Commitment struct {
	Extra  []kyber.Point
	Proof  []byte
	Shares []EncShare
}

// Threshold returns the number of decrypted shares needed to recover the
// committed secret.
func (c *Commitment) Threshold() int {
	return len(c.Extra)
}

// VssKeys returns the recipients of the encrypted shares in share order.
func (c *Commitment) VssKeys() []kyber.Point {
	keys := make([]kyber.Point, len(c.Shares))
	for i, es := range c.Shares {
		keys[i] = es.VssKey
	}
	return keys
}

// ShareFor returns the encrypted share destined to the given VSS key, or
// nil if the key is not among the recipients.
func (c *Commitment) ShareFor(vssKey kyber.Point) *pvss.PubVerShare {
	for _, es := range c.Shares {
		if es.VssKey.Equal(vssKey) {
			return es.Share
		}
	}
	return nil
}

// Hash returns the digest of the commitment over its canonical form: every
// field written in declaration order, slices prefixed with their length.
func (c *Commitment) Hash() []byte {
	h := sha256.New()
	_ = binary.Write(h, binary.LittleEndian, uint32(len(c.Extra)))
	for _, p := range c.Extra {
		_, _ = p.MarshalTo(h)
	}
	_ = binary.Write(h, binary.LittleEndian, uint32(len(c.Proof)))
	h.Write(c.Proof)
	_ = binary.Write(h, binary.LittleEndian, uint32(len(c.Shares)))
	for _, es := range c.Shares {
		_ = binary.Write(h, binary.LittleEndian, uint32(es.Share.S.I))
		_, _ = es.VssKey.MarshalTo(h)
		_, _ = es.Share.S.V.MarshalTo(h)
		_, _ = es.Share.P.C.MarshalTo(h)
		_, _ = es.Share.P.R.MarshalTo(h)
		_, _ = es.Share.P.VG.MarshalTo(h)
		_, _ = es.Share.P.VH.MarshalTo(h)
	}
	return h.Sum(nil)
}

// Equal compares the canonical forms of the two commitments.
func (c *Commitment) Equal(other *Commitment) bool {
	return bytes.Equal(c.Hash(), other.Hash())
}

// SignedCommitment is a commitment bound to an epoch and signed by the
// stakeholder emitting it.
type SignedCommitment struct {
	Public     kyber.Point
	Commitment *Commitment
	Signature  []byte
}

// ID returns the identifier of the signing stakeholder.
func (sc *SignedCommitment) ID() StakeholderID {
	return NewStakeholderID(sc.Public)
}

// Opening reveals the secret scalar behind a commitment. Together with the
// commitment it reconstructs the stakeholder's seed contribution.
type Opening struct {
	Secret kyber.Scalar
}

// SecretPoint returns the shared-secret group element g^Secret, the value
// that is reduced to the stakeholder's seed contribution.
func (o *Opening) SecretPoint() kyber.Point {
	return ssc.Suite.Point().Mul(o.Secret, nil)
}

// VssCertificate announces the VSS public key a stakeholder will use to
// receive encrypted shares, signed with its signing key and valid up to
// and including the Expiry epoch.
type VssCertificate struct {
	Public    kyber.Point
	VssKey    kyber.Point
	Expiry    uint32
	Signature []byte
}

// ID returns the identifier of the certifying stakeholder.
func (vc *VssCertificate) ID() StakeholderID {
	return NewStakeholderID(vc.Public)
}

// commitmentDigest is the message signed in a SignedCommitment: the epoch
// followed by the canonical commitment digest.
func commitmentDigest(epoch uint32, c *Commitment) []byte {
	h := sha256.New()
	_ = binary.Write(h, binary.LittleEndian, epoch)
	h.Write(c.Hash())
	return h.Sum(nil)
}

// certificateDigest is the message signed in a VssCertificate.
func certificateDigest(vssKey kyber.Point, expiry uint32) []byte {
	h := sha256.New()
	_, _ = vssKey.MarshalTo(h)
	_ = binary.Write(h, binary.LittleEndian, expiry)
	return h.Sum(nil)
}

// CommitmentsMap holds at most one signed commitment per stakeholder.
type CommitmentsMap map[StakeholderID]*SignedCommitment

// Clone returns a shallow copy of the map. The values are immutable by
// contract and shared.
func (m CommitmentsMap) Clone() CommitmentsMap {
	out := make(CommitmentsMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// OpeningsMap holds at most one opening per stakeholder.
type OpeningsMap map[StakeholderID]*Opening

// Clone returns a shallow copy of the map.
func (m OpeningsMap) Clone() OpeningsMap {
	out := make(OpeningsMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// InnerSharesMap maps the owner of a commitment to the share of its secret
// that one decryptor has recovered.
type InnerSharesMap map[StakeholderID]*pvss.PubVerShare

// Clone returns a shallow copy of the map.
func (m InnerSharesMap) Clone() InnerSharesMap {
	out := make(InnerSharesMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// SharesMap maps a decryptor to the shares it has decrypted, keyed by the
// stakeholder whose commitment the share belongs to.
type SharesMap map[StakeholderID]InnerSharesMap

// Clone returns a copy of the outer and inner maps.
func (m SharesMap) Clone() SharesMap {
	out := make(SharesMap, len(m))
	for k, v := range m {
		out[k] = v.Clone()
	}
	return out
}

// VssCertificatesMap holds the announced VSS keys, one per stakeholder.
type VssCertificatesMap map[StakeholderID]*VssCertificate

// Clone returns a shallow copy of the map.
func (m VssCertificatesMap) Clone() VssCertificatesMap {
	out := make(VssCertificatesMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// StakeSet lists the stakeholders eligible to participate in an epoch
// together with their stake.
type StakeSet map[StakeholderID]uint64
