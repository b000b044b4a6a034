package lib

import (
	"crypto/cipher"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/sign/schnorr"
	"golang.org/x/xerrors"

	"go.dedis.ch/ssc"
)

// ErrBadThreshold is returned when the threshold is not in [1, n].
var ErrBadThreshold = xerrors.New("threshold out of range")

// ErrDuplicateVssKey is returned when the recipient list contains the same
// VSS key twice.
var ErrDuplicateVssKey = xerrors.New("duplicate vss key")

// GenCommitmentAndOpening creates a stakeholder's contribution for one
// epoch: a commitment sharing a fresh secret among the given VSS keys with
// threshold t, and the opening revealing it. The randomness source is the
// caller's and must be cryptographically secure.
func GenCommitmentAndOpening(t int, vssKeys []kyber.Point,
	rand cipher.Stream) (*Commitment, *Opening, error) {

	if t < 1 || t > len(vssKeys) {
		return nil, nil, ErrBadThreshold
	}
	seen := make(map[string]bool, len(vssKeys))
	for _, vk := range vssKeys {
		buf, err := vk.MarshalBinary()
		if err != nil {
			return nil, nil, xerrors.Errorf("marshalling vss key: %v", err)
		}
		if seen[string(buf)] {
			return nil, nil, ErrDuplicateVssKey
		}
		seen[string(buf)] = true
	}

	extra, secret, proof, encShares, err := GenSharedSecret(t, vssKeys, rand)
	if err != nil {
		return nil, nil, err
	}
	shares := make([]EncShare, len(encShares))
	for i, es := range encShares {
		shares[i] = EncShare{VssKey: vssKeys[i], Share: es}
	}
	c := &Commitment{Extra: extra, Proof: proof, Shares: shares}
	return c, &Opening{Secret: secret}, nil
}

// NewSignedCommitment binds the commitment to an epoch and signs it with
// the stakeholder's signing key.
func NewSignedCommitment(private kyber.Scalar, public kyber.Point,
	epoch uint32, c *Commitment) (*SignedCommitment, error) {

	sig, err := schnorr.Sign(ssc.Suite, private, commitmentDigest(epoch, c))
	if err != nil {
		return nil, xerrors.Errorf("signing commitment: %v", err)
	}
	return &SignedCommitment{Public: public, Commitment: c, Signature: sig},
		nil
}

// NewVssCertificate announces a VSS key valid up to and including the
// expiry epoch, signed with the stakeholder's signing key.
func NewVssCertificate(private kyber.Scalar, public kyber.Point,
	vssKey kyber.Point, expiry uint32) (*VssCertificate, error) {

	sig, err := schnorr.Sign(ssc.Suite, private,
		certificateDigest(vssKey, expiry))
	if err != nil {
		return nil, xerrors.Errorf("signing certificate: %v", err)
	}
	return &VssCertificate{
		Public:    public,
		VssKey:    vssKey,
		Expiry:    expiry,
		Signature: sig,
	}, nil
}
