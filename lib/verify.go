package lib

import (
	"fmt"
	"strings"

	"go.dedis.ch/kyber/v3/sign/schnorr"
	"golang.org/x/xerrors"

	"go.dedis.ch/ssc"
)

// VerifyCommitment checks the well-formedness of a commitment: the share
// list is indexed consecutively, the VSS keys are unique, and every
// encrypted share verifies under the polynomial commitments. All failing
// shares are reported, not only the first one.
func VerifyCommitment(c *Commitment) error {
	if len(c.Extra) == 0 {
		return xerrors.New("empty polynomial commitments")
	}
	if len(c.Shares) < len(c.Extra) {
		return xerrors.Errorf("%d shares cannot meet threshold %d",
			len(c.Shares), len(c.Extra))
	}

	var bad []string
	seen := make(map[string]bool, len(c.Shares))
	for i, es := range c.Shares {
		if es.VssKey == nil || es.Share == nil {
			bad = append(bad, fmt.Sprintf("share %d: missing fields", i))
			continue
		}
		if es.Share.S.I != i {
			bad = append(bad, fmt.Sprintf("share %d: index %d", i,
				es.Share.S.I))
			continue
		}
		buf, err := es.VssKey.MarshalBinary()
		if err != nil {
			return xerrors.Errorf("marshalling vss key: %v", err)
		}
		if seen[string(buf)] {
			bad = append(bad, fmt.Sprintf("share %d: duplicate vss key", i))
			continue
		}
		seen[string(buf)] = true
		if err := VerifyEncShare(c.Extra, es.VssKey, es.Share); err != nil {
			bad = append(bad, fmt.Sprintf("share %d: %v", i, err))
		}
	}
	if len(bad) > 0 {
		return xerrors.New("bad commitment: " + strings.Join(bad, "; "))
	}
	return nil
}

// VerifyCommitmentSignature checks the signature of a signed commitment
// against the epoch it claims to belong to.
func VerifyCommitmentSignature(epoch uint32, sc *SignedCommitment) error {
	err := schnorr.Verify(ssc.Suite, sc.Public,
		commitmentDigest(epoch, sc.Commitment), sc.Signature)
	if err != nil {
		return xerrors.Errorf("verifying commitment signature: %v", err)
	}
	return nil
}

// SignedCommitmentCheck is the result of verifying a signed commitment.
// Both checks are always evaluated so that a diagnostic covers everything
// wrong with the message.
type SignedCommitmentCheck struct {
	SignatureErr  error
	CommitmentErr error
}

// Ok returns true if both checks passed.
func (c SignedCommitmentCheck) Ok() bool {
	return c.SignatureErr == nil && c.CommitmentErr == nil
}

// Err returns nil if both checks passed, and an error enumerating the
// failures otherwise.
func (c SignedCommitmentCheck) Err() error {
	if c.Ok() {
		return nil
	}
	var parts []string
	if c.SignatureErr != nil {
		parts = append(parts, c.SignatureErr.Error())
	}
	if c.CommitmentErr != nil {
		parts = append(parts, c.CommitmentErr.Error())
	}
	return xerrors.New(strings.Join(parts, "; "))
}

// VerifySignedCommitment runs the signature check and the commitment
// well-formedness check and reports the result of both.
func VerifySignedCommitment(epoch uint32,
	sc *SignedCommitment) SignedCommitmentCheck {

	return SignedCommitmentCheck{
		SignatureErr:  VerifyCommitmentSignature(epoch, sc),
		CommitmentErr: VerifyCommitment(sc.Commitment),
	}
}

// VerifyOpening checks that the opening reveals the secret the commitment
// was created for.
func VerifyOpening(c *Commitment, o *Opening) error {
	return VerifySecretProof(c.Extra, o.Secret, c.Proof)
}

// VerifyCertificate checks the certificate signature and that it has not
// expired at the given epoch.
func VerifyCertificate(cert *VssCertificate, epoch uint32) error {
	err := schnorr.Verify(ssc.Suite, cert.Public,
		certificateDigest(cert.VssKey, cert.Expiry), cert.Signature)
	if err != nil {
		return xerrors.Errorf("verifying certificate signature: %v", err)
	}
	if cert.Expiry < epoch {
		return xerrors.Errorf("certificate expired at epoch %d", cert.Expiry)
	}
	return nil
}
