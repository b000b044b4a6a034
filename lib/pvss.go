package lib

import (
	"bytes"
	"crypto/cipher"
	"crypto/sha256"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/share"
	"go.dedis.ch/kyber/v3/share/pvss"
	"golang.org/x/xerrors"

	"go.dedis.ch/ssc"
)

// basePointH is the second base point of the PVSS scheme. It is derived
// from the suite XOF so that all nodes agree on it, and is independent of
// every participant key.
var basePointH = ssc.Suite.Point().Pick(ssc.Suite.XOF([]byte("ssc:H")))

// GenSharedSecret draws a fresh secret from rand and shares it among the
// given VSS keys with reconstruction threshold t. It returns the
// polynomial commitments (the "extra" payload), the secret scalar, the
// proof binding the shared-secret point, and one encrypted share per key,
// in key order.
func GenSharedSecret(t int, vssKeys []kyber.Point, rand cipher.Stream) (
	[]kyber.Point, kyber.Scalar, []byte, []*pvss.PubVerShare, error) {

	secret := ssc.Suite.Scalar().Pick(rand)
	encShares, poly, err := pvss.EncShares(ssc.Suite, basePointH, vssKeys,
		secret, t)
	if err != nil {
		return nil, nil, nil, nil,
			xerrors.Errorf("creating encrypted shares: %v", err)
	}
	_, commits := poly.Info()
	return commits, secret, secretProof(secret), encShares, nil
}

// secretProof binds the shared-secret point g^secret so that an opening
// can later be checked without the commitment revealing the point itself.
func secretProof(secret kyber.Scalar) []byte {
	h := sha256.New()
	_, _ = ssc.Suite.Point().Mul(secret, nil).MarshalTo(h)
	return h.Sum(nil)
}

// VerifyEncShare checks that the encrypted share is well-formed for the
// given VSS key under the polynomial commitments.
func VerifyEncShare(extra []kyber.Point, vssKey kyber.Point,
	encShare *pvss.PubVerShare) error {

	poly := share.NewPubPoly(ssc.Suite, basePointH, extra)
	sH := poly.Eval(encShare.S.I).V
	err := pvss.VerifyEncShare(ssc.Suite, basePointH, vssKey, sH, encShare)
	if err != nil {
		return xerrors.Errorf("verifying encrypted share: %v", err)
	}
	return nil
}

// VerifySecretProof checks that the revealed secret scalar is the one the
// commitments and proof were created for.
func VerifySecretProof(extra []kyber.Point, secret kyber.Scalar,
	proof []byte) error {

	if len(extra) == 0 {
		return xerrors.New("empty polynomial commitments")
	}
	if !ssc.Suite.Point().Mul(secret, basePointH).Equal(extra[0]) {
		return xerrors.New("secret does not open the commitment")
	}
	if !bytes.Equal(secretProof(secret), proof) {
		return xerrors.New("proof does not bind the secret")
	}
	return nil
}

// DecryptShare recovers the decrypted share destined to the given VSS key
// pair from the commitment, verifying it on the way.
func DecryptShare(c *Commitment, vssPub kyber.Point, vssPriv kyber.Scalar) (
	*pvss.PubVerShare, error) {

	encShare := c.ShareFor(vssPub)
	if encShare == nil {
		return nil, xerrors.New("no share destined to this key")
	}
	poly := share.NewPubPoly(ssc.Suite, basePointH, c.Extra)
	sH := poly.Eval(encShare.S.I).V
	decShare, err := pvss.DecShare(ssc.Suite, basePointH, vssPub, sH,
		vssPriv, encShare)
	if err != nil {
		return nil, xerrors.Errorf("decrypting share: %v", err)
	}
	return decShare, nil
}

// VerifyDecShare checks a decrypted share against its encrypted
// counterpart and the decryptor's VSS key.
func VerifyDecShare(vssKey kyber.Point, encShare,
	decShare *pvss.PubVerShare) error {

	g := ssc.Suite.Point().Base()
	err := pvss.VerifyDecShare(ssc.Suite, g, vssKey, encShare, decShare)
	if err != nil {
		return xerrors.Errorf("verifying decrypted share: %v", err)
	}
	return nil
}

// RecoverSecret reconstructs the shared-secret point of a commitment from
// at least Threshold decrypted shares. The shares are matched to their
// encrypted counterparts by index.
func RecoverSecret(c *Commitment, decShares []*pvss.PubVerShare) (
	kyber.Point, error) {

	var keys []kyber.Point
	var enc []*pvss.PubVerShare
	var dec []*pvss.PubVerShare
	for _, ds := range decShares {
		if ds.S.I < 0 || ds.S.I >= len(c.Shares) {
			return nil, xerrors.Errorf("share index %d out of range", ds.S.I)
		}
		entry := c.Shares[ds.S.I]
		keys = append(keys, entry.VssKey)
		enc = append(enc, entry.Share)
		dec = append(dec, ds)
	}
	g := ssc.Suite.Point().Base()
	secret, err := pvss.RecoverSecret(ssc.Suite, g, keys, enc, dec,
		c.Threshold(), len(c.Shares))
	if err != nil {
		return nil, xerrors.Errorf("recovering secret: %v", err)
	}
	return secret, nil
}
