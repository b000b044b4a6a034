package toss

import (
	"sort"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/share/pvss"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"

	"go.dedis.ch/ssc/lib"
)

// ErrNoContributions is returned when an epoch closes without a single
// recoverable seed contribution.
var ErrNoContributions = xerrors.New("no seed contributions in this epoch")

// CalcSeed reduces the accumulator's transcript to the epoch seed: the
// XOR of one contribution per committed stakeholder. A contribution comes
// from the stakeholder's own opening when it revealed one, and otherwise
// is recovered from the decrypted shares the other participants submitted.
// Stakeholders whose secret can be neither opened nor recovered are left
// out; they cannot bias the seed by withholding, only forfeit their
// contribution.
func CalcSeed(view TossRead) (lib.Seed, error) {
	commitments := view.Commitments()
	openings := view.Openings()
	shares := view.Shares()

	seed := lib.ZeroSeed()
	contributed := 0
	for id, sc := range commitments {
		secret, err := contribution(id, sc, openings, shares)
		if err != nil {
			log.Lvl2("skipping contribution of", id, ":", err)
			continue
		}
		part, err := lib.SecretToSeed(secret)
		if err != nil {
			return nil, err
		}
		seed, err = seed.Xor(part)
		if err != nil {
			return nil, err
		}
		contributed++
	}
	if contributed == 0 {
		return nil, ErrNoContributions
	}
	log.Lvl2("epoch seed built from", contributed, "contributions")
	return seed, nil
}

func contribution(id lib.StakeholderID, sc *lib.SignedCommitment,
	openings lib.OpeningsMap, shares lib.SharesMap) (kyber.Point, error) {

	if o, ok := openings[id]; ok {
		return o.SecretPoint(), nil
	}

	var decShares []*pvss.PubVerShare
	for _, inner := range shares {
		if ds, ok := inner[id]; ok {
			decShares = append(decShares, ds)
		}
	}
	if len(decShares) < sc.Commitment.Threshold() {
		return nil, xerrors.Errorf("%d shares below threshold %d",
			len(decShares), sc.Commitment.Threshold())
	}
	sort.Slice(decShares, func(i, j int) bool {
		return decShares[i].S.I < decShares[j].S.I
	})
	return lib.RecoverSecret(sc.Commitment, decShares)
}
