package toss

import (
	"bytes"
	"sort"

	"go.dedis.ch/kyber/v3/share/pvss"
	"go.dedis.ch/onet/v3/network"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/xerrors"

	"go.dedis.ch/ssc"
	"go.dedis.ch/ssc/lib"
)

// SnapshotVersion is the schema tag of the serialized accumulator.
const SnapshotVersion = 0

func init() {
	network.RegisterMessages(&Snapshot{})
}

// OpeningEntry is one opening in a snapshot, keyed by the raw stakeholder
// identifier.
type OpeningEntry struct {
	ID      []byte
	Opening *lib.Opening
}

// ShareEntry is one decrypted share in a snapshot: Decryptor has decrypted
// the share of Owner's commitment.
type ShareEntry struct {
	Decryptor []byte
	Owner     []byte
	Share     *pvss.PubVerShare
}

// Snapshot is the serializable view of the accumulator: the four maps
// flattened into ID-sorted entry slices, plus the logical clock. Stable
// certificate sets are not part of it; they are rebuilt at the next
// rollover.
type Snapshot struct {
	Version      uint32
	Pos          lib.EpochOrSlot
	Commitments  []*lib.SignedCommitment
	Openings     []OpeningEntry
	Shares       []ShareEntry
	Certificates []*lib.VssCertificate
}

// Snapshot returns the serializable view of the accumulator, deterministic
// for a given state.
func (s *State) Snapshot() *Snapshot {
	snap := &Snapshot{Version: SnapshotVersion, Pos: s.pos}

	for _, sc := range s.commitments {
		snap.Commitments = append(snap.Commitments, sc)
	}
	sort.Slice(snap.Commitments, func(i, j int) bool {
		a, b := snap.Commitments[i].ID(), snap.Commitments[j].ID()
		return bytes.Compare(a[:], b[:]) < 0
	})

	for id, o := range s.openings {
		entry := OpeningEntry{ID: append([]byte{}, id[:]...), Opening: o}
		snap.Openings = append(snap.Openings, entry)
	}
	sort.Slice(snap.Openings, func(i, j int) bool {
		return bytes.Compare(snap.Openings[i].ID, snap.Openings[j].ID) < 0
	})

	for dec, inner := range s.shares {
		for owner, share := range inner {
			snap.Shares = append(snap.Shares, ShareEntry{
				Decryptor: append([]byte{}, dec[:]...),
				Owner:     append([]byte{}, owner[:]...),
				Share:     share,
			})
		}
	}
	sort.Slice(snap.Shares, func(i, j int) bool {
		c := bytes.Compare(snap.Shares[i].Decryptor, snap.Shares[j].Decryptor)
		if c != 0 {
			return c < 0
		}
		return bytes.Compare(snap.Shares[i].Owner, snap.Shares[j].Owner) < 0
	})

	for _, cert := range s.certs {
		snap.Certificates = append(snap.Certificates, cert)
	}
	sort.Slice(snap.Certificates, func(i, j int) bool {
		a, b := snap.Certificates[i].ID(), snap.Certificates[j].ID()
		return bytes.Compare(a[:], b[:]) < 0
	})

	return snap
}

func toID(buf []byte) (lib.StakeholderID, error) {
	var id lib.StakeholderID
	if len(buf) != len(id) {
		return id, xerrors.Errorf("malformed stakeholder ID of %d bytes",
			len(buf))
	}
	copy(id[:], buf)
	return id, nil
}

// FromSnapshot rebuilds an accumulator from its serialized view.
func FromSnapshot(snap *Snapshot, richmen Richmen) (*State, error) {
	if snap.Version > SnapshotVersion {
		return nil, xerrors.Errorf("unknown snapshot version %d",
			snap.Version)
	}
	s := NewState(richmen)
	s.pos = snap.Pos
	for _, sc := range snap.Commitments {
		s.PutCommitment(sc)
	}
	for _, entry := range snap.Openings {
		id, err := toID(entry.ID)
		if err != nil {
			return nil, err
		}
		s.PutOpening(id, entry.Opening)
	}
	for _, entry := range snap.Shares {
		dec, err := toID(entry.Decryptor)
		if err != nil {
			return nil, err
		}
		owner, err := toID(entry.Owner)
		if err != nil {
			return nil, err
		}
		if s.shares[dec] == nil {
			s.shares[dec] = make(lib.InnerSharesMap)
		}
		s.shares[dec][owner] = entry.Share
	}
	for _, cert := range snap.Certificates {
		s.PutCertificate(cert)
	}
	return s, nil
}

var dbBucket = []byte("ssc-toss")
var snapshotKey = []byte("snapshot")

// DB stores the latest snapshot of the accumulator on disk, so a node can
// resume an epoch after a restart.
type DB struct {
	db *bolt.DB
}

// OpenDB opens or creates the snapshot store at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, xerrors.Errorf("opening database: %v", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(dbBucket)
		return err
	})
	if err != nil {
		return nil, xerrors.Errorf("creating bucket: %v", err)
	}
	return &DB{db: db}, nil
}

// Save overwrites the stored snapshot.
func (d *DB) Save(snap *Snapshot) error {
	buf, err := network.Marshal(snap)
	if err != nil {
		return xerrors.Errorf("marshalling snapshot: %v", err)
	}
	err = d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(dbBucket).Put(snapshotKey, buf)
	})
	if err != nil {
		return xerrors.Errorf("saving snapshot: %v", err)
	}
	return nil
}

// Load returns the stored snapshot, or nil if none has been saved yet.
func (d *DB) Load() (*Snapshot, error) {
	var buf []byte
	err := d.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(dbBucket).Get(snapshotKey); v != nil {
			buf = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, xerrors.Errorf("reading snapshot: %v", err)
	}
	if buf == nil {
		return nil, nil
	}
	_, msg, err := network.Unmarshal(buf, ssc.Suite)
	if err != nil {
		return nil, xerrors.Errorf("unmarshalling snapshot: %v", err)
	}
	snap, ok := msg.(*Snapshot)
	if !ok {
		return nil, xerrors.New("stored value is not a snapshot")
	}
	if snap.Version > SnapshotVersion {
		return nil, xerrors.Errorf("unknown snapshot version %d",
			snap.Version)
	}
	return snap, nil
}

// Close closes the underlying database.
func (d *DB) Close() error {
	if err := d.db.Close(); err != nil {
		return xerrors.Errorf("closing database: %v", err)
	}
	return nil
}
