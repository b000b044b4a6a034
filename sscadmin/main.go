// sscadmin is a command line interface to the shared-seed service: it
// generates stakeholder keys, inspects a running roster, and simulates a
// full epoch locally.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/util/encoding"
	"go.dedis.ch/kyber/v3/util/key"
	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/onet/v3/app"
	"go.dedis.ch/onet/v3/log"
	cli "gopkg.in/urfave/cli.v1"

	"go.dedis.ch/ssc"
	"go.dedis.ch/ssc/lib"
	"go.dedis.ch/ssc/service"
	"go.dedis.ch/ssc/toss"
)

var cmds = []cli.Command{
	{
		Name:   "keygen",
		Usage:  "generate a signing and a vss key pair for a stakeholder",
		Action: keygen,
	},
	{
		Name:      "status",
		Usage:     "show the accumulator status of a roster",
		ArgsUsage: "roster.toml",
		Action:    status,
	},
	{
		Name:      "simulate",
		Usage:     "run one epoch locally and print the seed",
		ArgsUsage: "config.toml",
		Action:    simulate,
	},
}

func main() {
	cliApp := cli.NewApp()
	cliApp.Name = "sscadmin"
	cliApp.Usage = "administrate the shared-seed computation"
	cliApp.Commands = cmds
	cliApp.Flags = []cli.Flag{
		cli.IntFlag{
			Name:  "debug, d",
			Value: 0,
			Usage: "debug level from 1 to 5",
		},
	}
	cliApp.Before = func(c *cli.Context) error {
		log.SetDebugVisible(c.Int("debug"))
		return nil
	}
	log.ErrFatal(cliApp.Run(os.Args))
}

func keygen(c *cli.Context) error {
	sign := key.NewKeyPair(ssc.Suite)
	vss := key.NewKeyPair(ssc.Suite)

	for _, kp := range []struct {
		name string
		pair *key.Pair
	}{{"signing", sign}, {"vss", vss}} {
		pub, err := encoding.PointToStringHex(ssc.Suite, kp.pair.Public)
		if err != nil {
			return err
		}
		priv, err := encoding.ScalarToStringHex(ssc.Suite, kp.pair.Private)
		if err != nil {
			return err
		}
		fmt.Printf("%s public:  %s\n", kp.name, pub)
		fmt.Printf("%s private: %s\n", kp.name, priv)
	}
	return nil
}

func status(c *cli.Context) error {
	if c.NArg() < 1 {
		return errors.New("please give: roster.toml")
	}
	f, err := os.Open(c.Args().First())
	if err != nil {
		return err
	}
	defer f.Close()
	group, err := app.ReadGroupDescToml(f)
	if err != nil {
		return err
	}

	client := service.NewClient(group.Roster)
	reply, err := client.Status()
	if err != nil {
		return err
	}
	fmt.Printf("k: %d\nposition: %s\nphase: %s\n", reply.K, reply.Pos,
		reply.Phase)
	fmt.Printf("commitments: %d\nopenings: %d\nshares: %d\n"+
		"certificates: %d\n", reply.Commitments, reply.Openings,
		reply.Shares, reply.Certificates)
	return nil
}

// simConfig parametrizes a local epoch simulation.
type simConfig struct {
	K            uint32
	Threshold    int
	Participants int
}

// simulate runs the three phases with in-process participants: every
// stakeholder commits, all but one open, and everybody submits its
// decrypted shares so the withheld secret is recovered anyway.
func simulate(c *cli.Context) error {
	if c.NArg() < 1 {
		return errors.New("please give: config.toml")
	}
	var cfg simConfig
	if _, err := toml.DecodeFile(c.Args().First(), &cfg); err != nil {
		return err
	}
	if cfg.K == 0 || cfg.Threshold < 1 ||
		cfg.Threshold > cfg.Participants {
		return errors.New("config needs K >= 1 and 1 <= Threshold <= " +
			"Participants")
	}

	signKeys := make([]*key.Pair, cfg.Participants)
	vssKeys := make([]*key.Pair, cfg.Participants)
	vssPubs := make([]kyber.Point, cfg.Participants)
	for i := range signKeys {
		signKeys[i] = key.NewKeyPair(ssc.Suite)
		vssKeys[i] = key.NewKeyPair(ssc.Suite)
		vssPubs[i] = vssKeys[i].Public
	}

	state := toss.NewState(nil)
	phases := lib.Phases{K: cfg.K}
	log.Lvl1("simulating one epoch of", phases.SlotsPerEpoch(), "slots")

	openings := make([]*lib.Opening, cfg.Participants)
	ids := make([]lib.StakeholderID, cfg.Participants)
	for i, kp := range signKeys {
		ids[i] = lib.NewStakeholderID(kp.Public)
		cert, err := lib.NewVssCertificate(kp.Private, kp.Public,
			vssPubs[i], 1)
		if err != nil {
			return err
		}
		state.PutCertificate(cert)

		commitment, opening, err := lib.GenCommitmentAndOpening(
			cfg.Threshold, vssPubs, random.New())
		if err != nil {
			return err
		}
		sc, err := lib.NewSignedCommitment(kp.Private, kp.Public, 0,
			commitment)
		if err != nil {
			return err
		}
		if check := lib.VerifySignedCommitment(0, sc); !check.Ok() {
			return check.Err()
		}
		state.PutCommitment(sc)
		openings[i] = opening
	}
	log.Lvl1("accumulated", cfg.Participants, "commitments")

	// The last participant withholds its opening.
	for i, o := range openings[:cfg.Participants-1] {
		state.PutOpening(ids[i], o)
	}

	commitments := state.Commitments()
	for i, vk := range vssKeys {
		inner := make(lib.InnerSharesMap)
		for owner, sc := range commitments {
			ds, err := lib.DecryptShare(sc.Commitment, vk.Public,
				vk.Private)
			if err != nil {
				return err
			}
			inner[owner] = ds
		}
		state.PutShares(ids[i], inner)
	}
	log.Lvl1("accumulated the decrypted shares")

	seed, err := toss.CalcSeed(state)
	if err != nil {
		return err
	}
	fmt.Println("epoch seed:", seed)
	return nil
}
