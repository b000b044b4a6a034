// Package ssc implements the shared-seed-computation subsystem of a
// proof-of-stake blockchain. Every epoch, the eligible stakeholders run a
// three-phase PVSS protocol (commitment, opening, shares) whose transcript
// reduces to one unbiasable random seed, used afterwards to elect slot
// leaders. The lib package holds the message types and the cryptographic
// operations, the toss package the per-epoch accumulator, and the service
// package the driver that feeds verified messages into it.
package ssc

import (
	"go.dedis.ch/kyber/v3/suites"
)

// Suite is the cryptographic group used by all keys, shares and signatures
// of the subsystem.
var Suite = suites.MustFind("Ed25519")
