package proof

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// commitmentPrefix is prepended to the challenge message before hashing,
// so a proof can never be confused with a hash of raw user input.
const commitmentPrefix = "Proof-of-Reserves: "

// CommitmentOutPoint derives the provably-nonexistent previous output the
// proof's first input must spend: output 0 of the double-SHA256 of the
// prefixed challenge message. Changing the message changes the outpoint,
// which invalidates any signature committing to it.
func CommitmentOutPoint(message string) wire.OutPoint {
	txid := chainhash.DoubleHashH([]byte(commitmentPrefix + message))
	return wire.OutPoint{Hash: txid, Index: 0}
}
