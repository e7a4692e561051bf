package proof

import (
	"errors"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/thanhnp/proof-of-reserves/internal/models"
)

// Verifier checks that a decoded proof binds to a challenge message and
// to currently-spendable outputs, and computes the proven total.
type Verifier struct {
	validators *ValidatorRegistry
}

// NewVerifier creates a Verifier with the standard validator registry.
func NewVerifier() *Verifier {
	return &Verifier{validators: NewValidatorRegistry()}
}

// Verify runs the reserve-proof algorithm against a point-in-time UTXO
// snapshot and returns the proven spendable total in satoshis.
//
// Input 0 must spend the commitment outpoint derived from message. Every
// later input must spend a distinct resolved outpoint, and
// every input must carry a valid signature or witness for its script.
// Verification fails fast at the first offending input in ascending
// order. A proof spending only a subset of the resolved UTXOs is valid.
func (v *Verifier) Verify(pf *ProofTransaction, message string, utxos []models.UtxoRecord) (int64, error) {
	tx := pf.UnsignedTx()

	// A proof commits its whole input value to a single output; a
	// transaction shaped any other way is not a reserve proof.
	if len(tx.TxOut) != 1 {
		return 0, models.WrapFailure(models.FailMalformedProof,
			errors.New("proof must have exactly one output"))
	}

	expected := CommitmentOutPoint(message)
	if tx.TxIn[0].PreviousOutPoint != expected {
		return 0, models.NewFailure(models.FailMessage)
	}

	// Match reserve inputs against the snapshot. Each outpoint satisfies
	// at most one input, so neither a duplicated input nor a duplicated
	// snapshot record can inflate the total.
	avail := make(map[wire.OutPoint]*models.UtxoRecord, len(utxos))
	for idx := range utxos {
		op := utxos[idx].OutPoint
		if _, ok := avail[op]; !ok {
			avail[op] = &utxos[idx]
		}
	}

	var total int64
	prevOuts := make(map[wire.OutPoint]*wire.TxOut, len(tx.TxIn))
	matched := make([]*wire.TxOut, len(tx.TxIn))
	for i := 1; i < len(tx.TxIn); i++ {
		op := tx.TxIn[i].PreviousOutPoint
		rec, ok := avail[op]
		if !ok {
			return 0, models.NewIndexedFailure(models.FailNonSpendable, i)
		}
		delete(avail, op)

		matched[i] = &rec.Output
		prevOuts[op] = &rec.Output
		total += rec.Output.Value
	}

	// The commitment outpoint does not exist on chain; the only output
	// data for it is whatever the proof itself carries. The sighash
	// cache fetches a prevout for every input, so input 0 always gets
	// an entry even when the proof supplies none.
	var commitmentValue int64
	prevOuts[expected] = &wire.TxOut{}
	if out := pf.InputUtxo(0); out != nil {
		matched[0] = out
		prevOuts[expected] = out
		commitmentValue = out.Value
	}

	// A proof pays no fee: everything spent arrives at the one output.
	// A tampered output value is structural damage, reported before any
	// signature it also breaks.
	if commitmentValue+total != tx.TxOut[0].Value {
		return 0, models.WrapFailure(models.FailMalformedProof,
			errors.New("input and output values differ"))
	}

	signed, err := pf.SignedTx()
	if err != nil {
		return 0, err
	}

	fetcher := txscript.NewMultiPrevOutFetcher(prevOuts)
	hashCache := txscript.NewTxSigHashes(signed, fetcher)
	for i := range signed.TxIn {
		prevOut := matched[i]
		if prevOut == nil {
			// Commitment input without supplied output data: the
			// outpoint match above is the binding check.
			continue
		}
		if err := v.validators.Validate(signed, i, prevOut, fetcher, hashCache); err != nil {
			return 0, models.WrapIndexedFailure(models.FailInvalidSig, i, err)
		}
	}

	return total, nil
}
