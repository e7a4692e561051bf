package proof

import (
	"bytes"
	"encoding/base64"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/wire"

	"github.com/thanhnp/proof-of-reserves/internal/models"
)

// ProofTransaction is the decoded structural model of a reserve proof:
// the unsigned transaction skeleton plus per-input previous-output data,
// partial signatures and script material.
type ProofTransaction struct {
	Packet *psbt.Packet
}

// Decode parses a base64-encoded PSBT into a ProofTransaction. A payload
// that is not valid base64 fails with EncodingError; bytes that do not
// parse as a structurally valid PSBT, or a PSBT with no inputs, fail with
// MalformedProof.
func Decode(proofB64 string) (*ProofTransaction, error) {
	raw, err := base64.StdEncoding.DecodeString(proofB64)
	if err != nil {
		return nil, models.WrapFailure(models.FailEncoding, err)
	}

	packet, err := psbt.NewFromRawBytes(bytes.NewReader(raw), false)
	if err != nil {
		return nil, models.WrapFailure(models.FailMalformedProof, err)
	}

	if len(packet.UnsignedTx.TxIn) == 0 {
		return nil, models.NewFailure(models.FailMalformedProof)
	}

	return &ProofTransaction{Packet: packet}, nil
}

// UnsignedTx returns the proof's transaction skeleton.
func (p *ProofTransaction) UnsignedTx() *wire.MsgTx {
	return p.Packet.UnsignedTx
}

// NumInputs returns the number of inputs, commitment input included.
func (p *ProofTransaction) NumInputs() int {
	return len(p.Packet.UnsignedTx.TxIn)
}

// InputUtxo returns the previous output the PSBT itself supplies for
// input i, from its witness UTXO or its full previous transaction, or
// nil when the PSBT carries neither.
func (p *ProofTransaction) InputUtxo(i int) *wire.TxOut {
	if i < 0 || i >= len(p.Packet.Inputs) {
		return nil
	}
	in := p.Packet.Inputs[i]
	if in.WitnessUtxo != nil {
		return in.WitnessUtxo
	}
	if in.NonWitnessUtxo != nil {
		prev := p.Packet.UnsignedTx.TxIn[i].PreviousOutPoint
		if in.NonWitnessUtxo.TxHash() != prev.Hash {
			return nil
		}
		if int(prev.Index) >= len(in.NonWitnessUtxo.TxOut) {
			return nil
		}
		return in.NonWitnessUtxo.TxOut[prev.Index]
	}
	return nil
}

// SignedTx returns a copy of the unsigned transaction with each input's
// finalized scriptSig and witness filled in, ready for script execution.
func (p *ProofTransaction) SignedTx() (*wire.MsgTx, error) {
	tx := p.Packet.UnsignedTx.Copy()
	for i, in := range p.Packet.Inputs {
		if len(in.FinalScriptSig) > 0 {
			tx.TxIn[i].SignatureScript = in.FinalScriptSig
		}
		if len(in.FinalScriptWitness) > 0 {
			witness, err := parseWitnessStack(in.FinalScriptWitness)
			if err != nil {
				return nil, models.WrapFailure(models.FailMalformedProof, err)
			}
			tx.TxIn[i].Witness = witness
		}
	}
	return tx, nil
}

// parseWitnessStack decodes a serialized witness field into its stack
// elements (varint element count, then length-prefixed elements).
func parseWitnessStack(serialized []byte) (wire.TxWitness, error) {
	r := bytes.NewReader(serialized)
	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, err
	}
	witness := make(wire.TxWitness, 0, count)
	for j := uint64(0); j < count; j++ {
		item, err := wire.ReadVarBytes(r, 0, txscriptMaxItemSize, "witness item")
		if err != nil {
			return nil, err
		}
		witness = append(witness, item)
	}
	return witness, nil
}

// Relay-standard cap on a single witness stack element.
const txscriptMaxItemSize = 11000
