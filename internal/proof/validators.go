package proof

import (
	"fmt"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// SignatureValidator checks one input's signature/witness data against
// the previous output it spends. Implementations are registered per
// script class so new script types can be supported without touching the
// matching and summation logic.
type SignatureValidator interface {
	Validate(tx *wire.MsgTx, idx int, prevOut *wire.TxOut,
		fetcher txscript.PrevOutputFetcher, hashCache *txscript.TxSigHashes) error
}

// ValidatorRegistry dispatches signature validation by script class.
type ValidatorRegistry struct {
	validators map[txscript.ScriptClass]SignatureValidator
	fallback   SignatureValidator
}

// NewValidatorRegistry returns a registry covering the standard script
// classes, each backed by the txscript engine with standard verification
// flags. Unrecognized classes fall back to the same engine; the engine
// itself rejects scripts it cannot satisfy.
func NewValidatorRegistry() *ValidatorRegistry {
	engine := &engineValidator{flags: txscript.StandardVerifyFlags}
	return &ValidatorRegistry{
		validators: map[txscript.ScriptClass]SignatureValidator{
			txscript.PubKeyTy:              engine,
			txscript.PubKeyHashTy:          engine,
			txscript.ScriptHashTy:          engine,
			txscript.MultiSigTy:            engine,
			txscript.WitnessV0PubKeyHashTy: engine,
			txscript.WitnessV0ScriptHashTy: engine,
			txscript.WitnessV1TaprootTy:    engine,
		},
		fallback: engine,
	}
}

// Register installs or replaces the validator for a script class.
func (r *ValidatorRegistry) Register(class txscript.ScriptClass, v SignatureValidator) {
	r.validators[class] = v
}

// Validate dispatches to the validator for the previous output's script
// class.
func (r *ValidatorRegistry) Validate(tx *wire.MsgTx, idx int, prevOut *wire.TxOut,
	fetcher txscript.PrevOutputFetcher, hashCache *txscript.TxSigHashes) error {

	class := txscript.GetScriptClass(prevOut.PkScript)
	v, ok := r.validators[class]
	if !ok {
		v = r.fallback
	}
	return v.Validate(tx, idx, prevOut, fetcher, hashCache)
}

// engineValidator runs the full script engine for one input.
type engineValidator struct {
	flags txscript.ScriptFlags
}

func (v *engineValidator) Validate(tx *wire.MsgTx, idx int, prevOut *wire.TxOut,
	fetcher txscript.PrevOutputFetcher, hashCache *txscript.TxSigHashes) error {

	vm, err := txscript.NewEngine(prevOut.PkScript, tx, idx, v.flags,
		nil, hashCache, prevOut.Value, fetcher)
	if err != nil {
		return fmt.Errorf("script engine: %w", err)
	}
	if err := vm.Execute(); err != nil {
		return fmt.Errorf("script execution: %w", err)
	}
	return nil
}
