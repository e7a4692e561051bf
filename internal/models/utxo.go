package models

import (
	"github.com/btcsuite/btcd/wire"
)

// UnspentRef is an unspent output as reported by a chain backend: the
// outpoint plus the confirmation height of the funding transaction. The
// resolved output itself is materialized separately from the full
// transaction.
type UnspentRef struct {
	OutPoint wire.OutPoint
	Height   int64 // 0 for mempool transactions
}

// UtxoRecord is one confirmed, spendable output resolved for a claimed
// address. Records are read-only for the duration of a request.
type UtxoRecord struct {
	OutPoint wire.OutPoint
	Output   wire.TxOut
	Height   int64
	Address  string
}
