package models

import (
	"github.com/btcsuite/btcd/chaincfg"
)

// Network identifies which of the two supported Bitcoin networks a
// request targets.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
)

// Params returns the chain parameters for the network.
func (n Network) Params() *chaincfg.Params {
	if n == NetworkTestnet {
		return &chaincfg.TestNet3Params
	}
	return &chaincfg.MainNetParams
}
