package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/thanhnp/proof-of-reserves/internal/config"
	"github.com/thanhnp/proof-of-reserves/internal/models"
)

// Client is the chain-query capability the resolver consumes. Any
// provider answering these three questions against a real or simulated
// ledger is substitutable.
type Client interface {
	// CurrentHeight returns the current chain tip height.
	CurrentHeight(ctx context.Context) (int64, error)

	// ListUnspent returns the unspent outputs currently recorded for a
	// script-pubkey, each with its confirmation height (0 for mempool).
	ListUnspent(ctx context.Context, pkScript []byte) ([]models.UnspentRef, error)

	// GetTransaction returns the full transaction for a txid.
	GetTransaction(ctx context.Context, txid *chainhash.Hash) (*wire.MsgTx, error)

	// Close releases the underlying connection.
	Close()
}

// Dialer opens a Client for a network.
type Dialer interface {
	Dial(ctx context.Context, network models.Network) (Client, error)
}

// ConfigDialer selects the configured backend per network.
type ConfigDialer struct {
	cfg *config.Config
}

// NewConfigDialer creates a Dialer backed by the loaded configuration.
func NewConfigDialer(cfg *config.Config) *ConfigDialer {
	return &ConfigDialer{cfg: cfg}
}

// Dial connects to the backend configured for the network.
func (d *ConfigDialer) Dial(ctx context.Context, network models.Network) (Client, error) {
	backend := &d.cfg.Mainnet
	if network == models.NetworkTestnet {
		backend = &d.cfg.Testnet
	}

	timeout := queryTimeout(d.cfg)

	switch backend.Kind {
	case config.BackendElectrum:
		return DialElectrum(ctx, backend, timeout)
	case config.BackendBitcoind:
		return DialBitcoind(backend, timeout)
	default:
		return nil, fmt.Errorf("unknown chain backend kind: %q", backend.Kind)
	}
}

// queryTimeout returns the configured per-query timeout.
func queryTimeout(cfg *config.Config) time.Duration {
	if cfg.Verify.QueryTimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(cfg.Verify.QueryTimeoutSec) * time.Second
}
