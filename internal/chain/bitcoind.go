package chain

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"

	"github.com/thanhnp/proof-of-reserves/internal/config"
	"github.com/thanhnp/proof-of-reserves/internal/models"
	"github.com/thanhnp/proof-of-reserves/pkg/semver"
)

// Compatible btcd JSON-RPC API versions
var compatibleChainServerAPIs = []semver.Semver{
	semver.NewSemver(1, 0, 0),
	semver.NewSemver(2, 0, 0),
	semver.NewSemver(3, 0, 0),
	semver.NewSemver(4, 0, 0),
	semver.NewSemver(5, 0, 0),
	semver.NewSemver(6, 0, 0),
	semver.NewSemver(7, 0, 0),
	semver.NewSemver(8, 0, 0),
}

// BitcoindClient implements the chain-query capability over a bitcoind
// or btcd node's JSON-RPC interface.
type BitcoindClient struct {
	client  *rpcclient.Client
	timeout time.Duration
}

// DialBitcoind connects to a bitcoind (HTTP POST mode) or btcd
// (WebSocket mode) node. In WebSocket mode the node's advertised
// JSON-RPC API version must be compatible.
func DialBitcoind(cfg *config.BackendConfig, timeout time.Duration) (*BitcoindClient, error) {
	var certs []byte
	var err error

	if !cfg.DisableTLS && cfg.Cert != "" {
		certs, err = os.ReadFile(cfg.Cert)
		if err != nil {
			return nil, fmt.Errorf("failed to read certificate: %w", err)
		}
	}

	var connCfg *rpcclient.ConnConfig
	if cfg.HTTPMode {
		// HTTP POST mode for bitcoind
		connCfg = &rpcclient.ConnConfig{
			Host:         cfg.Host,
			User:         cfg.User,
			Pass:         cfg.Pass,
			HTTPPostMode: true,
			DisableTLS:   cfg.DisableTLS,
			Certificates: certs,
		}
	} else {
		// WebSocket mode for btcd
		connCfg = &rpcclient.ConnConfig{
			Host:                 cfg.Host,
			Endpoint:             "ws",
			User:                 cfg.User,
			Pass:                 cfg.Pass,
			Certificates:         certs,
			DisableTLS:           cfg.DisableTLS,
			DisableAutoReconnect: false,
		}
	}

	client, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create RPC client: %w", err)
	}

	if !cfg.HTTPMode {
		// Ensure the RPC server has a compatible API version.
		ver, err := client.Version()
		if err != nil {
			client.Shutdown()
			return nil, fmt.Errorf("unable to get node RPC version: %w", err)
		}
		btcdVer := ver["btcdjsonrpcapi"]
		nodeVer := semver.NewSemver(btcdVer.Major, btcdVer.Minor, btcdVer.Patch)
		if !semver.AnyCompatible(compatibleChainServerAPIs, nodeVer) {
			client.Shutdown()
			return nil, fmt.Errorf("node JSON-RPC server does not have a compatible API version. "+
				"Advertises %v but requires one of: %v", nodeVer, compatibleChainServerAPIs)
		}
		log.Printf("[CHAIN] Connected to btcd %s, API version %s", cfg.Host, nodeVer)
	} else {
		log.Printf("[CHAIN] Connected to bitcoind %s (HTTP mode)", cfg.Host)
	}

	return &BitcoindClient{client: client, timeout: timeout}, nil
}

// Close shuts down the RPC client connection.
func (c *BitcoindClient) Close() {
	c.client.Shutdown()
}

// CurrentHeight returns the current block height.
func (c *BitcoindClient) CurrentHeight(ctx context.Context) (int64, error) {
	return call(ctx, c.timeout, func() (int64, error) {
		return c.client.GetBlockCount()
	})
}

// scanTxOutResult mirrors bitcoind's scantxoutset response.
type scanTxOutResult struct {
	Success  bool  `json:"success"`
	Height   int64 `json:"height"`
	Unspents []struct {
		TxID   string  `json:"txid"`
		Vout   uint32  `json:"vout"`
		Amount float64 `json:"amount"`
		Height int64   `json:"height"`
	} `json:"unspents"`
}

// ListUnspent scans the UTXO set for outputs locked to a script-pubkey.
// scantxoutset only reports confirmed outputs, so every ref carries a
// nonzero height.
func (c *BitcoindClient) ListUnspent(ctx context.Context, pkScript []byte) ([]models.UnspentRef, error) {
	return call(ctx, c.timeout, func() ([]models.UnspentRef, error) {
		action, _ := json.Marshal("start")
		descriptor, err := json.Marshal([]map[string]string{
			{"desc": fmt.Sprintf("raw(%s)", hex.EncodeToString(pkScript))},
		})
		if err != nil {
			return nil, err
		}

		raw, err := c.client.RawRequest("scantxoutset", []json.RawMessage{action, descriptor})
		if err != nil {
			return nil, fmt.Errorf("scantxoutset failed: %w", err)
		}

		var result scanTxOutResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, fmt.Errorf("failed to parse scantxoutset result: %w", err)
		}
		if !result.Success {
			return nil, fmt.Errorf("scantxoutset reported failure")
		}

		refs := make([]models.UnspentRef, 0, len(result.Unspents))
		for _, u := range result.Unspents {
			txid, err := chainhash.NewHashFromStr(u.TxID)
			if err != nil {
				return nil, fmt.Errorf("node returned invalid txid %q: %w", u.TxID, err)
			}
			refs = append(refs, models.UnspentRef{
				OutPoint: wire.OutPoint{Hash: *txid, Index: u.Vout},
				Height:   u.Height,
			})
		}
		return refs, nil
	})
}

// GetTransaction returns the full transaction for a txid.
func (c *BitcoindClient) GetTransaction(ctx context.Context, txid *chainhash.Hash) (*wire.MsgTx, error) {
	return call(ctx, c.timeout, func() (*wire.MsgTx, error) {
		tx, err := c.client.GetRawTransaction(txid)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch transaction %s: %w", txid, err)
		}
		return tx.MsgTx(), nil
	})
}

// call runs a synchronous RPC under a deadline so a stalled node cannot
// hang the request.
func call[T any](ctx context.Context, timeout time.Duration, fn func() (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		value, err := fn()
		ch <- result{value, err}
	}()

	select {
	case res := <-ch:
		return res.value, res.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("chain query timed out: %w", ctx.Err())
	}
}
