package chain

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/checksum0/go-electrum/electrum"

	"github.com/thanhnp/proof-of-reserves/internal/config"
	"github.com/thanhnp/proof-of-reserves/internal/models"
	"github.com/thanhnp/proof-of-reserves/pkg/semver"
)

// Compatible Electrum protocol versions
var compatibleElectrumProtocols = []semver.Semver{
	semver.NewSemver(1, 2, 0),
	semver.NewSemver(1, 4, 0),
}

// ElectrumClient implements the chain-query capability over the Electrum
// server protocol.
type ElectrumClient struct {
	client  *electrum.Client
	timeout time.Duration
}

// DialElectrum connects to an Electrum server and checks that its
// protocol version is compatible.
func DialElectrum(ctx context.Context, cfg *config.BackendConfig, timeout time.Duration) (*ElectrumClient, error) {
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var client *electrum.Client
	var err error
	if cfg.SSL {
		client, err = electrum.NewClientSSL(dialCtx, cfg.Endpoint, &tls.Config{})
	} else {
		client, err = electrum.NewClientTCP(dialCtx, cfg.Endpoint)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to electrum server %s: %w", cfg.Endpoint, err)
	}

	serverVer, protocolVer, err := client.ServerVersion(dialCtx)
	if err != nil {
		client.Shutdown()
		return nil, fmt.Errorf("failed to negotiate electrum version: %w", err)
	}

	protoSemver, err := parseProtocolVersion(protocolVer)
	if err != nil {
		client.Shutdown()
		return nil, err
	}
	if !semver.AnyCompatible(compatibleElectrumProtocols, protoSemver) {
		client.Shutdown()
		return nil, fmt.Errorf("electrum server %s advertises protocol %s but one of %v is required",
			cfg.Endpoint, protocolVer, compatibleElectrumProtocols)
	}

	log.Printf("[CHAIN] Connected to electrum server %s (%s, protocol %s)",
		cfg.Endpoint, serverVer, protocolVer)

	return &ElectrumClient{client: client, timeout: timeout}, nil
}

// Close shuts down the Electrum connection.
func (c *ElectrumClient) Close() {
	c.client.Shutdown()
}

// CurrentHeight returns the chain tip height from the server's headers
// subscription, which delivers the current tip immediately.
func (c *ElectrumClient) CurrentHeight(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	headers, err := c.client.SubscribeHeaders(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to subscribe to headers: %w", err)
	}

	select {
	case header, ok := <-headers:
		if !ok {
			return 0, fmt.Errorf("electrum headers subscription closed")
		}
		return int64(header.Height), nil
	case <-ctx.Done():
		return 0, fmt.Errorf("timed out waiting for chain tip: %w", ctx.Err())
	}
}

// ListUnspent returns the unspent outputs for a script-pubkey via its
// Electrum scripthash.
func (c *ElectrumClient) ListUnspent(ctx context.Context, pkScript []byte) ([]models.UnspentRef, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	unspents, err := c.client.ListUnspent(ctx, scripthash(pkScript))
	if err != nil {
		return nil, fmt.Errorf("failed to list unspent outputs: %w", err)
	}

	refs := make([]models.UnspentRef, 0, len(unspents))
	for _, u := range unspents {
		txid, err := chainhash.NewHashFromStr(u.Hash)
		if err != nil {
			return nil, fmt.Errorf("electrum returned invalid txid %q: %w", u.Hash, err)
		}
		refs = append(refs, models.UnspentRef{
			OutPoint: wire.OutPoint{Hash: *txid, Index: u.Position},
			Height:   int64(u.Height),
		})
	}
	return refs, nil
}

// GetTransaction fetches and deserializes the full transaction for a txid.
func (c *ElectrumClient) GetTransaction(ctx context.Context, txid *chainhash.Hash) (*wire.MsgTx, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rawHex, err := c.client.GetRawTransaction(ctx, txid.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transaction %s: %w", txid, err)
	}

	raw, err := hex.DecodeString(rawHex)
	if err != nil {
		return nil, fmt.Errorf("electrum returned invalid transaction hex for %s: %w", txid, err)
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to deserialize transaction %s: %w", txid, err)
	}
	return tx, nil
}

// scripthash computes the Electrum script hash for a script-pubkey:
// sha256 of the script, byte-reversed, hex-encoded.
func scripthash(pkScript []byte) string {
	sum := sha256.Sum256(pkScript)
	for i, j := 0, len(sum)-1; i < j; i, j = i+1, j-1 {
		sum[i], sum[j] = sum[j], sum[i]
	}
	return hex.EncodeToString(sum[:])
}

// parseProtocolVersion normalizes Electrum's two-component protocol
// versions ("1.4") before semver parsing.
func parseProtocolVersion(version string) (semver.Semver, error) {
	normalized := version
	if n := countDots(version); n == 1 {
		normalized = version + ".0"
	}
	v, err := semver.Parse(normalized)
	if err != nil {
		return semver.Semver{}, fmt.Errorf("unparseable electrum protocol version %q: %w", version, err)
	}
	return semver.NewSemver(uint32(v.Major), uint32(v.Minor), uint32(v.Patch)), nil
}

func countDots(s string) int {
	n := 0
	for _, r := range s {
		if r == '.' {
			n++
		}
	}
	return n
}
