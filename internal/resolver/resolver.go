package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"golang.org/x/sync/errgroup"

	"github.com/thanhnp/proof-of-reserves/internal/chain"
	"github.com/thanhnp/proof-of-reserves/internal/models"
)

// Resolver turns a list of claimed addresses into a flat view of their
// currently spendable outputs, filtered to a fixed confirmation depth.
type Resolver struct {
	dialer        chain.Dialer
	confirmations int64
}

// New creates a Resolver requiring the given confirmation depth.
func New(dialer chain.Dialer, requiredConfirmations int64) *Resolver {
	return &Resolver{dialer: dialer, confirmations: requiredConfirmations}
}

// DetectNetwork infers the target network from an address's encoding.
// Testnet addresses decode only under testnet parameters; everything
// else is treated as mainnet and validated there.
func DetectNetwork(address string) models.Network {
	if _, err := btcutil.DecodeAddress(address, &chaincfg.TestNet3Params); err == nil {
		return models.NetworkTestnet
	}
	return models.NetworkMainnet
}

// Resolve validates the claimed addresses, detects the target network
// from the first one, and fetches every confirmed unspent output for
// them against a single point-in-time confirmation threshold. Records
// are concatenated in address order, then per-address discovery order;
// duplicate outpoints across addresses are kept.
func (r *Resolver) Resolve(ctx context.Context, addresses []string) (models.Network, []models.UtxoRecord, error) {
	if len(addresses) == 0 {
		return "", nil, models.NewFailure(models.FailNoAddress)
	}

	network := DetectNetwork(addresses[0])
	params := network.Params()

	scripts := make([][]byte, len(addresses))
	for i, s := range addresses {
		addr, err := btcutil.DecodeAddress(s, params)
		if err != nil {
			if belongsToOther(s, network) {
				return network, nil, models.WrapFailure(models.FailMixedNetworks,
					fmt.Errorf("address %d is not a %s address", i, network))
			}
			return network, nil, models.WrapIndexedFailure(models.FailInvalidAddress, i, err)
		}
		script, err := txscript.PayToAddrScript(addr)
		if err != nil {
			return network, nil, models.WrapIndexedFailure(models.FailInvalidAddress, i, err)
		}
		scripts[i] = script
	}

	client, err := r.dialer.Dial(ctx, network)
	if err != nil {
		return network, nil, models.WrapFailure(models.FailChainQuery, err)
	}
	defer client.Close()

	tip, err := client.CurrentHeight(ctx)
	if err != nil {
		return network, nil, models.WrapFailure(models.FailChainQuery, err)
	}

	// One fixed threshold, computed before fan-out, so every address is
	// evaluated against the same point-in-time view of the chain.
	threshold := tip - r.confirmations

	perAddress := make([][]models.UtxoRecord, len(addresses))
	g, gctx := errgroup.WithContext(ctx)
	for i := range addresses {
		i := i
		g.Go(func() error {
			records, err := r.fetchAddress(gctx, client, addresses[i], scripts[i], threshold)
			if err != nil {
				return err
			}
			perAddress[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var ve *models.VerificationError
		if errors.As(err, &ve) {
			return network, nil, err
		}
		return network, nil, models.WrapFailure(models.FailChainQuery, err)
	}

	var combined []models.UtxoRecord
	for _, records := range perAddress {
		combined = append(combined, records...)
	}
	return network, combined, nil
}

// fetchAddress lists the unspent outputs at one address's script-pubkey,
// keeps the ones confirmed at or below the threshold, and materializes
// each one's value and script from its funding transaction. A lookup
// failure here is a hard failure: a resolver that cannot materialize a
// claimed UTXO cannot safely include or exclude it.
func (r *Resolver) fetchAddress(ctx context.Context, client chain.Client,
	address string, pkScript []byte, threshold int64) ([]models.UtxoRecord, error) {

	unspents, err := client.ListUnspent(ctx, pkScript)
	if err != nil {
		return nil, models.WrapFailure(models.FailChainQuery, err)
	}

	var records []models.UtxoRecord
	for _, ref := range unspents {
		// Mempool and too-recent outputs are not yet provable
		// reserves; they are excluded, not an error.
		if ref.Height <= 0 || ref.Height > threshold {
			continue
		}

		tx, err := client.GetTransaction(ctx, &ref.OutPoint.Hash)
		if err != nil {
			return nil, models.WrapFailure(models.FailChainQuery, err)
		}
		if int(ref.OutPoint.Index) >= len(tx.TxOut) {
			return nil, models.WrapFailure(models.FailChainQuery,
				fmt.Errorf("transaction %s has no output %d", &ref.OutPoint.Hash, ref.OutPoint.Index))
		}

		records = append(records, models.UtxoRecord{
			OutPoint: ref.OutPoint,
			Output:   *tx.TxOut[ref.OutPoint.Index],
			Height:   ref.Height,
			Address:  address,
		})
	}
	return records, nil
}

// belongsToOther reports whether an address that failed to decode for
// the detected network is a valid address of the other one.
func belongsToOther(address string, network models.Network) bool {
	other := models.NetworkMainnet
	if network == models.NetworkMainnet {
		other = models.NetworkTestnet
	}
	_, err := btcutil.DecodeAddress(address, other.Params())
	return err == nil
}
