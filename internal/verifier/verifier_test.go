package verifier

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thanhnp/proof-of-reserves/internal/chain"
	"github.com/thanhnp/proof-of-reserves/internal/metrics"
	"github.com/thanhnp/proof-of-reserves/internal/models"
	"github.com/thanhnp/proof-of-reserves/internal/proof"
	"github.com/thanhnp/proof-of-reserves/internal/resolver"
)

const (
	e2eMessage       = "Reserves as of 2024-01-01"
	e2eValue         = int64(250000)
	e2eTip           = int64(2000)
	e2eConfirmations = int64(3)
)

type fakeClient struct {
	height   int64
	unspents map[string][]models.UnspentRef
	txs      map[chainhash.Hash]*wire.MsgTx
}

func (f *fakeClient) CurrentHeight(ctx context.Context) (int64, error) { return f.height, nil }

func (f *fakeClient) ListUnspent(ctx context.Context, pkScript []byte) ([]models.UnspentRef, error) {
	return f.unspents[string(pkScript)], nil
}

func (f *fakeClient) GetTransaction(ctx context.Context, txid *chainhash.Hash) (*wire.MsgTx, error) {
	tx, ok := f.txs[*txid]
	if !ok {
		return nil, fmt.Errorf("no such transaction: %s", txid)
	}
	return tx, nil
}

func (f *fakeClient) Close() {}

type fakeDialer struct{ client *fakeClient }

func (d *fakeDialer) Dial(ctx context.Context, network models.Network) (chain.Client, error) {
	return d.client, nil
}

// fixture is one funded address with a signed proof over its UTXO.
type fixture struct {
	address string
	client  *fakeClient
	proof   string // base64 PSBT
}

// newFixture funds a fresh p2wpkh address with one output of e2eValue
// at the given confirmation height and builds a signed proof for
// message over it.
func newFixture(t *testing.T, message string, utxoHeight int64) *fixture {
	t.Helper()

	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	addr, err := btcutil.NewAddressWitnessPubKeyHash(
		btcutil.Hash160(priv.PubKey().SerializeCompressed()), &chaincfg.MainNetParams)
	require.NoError(t, err)
	pkScript, err := txscript.PayToAddrScript(addr)
	require.NoError(t, err)

	// Funding transaction observed on the fake chain.
	funding := wire.NewMsgTx(wire.TxVersion)
	prev := wire.OutPoint{Index: 0}
	funding.AddTxIn(wire.NewTxIn(&prev, nil, nil))
	funding.AddTxOut(wire.NewTxOut(e2eValue, pkScript))
	fundingTxid := funding.TxHash()
	op := wire.OutPoint{Hash: fundingTxid, Index: 0}

	client := &fakeClient{
		height: e2eTip,
		unspents: map[string][]models.UnspentRef{
			string(pkScript): {{OutPoint: op, Height: utxoHeight}},
		},
		txs: map[chainhash.Hash]*wire.MsgTx{fundingTxid: funding},
	}

	// Proof transaction: commitment input plus one reserve input.
	tx := wire.NewMsgTx(wire.TxVersion)
	commitment := proof.CommitmentOutPoint(message)
	tx.AddTxIn(wire.NewTxIn(&commitment, nil, nil))
	tx.AddTxIn(wire.NewTxIn(&op, nil, nil))
	tx.AddTxOut(wire.NewTxOut(e2eValue, pkScript))

	fetcher := txscript.NewCannedPrevOutputFetcher(pkScript, e2eValue)
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)
	witness, err := txscript.WitnessSignature(tx, sigHashes, 1, e2eValue,
		pkScript, txscript.SigHashAll, priv, true)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, wire.WriteVarInt(&buf, 0, uint64(len(witness))))
	for _, item := range witness {
		require.NoError(t, wire.WriteVarBytes(&buf, 0, item))
	}

	packet := &psbt.Packet{
		UnsignedTx: tx,
		Inputs:     make([]psbt.PInput, 2),
		Outputs:    make([]psbt.POutput, 1),
	}
	packet.Inputs[1].WitnessUtxo = wire.NewTxOut(e2eValue, pkScript)
	packet.Inputs[1].FinalScriptWitness = buf.Bytes()

	b64, err := packet.B64Encode()
	require.NoError(t, err)

	return &fixture{address: addr.EncodeAddress(), client: client, proof: b64}
}

func newService(f *fixture, m *metrics.Metrics) *Service {
	r := resolver.New(&fakeDialer{client: f.client}, e2eConfirmations)
	return New(r, m)
}

func counterValue(t *testing.T, m *metrics.Metrics, name string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name {
			return family.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func requestFor(f *fixture, message string) *models.VerificationRequest {
	return &models.VerificationRequest{
		Addresses: []string{f.address},
		Message:   message,
		ProofPSBT: f.proof,
	}
}

func TestVerifyEndToEndSpendable(t *testing.T) {
	f := newFixture(t, e2eMessage, e2eTip-e2eConfirmations)
	m := metrics.New()
	s := newService(f, m)

	network, spendable, err := s.Verify(context.Background(), requestFor(f, e2eMessage))
	require.NoError(t, err)
	assert.Equal(t, models.NetworkMainnet, network)
	assert.Equal(t, e2eValue, spendable)
	assert.Equal(t, float64(1), counterValue(t, m, "POR_success"))
	assert.Equal(t, float64(0), counterValue(t, m, "POR_invalid"))
}

func TestVerifyEndToEndUnconfirmedUtxo(t *testing.T) {
	// The only UTXO sits in the mempool: the resolver excludes it, so
	// the proof's reserve input is not spendable.
	f := newFixture(t, e2eMessage, 0)
	m := metrics.New()
	s := newService(f, m)

	_, _, err := s.Verify(context.Background(), requestFor(f, e2eMessage))
	require.Error(t, err)
	assert.Equal(t, "NonSpendableInput(1)", err.Error())
	assert.Equal(t, float64(1), counterValue(t, m, "POR_invalid"))
}

func TestVerifyEndToEndMessageMismatch(t *testing.T) {
	f := newFixture(t, "a different attestation", e2eTip-e2eConfirmations)
	m := metrics.New()
	s := newService(f, m)

	_, _, err := s.Verify(context.Background(), requestFor(f, e2eMessage))
	require.Error(t, err)
	assert.Equal(t, "MessageMismatch", err.Error())
	assert.Equal(t, float64(1), counterValue(t, m, "POR_invalid"))
}

func TestVerifyEndToEndBadEncoding(t *testing.T) {
	f := newFixture(t, e2eMessage, e2eTip-e2eConfirmations)
	m := metrics.New()
	s := newService(f, m)

	req := requestFor(f, e2eMessage)
	req.ProofPSBT = "!!not base64!!"
	_, _, err := s.Verify(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, models.FailEncoding, models.FailureKindOf(err))
	assert.Equal(t, float64(1), counterValue(t, m, "POR_invalid"))
}

func TestVerifyEndToEndEmptyAddresses(t *testing.T) {
	f := newFixture(t, e2eMessage, e2eTip-e2eConfirmations)
	m := metrics.New()
	s := newService(f, m)

	req := requestFor(f, e2eMessage)
	req.Addresses = nil
	_, _, err := s.Verify(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, "NoAddressProvided", err.Error())
}
