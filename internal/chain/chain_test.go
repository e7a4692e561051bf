package chain

import (
	"context"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thanhnp/proof-of-reserves/internal/config"
	"github.com/thanhnp/proof-of-reserves/pkg/semver"
)

func TestScripthashReversesSha256(t *testing.T) {
	// Known vector: p2pkh script for the Electrum documentation example
	// address 1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa (the genesis coinbase
	// pays to a p2pk script, so this is the synthetic p2pkh form).
	script, err := hex.DecodeString("76a91462e907b15cbf27d5425399ebf6f0fb50ebb88f1888ac")
	require.NoError(t, err)

	assert.Equal(t,
		"8b01df4e368ea28f8dc0423bcf7a4923e3a12d307c875e47a0cfbf90b5c39161",
		scripthash(script))
}

func TestScripthashLength(t *testing.T) {
	// Always 32 bytes hex regardless of script size.
	assert.Len(t, scripthash(nil), 64)
	assert.Len(t, scripthash([]byte{0x51}), 64)
}

func TestParseProtocolVersion(t *testing.T) {
	v, err := parseProtocolVersion("1.4")
	require.NoError(t, err)
	assert.Equal(t, semver.NewSemver(1, 4, 0), v)

	v, err = parseProtocolVersion("1.4.2")
	require.NoError(t, err)
	assert.Equal(t, semver.NewSemver(1, 4, 2), v)

	_, err = parseProtocolVersion("banana")
	assert.Error(t, err)
}

func TestParseProtocolVersionCompatibility(t *testing.T) {
	v, err := parseProtocolVersion("1.2")
	require.NoError(t, err)
	assert.True(t, semver.AnyCompatible(compatibleElectrumProtocols, v))

	v, err = parseProtocolVersion("2.0")
	require.NoError(t, err)
	assert.False(t, semver.AnyCompatible(compatibleElectrumProtocols, v))
}

func TestQueryTimeout(t *testing.T) {
	cfg := &config.Config{}
	assert.Equal(t, 30*time.Second, queryTimeout(cfg))

	cfg.Verify.QueryTimeoutSec = 5
	assert.Equal(t, 5*time.Second, queryTimeout(cfg))
}

func TestConfigDialerRejectsUnknownBackend(t *testing.T) {
	cfg := &config.Config{}
	cfg.Mainnet.Kind = "carrier-pigeon"

	_, err := NewConfigDialer(cfg).Dial(context.Background(), "mainnet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}
