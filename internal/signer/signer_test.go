package signer

import (
	"context"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeyHex(t *testing.T) string {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return "0x" + hex.EncodeToString(crypto.FromECDSA(key))
}

func TestNew_RejectsMalformedKey(t *testing.T) {
	_, err := New("not-hex", 137)
	require.Error(t, err)
}

func TestSign_RoundTripsRLPEncodedTransaction(t *testing.T) {
	keyHex := testKeyHex(t)
	s, err := New(keyHex, 137)
	require.NoError(t, err)

	unsigned := types.NewTransaction(0, crypto.PubkeyToAddress(s.privateKey.PublicKey), big.NewInt(0), 21000, big.NewInt(1), nil)
	rawTx, err := rlp.EncodeToBytes(unsigned)
	require.NoError(t, err)

	signedBytes, err := s.Sign(context.Background(), rawTx)
	require.NoError(t, err)
	assert.NotEmpty(t, signedBytes)

	var signedTx types.Transaction
	require.NoError(t, rlp.DecodeBytes(signedBytes, &signedTx))

	sender, err := types.Sender(s.signer, &signedTx)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(s.privateKey.PublicKey), sender)
}

func TestSign_RejectsMalformedRawTx(t *testing.T) {
	s, err := New(testKeyHex(t), 137)
	require.NoError(t, err)

	_, err = s.Sign(context.Background(), []byte("not-rlp"))
	require.Error(t, err)
}

func TestPublicKeyAndAddress(t *testing.T) {
	s, err := New(testKeyHex(t), 137)
	require.NoError(t, err)

	assert.NotEmpty(t, s.PublicKey())
	assert.Equal(t, crypto.PubkeyToAddress(s.privateKey.PublicKey).Hex(), s.Address())
}
