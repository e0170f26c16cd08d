// Package signer implements triarb.Signer over a raw ECDSA private
// key, the way internal/app/setup.go derived a wallet address from
// POLYMARKET_PRIVATE_KEY for the circuit breaker: crypto.HexToECDSA,
// then crypto.PubkeyToAddress. Signing itself uses go-ethereum's
// types/rlp helpers, since a "serialized swap transaction" on an
// EVM-shaped aggregator (spec §6) is an RLP-encoded types.Transaction.
package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// ECDSASigner signs serialized EVM transactions with a private key
// held in memory for the process lifetime; the core never persists it.
type ECDSASigner struct {
	privateKey *ecdsa.PrivateKey
	chainID    int64
	signer     types.Signer
}

// New builds an ECDSASigner from a hex-encoded private key (with or
// without a leading "0x") and the target chain's ID.
func New(privateKeyHex string, chainID int64) (*ECDSASigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("signer: parse private key: %w", err)
	}
	return &ECDSASigner{
		privateKey: key,
		chainID:    chainID,
		signer:     types.LatestSignerForChainID(big.NewInt(chainID)),
	}, nil
}

// PublicKey returns the uncompressed public key bytes.
func (s *ECDSASigner) PublicKey() []byte {
	return crypto.FromECDSAPub(&s.privateKey.PublicKey)
}

// Address returns the wallet address derived from the public key.
func (s *ECDSASigner) Address() string {
	return crypto.PubkeyToAddress(s.privateKey.PublicKey).Hex()
}

// Sign RLP-decodes rawTx into an unsigned transaction, signs it, and
// RLP-re-encodes the result. rawTx is expected to be produced by the
// aggregator's quote/build step (spec §6's "serialized_tx").
func (s *ECDSASigner) Sign(ctx context.Context, rawTx []byte) ([]byte, error) {
	var tx types.Transaction
	if err := rlp.DecodeBytes(rawTx, &tx); err != nil {
		return nil, fmt.Errorf("signer: decode raw tx: %w", err)
	}

	signedTx, err := types.SignTx(&tx, s.signer, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("signer: sign tx: %w", err)
	}

	out, err := rlp.EncodeToBytes(signedTx)
	if err != nil {
		return nil, fmt.Errorf("signer: encode signed tx: %w", err)
	}
	return out, nil
}
