package transport

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rlp"
)

// StandardRPCSubmitter sends an RLP-encoded signed transaction over a
// plain EVM JSON-RPC endpoint, grounded on internal/ring.Client's
// ethclient.DialContext-per-call pattern.
type StandardRPCSubmitter struct{}

// NewStandardRPCSubmitter builds a StandardRPCSubmitter.
func NewStandardRPCSubmitter() *StandardRPCSubmitter {
	return &StandardRPCSubmitter{}
}

// SendRawTransaction RLP-decodes signedTx and submits it via
// eth_sendRawTransaction, returning the resulting transaction hash.
func (s *StandardRPCSubmitter) SendRawTransaction(ctx context.Context, url string, signedTx []byte) (string, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return "", fmt.Errorf("dial RPC: %w", err)
	}
	defer client.Close()

	var tx types.Transaction
	if err := rlp.DecodeBytes(signedTx, &tx); err != nil {
		return "", fmt.Errorf("decode signed tx: %w", err)
	}

	if err := client.SendTransaction(ctx, &tx); err != nil {
		return "", fmt.Errorf("send raw transaction: %w", err)
	}

	return tx.Hash().Hex(), nil
}
