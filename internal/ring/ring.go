// Package ring implements the intermediate-asset ring: the ordered,
// wrapping sequence of assets the search loop rotates B through, plus
// the on-chain balance lookup used to clamp configuration at startup.
package ring

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/solward/triarb/internal/triarb"
	"go.uber.org/zap"
)

// Ring is a TokenDirectory backed by a fixed anchor and a wrapping
// sequence of intermediates.
type Ring struct {
	anchor        triarb.Asset
	intermediates []triarb.Asset
	idx           int
	walletAddress string
	balances      BalanceSource
}

// BalanceSource fetches an asset's raw balance for a configured
// wallet address. Implemented by Client below; factored out so the
// ring can be exercised in tests without a live RPC endpoint.
type BalanceSource interface {
	Balance(ctx context.Context, address string, a triarb.Asset) (*big.Int, error)
}

// New builds a Ring against the given wallet address. intermediates
// must be non-empty.
func New(anchor triarb.Asset, intermediates []triarb.Asset, walletAddress string, balances BalanceSource) (*Ring, error) {
	if len(intermediates) == 0 {
		return nil, errors.New("ring: intermediates must be non-empty")
	}
	return &Ring{anchor: anchor, intermediates: intermediates, walletAddress: walletAddress, balances: balances}, nil
}

// Anchor returns the fixed anchor asset A.
func (r *Ring) Anchor() triarb.Asset { return r.anchor }

// Intermediates returns the full ordered ring.
func (r *Ring) Intermediates() []triarb.Asset { return r.intermediates }

// Current returns the intermediate currently selected as B.
func (r *Ring) Current() triarb.Asset {
	return r.intermediates[r.idx]
}

// Advance moves B to the next ring position, wrapping around. A ring
// of size 1 is a documented no-op that never panics.
func (r *Ring) Advance() triarb.Asset {
	if len(r.intermediates) > 1 {
		r.idx = (r.idx + 1) % len(r.intermediates)
	}
	return r.Current()
}

// Balance fetches a's raw balance for this Ring's configured wallet
// address. This is the Token Directory balance lookup the startup
// clamp (spec §6, config.Config.ClampToBalance) calls.
func (r *Ring) Balance(ctx context.Context, a triarb.Asset) (*big.Int, error) {
	if r.balances == nil {
		return big.NewInt(0), nil
	}
	return r.balances.Balance(ctx, r.walletAddress, a)
}

// Client fetches ERC20 balances over JSON-RPC, grounded on
// pkg/wallet's raw eth_call balanceOf pattern. Position/Data-API
// fetching from the teacher has no analog in a swap-aggregator domain
// and is dropped (see DESIGN.md).
type Client struct {
	rpcURL     string
	httpClient *http.Client
	logger     *zap.Logger
}

const balanceOfABI = `[{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}]`

// NewClient builds a balance client against an EVM JSON-RPC endpoint.
func NewClient(rpcURL string, logger *zap.Logger) (*Client, error) {
	if rpcURL == "" {
		return nil, errors.New("ring: rpcURL cannot be empty")
	}
	if logger == nil {
		return nil, errors.New("ring: logger cannot be nil")
	}
	return &Client{
		rpcURL:     rpcURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}, nil
}

// Balance fetches a's ERC20 balanceOf(address) over the configured RPC.
func (c *Client) Balance(ctx context.Context, address string, a triarb.Asset) (*big.Int, error) {
	client, err := ethclient.DialContext(ctx, c.rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial RPC: %w", err)
	}
	defer client.Close()

	parsedABI, err := abi.JSON(strings.NewReader(balanceOfABI))
	if err != nil {
		return nil, fmt.Errorf("parse ABI: %w", err)
	}

	owner := common.HexToAddress(address)
	data, err := parsedABI.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("pack ABI: %w", err)
	}

	tokenAddr := common.HexToAddress(a.Address)
	msg := ethereum.CallMsg{To: &tokenAddr, Data: data}

	result, err := client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call contract: %w", err)
	}

	c.logger.Debug("balance-fetched", zap.String("asset", a.Symbol))
	return new(big.Int).SetBytes(result), nil
}
