// Package chain implements the settlement-network client. The settlement
// logic treats transfers as opaque: submit returns a hash, confirmation is
// queried by hash, and nothing here constructs or signs transactions;
// the node holds the operator accounts.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/habit-stake/internal/config"
	apperrors "github.com/habit-stake/internal/errors"
	"github.com/habit-stake/internal/types"
	"github.com/shopspring/decimal"
)

// nativeDecimals is the precision of the chain's native unit.
const nativeDecimals = 18

// Confirmation is the result of querying a submitted transfer.
type Confirmation struct {
	// Status is pending while the network has not yet mined the
	// transfer, otherwise confirmed or failed.
	Status   types.TransactionStatus
	BlockRef *uint64
}

// SettlementNetwork is the capability surface the settlement engine consumes.
type SettlementNetwork interface {
	SubmitTransfer(ctx context.Context, from, to string, amount decimal.Decimal) (string, error)
	QueryConfirmation(ctx context.Context, externalHash string) (*Confirmation, error)
	GetBalance(ctx context.Context, address string) (decimal.Decimal, error)
	ValidateAddress(address string) bool
}

// Client talks to an EVM-compatible settlement network over JSON-RPC.
type Client struct {
	eth *ethclient.Client
	rpc *rpc.Client
	cfg *config.ChainConfig
}

// NewClient dials the configured RPC endpoint
func NewClient(cfg *config.ChainConfig) (*Client, error) {
	rpcClient, err := rpc.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial settlement network: %w", err)
	}

	return &Client{
		eth: ethclient.NewClient(rpcClient),
		rpc: rpcClient,
		cfg: cfg,
	}, nil
}

// Close releases the RPC connection
func (c *Client) Close() {
	c.rpc.Close()
}

// Ping checks the endpoint is reachable
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	if _, err := c.eth.ChainID(ctx); err != nil {
		return apperrors.NewSettlementNetworkError("ping", err)
	}
	return nil
}

// SubmitTransfer asks the node to move amount from one address to another
// and returns the resulting transaction hash. Signing happens node-side;
// a failure here is reported, not retried. The ledger's explicit retry
// operation owns resubmission.
func (c *Client) SubmitTransfer(ctx context.Context, from, to string, amount decimal.Decimal) (string, error) {
	if !c.ValidateAddress(from) || !c.ValidateAddress(to) {
		return "", apperrors.NewValidationError("invalid settlement address", map[string]interface{}{
			"from": from,
			"to":   to,
		})
	}
	if amount.Sign() <= 0 {
		return "", apperrors.NewValidationError("transfer amount must be positive", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	args := map[string]interface{}{
		"from":  common.HexToAddress(from),
		"to":    common.HexToAddress(to),
		"value": hexutil.EncodeBig(toWei(amount)),
	}

	var hash common.Hash
	if err := c.rpc.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return "", apperrors.NewSettlementNetworkError("submit transfer", err)
	}

	return hash.Hex(), nil
}

// QueryConfirmation looks up the receipt for a submitted transfer. A
// transfer the network has not mined yet reports pending, not an error.
func (c *Client) QueryConfirmation(ctx context.Context, externalHash string) (*Confirmation, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	receipt, err := c.eth.TransactionReceipt(ctx, common.HexToHash(externalHash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return &Confirmation{Status: types.TxStatusPending}, nil
		}
		return nil, apperrors.NewSettlementNetworkError("query confirmation", err)
	}

	block := receipt.BlockNumber.Uint64()
	status := types.TxStatusFailed
	if receipt.Status == 1 {
		status = types.TxStatusConfirmed
	}

	return &Confirmation{Status: status, BlockRef: &block}, nil
}

// GetBalance returns the native-unit balance of an address
func (c *Client) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	if !c.ValidateAddress(address) {
		return decimal.Zero, apperrors.NewValidationError("invalid address", map[string]interface{}{
			"address": address,
		})
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	wei, err := c.eth.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return decimal.Zero, apperrors.NewSettlementNetworkError("get balance", err)
	}

	return fromWei(wei), nil
}

// ValidateAddress reports whether the string is a well-formed address
func (c *Client) ValidateAddress(address string) bool {
	return common.IsHexAddress(address)
}

func toWei(amount decimal.Decimal) *big.Int {
	return amount.Shift(nativeDecimals).BigInt()
}

func fromWei(wei *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(wei, -nativeDecimals)
}
