// Package univ3 implements the bridge's collaborator interfaces against a
// Uniswap V3-style venue over chain RPC: factory pool discovery, pool
// liquidity reads, QuoterV2 quotes, and SwapRouter execution.
package univ3

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/domain"
)

// factoryABI covers pool discovery.
const factoryABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "tokenA", "type": "address"},
			{"internalType": "address", "name": "tokenB", "type": "address"},
			{"internalType": "uint24", "name": "fee", "type": "uint24"}
		],
		"name": "getPool",
		"outputs": [{"internalType": "address", "name": "pool", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// poolABI covers the liquidity read.
const poolABI = `[
	{
		"inputs": [],
		"name": "liquidity",
		"outputs": [{"internalType": "uint128", "name": "", "type": "uint128"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// quoterABI is the QuoterV2 exact-input single-hop quote. The method is
// declared nonpayable but is only ever exercised through eth_call.
const quoterABI = `[
	{
		"inputs": [
			{
				"components": [
					{"internalType": "address", "name": "tokenIn", "type": "address"},
					{"internalType": "address", "name": "tokenOut", "type": "address"},
					{"internalType": "uint256", "name": "amountIn", "type": "uint256"},
					{"internalType": "uint24", "name": "fee", "type": "uint24"},
					{"internalType": "uint160", "name": "sqrtPriceLimitX96", "type": "uint160"}
				],
				"internalType": "struct IQuoterV2.QuoteExactInputSingleParams",
				"name": "params",
				"type": "tuple"
			}
		],
		"name": "quoteExactInputSingle",
		"outputs": [
			{"internalType": "uint256", "name": "amountOut", "type": "uint256"},
			{"internalType": "uint160", "name": "sqrtPriceX96After", "type": "uint160"},
			{"internalType": "uint32", "name": "initializedTicksCrossed", "type": "uint32"},
			{"internalType": "uint256", "name": "gasEstimate", "type": "uint256"}
		],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// routerABI is the SwapRouter exact-input single-hop swap.
const routerABI = `[
	{
		"inputs": [
			{
				"components": [
					{"internalType": "address", "name": "tokenIn", "type": "address"},
					{"internalType": "address", "name": "tokenOut", "type": "address"},
					{"internalType": "uint24", "name": "fee", "type": "uint24"},
					{"internalType": "address", "name": "recipient", "type": "address"},
					{"internalType": "uint256", "name": "deadline", "type": "uint256"},
					{"internalType": "uint256", "name": "amountIn", "type": "uint256"},
					{"internalType": "uint256", "name": "amountOutMinimum", "type": "uint256"},
					{"internalType": "uint160", "name": "sqrtPriceLimitX96", "type": "uint160"}
				],
				"internalType": "struct ISwapRouter.ExactInputSingleParams",
				"name": "params",
				"type": "tuple"
			}
		],
		"name": "exactInputSingle",
		"outputs": [{"internalType": "uint256", "name": "amountOut", "type": "uint256"}],
		"stateMutability": "payable",
		"type": "function"
	}
]`

// swapDeadline is how far in the future the router deadline is set.
const swapDeadline = 5 * time.Minute

// Config holds the venue contract addresses and execution identity.
type Config struct {
	Client   *ethclient.Client
	Factory  common.Address
	Quoter   common.Address
	Router   common.Address
	Signer   *bind.TransactOpts // nil for read-only deployments
	Wallet   common.Address
	Erc20    *Erc20 // balance-delta measurement of realized swap output
}

// Venue implements domain.ExchangeVenue on Uniswap V3-style contracts.
type Venue struct {
	client  *ethclient.Client
	factory *bind.BoundContract
	quoter  *bind.BoundContract
	router  *bind.BoundContract
	poolAbi abi.ABI
	signer  *bind.TransactOpts
	wallet  common.Address
	erc20   *Erc20
	logger  *slog.Logger
}

// New creates a Venue from the given configuration.
func New(cfg Config, logger *slog.Logger) (*Venue, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("univ3: ethereum client is required")
	}

	fABI, err := abi.JSON(strings.NewReader(factoryABI))
	if err != nil {
		return nil, fmt.Errorf("univ3: parse factory ABI: %w", err)
	}
	qABI, err := abi.JSON(strings.NewReader(quoterABI))
	if err != nil {
		return nil, fmt.Errorf("univ3: parse quoter ABI: %w", err)
	}
	rABI, err := abi.JSON(strings.NewReader(routerABI))
	if err != nil {
		return nil, fmt.Errorf("univ3: parse router ABI: %w", err)
	}
	pABI, err := abi.JSON(strings.NewReader(poolABI))
	if err != nil {
		return nil, fmt.Errorf("univ3: parse pool ABI: %w", err)
	}

	return &Venue{
		client:  cfg.Client,
		factory: bind.NewBoundContract(cfg.Factory, fABI, cfg.Client, cfg.Client, cfg.Client),
		quoter:  bind.NewBoundContract(cfg.Quoter, qABI, cfg.Client, cfg.Client, cfg.Client),
		router:  bind.NewBoundContract(cfg.Router, rABI, cfg.Client, cfg.Client, cfg.Client),
		poolAbi: pABI,
		signer:  cfg.Signer,
		wallet:  cfg.Wallet,
		erc20:   cfg.Erc20,
		logger:  logger.With(slog.String("component", "univ3")),
	}, nil
}

// PoolFor resolves the pool address for a pair at a fee tier. The factory
// returns the zero address when no pool has been created.
func (v *Venue) PoolFor(ctx context.Context, tokenA, tokenB common.Address, feeTier uint32) (common.Address, bool, error) {
	var out []interface{}
	err := v.factory.Call(&bind.CallOpts{Context: ctx}, &out, "getPool", tokenA, tokenB, big.NewInt(int64(feeTier)))
	if err != nil {
		return common.Address{}, false, fmt.Errorf("univ3: getPool: %w", err)
	}
	pool := out[0].(common.Address)
	if pool == (common.Address{}) {
		return common.Address{}, false, nil
	}
	return pool, true, nil
}

// LiquidityOf reads the pool's in-range liquidity.
func (v *Venue) LiquidityOf(ctx context.Context, pool common.Address) (*big.Int, error) {
	contract := bind.NewBoundContract(pool, v.poolAbi, v.client, v.client, v.client)
	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "liquidity"); err != nil {
		return nil, fmt.Errorf("univ3: liquidity of %s: %w", pool.Hex(), err)
	}
	return out[0].(*big.Int), nil
}

// Quote runs QuoterV2's exact-input single-hop quote via eth_call.
func (v *Venue) Quote(ctx context.Context, tokenIn, tokenOut common.Address, feeTier uint32, amountIn *big.Int) (domain.QuoteResult, error) {
	params := struct {
		TokenIn           common.Address
		TokenOut          common.Address
		AmountIn          *big.Int
		Fee               *big.Int
		SqrtPriceLimitX96 *big.Int
	}{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		AmountIn:          amountIn,
		Fee:               big.NewInt(int64(feeTier)),
		SqrtPriceLimitX96: big.NewInt(0),
	}

	var out []interface{}
	if err := v.quoter.Call(&bind.CallOpts{Context: ctx}, &out, "quoteExactInputSingle", params); err != nil {
		return domain.QuoteResult{}, fmt.Errorf("univ3: quoteExactInputSingle: %w", err)
	}

	amountOut := out[0].(*big.Int)
	gasEstimate := out[3].(*big.Int)

	return domain.QuoteResult{
		AmountOut:   amountOut,
		GasEstimate: gasEstimate.Uint64(),
	}, nil
}

// Swap submits an exact-input single-hop swap and waits for its chain-level
// outcome. The realized output is measured as the recipient's settlement
// token balance delta across the mined transaction. A revert caused by the
// output floor surfaces as domain.ErrSlippageExceeded.
func (v *Venue) Swap(ctx context.Context, p domain.SwapParams) (domain.SwapResult, error) {
	if v.signer == nil {
		return domain.SwapResult{}, fmt.Errorf("univ3: venue is read-only (no signer configured)")
	}

	before, err := v.erc20.BalanceOf(ctx, p.TokenOut, p.Recipient)
	if err != nil {
		return domain.SwapResult{}, fmt.Errorf("univ3: pre-swap balance: %w", err)
	}

	deadline := big.NewInt(time.Now().Add(swapDeadline).Unix())
	params := struct {
		TokenIn           common.Address
		TokenOut          common.Address
		Fee               *big.Int
		Recipient         common.Address
		Deadline          *big.Int
		AmountIn          *big.Int
		AmountOutMinimum  *big.Int
		SqrtPriceLimitX96 *big.Int
	}{
		TokenIn:           p.TokenIn,
		TokenOut:          p.TokenOut,
		Fee:               big.NewInt(int64(p.FeeTier)),
		Recipient:         p.Recipient,
		Deadline:          deadline,
		AmountIn:          p.AmountIn,
		AmountOutMinimum:  p.MinAmountOut,
		SqrtPriceLimitX96: big.NewInt(0),
	}

	opts := *v.signer
	opts.Context = ctx

	tx, err := v.router.Transact(&opts, "exactInputSingle", params)
	if err != nil {
		if isSlippageRevert(err) {
			return domain.SwapResult{}, fmt.Errorf("%w: %v", domain.ErrSlippageExceeded, err)
		}
		return domain.SwapResult{}, fmt.Errorf("univ3: exactInputSingle: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, v.client, tx)
	if err != nil {
		return domain.SwapResult{}, fmt.Errorf("univ3: wait mined %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		if reason := v.revertReason(ctx, tx, receipt.BlockNumber); isSlippageReason(reason) {
			return domain.SwapResult{}, fmt.Errorf("%w: %s", domain.ErrSlippageExceeded, reason)
		}
		return domain.SwapResult{}, fmt.Errorf("univ3: swap reverted: %s", tx.Hash().Hex())
	}

	after, err := v.erc20.BalanceOf(ctx, p.TokenOut, p.Recipient)
	if err != nil {
		return domain.SwapResult{}, fmt.Errorf("univ3: post-swap balance: %w", err)
	}

	realized := new(big.Int).Sub(after, before)
	v.logger.InfoContext(ctx, "swap mined",
		slog.String("tx", tx.Hash().Hex()),
		slog.String("amount_in", p.AmountIn.String()),
		slog.String("amount_out", realized.String()),
	)

	return domain.SwapResult{
		AmountOut: realized,
		TxHash:    tx.Hash(),
	}, nil
}

// revertReason replays the transaction as a call at its mined block to
// recover the revert string. Best effort; an empty string means the reason
// could not be determined.
func (v *Venue) revertReason(ctx context.Context, tx *types.Transaction, blockNumber *big.Int) string {
	from := v.wallet
	msg := ethereum.CallMsg{
		From:  from,
		To:    tx.To(),
		Gas:   tx.Gas(),
		Value: tx.Value(),
		Data:  tx.Data(),
	}
	_, err := v.client.CallContract(ctx, msg, blockNumber)
	if err == nil {
		return ""
	}
	return err.Error()
}

// isSlippageRevert classifies pre-submission estimation failures caused by
// the output floor.
func isSlippageRevert(err error) bool {
	return err != nil && isSlippageReason(err.Error())
}

// isSlippageReason matches the router's output-floor revert string.
func isSlippageReason(reason string) bool {
	return strings.Contains(reason, "Too little received")
}

// Compile-time interface check.
var _ domain.ExchangeVenue = (*Venue)(nil)
