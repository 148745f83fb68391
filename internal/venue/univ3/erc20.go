package univ3

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/domain"
)

const erc20ABI = `[
	{
		"inputs": [{"internalType": "address", "name": "account", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "owner", "type": "address"},
			{"internalType": "address", "name": "spender", "type": "address"}
		],
		"name": "allowance",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "spender", "type": "address"},
			{"internalType": "uint256", "name": "amount", "type": "uint256"}
		],
		"name": "approve",
		"outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// Erc20 implements domain.TokenLedger for any ERC-20 token reachable through
// the configured client. One instance serves all tokens; the contract is
// bound per call.
type Erc20 struct {
	client *ethclient.Client
	abi    abi.ABI
	signer *bind.TransactOpts
	logger *slog.Logger
}

// NewErc20 creates the token ledger adapter. signer may be nil for
// read-only deployments; Approve then fails.
func NewErc20(client *ethclient.Client, signer *bind.TransactOpts, logger *slog.Logger) (*Erc20, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("univ3: parse erc20 ABI: %w", err)
	}
	return &Erc20{
		client: client,
		abi:    parsed,
		signer: signer,
		logger: logger.With(slog.String("component", "erc20")),
	}, nil
}

func (e *Erc20) bind(token common.Address) *bind.BoundContract {
	return bind.NewBoundContract(token, e.abi, e.client, e.client, e.client)
}

// BalanceOf reads owner's balance of token.
func (e *Erc20) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	var out []interface{}
	if err := e.bind(token).Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", owner); err != nil {
		return nil, fmt.Errorf("univ3: balanceOf %s: %w", token.Hex(), err)
	}
	return out[0].(*big.Int), nil
}

// Allowance reads the spender allowance owner has granted on token.
func (e *Erc20) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	var out []interface{}
	if err := e.bind(token).Call(&bind.CallOpts{Context: ctx}, &out, "allowance", owner, spender); err != nil {
		return nil, fmt.Errorf("univ3: allowance %s: %w", token.Hex(), err)
	}
	return out[0].(*big.Int), nil
}

// Approve submits an allowance update and waits for the transaction to be
// mined. It returns an error when the approval reverts.
func (e *Erc20) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) error {
	if e.signer == nil {
		return fmt.Errorf("univ3: token ledger is read-only (no signer configured)")
	}

	opts := *e.signer
	opts.Context = ctx

	tx, err := e.bind(token).Transact(&opts, "approve", spender, amount)
	if err != nil {
		return fmt.Errorf("univ3: approve %s: %w", token.Hex(), err)
	}

	receipt, err := bind.WaitMined(ctx, e.client, tx)
	if err != nil {
		return fmt.Errorf("univ3: wait approve %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("univ3: approve reverted: %s", tx.Hash().Hex())
	}

	e.logger.InfoContext(ctx, "approval mined",
		slog.String("token", token.Hex()),
		slog.String("spender", spender.Hex()),
		slog.String("amount", amount.String()),
	)
	return nil
}

// Compile-time interface check.
var _ domain.TokenLedger = (*Erc20)(nil)
