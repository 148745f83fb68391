// Package ledger implements the settlement-ledger collaborator: the external
// Sovereign Seas funding/voting contract that records contributions produced
// by successful conversions.
package ledger

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

// seasABI is the contribution entry point of the voting contract. The call
// is payable in the settlement currency; the contract rejects inactive
// campaigns and unapproved projects.
const seasABI = `[
	{
		"inputs": [
			{"internalType": "uint256", "name": "_campaignId", "type": "uint256"},
			{"internalType": "uint256", "name": "_projectId", "type": "uint256"},
			{"internalType": "address", "name": "_voter", "type": "address"},
			{"internalType": "bytes32", "name": "_bypassCode", "type": "bytes32"}
		],
		"name": "voteWithCelo",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	}
]`

// Seas implements domain.SettlementLedger against the on-chain voting
// contract.
type Seas struct {
	client   *ethclient.Client
	contract *bind.BoundContract
	signer   *bind.TransactOpts
	logger   *slog.Logger
}

// New creates a Seas ledger adapter bound to the contract at addr.
func New(client *ethclient.Client, addr common.Address, signer *bind.TransactOpts, logger *slog.Logger) (*Seas, error) {
	parsed, err := abi.JSON(strings.NewReader(seasABI))
	if err != nil {
		return nil, fmt.Errorf("ledger: parse ABI: %w", err)
	}
	return &Seas{
		client:   client,
		contract: bind.NewBoundContract(addr, parsed, client, client, client),
		signer:   signer,
		logger:   logger.With(slog.String("component", "ledger")),
	}, nil
}

// Contribute forwards the converted amount to the voting contract and waits
// for the transaction outcome. The returned confirmation is the settlement
// transaction hash.
func (s *Seas) Contribute(ctx context.Context, c domain.Contribution) (string, error) {
	if s.signer == nil {
		return "", fmt.Errorf("ledger: read-only (no signer configured)")
	}
	if c.Amount == nil || c.Amount.Sign() <= 0 {
		return "", fmt.Errorf("ledger: contribution amount must be positive")
	}

	opts := *s.signer
	opts.Context = ctx
	opts.Value = new(big.Int).Set(c.Amount)

	tx, err := s.contract.Transact(&opts, "voteWithCelo", c.CampaignID, c.ProjectID, c.Beneficiary, c.BypassCode)
	if err != nil {
		return "", fmt.Errorf("ledger: voteWithCelo: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, s.client, tx)
	if err != nil {
		return "", fmt.Errorf("ledger: wait mined %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", fmt.Errorf("ledger: contribution reverted: %s", tx.Hash().Hex())
	}

	s.logger.InfoContext(ctx, "contribution recorded",
		slog.String("campaign", c.CampaignID.String()),
		slog.String("project", c.ProjectID.String()),
		slog.String("amount", c.Amount.String()),
		slog.String("tx", tx.Hash().Hex()),
	)
	return tx.Hash().Hex(), nil
}

// Compile-time interface check.
var _ domain.SettlementLedger = (*Seas)(nil)
