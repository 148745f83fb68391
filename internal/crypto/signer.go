package crypto

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// TxSigner wraps the executing wallet's key and produces transact options
// bound to a single chain.
type TxSigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int
}

// NewTxSigner creates a TxSigner from a hex-encoded secp256k1 private key and
// the target chain ID.
func NewTxSigner(privateKeyHex string, chainID int64) (*TxSigner, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: invalid private key: %w", err)
	}

	return &TxSigner{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
		chainID:    big.NewInt(chainID),
	}, nil
}

// Address returns the Ethereum address derived from the signer's private key.
func (s *TxSigner) Address() common.Address {
	return s.address
}

// ChainID returns the chain the signer is bound to.
func (s *TxSigner) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

// TransactOpts returns fresh EIP-155 transact options for submitting a
// transaction. Callers set Context, Value, and gas overrides per call.
func (s *TxSigner) TransactOpts() (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.privateKey, s.chainID)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: building transact opts: %w", err)
	}
	return opts, nil
}
