package signer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Service provides transaction signing functionality
type Service interface {
	// Address is the account controlled by the signing key.
	Address() common.Address
	// ChainID is the chain the signer replay-protects for.
	ChainID() *big.Int
	// SignEVMTransaction signs an EVM transaction (EIP-1559)
	SignEVMTransaction(ctx context.Context, req *SignEVMRequest) (*SignEVMResponse, error)
}

// SignEVMRequest represents a request to sign an EVM transaction
type SignEVMRequest struct {
	To                   common.Address
	Value                *big.Int // Amount in wei, nil means zero
	GasLimit             uint64
	MaxFeePerGas         *big.Int // EIP-1559 fee cap, in wei
	MaxPriorityFeePerGas *big.Int // EIP-1559 tip cap, in wei
	Nonce                uint64
	Data                 []byte // Transaction data (for contract calls)
	FromAddress          common.Address
}

// SignEVMResponse represents a signed EVM transaction
type SignEVMResponse struct {
	Transaction    *types.Transaction
	RawTransaction []byte // RLP-encoded signed transaction
	TxHash         common.Hash
}
