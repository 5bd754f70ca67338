package signer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

// signEIP1559Transaction signs an EIP-1559 transaction
func (s *service) signEIP1559Transaction(_ context.Context, req *SignEVMRequest) (*SignEVMResponse, error) {
	// Verify from address matches private key
	if req.FromAddress != s.address {
		return nil, errors.New("from address does not match private key")
	}

	if req.MaxFeePerGas == nil || req.MaxPriorityFeePerGas == nil {
		return nil, errors.New("fee caps are required")
	}

	if req.MaxPriorityFeePerGas.Cmp(req.MaxFeePerGas) > 0 {
		return nil, errors.New("maxPriorityFeePerGas exceeds maxFeePerGas")
	}

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	to := req.To

	//nolint:varnamelen // tx is a common abbreviation for transaction
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   s.chainID,
		Nonce:     req.Nonce,
		GasTipCap: req.MaxPriorityFeePerGas,
		GasFeeCap: req.MaxFeePerGas,
		Gas:       req.GasLimit,
		To:        &to,
		Value:     value,
		Data:      req.Data,
	})

	signedTx, err := types.SignTx(tx, types.NewLondonSigner(s.chainID), s.privateKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign transaction")
	}

	// Encode transaction to RLP
	txBytes, err := signedTx.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal transaction")
	}

	return &SignEVMResponse{
		Transaction:    signedTx,
		RawTransaction: txBytes,
		TxHash:         signedTx.Hash(),
	}, nil
}
