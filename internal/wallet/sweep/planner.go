package sweep

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github/chapool/go-sweeper/internal/wallet/erc20"
)

// PlanTransfer builds the transfer of amount of token from sender to
// recipient. A failed gas estimation falls back to the configured gas units
// and is not returned as an error.
func (s *service) PlanTransfer(ctx context.Context, token TrackedToken, sender, recipient common.Address, amount *big.Int) (TransferCandidate, error) {
	data, err := erc20.PackTransfer(recipient, amount)
	if err != nil {
		return TransferCandidate{}, errors.Wrapf(err, "failed to build %s transfer", token.Symbol)
	}

	to := token.Address
	gasUnits, err := s.client.EstimateGas(ctx, ethereum.CallMsg{
		From: sender,
		To:   &to,
		Data: data,
	})
	if err != nil || gasUnits == 0 {
		loggerFrom(ctx).Warn().
			Err(err).
			Str("symbol", token.Symbol).
			Uint64("fallback_gas", s.gas.FallbackUnits).
			Msg("Sweep: gas estimate failed, using fallback")
		s.metrics.GasEstimateFallbackTotal.Inc()
		gasUnits = s.gas.FallbackUnits
	}

	return TransferCandidate{
		Symbol:   token.Symbol,
		To:       token.Address,
		Value:    new(big.Int),
		Data:     data,
		GasUnits: gasUnits,
		Amount:   new(big.Int).Set(amount),
	}, nil
}

// planNative builds the native coin transfer of value to recipient.
func (s *service) planNative(recipient common.Address, value *big.Int) TransferCandidate {
	return TransferCandidate{
		Symbol:   NativeSymbol,
		To:       recipient,
		Value:    new(big.Int).Set(value),
		GasUnits: s.gas.StandardUnits,
		Amount:   new(big.Int).Set(value),
		Native:   true,
	}
}
