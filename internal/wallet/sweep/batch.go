package sweep

import (
	"context"
	"math/big"

	"github.com/pkg/errors"
	"github/chapool/go-sweeper/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// AssembleBatch reads the wallet state and plans the transfers of one cycle.
//
// Tokens are walked in registry order. A token is accepted when the full
// native balance covers its own gas cost; otherwise it is skipped for this
// cycle and the native sweep is withheld so the balance can pay for it
// later. The native sweep, when present, is last and sends the balance minus
// the gas of the accepted tokens, its own gas and the dust reserve.
func (s *service) AssembleBatch(ctx context.Context, wallet *WalletContext) (*Batch, error) {
	logger := loggerFrom(ctx)

	var (
		balance *big.Int
		nonce   uint64
		fee     FeeParams
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		balance, err = s.client.BalanceAt(gCtx, wallet.Hot)
		return errors.Wrap(err, "failed to read hot wallet balance")
	})
	g.Go(func() (err error) {
		nonce, err = s.client.PendingNonceAt(gCtx, wallet.Hot)
		return errors.Wrap(err, "failed to read hot wallet nonce")
	})
	g.Go(func() error {
		baseFee, err := s.client.LatestBaseFee(gCtx)
		if err != nil {
			return errors.Wrap(err, "failed to read base fee")
		}
		fee = ComputeFeeParams(baseFee, wallet.CapGwei(), wallet.Aggressive, s.fee)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Info().
		Str("balance_eth", weiToEther(balance).String()).
		Uint64("nonce", nonce).
		Str("base_fee_gwei", weiToGwei(fee.BaseFee).String()).
		Str("max_fee_gwei", weiToGwei(fee.MaxFeePerGas).String()).
		Str("tip_gwei", weiToGwei(fee.PriorityFee).String()).
		Msg("Sweep: hot wallet state")
	metrics.SetWei(s.metrics.HotBalanceEther, balance, 18)
	metrics.SetWei(s.metrics.MaxFeePerGasGwei, fee.MaxFeePerGas, gweiExp)

	if fee.CapBumped {
		logger.Info().
			Str("cap_gwei", fee.CapGwei.String()).
			Msg("Sweep: aggressive mode, gas cap bumped")
	}

	balances, err := s.tokenBalances(ctx, wallet)
	if err != nil {
		return nil, err
	}

	candidates, err := s.planTokens(ctx, wallet, balances)
	if err != nil {
		return nil, err
	}

	batch := &Batch{
		Transactions:  make([]TransferCandidate, 0, len(candidates)+1),
		StartingNonce: nonce,
		Fee:           fee,
		HotBalance:    balance,
	}

	tokenGas := new(big.Int)
	for _, candidate := range candidates {
		if candidate == nil {
			continue
		}

		gasCost := fee.GasCost(candidate.GasUnits)
		if balance.Cmp(gasCost) < 0 {
			batch.TokensPending = true
			s.metrics.TokensSkippedTotal.WithLabelValues(candidate.Symbol).Inc()
			logger.Info().
				Str("symbol", candidate.Symbol).
				Str("amount", candidate.Amount.String()).
				Str("gas_cost_wei", gasCost.String()).
				Msg("Sweep: skipping token, not enough native balance for gas")
			continue
		}

		batch.Transactions = append(batch.Transactions, *candidate)
		tokenGas.Add(tokenGas, gasCost)
		logger.Info().
			Str("symbol", candidate.Symbol).
			Str("amount", candidate.Amount.String()).
			Uint64("gas", candidate.GasUnits).
			Str("max_fee_gwei", weiToGwei(fee.MaxFeePerGas).String()).
			Msg("Sweep: token transfer added")
	}

	if native, ok := s.planNativeSweep(ctx, wallet, batch, tokenGas); ok {
		batch.Transactions = append(batch.Transactions, native)
	}

	return batch, nil
}

// tokenBalances reads the hot wallet balance of every tracked token, in registry order.
func (s *service) tokenBalances(ctx context.Context, wallet *WalletContext) ([]*big.Int, error) {
	balances := make([]*big.Int, len(s.tokens))

	g, gCtx := errgroup.WithContext(ctx)
	for i, token := range s.tokens {
		g.Go(func() error {
			balance, err := s.client.TokenBalance(gCtx, token.Address, wallet.Hot)
			if err != nil {
				return errors.Wrapf(err, "failed to read %s balance", token.Symbol)
			}
			balances[i] = balance
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return balances, nil
}

// planTokens plans a full-balance transfer for every token with a non-zero
// balance. Entries of zero-balance tokens stay nil.
func (s *service) planTokens(ctx context.Context, wallet *WalletContext, balances []*big.Int) ([]*TransferCandidate, error) {
	candidates := make([]*TransferCandidate, len(s.tokens))

	g, gCtx := errgroup.WithContext(ctx)
	for i, token := range s.tokens {
		if balances[i] == nil || balances[i].Sign() <= 0 {
			continue
		}

		g.Go(func() error {
			candidate, err := s.PlanTransfer(gCtx, token, wallet.Hot, wallet.Cold, balances[i])
			if err != nil {
				return err
			}
			candidates[i] = &candidate
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return candidates, nil
}

// planNativeSweep returns the native transfer that leaves exactly the
// reserve behind, if the balance exceeds it and no token is pending.
func (s *service) planNativeSweep(ctx context.Context, wallet *WalletContext, batch *Batch, tokenGas *big.Int) (TransferCandidate, bool) {
	logger := loggerFrom(ctx)

	if batch.TokensPending {
		logger.Info().Msg("Sweep: skipping native sweep, tokens still pending")
		return TransferCandidate{}, false
	}

	reserve := new(big.Int).Mul(new(big.Int).SetUint64(s.gas.StandardUnits), batch.Fee.MaxFeePerGas)
	reserve.Add(reserve, tokenGas)
	reserve.Add(reserve, s.dustReserve)

	if batch.HotBalance.Cmp(reserve) <= 0 {
		logger.Info().
			Str("balance_eth", weiToEther(batch.HotBalance).String()).
			Str("reserve_eth", weiToEther(reserve).String()).
			Msg("Sweep: skipping native sweep, balance below reserve")
		return TransferCandidate{}, false
	}

	value := new(big.Int).Sub(batch.HotBalance, reserve)
	logger.Info().
		Str("amount_eth", weiToEther(value).String()).
		Str("max_fee_gwei", weiToGwei(batch.Fee.MaxFeePerGas).String()).
		Msg("Sweep: native sweep added")

	return s.planNative(wallet.Cold, value), true
}
