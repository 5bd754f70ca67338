package sweep

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/core"
	"github.com/pkg/errors"
	"github/chapool/go-sweeper/internal/metrics"
	"github/chapool/go-sweeper/internal/wallet/signer"
	"golang.org/x/sync/errgroup"
)

// BroadcastError is a send failure other than insufficient funds. Other
// transactions of the same batch may already have been accepted.
type BroadcastError struct {
	Symbol string
	Nonce  uint64
	Err    error
}

func (e *BroadcastError) Error() string {
	return fmt.Sprintf("failed to send %s transaction with nonce %d: %v", e.Symbol, e.Nonce, e.Err)
}

func (e *BroadcastError) Unwrap() error {
	return e.Err
}

// IsInsufficientFunds reports whether err is the node rejecting a
// transaction because the sender cannot pay for it.
func IsInsufficientFunds(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, core.ErrInsufficientFunds) {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "insufficient funds")
}

// BroadcastBatch signs every transaction of batch and submits them all
// concurrently. Insufficient funds rejections are logged and tolerated. The
// first other rejection is returned as a *BroadcastError once every
// submission has finished.
func (s *service) BroadcastBatch(ctx context.Context, wallet *WalletContext, batch *Batch) error {
	logger := loggerFrom(ctx)

	signed := make([]*signer.SignEVMResponse, len(batch.Transactions))

	sg, sgCtx := errgroup.WithContext(ctx)
	for i, candidate := range batch.Transactions {
		sg.Go(func() error {
			resp, err := wallet.Signer.SignEVMTransaction(sgCtx, &signer.SignEVMRequest{
				To:                   candidate.To,
				Value:                candidate.Value,
				GasLimit:             candidate.GasUnits,
				MaxFeePerGas:         batch.Fee.MaxFeePerGas,
				MaxPriorityFeePerGas: batch.Fee.PriorityFee,
				Nonce:                batch.Nonce(i),
				Data:                 candidate.Data,
				FromAddress:          wallet.Hot,
			})
			if err != nil {
				return errors.Wrapf(err, "failed to sign %s transaction", candidate.Symbol)
			}
			signed[i] = resp
			return nil
		})
	}
	if err := sg.Wait(); err != nil {
		return err
	}

	// Submissions are not canceled when a sibling fails.
	var g errgroup.Group
	for i, candidate := range batch.Transactions {
		g.Go(func() error {
			resp := signed[i]
			kind := txKind(candidate)

			err := s.client.SendTransaction(ctx, resp.Transaction)
			switch {
			case err == nil:
				s.metrics.TransactionsTotal.WithLabelValues(kind, metrics.TxSent).Inc()
				logger.Info().
					Str("symbol", candidate.Symbol).
					Str("tx_hash", resp.TxHash.Hex()).
					Uint64("nonce", resp.Transaction.Nonce()).
					Msg("Sweep: transaction sent")
				return nil
			case IsInsufficientFunds(err):
				s.metrics.TransactionsTotal.WithLabelValues(kind, metrics.TxInsufficientFunds).Inc()
				logger.Warn().
					Err(err).
					Str("symbol", candidate.Symbol).
					Msg("Sweep: transaction skipped, insufficient native balance for gas")
				return nil
			default:
				s.metrics.TransactionsTotal.WithLabelValues(kind, metrics.TxFailed).Inc()
				logger.Error().
					Err(err).
					Str("symbol", candidate.Symbol).
					Str("tx_hash", resp.TxHash.Hex()).
					Msg("Sweep: failed to send transaction")
				return &BroadcastError{
					Symbol: candidate.Symbol,
					Nonce:  resp.Transaction.Nonce(),
					Err:    err,
				}
			}
		})
	}

	return g.Wait()
}

func txKind(candidate TransferCandidate) string {
	if candidate.Native {
		return "native"
	}

	return "token"
}
