package sweep

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/chapool/go-sweeper/internal/metrics"
)

// TriggerTimer is the trigger name of cycles started by the loop timer.
const TriggerTimer = "timer"

var errWalletDrained = errors.New("wallet drained")

// Run waits for wake-ups from watcher or the loop timer and runs a sweep
// cycle for each. Cycles may overlap. The timer is armed at start and re-armed
// after every cycle that does not terminate.
//
// Run returns nil once a cycle finds nothing left to send and the native
// balance at or below the exit dust, or when ctx is canceled. A
// *BroadcastError ends the loop and is returned.
func (s *service) Run(ctx context.Context, wallet *WalletContext, watcher Watcher) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	rearm := make(chan struct{}, 1)

	var cycles sync.WaitGroup
	startCycle := func(trigger string) {
		if ctx.Err() != nil {
			return
		}

		cycles.Add(1)
		go func() {
			defer cycles.Done()

			terminated, err := s.Cycle(ctx, wallet, trigger)

			var broadcastErr *BroadcastError
			switch {
			case errors.As(err, &broadcastErr):
				cancel(err)
				return
			case terminated:
				cancel(errWalletDrained)
				return
			}

			select {
			case rearm <- struct{}{}:
			default:
			}
		}()
	}

	watchDone := make(chan error, 1)
	go func() {
		watchDone <- watcher.Watch(ctx, wallet.Hot, func(source string) {
			s.metrics.TriggersTotal.WithLabelValues(source).Inc()
			log.Info().Str("trigger", source).Msg("Sweep: wake-up received, starting cycle")
			startCycle(source)
		})
	}()

	timer := time.NewTimer(s.loopInterval)
	defer timer.Stop()

	watching := true
	for {
		select {
		case <-ctx.Done():
			if watching {
				<-watchDone
			}
			cycles.Wait()
			return s.exitCause(ctx)

		case err := <-watchDone:
			watching = false
			if err != nil {
				log.Error().Err(err).Msg("Sweep: event subscriptions stopped, continuing on timer only")
			}

		case <-timer.C:
			s.metrics.TriggersTotal.WithLabelValues(TriggerTimer).Inc()
			startCycle(TriggerTimer)

		case <-rearm:
			timer.Reset(s.loopInterval)
		}
	}
}

func (s *service) exitCause(ctx context.Context) error {
	cause := context.Cause(ctx)

	var broadcastErr *BroadcastError
	if errors.As(cause, &broadcastErr) {
		return cause
	}

	if errors.Is(cause, errWalletDrained) {
		log.Info().Msg("Sweep: wallet drained, stopping")
	} else {
		log.Info().Msg("Sweep: stopped")
	}

	return nil
}

// Cycle runs one sweep: assemble, then broadcast when there is anything to
// send. It reports terminated when nothing is left to send and the native
// balance is at or below the exit dust.
func (s *service) Cycle(ctx context.Context, wallet *WalletContext, trigger string) (bool, error) {
	started := time.Now()
	s.inFlight.Add(1)
	defer s.inFlight.Add(-1)

	logger := log.With().
		Str("cycle_id", uuid.NewString()).
		Str("trigger", trigger).
		Logger()
	ctx = logger.WithContext(ctx)

	batch, err := s.AssembleBatch(ctx, wallet)
	if err != nil {
		logger.Error().Err(err).Msg("Sweep: cycle failed")
		s.metrics.ObserveCycle(metrics.OutcomeFailed, started)
		return false, err
	}

	if batch.Empty() {
		balance, err := s.client.BalanceAt(ctx, wallet.Hot)
		if err != nil {
			err = errors.Wrap(err, "failed to read hot wallet balance")
			logger.Error().Err(err).Msg("Sweep: cycle failed")
			s.metrics.ObserveCycle(metrics.OutcomeFailed, started)
			return false, err
		}

		if balance.Cmp(s.exitDust) <= 0 {
			s.terminated.Store(true)
			logger.Info().
				Str("leftover_wei", balance.String()).
				Msg("Sweep: sweep complete")
			s.metrics.ObserveCycle(metrics.OutcomeTerminated, started)
			return true, nil
		}

		logger.Info().Msg("Sweep: nothing to send")
		s.metrics.ObserveCycle(metrics.OutcomeIdle, started)
		return false, nil
	}

	if err := s.BroadcastBatch(ctx, wallet, batch); err != nil {
		logger.Error().Err(err).Msg("Sweep: cycle failed")
		s.metrics.ObserveCycle(metrics.OutcomeFailed, started)
		return false, err
	}

	wallet.SetCapGwei(batch.Fee.CapGwei)
	capGwei, _ := batch.Fee.CapGwei.Float64()
	s.metrics.GasCapGwei.Set(capGwei)
	s.metrics.ObserveCycle(metrics.OutcomeBroadcast, started)

	logger.Info().
		Int("transactions", len(batch.Transactions)).
		Uint64("starting_nonce", batch.StartingNonce).
		Msg("Sweep: batch broadcast")

	return false, nil
}
