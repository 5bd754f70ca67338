package sweep

import (
	"context"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github/chapool/go-sweeper/internal/config"
	"github/chapool/go-sweeper/internal/metrics"
)

// Service drains a hot wallet into a cold wallet.
type Service interface {
	// Run drives sweep cycles from watcher wake-ups and the loop timer until
	// the wallet is drained, ctx is done or a broadcast fails fatally.
	Run(ctx context.Context, wallet *WalletContext, watcher Watcher) error
	// Cycle runs a single assemble and broadcast round.
	Cycle(ctx context.Context, wallet *WalletContext, trigger string) (bool, error)
	// AssembleBatch builds the ordered transfers of one cycle without sending.
	AssembleBatch(ctx context.Context, wallet *WalletContext) (*Batch, error)
	// BroadcastBatch signs and sends batch with contiguous nonces.
	BroadcastBatch(ctx context.Context, wallet *WalletContext, batch *Batch) error
	// PlanTransfer builds one token transfer with its gas estimate.
	PlanTransfer(ctx context.Context, token TrackedToken, sender, recipient common.Address, amount *big.Int) (TransferCandidate, error)
	Tokens() []TrackedToken
	State() State
}

type service struct {
	client       ChainClient
	tokens       []TrackedToken
	fee          config.Fee
	gas          config.Gas
	dustReserve  *big.Int
	exitDust     *big.Int
	loopInterval time.Duration
	metrics      *metrics.Metrics

	inFlight   atomic.Int32
	terminated atomic.Bool
}

// NewService builds the sweep engine from the effective config. A nil m
// records metrics into a private registry.
//
//nolint:ireturn // Returning interface is intentional for DI
func NewService(client ChainClient, cfg config.Sweep, m *metrics.Metrics) (Service, error) {
	if client == nil {
		return nil, errors.New("chain client is required")
	}

	if cfg.DustReserveWei == nil || cfg.ExitDustWei == nil {
		return nil, errors.New("dust thresholds are required")
	}

	if cfg.LoopInterval <= 0 {
		return nil, errors.Errorf("loop interval must be positive, got %s", cfg.LoopInterval)
	}

	if cfg.Gas.StandardUnits == 0 || cfg.Gas.FallbackUnits == 0 {
		return nil, errors.New("gas units must be positive")
	}

	if err := config.ValidateTokens(cfg.Tokens); err != nil {
		return nil, err
	}

	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}

	return &service{
		client:       client,
		tokens:       TrackedTokens(cfg.Tokens),
		fee:          cfg.Fee,
		gas:          cfg.Gas,
		dustReserve:  new(big.Int).Set(cfg.DustReserveWei),
		exitDust:     new(big.Int).Set(cfg.ExitDustWei),
		loopInterval: cfg.LoopInterval,
		metrics:      m,
	}, nil
}

// Tokens returns the tracked tokens in sweep order.
func (s *service) Tokens() []TrackedToken {
	return append([]TrackedToken(nil), s.tokens...)
}

// State reports whether the scheduler has terminated or a cycle is in flight.
func (s *service) State() State {
	switch {
	case s.terminated.Load():
		return StateTerminated
	case s.inFlight.Load() > 0:
		return StateRunning
	default:
		return StateIdle
	}
}

// loggerFrom returns the cycle logger stored in ctx, or the global logger.
func loggerFrom(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}

	return &log.Logger
}
