package sweep

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github/chapool/go-sweeper/internal/config"
	"github/chapool/go-sweeper/internal/wallet/signer"
)

// NativeSymbol labels the native coin transfer in logs and metrics.
const NativeSymbol = "ETH"

// ChainClient is the subset of the RPC client a sweep cycle reads from and sends to.
type ChainClient interface {
	BalanceAt(ctx context.Context, address common.Address) (*big.Int, error)
	PendingNonceAt(ctx context.Context, address common.Address) (uint64, error)
	LatestBaseFee(ctx context.Context) (*big.Int, error)
	TokenBalance(ctx context.Context, tokenAddress, account common.Address) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Watcher delivers wake-ups for an account until ctx is done.
type Watcher interface {
	Watch(ctx context.Context, account common.Address, wake func(source string)) error
}

// TrackedToken is an ERC20 contract to sweep. Identity is the address.
type TrackedToken struct {
	Symbol  string
	Address common.Address
}

// TrackedTokens converts the configured registry, keeping its order.
func TrackedTokens(tokens []config.Token) []TrackedToken {
	res := make([]TrackedToken, 0, len(tokens))
	for _, t := range tokens {
		res = append(res, TrackedToken{
			Symbol:  t.Symbol,
			Address: common.HexToAddress(t.Address),
		})
	}

	return res
}

// WalletContext is the per-wallet state carried across cycles. Only the gas
// cap changes after construction.
type WalletContext struct {
	Hot        common.Address
	Cold       common.Address
	Signer     signer.Service
	Aggressive bool

	mu      sync.Mutex
	capGwei decimal.Decimal
}

func NewWalletContext(hot, cold common.Address, signerService signer.Service, capGwei decimal.Decimal, aggressive bool) *WalletContext {
	return &WalletContext{
		Hot:        hot,
		Cold:       cold,
		Signer:     signerService,
		Aggressive: aggressive,
		capGwei:    capGwei,
	}
}

func (w *WalletContext) CapGwei() decimal.Decimal {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.capGwei
}

// SetCapGwei stores the cap a cycle ended with. The last writer wins.
func (w *WalletContext) SetCapGwei(capGwei decimal.Decimal) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.capGwei = capGwei
}

// FeeParams are the EIP-1559 fees used for every transaction of a batch.
type FeeParams struct {
	MaxFeePerGas *big.Int
	PriorityFee  *big.Int
	BaseFee      *big.Int
	// CapGwei is the cap in effect for this cycle, bumped in aggressive mode.
	CapGwei   decimal.Decimal
	CapBumped bool
}

// GasCost is what a transaction of gasUnits is charged against the balance
// when deciding affordability.
func (f FeeParams) GasCost(gasUnits uint64) *big.Int {
	perUnit := new(big.Int).Add(f.MaxFeePerGas, f.PriorityFee)
	return perUnit.Mul(perUnit, new(big.Int).SetUint64(gasUnits))
}

// TransferCandidate is one outgoing transaction of a batch.
type TransferCandidate struct {
	Symbol string
	// To is the transaction target: the token contract, or the cold wallet
	// for the native sweep.
	To       common.Address
	Value    *big.Int
	Data     []byte
	GasUnits uint64
	// Amount swept, in the token's base units.
	Amount *big.Int
	Native bool
}

// Batch is the work of one cycle. Transactions[i] is sent with nonce StartingNonce+i.
type Batch struct {
	Transactions  []TransferCandidate
	StartingNonce uint64
	Fee           FeeParams
	HotBalance    *big.Int
	TokensPending bool
}

func (b *Batch) Empty() bool {
	return len(b.Transactions) == 0
}

func (b *Batch) Nonce(i int) uint64 {
	return b.StartingNonce + uint64(i) //nolint:gosec // i is a slice index
}

// State of the scheduler.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}
