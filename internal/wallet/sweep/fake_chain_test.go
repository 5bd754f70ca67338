package sweep_test

import (
	"context"
	"encoding/hex"
	"math/big"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github/chapool/go-sweeper/internal/config"
	"github/chapool/go-sweeper/internal/metrics"
	"github/chapool/go-sweeper/internal/wallet/signer"
	"github/chapool/go-sweeper/internal/wallet/sweep"
)

const gwei = 1_000_000_000

var (
	coldAddress = common.HexToAddress("0x2222222222222222222222222222222222222222")
	usdtToken   = config.Token{Symbol: "USDT", Address: "0xdAC17F958D2ee523a2206206994597C13D831ec7"}
	usdcToken   = config.Token{Symbol: "USDC", Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"}
	daiToken    = config.Token{Symbol: "DAI", Address: "0x6B175474E89094C44Da98b954EedeAC495271d0F"}
)

// fakeChain is an in-memory ChainClient.
type fakeChain struct {
	mu sync.Mutex

	balance       *big.Int
	nonce         uint64
	baseFee       *big.Int
	tokenBalances map[common.Address]*big.Int
	gasEstimates  map[common.Address]uint64
	estimateErr   error
	baseFeeErr    error
	balanceErr    error
	sendErr       func(tx *types.Transaction) error
	onSend        func(c *fakeChain, tx *types.Transaction)
	// nonceGate, when set, holds PendingNonceAt until it is closed.
	nonceGate chan struct{}

	balanceCalls  int
	baseFeeCalls  int
	estimateCalls map[common.Address]int
	sent          []*types.Transaction
	nonceWaiting  int
	nonceWaitPeak int
}

func newFakeChain(balance *big.Int, baseFeeWei int64) *fakeChain {
	return &fakeChain{
		balance:       balance,
		baseFee:       big.NewInt(baseFeeWei),
		tokenBalances: make(map[common.Address]*big.Int),
		gasEstimates:  make(map[common.Address]uint64),
		estimateCalls: make(map[common.Address]int),
	}
}

func (c *fakeChain) setToken(token config.Token, balance int64, gas uint64) {
	addr := common.HexToAddress(token.Address)
	c.tokenBalances[addr] = big.NewInt(balance)
	c.gasEstimates[addr] = gas
}

func (c *fakeChain) BalanceAt(_ context.Context, _ common.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.balanceCalls++
	if c.balanceErr != nil {
		return nil, c.balanceErr
	}

	return new(big.Int).Set(c.balance), nil
}

func (c *fakeChain) PendingNonceAt(ctx context.Context, _ common.Address) (uint64, error) {
	c.mu.Lock()
	gate := c.nonceGate
	if gate != nil {
		c.nonceWaiting++
		c.nonceWaitPeak = max(c.nonceWaitPeak, c.nonceWaiting)
	}
	c.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
		}

		c.mu.Lock()
		c.nonceWaiting--
		c.mu.Unlock()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.nonce, nil
}

// waitingOnNonce returns how many calls are held by nonceGate now and at most.
func (c *fakeChain) waitingOnNonce() (now, peak int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.nonceWaiting, c.nonceWaitPeak
}

func (c *fakeChain) LatestBaseFee(_ context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.baseFeeCalls++
	if c.baseFeeErr != nil {
		return nil, c.baseFeeErr
	}

	return new(big.Int).Set(c.baseFee), nil
}

func (c *fakeChain) TokenBalance(_ context.Context, tokenAddress, _ common.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if balance, ok := c.tokenBalances[tokenAddress]; ok {
		return new(big.Int).Set(balance), nil
	}

	return new(big.Int), nil
}

func (c *fakeChain) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.estimateCalls[*msg.To]++
	if c.estimateErr != nil {
		return 0, c.estimateErr
	}

	return c.gasEstimates[*msg.To], nil
}

func (c *fakeChain) SendTransaction(_ context.Context, tx *types.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sendErr != nil {
		if err := c.sendErr(tx); err != nil {
			return err
		}
	}

	c.sent = append(c.sent, tx)
	if c.onSend != nil {
		c.onSend(c, tx)
	}

	return nil
}

func (c *fakeChain) sentByNonce() []*types.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()

	sent := append([]*types.Transaction(nil), c.sent...)
	sort.Slice(sent, func(i, j int) bool { return sent[i].Nonce() < sent[j].Nonce() })

	return sent
}

func (c *fakeChain) calls() (balance, baseFee int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.balanceCalls, c.baseFeeCalls
}

// fakeWatcher forwards sources pushed on wakes.
type fakeWatcher struct {
	wakes chan string
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{wakes: make(chan string, 8)}
}

func (w *fakeWatcher) Watch(ctx context.Context, _ common.Address, wake func(source string)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case source := <-w.wakes:
			wake(source)
		}
	}
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ether(s string) *big.Int {
	return d(s).Shift(18).BigInt()
}

func testFeeConfig() config.Fee {
	return config.Fee{
		MaxGasGwei:   d("50"),
		FloorGasGwei: d("1"),
		Buffer:       d("1.02"),
		CapBump:      d("1.04"),
		TipRatio:     d("0.12"),
		TipMinGwei:   d("0.5"),
		TipMaxGwei:   d("1.1"),
	}
}

func testConfig(tokens ...config.Token) config.Sweep {
	return config.Sweep{
		Tokens:         tokens,
		Fee:            testFeeConfig(),
		Gas:            config.Gas{FallbackUnits: 50_000, StandardUnits: 21_000},
		DustReserveWei: big.NewInt(50_000_000_000_000),
		ExitDustWei:    big.NewInt(500_000_000_000_000),
		LoopInterval:   15 * time.Second,
	}
}

func newTestService(t *testing.T, chain *fakeChain, cfg config.Sweep) (sweep.Service, *metrics.Metrics) {
	t.Helper()

	m := metrics.New(prometheus.NewRegistry())
	svc, err := sweep.NewService(chain, cfg, m)
	require.NoError(t, err)

	return svc, m
}

func newTestWallet(t *testing.T, capGwei string, aggressive bool) *sweep.WalletContext {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	signerService, err := signer.NewService(hex.EncodeToString(crypto.FromECDSA(key)), big.NewInt(1))
	require.NoError(t, err)

	return sweep.NewWalletContext(signerService.Address(), coldAddress, signerService, d(capGwei), aggressive)
}
