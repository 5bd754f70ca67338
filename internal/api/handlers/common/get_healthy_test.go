package common_test

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-sweeper/internal/api"
	handlers "github/chapool/go-sweeper/internal/api/handlers/common"
	"github/chapool/go-sweeper/internal/test"
	"github/chapool/go-sweeper/internal/test/ethnode"
)

func TestGetHealthy(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, "GET", "/-/healthy", nil, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)

		body := res.Body.String()
		assert.Contains(t, body, "Probe node: Chain ID 1")
		assert.Contains(t, body, "Probe base fee: 10 gwei")
		assert.Contains(t, body, "Probe hot balance: 1 ETH")
	})
}

func TestGetHealthyNodeFailing(t *testing.T) {
	test.WithTestNode(t, func(node *ethnode.Node, srv *httptest.Server) {
		s := test.NewTestServer(t, test.NewTestConfig(t, srv))
		defer s.Shutdown(context.Background())

		node.Fail("eth_getBalance", ethnode.Failure{Code: -32005, Message: "rate limited"})

		res := test.PerformRequest(t, s, "GET", "/-/healthy", nil, nil)
		require.Equal(t, 521, res.Result().StatusCode)
		assert.Contains(t, res.Body.String(), "Probe hot balance: Error")
		assert.Contains(t, res.Body.String(), "rate limited")
	})
}

func TestGetHealthyNotReady(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		s.Sweep = nil

		res := test.PerformRequest(t, s, "GET", "/-/healthy", nil, nil)
		require.Equal(t, 521, res.Result().StatusCode)
		require.Equal(t, "Not ready.", res.Body.String())
	})
}

type fakeProber struct {
	chainErr   error
	baseFeeErr error
	balanceErr error
}

func (f fakeProber) ChainID(context.Context) (*big.Int, error) {
	return big.NewInt(ethnode.ChainID), f.chainErr
}

func (f fakeProber) LatestBaseFee(context.Context) (*big.Int, error) {
	return big.NewInt(12_500_000_000), f.baseFeeErr
}

func (f fakeProber) BalanceAt(context.Context, common.Address) (*big.Int, error) {
	return big.NewInt(2_000_000_000_000_000), f.balanceErr
}

func TestProbeLiveness(t *testing.T) {
	out, errs := handlers.ProbeLiveness(context.Background(), fakeProber{}, time.Second)
	assert.Empty(t, errs)
	assert.Contains(t, out, "Chain ID 1")

	out, errs = handlers.ProbeLiveness(context.Background(), fakeProber{chainErr: errors.New("dial tcp: connection refused")}, time.Second)
	require.Len(t, errs, 1)
	assert.Contains(t, out, "connection refused")
}

func TestProbeReadiness(t *testing.T) {
	hot := common.HexToAddress("0x1111111111111111111111111111111111111111")

	out, errs := handlers.ProbeReadiness(context.Background(), fakeProber{}, hot, time.Second)
	assert.Empty(t, errs)
	assert.Contains(t, out, "12.5 gwei")
	assert.Contains(t, out, "0.002 ETH")

	_, errs = handlers.ProbeReadiness(context.Background(), fakeProber{
		baseFeeErr: errors.New("block 0x1 has no base fee"),
		balanceErr: errors.New("429 too many requests"),
	}, hot, time.Second)
	assert.Len(t, errs, 2)
}
