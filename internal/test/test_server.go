package test

import (
	"context"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"github/chapool/go-sweeper/internal/api"
	"github/chapool/go-sweeper/internal/api/router"
	"github/chapool/go-sweeper/internal/config"
	"github/chapool/go-sweeper/internal/test/ethnode"
)

const (
	// PrivateKey is a throwaway key, never use it outside tests.
	PrivateKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	ColdWallet = "0x2222222222222222222222222222222222222222"
)

// HotWallet returns the address controlled by PrivateKey.
func HotWallet(t *testing.T) string {
	t.Helper()

	key, err := crypto.HexToECDSA(PrivateKey)
	require.NoError(t, err)

	return crypto.PubkeyToAddress(key.PublicKey).Hex()
}

// NewTestConfig returns a valid sweep config pointing at node.
func NewTestConfig(t *testing.T, node *httptest.Server) config.Sweep {
	t.Helper()

	cfg := config.DefaultSweepConfigFromEnv()
	cfg.RPCURLs = []string{node.URL}
	cfg.HotWallet = HotWallet(t)
	cfg.ColdWallet = ColdWallet
	cfg.PrivateKey = PrivateKey
	cfg.ChainID = 0
	cfg.TokensFile = ""
	cfg.Tokens = config.DefaultTokens()
	cfg.MetricsListenAddress = "127.0.0.1:0"
	cfg.Logger.PrettyPrintConsole = false

	require.NoError(t, cfg.Validate())

	return cfg
}

// WithTestNode starts a default node with a 10 gwei base fee and 1 ether on
// every account.
func WithTestNode(t *testing.T, closure func(node *ethnode.Node, srv *httptest.Server)) {
	t.Helper()

	node := ethnode.Default(big.NewInt(10_000_000_000), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	closure(node, ethnode.Start(t, node))
}

// WithTestServer returns a fully initialized server backed by an in-process node.
func WithTestServer(t *testing.T, closure func(s *api.Server)) {
	t.Helper()

	WithTestNode(t, func(_ *ethnode.Node, srv *httptest.Server) {
		t.Helper()

		s := NewTestServer(t, NewTestConfig(t, srv))
		defer func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if errs := s.Shutdown(ctx); len(errs) > 0 {
				t.Fatalf("Failed to shutdown server: %v", errs)
			}
		}()

		closure(s)
	})
}

func NewTestServer(t *testing.T, cfg config.Sweep) *api.Server {
	t.Helper()

	ctx := t.Context()
	s := api.NewServer(cfg)

	s.InitMetrics()
	require.NoError(t, s.InitClient(ctx))
	require.NoError(t, s.InitSweep(ctx))
	router.Init(s)

	return s
}

// PerformRequest serves a request through the server's router without a listener.
func PerformRequest(t *testing.T, s *api.Server, method string, path string, body io.Reader, headers http.Header) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for k, v := range headers {
		for _, vv := range v {
			req.Header.Add(k, vv)
		}
	}

	res := httptest.NewRecorder()
	s.Echo.ServeHTTP(res, req)

	return res
}
