package probe

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-sweeper/internal/test"
	"github/chapool/go-sweeper/internal/test/ethnode"
)

func TestRunLiveness(t *testing.T) {
	test.WithTestNode(t, func(_ *ethnode.Node, srv *httptest.Server) {
		require.NoError(t, runLiveness(t.Context(), test.NewTestConfig(t, srv), false))
	})
}

func TestRunLivenessNodeDown(t *testing.T) {
	test.WithTestNode(t, func(_ *ethnode.Node, srv *httptest.Server) {
		cfg := test.NewTestConfig(t, srv)
		cfg.RPCURLs = []string{ethnode.StartBroken(t, &ethnode.Node{}).URL}

		require.Error(t, runLiveness(t.Context(), cfg, false))
	})
}

func TestRunReadiness(t *testing.T) {
	test.WithTestNode(t, func(node *ethnode.Node, srv *httptest.Server) {
		cfg := test.NewTestConfig(t, srv)
		require.NoError(t, runReadiness(t.Context(), cfg, true))

		node.Fail("eth_getBlockByNumber", ethnode.Failure{Code: -32000, Message: "header not found"})
		err := runReadiness(t.Context(), cfg, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "header not found")

		cfg.HotWallet = "nope"
		require.Error(t, runReadiness(t.Context(), cfg, false))
	})
}

func TestNewRegistersProbes(t *testing.T) {
	cmd := New()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
		assert.NotNil(t, sub.Flags().Lookup(verboseFlag))
	}

	assert.ElementsMatch(t, []string{"liveness", "readiness"}, names)
	assert.Equal(t, "Probes the configured RPC nodes", cmd.Short)
}
