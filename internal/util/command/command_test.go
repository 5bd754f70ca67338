package command_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-sweeper/internal/api"
	"github/chapool/go-sweeper/internal/config"
	"github/chapool/go-sweeper/internal/test"
	"github/chapool/go-sweeper/internal/test/ethnode"
	"github/chapool/go-sweeper/internal/util/command"
	"github/chapool/go-sweeper/internal/wallet/scan"
	"github/chapool/go-sweeper/internal/wallet/sweep"
)

func TestWithServer(t *testing.T) {
	test.WithTestNode(t, func(_ *ethnode.Node, srv *httptest.Server) {
		cfg := test.NewTestConfig(t, srv)

		var testError = errors.New("test error")

		resultErr := command.WithServer(t.Context(), cfg, func(ctx context.Context, s *api.Server) error {
			assert.True(t, s.Ready())
			assert.Empty(t, s.Config.PrivateKey, "key is dropped from the config once the signer holds it")
			assert.Equal(t, sweep.StateIdle, s.Sweep.State())

			balance, err := s.Client.BalanceAt(ctx, s.Wallet.Hot)
			require.NoError(t, err)
			assert.Equal(t, 1, balance.Sign())

			return testError
		})

		assert.Equal(t, testError, resultErr)
	})
}

func TestWithServerRejectsForeignKey(t *testing.T) {
	test.WithTestNode(t, func(_ *ethnode.Node, srv *httptest.Server) {
		cfg := test.NewTestConfig(t, srv)
		cfg.HotWallet = "0x3333333333333333333333333333333333333333"

		called := false
		err := command.WithServer(t.Context(), cfg, func(context.Context, *api.Server) error {
			called = true
			return nil
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "not the sweep wallet")
		assert.False(t, called)
	})
}

func TestWithServerRejectsChainMismatch(t *testing.T) {
	test.WithTestNode(t, func(_ *ethnode.Node, srv *httptest.Server) {
		cfg := test.NewTestConfig(t, srv)
		cfg.ChainID = 5

		err := command.WithServer(t.Context(), cfg, func(context.Context, *api.Server) error {
			return nil
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not match node chain ID")
	})
}

func TestWithClient(t *testing.T) {
	test.WithTestNode(t, func(_ *ethnode.Node, srv *httptest.Server) {
		cfg := test.NewTestConfig(t, srv)

		err := command.WithClient(t.Context(), cfg, func(ctx context.Context, client *scan.RPCClient) error {
			chainID, err := client.ChainID(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(ethnode.ChainID), chainID.Int64())

			return nil
		})

		require.NoError(t, err)
	})
}

func TestConfigureLogger(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	command.ConfigureLogger(config.Logger{Level: zerolog.WarnLevel})
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}
