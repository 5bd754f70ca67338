package scan

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/chapool/go-sweeper/internal/config"
	"github/chapool/go-sweeper/internal/wallet/erc20"
)

// RPCClient wraps one or more ethclient connections and fails over to the
// next URL when a call fails at the transport level. Errors answered by the
// node itself (reverts, "insufficient funds", ...) are returned as is.
type RPCClient struct {
	urls    []string
	clients []*ethclient.Client
	mu      sync.RWMutex
	current int
}

// NewRPCClient dials every URL. URLs that fail to dial are retried lazily on use.
func NewRPCClient(ctx context.Context, urls []string) (*RPCClient, error) {
	if len(urls) == 0 {
		return nil, errors.New("at least one RPC URL is required")
	}

	clients := make([]*ethclient.Client, len(urls))
	connected := 0
	for i, url := range urls {
		client, err := ethclient.DialContext(ctx, url)
		if err != nil {
			log.Warn().
				Str("url", config.RedactURL(url)).
				Err(err).
				Msg("Failed to connect to RPC node, will retry on use")
			continue
		}
		clients[i] = client
		connected++
	}

	if connected == 0 {
		return nil, errors.New("failed to connect to any RPC node")
	}

	c := &RPCClient{
		urls:    urls,
		clients: clients,
	}
	for i, client := range clients {
		if client != nil {
			c.current = i
			break
		}
	}

	return c, nil
}

// Close closes all client connections
func (c *RPCClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, client := range c.clients {
		if client != nil {
			client.Close()
			c.clients[i] = nil
		}
	}
}

// ChainID returns the chain ID reported by the node.
func (c *RPCClient) ChainID(ctx context.Context) (*big.Int, error) {
	var chainID *big.Int
	err := c.call(ctx, func(client *ethclient.Client) (err error) {
		chainID, err = client.ChainID(ctx)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get chain ID")
	}

	return chainID, nil
}

// LatestBaseFee returns the base fee of the latest block.
func (c *RPCClient) LatestBaseFee(ctx context.Context) (*big.Int, error) {
	var header *types.Header
	err := c.call(ctx, func(client *ethclient.Client) (err error) {
		header, err = client.HeaderByNumber(ctx, nil)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get latest block header")
	}

	if header.BaseFee == nil {
		return nil, errors.Errorf("block %s has no base fee, chain is not EIP-1559", header.Number)
	}

	return header.BaseFee, nil
}

// BalanceAt returns the balance of an address at the latest known block.
func (c *RPCClient) BalanceAt(ctx context.Context, address common.Address) (*big.Int, error) {
	var balance *big.Int
	err := c.call(ctx, func(client *ethclient.Client) (err error) {
		balance, err = client.BalanceAt(ctx, address, nil)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get balance")
	}

	return balance, nil
}

// PendingNonceAt returns the pending nonce for the given address.
func (c *RPCClient) PendingNonceAt(ctx context.Context, address common.Address) (uint64, error) {
	var nonce uint64
	err := c.call(ctx, func(client *ethclient.Client) (err error) {
		nonce, err = client.PendingNonceAt(ctx, address)
		return err
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to get pending nonce")
	}

	return nonce, nil
}

// TokenBalance returns the ERC20 token balance for the given account.
func (c *RPCClient) TokenBalance(ctx context.Context, tokenAddress, account common.Address) (*big.Int, error) {
	data, err := erc20.PackBalanceOf(account)
	if err != nil {
		return nil, err
	}

	callMsg := ethereum.CallMsg{
		To:   &tokenAddress,
		Data: data,
	}

	var resp []byte
	err = c.call(ctx, func(client *ethclient.Client) (err error) {
		resp, err = client.CallContract(ctx, callMsg, nil)
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to call balanceOf on %s", tokenAddress.Hex())
	}

	return erc20.UnpackBalanceOf(resp)
}

// EstimateGas estimates the gas needed to execute msg.
func (c *RPCClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	var gas uint64
	err := c.call(ctx, func(client *ethclient.Client) (err error) {
		gas, err = client.EstimateGas(ctx, msg)
		return err
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to estimate gas")
	}

	return gas, nil
}

// SendTransaction broadcasts a signed transaction.
func (c *RPCClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	err := c.call(ctx, func(client *ethclient.Client) error {
		return client.SendTransaction(ctx, tx)
	})
	if err != nil {
		return errors.Wrap(err, "failed to send transaction")
	}

	return nil
}

// SubscribeFilterLogs subscribes to logs matching q. Needs a websocket or IPC endpoint.
func (c *RPCClient) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	var sub ethereum.Subscription
	err := c.call(ctx, func(client *ethclient.Client) (err error) {
		sub, err = client.SubscribeFilterLogs(ctx, q, ch)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to subscribe to logs")
	}

	return sub, nil
}

// EthSubscribe opens a raw eth_subscribe subscription, used for provider
// specific methods such as alchemy_minedTransactions.
func (c *RPCClient) EthSubscribe(ctx context.Context, ch any, args ...any) (ethereum.Subscription, error) {
	var sub *rpc.ClientSubscription
	err := c.call(ctx, func(client *ethclient.Client) (err error) {
		sub, err = client.Client().EthSubscribe(ctx, ch, args...)
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to subscribe to %v", args)
	}

	return sub, nil
}

// call runs fn against the current client and moves on to the next one when
// the failure is not an answer from the node.
func (c *RPCClient) call(ctx context.Context, fn func(client *ethclient.Client) error) error {
	var lastErr error

	for attempt := 0; attempt < len(c.urls); attempt++ {
		idx, client, err := c.getClient(ctx)
		if err != nil {
			return err
		}

		err = fn(client)
		if err == nil || !isTransportError(ctx, err) {
			return err
		}

		lastErr = err
		log.Warn().
			Str("url", config.RedactURL(c.urls[idx])).
			Err(err).
			Msg("RPC call failed, switching node")
		c.rotate(idx)
	}

	return lastErr
}

// getClient returns the current client, dialing it again if it was dropped.
func (c *RPCClient) getClient(ctx context.Context) (int, *ethclient.Client, error) {
	c.mu.RLock()
	idx := c.current
	client := c.clients[idx]
	c.mu.RUnlock()

	if client != nil {
		return idx, client, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.clients[idx] == nil {
		dialed, err := ethclient.DialContext(ctx, c.urls[idx])
		if err != nil {
			c.current = (idx + 1) % len(c.clients)
			return idx, nil, errors.Wrapf(err, "failed to reconnect to %s", config.RedactURL(c.urls[idx]))
		}
		c.clients[idx] = dialed
	}

	return idx, c.clients[idx], nil
}

// rotate drops the failed client and advances to the next URL.
func (c *RPCClient) rotate(failed int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.clients[failed] != nil {
		c.clients[failed].Close()
		c.clients[failed] = nil
	}

	if c.current == failed {
		c.current = (failed + 1) % len(c.clients)
	}
}

func isTransportError(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return false
	}

	return !errors.Is(err, ethereum.NotFound)
}
