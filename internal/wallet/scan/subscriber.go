package scan

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/chapool/go-sweeper/internal/wallet/erc20"
	"golang.org/x/sync/errgroup"
)

const (
	defaultResubscribeBackoff = 30 * time.Second
	subscriptionBuffer        = 16
)

// subscribeFunc opens one subscription delivering into a channel owned by the caller.
type subscribeFunc func(ctx context.Context) (event.Subscription, error)

// SubscriptionClient is the node access Subscriber needs, satisfied by *RPCClient.
type SubscriptionClient interface {
	EthSubscribe(ctx context.Context, ch any, args ...any) (ethereum.Subscription, error)
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
}

// Subscriber turns node subscriptions about one account into wake-up calls.
type Subscriber struct {
	client  SubscriptionClient
	backoff time.Duration
}

func NewSubscriber(client SubscriptionClient) *Subscriber {
	return &Subscriber{
		client:  client,
		backoff: defaultResubscribeBackoff,
	}
}

// Watch subscribes to pending transactions to account, mined transactions
// from or to account and ERC20 Transfer logs whose recipient is account.
// Every notification calls wake with its source. Subscriptions are
// re-established with backoff when the connection drops. Watch blocks until
// ctx is done.
func (s *Subscriber) Watch(ctx context.Context, account common.Address, wake func(source string)) error {
	pending := make(chan json.RawMessage, subscriptionBuffer)
	mined := make(chan json.RawMessage, subscriptionBuffer)
	logs := make(chan types.Log, subscriptionBuffer)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return pump(gCtx, SourcePendingTransaction, s.resubscribe(SourcePendingTransaction, func(ctx context.Context) (event.Subscription, error) {
			return s.client.EthSubscribe(ctx, pending, "alchemy_pendingTransactions", map[string]any{
				"toAddress":  account.Hex(),
				"hashesOnly": true,
			})
		}), pending, wake)
	})

	g.Go(func() error {
		return pump(gCtx, SourceMinedTransaction, s.resubscribe(SourceMinedTransaction, func(ctx context.Context) (event.Subscription, error) {
			return s.client.EthSubscribe(ctx, mined, "alchemy_minedTransactions", map[string]any{
				"addresses": []map[string]string{
					{"from": account.Hex()},
					{"to": account.Hex()},
				},
				"includeRemoved": true,
				"hashesOnly":     true,
			})
		}), mined, wake)
	})

	g.Go(func() error {
		query := TokenTransferQuery(account)
		return pump(gCtx, SourceTokenTransfer, s.resubscribe(SourceTokenTransfer, func(ctx context.Context) (event.Subscription, error) {
			return s.client.SubscribeFilterLogs(ctx, query, logs)
		}), logs, wake)
	})

	log.Info().Str("account", account.Hex()).Msg("Subscriber: watching account")

	return g.Wait()
}

// TokenTransferQuery matches ERC20 Transfer logs of any contract with to == account.
func TokenTransferQuery(account common.Address) ethereum.FilterQuery {
	return ethereum.FilterQuery{
		Topics: [][]common.Hash{
			{erc20.TransferTopic},
			nil,
			{erc20.AddressTopic(account)},
		},
	}
}

func (s *Subscriber) resubscribe(source string, subscribe subscribeFunc) event.Subscription {
	return event.ResubscribeErr(s.backoff, func(ctx context.Context, lastErr error) (event.Subscription, error) {
		if lastErr != nil {
			log.Warn().Err(lastErr).Str("source", source).Msg("Subscriber: subscription dropped, resubscribing")
		}

		sub, err := subscribe(ctx)
		if err != nil {
			log.Error().Err(err).Str("source", source).Msg("Subscriber: failed to subscribe")
			return nil, err
		}

		log.Debug().Str("source", source).Msg("Subscriber: subscribed")

		return sub, nil
	})
}

// pump forwards every notification on ch to wake until ctx is done.
func pump[T any](ctx context.Context, source string, sub event.Subscription, ch <-chan T, wake func(source string)) error {
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-sub.Err():
			if !ok {
				return nil
			}
			return errors.Wrapf(err, "%s subscription failed", source)
		case <-ch:
			wake(source)
		}
	}
}
