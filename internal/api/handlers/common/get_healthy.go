package common

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github/chapool/go-sweeper/internal/api"
)

const DefaultProbeTimeout = 5 * time.Second

// ChainProber is the node access the probes need.
type ChainProber interface {
	ChainID(ctx context.Context) (*big.Int, error)
	LatestBaseFee(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, address common.Address) (*big.Int, error)
}

func GetHealthyRoute(s *api.Server) *echo.Route {
	return s.Router.Management.GET("/healthy", getHealthyHandler(s))
}

// Health check
// Returns the outcome of the liveness and readiness probes against the node,
// 200 if all passed.
func getHealthyHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.Ready() {
			return c.String(StatusNotReady, "Not ready.")
		}

		ctx := c.Request().Context()
		var b strings.Builder

		liveness, errs := ProbeLiveness(ctx, s.Client, DefaultProbeTimeout)
		b.WriteString(liveness)

		readiness, readinessErrs := ProbeReadiness(ctx, s.Client, s.Wallet.Hot, DefaultProbeTimeout)
		b.WriteString(readiness)
		errs = append(errs, readinessErrs...)

		if len(errs) > 0 {
			return c.String(StatusNotReady, b.String())
		}

		return c.String(http.StatusOK, b.String())
	}
}

// ProbeLiveness checks that the node answers eth_chainId in time.
func ProbeLiveness(ctx context.Context, client ChainProber, timeout time.Duration) (string, []error) {
	var b strings.Builder
	var errs []error

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	chainID, err := client.ChainID(ctx)
	if err != nil {
		errs = append(errs, errors.Wrap(err, "liveness probe failed"))
		fmt.Fprintf(&b, "Probe node: Error %v (%s).\n", err, time.Since(start))
	} else {
		fmt.Fprintf(&b, "Probe node: Chain ID %s (%s).\n", chainID, time.Since(start))
	}

	return b.String(), errs
}

// ProbeReadiness checks that the latest base fee and the balance of hot can be read.
func ProbeReadiness(ctx context.Context, client ChainProber, hot common.Address, timeout time.Duration) (string, []error) {
	var b strings.Builder
	var errs []error

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	baseFee, err := client.LatestBaseFee(ctx)
	if err != nil {
		errs = append(errs, errors.Wrap(err, "base fee probe failed"))
		fmt.Fprintf(&b, "Probe base fee: Error %v (%s).\n", err, time.Since(start))
	} else {
		fmt.Fprintf(&b, "Probe base fee: %s gwei (%s).\n", decimal.NewFromBigInt(baseFee, -9), time.Since(start))
	}

	start = time.Now()
	balance, err := client.BalanceAt(ctx, hot)
	if err != nil {
		errs = append(errs, errors.Wrap(err, "balance probe failed"))
		fmt.Fprintf(&b, "Probe hot balance: Error %v (%s).\n", err, time.Since(start))
	} else {
		fmt.Fprintf(&b, "Probe hot balance: %s ETH (%s).\n", decimal.NewFromBigInt(balance, -18), time.Since(start))
	}

	return b.String(), errs
}
