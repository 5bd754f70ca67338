package api

import (
	"context"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github/chapool/go-sweeper/internal/config"
	"github/chapool/go-sweeper/internal/metrics"
	"github/chapool/go-sweeper/internal/wallet/scan"
	"github/chapool/go-sweeper/internal/wallet/signer"
	"github/chapool/go-sweeper/internal/wallet/sweep"
)

type Router struct {
	Routes     []*echo.Route
	Root       *echo.Group
	Management *echo.Group
}

// Server is a central struct keeping all the dependencies of the sweeper.
// Components are initialized step by step through the Init* methods, a
// component is nil until its Init* method succeeded.
type Server struct {
	// initialized with router.Init(s)
	Echo   *echo.Echo
	Router *Router

	Config   config.Sweep
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Client   *scan.RPCClient
	Watcher  sweep.Watcher
	Signer   signer.Service
	Wallet   *sweep.WalletContext
	Sweep    sweep.Service
}

func NewServer(cfg config.Sweep) *Server {
	return &Server{
		Config: cfg,
	}
}

// Ready reports whether every component is initialized and the sweeper has
// not terminated.
func (s *Server) Ready() bool {
	return s.Echo != nil &&
		s.Router != nil &&
		s.Metrics != nil &&
		s.Client != nil &&
		s.Watcher != nil &&
		s.Wallet != nil &&
		s.Sweep != nil &&
		s.Sweep.State() != sweep.StateTerminated
}

// InitMetrics creates a private registry with the sweeper collectors plus
// the Go runtime and process collectors.
func (s *Server) InitMetrics() {
	s.Registry = prometheus.NewRegistry()
	s.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.Metrics = metrics.New(s.Registry)
}

// InitClient dials the configured RPC endpoints.
func (s *Server) InitClient(ctx context.Context) error {
	client, err := scan.NewRPCClient(ctx, s.Config.RPCURLs)
	if err != nil {
		return errors.Wrap(err, "failed to create RPC client")
	}

	s.Client = client

	return nil
}

// InitSweep resolves the chain ID, builds the signer and checks that it
// controls the hot wallet, then creates the wallet context, the sweep
// service and the event subscriber. InitClient and InitMetrics must have run.
func (s *Server) InitSweep(ctx context.Context) error {
	if s.Client == nil || s.Metrics == nil {
		return errors.New("client and metrics must be initialized first")
	}

	nodeChainID, err := s.Client.ChainID(ctx)
	if err != nil {
		return err
	}

	chainID := nodeChainID
	if s.Config.ChainID != 0 {
		chainID = big.NewInt(s.Config.ChainID)
		if chainID.Cmp(nodeChainID) != 0 {
			return errors.Errorf("configured chain ID %s does not match node chain ID %s", chainID, nodeChainID)
		}
	}

	signerService, err := signer.NewService(s.Config.PrivateKey, chainID)
	if err != nil {
		return errors.Wrap(err, "failed to create signer")
	}
	s.Config.PrivateKey = ""

	hot := common.HexToAddress(s.Config.HotWallet)
	if signerService.Address() != hot {
		return errors.Errorf("private key controls %s, not the sweep wallet %s", signerService.Address().Hex(), hot.Hex())
	}

	sweepService, err := sweep.NewService(s.Client, s.Config, s.Metrics)
	if err != nil {
		return errors.Wrap(err, "failed to create sweep service")
	}

	s.Signer = signerService
	s.Wallet = sweep.NewWalletContext(
		hot,
		common.HexToAddress(s.Config.ColdWallet),
		signerService,
		s.Config.Fee.MaxGasGwei,
		s.Config.Fee.AggressiveCap,
	)
	s.Sweep = sweepService
	s.Watcher = scan.NewSubscriber(s.Client)

	capGwei, _ := s.Config.Fee.MaxGasGwei.Float64()
	s.Metrics.GasCapGwei.Set(capGwei)

	log.Info().
		Str("chain_id", chainID.String()).
		Str("hot", hot.Hex()).
		Str("cold", s.Wallet.Cold.Hex()).
		Int("tokens", len(sweepService.Tokens())).
		Msg("Sweeper initialized")

	return nil
}

// Start serves the ops endpoints on the metrics listen address. An empty
// address disables the ops server.
func (s *Server) Start() error {
	if s.Config.MetricsListenAddress == "" {
		log.Info().Msg("Ops server disabled, no metrics listen address configured")
		return nil
	}

	if !s.Ready() {
		return errors.New("server is not ready")
	}

	if err := s.Echo.Start(s.Config.MetricsListenAddress); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "failed to start ops server")
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) []error {
	log.Warn().Msg("Shutting down server")

	var errs []error

	if s.Echo != nil {
		if err := s.Echo.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Failed to shutdown ops server")
			errs = append(errs, err)
		}
	}

	if s.Client != nil {
		s.Client.Close()
	}

	return errs
}
