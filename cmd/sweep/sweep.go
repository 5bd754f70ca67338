package sweep

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/go-sweeper/internal/api"
	"github/chapool/go-sweeper/internal/config"
	"github/chapool/go-sweeper/internal/util"
	"github/chapool/go-sweeper/internal/util/command"
	"github/chapool/go-sweeper/internal/wallet/keystore"
	"golang.org/x/term"
)

const banner = `
    (\(\
    (-.-)   -- R A B B I T --
    o_(")(")
  ------------------------------------------------------------------
  Lightning-fast sweeper: sees funds, chews fees, hops to cold safe.
  ------------------------------------------------------------------
`

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Sweeps the hot wallet into the cold wallet until it is drained",
		Long: `Watches the hot wallet for pending and mined transactions and incoming
ERC-20 transfers. Every trigger and every loop interval runs a sweep cycle:
token balances are sent first, then whatever native balance exceeds the gas
of the batch plus the dust reserve. Exits 0 once the wallet is drained and
non-zero on any broadcast failure other than insufficient funds.`,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := runSweep(cmd); err != nil {
				log.Fatal().Err(err).Msg("Sweeper failed")
			}
		},
	}

	command.AddConfigFlags(cmd)

	return cmd
}

func runSweep(cmd *cobra.Command) error {
	cfg, err := command.LoadConfig(cmd)
	if err != nil {
		return err
	}

	if cfg.PrivateKey, err = resolvePrivateKey(cfg); err != nil {
		return err
	}
	cfg.KeyPassword = ""

	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid config")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return command.WithServer(ctx, cfg, func(ctx context.Context, s *api.Server) error {
		printBanner(os.Stdout, s.Config)

		go func() {
			if err := s.Start(); err != nil {
				log.Error().Err(err).Msg("Ops server failed")
			}
		}()

		log.Info().Msg("Waiting for first trigger")

		return s.Sweep.Run(ctx, s.Wallet, s.Watcher)
	})
}

func printBanner(w io.Writer, cfg config.Sweep) {
	fmt.Fprint(w, banner)

	mode := "OFF"
	if cfg.Fee.AggressiveCap {
		mode = "ON"
	}

	log.Info().
		Str("max_gas_gwei", cfg.Fee.MaxGasGwei.String()).
		Msgf("aggressive-cap: %s", mode)
}

// resolvePrivateKey returns the configured key, the key held by the key
// file, or the key typed on the terminal, in this order.
func resolvePrivateKey(cfg config.Sweep) (string, error) {
	if cfg.PrivateKey != "" {
		return cfg.PrivateKey, nil
	}

	if cfg.KeyFile != "" {
		password := cfg.KeyPassword
		if password == "" {
			var err error
			if password, err = promptSecret("Password of " + cfg.KeyFile); err != nil {
				return "", err
			}
		}

		return keystore.LoadKeyFile(cfg.KeyFile, password)
	}

	return promptSecret("Private key of the hot wallet")
}

// promptSecret reads a line from the terminal without echo. Without a
// terminal the result stays empty and validation reports it.
func promptSecret(label string) (string, error) {
	fd := int(os.Stdin.Fd()) //nolint:gosec // file descriptors fit in int

	if !term.IsTerminal(fd) {
		return "", nil
	}

	fmt.Fprint(os.Stderr, label+": ")
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", errors.Wrap(err, "failed to read from terminal")
	}
	defer util.Wipe(secret)

	return strings.TrimSpace(string(secret)), nil
}
