package probe

import (
	"context"
	"fmt"

	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/go-sweeper/internal/api/handlers/common"
	"github/chapool/go-sweeper/internal/config"
	"github/chapool/go-sweeper/internal/util/command"
	"github/chapool/go-sweeper/internal/wallet/scan"
)

func newReadiness() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "readiness",
		Short: "Runs readiness probes",
		Long: `This command runs readiness probes against the configured RPC endpoints.
Exits non-zero if the latest base fee or the hot wallet balance cannot be read.`,
		Run: func(cmd *cobra.Command, _ []string) {
			verbose, err := cmd.Flags().GetBool(verboseFlag)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to parse args")
			}

			cfg, err := command.LoadConfig(cmd)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to load config")
			}

			if err := runReadiness(cmd.Context(), cfg, verbose); err != nil {
				log.Fatal().Err(err).Msg("Readiness probe failed")
			}
		},
	}

	command.AddConfigFlags(cmd)
	cmd.Flags().BoolP(verboseFlag, "v", false, "Show verbose output.")

	return cmd
}

func runReadiness(ctx context.Context, cfg config.Sweep, verbose bool) error {
	if !gethcommon.IsHexAddress(cfg.HotWallet) {
		return errors.Errorf("%s: %q is not a hex address", config.KeyWalletSweep, cfg.HotWallet)
	}

	return command.WithClient(ctx, cfg, func(ctx context.Context, client *scan.RPCClient) error {
		str, errs := common.ProbeReadiness(ctx, client, gethcommon.HexToAddress(cfg.HotWallet), common.DefaultProbeTimeout)
		if verbose {
			fmt.Print(str)
		}

		if len(errs) > 0 {
			return errs[0]
		}

		return nil
	})
}
