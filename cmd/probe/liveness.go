package probe

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/go-sweeper/internal/api/handlers/common"
	"github/chapool/go-sweeper/internal/config"
	"github/chapool/go-sweeper/internal/util/command"
	"github/chapool/go-sweeper/internal/wallet/scan"
)

func newLiveness() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "liveness",
		Short: "Runs liveness probes",
		Long: `This command runs liveness probes against the configured RPC endpoints.
Exits non-zero if the node does not answer eth_chainId.`,
		Run: func(cmd *cobra.Command, _ []string) {
			verbose, err := cmd.Flags().GetBool(verboseFlag)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to parse args")
			}

			cfg, err := command.LoadConfig(cmd)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to load config")
			}

			if err := runLiveness(cmd.Context(), cfg, verbose); err != nil {
				log.Fatal().Err(err).Msg("Liveness probe failed")
			}
		},
	}

	command.AddConfigFlags(cmd)
	cmd.Flags().BoolP(verboseFlag, "v", false, "Show verbose output.")

	return cmd
}

func runLiveness(ctx context.Context, cfg config.Sweep, verbose bool) error {
	return command.WithClient(ctx, cfg, func(ctx context.Context, client *scan.RPCClient) error {
		str, errs := common.ProbeLiveness(ctx, client, common.DefaultProbeTimeout)
		if verbose {
			fmt.Print(str)
		}

		if len(errs) > 0 {
			return errs[0]
		}

		return nil
	})
}
