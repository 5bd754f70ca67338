package env

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/go-sweeper/internal/util/command"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Prints the effective config as JSON",
		Long: `Prints the config resolved from flags, ENV and defaults as JSON.
Secrets and RPC URL paths are never printed.`,
		Run: func(cmd *cobra.Command, _ []string) {
			cfg, err := command.LoadConfig(cmd)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to load config")
			}

			c, err := json.MarshalIndent(cfg.Redacted(), "", "  ")
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to marshal the config")
			}

			fmt.Println(string(c))
		},
	}

	command.AddConfigFlags(cmd)

	return cmd
}
