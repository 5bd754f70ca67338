package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/go-sweeper/cmd/env"
	"github/chapool/go-sweeper/cmd/probe"
	"github/chapool/go-sweeper/cmd/sweep"
	"github/chapool/go-sweeper/internal/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Version: config.GetFormattedBuildArgs(),
	Use:     "sweeper",
	Short:   config.ModuleName,
	Long: fmt.Sprintf(`%v

Moves every tracked ERC-20 balance and then the remaining native balance of a
hot wallet into a cold wallet, triggered by new incoming transactions and a
fallback timer. Exits once the hot wallet is drained.
Configuration through flags or SWEEP_* ENV.`, config.ModuleName),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	// attach the subcommands
	rootCmd.AddCommand(
		env.New(),
		probe.New(),
		sweep.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Failed to execute root command")
		os.Exit(1)
	}
}
