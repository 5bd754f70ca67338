package probe

import (
	"github.com/spf13/cobra"
	"github/chapool/go-sweeper/internal/util/command"
)

const (
	verboseFlag string = "verbose"
)

// New groups the node probes. Both dial the configured RPC endpoints only,
// no key is needed.
func New() *cobra.Command {
	cmd := command.NewSubcommandGroup("probe",
		newLiveness(),
		newReadiness(),
	)
	cmd.Short = "Probes the configured RPC nodes"
	cmd.Long = `Runs liveness (eth_chainId) or readiness (latest base fee and hot wallet
balance) probes against the configured RPC endpoints. Suitable as container
health checks.`

	return cmd
}
