package command

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/go-sweeper/internal/config"
	"github/chapool/go-sweeper/internal/util"
)

const defaultEnvFile = ".env"

// AddConfigFlags registers a flag for every config key. Unset flags fall back
// to SWEEP_* environment variables, then to the built-in defaults.
func AddConfigFlags(cmd *cobra.Command) {
	f := cmd.Flags()

	f.String(config.KeyRPCURL, "", "comma separated RPC endpoints (http, https, ws, wss), tried in order")
	f.String(config.KeyAlchemyAPIKey, "", "Alchemy API key, used to build the mainnet websocket URL if --rpc-url is empty")
	f.String(config.KeyWalletSweep, "", "address of the hot wallet to sweep")
	f.String(config.KeyWalletDest, "", "address of the cold destination wallet")
	f.String(config.KeyPrivateKey, "", "hex private key of the hot wallet, prompted for if empty on a terminal")
	f.String(config.KeyKeyFile, "", "keystore v3 file holding the private key, used if --private-key is empty")
	f.String(config.KeyKeyPassword, "", "password of --key-file, prompted for if empty on a terminal")
	f.Int64(config.KeyChainID, 0, "expected chain ID, 0 accepts the node's")
	f.String(config.KeyTokensFile, "", "TOML token registry, built-in mainnet tokens if empty")
	f.String(config.KeyMaxGasPrice, "", "initial max fee cap in gwei (default 800)")
	f.Bool(config.KeyAggressiveCap, false, "raise the cap automatically when the network needs more")
	f.String(config.KeyFloorGasGwei, "", "lowest max fee per gas in gwei (default 1)")
	f.String(config.KeyGasBuffer, "", "multiplier applied to the capped fee (default 1.02)")
	f.String(config.KeyGasCapBump, "", "cap multiplier in aggressive mode (default 1.04)")
	f.String(config.KeyTipRatio, "", "priority fee as a share of the base fee (default 0.12)")
	f.String(config.KeyTipMinGwei, "", "lowest priority fee in gwei (default 0.5)")
	f.String(config.KeyTipMaxGwei, "", "highest priority fee in gwei (default 1.1)")
	f.Uint64(config.KeyFallbackGasUnits, 0, "gas units used when estimation fails (default 50000)")
	f.Uint64(config.KeyStandardGasUnits, 0, "gas units of a native transfer (default 21000)")
	f.String(config.KeyDustReserveWei, "", "wei left behind by a native sweep (default 50000000000000)")
	f.String(config.KeyExitDustWei, "", "exit once idle at or below this balance in wei (default 500000000000000)")
	f.Duration(config.KeyLoopInterval, 0, "fallback polling interval (default 15s)")
	f.String(config.KeyMetricsListenAddr, "", "listen address of the ops server, disabled if empty")
	f.String(config.KeyLogLevel, "", "log level (default info)")
	f.Bool(config.KeyLogPretty, true, "human readable console logs")
	f.String(config.KeyEnvFile, defaultEnvFile, "optional KEY=VALUE file loaded into the environment")
}

// LoadConfig reads the env file named by --env-file, then resolves every
// config key from flags, environment and defaults.
func LoadConfig(cmd *cobra.Command) (config.Sweep, error) {
	envFile, err := cmd.Flags().GetString(config.KeyEnvFile)
	if err != nil {
		return config.Sweep{}, errors.Wrap(err, "failed to read env-file flag")
	}

	loaded, err := util.LoadEnvFile(envFile)
	if err != nil {
		return config.Sweep{}, err
	}
	if loaded {
		log.Debug().Str("path", envFile).Msg("Loaded env file")
	}

	v := config.NewViper()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return config.Sweep{}, errors.Wrap(err, "failed to bind flags")
	}

	return config.FromViper(v)
}
