package config

import (
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every key when read from the environment,
// e.g. "max-gas-price" is read from SWEEP_MAX_GAS_PRICE.
const EnvPrefix = "SWEEP"

// Keys shared by cobra flags, viper and the environment.
const (
	KeyRPCURL            = "rpc-url"
	KeyAlchemyAPIKey     = "alchemy-api-key"
	KeyWalletSweep       = "wallet-sweep"
	KeyWalletDest        = "wallet-dest"
	KeyPrivateKey        = "private-key"
	KeyKeyFile           = "key-file"
	KeyKeyPassword       = "key-password"
	KeyChainID           = "chain-id"
	KeyTokensFile        = "tokens-file"
	KeyMaxGasPrice       = "max-gas-price"
	KeyAggressiveCap     = "aggressive-cap"
	KeyFloorGasGwei      = "floor-gas-gwei"
	KeyGasBuffer         = "gas-buffer"
	KeyGasCapBump        = "gas-cap-bump"
	KeyTipRatio          = "tip-ratio"
	KeyTipMinGwei        = "tip-min-gwei"
	KeyTipMaxGwei        = "tip-max-gwei"
	KeyFallbackGasUnits  = "fallback-gas-units"
	KeyStandardGasUnits  = "standard-gas-units"
	KeyDustReserveWei    = "dust-reserve-wei"
	KeyExitDustWei       = "exit-dust-wei"
	KeyLoopInterval      = "loop-interval"
	KeyMetricsListenAddr = "metrics-listen-address"
	KeyLogLevel          = "log-level"
	KeyLogPretty         = "log-pretty"
	KeyEnvFile           = "env-file"
)

const (
	defaultMaxGasGwei       = "800" // covers almost all network peaks
	defaultFloorGasGwei     = "1"
	defaultGasBuffer        = "1.02"
	defaultGasCapBump       = "1.04"
	defaultTipRatio         = "0.12"
	defaultTipMinGwei       = "0.5"
	defaultTipMaxGwei       = "1.1"
	defaultFallbackGasUnits = 50_000            // common gas limit for ERC-20 transfers
	defaultStandardGasUnits = 21_000            // plain native transfer
	defaultDustReserveWei   = "50000000000000"  // 0.00005 native token
	defaultExitDustWei      = "500000000000000" // 0.0005 native token
	defaultLoopInterval     = 15 * time.Second
	alchemyMainnetWSURL     = "wss://eth-mainnet.g.alchemy.com/v2/%s"
)

type Logger struct {
	Level              zerolog.Level
	PrettyPrintConsole bool
}

// Fee holds the fee-model knobs. Gwei values are decimals so that scaling
// a cap by the bump factor stays exact.
type Fee struct {
	MaxGasGwei    decimal.Decimal
	AggressiveCap bool
	FloorGasGwei  decimal.Decimal
	Buffer        decimal.Decimal
	CapBump       decimal.Decimal
	TipRatio      decimal.Decimal
	TipMinGwei    decimal.Decimal
	TipMaxGwei    decimal.Decimal
}

type Gas struct {
	FallbackUnits uint64
	StandardUnits uint64
}

type Sweep struct {
	RPCURLs       []string
	AlchemyAPIKey string `json:"-"`
	HotWallet     string
	ColdWallet    string
	PrivateKey    string `json:"-"`
	// KeyFile is a keystore v3 file holding the private key, read when
	// PrivateKey is empty.
	KeyFile     string
	KeyPassword string `json:"-"`
	// ChainID 0 means "ask the node".
	ChainID    int64
	TokensFile string
	Tokens     []Token
	Fee        Fee
	Gas        Gas
	// DustReserveWei is left behind by a native sweep.
	DustReserveWei *big.Int
	// ExitDustWei: once nothing is left to send and the native balance is at or
	// below this amount the process exits.
	ExitDustWei          *big.Int
	LoopInterval         time.Duration
	MetricsListenAddress string
	Logger               Logger
}

// NewViper returns a viper instance with all defaults set and SWEEP_* environment
// variables bound. Callers may additionally bind cobra flags on top.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	return v
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyRPCURL, "")
	v.SetDefault(KeyAlchemyAPIKey, "")
	v.SetDefault(KeyWalletSweep, "")
	v.SetDefault(KeyWalletDest, "")
	v.SetDefault(KeyPrivateKey, "")
	v.SetDefault(KeyKeyFile, "")
	v.SetDefault(KeyKeyPassword, "")
	v.SetDefault(KeyChainID, 0)
	v.SetDefault(KeyTokensFile, "")
	v.SetDefault(KeyMaxGasPrice, defaultMaxGasGwei)
	v.SetDefault(KeyAggressiveCap, false)
	v.SetDefault(KeyFloorGasGwei, defaultFloorGasGwei)
	v.SetDefault(KeyGasBuffer, defaultGasBuffer)
	v.SetDefault(KeyGasCapBump, defaultGasCapBump)
	v.SetDefault(KeyTipRatio, defaultTipRatio)
	v.SetDefault(KeyTipMinGwei, defaultTipMinGwei)
	v.SetDefault(KeyTipMaxGwei, defaultTipMaxGwei)
	v.SetDefault(KeyFallbackGasUnits, defaultFallbackGasUnits)
	v.SetDefault(KeyStandardGasUnits, defaultStandardGasUnits)
	v.SetDefault(KeyDustReserveWei, defaultDustReserveWei)
	v.SetDefault(KeyExitDustWei, defaultExitDustWei)
	v.SetDefault(KeyLoopInterval, defaultLoopInterval)
	v.SetDefault(KeyMetricsListenAddr, "")
	v.SetDefault(KeyLogLevel, zerolog.InfoLevel.String())
	v.SetDefault(KeyLogPretty, true)
}

// DefaultSweepConfigFromEnv returns the sweep config built from defaults and
// SWEEP_* environment variables only.
func DefaultSweepConfigFromEnv() Sweep {
	cfg, err := FromViper(NewViper())
	if err != nil {
		log.Panic().Err(err).Msg("Failed to read sweep config from env")
	}

	return cfg
}

// FromViper converts the raw viper values into a typed Sweep config. It only
// parses; see Sweep.Validate for the semantic checks.
func FromViper(v *viper.Viper) (Sweep, error) {
	var (
		cfg Sweep
		err error
	)

	cfg.AlchemyAPIKey = v.GetString(KeyAlchemyAPIKey)
	cfg.RPCURLs = ParseRPCURLs(v.GetString(KeyRPCURL))
	if len(cfg.RPCURLs) == 0 && cfg.AlchemyAPIKey != "" {
		cfg.RPCURLs = []string{fmt.Sprintf(alchemyMainnetWSURL, cfg.AlchemyAPIKey)}
	}

	cfg.HotWallet = strings.TrimSpace(v.GetString(KeyWalletSweep))
	cfg.ColdWallet = strings.TrimSpace(v.GetString(KeyWalletDest))
	cfg.PrivateKey = strings.TrimSpace(v.GetString(KeyPrivateKey))
	cfg.KeyFile = v.GetString(KeyKeyFile)
	cfg.KeyPassword = v.GetString(KeyKeyPassword)
	cfg.ChainID = v.GetInt64(KeyChainID)
	cfg.LoopInterval = v.GetDuration(KeyLoopInterval)
	cfg.MetricsListenAddress = v.GetString(KeyMetricsListenAddr)

	cfg.TokensFile = v.GetString(KeyTokensFile)
	if cfg.TokensFile != "" {
		if cfg.Tokens, err = LoadTokensFile(cfg.TokensFile); err != nil {
			return cfg, err
		}
	} else {
		cfg.Tokens = DefaultTokens()
	}

	cfg.Fee.AggressiveCap = v.GetBool(KeyAggressiveCap)
	decimals := []struct {
		key string
		dst *decimal.Decimal
	}{
		{KeyMaxGasPrice, &cfg.Fee.MaxGasGwei},
		{KeyFloorGasGwei, &cfg.Fee.FloorGasGwei},
		{KeyGasBuffer, &cfg.Fee.Buffer},
		{KeyGasCapBump, &cfg.Fee.CapBump},
		{KeyTipRatio, &cfg.Fee.TipRatio},
		{KeyTipMinGwei, &cfg.Fee.TipMinGwei},
		{KeyTipMaxGwei, &cfg.Fee.TipMaxGwei},
	}
	for _, d := range decimals {
		if *d.dst, err = decimal.NewFromString(strings.TrimSpace(v.GetString(d.key))); err != nil {
			return cfg, errors.Wrapf(err, "failed to parse %s", d.key)
		}
	}

	cfg.Gas.FallbackUnits = v.GetUint64(KeyFallbackGasUnits)
	cfg.Gas.StandardUnits = v.GetUint64(KeyStandardGasUnits)

	if cfg.DustReserveWei, err = parseWei(v.GetString(KeyDustReserveWei)); err != nil {
		return cfg, errors.Wrapf(err, "failed to parse %s", KeyDustReserveWei)
	}
	if cfg.ExitDustWei, err = parseWei(v.GetString(KeyExitDustWei)); err != nil {
		return cfg, errors.Wrapf(err, "failed to parse %s", KeyExitDustWei)
	}

	if cfg.Logger.Level, err = zerolog.ParseLevel(v.GetString(KeyLogLevel)); err != nil {
		return cfg, errors.Wrapf(err, "failed to parse %s", KeyLogLevel)
	}
	cfg.Logger.PrettyPrintConsole = v.GetBool(KeyLogPretty)

	return cfg, nil
}

// Validate checks everything the sweep command needs before touching the chain.
func (c Sweep) Validate() error {
	return vala.BeginValidation().Validate(
		check(len(c.RPCURLs) > 0, "at least one RPC URL (or an Alchemy API key) is required"),
		hexAddress(c.HotWallet, KeyWalletSweep),
		hexAddress(c.ColdWallet, KeyWalletDest),
		check(!strings.EqualFold(c.HotWallet, c.ColdWallet), "wallet-sweep and wallet-dest must differ"),
		vala.StringNotEmpty(c.PrivateKey, KeyPrivateKey),
		positive(c.Fee.MaxGasGwei, KeyMaxGasPrice),
		positive(c.Fee.FloorGasGwei, KeyFloorGasGwei),
		check(c.Fee.Buffer.GreaterThanOrEqual(decimal.NewFromInt(1)), KeyGasBuffer+" must be >= 1"),
		check(c.Fee.CapBump.GreaterThan(decimal.NewFromInt(1)), KeyGasCapBump+" must be > 1"),
		check(c.Fee.TipMinGwei.LessThanOrEqual(c.Fee.TipMaxGwei), KeyTipMinGwei+" must be <= "+KeyTipMaxGwei),
		check(c.Gas.FallbackUnits > 0, KeyFallbackGasUnits+" must be > 0"),
		check(c.Gas.StandardUnits > 0, KeyStandardGasUnits+" must be > 0"),
		check(c.ExitDustWei.Cmp(c.DustReserveWei) >= 0, KeyExitDustWei+" must be >= "+KeyDustReserveWei),
		check(c.LoopInterval > 0, KeyLoopInterval+" must be > 0"),
		check(ValidateTokens(c.Tokens) == nil, "token registry is invalid"),
	).Check()
}

// Redacted returns a copy safe to print: RPC URLs are reduced to scheme and host.
func (c Sweep) Redacted() Sweep {
	c.PrivateKey = ""
	c.KeyPassword = ""
	c.AlchemyAPIKey = ""

	urls := make([]string, len(c.RPCURLs))
	for i, u := range c.RPCURLs {
		urls[i] = RedactURL(u)
	}
	c.RPCURLs = urls

	return c
}

// RedactURL strips path, query and credentials from an RPC URL, provider
// API keys usually live there.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "<invalid url>"
	}

	return u.Scheme + "://" + u.Host
}

// ParseRPCURLs splits a comma separated URL list.
func ParseRPCURLs(rpcURL string) []string {
	if rpcURL == "" {
		return nil
	}

	urls := strings.Split(rpcURL, ",")
	result := make([]string, 0, len(urls))

	for _, url := range urls {
		url = strings.TrimSpace(url)
		if url != "" {
			result = append(result, url)
		}
	}

	return result
}

func parseWei(s string) (*big.Int, error) {
	const base10 = 10

	wei, ok := new(big.Int).SetString(strings.TrimSpace(s), base10)
	if !ok || wei.Sign() < 0 {
		return nil, errors.Errorf("invalid wei amount %q", s)
	}

	return wei, nil
}

func check(ok bool, msg string) vala.Checker {
	return func() (bool, string) {
		return ok, msg
	}
}

func hexAddress(addr, paramName string) vala.Checker {
	return check(common.IsHexAddress(addr), fmt.Sprintf("%s: %q is not a hex address", paramName, addr))
}

func positive(d decimal.Decimal, paramName string) vala.Checker {
	return check(d.IsPositive(), paramName+" must be > 0")
}
