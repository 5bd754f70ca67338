package config

import (
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Token is one entry of the token registry. Order matters: tokens are
// planned and broadcast in the order they are listed.
type Token struct {
	Symbol  string `toml:"symbol" json:"symbol"`
	Address string `toml:"address" json:"address"`
}

type tokensFile struct {
	Tokens []Token `toml:"token"`
}

// DefaultTokens is the built-in Ethereum mainnet registry used when no
// tokens file is configured.
func DefaultTokens() []Token {
	return []Token{
		{Symbol: "WLFI", Address: "0xdA5e1988097297dCdc1f90D4dFE7909e847CBeF6"},
		{Symbol: "USDT", Address: "0xdAC17F958D2ee523a2206206994597C13D831ec7"},
		{Symbol: "USDC", Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"},
		{Symbol: "DAI", Address: "0x6B175474E89094C44Da98b954EedeAC495271d0F"},
		{Symbol: "WETH", Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"},
	}
}

// LoadTokensFile reads an ordered token registry from a TOML file:
//
//	[[token]]
//	symbol = "USDT"
//	address = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
func LoadTokensFile(path string) ([]Token, error) {
	var file tokensFile

	meta, err := toml.DecodeFile(path, &file)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode tokens file %s", path)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Errorf("unknown keys in tokens file %s: %v", path, undecoded)
	}

	if err := ValidateTokens(file.Tokens); err != nil {
		return nil, errors.Wrapf(err, "invalid tokens file %s", path)
	}

	return file.Tokens, nil
}

// ValidateTokens checks symbols and addresses and rejects a contract listed twice.
func ValidateTokens(tokens []Token) error {
	seen := make(map[common.Address]string, len(tokens))

	for i, token := range tokens {
		if strings.TrimSpace(token.Symbol) == "" {
			return errors.Errorf("token #%d has no symbol", i)
		}

		if !common.IsHexAddress(token.Address) {
			return errors.Errorf("token %s has invalid address %q", token.Symbol, token.Address)
		}

		addr := common.HexToAddress(token.Address)
		if prev, ok := seen[addr]; ok {
			return errors.Errorf("token %s duplicates contract of %s", token.Symbol, prev)
		}
		seen[addr] = token.Symbol
	}

	return nil
}
