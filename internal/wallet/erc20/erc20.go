// Package erc20 encodes the two ERC-20 calls the sweeper needs and exposes the
// Transfer event signature used to watch for incoming tokens.
package erc20

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

const erc20ABIJSON = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":false,"inputs":[{"name":"recipient","type":"address"},{"name":"amount","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

// TransferTopic is keccak256("Transfer(address,address,uint256)").
var TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

var parsedABI = mustParseABI()

func mustParseABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		panic(err)
	}

	return parsed
}

// PackTransfer returns calldata for transfer(recipient, amount).
func PackTransfer(recipient common.Address, amount *big.Int) ([]byte, error) {
	data, err := parsedABI.Pack("transfer", recipient, amount)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack transfer")
	}

	return data, nil
}

// PackBalanceOf returns calldata for balanceOf(owner).
func PackBalanceOf(owner common.Address) ([]byte, error) {
	data, err := parsedABI.Pack("balanceOf", owner)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack balanceOf")
	}

	return data, nil
}

// UnpackBalanceOf decodes the uint256 returned by balanceOf.
func UnpackBalanceOf(data []byte) (*big.Int, error) {
	if len(data) == 0 {
		return nil, errors.New("empty balanceOf result, contract missing or not ERC-20")
	}

	out, err := parsedABI.Unpack("balanceOf", data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to unpack balanceOf")
	}

	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, errors.Errorf("unexpected balanceOf result type %T", out[0])
	}

	return balance, nil
}

// AddressTopic left-pads an address to a 32-byte log topic.
func AddressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}
