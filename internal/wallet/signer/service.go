package signer

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github/chapool/go-sweeper/internal/util"
)

type service struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int
}

// NewService creates a signer for the hex encoded private key (with or without 0x).
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService(privateKeyHex string, chainID *big.Int) (Service, error) {
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, errors.New("chain ID must be positive")
	}

	keyBytes := common.FromHex(strings.TrimSpace(privateKeyHex))
	defer util.Wipe(keyBytes)

	privateKey, err := crypto.ToECDSA(keyBytes)
	if err != nil {
		return nil, errors.Wrap(err, "failed to convert private key to ECDSA")
	}

	return &service{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		chainID:    new(big.Int).Set(chainID),
	}, nil
}

func (s *service) Address() common.Address {
	return s.address
}

func (s *service) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

// SignEVMTransaction signs an EVM transaction (EIP-1559)
func (s *service) SignEVMTransaction(ctx context.Context, req *SignEVMRequest) (*SignEVMResponse, error) {
	if req == nil {
		return nil, errors.New("sign request is nil")
	}

	return s.signEIP1559Transaction(ctx, req)
}
