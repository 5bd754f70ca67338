package sweep

import (
	"math/big"

	"github.com/shopspring/decimal"
	"github/chapool/go-sweeper/internal/config"
)

const gweiExp = 9

// ComputeFeeParams derives the batch fees from the latest base fee and the
// current cap. In aggressive mode a cap below 3*base+tip is raised once by
// the bump factor and the raised cap is returned in FeeParams.CapGwei.
// The max fee is never below the floor nor below the base fee.
func ComputeFeeParams(baseFeeWei *big.Int, capGwei decimal.Decimal, aggressive bool, cfg config.Fee) FeeParams {
	baseFee := new(big.Int).Set(baseFeeWei)
	baseGwei := decimal.NewFromBigInt(baseFee, -gweiExp)

	tipGwei := decimal.Min(decimal.Max(baseGwei.Mul(cfg.TipRatio), cfg.TipMinGwei), cfg.TipMaxGwei)
	tipWei := gweiToWei(tipGwei)

	need := new(big.Int).Mul(baseFee, big.NewInt(3))
	need.Add(need, tipWei)

	capWei := gweiToWei(capGwei)
	bumped := false
	if aggressive && need.Cmp(capWei) > 0 {
		capGwei = capGwei.Mul(cfg.CapBump)
		capWei = gweiToWei(capGwei)
		bumped = true
	}

	capped := need
	if capWei.Cmp(need) < 0 {
		capped = capWei
	}

	maxFee := decimal.NewFromBigInt(capped, 0).Mul(cfg.Buffer).BigInt()

	if floor := gweiToWei(cfg.FloorGasGwei); maxFee.Cmp(floor) < 0 {
		maxFee = floor
	}
	if maxFee.Cmp(baseFee) < 0 {
		maxFee = new(big.Int).Set(baseFee)
	}

	// The tip may not exceed the fee cap of a dynamic fee transaction.
	if tipWei.Cmp(maxFee) > 0 {
		tipWei = new(big.Int).Set(maxFee)
	}

	return FeeParams{
		MaxFeePerGas: maxFee,
		PriorityFee:  tipWei,
		BaseFee:      baseFee,
		CapGwei:      capGwei,
		CapBumped:    bumped,
	}
}

func gweiToWei(gwei decimal.Decimal) *big.Int {
	return gwei.Shift(gweiExp).BigInt()
}

func weiToGwei(wei *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(wei, -gweiExp)
}

func weiToEther(wei *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(wei, -18)
}
