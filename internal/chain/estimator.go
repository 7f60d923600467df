package chain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/97woo/tgbot/internal/logging"
)

// GasPlan is the gas limit decision for one transfer.
type GasPlan struct {
	Limit            uint64 // bounded, margin-padded limit to submit with
	EstRaw           uint64 // raw network estimate, zero when it failed
	RecommendedFloor uint64 // network recommended gas for a value transfer
	Fallback         bool   // true when the raw estimate was unavailable
}

// FeeEstimator derives a bounded gas limit for a value transfer. Estimation
// failure never aborts a send: the estimator falls back to a deterministic
// plan built from the recommended floor.
type FeeEstimator struct {
	client        Client
	from          common.Address
	floor         uint64
	marginPercent uint64
	ceiling       uint64
	rpcTimeout    time.Duration
}

// NewFeeEstimator creates a gas estimator sending from the given address.
func NewFeeEstimator(client Client, from common.Address, floor, marginPercent, ceiling uint64, rpcTimeout time.Duration) *FeeEstimator {
	return &FeeEstimator{
		client:        client,
		from:          from,
		floor:         floor,
		marginPercent: marginPercent,
		ceiling:       ceiling,
		rpcTimeout:    rpcTimeout,
	}
}

// Estimate queries the chain for a dynamic gas estimate of the exact
// transfer, takes the larger of the estimate and the recommended floor, pads
// it with the safety margin, and clamps to the absolute ceiling.
func (e *FeeEstimator) Estimate(ctx context.Context, to common.Address, amount *big.Int) GasPlan {
	callCtx, cancel := context.WithTimeout(ctx, e.rpcTimeout)
	defer cancel()

	raw, err := e.client.EstimateGas(callCtx, ethereum.CallMsg{
		From:  e.from,
		To:    &to,
		Value: amount,
	})
	if err != nil {
		logging.FromContext(ctx).WithError(err).Warn("Gas estimation failed, using fallback plan")
		return e.FallbackPlan()
	}

	optimal := raw
	if optimal < e.floor {
		optimal = e.floor
	}
	limit := optimal + optimal*e.marginPercent/100
	if limit > e.ceiling {
		limit = e.ceiling
	}

	return GasPlan{
		Limit:            limit,
		EstRaw:           raw,
		RecommendedFloor: e.floor,
	}
}

// FallbackPlan is the deterministic plan used when estimation fails:
// recommended floor plus the safety margin.
func (e *FeeEstimator) FallbackPlan() GasPlan {
	return GasPlan{
		Limit:            e.floor + e.floor*e.marginPercent/100,
		RecommendedFloor: e.floor,
		Fallback:         true,
	}
}
