package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	etypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
)

// fakeClient scripts the RPC surface the dispatcher and estimator use.
type fakeClient struct {
	estimateGas    uint64
	estimateErr    error
	gasPrice       *big.Int
	gasPriceErr    error
	nonce          uint64
	nonceErr       error
	sendErrs       []error // consumed in order; nil entry means success
	sendCalls      int
	sentTxs        []*etypes.Transaction
	nonceCalls     int
	bumpNonce      bool // increment the returned nonce per call
	balance        *big.Int
}

func (f *fakeClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return f.estimateGas, f.estimateErr
}

func (f *fakeClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if f.gasPriceErr != nil {
		return nil, f.gasPriceErr
	}
	return new(big.Int).Set(f.gasPrice), nil
}

func (f *fakeClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	f.nonceCalls++
	if f.nonceErr != nil {
		return 0, f.nonceErr
	}
	n := f.nonce
	if f.bumpNonce {
		f.nonce++
	}
	return n, nil
}

func (f *fakeClient) SendTransaction(ctx context.Context, tx *etypes.Transaction) error {
	i := f.sendCalls
	f.sendCalls++
	f.sentTxs = append(f.sentTxs, tx)
	if i < len(f.sendErrs) {
		return f.sendErrs[i]
	}
	return nil
}

func (f *fakeClient) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return f.balance, nil
}

var testTo = common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")

func newEstimator(c Client) *FeeEstimator {
	return NewFeeEstimator(c, common.Address{}, 21_000, 20, 50_000, time.Second)
}

func TestEstimateAppliesMargin(t *testing.T) {
	// Raw estimate above the floor gets the 20% margin.
	c := &fakeClient{estimateGas: 30_000}
	plan := newEstimator(c).Estimate(context.Background(), testTo, big.NewInt(1))

	assert.Equal(t, uint64(36_000), plan.Limit)
	assert.Equal(t, uint64(30_000), plan.EstRaw)
	assert.False(t, plan.Fallback)
}

func TestEstimateFloorsLowEstimate(t *testing.T) {
	// A raw estimate below the recommended floor is raised to it first.
	c := &fakeClient{estimateGas: 15_000}
	plan := newEstimator(c).Estimate(context.Background(), testTo, big.NewInt(1))

	assert.Equal(t, uint64(25_200), plan.Limit) // 21000 * 1.2
}

func TestEstimateClampsToCeiling(t *testing.T) {
	c := &fakeClient{estimateGas: 49_000}
	plan := newEstimator(c).Estimate(context.Background(), testTo, big.NewInt(1))

	assert.Equal(t, uint64(50_000), plan.Limit)
}

func TestEstimateFallsBackOnError(t *testing.T) {
	c := &fakeClient{estimateErr: errors.New("rpc down")}
	plan := newEstimator(c).Estimate(context.Background(), testTo, big.NewInt(1))

	assert.True(t, plan.Fallback)
	assert.Equal(t, uint64(25_200), plan.Limit)
	assert.Zero(t, plan.EstRaw)
}
