package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func newDispatcher(t *testing.T, c *fakeClient) *Dispatcher {
	t.Helper()

	d, err := NewDispatcher(c, newEstimator(c), testKeyHex, Config{
		ChainID:           31,
		InnerAttempts:     3,
		InnerDelay:        2 * time.Second,
		OverMinPercent:    10,
		PriceIncrementWei: big.NewInt(5),
		RPCTimeout:        time.Second,
	})
	require.NoError(t, err)
	d.sleep = func(time.Duration) {} // no real pauses in tests
	return d
}

func TestNewDispatcherRejectsBadKey(t *testing.T) {
	c := &fakeClient{gasPrice: big.NewInt(100)}
	_, err := NewDispatcher(c, newEstimator(c), "not-hex", Config{InnerAttempts: 1})
	assert.Error(t, err)
}

func TestSendFirstAttemptSucceeds(t *testing.T) {
	c := &fakeClient{estimateGas: 21_000, gasPrice: big.NewInt(100)}
	d := newDispatcher(t, c)

	hash, err := d.Send(context.Background(), testTo, big.NewInt(1000))
	require.NoError(t, err)
	assert.NotEqual(t, "0x0000000000000000000000000000000000000000000000000000000000000000", hash.Hex())
	assert.Equal(t, 1, c.sendCalls)

	// Base price is the minimum marked up 10%.
	assert.Equal(t, "110", c.sentTxs[0].GasPrice().String())
}

func TestSendEscalatesPriceOnUnderpriced(t *testing.T) {
	underpriced := errors.New("transaction underpriced")
	c := &fakeClient{
		estimateGas: 21_000,
		gasPrice:    big.NewInt(100),
		sendErrs:    []error{underpriced, underpriced, nil},
	}
	d := newDispatcher(t, c)

	_, err := d.Send(context.Background(), testTo, big.NewInt(1000))
	require.NoError(t, err)
	require.Equal(t, 3, c.sendCalls)

	// Attempt n pays base + n*increment.
	assert.Equal(t, "110", c.sentTxs[0].GasPrice().String())
	assert.Equal(t, "115", c.sentTxs[1].GasPrice().String())
	assert.Equal(t, "120", c.sentTxs[2].GasPrice().String())
}

func TestSendReadsFreshNoncePerAttempt(t *testing.T) {
	underpriced := errors.New("transaction underpriced")
	c := &fakeClient{
		estimateGas: 21_000,
		gasPrice:    big.NewInt(100),
		sendErrs:    []error{underpriced, underpriced, nil},
		nonce:       7,
		bumpNonce:   true,
	}
	d := newDispatcher(t, c)

	_, err := d.Send(context.Background(), testTo, big.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, 3, c.nonceCalls)
	assert.Equal(t, uint64(7), c.sentTxs[0].Nonce())
	assert.Equal(t, uint64(9), c.sentTxs[2].Nonce())
}

func TestSendExhaustsInnerBudget(t *testing.T) {
	flaky := errors.New("connection reset")
	c := &fakeClient{
		estimateGas: 21_000,
		gasPrice:    big.NewInt(100),
		sendErrs:    []error{flaky, flaky, flaky},
	}
	d := newDispatcher(t, c)

	_, err := d.Send(context.Background(), testTo, big.NewInt(1000))
	require.Error(t, err)

	var de *DispatchError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, KindTransient, de.Kind)
	assert.Equal(t, 3, de.Attempts)
	assert.Len(t, de.Errs, 3)
	assert.True(t, de.Retryable())
}

func TestSendStopsOnFatal(t *testing.T) {
	c := &fakeClient{
		estimateGas: 21_000,
		gasPrice:    big.NewInt(100),
		sendErrs:    []error{errors.New("invalid sender")},
	}
	d := newDispatcher(t, c)

	_, err := d.Send(context.Background(), testTo, big.NewInt(1000))
	require.Error(t, err)

	var de *DispatchError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, KindFatal, de.Kind)
	assert.Equal(t, 1, de.Attempts)
	assert.False(t, de.Retryable())
	assert.Equal(t, 1, c.sendCalls)
}

func TestSendFailsWhenBasePriceUnavailable(t *testing.T) {
	c := &fakeClient{
		estimateGas: 21_000,
		gasPriceErr: errors.New("rpc down"),
	}
	d := newDispatcher(t, c)

	_, err := d.Send(context.Background(), testTo, big.NewInt(1000))
	require.Error(t, err)

	var de *DispatchError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, KindTransient, de.Kind)
	assert.Zero(t, de.Attempts)
	assert.Zero(t, c.sendCalls)
}

func TestSendUsesEstimatedGasLimit(t *testing.T) {
	c := &fakeClient{estimateGas: 30_000, gasPrice: big.NewInt(100)}
	d := newDispatcher(t, c)

	_, err := d.Send(context.Background(), testTo, big.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, uint64(36_000), c.sentTxs[0].Gas())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "underpriced", err: errors.New("transaction underpriced"), want: KindUnderpriced},
		{name: "fee too low", err: errors.New("fee too low to be accepted"), want: KindUnderpriced},
		{name: "price below minimum", err: errors.New("gas price below configured minimum"), want: KindUnderpriced},
		{name: "invalid sender", err: errors.New("invalid sender"), want: KindFatal},
		{name: "malformed", err: errors.New("malformed transaction"), want: KindFatal},
		{name: "timeout", err: context.DeadlineExceeded, want: KindTransient},
		{name: "unknown", err: errors.New("connection reset by peer"), want: KindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}
