package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	etypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/97woo/tgbot/internal/logging"
)

// ErrorKind classifies why a dispatch attempt failed.
type ErrorKind string

const (
	// KindUnderpriced is the fee-too-low rejection class: the offered gas
	// price sat at or below the network's accepted minimum.
	KindUnderpriced ErrorKind = "underpriced"
	// KindTransient covers RPC timeouts and connection failures.
	KindTransient ErrorKind = "transient"
	// KindFatal covers signing failures and malformed transactions. Never
	// retried.
	KindFatal ErrorKind = "fatal"
)

// DispatchError is returned when a send call exhausts its attempt budget or
// hits a fatal failure. It carries the full error list so the caller can
// audit every attempt.
type DispatchError struct {
	Kind     ErrorKind
	Attempts int
	Errs     []error
}

// Error implements the error interface.
func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch exhausted after %d attempts (%s): %v", e.Attempts, e.Kind, e.last())
}

// Unwrap returns the error from the final attempt.
func (e *DispatchError) Unwrap() error {
	return e.last()
}

func (e *DispatchError) last() error {
	if len(e.Errs) == 0 {
		return nil
	}
	return e.Errs[len(e.Errs)-1]
}

// Retryable reports whether a fresh send invocation could still succeed.
// Fatal failures are final.
func (e *DispatchError) Retryable() bool {
	return e.Kind != KindFatal
}

// Config holds the dispatch parameters.
type Config struct {
	ChainID           int64
	InnerAttempts     int           // submission attempts per Send call
	InnerDelay        time.Duration // pause between escalating attempts
	OverMinPercent    int64         // base price markup over the network minimum
	PriceIncrementWei *big.Int      // price escalation step per attempt
	RPCTimeout        time.Duration
}

// Dispatcher builds, signs, and submits value transfers with an escalating
// gas price schedule. One Send call walks the state machine building →
// signing → submitting, retrying fee-related failures up to the inner
// budget. Success means acceptance into the pending pool, not block
// inclusion; callers must not assume finality.
type Dispatcher struct {
	client    Client
	estimator *FeeEstimator
	key       *ecdsa.PrivateKey
	from      common.Address
	signer    etypes.Signer
	cfg       Config

	sleep func(time.Duration) // injectable for tests
}

// NewDispatcher creates a dispatcher signing with the given hex private key.
func NewDispatcher(client Client, estimator *FeeEstimator, privateKeyHex string, cfg Config) (*Dispatcher, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	if cfg.InnerAttempts < 1 {
		return nil, fmt.Errorf("inner attempt budget must be at least 1")
	}
	return &Dispatcher{
		client:    client,
		estimator: estimator,
		key:       key,
		from:      crypto.PubkeyToAddress(key.PublicKey),
		signer:    etypes.LatestSignerForChainID(big.NewInt(cfg.ChainID)),
		cfg:       cfg,
		sleep:     time.Sleep,
	}, nil
}

// From returns the funding address the dispatcher sends from.
func (d *Dispatcher) From() common.Address {
	return d.from
}

// Send submits a value transfer and returns the transaction hash on network
// acceptance. The gas price for attempt n is base + n*increment, where base
// is the network's current minimum accepted price marked up by the
// configured percentage so the first attempt never sits at the floor. The
// nonce is read fresh, pending transactions included, on every attempt.
func (d *Dispatcher) Send(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error) {
	logger := logging.FromContext(ctx).WithFields(map[string]interface{}{
		"to":     to.Hex(),
		"amount": amount.String(),
	})

	plan := d.estimator.Estimate(ctx, to, amount)
	logger.WithFields(map[string]interface{}{
		"gasLimit": plan.Limit,
		"estRaw":   plan.EstRaw,
		"fallback": plan.Fallback,
	}).Debug("Gas plan ready")

	basePrice, err := d.basePrice(ctx)
	if err != nil {
		return common.Hash{}, &DispatchError{Kind: KindTransient, Attempts: 0, Errs: []error{err}}
	}

	var errs []error
	kind := KindTransient
	for attempt := 0; attempt < d.cfg.InnerAttempts; attempt++ {
		price := new(big.Int).Add(basePrice,
			new(big.Int).Mul(big.NewInt(int64(attempt)), d.cfg.PriceIncrementWei))

		hash, attemptErr, attemptKind := d.attempt(ctx, to, amount, plan.Limit, price)
		if attemptErr == nil {
			logger.WithFields(map[string]interface{}{
				"txHash":   hash.Hex(),
				"gasPrice": price.String(),
				"attempt":  attempt + 1,
			}).Info("Transaction accepted into pending pool")
			return hash, nil
		}

		errs = append(errs, attemptErr)
		kind = attemptKind
		logger.WithError(attemptErr).WithFields(map[string]interface{}{
			"attempt":  attempt + 1,
			"gasPrice": price.String(),
			"kind":     string(attemptKind),
		}).Warn("Submission attempt failed")

		if attemptKind == KindFatal {
			return common.Hash{}, &DispatchError{Kind: KindFatal, Attempts: attempt + 1, Errs: errs}
		}
		if attempt+1 < d.cfg.InnerAttempts {
			// Short fixed pause so escalating retries do not hammer the RPC
			// endpoint.
			d.sleep(d.cfg.InnerDelay)
		}
	}

	return common.Hash{}, &DispatchError{Kind: kind, Attempts: d.cfg.InnerAttempts, Errs: errs}
}

// attempt walks one pass of the building → signing → submitting sequence.
func (d *Dispatcher) attempt(ctx context.Context, to common.Address, amount *big.Int, gasLimit uint64, gasPrice *big.Int) (common.Hash, error, ErrorKind) {
	// Building: a fresh pending nonce avoids collisions with earlier
	// in-flight attempts.
	nonceCtx, cancel := context.WithTimeout(ctx, d.cfg.RPCTimeout)
	nonce, err := d.client.PendingNonceAt(nonceCtx, d.from)
	cancel()
	if err != nil {
		return common.Hash{}, fmt.Errorf("nonce fetch: %w", err), classify(err)
	}

	tx := etypes.NewTx(&etypes.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    amount,
		Gas:      gasLimit,
		GasPrice: gasPrice,
	})

	// Signing failures are fatal: retrying cannot fix a bad key.
	signed, err := etypes.SignTx(tx, d.signer, d.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign: %w", err), KindFatal
	}

	// Submitting.
	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.RPCTimeout)
	err = d.client.SendTransaction(sendCtx, signed)
	cancel()
	if err != nil {
		return common.Hash{}, fmt.Errorf("submit: %w", err), classify(err)
	}

	return signed.Hash(), nil, ""
}

// basePrice derives the first attempt's gas price from the network's current
// minimum accepted price plus the over-minimum markup. A price at or below
// the floor is rejected by the network and wastes the attempt.
func (d *Dispatcher) basePrice(ctx context.Context) (*big.Int, error) {
	callCtx, cancel := context.WithTimeout(ctx, d.cfg.RPCTimeout)
	defer cancel()

	min, err := d.client.SuggestGasPrice(callCtx)
	if err != nil {
		return nil, fmt.Errorf("gas price fetch: %w", err)
	}

	markup := new(big.Int).Mul(min, big.NewInt(d.cfg.OverMinPercent))
	markup.Div(markup, big.NewInt(100))
	base := new(big.Int).Add(min, markup)
	if base.Cmp(min) <= 0 {
		// Zero markup on a zero-or-tiny minimum: bump by one increment so we
		// are strictly above the floor.
		base = new(big.Int).Add(min, d.cfg.PriceIncrementWei)
	}
	return base, nil
}

// classify maps an RPC error to a retry class. Fee-too-low failures get the
// escalating-price retry; a rejection naming the transaction itself as
// invalid is fatal; everything else, timeouts included, consumes the inner
// budget and surfaces as exhaustion.
func classify(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "underpriced"),
		strings.Contains(msg, "fee too low"),
		strings.Contains(msg, "gas price below"):
		return KindUnderpriced
	case strings.Contains(msg, "invalid sender"),
		strings.Contains(msg, "malformed"),
		strings.Contains(msg, "invalid transaction"):
		return KindFatal
	default:
		return KindTransient
	}
}
