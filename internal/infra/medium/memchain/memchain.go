// Package memchain is the in-process execution medium: a serially-ordered
// commit log that applies ledger calls to the registry one at a time. It is
// the default medium when no durable backend is configured, and the durable
// configuration is the same chain with a journal attached.
package memchain

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rifat-sarwar/IntelliTrust/internal/domain"
	"github.com/rifat-sarwar/IntelliTrust/internal/registry"
)

// Journal persists committed calls in commit order so chain state can be
// rebuilt by replay.
type Journal interface {
	Append(ctx context.Context, call domain.Call, receipt domain.Receipt) error
	List(ctx context.Context) ([]domain.Call, []domain.Receipt, error)
}

// Cost model constants, applied per committed call.
const (
	baseCost    = 100000
	costPerByte = 10
	maxCost     = 5000000
)

type Chain struct {
	mu        sync.Mutex
	reg       *registry.Registry
	height    int64
	nonces    map[string]uint64
	committed map[string]domain.Receipt
	journal   Journal
	clock     func() time.Time

	// estimateFn lets tests force estimation failures; nil means the built-in
	// cost model.
	estimateFn func(domain.Call) (uint64, error)
}

type Options struct {
	Registry   *registry.Registry
	Journal    Journal
	Clock      func() time.Time
	EstimateFn func(domain.Call) (uint64, error)
}

func New(opts Options) *Chain {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Chain{
		reg:        opts.Registry,
		nonces:     make(map[string]uint64),
		committed:  make(map[string]domain.Receipt),
		journal:    opts.Journal,
		clock:      clock,
		estimateFn: opts.EstimateFn,
	}
}

// Replay rebuilds chain and registry state from the journal. Called once at
// startup before the chain accepts submissions.
func (c *Chain) Replay(ctx context.Context) error {
	if c.journal == nil {
		return nil
	}
	calls, receipts, err := c.journal.List(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, call := range calls {
		receipt := receipts[i]
		if _, err := c.apply(call, receipt.CommittedAt); err != nil {
			return err
		}
		c.height = receipt.Height
		c.nonces[call.Submitter] = call.Nonce + 1
		c.committed[call.ID] = receipt
	}
	return nil
}

func (c *Chain) NonceAt(_ context.Context, submitter string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nonces[submitter], nil
}

func (c *Chain) EstimateCost(_ context.Context, call domain.Call) (uint64, error) {
	if c.estimateFn != nil {
		return c.estimateFn(call)
	}
	cost := uint64(baseCost)
	cost += uint64(costPerByte * (len(call.Fingerprint) + len(call.OwnerIdentity) + len(call.Metadata) + len(call.Reason)))
	if cost > maxCost {
		cost = maxCost
	}
	return cost, nil
}

// Submit commits one call atomically. A call ID already committed returns the
// original receipt marked Duplicate instead of re-executing. A nonce other
// than the next expected one fails with ErrNonceConflict and commits nothing.
func (c *Chain) Submit(ctx context.Context, call domain.Call) (domain.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if receipt, ok := c.committed[call.ID]; ok {
		receipt.Duplicate = true
		return receipt, nil
	}
	if call.Nonce != c.nonces[call.Submitter] {
		return domain.Receipt{}, domain.ErrNonceConflict
	}

	at := c.clock().UTC()
	value, err := c.apply(call, at)
	if err != nil {
		// Logical rejection: nothing committed, nonce not consumed.
		return domain.Receipt{}, err
	}

	c.height++
	cost, _ := c.EstimateCost(ctx, call)
	receipt := domain.Receipt{
		CallID:      call.ID,
		Height:      c.height,
		CommittedAt: at,
		CostUsed:    cost,
	}
	switch call.Kind {
	case domain.CallAnchor:
		receipt.SequenceID = value
	case domain.CallWithdrawFees:
		receipt.Amount = value
	}
	c.nonces[call.Submitter] = call.Nonce + 1
	c.committed[call.ID] = receipt

	// The chain is authoritative; a journal failure costs durability of this
	// entry, not the commit itself.
	if c.journal != nil {
		if err := c.journal.Append(ctx, call, receipt); err != nil {
			slog.Warn("journal append failed", "call_id", call.ID, "height", receipt.Height, "error", err)
		}
	}
	return receipt, nil
}

func (c *Chain) CommittedReceipt(_ context.Context, callID string) (domain.Receipt, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	receipt, ok := c.committed[callID]
	return receipt, ok, nil
}

func (c *Chain) Status(_ context.Context) (domain.MediumStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.MediumStatus{
		Height:         c.height,
		CommittedCalls: int64(len(c.committed)),
	}, nil
}

func (c *Chain) apply(call domain.Call, at time.Time) (int64, error) {
	switch call.Kind {
	case domain.CallAnchor:
		return c.reg.Anchor(call.Actor, call.Fingerprint, call.OwnerIdentity, call.Metadata, call.Fee, at)
	case domain.CallRevoke:
		return 0, c.reg.Revoke(call.Actor, call.Fingerprint, call.Reason, at)
	case domain.CallUpdateMetadata:
		return 0, c.reg.UpdateMetadata(call.Actor, call.Fingerprint, call.Metadata, at)
	case domain.CallSetLimits:
		if call.Limits == nil {
			return 0, domain.ErrInvalidOwnerIdentity
		}
		return 0, c.reg.SetLimits(call.Actor, *call.Limits)
	case domain.CallPause:
		return 0, c.reg.Pause(call.Actor)
	case domain.CallUnpause:
		return 0, c.reg.Unpause(call.Actor)
	case domain.CallWithdrawFees:
		amount, err := c.reg.WithdrawFees(call.Actor)
		return amount, err
	case domain.CallGrant:
		if call.Grant == nil {
			return 0, domain.ErrInvalidOwnerIdentity
		}
		return 0, c.reg.Access().Grant(call.Actor, call.Grant.Identity, call.Grant.Capability)
	case domain.CallRevokeGrant:
		if call.Grant == nil {
			return 0, domain.ErrInvalidOwnerIdentity
		}
		return 0, c.reg.Access().Revoke(call.Actor, call.Grant.Identity, call.Grant.Capability)
	default:
		return 0, domain.ErrNotFound
	}
}
