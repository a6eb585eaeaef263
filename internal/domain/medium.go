package domain

import (
	"context"
	"time"
)

// CallKind names one ledger-mutating operation as committed by the medium.
type CallKind string

const (
	CallAnchor         CallKind = "anchor"
	CallRevoke         CallKind = "revoke"
	CallUpdateMetadata CallKind = "update_metadata"
	CallSetLimits      CallKind = "set_limits"
	CallPause          CallKind = "pause"
	CallUnpause        CallKind = "unpause"
	CallWithdrawFees   CallKind = "withdraw_fees"
	CallGrant          CallKind = "grant_capability"
	CallRevokeGrant    CallKind = "revoke_capability"
)

// Call is one mutating operation prepared for submission. ID is the
// idempotency key: resubmitting a committed ID must not re-execute the call.
// Submitter is the signing identity whose nonce space orders the call; Actor
// is the capability holder the registry authorizes.
type Call struct {
	ID        string
	Kind      CallKind
	Submitter string
	Actor     string
	Nonce     uint64
	Fee       int64

	// CostLimit caps the resources the submitter is willing to spend on the
	// call: the medium's estimate plus a safety margin.
	CostLimit uint64

	Fingerprint   string
	OwnerIdentity string
	Metadata      string
	Reason        string
	Limits        *Limits
	Grant         *CapabilityGrant
}

// Receipt describes a committed call.
type Receipt struct {
	CallID      string
	Height      int64
	CommittedAt time.Time
	CostUsed    uint64

	// SequenceID is set for anchor calls.
	SequenceID int64

	// Amount is set for withdraw-fees calls: the drained balance.
	Amount int64

	// Duplicate is true when the medium recognized an already-committed call
	// and returned its original receipt instead of re-executing.
	Duplicate bool
}

type MediumStatus struct {
	Height         int64
	CommittedCalls int64
}

// Medium is the durable, serially-ordered commit log underlying the registry.
// Implementations commit one mutation at a time; registry invariants rely on
// that ordering.
type Medium interface {
	// NonceAt returns the next usable nonce for a submitting identity.
	NonceAt(ctx context.Context, submitter string) (uint64, error)

	// EstimateCost returns the resource cost of committing the call.
	EstimateCost(ctx context.Context, call Call) (uint64, error)

	// Submit commits the call atomically. Registry errors (validation, state
	// conflict, authorization) propagate unchanged; ErrNonceConflict signals
	// a stale nonce and may be retried with a fresh one.
	Submit(ctx context.Context, call Call) (Receipt, error)

	// CommittedReceipt reports whether a call ID already landed, for
	// resubmission checks after ambiguous failures.
	CommittedReceipt(ctx context.Context, callID string) (Receipt, bool, error)

	Status(ctx context.Context) (MediumStatus, error)
}
