package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rifat-sarwar/IntelliTrust/internal/domain"
	"github.com/rifat-sarwar/IntelliTrust/internal/infra/policy"
	"github.com/rifat-sarwar/IntelliTrust/internal/registry"
	"github.com/rifat-sarwar/IntelliTrust/internal/submit"
)

// AnchorPolicy is the optional admission policy consulted before an anchor
// call is submitted.
type AnchorPolicy interface {
	Evaluate(ctx context.Context, input policy.Input) (policy.Result, error)
}

// Ledger orchestrates the collaborator-facing operations: reads go straight
// to the registry, mutations are routed through the submitter so nonce
// allocation, cost estimation, and retry apply uniformly.
type Ledger struct {
	Registry  *registry.Registry
	Submitter *submit.Submitter
	Medium    domain.Medium
	Policy    AnchorPolicy
	Logger    *slog.Logger
}

type AnchorResult struct {
	SequenceID  int64
	CallID      string
	Height      int64
	CommittedAt string
}

type MutationResult struct {
	CallID string
	Height int64
}

func (l *Ledger) log() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func (l *Ledger) Anchor(ctx context.Context, actor, fingerprint, ownerIdentity, metadata string, fee int64) (AnchorResult, error) {
	if l.Policy != nil {
		result, err := l.Policy.Evaluate(ctx, policy.Input{
			Actor:         actor,
			OwnerIdentity: ownerIdentity,
			Fingerprint:   fingerprint,
			MetadataSize:  len(metadata),
			Fee:           fee,
		})
		if err != nil {
			l.log().Warn("anchor policy evaluation failed", "actor", actor, "error", err)
			return AnchorResult{}, fmt.Errorf("%w: policy evaluation failed", domain.ErrUnauthorized)
		}
		if !result.Allow {
			code := "POLICY_DENY"
			if len(result.Deny) > 0 {
				code = result.Deny[0].Code
			}
			return AnchorResult{}, fmt.Errorf("%w: policy denied (%s)", domain.ErrUnauthorized, code)
		}
	}

	receipt, err := l.Submitter.SubmitAndWait(ctx, domain.Call{
		Kind:          domain.CallAnchor,
		Actor:         actor,
		Fee:           fee,
		Fingerprint:   fingerprint,
		OwnerIdentity: ownerIdentity,
		Metadata:      metadata,
	})
	if err != nil {
		return AnchorResult{}, err
	}
	l.log().Info("document anchored",
		"fingerprint", fingerprint, "sequence_id", receipt.SequenceID, "height", receipt.Height)
	return AnchorResult{
		SequenceID:  receipt.SequenceID,
		CallID:      receipt.CallID,
		Height:      receipt.Height,
		CommittedAt: receipt.CommittedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

func (l *Ledger) Revoke(ctx context.Context, actor, fingerprint, reason string) (MutationResult, error) {
	receipt, err := l.Submitter.SubmitAndWait(ctx, domain.Call{
		Kind:        domain.CallRevoke,
		Actor:       actor,
		Fingerprint: fingerprint,
		Reason:      reason,
	})
	if err != nil {
		return MutationResult{}, err
	}
	l.log().Info("document revoked", "fingerprint", fingerprint, "height", receipt.Height)
	return MutationResult{CallID: receipt.CallID, Height: receipt.Height}, nil
}

func (l *Ledger) UpdateMetadata(ctx context.Context, actor, fingerprint, metadata string) (MutationResult, error) {
	receipt, err := l.Submitter.SubmitAndWait(ctx, domain.Call{
		Kind:        domain.CallUpdateMetadata,
		Actor:       actor,
		Fingerprint: fingerprint,
		Metadata:    metadata,
	})
	if err != nil {
		return MutationResult{}, err
	}
	return MutationResult{CallID: receipt.CallID, Height: receipt.Height}, nil
}

func (l *Ledger) Verify(ctx context.Context, fingerprint string) (domain.VerifyResult, error) {
	return l.Registry.Verify(fingerprint)
}

func (l *Ledger) History(ctx context.Context, fingerprint string) ([]domain.HistoryEntry, error) {
	return l.Registry.History(fingerprint)
}

type Statistics struct {
	Registry domain.RegistryStats
	Medium   domain.MediumStatus
}

func (l *Ledger) Statistics(ctx context.Context) (Statistics, error) {
	stats := l.Registry.Statistics()
	status, err := l.Medium.Status(ctx)
	if err != nil {
		// Reads must not fail on medium status hiccups; report registry
		// aggregates with a zero medium section.
		l.log().Warn("medium status unavailable", "error", err)
		status = domain.MediumStatus{}
	}
	return Statistics{Registry: stats, Medium: status}, nil
}

func (l *Ledger) SetLimits(ctx context.Context, actor string, limits domain.Limits) (MutationResult, error) {
	receipt, err := l.Submitter.SubmitAndWait(ctx, domain.Call{
		Kind:   domain.CallSetLimits,
		Actor:  actor,
		Limits: &limits,
	})
	if err != nil {
		return MutationResult{}, err
	}
	return MutationResult{CallID: receipt.CallID, Height: receipt.Height}, nil
}

func (l *Ledger) Pause(ctx context.Context, actor string) (MutationResult, error) {
	receipt, err := l.Submitter.SubmitAndWait(ctx, domain.Call{Kind: domain.CallPause, Actor: actor})
	if err != nil {
		return MutationResult{}, err
	}
	l.log().Info("operations paused", "actor", actor)
	return MutationResult{CallID: receipt.CallID, Height: receipt.Height}, nil
}

func (l *Ledger) Unpause(ctx context.Context, actor string) (MutationResult, error) {
	receipt, err := l.Submitter.SubmitAndWait(ctx, domain.Call{Kind: domain.CallUnpause, Actor: actor})
	if err != nil {
		return MutationResult{}, err
	}
	l.log().Info("operations resumed", "actor", actor)
	return MutationResult{CallID: receipt.CallID, Height: receipt.Height}, nil
}

type WithdrawResult struct {
	CallID string
	Height int64
	Amount int64
}

func (l *Ledger) WithdrawFees(ctx context.Context, actor string) (WithdrawResult, error) {
	receipt, err := l.Submitter.SubmitAndWait(ctx, domain.Call{Kind: domain.CallWithdrawFees, Actor: actor})
	if err != nil {
		return WithdrawResult{}, err
	}
	return WithdrawResult{CallID: receipt.CallID, Height: receipt.Height, Amount: receipt.Amount}, nil
}

func (l *Ledger) GrantCapability(ctx context.Context, actor string, grant domain.CapabilityGrant) (MutationResult, error) {
	receipt, err := l.Submitter.SubmitAndWait(ctx, domain.Call{
		Kind:  domain.CallGrant,
		Actor: actor,
		Grant: &grant,
	})
	if err != nil {
		return MutationResult{}, err
	}
	return MutationResult{CallID: receipt.CallID, Height: receipt.Height}, nil
}

func (l *Ledger) RevokeCapability(ctx context.Context, actor string, grant domain.CapabilityGrant) (MutationResult, error) {
	receipt, err := l.Submitter.SubmitAndWait(ctx, domain.Call{
		Kind:  domain.CallRevokeGrant,
		Actor: actor,
		Grant: &grant,
	})
	if err != nil {
		return MutationResult{}, err
	}
	return MutationResult{CallID: receipt.CallID, Height: receipt.Height}, nil
}

func (l *Ledger) Capabilities() []domain.CapabilityGrant {
	return l.Registry.Access().Grants()
}
