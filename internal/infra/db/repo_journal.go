package db

import (
	"context"
	"errors"
	"time"

	"github.com/rifat-sarwar/IntelliTrust/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errDBUnavailable = errors.New("database unavailable")

// CallJournal persists committed calls for replay. It satisfies the chain's
// Journal interface.
type CallJournal struct {
	db *gorm.DB
}

func NewCallJournal(db *gorm.DB) *CallJournal {
	return &CallJournal{db: db}
}

func (j *CallJournal) Append(ctx context.Context, call domain.Call, receipt domain.Receipt) error {
	if j.db == nil {
		return errDBUnavailable
	}
	if call.ID == "" {
		return errors.New("call id is required")
	}
	if receipt.Height <= 0 {
		return errors.New("receipt height is required")
	}
	model := CommittedCallModel{
		Height:        receipt.Height,
		CallID:        call.ID,
		Kind:          string(call.Kind),
		Submitter:     call.Submitter,
		Actor:         call.Actor,
		Nonce:         call.Nonce,
		Fee:           call.Fee,
		Fingerprint:   call.Fingerprint,
		OwnerIdentity: call.OwnerIdentity,
		Metadata:      call.Metadata,
		Reason:        call.Reason,
		SequenceID:    receipt.SequenceID,
		Amount:        receipt.Amount,
		CostUsed:      receipt.CostUsed,
		CommittedAt:   receipt.CommittedAt,
		CreatedAt:     time.Now().UTC(),
	}
	if call.Limits != nil {
		model.LimitMaxMetadataBytes = intPtr(call.Limits.MaxMetadataBytes)
		model.LimitMaxPerIdentity = intPtr(call.Limits.MaxPerIdentity)
		model.LimitMinFee = int64Ptr(call.Limits.MinFee)
	}
	if call.Grant != nil {
		model.GrantIdentity = call.Grant.Identity
		model.GrantCapability = string(call.Grant.Capability)
	}
	return j.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model).Error
}

func (j *CallJournal) List(ctx context.Context) ([]domain.Call, []domain.Receipt, error) {
	if j.db == nil {
		return nil, nil, errDBUnavailable
	}
	var models []CommittedCallModel
	if err := j.db.WithContext(ctx).
		Order("height ASC").
		Find(&models).Error; err != nil {
		return nil, nil, err
	}
	calls := make([]domain.Call, 0, len(models))
	receipts := make([]domain.Receipt, 0, len(models))
	for _, model := range models {
		calls = append(calls, callFromModel(model))
		receipts = append(receipts, receiptFromModel(model))
	}
	return calls, receipts, nil
}

func callFromModel(model CommittedCallModel) domain.Call {
	call := domain.Call{
		ID:            model.CallID,
		Kind:          domain.CallKind(model.Kind),
		Submitter:     model.Submitter,
		Actor:         model.Actor,
		Nonce:         model.Nonce,
		Fee:           model.Fee,
		Fingerprint:   model.Fingerprint,
		OwnerIdentity: model.OwnerIdentity,
		Metadata:      model.Metadata,
		Reason:        model.Reason,
	}
	if model.LimitMaxMetadataBytes != nil || model.LimitMaxPerIdentity != nil || model.LimitMinFee != nil {
		limits := domain.Limits{}
		if model.LimitMaxMetadataBytes != nil {
			limits.MaxMetadataBytes = *model.LimitMaxMetadataBytes
		}
		if model.LimitMaxPerIdentity != nil {
			limits.MaxPerIdentity = *model.LimitMaxPerIdentity
		}
		if model.LimitMinFee != nil {
			limits.MinFee = *model.LimitMinFee
		}
		call.Limits = &limits
	}
	if model.GrantIdentity != "" {
		call.Grant = &domain.CapabilityGrant{
			Identity:   model.GrantIdentity,
			Capability: domain.Capability(model.GrantCapability),
		}
	}
	return call
}

func receiptFromModel(model CommittedCallModel) domain.Receipt {
	return domain.Receipt{
		CallID:      model.CallID,
		Height:      model.Height,
		CommittedAt: model.CommittedAt,
		CostUsed:    model.CostUsed,
		SequenceID:  model.SequenceID,
		Amount:      model.Amount,
	}
}

func intPtr(v int) *int {
	return &v
}

func int64Ptr(v int64) *int64 {
	return &v
}
