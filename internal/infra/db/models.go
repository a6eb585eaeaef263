package db

import "time"

// CommittedCallModel is one journaled ledger call. Rows are append-only and
// ordered by height; replaying them in order reproduces chain state.
type CommittedCallModel struct {
	Height    int64  `gorm:"primaryKey;autoIncrement:false"`
	CallID    string `gorm:"uniqueIndex;not null"`
	Kind      string `gorm:"not null"`
	Submitter string `gorm:"index;not null"`
	Actor     string `gorm:"not null"`
	Nonce     uint64 `gorm:"not null"`
	Fee       int64

	Fingerprint   string `gorm:"index"`
	OwnerIdentity string
	Metadata      string
	Reason        string

	LimitMaxMetadataBytes *int
	LimitMaxPerIdentity   *int
	LimitMinFee           *int64

	GrantIdentity   string
	GrantCapability string

	SequenceID  int64
	Amount      int64
	CostUsed    uint64    `gorm:"not null"`
	CommittedAt time.Time `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (CommittedCallModel) TableName() string {
	return "committed_calls"
}
