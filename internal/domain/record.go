package domain

import "time"

// FingerprintLength is the exact hex length of a document fingerprint
// (a sha256 digest, 32 raw bytes).
const FingerprintLength = 64

const (
	MinOwnerIdentityLength = 10
	MaxOwnerIdentityLength = 255
	MaxRevocationReason    = 1000
)

// AnchorRecord is one anchored document. Records are never deleted; revocation
// is a terminal flag, not an erasure.
type AnchorRecord struct {
	Fingerprint      string
	OwnerIdentity    string
	AnchorerIdentity string
	Metadata         string
	Version          int
	CreatedAt        time.Time
	SequenceID       int64

	Revoked             bool
	RevocationReason    string
	RevocationTimestamp time.Time
	RevokerIdentity     string
}

type ActionKind string

const (
	ActionAnchored ActionKind = "ANCHORED"
	ActionRevoked  ActionKind = "REVOKED"
	ActionUpdated  ActionKind = "UPDATED"
)

// HistoryEntry is one immutable log line. Entries are only ever appended,
// ordered by insertion.
type HistoryEntry struct {
	SequenceID int64
	Timestamp  time.Time
	Action     ActionKind
	Payload    string
	Actor      string
}

// Limits is the administrative configuration surface of the registry.
type Limits struct {
	MaxMetadataBytes int
	MaxPerIdentity   int
	MinFee           int64
}

const (
	DefaultMaxMetadataBytes = 10000
	DefaultMaxPerIdentity   = 1000
)

func DefaultLimits() Limits {
	return Limits{
		MaxMetadataBytes: DefaultMaxMetadataBytes,
		MaxPerIdentity:   DefaultMaxPerIdentity,
	}
}

// VerifyResult is the read snapshot returned by verify. Exists=false carries
// no record fields.
type VerifyResult struct {
	Exists bool
	Record AnchorRecord
}

type RegistryStats struct {
	TotalRecords     int64
	TotalRevoked     int64
	MaxMetadataBytes int
	MaxPerIdentity   int
	MinFee           int64
	FeeBalance       int64
	Paused           bool
}
