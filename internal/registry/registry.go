package registry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rifat-sarwar/IntelliTrust/internal/domain"
)

// Registry is the authoritative document-anchoring ledger: a fingerprint
// arena with a sequence-id history index and a per-identity ownership index.
// Every invariant is enforced here; the execution medium serializes mutations
// so the registry needs no ordering logic of its own. Reads are safe
// concurrently with a pending mutation and observe the last committed state.
//
// A failed operation leaves all state exactly as it was: every check runs
// before the first write.
type Registry struct {
	mu sync.RWMutex

	records  map[string]*domain.AnchorRecord
	history  map[int64][]domain.HistoryEntry
	bySeq    map[int64]string
	owned    map[string][]int64
	nextSeq  int64
	revoked  int64
	balance  int64
	paused   bool

	guard    *Guard
	access   *AccessController
	notifier *Notifier

	// inFlight rejects a mutation nested inside another mutation on the same
	// instance, which the serial medium should make impossible.
	inFlight atomic.Bool
}

type Options struct {
	Limits   domain.Limits
	Access   *AccessController
	Notifier *Notifier
}

func New(opts Options) *Registry {
	access := opts.Access
	if access == nil {
		access = NewAccessController("")
	}
	return &Registry{
		records:  make(map[string]*domain.AnchorRecord),
		history:  make(map[int64][]domain.HistoryEntry),
		bySeq:    make(map[int64]string),
		owned:    make(map[string][]int64),
		nextSeq:  1,
		guard:    NewGuard(opts.Limits),
		access:   access,
		notifier: opts.Notifier,
	}
}

func (r *Registry) Access() *AccessController {
	return r.access
}

func (r *Registry) enter() error {
	if !r.inFlight.CompareAndSwap(false, true) {
		return domain.ErrReentrantCall
	}
	return nil
}

func (r *Registry) exit() {
	r.inFlight.Store(false)
}

// Anchor creates a record for a fingerprint that has never been anchored and
// returns the assigned sequence id. The tendered fee is retained in the
// registry balance.
func (r *Registry) Anchor(actor, fingerprint, ownerIdentity, metadata string, fee int64, at time.Time) (int64, error) {
	if err := r.enter(); err != nil {
		return 0, err
	}
	defer r.exit()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.paused {
		return 0, domain.ErrPaused
	}
	if err := r.access.Check(actor, domain.CapabilityAnchor); err != nil {
		return 0, err
	}
	if err := r.guard.CheckAnchor(fingerprint, ownerIdentity, metadata, fee, len(r.owned[actor])); err != nil {
		return 0, err
	}
	if _, exists := r.records[fingerprint]; exists {
		return 0, domain.ErrDuplicateFingerprint
	}

	seq := r.nextSeq
	r.nextSeq++
	record := &domain.AnchorRecord{
		Fingerprint:      fingerprint,
		OwnerIdentity:    ownerIdentity,
		AnchorerIdentity: actor,
		Metadata:         metadata,
		Version:          1,
		CreatedAt:        at,
		SequenceID:       seq,
	}
	r.records[fingerprint] = record
	r.bySeq[seq] = fingerprint
	r.owned[actor] = append(r.owned[actor], seq)
	r.balance += fee
	r.append(fingerprint, domain.HistoryEntry{
		SequenceID: seq,
		Timestamp:  at,
		Action:     domain.ActionAnchored,
		Payload:    metadata,
		Actor:      actor,
	})
	return seq, nil
}

// Revoke marks a record revoked. The transition is terminal: no further
// metadata update or second revocation is possible, and there is no unrevoke.
func (r *Registry) Revoke(actor, fingerprint, reason string, at time.Time) error {
	if err := r.enter(); err != nil {
		return err
	}
	defer r.exit()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.paused {
		return domain.ErrPaused
	}
	if err := r.access.Check(actor, domain.CapabilityRevoke); err != nil {
		return err
	}
	if err := CheckFingerprint(fingerprint); err != nil {
		return err
	}
	if err := r.guard.CheckReason(reason); err != nil {
		return err
	}
	record, exists := r.records[fingerprint]
	if !exists {
		return domain.ErrNotFound
	}
	if record.Revoked {
		return domain.ErrAlreadyRevoked
	}

	record.Revoked = true
	record.RevocationReason = reason
	record.RevocationTimestamp = at
	record.RevokerIdentity = actor
	r.revoked++
	r.append(fingerprint, domain.HistoryEntry{
		SequenceID: record.SequenceID,
		Timestamp:  at,
		Action:     domain.ActionRevoked,
		Payload:    reason,
		Actor:      actor,
	})
	return nil
}

// UpdateMetadata replaces a record's metadata and bumps its version. Any
// anchor-capable identity may update, not only the original anchorer.
func (r *Registry) UpdateMetadata(actor, fingerprint, metadata string, at time.Time) error {
	if err := r.enter(); err != nil {
		return err
	}
	defer r.exit()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.paused {
		return domain.ErrPaused
	}
	if err := r.access.Check(actor, domain.CapabilityAnchor); err != nil {
		return err
	}
	if err := CheckFingerprint(fingerprint); err != nil {
		return err
	}
	if err := r.guard.CheckMetadata(metadata); err != nil {
		return err
	}
	record, exists := r.records[fingerprint]
	if !exists {
		return domain.ErrNotFound
	}
	if record.Revoked {
		return domain.ErrAlreadyRevoked
	}

	record.Metadata = metadata
	record.Version++
	r.append(fingerprint, domain.HistoryEntry{
		SequenceID: record.SequenceID,
		Timestamp:  at,
		Action:     domain.ActionUpdated,
		Payload:    metadata,
		Actor:      actor,
	})
	return nil
}

// Verify is a pure lookup. Unknown fingerprints are reported through the
// Exists flag, not an error; revoked records are returned with Revoked set.
func (r *Registry) Verify(fingerprint string) (domain.VerifyResult, error) {
	if err := CheckFingerprint(fingerprint); err != nil {
		return domain.VerifyResult{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, exists := r.records[fingerprint]
	if !exists {
		return domain.VerifyResult{}, nil
	}
	return domain.VerifyResult{Exists: true, Record: *record}, nil
}

// History returns the full append-only log for a record, oldest first.
func (r *Registry) History(fingerprint string) ([]domain.HistoryEntry, error) {
	if err := CheckFingerprint(fingerprint); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, exists := r.records[fingerprint]
	if !exists {
		return nil, domain.ErrNotFound
	}
	entries := r.history[record.SequenceID]
	out := make([]domain.HistoryEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (r *Registry) Statistics() domain.RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	limits := r.guard.Limits()
	return domain.RegistryStats{
		TotalRecords:     int64(len(r.records)),
		TotalRevoked:     r.revoked,
		MaxMetadataBytes: limits.MaxMetadataBytes,
		MaxPerIdentity:   limits.MaxPerIdentity,
		MinFee:           limits.MinFee,
		FeeBalance:       r.balance,
		Paused:           r.paused,
	}
}

// OwnedCount reports how many records an identity has anchored.
func (r *Registry) OwnedCount(identity string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.owned[identity])
}

// SetLimits changes the configuration ceilings. Administer capability required.
// Existing records above a lowered ceiling are untouched; limits apply to new
// mutations only.
func (r *Registry) SetLimits(actor string, limits domain.Limits) error {
	if err := r.enter(); err != nil {
		return err
	}
	defer r.exit()

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.access.Check(actor, domain.CapabilityAdminister); err != nil {
		return err
	}
	r.guard.SetLimits(limits)
	return nil
}

// Pause short-circuits every subsequent mutation until Unpause. Reads stay
// available. Pausing itself is exempt from the pause check so an administrator
// can always flip the flag.
func (r *Registry) Pause(actor string) error {
	if err := r.enter(); err != nil {
		return err
	}
	defer r.exit()

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.access.Check(actor, domain.CapabilityAdminister); err != nil {
		return err
	}
	r.paused = true
	return nil
}

func (r *Registry) Unpause(actor string) error {
	if err := r.enter(); err != nil {
		return err
	}
	defer r.exit()

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.access.Check(actor, domain.CapabilityAdminister); err != nil {
		return err
	}
	r.paused = false
	return nil
}

// WithdrawFees drains the retained fee balance and returns the drained amount.
func (r *Registry) WithdrawFees(actor string) (int64, error) {
	if err := r.enter(); err != nil {
		return 0, err
	}
	defer r.exit()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paused {
		return 0, domain.ErrPaused
	}
	if err := r.access.Check(actor, domain.CapabilityAdminister); err != nil {
		return 0, err
	}
	amount := r.balance
	r.balance = 0
	return amount, nil
}

func (r *Registry) append(fingerprint string, entry domain.HistoryEntry) {
	r.history[entry.SequenceID] = append(r.history[entry.SequenceID], entry)
	r.notifier.publishEntry(fingerprint, entry)
}
