package domain

import "errors"

// Validation failures: the caller sent something malformed. Never retried.
var (
	ErrInvalidFingerprint   = errors.New("invalid fingerprint")
	ErrInvalidOwnerIdentity = errors.New("invalid owner identity")
	ErrMetadataTooLarge     = errors.New("metadata too large")
	ErrInsufficientFee      = errors.New("insufficient fee")
	ErrEmptyReason          = errors.New("empty revocation reason")
	ErrReasonTooLong        = errors.New("revocation reason too long")
)

// State conflicts: the registry's current state rejects the operation. Never retried.
var (
	ErrDuplicateFingerprint = errors.New("fingerprint already anchored")
	ErrNotFound             = errors.New("not found")
	ErrAlreadyRevoked       = errors.New("record already revoked")
	ErrQuotaExceeded        = errors.New("identity quota exceeded")
)

// Authorization failures: the caller lacks a capability or operations are paused.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrPaused       = errors.New("operations paused")
	ErrLastAdmin    = errors.New("cannot remove last administrator")
)

// Transient infrastructure failures: the submitter retries these with backoff.
var (
	ErrNonceConflict     = errors.New("nonce conflict")
	ErrSubmitTimeout     = errors.New("submission timed out")
	ErrEstimateFailed    = errors.New("cost estimation failed")
	ErrMediumUnavailable = errors.New("execution medium unavailable")
)

// ErrSubmitExhausted is surfaced after the retry budget is spent. It wraps the
// last transient cause and is not auto-recovered.
var ErrSubmitExhausted = errors.New("submission retries exhausted")

// ErrReentrantCall means a mutation re-entered the registry while another was
// in flight. It indicates a defect in the calling code, not caller input.
var ErrReentrantCall = errors.New("reentrant registry call")

func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidFingerprint) ||
		errors.Is(err, ErrInvalidOwnerIdentity) ||
		errors.Is(err, ErrMetadataTooLarge) ||
		errors.Is(err, ErrInsufficientFee) ||
		errors.Is(err, ErrEmptyReason) ||
		errors.Is(err, ErrReasonTooLong)
}

func IsStateConflict(err error) bool {
	return errors.Is(err, ErrDuplicateFingerprint) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAlreadyRevoked) ||
		errors.Is(err, ErrQuotaExceeded)
}

func IsAuthorization(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrPaused) ||
		errors.Is(err, ErrLastAdmin)
}

// IsTransient reports whether the submitter may retry the operation.
func IsTransient(err error) bool {
	return errors.Is(err, ErrNonceConflict) ||
		errors.Is(err, ErrSubmitTimeout) ||
		errors.Is(err, ErrEstimateFailed) ||
		errors.Is(err, ErrMediumUnavailable)
}
