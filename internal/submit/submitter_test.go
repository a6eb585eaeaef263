package submit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rifat-sarwar/IntelliTrust/internal/domain"
)

const testIdentity = "did:test:service-000001"

type stubMedium struct {
	mu sync.Mutex

	nonce       uint64
	nonceErr    error
	nonceCalls  int
	estimate    uint64
	estimateErr error
	committed   map[string]domain.Receipt

	submitFn func(call domain.Call) (domain.Receipt, error)
	calls    []domain.Call
}

func (m *stubMedium) NonceAt(_ context.Context, _ string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nonceCalls++
	return m.nonce, m.nonceErr
}

func (m *stubMedium) EstimateCost(_ context.Context, _ domain.Call) (uint64, error) {
	return m.estimate, m.estimateErr
}

func (m *stubMedium) Submit(_ context.Context, call domain.Call) (domain.Receipt, error) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
	return m.submitFn(call)
}

func (m *stubMedium) CommittedReceipt(_ context.Context, callID string) (domain.Receipt, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	receipt, ok := m.committed[callID]
	return receipt, ok, nil
}

func (m *stubMedium) Status(_ context.Context) (domain.MediumStatus, error) {
	return domain.MediumStatus{}, nil
}

func (m *stubMedium) recorded() []domain.Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Call, len(m.calls))
	copy(out, m.calls)
	return out
}

func newTestSubmitter(t *testing.T, medium *stubMedium) (*Submitter, *[]time.Duration) {
	t.Helper()
	s, err := New(medium, Options{
		Identity:    testIdentity,
		MaxAttempts: 3,
		Backoff:     10 * time.Millisecond,
		Timeout:     time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	var slept []time.Duration
	s.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return s, &slept
}

func anchorCall() domain.Call {
	return domain.Call{
		Kind:          domain.CallAnchor,
		Actor:         "did:test:collaborator-0001",
		Fingerprint:   strings.Repeat("a", 64),
		OwnerIdentity: "did:test:owner-00000001",
		Metadata:      "meta",
	}
}

func TestSubmitSuccess(t *testing.T) {
	medium := &stubMedium{
		estimate: 100000,
		submitFn: func(call domain.Call) (domain.Receipt, error) {
			return domain.Receipt{CallID: call.ID, Height: 1, SequenceID: 7}, nil
		},
	}
	s, slept := newTestSubmitter(t, medium)

	receipt, err := s.SubmitAndWait(context.Background(), anchorCall())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if receipt.SequenceID != 7 || receipt.CallID == "" {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	if len(*slept) != 0 {
		t.Fatalf("successful first attempt should not back off, slept %v", *slept)
	}

	calls := medium.recorded()
	if len(calls) != 1 {
		t.Fatalf("medium saw %d calls, want 1", len(calls))
	}
	sent := calls[0]
	if sent.Submitter != testIdentity || sent.Nonce != 0 {
		t.Fatalf("unexpected call envelope: %+v", sent)
	}
	if want := uint64(float64(medium.estimate) * costMargin); sent.CostLimit != want {
		t.Fatalf("CostLimit = %d, want estimate with margin %d", sent.CostLimit, want)
	}
}

func TestRetriesTransientFailures(t *testing.T) {
	attempts := 0
	medium := &stubMedium{
		submitFn: func(call domain.Call) (domain.Receipt, error) {
			attempts++
			if attempts < 3 {
				return domain.Receipt{}, domain.ErrNonceConflict
			}
			return domain.Receipt{CallID: call.ID, Height: 1}, nil
		},
	}
	s, slept := newTestSubmitter(t, medium)

	if _, err := s.SubmitAndWait(context.Background(), anchorCall()); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
	// Backoff doubles between attempts.
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}
	if len(*slept) != len(want) || (*slept)[0] != want[0] || (*slept)[1] != want[1] {
		t.Fatalf("backoff schedule = %v, want %v", *slept, want)
	}
}

func TestLogicalRejectionIsNeverRetried(t *testing.T) {
	attempts := 0
	medium := &stubMedium{
		submitFn: func(domain.Call) (domain.Receipt, error) {
			attempts++
			return domain.Receipt{}, domain.ErrDuplicateFingerprint
		},
	}
	s, slept := newTestSubmitter(t, medium)

	_, err := s.SubmitAndWait(context.Background(), anchorCall())
	if !errors.Is(err, domain.ErrDuplicateFingerprint) {
		t.Fatalf("expected ErrDuplicateFingerprint, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
	if len(*slept) != 0 {
		t.Fatalf("rejection should not back off, slept %v", *slept)
	}
}

func TestRetriesExhausted(t *testing.T) {
	medium := &stubMedium{
		submitFn: func(domain.Call) (domain.Receipt, error) {
			return domain.Receipt{}, domain.ErrMediumUnavailable
		},
	}
	s, _ := newTestSubmitter(t, medium)

	_, err := s.SubmitAndWait(context.Background(), anchorCall())
	if !errors.Is(err, domain.ErrSubmitExhausted) {
		t.Fatalf("expected ErrSubmitExhausted, got %v", err)
	}
	if got := len(medium.recorded()); got != 3 {
		t.Fatalf("medium saw %d attempts, want 3", got)
	}
}

func TestTimeoutResolvedByCommittedLookup(t *testing.T) {
	medium := &stubMedium{committed: make(map[string]domain.Receipt)}
	medium.submitFn = func(call domain.Call) (domain.Receipt, error) {
		// The call lands but the response is lost.
		medium.mu.Lock()
		medium.committed[call.ID] = domain.Receipt{CallID: call.ID, Height: 9, SequenceID: 4}
		medium.mu.Unlock()
		return domain.Receipt{}, context.DeadlineExceeded
	}
	s, _ := newTestSubmitter(t, medium)

	receipt, err := s.SubmitAndWait(context.Background(), anchorCall())
	if err != nil {
		t.Fatalf("landed call should resolve successfully, got %v", err)
	}
	if !receipt.Duplicate || receipt.Height != 9 || receipt.SequenceID != 4 {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	if got := len(medium.recorded()); got != 1 {
		t.Fatalf("landed call was re-submitted %d times", got)
	}
}

func TestTimeoutWithoutCommitIsTransient(t *testing.T) {
	medium := &stubMedium{
		submitFn: func(domain.Call) (domain.Receipt, error) {
			return domain.Receipt{}, context.DeadlineExceeded
		},
	}
	s, _ := newTestSubmitter(t, medium)

	_, err := s.SubmitAndWait(context.Background(), anchorCall())
	if !errors.Is(err, domain.ErrSubmitExhausted) {
		t.Fatalf("expected ErrSubmitExhausted, got %v", err)
	}
	if got := len(medium.recorded()); got != 3 {
		t.Fatalf("timeouts should be retried, saw %d attempts", got)
	}
}

func TestEstimateFallbackAndCap(t *testing.T) {
	medium := &stubMedium{
		estimateErr: domain.ErrEstimateFailed,
		submitFn: func(call domain.Call) (domain.Receipt, error) {
			return domain.Receipt{CallID: call.ID}, nil
		},
	}
	s, _ := newTestSubmitter(t, medium)

	if _, err := s.SubmitAndWait(context.Background(), anchorCall()); err != nil {
		t.Fatal(err)
	}
	if got := medium.recorded()[0].CostLimit; got != defaultFallbackCost {
		t.Fatalf("CostLimit = %d, want fallback %d", got, defaultFallbackCost)
	}

	medium.estimateErr = nil
	medium.estimate = defaultMaxCost
	if _, err := s.SubmitAndWait(context.Background(), anchorCall()); err != nil {
		t.Fatal(err)
	}
	if got := medium.recorded()[1].CostLimit; got != defaultMaxCost {
		t.Fatalf("CostLimit = %d, want cap %d", got, defaultMaxCost)
	}
}

func TestPendingAwaitCancellation(t *testing.T) {
	release := make(chan struct{})
	medium := &stubMedium{
		submitFn: func(call domain.Call) (domain.Receipt, error) {
			<-release
			return domain.Receipt{CallID: call.ID, Height: 1}, nil
		},
	}
	s, _ := newTestSubmitter(t, medium)

	ctx, cancel := context.WithCancel(context.Background())
	pending := s.Submit(ctx, anchorCall())
	cancel()

	if _, err := pending.Await(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// Cancelling the wait does not cancel the submission itself.
	close(release)
	receipt, err := pending.Await(context.Background())
	if err != nil {
		t.Fatalf("call should still have committed: %v", err)
	}
	if receipt.Height != 1 {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, Options{Identity: testIdentity}); err == nil {
		t.Fatal("nil medium accepted")
	}
	if _, err := New(&stubMedium{}, Options{}); err == nil {
		t.Fatal("empty identity accepted")
	}
}
