package submit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNonceCacheAdvancesOnCommit(t *testing.T) {
	medium := &stubMedium{nonce: 5}
	cache := newNonceCache(medium, time.Minute, nil)
	ctx := context.Background()

	nonce, release, err := cache.acquire(ctx, testIdentity)
	if err != nil {
		t.Fatal(err)
	}
	if nonce != 5 {
		t.Fatalf("nonce = %d, want 5", nonce)
	}
	release(true)

	// The committed path advances locally without re-fetching, so a stale
	// medium value is irrelevant.
	medium.nonce = 99
	nonce, release, err = cache.acquire(ctx, testIdentity)
	if err != nil {
		t.Fatal(err)
	}
	if nonce != 6 {
		t.Fatalf("nonce = %d, want 6", nonce)
	}
	release(true)
	if medium.nonceCalls != 1 {
		t.Fatalf("medium fetched %d times, want 1", medium.nonceCalls)
	}
}

func TestNonceCacheInvalidatesOnFailure(t *testing.T) {
	medium := &stubMedium{nonce: 3}
	cache := newNonceCache(medium, time.Minute, nil)
	ctx := context.Background()

	nonce, release, err := cache.acquire(ctx, testIdentity)
	if err != nil {
		t.Fatal(err)
	}
	if nonce != 3 {
		t.Fatalf("nonce = %d, want 3", nonce)
	}
	release(false)

	medium.nonce = 10
	nonce, release, err = cache.acquire(ctx, testIdentity)
	if err != nil {
		t.Fatal(err)
	}
	release(true)
	if nonce != 10 {
		t.Fatalf("failed release should force a re-fetch, got %d", nonce)
	}
}

func TestNonceCacheExpires(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	medium := &stubMedium{nonce: 1}
	cache := newNonceCache(medium, time.Minute, func() time.Time { return now })
	ctx := context.Background()

	_, release, err := cache.acquire(ctx, testIdentity)
	if err != nil {
		t.Fatal(err)
	}
	release(true)

	// Within the TTL the cached value is trusted.
	now = now.Add(30 * time.Second)
	_, release, _ = cache.acquire(ctx, testIdentity)
	release(true)
	if medium.nonceCalls != 1 {
		t.Fatalf("fetches = %d, want 1", medium.nonceCalls)
	}

	// Past the TTL the medium is consulted again.
	now = now.Add(2 * time.Minute)
	medium.nonce = 42
	nonce, release, _ := cache.acquire(ctx, testIdentity)
	release(true)
	if nonce != 42 {
		t.Fatalf("expired cache not refreshed, got %d", nonce)
	}
	if medium.nonceCalls != 2 {
		t.Fatalf("fetches = %d, want 2", medium.nonceCalls)
	}
}

func TestNonceCacheSerializesAcquirers(t *testing.T) {
	medium := &stubMedium{}
	cache := newNonceCache(medium, time.Minute, nil)
	ctx := context.Background()

	nonce1, release1, err := cache.acquire(ctx, testIdentity)
	if err != nil {
		t.Fatal(err)
	}

	acquired := make(chan uint64)
	go func() {
		nonce, release, err := cache.acquire(ctx, testIdentity)
		if err != nil {
			panic(err)
		}
		release(true)
		acquired <- nonce
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire proceeded while first held the nonce")
	case <-time.After(50 * time.Millisecond):
	}

	release1(true)
	nonce2 := <-acquired
	if nonce1 != 0 || nonce2 != 1 {
		t.Fatalf("nonces = %d, %d; want 0, 1", nonce1, nonce2)
	}
}

func TestNonceCacheFetchError(t *testing.T) {
	medium := &stubMedium{nonceErr: errors.New("down")}
	cache := newNonceCache(medium, time.Minute, nil)

	if _, _, err := cache.acquire(context.Background(), testIdentity); err == nil {
		t.Fatal("expected fetch error")
	}
}
