package security

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// inlineRunner runs jobs on the calling goroutine.
type inlineRunner struct{ err error }

func (r inlineRunner) Do(_ context.Context, fn func()) error {
	if r.err != nil {
		return r.err
	}
	fn()
	return nil
}

func newTestHasher(t *testing.T) *BcryptHasher {
	t.Helper()
	h, err := NewBcryptHasher(bcrypt.MinCost, inlineRunner{})
	if err != nil {
		t.Fatalf("NewBcryptHasher: %v", err)
	}
	return h
}

func TestBcryptHasher_RoundTrip(t *testing.T) {
	h := newTestHasher(t)
	ctx := context.Background()

	hash, err := h.Hash(ctx, "secret1")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "secret1" || !strings.HasPrefix(hash, "$2a$") {
		t.Fatalf("unexpected hash %q", hash)
	}

	ok, err := h.Verify(ctx, "secret1", hash)
	if err != nil || !ok {
		t.Fatalf("expected match, got ok=%v err=%v", ok, err)
	}

	ok, err = h.Verify(ctx, "secret2", hash)
	if err != nil || ok {
		t.Fatalf("expected mismatch without error, got ok=%v err=%v", ok, err)
	}
}

func TestBcryptHasher_Salted(t *testing.T) {
	h := newTestHasher(t)

	a, _ := h.Hash(context.Background(), "same-password")
	b, _ := h.Hash(context.Background(), "same-password")
	if a == b {
		t.Fatalf("two hashes of the same password must differ")
	}
}

func TestBcryptHasher_UsesConfiguredCost(t *testing.T) {
	h, err := NewBcryptHasher(0, inlineRunner{})
	if err != nil {
		t.Fatalf("NewBcryptHasher: %v", err)
	}
	hash, err := h.Hash(context.Background(), "pw1234")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil || cost != DefaultCost {
		t.Fatalf("expected cost %d, got %d (%v)", DefaultCost, cost, err)
	}
}

func TestBcryptHasher_CorruptHash(t *testing.T) {
	h := newTestHasher(t)

	ok, err := h.Verify(context.Background(), "secret1", "not-a-bcrypt-hash")
	if ok || err == nil {
		t.Fatalf("expected error for corrupt hash, got ok=%v err=%v", ok, err)
	}
}

func TestBcryptHasher_RunnerFailure(t *testing.T) {
	h, _ := NewBcryptHasher(bcrypt.MinCost, inlineRunner{err: context.Canceled})

	if _, err := h.Hash(context.Background(), "secret1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := h.Verify(context.Background(), "secret1", "x"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewBcryptHasher_Validation(t *testing.T) {
	if _, err := NewBcryptHasher(bcrypt.MaxCost+1, inlineRunner{}); err == nil {
		t.Fatalf("expected error for cost above max")
	}
	if _, err := NewBcryptHasher(1, inlineRunner{}); err == nil {
		t.Fatalf("expected error for cost below min")
	}
	if _, err := NewBcryptHasher(10, nil); err == nil {
		t.Fatalf("expected error for nil runner")
	}
}
