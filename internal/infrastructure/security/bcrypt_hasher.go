package security

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tradedesk/auth-service/internal/pkg/metrics"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 10

// Runner executes fn on a bounded worker. queue.Pool satisfies it.
type Runner interface {
	Do(ctx context.Context, fn func()) error
}

// BcryptHasher implements ports.PasswordHasher with bcrypt.
type BcryptHasher struct {
	cost   int
	runner Runner
}

// NewBcryptHasher validates cost and returns a hasher that runs its work on
// runner. A cost of 0 selects DefaultCost.
func NewBcryptHasher(cost int, runner Runner) (*BcryptHasher, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if runner == nil {
		return nil, errors.New("bcrypt hasher requires a runner")
	}
	return &BcryptHasher{cost: cost, runner: runner}, nil
}

func (h *BcryptHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	var (
		out    []byte
		genErr error
	)
	err := h.runner.Do(ctx, func() {
		start := time.Now()
		out, genErr = bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
		metrics.PasswordHashDuration.WithLabelValues("hash").Observe(time.Since(start).Seconds())
	})
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	if genErr != nil {
		return "", fmt.Errorf("hash password: %w", genErr)
	}
	return string(out), nil
}

func (h *BcryptHasher) Verify(ctx context.Context, plaintext, hash string) (bool, error) {
	var cmpErr error
	err := h.runner.Do(ctx, func() {
		start := time.Now()
		cmpErr = bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
		metrics.PasswordHashDuration.WithLabelValues("verify").Observe(time.Since(start).Seconds())
	})
	if err != nil {
		return false, fmt.Errorf("verify password: %w", err)
	}

	switch {
	case cmpErr == nil:
		return true, nil
	case errors.Is(cmpErr, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("verify password: %w", cmpErr)
	}
}
