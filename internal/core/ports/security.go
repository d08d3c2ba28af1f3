package ports

import (
	"context"

	"github.com/tradedesk/auth-service/internal/core/domain"
)

// PasswordHasher is a one-way salted hash with a deliberate work factor.
type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	// Verify reports a mismatch as (false, nil); err is reserved for failures
	// such as a corrupt stored hash or a cancelled context.
	Verify(ctx context.Context, plaintext, hash string) (bool, error)
}

// TokenIssuer mints signed bearer tokens for a user id.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// TokenVerifier checks signature and expiry. Failures unwrap to
// domain.ErrUnauthenticated.
type TokenVerifier interface {
	Verify(token string) (*domain.TokenClaims, error)
}
