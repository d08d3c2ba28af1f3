package ports

import (
	"context"

	"github.com/tradedesk/auth-service/internal/core/domain"
)

// UserRepository is the credential store. Lookups return domain.ErrUserNotFound
// on a miss. Create must enforce username and email uniqueness atomically and
// report a violation as domain.ErrDuplicateUser.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
}
