package ports

import (
	"context"

	"github.com/tradedesk/auth-service/internal/core/domain"
)

// RegisterInput is the DTO passed from the transport layer on sign-up.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// LoginInput is the DTO passed from the transport layer on sign-in.
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult is what a successful register or login hands back to the client.
type AuthResult struct {
	Token string
	User  domain.SafeUser
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, in LoginInput) (*AuthResult, error)
}
