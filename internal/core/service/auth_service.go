package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradedesk/auth-service/internal/core/domain"
	"github.com/tradedesk/auth-service/internal/core/ports"
	"github.com/tradedesk/auth-service/internal/pkg/metrics"
)

// AuthService implements registration and login.
type AuthService struct {
	users    ports.UserRepository
	hasher   ports.PasswordHasher
	tokens   ports.TokenIssuer
	validate *inputValidator
	log      zerolog.Logger
	now      func() time.Time

	// dummyHash is verified against when a login email is unknown, so both
	// failure paths cost one bcrypt comparison.
	dummyMu   sync.Mutex
	dummyHash string
}

func NewAuthService(users ports.UserRepository, hasher ports.PasswordHasher, tokens ports.TokenIssuer, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		validate: newInputValidator(),
		log:      log,
		now:      time.Now,
	}
}

// Register validates the input, enforces unique email and username, stores a
// hashed password and returns a token for the new account.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	res, err := s.register(ctx, in)
	metrics.RegistrationsTotal.WithLabelValues(outcome(err)).Inc()
	return res, err
}

func (s *AuthService) register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	if err := s.validate.registration(in); err != nil {
		return nil, err
	}

	if err := s.ensureAbsent(ctx, s.users.FindByEmail, in.Email, domain.ErrEmailExists); err != nil {
		return nil, err
	}
	if err := s.ensureAbsent(ctx, s.users.FindByUsername, in.Username, domain.ErrUsernameExists); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	created, err := s.users.Create(ctx, &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		// The pre-checks above can lose a race; the store's unique index is
		// the final word and reports domain.ErrDuplicateUser.
		return nil, fmt.Errorf("register: %w", err)
	}

	token, err := s.tokens.Issue(created.ID)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	s.log.Info().Str("user_id", created.ID).Str("username", created.Username).Msg("user registered")
	return &ports.AuthResult{Token: token, User: created.Safe()}, nil
}

// Login checks the password for the account with the given email. An unknown
// email and a wrong password both yield domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
	res, err := s.login(ctx, in)
	metrics.LoginsTotal.WithLabelValues(outcome(err)).Inc()
	return res, err
}

func (s *AuthService) login(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
	if err := s.validate.credentials(in); err != nil {
		return nil, err
	}

	s.log.Debug().Str("email", in.Email).Msg("login attempt")

	user, err := s.users.FindByEmail(ctx, in.Email)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		s.burnVerify(ctx, in.Password)
		return nil, domain.ErrInvalidCredentials
	case err != nil:
		return nil, fmt.Errorf("login: %w", err)
	}

	ok, err := s.hasher.Verify(ctx, in.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("login successful")
	return &ports.AuthResult{Token: token, User: user.Safe()}, nil
}

// WarmUp prepares the hash that unknown-email logins are verified against.
// Call it once the hasher is ready; if it fails, the first such login retries.
func (s *AuthService) WarmUp(ctx context.Context) error {
	_, err := s.timingHash(ctx)
	return err
}

func (s *AuthService) timingHash(ctx context.Context) (string, error) {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()
	if s.dummyHash != "" {
		return s.dummyHash, nil
	}
	h, err := s.hasher.Hash(context.WithoutCancel(ctx), "timing-equaliser")
	if err != nil {
		return "", fmt.Errorf("prepare dummy hash: %w", err)
	}
	s.dummyHash = h
	return h, nil
}

func (s *AuthService) burnVerify(ctx context.Context, password string) {
	h, err := s.timingHash(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("unknown-email login not timing-equalised")
		return
	}
	if _, err := s.hasher.Verify(ctx, password, h); err != nil {
		s.log.Warn().Err(err).Msg("dummy password verify failed")
	}
}

// ensureAbsent fails with taken when find locates a record for key.
func (s *AuthService) ensureAbsent(
	ctx context.Context,
	find func(context.Context, string) (*domain.User, error),
	key string,
	taken error,
) error {
	_, err := find(ctx, key)
	switch {
	case err == nil:
		return taken
	case errors.Is(err, domain.ErrUserNotFound):
		return nil
	default:
		return fmt.Errorf("register: %w", err)
	}
}

// outcome maps an error to a metrics label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrUnauthenticated):
		return "invalid_credentials"
	default:
		return "error"
	}
}
