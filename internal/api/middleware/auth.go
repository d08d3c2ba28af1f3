package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/tradedesk/auth-service/internal/core/domain"
	"github.com/tradedesk/auth-service/internal/core/ports"
	"github.com/tradedesk/auth-service/internal/pkg/metrics"
)

// UserKey is the echo context key under which the authenticated user is stored.
const UserKey = "auth.user"

const defaultLookupTimeout = 5 * time.Second

// authState accumulates what each pipeline step learns about the request.
type authState struct {
	token  string
	claims *domain.TokenClaims
	user   *domain.User
}

// authStep either advances the state or rejects the request. A non-nil error
// ends the pipeline; nothing after it runs.
type authStep func(c echo.Context, st *authState) error

// Authenticator resolves the bearer token of a request to a stored user.
type Authenticator struct {
	verifier ports.TokenVerifier
	users    ports.UserRepository
	timeout  time.Duration
	log      zerolog.Logger
	steps    []authStep
}

// NewAuthenticator builds the extract → verify → resolve → attach pipeline.
// lookupTimeout bounds the store read; <= 0 selects five seconds.
func NewAuthenticator(verifier ports.TokenVerifier, users ports.UserRepository, lookupTimeout time.Duration, log zerolog.Logger) *Authenticator {
	if lookupTimeout <= 0 {
		lookupTimeout = defaultLookupTimeout
	}
	a := &Authenticator{verifier: verifier, users: users, timeout: lookupTimeout, log: log}
	a.steps = []authStep{a.extract, a.verify, a.resolve, a.attach}
	return a
}

// Middleware returns the echo middleware. Rejections are returned as errors
// for the HTTP error handler to render; next is only called on success.
func (a *Authenticator) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var st authState
			for _, step := range a.steps {
				if err := step(c, &st); err != nil {
					metrics.TokenVerificationsTotal.WithLabelValues(rejectReason(err)).Inc()
					return err
				}
			}
			metrics.TokenVerificationsTotal.WithLabelValues("success").Inc()
			return next(c)
		}
	}
}

// Auth is a shorthand for NewAuthenticator(...).Middleware().
func Auth(verifier ports.TokenVerifier, users ports.UserRepository, lookupTimeout time.Duration, log zerolog.Logger) echo.MiddlewareFunc {
	return NewAuthenticator(verifier, users, lookupTimeout, log).Middleware()
}

func (a *Authenticator) extract(c echo.Context, st *authState) error {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return domain.ErrMissingToken
	}

	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return domain.ErrMissingToken
	}

	st.token = token
	return nil
}

func (a *Authenticator) verify(_ echo.Context, st *authState) error {
	claims, err := a.verifier.Verify(st.token)
	if err != nil {
		a.log.Debug().Err(err).Msg("token verification failed")
		if !errors.Is(err, domain.ErrUnauthenticated) {
			// Verifier contract violation; still never let it through.
			return fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
		}
		return err
	}
	st.claims = claims
	return nil
}

func (a *Authenticator) resolve(c echo.Context, st *authState) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), a.timeout)
	defer cancel()

	user, err := a.users.FindByID(ctx, st.claims.Subject)
	switch {
	case err == nil:
		st.user = user
		return nil
	case errors.Is(err, domain.ErrUserNotFound):
		return domain.ErrUserNotFound
	default:
		return fmt.Errorf("resolve identity %s: %w", st.claims.Subject, err)
	}
}

func (a *Authenticator) attach(c echo.Context, st *authState) error {
	c.Set(UserKey, st.user.Sanitized())
	return nil
}

// CurrentUser returns the user attached by the auth middleware, without its
// password hash, or nil when the request was not authenticated.
func CurrentUser(c echo.Context) *domain.User {
	u, _ := c.Get(UserKey).(*domain.User)
	return u
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingToken):
		return "missing"
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrUnauthenticated):
		return "invalid"
	case errors.Is(err, domain.ErrUserNotFound):
		return "user_not_found"
	default:
		return "error"
	}
}
