package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tradedesk/auth-service/internal/core/domain"
	"github.com/tradedesk/auth-service/internal/core/ports"
	"github.com/tradedesk/auth-service/internal/pkg/metrics"
)

const defaultIdentityTTL = 5 * time.Minute

// Commands is the subset of the go-redis API the cache needs. *redis.Client
// satisfies it.
type Commands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedUserRepository decorates a ports.UserRepository with a read-through
// Redis cache for FindByID, the lookup every authenticated request makes.
// Only the safe projection is cached; users served from the cache carry no
// password hash. Records are never updated after creation, so entries only
// expire, never need invalidation.
// Key format: identity:<user_id>
type CachedUserRepository struct {
	ports.UserRepository
	client Commands
	ttl    time.Duration
	log    zerolog.Logger
}

// NewCachedUserRepository wraps next. ttl <= 0 selects a five minute TTL.
func NewCachedUserRepository(next ports.UserRepository, client Commands, ttl time.Duration, log zerolog.Logger) *CachedUserRepository {
	if ttl <= 0 {
		ttl = defaultIdentityTTL
	}
	return &CachedUserRepository{UserRepository: next, client: client, ttl: ttl, log: log}
}

type cachedIdentity struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// FindByID serves from Redis when possible. Cache errors are logged and the
// lookup falls through to the wrapped repository.
func (r *CachedUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	raw, err := r.client.Get(ctx, r.key(id)).Bytes()
	switch {
	case err == nil:
		var ci cachedIdentity
		if uerr := json.Unmarshal(raw, &ci); uerr == nil {
			metrics.IdentityCacheTotal.WithLabelValues("hit").Inc()
			return &domain.User{ID: ci.ID, Username: ci.Username, Email: ci.Email, CreatedAt: ci.CreatedAt}, nil
		}
		metrics.IdentityCacheTotal.WithLabelValues("error").Inc()
		r.log.Warn().Str("user_id", id).Msg("discarding undecodable identity cache entry")
	case errors.Is(err, redis.Nil):
		metrics.IdentityCacheTotal.WithLabelValues("miss").Inc()
	default:
		metrics.IdentityCacheTotal.WithLabelValues("error").Inc()
		r.log.Warn().Err(err).Str("user_id", id).Msg("identity cache read failed")
	}

	user, err := r.UserRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.store(ctx, user); err != nil {
		r.log.Warn().Err(err).Str("user_id", id).Msg("identity cache write failed")
	}
	return user, nil
}

func (r *CachedUserRepository) store(ctx context.Context, u *domain.User) error {
	payload, err := json.Marshal(cachedIdentity{ID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt})
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	return r.client.Set(ctx, r.key(u.ID), payload, r.ttl).Err()
}

func (r *CachedUserRepository) key(id string) string {
	return "identity:" + id
}
