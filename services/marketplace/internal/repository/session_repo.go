package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/domain"
)

// SessionRepo keeps live sessions and the per-user role cache in redis.
type SessionRepo struct{ rdb *redis.Client }

func NewSessionRepo(rdb *redis.Client) *SessionRepo {
	return &SessionRepo{rdb: rdb}
}

func sessionKey(sid string) string      { return "session:" + sid }
func userSessionsKey(uid string) string { return "user_sessions:" + uid }
func roleKey(uid string) string         { return "role:" + uid }
func resetKey(uid string) string        { return "password_reset:" + uid }

// consumeIfEqual deletes KEYS[1] only while it still holds ARGV[1].
var consumeIfEqual = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (r *SessionRepo) Save(ctx context.Context, s *domain.Session, ttl time.Duration) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, sessionKey(s.ID), b, ttl)
		p.SAdd(ctx, userSessionsKey(s.UserID), s.ID)
		p.Expire(ctx, userSessionsKey(s.UserID), ttl)
		return nil
	})
	return err
}

// Get returns nil without error when the session does not exist.
func (r *SessionRepo) Get(ctx context.Context, sid string) (*domain.Session, error) {
	b, err := r.rdb.Get(ctx, sessionKey(sid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s domain.Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Delete removes one session and the user's cached role.
func (r *SessionRepo) Delete(ctx context.Context, s *domain.Session) error {
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, sessionKey(s.ID), roleKey(s.UserID))
		p.SRem(ctx, userSessionsKey(s.UserID), s.ID)
		return nil
	})
	return err
}

func (r *SessionRepo) DeleteAllForUser(ctx context.Context, uid string) error {
	sids, err := r.rdb.SMembers(ctx, userSessionsKey(uid)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	keys := []string{userSessionsKey(uid), roleKey(uid)}
	for _, sid := range sids {
		keys = append(keys, sessionKey(sid))
	}
	return r.rdb.Del(ctx, keys...).Err()
}

func (r *SessionRepo) CachedRole(ctx context.Context, uid string) (domain.Role, bool, error) {
	v, err := r.rdb.Get(ctx, roleKey(uid)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return domain.Role(v), true, nil
}

func (r *SessionRepo) CacheRole(ctx context.Context, uid string, role domain.Role, ttl time.Duration) error {
	return r.rdb.Set(ctx, roleKey(uid), string(role), ttl).Err()
}

// SaveResetNonce replaces any outstanding password reset nonce of uid.
func (r *SessionRepo) SaveResetNonce(ctx context.Context, uid, nonce string, ttl time.Duration) error {
	return r.rdb.Set(ctx, resetKey(uid), nonce, ttl).Err()
}

// ConsumeResetNonce reports whether nonce is the outstanding one and removes it if so.
func (r *SessionRepo) ConsumeResetNonce(ctx context.Context, uid, nonce string) (bool, error) {
	n, err := consumeIfEqual.Run(ctx, r.rdb, []string{resetKey(uid)}, nonce).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *SessionRepo) ForgetRole(ctx context.Context, uid string) error {
	return r.rdb.Del(ctx, roleKey(uid)).Err()
}
