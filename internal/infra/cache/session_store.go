package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"feedback-analysis-service/internal/domain"
	"feedback-analysis-service/internal/domain/model"
	"feedback-analysis-service/internal/domain/ports/repository"
	"feedback-analysis-service/internal/infra/metrics"
	red "feedback-analysis-service/internal/infra/redis"
)

// Compile-time check
var _ repository.SessionStore = (*Store)(nil)

const remoteKeyPrefix = "session:"

// Dial establishes the remote tier connection. Injected so tests can supply
// a fake client or a failing dialer.
type Dial func(ctx context.Context) (red.Client, error)

// Store is the tiered session store. The local tier is written on every Set
// and holds the authoritative copy, live retrieval handle included; the
// remote tier is a best-effort mirror for cross-process reads. Neither the
// local map lock nor anything else is held across a remote call.
type Store struct {
	local     *localTier
	dial      Dial
	remote    red.Client
	remoteTTL time.Duration
	log       *zerolog.Logger
}

func NewStore(dial Dial, localTTL time.Duration, localMax int, remoteTTL time.Duration, log *zerolog.Logger) *Store {
	return &Store{
		local:     newLocalTier(localTTL, localMax),
		dial:      dial,
		remoteTTL: remoteTTL,
		log:       log,
	}
}

// Init attempts the remote connection once. On failure the store stays in
// local-only mode; nothing bubbles to the caller.
func (s *Store) Init(ctx context.Context) {
	if s.dial == nil {
		s.log.Warn().Msg("no remote cache configured, using local cache only")
		return
	}
	client, err := s.dial(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %v", domain.ErrRemoteCacheDown, err)
		s.log.Warn().Err(err).Msg("remote cache connection failed, falling back to local cache only")
		return
	}
	s.remote = client
	s.log.Info().Msg("remote cache connected, using as shared tier")
}

func (s *Store) Set(ctx context.Context, session *model.Session) error {
	if session == nil || session.ID == "" {
		return domain.ErrInvalidArgument
	}

	// Local first: it must hold the authoritative copy before any remote
	// attempt can fail.
	s.local.set(session)
	metrics.SetCacheLocalSize(s.local.size())

	if s.remote == nil {
		return nil
	}
	data, err := encodeSession(session)
	if err != nil {
		s.log.Warn().Err(err).Str("session_id", session.ID).Msg("session not serializable, stored in local cache only")
		return nil
	}
	if err := s.remote.Set(ctx, remoteKeyPrefix+session.ID, data, s.remoteTTL); err != nil {
		s.log.Warn().Err(err).Str("session_id", session.ID).Msg("remote cache write failed, local copy remains authoritative")
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*model.Session, error) {
	if s.remote != nil {
		data, err := s.remote.Get(ctx, remoteKeyPrefix+id)
		switch {
		case err == nil:
			metrics.IncCacheRequest("remote", "hit")
			if session, derr := decodeSession([]byte(data)); derr == nil {
				s.mergeFromLocal(session)
				s.touchRemote(ctx, id)
				return session, nil
			} else {
				s.log.Error().Err(derr).Str("session_id", id).Msg("remote cache entry corrupted, trying local tier")
			}
		case red.IsNil(err):
			metrics.IncCacheRequest("remote", "miss")
		default:
			metrics.IncCacheRequest("remote", "error")
			s.log.Warn().Err(err).Str("session_id", id).Msg("remote cache read failed, trying local tier")
		}
	}

	if session, ok := s.local.get(id); ok {
		metrics.IncCacheRequest("local", "hit")
		return session, nil
	}
	metrics.IncCacheRequest("local", "miss")
	return nil, domain.ErrNotFound
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if s.remote != nil {
		if err := s.remote.Del(ctx, remoteKeyPrefix+id); err != nil {
			s.log.Warn().Err(err).Str("session_id", id).Msg("remote cache delete failed")
		}
	}
	s.local.delete(id)
	metrics.SetCacheLocalSize(s.local.size())
	return nil
}

func (s *Store) Stats(ctx context.Context) repository.CacheStats {
	stats := repository.CacheStats{
		LocalSize:       s.local.size(),
		RemoteAvailable: s.remote != nil,
	}
	if s.remote == nil {
		return stats
	}
	info, err := s.remote.Info(ctx)
	if err != nil {
		stats.Remote = map[string]string{"info_error": err.Error()}
		return stats
	}
	stats.Remote = pickInfoFields(info,
		"used_memory_human", "connected_clients", "keyspace_hits", "keyspace_misses")
	return stats
}

// Close releases local tier resources. The redis client is owned by main.
func (s *Store) Close() {
	s.local.close()
}

// mergeFromLocal substitutes fields the remote tier cannot represent with the
// local authoritative values. Today that is the live retrieval handle and the
// exact creation instant.
func (s *Store) mergeFromLocal(remote *model.Session) {
	local, ok := s.local.get(remote.ID)
	if !ok {
		return
	}
	remote.RetrievalHandle = local.RetrievalHandle
	if !local.CreatedAt.IsZero() {
		remote.CreatedAt = local.CreatedAt
	}
}

// touchRemote extends the remote entry's expiry on a read hit, keeping both
// tiers' lifetimes roughly aligned.
func (s *Store) touchRemote(ctx context.Context, id string) {
	if err := s.remote.Expire(ctx, remoteKeyPrefix+id, s.remoteTTL); err != nil {
		s.log.Debug().Err(err).Str("session_id", id).Msg("remote expiry refresh failed")
	}
}

// pickInfoFields extracts selected "key:value" lines from a Redis INFO dump.
func pickInfoFields(info string, keys ...string) map[string]string {
	wanted := make(map[string]bool, len(keys))
	for _, k := range keys {
		wanted[k] = true
	}
	out := make(map[string]string)
	for _, line := range strings.Split(info, "\n") {
		line = strings.TrimSpace(line)
		k, v, found := strings.Cut(line, ":")
		if found && wanted[k] {
			out[k] = v
		}
	}
	return out
}
