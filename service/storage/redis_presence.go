package storage

import (
	"context"
	"errors"
	"strconv"
	"time"

	"SMProject/tools/errs"

	"github.com/redis/go-redis/v9"
)

// Each identity is one hash: conn, node, since (unix ms). The key carries
// a TTL that heartbeats refresh, so a crashed node's entries age out.

// KEYS[1] = presence key
// ARGV[1] = conn id, ARGV[2] = node id, ARGV[3] = since ms, ARGV[4] = ttl ms
// returns the previous {conn, node, since} or an empty table
const luaSetPresence = `
local prev = redis.call("HMGET", KEYS[1], "conn", "node", "since")
redis.call("HSET", KEYS[1], "conn", ARGV[1], "node", ARGV[2], "since", ARGV[3])
redis.call("PEXPIRE", KEYS[1], ARGV[4])
if prev[1] then
  return prev
end
return {}
`

// KEYS[1] = presence key, ARGV[1] = conn id
// returns 1 when removed, 0 when the key is gone or owned by another conn
const luaDeleteIfOwner = `
if redis.call("HGET", KEYS[1], "conn") == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// KEYS[1] = presence key, ARGV[1] = conn id, ARGV[2] = ttl ms
const luaTouchIfOwner = `
if redis.call("HGET", KEYS[1], "conn") == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`

type RedisConfig struct {
	Prefix string
	TTL    time.Duration
}

// RedisStore is the PresenceStore shared by every node.
type RedisStore struct {
	rdb  redis.UniversalClient
	conf RedisConfig

	setScript    *redis.Script
	deleteScript *redis.Script
	touchScript  *redis.Script
}

func NewRedisStore(rdb redis.UniversalClient, conf RedisConfig) *RedisStore {
	if conf.Prefix == "" {
		conf.Prefix = "smc:presence:"
	}
	if conf.TTL <= 0 {
		conf.TTL = 90 * time.Second
	}
	return &RedisStore{
		rdb:          rdb,
		conf:         conf,
		setScript:    redis.NewScript(luaSetPresence),
		deleteScript: redis.NewScript(luaDeleteIfOwner),
		touchScript:  redis.NewScript(luaTouchIfOwner),
	}
}

func (s *RedisStore) key(identity string) string {
	return s.conf.Prefix + identity
}

func (s *RedisStore) Get(ctx context.Context, identity string) (Entry, bool, error) {
	m, err := s.rdb.HGetAll(ctx, s.key(identity)).Result()
	if err != nil {
		return Entry{}, false, errs.WrapMsg(err, "presence get", "identity", identity)
	}
	if m["conn"] == "" {
		return Entry{}, false, nil
	}
	return Entry{ConnID: m["conn"], NodeID: m["node"], Since: parseMillis(m["since"])}, true, nil
}

func (s *RedisStore) Set(ctx context.Context, identity string, e Entry) (Entry, bool, error) {
	if e.Since.IsZero() {
		e.Since = time.Now()
	}
	res, err := s.setScript.Run(ctx, s.rdb, []string{s.key(identity)},
		e.ConnID, e.NodeID, e.Since.UnixMilli(), s.conf.TTL.Milliseconds()).Slice()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Entry{}, false, errs.WrapMsg(err, "presence set", "identity", identity)
	}
	if len(res) < 3 {
		return Entry{}, false, nil
	}
	prev := Entry{
		ConnID: asString(res[0]),
		NodeID: asString(res[1]),
		Since:  parseMillis(asString(res[2])),
	}
	return prev, prev.ConnID != "", nil
}

func (s *RedisStore) Delete(ctx context.Context, identity, connID string) (bool, error) {
	n, err := s.deleteScript.Run(ctx, s.rdb, []string{s.key(identity)}, connID).Int64()
	if err != nil {
		return false, errs.WrapMsg(err, "presence delete", "identity", identity)
	}
	return n == 1, nil
}

func (s *RedisStore) Touch(ctx context.Context, identity, connID string) (bool, error) {
	n, err := s.touchScript.Run(ctx, s.rdb, []string{s.key(identity)}, connID, s.conf.TTL.Milliseconds()).Int64()
	if err != nil {
		return false, errs.WrapMsg(err, "presence touch", "identity", identity)
	}
	return n == 1, nil
}

func (s *RedisStore) Online(ctx context.Context, identities []string) (map[string]bool, error) {
	out := make(map[string]bool, len(identities))
	if len(identities) == 0 {
		return out, nil
	}
	pipe := s.rdb.Pipeline()
	cmds := make([]*redis.IntCmd, len(identities))
	for i, id := range identities {
		cmds[i] = pipe.Exists(ctx, s.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, errs.WrapMsg(err, "presence online")
	}
	for i, id := range identities {
		out[id] = cmds[i].Val() == 1
	}
	return out, nil
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func parseMillis(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
