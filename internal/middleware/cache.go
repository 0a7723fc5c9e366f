package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/davitm/taskboard/internal/config"
)

// TaskCache caches GET responses on the authenticated task routes in
// Redis. Entries are scoped per user and keyed through a per-user
// generation counter: every write bumps the owner's generation, which
// orphans all of that user's cached entries at once. Orphans simply
// expire with the TTL, so invalidation is a single INCR with no key
// scanning.
//
// A nil client (Redis unreachable at startup) degrades the cache to a
// transparent no-op; the API stays correct, just uncached.
type TaskCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
}

func NewTaskCache(cfg config.CacheConfig, rdb *redis.Client) *TaskCache {
	return &TaskCache{cfg: cfg, rdb: rdb}
}

func (tc *TaskCache) enabled() bool { return tc != nil && tc.cfg.Enabled && tc.rdb != nil }

// captureWriter captures response body/status while forwarding to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if remain := cw.limit - cw.size; remain > 0 {
		if int64(len(b)) <= remain {
			cw.buf.Write(b)
		} else {
			cw.buf.Write(b[:remain])
		}
	}
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

func (tc *TaskCache) genKey(userID uint64) string {
	return fmt.Sprintf("%s:gen:%d", tc.cfg.Prefix, userID)
}

// key builds a stable cache key from the owner, the owner's current
// generation, and a digest of the concrete request path + query. The
// raw URL path is used rather than the route template so parameterized
// routes get one entry per resource.
func (tc *TaskCache) key(c echo.Context, userID uint64, gen int64) string {
	sum := sha1.Sum([]byte(c.Request().URL.Path + "?" + c.Request().URL.RawQuery))
	return fmt.Sprintf("%s:%d:%d:%x", tc.cfg.Prefix, userID, gen, sum[:])
}

// Invalidate bumps the owner's generation after a write. Errors are
// ignored: a failed bump only means one TTL window of staleness.
func (tc *TaskCache) Invalidate(ctx context.Context, userID uint64) {
	if !tc.enabled() {
		return
	}
	_ = tc.rdb.Incr(ctx, tc.genKey(userID)).Err()
}

// encode packs [4 bytes status][body]; all cached responses are JSON so
// no headers need to travel with the payload.
func encode(status int, body []byte) []byte {
	out := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	copy(out[4:], body)
	return out
}

func decode(bs []byte) (status int, body []byte, ok bool) {
	if len(bs) < 4 {
		return 0, nil, false
	}
	return int(binary.BigEndian.Uint32(bs[0:4])), bs[4:], true
}

// Middleware returns the Echo middleware. It must run after JWTAuth so
// the user id is available for key scoping.
func (tc *TaskCache) Middleware() echo.MiddlewareFunc {
	if !tc.enabled() {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !tc.cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			uid, ok := c.Get(UserIDKey).(uint64)
			if !ok {
				return next(c)
			}

			ctx := c.Request().Context()
			gen, err := tc.rdb.Get(ctx, tc.genKey(uid)).Int64()
			if err != nil && err != redis.Nil {
				return next(c) // Redis hiccup: serve uncached
			}
			key := tc.key(c, uid, gen)

			if bs, err := tc.rdb.Get(ctx, key).Bytes(); err == nil {
				if status, body, ok := decode(bs); ok {
					c.Response().Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					_, _ = c.Response().Write(body)
					return nil
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: int64(tc.cfg.MaxBodyBytes)}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status == http.StatusOK && cw.size <= int64(tc.cfg.MaxBodyBytes) {
				_ = tc.rdb.SetEx(context.Background(), key, encode(cw.status, cw.buf.Bytes()), tc.cfg.TTL).Err()
			}
			return nil
		}
	}
}
