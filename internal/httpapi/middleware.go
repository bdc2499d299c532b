package httpapi

import (
	"context"
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/RoseyCoUk/LVNClothing-sub003/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	CartSessionHeader = "X-Cart-Session"
	maxSessionIDLen   = 64
)

type ctxKey int

const (
	identityKey ctxKey = iota
	cartSessionKey
)

// Identity is the signed-in customer, when there is one.
type Identity struct {
	UserID string
	Email  string
}

func identityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

func cartSessionFrom(ctx context.Context) string {
	s, _ := ctx.Value(cartSessionKey).(string)
	return s
}

// RequestLogger puts a request scoped zap logger in the context and logs one
// line per request.
func RequestLogger(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := middleware.GetReqID(r.Context())
			if reqID != "" {
				w.Header().Set("X-Request-ID", reqID)
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ctx := logger.WithContext(r.Context(), base.With(zap.String("request_id", reqID)))
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.FromContext(ctx, base).Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)))
		})
	}
}

func LimitBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxBytes > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

type identityClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// OptionalIdentity reads an HMAC signed bearer token. Requests without one
// pass through anonymously; a token that does not verify is rejected.
func OptionalIdentity(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok || secret == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims := &identityClaims{}
			_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || claims.Subject == "" {
				respondError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, Identity{
				UserID: claims.Subject,
				Email:  claims.Email,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin guards the back-office. An empty token locks it entirely.
func RequireAdmin(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if token == "" || !ok || subtle.ConstantTimeCompare([]byte(raw), []byte(token)) != 1 {
				respondError(w, http.StatusUnauthorized, "unauthorized", "admin token required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return "", false
	}
	t := strings.TrimSpace(h[7:])
	return t, t != ""
}

// CartSession resolves the cart session from the X-Cart-Session header and
// issues a new one when the header is missing or unusable. The session id is
// always echoed back.
func CartSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := strings.TrimSpace(r.Header.Get(CartSessionHeader))
		if session == "" || len(session) > maxSessionIDLen {
			session = uuid.NewString()
		}
		w.Header().Set(CartSessionHeader, session)

		ctx := context.WithValue(r.Context(), cartSessionKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type clientLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	clients map[string]*rate.Limiter
}

const maxTrackedClients = 10000

func (c *clientLimiter) allow(key string) bool {
	c.mu.Lock()
	l, ok := c.clients[key]
	if !ok {
		if len(c.clients) >= maxTrackedClients {
			c.clients = make(map[string]*rate.Limiter)
		}
		l = rate.NewLimiter(c.limit, c.burst)
		c.clients[key] = l
	}
	c.mu.Unlock()
	return l.Allow()
}

// RateLimit applies a token bucket per client address.
func RateLimit(limit rate.Limit, burst int) func(http.Handler) http.Handler {
	cl := &clientLimiter{limit: limit, burst: burst, clients: make(map[string]*rate.Limiter)}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			if !cl.allow(host) {
				w.Header().Set("Retry-After", "1")
				respondError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
