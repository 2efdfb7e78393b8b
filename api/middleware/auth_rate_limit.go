package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/sweetshop-backend/api/responses"
	pkgerrors "github.com/angelmondragon/sweetshop-backend/pkg/errors"
	"github.com/angelmondragon/sweetshop-backend/pkg/logger"
)

const (
	rateLimitedMessage = "Too many attempts, please try again later"
	maxPeekBody        = 64 << 10
)

type windowLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// AuthRateLimitPolicy caps attempts against one credential endpoint. A zero
// limit disables that dimension.
type AuthRateLimitPolicy struct {
	endpoint string
	window   time.Duration
	perIP    int64
	perEmail int64
}

func NewAuthRateLimitPolicy(endpoint string, window time.Duration, perIP, perEmail int) AuthRateLimitPolicy {
	endpoint = strings.ToLower(strings.TrimSpace(endpoint))
	if endpoint == "" {
		endpoint = "auth"
	}
	return AuthRateLimitPolicy{
		endpoint: endpoint,
		window:   window,
		perIP:    int64(perIP),
		perEmail: int64(perEmail),
	}
}

func (p AuthRateLimitPolicy) active() bool {
	return p.window > 0 && (p.perIP > 0 || p.perEmail > 0)
}

type limitCheck struct {
	dimension string
	scope     string
	limit     int64
}

// checks returns the counters this request increments, ip first.
func (p AuthRateLimitPolicy) checks(ip, email string) []limitCheck {
	out := make([]limitCheck, 0, 2)
	if p.perIP > 0 && ip != "" {
		out = append(out, limitCheck{"ip", "auth:" + p.endpoint + ":ip:" + ip, p.perIP})
	}
	if p.perEmail > 0 && email != "" {
		sum := sha256.Sum256([]byte(email))
		out = append(out, limitCheck{"email", "auth:" + p.endpoint + ":email:" + hex.EncodeToString(sum[:]), p.perEmail})
	}
	return out
}

// AuthRateLimit throttles credential endpoints per client address and per
// submitted email. The request body is restored for the next handler.
func AuthRateLimit(policy AuthRateLimitPolicy, limiter windowLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.active() || limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var email string
			if policy.perEmail > 0 {
				body, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBody))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				email = emailFromBody(body)
			}

			for _, c := range policy.checks(remoteHost(r), email) {
				ok, count, err := limiter.FixedWindowAllow(ctx, c.scope, c.limit, policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limit check failed"))
					return
				}
				if ok {
					continue
				}
				if logg != nil {
					logCtx := logg.WithFields(ctx, map[string]any{
						"endpoint":  policy.endpoint,
						"dimension": c.dimension,
						"attempts":  count,
						"limit":     c.limit,
					})
					logg.Warn(logCtx, "auth attempt throttled")
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(policy.window.Seconds())))
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, rateLimitedMessage))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func remoteHost(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

func emailFromBody(body []byte) string {
	var probe struct {
		Email string `json:"email"`
	}
	if len(body) == 0 || json.Unmarshal(body, &probe) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(probe.Email))
}
