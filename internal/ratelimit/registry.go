// Package ratelimit enforces per-principal request budgets. Rules are
// declared in an embedded YAML file and applied per authenticated user,
// falling back to the client IP for anonymous requests.
package ratelimit

import (
	"embed"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"lorebook/internal/domain/models/wiki"
	"lorebook/internal/httputil"
)

//go:embed config/*.yaml
var configFiles embed.FS

// Registry holds the configured rules and the per-key token buckets.
type Registry struct {
	rules    map[string]Rule
	limiters map[string]*rate.Limiter // "<rule>|<key>" -> bucket
	mu       sync.Mutex
}

// NewRegistry loads the embedded rules file.
func NewRegistry() (*Registry, error) {
	data, err := configFiles.ReadFile("config/rules.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read rate limit rules: %w", err)
	}

	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rate limit rules: %w", err)
	}

	r := &Registry{
		rules:    make(map[string]Rule),
		limiters: make(map[string]*rate.Limiter),
	}
	for _, rule := range file.Rules {
		if rule.Name == "" || rule.PerMinute <= 0 || rule.Burst <= 0 {
			return nil, fmt.Errorf("invalid rate limit rule %q", rule.Name)
		}
		r.rules[rule.Name] = rule
	}

	return r, nil
}

// Allow reports whether one request under the named rule fits the
// budget for key. Unknown rules allow everything.
func (r *Registry) Allow(ruleName, key string) bool {
	rule, ok := r.rules[ruleName]
	if !ok {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	bucketKey := ruleName + "|" + key
	limiter, ok := r.limiters[bucketKey]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(float64(rule.PerMinute)/60.0), rule.Burst)
		r.limiters[bucketKey] = limiter
	}
	return limiter.Allow()
}

// Middleware enforces the named rule on every request passing through.
// It must run after the auth middleware so authenticated users are
// keyed by user ID rather than sharing an IP budget.
func (r *Registry) Middleware(ruleName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !r.Allow(ruleName, requestKey(req)) {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(time.Minute.Seconds())))
				httputil.RespondError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

// requestKey identifies the caller: user ID when authenticated,
// otherwise the client IP.
func requestKey(r *http.Request) string {
	principal := httputil.GetPrincipal(r)
	if principal.Kind == wiki.PrincipalUser && principal.ID != "" {
		return "user:" + principal.ID
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
