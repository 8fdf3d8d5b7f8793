package session

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"tracker/web/internal/auth"
	"tracker/web/internal/model"
)

// Refresher exchanges a refresh token for a new credential pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error)
}

type RefresherFunc func(ctx context.Context, refreshToken string) (model.TokenPair, error)

func (f RefresherFunc) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	return f(ctx, refreshToken)
}

// Gate makes sure every request reaching a handler either carries a usable
// access token or carries no credentials at all.
//
// Per request:
//   - access cookie present: pass through with it attached
//   - no usable access, refresh present: mint a new pair; on success set both
//     cookies and attach the new access token, on failure clear both cookies
//   - no refresh cookie: clear both cookies
//
// The refresh is attempted once per request and never retried.
type Gate struct {
	refresher  Refresher
	cache      Cache
	reuseTTL   time.Duration
	production bool
	now        func() time.Time
	group      singleflight.Group
}

type GateOption func(*Gate)

// WithCache enables reuse of a minted pair for ttl across requests presenting
// the same refresh token.
func WithCache(cache Cache, ttl time.Duration) GateOption {
	return func(g *Gate) {
		g.cache = cache
		g.reuseTTL = ttl
	}
}

func WithProduction(production bool) GateOption {
	return func(g *Gate) {
		g.production = production
	}
}

func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) {
		g.now = now
	}
}

func NewGate(refresher Refresher, opts ...GateOption) *Gate {
	g := &Gate{
		refresher: refresher,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, g.Apply(w, r))
	})
}

// Apply runs the gate for r and returns the request handlers should see.
func (g *Gate) Apply(w http.ResponseWriter, r *http.Request) *http.Request {
	access := cookieValue(r, AccessCookie)
	refresh := cookieValue(r, RefreshCookie)

	if refresh == "" {
		Clear(w)
		return withCredentials(r, "", "")
	}

	if access != "" && !auth.AccessExpired(access, g.now()) {
		return withCredentials(r, access, refresh)
	}

	pair, err := g.refresh(r.Context(), refresh)
	if err != nil {
		log.Printf("gate: refresh failed path=%s: %v", r.URL.Path, err)
		Clear(w)
		return withCredentials(r, "", "")
	}
	SetPair(w, pair, g.production)
	return withCredentials(r, pair.AccessToken, pair.RefreshToken)
}

func (g *Gate) refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	key := auth.HashToken(refreshToken)
	ctx = context.WithoutCancel(ctx)

	result, err, _ := g.group.Do(key, func() (any, error) {
		if g.cache != nil {
			pair, err := g.cache.Lookup(ctx, key)
			if err == nil {
				return pair, nil
			}
			if !errors.Is(err, ErrCacheMiss) {
				log.Printf("gate: refresh cache lookup: %v", err)
			}
		}

		pair, err := g.refresher.Refresh(ctx, refreshToken)
		if err != nil {
			return model.TokenPair{}, err
		}
		if pair.AccessToken == "" {
			return model.TokenPair{}, errors.New("refresh returned no access token")
		}

		if g.cache != nil {
			if err := g.cache.Save(ctx, key, pair, g.reuseTTL); err != nil {
				log.Printf("gate: refresh cache save: %v", err)
			}
		}
		return pair, nil
	})
	if err != nil {
		return model.TokenPair{}, err
	}
	return result.(model.TokenPair), nil
}
