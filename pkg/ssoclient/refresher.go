package ssoclient

import (
	"context"
	"time"

	"github.com/carbonatlas/geoauth/pkg/ssotoken"
)

// Scheduler defaults. The check is cheap (an unverified decode of the
// cached access token), so a minutely tick is plenty.
const (
	DefaultCheckInterval    = time.Minute
	DefaultRefreshThreshold = 5 * time.Minute
)

// Refresher proactively rotates the pair before the access token
// expires, so ordinary requests rarely hit the reactive 401 path. The
// decode here is advisory only; the server remains the verifying
// authority.
type Refresher struct {
	Client *Client

	// Interval between expiry checks. Zero means DefaultCheckInterval.
	Interval time.Duration

	// Threshold is the remaining lifetime below which a refresh is
	// triggered. Zero means DefaultRefreshThreshold.
	Threshold time.Duration
}

func (r *Refresher) interval() time.Duration {
	if r.Interval > 0 {
		return r.Interval
	}
	return DefaultCheckInterval
}

func (r *Refresher) threshold() time.Duration {
	if r.Threshold > 0 {
		return r.Threshold
	}
	return DefaultRefreshThreshold
}

// Run blocks, checking the cached access token on every tick and
// refreshing when its remaining lifetime drops below the threshold.
// It returns when ctx is cancelled. An abandoned refresh needs no
// cleanup: the server mints statelessly.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval())
	defer ticker.Stop()

	r.check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.check(ctx)
		}
	}
}

// check runs one scheduler pass. Exported indirectly through Run; split
// out so tests can drive passes without a ticker.
func (r *Refresher) check(ctx context.Context) {
	access := r.Client.Session.AccessToken()
	if access == "" {
		return // logged out, nothing to keep fresh
	}

	claims, err := ssotoken.DecodeUnverified(access)
	if err != nil || claims.ExpiresAt == nil {
		// Undecodable token in the cache means the pair is unusable.
		r.Client.forceReauth("invalid_token")
		return
	}

	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining > r.threshold() {
		return
	}

	if _, err := r.Client.Refresh(ctx); err != nil {
		r.Client.forceReauth("refresh_failed")
	}
}

// CheckNow runs a single scheduler pass immediately.
func (r *Refresher) CheckNow(ctx context.Context) {
	r.check(ctx)
}
