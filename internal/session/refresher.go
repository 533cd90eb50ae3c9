package session

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cartaomais/appcore/internal/logging"
)

// Refresher drives periodic token refreshes while a credential is present.
// Ticks while logged out are no-ops, so the loop can run for the whole
// application lifetime. The next tick is scheduled only after the previous
// refresh settles, so slow refreshes never overlap.
type Refresher struct {
	store    *Store
	log      *logging.Logger
	interval time.Duration

	// expiryAware schedules the next refresh from the token's JWT exp
	// claim when one can be read, falling back to the fixed interval.
	expiryAware bool

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewRefresher creates a lifecycle-managed session refresher.
func NewRefresher(store *Store, interval time.Duration, expiryAware bool, log *logging.Logger) *Refresher {
	if log == nil {
		log = logging.NewDefault("session-refresher")
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Refresher{
		store:       store,
		log:         log,
		interval:    interval,
		expiryAware: expiryAware,
	}
}

// Start launches the refresh loop. Starting a running refresher is a no-op.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		timer := time.NewTimer(r.nextWait())
		defer timer.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-timer.C:
				r.tick(runCtx)
				timer.Reset(r.nextWait())
			}
		}
	}()

	r.log.Info("session refresher started")
	return nil
}

// Stop cancels the loop and waits for it to exit.
func (r *Refresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.log.Info("session refresher stopped")
	return nil
}

// Running reports whether the loop is active.
func (r *Refresher) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Refresher) tick(ctx context.Context) {
	if !r.store.LoggedIn() {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, r.interval)
	defer cancel()

	// Errors are already logged by the store; the loop just keeps going.
	_ = r.store.Refresh(ctx)
}

// nextWait returns the delay before the next refresh attempt.
func (r *Refresher) nextWait() time.Duration {
	if !r.expiryAware {
		return r.interval
	}

	token := r.store.AccessToken()
	if token == "" {
		return r.interval
	}

	exp, ok := tokenExpiry(token)
	if !ok {
		return r.interval
	}

	remaining := time.Until(exp)
	if remaining <= 0 {
		return r.interval
	}

	// Refresh at 80% of remaining lifetime, but never tighter than one
	// second and never slower than the fixed interval floor.
	wait := time.Duration(float64(remaining) * 0.8)
	if wait < time.Second {
		wait = time.Second
	}
	return wait
}

// tokenExpiry reads the exp claim from a JWT access token without
// verifying the signature. Opaque tokens simply report no expiry.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
