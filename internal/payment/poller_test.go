package payment

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cartaomais/appcore/internal/logging"
)

func testPoller(cfg PollerConfig) *StatusPoller {
	if cfg.ChargeID == "" {
		cfg.ChargeID = "charge-1"
	}
	if cfg.Method == "" {
		cfg.Method = MethodPix
	}
	if cfg.Interval == 0 {
		cfg.Interval = time.Millisecond
	}
	cfg.Logger = logging.Discard()
	return NewStatusPoller(cfg)
}

func TestPoller_AlreadyExpiredReportsWithoutFetching(t *testing.T) {
	var fetches int32
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	p := testPoller(PollerConfig{
		ExpiresAt: base.Add(-time.Second),
		Interval:  time.Hour,
		Fetch: func(ctx context.Context, id string) (string, error) {
			atomic.AddInt32(&fetches, 1)
			return "PENDING", nil
		},
		now: func() time.Time { return base },
	})

	start := time.Now()
	outcome, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome != OutcomeExpired {
		t.Fatalf("outcome = %q, want expired", outcome)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("expiry took %v, must not wait a poll interval", elapsed)
	}
	if n := atomic.LoadInt32(&fetches); n != 0 {
		t.Fatalf("fetched status %d times for an already-expired charge", n)
	}
}

func TestPoller_ConfirmedAfterPending(t *testing.T) {
	statuses := []string{"PENDING", "PENDING", "PAID"}
	var idx int32
	p := testPoller(PollerConfig{
		ExpiresAt: time.Now().Add(time.Hour),
		Fetch: func(ctx context.Context, id string) (string, error) {
			i := atomic.AddInt32(&idx, 1) - 1
			if int(i) >= len(statuses) {
				i = int32(len(statuses) - 1)
			}
			return statuses[i], nil
		},
	})

	outcome, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome != OutcomeConfirmed {
		t.Fatalf("outcome = %q, want confirmed", outcome)
	}
	if n := atomic.LoadInt32(&idx); n != 3 {
		t.Fatalf("fetch count = %d, want 3", n)
	}
}

func TestPoller_FailedStatusIsTerminal(t *testing.T) {
	p := testPoller(PollerConfig{
		Fetch: func(ctx context.Context, id string) (string, error) {
			return "CANCELLED", nil
		},
	})

	outcome, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome != OutcomeFailed {
		t.Fatalf("outcome = %q, want failed", outcome)
	}
}

func TestPoller_ExpiryWinsMidPolling(t *testing.T) {
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	var polls int32
	// Clock advances one minute per status fetch; the charge expires at
	// +2m30s, so after three pending fetches the expiry check trips.
	p := testPoller(PollerConfig{
		ExpiresAt: base.Add(2*time.Minute + 30*time.Second),
		Fetch: func(ctx context.Context, id string) (string, error) {
			atomic.AddInt32(&polls, 1)
			return "PENDING", nil
		},
		now: func() time.Time {
			return base.Add(time.Duration(atomic.LoadInt32(&polls)) * time.Minute)
		},
	})

	outcome, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome != OutcomeExpired {
		t.Fatalf("outcome = %q, want expired", outcome)
	}
	if n := atomic.LoadInt32(&polls); n != 3 {
		t.Fatalf("fetch count = %d, want 3", n)
	}
}

func TestPoller_FetchErrorRetries(t *testing.T) {
	var calls int32
	p := testPoller(PollerConfig{
		Fetch: func(ctx context.Context, id string) (string, error) {
			if atomic.AddInt32(&calls, 1) < 3 {
				return "", errors.New("network down")
			}
			return "CONFIRMED", nil
		},
	})

	outcome, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome != OutcomeConfirmed {
		t.Fatalf("outcome = %q, want confirmed after retries", outcome)
	}
}

func TestPoller_ContextCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := testPoller(PollerConfig{
		Fetch: func(ctx context.Context, id string) (string, error) {
			return "PENDING", nil
		},
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := p.Run(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("Run err = %v, want context.Canceled", err)
		}
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		in   string
		want Outcome
	}{
		{"CONFIRMED", OutcomeConfirmed},
		{"paid", OutcomeConfirmed},
		{" Approved ", OutcomeConfirmed},
		{"FAILED", OutcomeFailed},
		{"refused", OutcomeFailed},
		{"PENDING", ""},
		{"", ""},
		{"PROCESSING", ""},
	}
	for _, c := range cases {
		if got := classifyStatus(c.in); got != c.want {
			t.Errorf("classifyStatus(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
