package payment

import (
	"context"
	"strings"
	"time"

	"github.com/cartaomais/appcore/internal/logging"
	"github.com/cartaomais/appcore/internal/metrics"
)

// Outcome is the terminal state of an asynchronous payment.
type Outcome string

const (
	// OutcomeConfirmed means the charge settled.
	OutcomeConfirmed Outcome = "confirmed"
	// OutcomeExpired means the server-provided expiration passed before
	// the charge settled.
	OutcomeExpired Outcome = "expired"
	// OutcomeFailed means the server rejected or cancelled the charge.
	OutcomeFailed Outcome = "failed"
)

// StatusFunc fetches the current status string for a charge.
type StatusFunc func(ctx context.Context, chargeID string) (string, error)

// PollerConfig configures a StatusPoller.
type PollerConfig struct {
	ChargeID string
	Method   Method
	// ExpiresAt is the server-provided wall-clock expiry. It is enforced
	// independently of the poll interval.
	ExpiresAt time.Time
	Interval  time.Duration
	Fetch     StatusFunc
	Logger    *logging.Logger

	// now is overridable in tests.
	now func() time.Time
}

// StatusPoller watches an asynchronous charge until it settles, fails or
// expires. Each poll is scheduled only after the previous one settles.
type StatusPoller struct {
	cfg PollerConfig
	log *logging.Logger
}

// NewStatusPoller creates a poller for one charge.
func NewStatusPoller(cfg PollerConfig) *StatusPoller {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	log := cfg.Logger
	if log == nil {
		log = logging.NewDefault("payment-poller")
	}
	return &StatusPoller{cfg: cfg, log: log}
}

// Run blocks until the charge reaches a terminal state or ctx is
// cancelled. The expiry check runs before the first status fetch, so a
// charge whose expiration is already past reports OutcomeExpired
// immediately, without waiting a poll interval.
func (p *StatusPoller) Run(ctx context.Context) (Outcome, error) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}

		if !p.cfg.ExpiresAt.IsZero() && p.cfg.now().After(p.cfg.ExpiresAt) {
			p.log.WithField("charge_id", p.cfg.ChargeID).Info("charge expired")
			return OutcomeExpired, nil
		}

		status, err := p.cfg.Fetch(ctx, p.cfg.ChargeID)
		if err != nil {
			metrics.RecordPaymentPoll(string(p.cfg.Method), false)
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			p.log.WithError(err).Warn("payment status fetch failed")
			timer.Reset(p.cfg.Interval)
			continue
		}
		metrics.RecordPaymentPoll(string(p.cfg.Method), true)

		switch classifyStatus(status) {
		case OutcomeConfirmed:
			return OutcomeConfirmed, nil
		case OutcomeFailed:
			return OutcomeFailed, nil
		}

		timer.Reset(p.cfg.Interval)
	}
}

// classifyStatus maps server status strings onto outcomes. Unknown
// statuses keep the poller waiting.
func classifyStatus(status string) Outcome {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "CONFIRMED", "PAID", "APPROVED":
		return OutcomeConfirmed
	case "FAILED", "CANCELLED", "REFUSED":
		return OutcomeFailed
	default:
		return ""
	}
}
