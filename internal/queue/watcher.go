// Package queue tracks a patient's place in the telemedicine virtual
// queue. The watcher joins the queue, polls the server snapshot at a fixed
// interval, and reports position changes, readiness and completion as
// events. Queue positions are ephemeral: held in memory between polls,
// never persisted.
package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/cartaomais/appcore/internal/logging"
	"github.com/cartaomais/appcore/internal/metrics"
)

// InServiceMarker is the status substring the server reports once the
// patient is being attended.
const InServiceMarker = "EM ATENDIMENTO"

// Backend is the remote queue surface the watcher needs.
type Backend interface {
	// Join enters the queue and returns the appointment/session id.
	Join(ctx context.Context, patientToken, specialty string) (string, error)
	// Snapshot fetches the raw queue snapshot JSON.
	Snapshot(ctx context.Context) ([]byte, error)
}

// Notifier emits the one-shot head-of-queue local notification.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// Position is one patient's place in the queue.
type Position struct {
	PatientID string
	Ordinal   int
	Status    string
}

// EventType classifies watcher events.
type EventType string

const (
	// EventPosition reports the patient's current place after a poll.
	EventPosition EventType = "position"
	// EventReady means the patient is being called; navigate to the
	// meeting screen.
	EventReady EventType = "ready"
	// EventFinished means the patient's entry left the queue; navigate
	// to the call-ended screen.
	EventFinished EventType = "finished"
	// EventFailed is terminal: joining or watching failed outright.
	EventFailed EventType = "failed"
)

// Event is one watcher notification.
type Event struct {
	Type      EventType
	Position  *Position
	MeetingID string
	Err       error
}

// Config configures a watcher.
type Config struct {
	PatientToken string
	Specialty    string
	PollInterval time.Duration
	Backend      Backend
	Notifier     Notifier
	Logger       *logging.Logger
}

// Watcher is the queue-status watcher for one queue session.
type Watcher struct {
	cfg    Config
	log    *logging.Logger
	events chan Event

	mu            sync.Mutex
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	running       bool
	appointmentID string

	sawEntry bool
	notified bool
}

// NewWatcher creates a watcher for one patient.
func NewWatcher(cfg Config) *Watcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = logging.NewDefault("queue-watcher")
	}
	return &Watcher{
		cfg:    cfg,
		log:    log,
		events: make(chan Event, 16),
	}
}

// Events returns the channel watcher notifications arrive on. The channel
// closes when the watcher terminates.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start joins the queue and begins polling. Terminal conditions close the
// events channel.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("queue watcher already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer close(w.events)
		w.run(runCtx)
	}()
	return nil
}

// Stop cancels the watcher and waits for the loop to exit. Safe to call
// from screen unmount regardless of watcher state.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

func (w *Watcher) run(ctx context.Context) {
	appointmentID, err := w.cfg.Backend.Join(ctx, w.cfg.PatientToken, w.cfg.Specialty)
	if err != nil {
		w.log.WithError(err).Error("join queue failed")
		w.emit(ctx, Event{Type: EventFailed, Err: err})
		return
	}

	w.mu.Lock()
	w.appointmentID = appointmentID
	w.mu.Unlock()

	w.log.WithField("appointment_id", appointmentID).Info("joined telemedicine queue")

	// Poll immediately, then schedule each subsequent poll only after the
	// previous one settles so a slow request never overlaps the next tick.
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if done := w.poll(ctx); done {
				return
			}
			timer.Reset(w.cfg.PollInterval)
		}
	}
}

// poll fetches one snapshot and advances the state machine. It returns
// true when the watcher reached a terminal state.
func (w *Watcher) poll(ctx context.Context) bool {
	body, err := w.cfg.Backend.Snapshot(ctx)
	if err != nil {
		metrics.RecordQueuePoll(false)
		if ctx.Err() != nil {
			return true
		}
		w.log.WithError(err).Warn("queue snapshot fetch failed")
		return false
	}
	metrics.RecordQueuePoll(true)

	entry, found := representativeEntry(body, w.cfg.PatientToken)
	if !found {
		if w.sawEntry {
			w.log.Info("queue entry gone, call finished")
			w.emit(ctx, Event{Type: EventFinished})
			return true
		}
		// Not seen yet; the join may still be propagating.
		return false
	}
	w.sawEntry = true

	if strings.Contains(entry.Status, InServiceMarker) {
		w.mu.Lock()
		meetingID := fmt.Sprintf("%s:%s", w.appointmentID, w.cfg.PatientToken)
		w.mu.Unlock()

		w.log.WithField("meeting_id", meetingID).Info("patient in service, ready for meeting")
		w.emit(ctx, Event{Type: EventReady, MeetingID: meetingID, Position: &entry})
		return true
	}

	if entry.Ordinal == 1 && !w.notified {
		w.notified = true
		if w.cfg.Notifier != nil {
			if err := w.cfg.Notifier.Notify(ctx, "Sua vez está chegando", "Você é o próximo da fila."); err != nil {
				w.log.WithError(err).Warn("head-of-queue notification failed")
			}
		}
	}

	w.emit(ctx, Event{Type: EventPosition, Position: &entry})
	return false
}

func (w *Watcher) emit(ctx context.Context, ev Event) {
	select {
	case w.events <- ev:
	case <-ctx.Done():
	}
}

// representativeEntry filters the snapshot to the patient's entries and
// returns the one with the lowest numeric ordinal position. The snapshot
// schema varies (top-level array or wrapped, position as string or
// number), so it is probed with gjson rather than a rigid struct.
func representativeEntry(body []byte, patientToken string) (Position, bool) {
	entries := gjson.GetBytes(body, "queue")
	if !entries.Exists() {
		entries = gjson.GetBytes(body, "data")
	}
	if !entries.Exists() {
		entries = gjson.ParseBytes(body)
	}
	if !entries.IsArray() {
		return Position{}, false
	}

	best := Position{}
	found := false
	entries.ForEach(func(_, entry gjson.Result) bool {
		patient := entry.Get("patient_id").String()
		if patient == "" {
			patient = entry.Get("patient_token").String()
		}
		if patient != patientToken {
			return true
		}

		pos := Position{
			PatientID: patient,
			Ordinal:   int(entry.Get("position").Int()),
			Status:    entry.Get("status").String(),
		}
		if !found || pos.Ordinal < best.Ordinal {
			best = pos
			found = true
		}
		return true
	})

	return best, found
}
