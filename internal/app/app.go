// Package app wires the application together: storage backend, API
// clients, stores and background workers. Construction is explicit
// dependency injection; nothing here is a package-level singleton.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/cartaomais/appcore/internal/acquisition"
	"github.com/cartaomais/appcore/internal/api"
	"github.com/cartaomais/appcore/internal/auth"
	"github.com/cartaomais/appcore/internal/cart"
	"github.com/cartaomais/appcore/internal/config"
	"github.com/cartaomais/appcore/internal/kvstore"
	"github.com/cartaomais/appcore/internal/logging"
	"github.com/cartaomais/appcore/internal/payment"
	"github.com/cartaomais/appcore/internal/profile"
	"github.com/cartaomais/appcore/internal/queue"
	"github.com/cartaomais/appcore/internal/scheduling"
	"github.com/cartaomais/appcore/internal/session"
)

// Application holds every long-lived component.
type Application struct {
	Config *config.Config
	Log    *logging.Logger

	Store kvstore.Store
	Codec *kvstore.Codec

	API  *api.Client
	Auth *auth.Service

	Sessions    *session.Store
	Profiles    *profile.Store
	Cart        *cart.Store
	Acquisition *acquisition.Flow

	Payments   *payment.Service
	Scheduling *scheduling.Service

	refresher *session.Refresher
	notifier  queue.Notifier
}

// New builds the full dependency graph from configuration. It does not
// load persisted state or start workers; call Init for that.
func New(ctx context.Context, cfg *config.Config, log *logging.Logger) (*Application, error) {
	if log == nil {
		log = logging.New(logging.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
		})
	}

	store, err := buildStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("build storage backend: %w", err)
	}
	codec := kvstore.NewCodec(store, log)

	// The auth client carries no token source and no refresher: a 401
	// from login or refresh is final, never a retry trigger.
	authClient := api.New(api.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Logger:  log.WithField("component", "auth-api"),
	})
	authSvc := auth.NewService(authClient, log.WithField("component", "auth"))

	sessions := session.NewStore(codec, authSvc.RefreshFunc(), log.WithField("component", "session"))

	// Every other endpoint goes through this client: it injects the
	// bearer token and funnels 401s through the session store's
	// single-flight refresh.
	apiClient := api.New(api.Config{
		BaseURL:        cfg.API.BaseURL,
		Timeout:        cfg.API.Timeout,
		RequestsPerSec: cfg.API.RequestsPerSec,
		Burst:          cfg.API.Burst,
		Tokens:         sessions,
		Refresher:      sessions,
		Logger:         log.WithField("component", "api"),
	})

	a := &Application{
		Config:      cfg,
		Log:         log,
		Store:       store,
		Codec:       codec,
		API:         apiClient,
		Auth:        authSvc,
		Sessions:    sessions,
		Profiles:    profile.NewStore(codec, log.WithField("component", "profile")),
		Cart:        cart.NewStore(codec, log.WithField("component", "cart")),
		Acquisition: acquisition.NewFlow(),
		Payments:    payment.NewService(apiClient, log.WithField("component", "payment")),
		Scheduling:  scheduling.NewService(apiClient, log.WithField("component", "scheduling")),
		notifier:    &logNotifier{log: log.WithField("component", "notifier")},
	}
	a.refresher = session.NewRefresher(sessions, cfg.Session.RefreshInterval, cfg.Session.ExpiryAware, log.WithField("component", "refresher"))

	// The refresher follows the session: it runs while a token exists and
	// stops when the session goes away, whether through an explicit logout
	// or an unrecoverable refresh. The stop runs on its own goroutine
	// because the session can be cleared from inside the refresher's own
	// tick, and Stop waits for that tick to finish. Losing the session
	// also tears down the profile and login artifacts.
	sessions.OnChange(func(s session.Session) {
		if s.LoggedIn() {
			if err := a.refresher.Start(context.Background()); err != nil {
				log.WithError(err).Warn("start session refresher")
			}
			return
		}
		go func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := a.refresher.Stop(stopCtx); err != nil {
				log.WithError(err).Warn("stop session refresher")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Profiles.Clear(ctx); err != nil {
			log.WithError(err).Warn("clear profile after session loss")
		}
		if err := a.Profiles.ClearLoginArtifacts(ctx); err != nil {
			log.WithError(err).Warn("clear login artifacts after session loss")
		}
	})

	// The cart belongs to whoever the profile says is logged in. Items
	// survive the stamping; only the owner id changes.
	a.Profiles.OnChange(func(p profile.UserProfile) {
		if p.Empty() || !a.Cart.Ready() {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Cart.StampOwner(ctx, p.ID); err != nil {
			log.WithError(err).Warn("stamp cart owner")
		}
	})

	return a, nil
}

func buildStore(ctx context.Context, cfg config.StorageConfig) (kvstore.Store, error) {
	switch cfg.Backend {
	case "memory":
		return kvstore.NewMemoryStore(), nil
	case "file":
		return kvstore.NewFileStore(cfg.Dir)
	case "redis":
		return kvstore.NewRedisStore(ctx, kvstore.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.KeyPrefix,
		})
	case "postgres":
		return kvstore.NewPostgresStore(ctx, cfg.PostgresDSN, cfg.KeyPrefix)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Init loads persisted state into the stores and starts the session
// refresher when a token survived the restart. Corrupt or missing
// persisted blobs leave the matching store empty rather than failing
// startup.
func (a *Application) Init(ctx context.Context) error {
	if err := a.Sessions.Load(ctx); err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	// The cart loads before the profile: a restored profile re-stamps the
	// cart owner, and stamping an unloaded cart would persist an empty one
	// over the saved items.
	if err := a.Cart.Load(ctx); err != nil {
		return fmt.Errorf("load cart: %w", err)
	}
	if err := a.Profiles.Load(ctx); err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	if a.Sessions.LoggedIn() {
		if err := a.refresher.Start(ctx); err != nil {
			return fmt.Errorf("start session refresher: %w", err)
		}
		a.Log.Info("restored persisted session, refresher running")
	}
	return nil
}

// Login authenticates and adopts the resulting session and profile. The
// profile change re-stamps the cart owner through the OnChange wiring.
func (a *Application) Login(ctx context.Context, cpf, password string) error {
	res, err := a.Auth.Login(ctx, cpf, password)
	if err != nil {
		return err
	}
	if err := a.Sessions.Set(ctx, res.Session); err != nil {
		return err
	}
	return a.Profiles.Set(ctx, res.Profile)
}

// Logout invalidates the session server-side (best effort) and clears it
// locally; profile and login-artifact cleanup follow through the session
// OnChange wiring. The acquisition flow is transient and resets too.
func (a *Application) Logout(ctx context.Context) error {
	if token := a.Sessions.AccessToken(); token != "" {
		a.Auth.Logout(ctx, token)
	}
	if err := a.Sessions.Clear(ctx); err != nil {
		return err
	}
	a.Acquisition.Reset()
	return nil
}

// NewQueueWatcher creates a watcher for the telemedicine queue using the
// shared API client and the configured poll interval.
func (a *Application) NewQueueWatcher(patientToken, specialty string) *queue.Watcher {
	if specialty == "" {
		specialty = a.Config.Queue.Specialty
	}
	return queue.NewWatcher(queue.Config{
		PatientToken: patientToken,
		Specialty:    specialty,
		PollInterval: a.Config.Queue.PollInterval,
		Backend:      queue.NewAPIBackend(a.API),
		Notifier:     a.notifier,
		Logger:       a.Log.WithField("component", "queue"),
	})
}

// NewPixPoller watches a PIX charge until it settles or its server-side
// expiry passes.
func (a *Application) NewPixPoller(charge payment.PixCharge) *payment.StatusPoller {
	return a.newChargePoller(charge.ID, payment.MethodPix, charge.ExpiresAt)
}

// NewBoletoPoller watches a boleto the same way.
func (a *Application) NewBoletoPoller(b payment.Boleto) *payment.StatusPoller {
	return a.newChargePoller(b.ID, payment.MethodBoleto, b.ExpiresAt)
}

func (a *Application) newChargePoller(chargeID string, method payment.Method, expiresAt time.Time) *payment.StatusPoller {
	return payment.NewStatusPoller(payment.PollerConfig{
		ChargeID:  chargeID,
		Method:    method,
		ExpiresAt: expiresAt,
		Interval:  a.Config.Payment.PollInterval,
		Fetch:     a.Payments.ChargeStatus,
		Logger:    a.Log.WithField("component", "payment-poller"),
	})
}

// Dispose stops background workers and releases the storage backend.
func (a *Application) Dispose(ctx context.Context) error {
	if err := a.refresher.Stop(ctx); err != nil {
		a.Log.WithError(err).Warn("stop refresher on dispose")
	}
	return a.Store.Close()
}

// logNotifier stands in for platform push notifications: head-of-queue
// alerts land in the log.
type logNotifier struct {
	log *logging.Logger
}

func (n *logNotifier) Notify(ctx context.Context, title, message string) error {
	n.log.WithFields(map[string]any{"title": title, "message": message}).Info("local notification")
	return nil
}
