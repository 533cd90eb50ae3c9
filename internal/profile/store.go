package profile

import (
	"context"
	"sync"

	"github.com/cartaomais/appcore/internal/kvstore"
	"github.com/cartaomais/appcore/internal/logging"
)

// Store is the user profile store. Every update is a wholesale replacement
// of the profile or of one sub-collection; there are no merge semantics.
type Store struct {
	mu      sync.RWMutex
	current UserProfile
	loaded  bool
	subs    []func(UserProfile)

	codec *kvstore.Codec
	log   *logging.Logger
}

// NewStore creates an empty profile store.
func NewStore(codec *kvstore.Codec, log *logging.Logger) *Store {
	if log == nil {
		log = logging.NewDefault("profile")
	}
	return &Store{codec: codec, log: log}
}

// Load reads the persisted profile. Always marks the store initialized.
func (s *Store) Load(ctx context.Context) error {
	var persisted UserProfile
	found, err := s.codec.Get(ctx, kvstore.KeyProfile, &persisted)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if found {
		s.current = persisted
	}
	s.loaded = true
	s.mu.Unlock()

	if found {
		s.notify()
	}
	return nil
}

// Loaded reports whether the initial load completed.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Current returns a snapshot of the profile.
func (s *Store) Current() UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneProfile(s.current)
}

// Set persists and adopts a profile wholesale.
func (s *Store) Set(ctx context.Context, next UserProfile) error {
	if err := s.codec.Set(ctx, kvstore.KeyProfile, next); err != nil {
		return err
	}

	s.mu.Lock()
	s.current = next
	s.loaded = true
	s.mu.Unlock()

	s.notify()
	return nil
}

// Clear removes the persisted profile and resets the in-memory record.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.codec.Remove(ctx, kvstore.KeyProfile); err != nil {
		return err
	}

	s.mu.Lock()
	s.current = UserProfile{}
	s.mu.Unlock()

	s.notify()
	return nil
}

// ClearLoginArtifacts removes the separately persisted login-data marker
// without touching the in-memory profile.
func (s *Store) ClearLoginArtifacts(ctx context.Context) error {
	return s.codec.Remove(ctx, kvstore.KeyLoginData)
}

// SetCreditCards replaces the card list outright. An empty list is
// normalized to the cleared sentinel.
func (s *Store) SetCreditCards(ctx context.Context, cards []CreditCard) error {
	if len(cards) == 0 {
		cards = nil
	}
	return s.mutate(ctx, func(p *UserProfile) {
		p.CreditCards = cards
	})
}

// ClearCreditCards resets the card list.
func (s *Store) ClearCreditCards(ctx context.Context) error {
	return s.SetCreditCards(ctx, nil)
}

// SetContracts replaces the contract list outright. An empty list is
// normalized to the cleared sentinel.
func (s *Store) SetContracts(ctx context.Context, contracts []Contract) error {
	if len(contracts) == 0 {
		contracts = nil
	}
	return s.mutate(ctx, func(p *UserProfile) {
		p.Contracts = contracts
	})
}

// ClearContracts resets the contract list.
func (s *Store) ClearContracts(ctx context.Context) error {
	return s.SetContracts(ctx, nil)
}

// OnChange registers a subscriber invoked after every profile change.
func (s *Store) OnChange(fn func(UserProfile)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// mutate applies fn to a copy of the profile, persists it, then adopts it.
func (s *Store) mutate(ctx context.Context, fn func(*UserProfile)) error {
	s.mu.RLock()
	next := cloneProfile(s.current)
	s.mu.RUnlock()

	fn(&next)

	if err := s.codec.Set(ctx, kvstore.KeyProfile, next); err != nil {
		return err
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()

	s.notify()
	return nil
}

func (s *Store) notify() {
	s.mu.RLock()
	subs := make([]func(UserProfile), len(s.subs))
	copy(subs, s.subs)
	current := cloneProfile(s.current)
	s.mu.RUnlock()

	for _, fn := range subs {
		fn(current)
	}
}

func cloneProfile(in UserProfile) UserProfile {
	if in.CreditCards != nil {
		in.CreditCards = append([]CreditCard(nil), in.CreditCards...)
	}
	if in.Contracts != nil {
		in.Contracts = append([]Contract(nil), in.Contracts...)
	}
	if in.Signature.Delinquencies != nil {
		in.Signature.Delinquencies = append([]Delinquency(nil), in.Signature.Delinquencies...)
	}
	return in
}
