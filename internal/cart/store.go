package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cartaomais/appcore/internal/apperrors"
	"github.com/cartaomais/appcore/internal/kvstore"
	"github.com/cartaomais/appcore/internal/logging"
	"github.com/cartaomais/appcore/internal/metrics"
	"github.com/cartaomais/appcore/pkg/money"
)

// Store is the shopping cart store. Mutations persist first and adopt the
// new state in memory only after the write succeeds, so persisted and
// in-memory state never diverge — including on Clear.
type Store struct {
	mu      sync.RWMutex
	current Cart
	loaded  bool

	codec *kvstore.Codec
	log   *logging.Logger
	now   func() time.Time
}

// NewStore creates an empty cart store.
func NewStore(codec *kvstore.Codec, log *logging.Logger) *Store {
	if log == nil {
		log = logging.NewDefault("cart")
	}
	return &Store{codec: codec, log: log, now: time.Now}
}

// Load reads the persisted cart and marks the store ready. Dependents must
// not read cart state before Ready reports true.
func (s *Store) Load(ctx context.Context) error {
	var persisted Cart
	found, err := s.codec.Get(ctx, kvstore.KeyCart, &persisted)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if found {
		// Totals are recomputed on load in case the persisted blob
		// predates a price-precision fix.
		persisted.TotalCents = totalOf(persisted.Items)
		s.current = persisted
	}
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Ready reports whether the initial load completed.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Current returns a snapshot of the cart.
func (s *Store) Current() Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneCart(s.current)
}

// AddItem appends an item, assigning it a synthetic id, and recomputes the
// total over every item.
func (s *Store) AddItem(ctx context.Context, item CartItem) (CartItem, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	err := s.mutate(ctx, func(c *Cart) error {
		c.Items = append(c.Items, item)
		return nil
	})
	if err != nil {
		return CartItem{}, err
	}

	metrics.RecordCartOperation("add")
	return item, nil
}

// RemoveItem removes the item with the given synthetic id. Exactly one
// item is removed even when items look identical. The existence check runs
// inside the mutation, so of two concurrent removals of the same id only
// one can succeed.
func (s *Store) RemoveItem(ctx context.Context, id string) error {
	err := s.mutate(ctx, func(c *Cart) error {
		removed := false
		kept := c.Items[:0]
		for _, item := range c.Items {
			if !removed && item.ID == id {
				removed = true
				continue
			}
			kept = append(kept, item)
		}
		if !removed {
			return apperrors.NotFound("cart item not found").WithDetails("id", id)
		}
		c.Items = kept
		return nil
	})
	if err != nil {
		return err
	}

	metrics.RecordCartOperation("remove")
	return nil
}

// RemoveItemAt removes the item at the given positional index.
//
// Deprecated: positional removal is hazardous under concurrent mutation;
// use RemoveItem with the item id.
func (s *Store) RemoveItemAt(ctx context.Context, index int) error {
	err := s.mutate(ctx, func(c *Cart) error {
		if index < 0 || index >= len(c.Items) {
			return apperrors.NotFound("cart index out of range").WithDetails("index", index)
		}
		c.Items = append(c.Items[:index], c.Items[index+1:]...)
		return nil
	})
	if err != nil {
		return err
	}

	metrics.RecordCartOperation("remove")
	return nil
}

// Clear persists an empty cart and then adopts it in memory, atomically
// from the caller's point of view.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.RLock()
	owner := s.current.OwnerID
	s.mu.RUnlock()

	empty := Cart{OwnerID: owner, UpdatedAt: s.now().UTC()}
	if err := s.codec.Set(ctx, kvstore.KeyCart, empty); err != nil {
		return err
	}

	s.mu.Lock()
	s.current = empty
	s.mu.Unlock()

	metrics.RecordCartOperation("clear")
	return nil
}

// StampOwner sets the cart's owner id once the profile becomes available.
// Existing items are never discarded by an owner change.
func (s *Store) StampOwner(ctx context.Context, ownerID string) error {
	err := s.mutate(ctx, func(c *Cart) error {
		if c.OwnerID == ownerID {
			return errNoChange
		}
		c.OwnerID = ownerID
		return nil
	})
	if err == errNoChange {
		return nil
	}
	return err
}

// TotalCents returns the current running total.
func (s *Store) TotalCents() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.TotalCents
}

// errNoChange aborts a mutation that would persist an identical cart.
var errNoChange = errors.New("cart unchanged")

// mutate copies the cart, applies fn, recomputes the total, stamps the
// update time, persists, then adopts. The lock is held for the whole
// operation so mutations serialize: fn sees the state its outcome is
// judged against, and an error from fn aborts without persisting.
func (s *Store) mutate(ctx context.Context, fn func(*Cart) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneCart(s.current)
	if err := fn(&next); err != nil {
		return err
	}
	next.TotalCents = totalOf(next.Items)
	next.UpdatedAt = s.now().UTC()

	if err := s.codec.Set(ctx, kvstore.KeyCart, next); err != nil {
		return err
	}

	s.current = next
	return nil
}

// totalOf sums the precision-normalized price of every item.
func totalOf(items []CartItem) int64 {
	var total int64
	for _, item := range items {
		total += money.ToCents(item.Price)
	}
	return total
}

func cloneCart(in Cart) Cart {
	if in.Items != nil {
		in.Items = append([]CartItem(nil), in.Items...)
	}
	return in
}
