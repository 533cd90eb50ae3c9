package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cartaomais/appcore/internal/logging"
)

// envelopeVersion tags every persisted blob so future schema changes can
// migrate or discard old data safely.
const envelopeVersion = 1

type envelope struct {
	Version int             `json:"v"`
	Data    json.RawMessage `json:"data"`
}

// Codec wraps a Store with JSON encoding and the version envelope. Decode
// failures and unknown versions are logged and reported as absent data, so
// a corrupt blob can never crash a caller.
type Codec struct {
	store Store
	log   *logging.Logger
}

// NewCodec creates a codec over the given backend.
func NewCodec(store Store, log *logging.Logger) *Codec {
	if log == nil {
		log = logging.NewDefault("kvstore")
	}
	return &Codec{store: store, log: log}
}

// Get decodes the value at key into target. It returns false when the key
// is absent, the blob is corrupt, or its version is unknown.
func (c *Codec) Get(ctx context.Context, key string, target any) (bool, error) {
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		c.log.WithError(err).WithField("key", key).Warn("kv read failed, treating as absent")
		return false, nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("corrupt kv blob, treating as absent")
		return false, nil
	}
	if env.Version != envelopeVersion {
		c.log.WithField("key", key).WithField("version", env.Version).Warn("unknown kv blob version, treating as absent")
		return false, nil
	}

	if err := json.Unmarshal(env.Data, target); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("undecodable kv payload, treating as absent")
		return false, nil
	}
	return true, nil
}

// Set encodes value under key inside the version envelope.
func (c *Codec) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	raw, err := json.Marshal(envelope{Version: envelopeVersion, Data: data})
	if err != nil {
		return fmt.Errorf("encode envelope for %s: %w", key, err)
	}
	return c.store.Set(ctx, key, raw)
}

// Remove deletes the value at key. Removing an absent key is not an error.
func (c *Codec) Remove(ctx context.Context, key string) error {
	return c.store.Remove(ctx, key)
}
