package avatar

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
	"github.com/samber/oops"
)

// ErrSpawn means the runtime could not produce an entity. It is fatal to an attempt.
var ErrSpawn = errors.New("avatar: entity spawn failed")

// Spawner creates runtime entities.
type Spawner interface {
	Spawn(ctx context.Context, at Transform) (*Entity, error)
}

// World is an in-process Spawner. Entities start with a visible placeholder mesh.
// A positive capacity bounds the number of live entities.
type World struct {
	mu       sync.Mutex
	capacity int
	entities map[ulid.ULID]*Entity
	entropy  *ulid.MonotonicEntropy
}

func NewWorld(capacity int) *World {
	return &World{
		capacity: capacity,
		entities: make(map[ulid.ULID]*Entity),
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}
}

func (w *World) Spawn(ctx context.Context, at Transform) (*Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.With("operation", "spawn").Wrap(errors.Join(ErrSpawn, err))
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.capacity > 0 && len(w.entities) >= w.capacity {
		log.Error().Int("capacity", w.capacity).Msg("avatar: world is full")
		return nil, oops.With("capacity", w.capacity).Wrap(ErrSpawn)
	}
	id, err := ulid.New(ulid.Timestamp(time.Now()), w.entropy)
	if err != nil {
		return nil, oops.With("operation", "entity id").Wrap(errors.Join(ErrSpawn, err))
	}
	e := newEntity(id, at, true)
	w.entities[id] = e
	log.Info().Str("entityId", id.String()).Str("location", at.Location.String()).Msg("avatar: entity spawned")
	return e, nil
}

// Despawn forgets the entity. Its components are torn down by whoever owns them.
func (w *World) Despawn(id ulid.ULID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.entities[id]; !ok {
		return false
	}
	delete(w.entities, id)
	log.Info().Str("entityId", id.String()).Msg("avatar: entity despawned")
	return true
}

func (w *World) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entities)
}
