package avatar

import (
	"context"
	"errors"
	"sync"

	"avatar-provisioner/glb"
	"avatar-provisioner/metrics"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
	"github.com/samber/oops"
)

// authoringYaw turns content exported facing the camera around to face forward.
const authoringYaw = 180

// Despawner is implemented by spawners that track their entities.
type Despawner interface {
	Despawn(id ulid.ULID) bool
}

// Assembler owns one target entity and the mesh set attached to it.
// All mutation of that set goes through its lock.
type Assembler struct {
	mu      sync.Mutex
	spawner Spawner
	entity  *Entity
}

func NewAssembler(spawner Spawner) *Assembler {
	return &Assembler{spawner: spawner}
}

// Assemble spawns the target entity on first use, or moves the existing one, then replaces
// its mesh set with meshes. Spawn failures are returned as ErrSpawn and not retried.
func (a *Assembler) Assemble(ctx context.Context, meshes []*glb.Mesh, at Transform) (*Entity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.entity == nil {
		e, err := a.spawner.Spawn(ctx, at)
		if err != nil {
			log.Error().Err(err).Msg("avatar: failed to spawn entity")
			if !errors.Is(err, ErrSpawn) {
				err = errors.Join(ErrSpawn, err)
			}
			return nil, oops.With("location", at.Location.String()).Wrap(err)
		}
		if e == nil {
			return nil, oops.With("location", at.Location.String()).Wrap(ErrSpawn)
		}
		a.entity = e
	} else {
		a.entity.Transform = at
	}
	e := a.entity

	if n := e.detachAll(); n > 0 {
		log.Debug().Int("removed", n).Str("entityId", e.ID.String()).Msg("avatar: cleared previous meshes")
	}
	e.Root.Rotation = Rotator{Yaw: authoringYaw}

	for i, m := range meshes {
		if m == nil || m.Released() {
			continue
		}
		e.attach(m)
		log.Debug().Int("index", i).Str("mesh", m.Name).Msg("avatar: attached mesh")
	}
	e.placeholderVisible = e.hasPlaceholder && len(e.components) == 0

	metrics.MeshesAttached.Set(float64(len(e.components)))
	log.Info().Str("entityId", e.ID.String()).Int("meshes", len(e.components)).Msg("avatar: total meshes attached")
	return e, nil
}

// Entity returns the owned entity, nil before the first successful assembly.
func (a *Assembler) Entity() *Entity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.entity
}

// Teardown destroys the attached meshes and gives the entity back to its spawner.
func (a *Assembler) Teardown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.entity == nil {
		return
	}
	a.entity.detachAll()
	if d, ok := a.spawner.(Despawner); ok {
		d.Despawn(a.entity.ID)
	}
	a.entity = nil
}
