// Package avatar turns meshes loaded from a container into a controllable entity.
package avatar

import (
	"fmt"

	"avatar-provisioner/glb"

	"github.com/oklog/ulid/v2"
)

type Vector struct {
	X, Y, Z float64
}

func (v Vector) String() string { return fmt.Sprintf("X=%.3f Y=%.3f Z=%.3f", v.X, v.Y, v.Z) }

// Rotator angles are degrees.
type Rotator struct {
	Pitch, Yaw, Roll float64
}

type Transform struct {
	Location Vector
	Rotation Rotator
}

// MeshRoot is the shared transform every attached mesh hangs from.
type MeshRoot struct {
	Rotation Rotator
}

// MeshComponent is one attached mesh. It points at the root, never at the entity.
type MeshComponent struct {
	Mesh      *glb.Mesh
	Parent    *MeshRoot
	destroyed bool
}

func (c *MeshComponent) Destroyed() bool { return c.destroyed }

func (c *MeshComponent) destroy() {
	if c.destroyed {
		return
	}
	if c.Mesh != nil {
		c.Mesh.Release()
	}
	c.Parent = nil
	c.destroyed = true
}

// Entity is the assembled avatar. It owns its mesh components exclusively.
type Entity struct {
	ID        ulid.ULID
	Transform Transform
	Root      *MeshRoot

	components         []*MeshComponent
	hasPlaceholder     bool
	placeholderVisible bool
}

func newEntity(id ulid.ULID, at Transform, placeholder bool) *Entity {
	return &Entity{
		ID:                 id,
		Transform:          at,
		Root:               &MeshRoot{},
		hasPlaceholder:     placeholder,
		placeholderVisible: placeholder,
	}
}

// Components returns the attached components in attachment order.
func (e *Entity) Components() []*MeshComponent {
	return append([]*MeshComponent(nil), e.components...)
}

func (e *Entity) MeshCount() int { return len(e.components) }

func (e *Entity) HasPlaceholder() bool { return e.hasPlaceholder }

func (e *Entity) PlaceholderVisible() bool { return e.placeholderVisible }

func (e *Entity) detachAll() int {
	n := len(e.components)
	for _, c := range e.components {
		c.destroy()
	}
	e.components = nil
	return n
}

func (e *Entity) attach(m *glb.Mesh) *MeshComponent {
	c := &MeshComponent{Mesh: m, Parent: e.Root}
	e.components = append(e.components, c)
	return c
}
