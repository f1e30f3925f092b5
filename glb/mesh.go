package glb

// Bone is one joint of a skin. Parent indexes Mesh.Bones, -1 for roots.
type Bone struct {
	Name   string
	Node   int
	Parent int
}

// Primitive holds the geometry of one draw call.
type Primitive struct {
	Positions [][3]float32
	Indices   []uint32
}

// Mesh is geometry loaded from a container. It is skeletal when it carries bones.
type Mesh struct {
	Name       string
	Node       int // -1 when loaded by mesh index
	MeshIndex  int
	Primitives []Primitive
	Bones      []Bone

	released bool
}

func (m *Mesh) Skeletal() bool { return len(m.Bones) > 0 }

func (m *Mesh) VertexCount() int {
	n := 0
	for _, p := range m.Primitives {
		n += len(p.Positions)
	}
	return n
}

// Release drops the geometry. A released mesh must not be attached again.
func (m *Mesh) Release() {
	m.Primitives = nil
	m.Bones = nil
	m.released = true
}

func (m *Mesh) Released() bool { return m.released }
