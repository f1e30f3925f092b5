// Package glbtest builds small GLB containers for tests.
package glbtest

import (
	"bytes"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// Builder assembles a glTF document node by node. Node indices follow call order.
type Builder struct {
	doc *gltf.Document
}

func New() *Builder {
	return &Builder{doc: gltf.NewDocument()}
}

// Mesh adds a one-triangle mesh and returns its mesh index.
func (b *Builder) Mesh(name string) int {
	pos := modeler.WritePosition(b.doc, [][3]float32{{0, 0, 0}, {0, 1, 0}, {1, 0, 0}})
	idx := modeler.WriteIndices(b.doc, []uint16{0, 1, 2})
	b.doc.Meshes = append(b.doc.Meshes, &gltf.Mesh{
		Name: name,
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(idx),
			Attributes: map[string]int{"POSITION": pos},
		}},
	})
	return len(b.doc.Meshes) - 1
}

// Node adds a plain node and returns its index.
func (b *Builder) Node(name string, children ...int) int {
	b.doc.Nodes = append(b.doc.Nodes, &gltf.Node{Name: name, Children: children})
	return len(b.doc.Nodes) - 1
}

// Skin adds a skin over joints and returns its index.
func (b *Builder) Skin(name string, joints ...int) int {
	b.doc.Skins = append(b.doc.Skins, &gltf.Skin{Name: name, Joints: joints})
	return len(b.doc.Skins) - 1
}

// MeshNode adds a node referencing mesh, skinned when skin is non-nil.
func (b *Builder) MeshNode(name string, mesh int, skin *int) int {
	b.doc.Nodes = append(b.doc.Nodes, &gltf.Node{Name: name, Mesh: gltf.Index(mesh), Skin: skin})
	return len(b.doc.Nodes) - 1
}

// SkinnedNode adds a skinned mesh node with a two-joint rig and returns the mesh node index.
// The joints are appended after it.
func (b *Builder) SkinnedNode(name string) int {
	mesh := b.Mesh(name)
	node := b.MeshNode(name, mesh, nil)
	child := b.Node(name + "_spine")
	root := b.Node(name+"_hips", child)
	skin := b.Skin(name+"_rig", root, child)
	b.doc.Nodes[node].Skin = gltf.Index(skin)
	return node
}

// Pad appends empty nodes until the document holds n nodes.
func (b *Builder) Pad(n int) {
	for len(b.doc.Nodes) < n {
		b.Node("")
	}
}

func (b *Builder) Document() *gltf.Document { return b.doc }

// Bytes encodes the document as a binary container.
func (b *Builder) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	enc := gltf.NewEncoder(&buf)
	enc.AsBinary = true
	if err := enc.Encode(b.doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (b *Builder) MustBytes(tb testing.TB) []byte {
	tb.Helper()
	data, err := b.Bytes()
	if err != nil {
		tb.Fatalf("encode glb: %#v", err)
	}
	return data
}

// Corrupt returns a copy of a container whose JSON chunk no longer parses.
func Corrupt(data []byte) []byte {
	out := append([]byte(nil), data...)
	for i := 20; i < len(out) && i < 28; i++ {
		out[i] = '@'
	}
	return out
}
