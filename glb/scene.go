package glb

import (
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/rs/zerolog/log"
)

// Scene is a decoded container. It belongs to a single provisioning attempt and
// must be closed once meshes have been extracted.
type Scene struct {
	doc *gltf.Document
}

func (s *Scene) NodeCount() int {
	if s.doc == nil {
		return 0
	}
	return len(s.doc.Nodes)
}

// Close releases the decoded document. Loaders return nothing afterwards.
func (s *Scene) Close() {
	s.doc = nil
}

// LoadSkeletalMesh loads the mesh of node when that node is skinned.
func (s *Scene) LoadSkeletalMesh(node int) (*Mesh, bool) {
	if s.doc == nil || node < 0 || node >= len(s.doc.Nodes) {
		return nil, false
	}
	n := s.doc.Nodes[node]
	if n == nil || n.Mesh == nil || n.Skin == nil {
		return nil, false
	}
	if *n.Skin < 0 || *n.Skin >= len(s.doc.Skins) {
		log.Debug().Int("node", node).Int("skin", *n.Skin).Msg("glb: node references a missing skin")
		return nil, false
	}
	m, ok := s.loadMesh(*n.Mesh)
	if !ok {
		return nil, false
	}
	m.Node = node
	if m.Name == "" {
		m.Name = n.Name
	}
	m.Bones = s.bones(s.doc.Skins[*n.Skin])
	if len(m.Bones) == 0 {
		return nil, false
	}
	return m, true
}

// LoadStaticMesh loads mesh index without any skeleton.
func (s *Scene) LoadStaticMesh(index int) (*Mesh, bool) {
	if s.doc == nil {
		return nil, false
	}
	return s.loadMesh(index)
}

func (s *Scene) loadMesh(index int) (*Mesh, bool) {
	if index < 0 || index >= len(s.doc.Meshes) || s.doc.Meshes[index] == nil {
		return nil, false
	}
	src := s.doc.Meshes[index]
	m := &Mesh{Name: src.Name, Node: -1, MeshIndex: index}
	for i, p := range src.Primitives {
		if p == nil {
			log.Debug().Int("mesh", index).Int("primitive", i).Msg("glb: null primitive")
			return nil, false
		}
		prim, err := s.readPrimitive(p)
		if err != nil {
			log.Debug().Err(err).Int("mesh", index).Int("primitive", i).Msg("glb: unreadable primitive")
			return nil, false
		}
		m.Primitives = append(m.Primitives, prim)
	}
	if len(m.Primitives) == 0 {
		return nil, false
	}
	return m, true
}

func (s *Scene) readPrimitive(p *gltf.Primitive) (Primitive, error) {
	var out Primitive
	pos, ok := p.Attributes["POSITION"]
	if !ok || pos < 0 || pos >= len(s.doc.Accessors) || s.doc.Accessors[pos] == nil {
		return out, errMissingPositions
	}
	positions, err := modeler.ReadPosition(s.doc, s.doc.Accessors[pos], nil)
	if err != nil {
		return out, err
	}
	out.Positions = positions
	if p.Indices != nil {
		if *p.Indices < 0 || *p.Indices >= len(s.doc.Accessors) || s.doc.Accessors[*p.Indices] == nil {
			return out, errMissingIndices
		}
		indices, err := modeler.ReadIndices(s.doc, s.doc.Accessors[*p.Indices], nil)
		if err != nil {
			return out, err
		}
		out.Indices = indices
	}
	return out, nil
}

// bones flattens the skin joints, resolving parents through the node hierarchy.
func (s *Scene) bones(skin *gltf.Skin) []Bone {
	if skin == nil {
		return nil
	}
	slot := make(map[int]int, len(skin.Joints))
	bones := make([]Bone, 0, len(skin.Joints))
	for _, j := range skin.Joints {
		if j < 0 || j >= len(s.doc.Nodes) || s.doc.Nodes[j] == nil {
			continue
		}
		slot[j] = len(bones)
		bones = append(bones, Bone{Name: s.doc.Nodes[j].Name, Node: j, Parent: -1})
	}
	for parentNode, n := range s.doc.Nodes {
		p, ok := slot[parentNode]
		if !ok || n == nil {
			continue
		}
		for _, child := range n.Children {
			if c, ok := slot[child]; ok {
				bones[c].Parent = p
			}
		}
	}
	return bones
}
