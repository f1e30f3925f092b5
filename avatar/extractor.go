package avatar

import (
	"avatar-provisioner/glb"

	"github.com/rs/zerolog/log"
)

// DefaultScanLimit is how many node indices are probed for skeletal meshes. It bounds the
// scan only; containers with skinned nodes past the limit are not fully extracted.
const DefaultScanLimit = 20

// MeshSource is the node-indexed view of a decoded container.
type MeshSource interface {
	LoadSkeletalMesh(node int) (*glb.Mesh, bool)
	LoadStaticMesh(index int) (*glb.Mesh, bool)
}

// Extraction is what a scan found. Static is only set when the fallback ran and succeeded.
type Extraction struct {
	Skeletal           []*glb.Mesh
	Static             *glb.Mesh
	UsedStaticFallback bool
}

// Meshes returns the meshes to attach, in scan order.
func (e Extraction) Meshes() []*glb.Mesh {
	if len(e.Skeletal) > 0 {
		return e.Skeletal
	}
	if e.Static != nil {
		return []*glb.Mesh{e.Static}
	}
	return nil
}

func (e Extraction) Empty() bool { return len(e.Meshes()) == 0 }

// Release frees every mesh in the extraction.
func (e Extraction) Release() {
	for _, m := range e.Meshes() {
		m.Release()
	}
}

type Extractor struct {
	scanLimit int
}

func NewExtractor(scanLimit int) *Extractor {
	if scanLimit <= 0 {
		scanLimit = DefaultScanLimit
	}
	return &Extractor{scanLimit: scanLimit}
}

func (x *Extractor) ScanLimit() int { return x.scanLimit }

// ExtractAll probes nodes 0..limit-1 for skeletal meshes. Nodes without one are skipped.
// When nothing skeletal turns up, mesh 0 is tried once as a static mesh.
func (x *Extractor) ExtractAll(src MeshSource) Extraction {
	var out Extraction
	for node := 0; node < x.scanLimit; node++ {
		m, ok := src.LoadSkeletalMesh(node)
		if !ok || m == nil {
			continue
		}
		out.Skeletal = append(out.Skeletal, m)
		log.Debug().Int("node", node).Str("mesh", m.Name).Int("bones", len(m.Bones)).Msg("avatar: loaded skeletal mesh")
	}
	if len(out.Skeletal) == 0 {
		out.UsedStaticFallback = true
		if m, ok := src.LoadStaticMesh(0); ok && m != nil {
			out.Static = m
			log.Info().Str("mesh", m.Name).Msg("avatar: no skeletal meshes; using static mesh 0")
		} else {
			log.Warn().Int("scanLimit", x.scanLimit).Msg("avatar: container yielded no meshes")
		}
	}
	log.Info().Int("skeletal", len(out.Skeletal)).Bool("staticFallback", out.UsedStaticFallback).Msg("avatar: extraction finished")
	return out
}
