// Package glb decodes binary glTF containers and loads meshes from their scene graph.
package glb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/rs/zerolog/log"
	"github.com/samber/oops"
)

const (
	headerSize = 12
	magic      = 0x46546C67 // "glTF"
	version    = 2
)

var (
	ErrDecode             = errors.New("glb: container decode failure")
	ErrMalformedHeader    = fmt.Errorf("%w: malformed header", ErrDecode)
	ErrTruncated          = fmt.Errorf("%w: truncated container", ErrDecode)
	ErrUnsupportedVersion = fmt.Errorf("%w: unsupported container version", ErrDecode)
)

// Parse validates the GLB header and decodes the embedded glTF document.
func Parse(data []byte) (*Scene, error) {
	if err := checkHeader(data); err != nil {
		log.Error().Err(err).Int("bytes", len(data)).Msg("glb: rejected container header")
		return nil, err
	}

	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		log.Error().Err(err).Int("bytes", len(data)).Msg("glb: failed to decode container")
		return nil, oops.With("bytes", len(data)).Wrap(fmt.Errorf("%w: %w", ErrDecode, err))
	}
	log.Debug().Int("nodes", len(doc.Nodes)).Int("meshes", len(doc.Meshes)).Int("skins", len(doc.Skins)).Msg("glb: container decoded")
	return &Scene{doc: doc}, nil
}

func checkHeader(data []byte) error {
	if len(data) < headerSize {
		return oops.With("bytes", len(data)).Wrap(ErrTruncated)
	}
	if binary.LittleEndian.Uint32(data[0:4]) != magic {
		return ErrMalformedHeader
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != version {
		return oops.With("version", v).Wrap(ErrUnsupportedVersion)
	}
	declared := binary.LittleEndian.Uint32(data[8:12])
	if declared < headerSize {
		return oops.With("length", declared).Wrap(ErrMalformedHeader)
	}
	if uint64(declared) > uint64(len(data)) {
		return oops.With("length", declared).With("bytes", len(data)).Wrap(ErrTruncated)
	}
	return nil
}

var (
	errMissingPositions = errors.New("glb: primitive has no readable POSITION accessor")
	errMissingIndices   = errors.New("glb: primitive index accessor out of range")
)
