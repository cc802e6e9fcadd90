// Package gltfout writes decoded meshes as glTF 2.0 documents.
package gltfout

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"sml-renderer/internal/mesh"
)

// Write saves the mesh as a single-primitive glTF document. The triangle soup
// is re-indexed first: corners sharing the exact same position collapse into
// one vertex. A .glb extension selects the binary container.
func Write(m *mesh.Mesh, name, path string) error {
	if m.TriangleCount() == 0 {
		return fmt.Errorf("gltfout: refusing to write empty mesh to %s", path)
	}

	lookup := make(map[[3]float32]uint32)
	var positions [][3]float32
	indices := make([]uint32, 0, 3*len(m.Triangles))
	for _, t := range m.Triangles {
		for _, v := range [3]mgl64.Vec3{t.V1, t.V2, t.V3} {
			k := [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
			idx, ok := lookup[k]
			if !ok {
				idx = uint32(len(positions))
				positions = append(positions, k)
				lookup[k] = idx
			}
			indices = append(indices, idx)
		}
	}

	doc := gltf.NewDocument()
	posAcc := modeler.WritePosition(doc, positions)
	idxAcc := modeler.WriteIndices(doc, indices)
	doc.Meshes = []*gltf.Mesh{{
		Name: name,
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(idxAcc),
			Attributes: map[string]uint32{gltf.POSITION: posAcc},
		}},
	}}
	doc.Nodes = []*gltf.Node{{Name: name, Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)

	var err error
	if strings.EqualFold(filepath.Ext(path), ".glb") {
		err = gltf.SaveBinary(doc, path)
	} else {
		// Text glTF has no binary chunk, so the buffer must carry a data URI.
		doc.Buffers[0].EmbeddedResource()
		err = gltf.Save(doc, path)
	}
	if err != nil {
		return fmt.Errorf("gltfout: save %s: %w", path, err)
	}
	return nil
}
