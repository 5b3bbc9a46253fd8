package loader

import (
	"io"

	"github.com/Carmen-Shannon/oxy-anim/engine/model"

	"github.com/sirupsen/logrus"
)

// gltfLoaderBackendImpl is the implementation of gltfLoaderBackend.
type gltfLoaderBackendImpl struct {
	importer gltfImporter
}

// gltfLoaderBackend is a loaderBackend implementation for glTF/GLB files.
// It delegates to the gltfImporter for decoding and extraction.
type gltfLoaderBackend interface {
	loaderBackend
}

var _ gltfLoaderBackend = &gltfLoaderBackendImpl{}

// newGLTFLoaderBackend creates a new glTF loader backend.
//
// Parameters:
//   - normalize: maps joint node names to binding table keys
//   - logger: receives extraction warnings
//
// Returns:
//   - gltfLoaderBackend: the loader backend for glTF/GLB files
func newGLTFLoaderBackend(normalize func(string) string, logger logrus.FieldLogger) gltfLoaderBackend {
	return &gltfLoaderBackendImpl{
		importer: newGLTFImporter(normalize, logger),
	}
}

func (b *gltfLoaderBackendImpl) Import(path string) (*model.SourceScene, *model.MeshBindings, error) {
	return b.importer.Import(path)
}

func (b *gltfLoaderBackendImpl) ImportReader(r io.Reader) (*model.SourceScene, *model.MeshBindings, error) {
	return b.importer.ImportReader(r)
}
