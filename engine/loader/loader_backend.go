package loader

import (
	"io"

	"github.com/Carmen-Shannon/oxy-anim/engine/model"
)

// loaderBackend defines the generic interface for importing animation sources from files or streams.
// Concrete implementations (e.g., gltfLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Import reads the node hierarchy, animations and first skin from the given file path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *model.SourceScene: the imported scene
	//   - *model.MeshBindings: the bindings of the first skin, empty if there is none
	//   - error: error if importing fails
	Import(path string) (*model.SourceScene, *model.MeshBindings, error)

	// ImportReader reads a source from a stream.
	//
	// Parameters:
	//   - r: the reader providing source data
	//
	// Returns:
	//   - *model.SourceScene: the imported scene
	//   - *model.MeshBindings: the bindings of the first skin, empty if there is none
	//   - error: error if importing fails
	ImportReader(r io.Reader) (*model.SourceScene, *model.MeshBindings, error)
}
