package loader

import (
	"io"

	"github.com/Carmen-Shannon/oxy-anim/engine/model"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/sirupsen/logrus"
)

// gltfImporterImpl is the implementation of the gltfImporter interface.
type gltfImporterImpl struct {
	normalize func(string) string
	logger    logrus.FieldLogger
}

// gltfImporter defines the interface for orchestrating a glTF/GLB import.
// It decodes the document and runs the skeleton and animation extractors over it.
type gltfImporter interface {
	// Import opens a glTF/GLB file and extracts its node hierarchy, animations and first skin.
	//
	// Parameters:
	//   - path: the file path to the glTF or GLB file
	//
	// Returns:
	//   - *model.SourceScene: the imported scene
	//   - *model.MeshBindings: the bindings of the first skin
	//   - error: error if import fails
	Import(path string) (*model.SourceScene, *model.MeshBindings, error)

	// ImportReader decodes a glTF JSON or GLB stream. Buffers must be embedded or data URIs.
	//
	// Parameters:
	//   - r: the reader providing glTF/GLB data
	//
	// Returns:
	//   - *model.SourceScene: the imported scene
	//   - *model.MeshBindings: the bindings of the first skin
	//   - error: error if import fails
	ImportReader(r io.Reader) (*model.SourceScene, *model.MeshBindings, error)
}

var _ gltfImporter = &gltfImporterImpl{}

// newGLTFImporter creates a new glTF importer.
//
// Parameters:
//   - normalize: maps joint node names to binding table keys
//   - logger: receives extraction warnings
//
// Returns:
//   - gltfImporter: the importer
func newGLTFImporter(normalize func(string) string, logger logrus.FieldLogger) gltfImporter {
	if normalize == nil {
		normalize = func(s string) string { return s }
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &gltfImporterImpl{normalize: normalize, logger: logger}
}

func (imp *gltfImporterImpl) Import(path string) (*model.SourceScene, *model.MeshBindings, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	return imp.importDocument(doc)
}

func (imp *gltfImporterImpl) ImportReader(r io.Reader) (*model.SourceScene, *model.MeshBindings, error) {
	doc := &gltf.Document{}
	if err := gltf.NewDecoder(r).Decode(doc); err != nil {
		return nil, nil, errors.Wrap(err, "failed to parse from reader")
	}
	return imp.importDocument(doc)
}

// importDocument extracts a scene and skin bindings from a decoded document.
func (imp *gltfImporterImpl) importDocument(doc *gltf.Document) (*model.SourceScene, *model.MeshBindings, error) {
	skeletonExtractor := newGLTFSkeletonExtractor(doc, imp.normalize)
	animationExtractor := newGLTFAnimationExtractor(doc, imp.logger)

	root, err := skeletonExtractor.ExtractHierarchy()
	if err != nil {
		return nil, nil, errors.Wrap(err, "hierarchy extraction failed")
	}

	bindings := model.NewMeshBindings(nil, nil)
	if len(doc.Skins) > 0 {
		bindings, err = skeletonExtractor.ExtractBindings(0)
		if err != nil {
			return nil, nil, errors.Wrap(err, "skin extraction failed")
		}
	}

	animations, err := animationExtractor.ExtractAllAnimations()
	if err != nil {
		return nil, nil, errors.Wrap(err, "animation extraction failed")
	}

	return &model.SourceScene{
		Name:       gltfExtractSceneName(doc),
		Root:       root,
		Animations: animations,
	}, bindings, nil
}

// gltfExtractSceneName returns the name of the default scene, or "" when it has none.
func gltfExtractSceneName(doc *gltf.Document) string {
	idx := 0
	if doc.Scene != nil {
		idx = int(*doc.Scene)
	}
	if idx < len(doc.Scenes) && doc.Scenes[idx] != nil {
		return doc.Scenes[idx].Name
	}
	return ""
}
