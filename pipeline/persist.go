package pipeline

import (
	"encoding/gob"
	"fmt"
	"time"

	coremodel "github.com/YuminosukeSato/pricepredict/core/model"
	"github.com/YuminosukeSato/pricepredict/data"
	"github.com/YuminosukeSato/pricepredict/pkg/errors"
	"github.com/YuminosukeSato/pricepredict/sklearn/lightgbm"
	"github.com/YuminosukeSato/pricepredict/sklearn/linear_model"
)

const (
	// ArtifactFormat tags files written by Save.
	ArtifactFormat = "pricepredict/model"
	// ArtifactVersion is bumped when the encoded stage types change incompatibly.
	ArtifactVersion = 1
)

// Artifact is the on-disk form of a Model: gob inside an xz stream.
type Artifact struct {
	Format    string
	Version   int
	CreatedAt time.Time
	RunID     string
	Schema    data.Schema
	Stages    []Transformer
}

func init() {
	gob.Register(&ConcatTransformer{})
	gob.Register(&RegressionTransformer{})
	gob.Register(&lightgbm.FastTreeRegressor{})
	gob.Register(&linear_model.SDCARegressor{})
	gob.Register(&linear_model.OLSRegressor{})
}

// Save writes m to path. A stale file at path is replaced; on failure nothing
// is left at path.
func Save(m *Model, schema data.Schema, path string) error {
	art := Artifact{
		Format:    ArtifactFormat,
		Version:   ArtifactVersion,
		CreatedAt: time.Now().UTC(),
		RunID:     m.runID,
		Schema:    schema,
		Stages:    m.stages,
	}
	if err := coremodel.SaveModel(&art, path); err != nil {
		var perr *errors.PersistenceError
		if errors.As(err, &perr) {
			return err
		}
		return errors.NewPersistenceError(path, "cannot save model to", err)
	}
	return nil
}

// Load reads a model written by Save.
func Load(path string) (*Model, data.Schema, error) {
	var art Artifact
	if err := coremodel.LoadModel(&art, path); err != nil {
		return nil, data.Schema{}, err
	}
	if art.Format != ArtifactFormat {
		return nil, data.Schema{}, errors.NewPersistenceError(path, fmt.Sprintf("unknown artifact format %q in", art.Format), nil)
	}
	if art.Version != ArtifactVersion {
		return nil, data.Schema{}, errors.NewPersistenceError(path, fmt.Sprintf("unsupported artifact version %d in", art.Version), nil)
	}
	return &Model{stages: art.Stages, schema: art.Schema, runID: art.RunID}, art.Schema, nil
}
