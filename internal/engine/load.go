package engine

import (
	"errors"
	"fmt"

	"github.com/crimson-sun/reviewclf/internal/engine/classifier"
	"github.com/crimson-sun/reviewclf/internal/engine/scorer"
	"github.com/crimson-sun/reviewclf/internal/engine/tokenizer"
)

// ErrArtifact wraps every failure to load or reconcile model artifacts.
var ErrArtifact = errors.New("cannot load model artifacts")

// Artifacts locates the files an Engine is loaded from. When ONNXModel is
// set it replaces Model as the scorer.
type Artifacts struct {
	Model       string
	Tokenizer   string
	ONNXModel   string
	ONNXLibrary string // empty: libonnxruntime.so next to ONNXModel
}

// Load reads the tokenizer, then the scorer it must agree with.
func Load(a Artifacts) (*Engine, error) {
	tok, err := tokenizer.Load(a.Tokenizer)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArtifact, err)
	}
	c := tok.Contract()

	var sc scorer.Scorer
	if a.ONNXModel != "" {
		sc, err = scorer.NewONNX(a.ONNXModel, a.ONNXLibrary, c)
	} else {
		sc, err = scorer.LoadNative(a.Model, c)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArtifact, err)
	}

	eng, err := New(tok, sc, classifier.New(c.NumClasses))
	if err != nil {
		sc.Close()
		return nil, fmt.Errorf("%w: %w", ErrArtifact, err)
	}
	return eng, nil
}
