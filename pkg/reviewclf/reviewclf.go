package reviewclf

import (
	"fmt"

	"github.com/crimson-sun/reviewclf/internal/engine"
	"github.com/crimson-sun/reviewclf/internal/logging"
	"github.com/crimson-sun/reviewclf/internal/model"
)

// ErrArtifact is wrapped by every error New returns for a missing,
// unreadable or mutually inconsistent model artifact.
var ErrArtifact = engine.ErrArtifact

// Classifier rates lecture reviews. Safe for concurrent use.
type Classifier struct {
	engine   *engine.Engine
	contract Contract
}

// New loads the tokenizer and the model once. There is no degraded mode:
// any artifact problem is returned as an error wrapping ErrArtifact.
func New(opts ...Option) (*Classifier, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = logging.Discard()
	}

	modelPath, tokPath := resolvePaths(o)
	eng, err := engine.Load(engine.Artifacts{
		Model:       modelPath,
		Tokenizer:   tokPath,
		ONNXModel:   o.onnxPath,
		ONNXLibrary: o.onnxLibPath,
	})
	if err != nil {
		return nil, fmt.Errorf("reviewclf: %w", err)
	}
	if o.onnxPath != "" {
		modelPath = o.onnxPath
	}
	logger.Info("classifier loaded", "model", modelPath, "tokenizer", tokPath, "vocabulary", eng.Vocabulary())

	c := eng.Contract()
	return &Classifier{
		engine: eng,
		contract: Contract{
			VocabSize:  c.VocabSize,
			MaxLen:     c.MaxLen,
			NumClasses: c.NumClasses,
			OOVToken:   c.OOVToken,
		},
	}, nil
}

// Predict rates a single review. Empty or unrecognizable text is not an
// error; it is scored as an all-padding sequence.
func (c *Classifier) Predict(text string) (Prediction, error) {
	p, err := c.engine.Process(text)
	if err != nil {
		return Prediction{}, err
	}
	return predictionFromModel(p), nil
}

// PredictBatch rates several reviews in a single batched inference call.
// More efficient than calling Predict in a loop.
func (c *Classifier) PredictBatch(texts []string) ([]Prediction, error) {
	ps, err := c.engine.ProcessBatch(texts)
	if err != nil {
		return nil, err
	}
	out := make([]Prediction, len(ps))
	for i, p := range ps {
		out[i] = predictionFromModel(p)
	}
	return out, nil
}

// Contract returns the encoding parameters the model was trained with.
func (c *Classifier) Contract() Contract {
	return c.contract
}

// Close releases model resources. Must be called when the Classifier is no
// longer needed.
func (c *Classifier) Close() error {
	return c.engine.Close()
}

func predictionFromModel(p model.Prediction) Prediction {
	return Prediction{
		Text:      p.Text,
		Rating:    p.Rating,
		Sentiment: Sentiment(p.Sentiment.String()),
		Probs:     p.Probs,
	}
}
