package engine

import (
	"fmt"

	"github.com/crimson-sun/reviewclf/internal/config"
	"github.com/crimson-sun/reviewclf/internal/engine/classifier"
	"github.com/crimson-sun/reviewclf/internal/engine/scorer"
	"github.com/crimson-sun/reviewclf/internal/engine/tokenizer"
	"github.com/crimson-sun/reviewclf/internal/model"
)

// Engine orchestrates the encode → score → classify pipeline.
type Engine struct {
	tokenizer  *tokenizer.Tokenizer
	scorer     scorer.Scorer
	classifier *classifier.Classifier
}

// New creates an Engine with the provided components. The classifier must
// expect as many classes as the tokenizer's contract declares.
func New(tok *tokenizer.Tokenizer, sc scorer.Scorer, cls *classifier.Classifier) (*Engine, error) {
	if cls.NumClasses != tok.Contract().NumClasses {
		return nil, fmt.Errorf("engine: classifier expects %d classes, contract has %d", cls.NumClasses, tok.Contract().NumClasses)
	}
	return &Engine{
		tokenizer:  tok,
		scorer:     sc,
		classifier: cls,
	}, nil
}

// Contract returns the contract the engine encodes with.
func (e *Engine) Contract() config.Contract {
	return e.tokenizer.Contract()
}

// Vocabulary returns the number of indexed words, OOV token included.
func (e *Engine) Vocabulary() int {
	return e.tokenizer.Len()
}

// Scorer returns the scoring backend.
func (e *Engine) Scorer() scorer.Scorer {
	return e.scorer
}

// Encode turns texts into fixed-length id sequences.
func (e *Engine) Encode(texts []string) [][]int64 {
	return e.tokenizer.EncodeBatch(texts)
}

// Process scores a single review text. Text that encodes to nothing is
// scored as an all-padding sequence.
func (e *Engine) Process(text string) (model.Prediction, error) {
	probs, err := e.scorer.Score(e.tokenizer.Encode(text))
	if err != nil {
		return model.Prediction{}, fmt.Errorf("engine: score: %w", err)
	}
	p, err := e.classifier.Classify(probs)
	if err != nil {
		return model.Prediction{}, err
	}
	p.Text = text
	return p, nil
}

// ProcessBatch scores texts with one scorer call.
func (e *Engine) ProcessBatch(texts []string) ([]model.Prediction, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	probs, err := e.scorer.ScoreBatch(e.tokenizer.EncodeBatch(texts))
	if err != nil {
		return nil, fmt.Errorf("engine: score: %w", err)
	}
	preds := make([]model.Prediction, 0, len(texts))
	for i, row := range probs {
		p, err := e.classifier.Classify(row)
		if err != nil {
			return nil, err
		}
		p.Text = texts[i]
		preds = append(preds, p)
	}
	return preds, nil
}

// Close releases the scorer.
func (e *Engine) Close() error {
	return e.scorer.Close()
}
