package classifier

import (
	"fmt"

	"github.com/crimson-sun/reviewclf/internal/engine/network"
	"github.com/crimson-sun/reviewclf/internal/model"
	"github.com/crimson-sun/reviewclf/internal/sentiment"
)

// Classifier turns class probabilities into a rating and a sentiment.
type Classifier struct {
	NumClasses int
}

// New creates a Classifier expecting numClasses probabilities per text.
func New(numClasses int) *Classifier {
	return &Classifier{NumClasses: numClasses}
}

// Classify picks the most probable class; the first maximum wins on ties.
// The rating is the class shifted back to the 1-based scale.
func (c *Classifier) Classify(probs []float64) (model.Prediction, error) {
	if len(probs) != c.NumClasses {
		return model.Prediction{}, fmt.Errorf("classifier: got %d probabilities, want %d", len(probs), c.NumClasses)
	}
	class := network.Argmax(probs)
	rating := model.RatingFromClass(class)
	return model.Prediction{
		Rating:    rating,
		Sentiment: sentiment.FromRating(rating),
		Class:     class,
		Probs:     probs,
	}, nil
}
