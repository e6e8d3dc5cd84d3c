package model

import "github.com/crimson-sun/reviewclf/internal/sentiment"

// Prediction is the scored form of one review text.
type Prediction struct {
	Text      string          `json:"text,omitempty"`
	Rating    int             `json:"rating"`    // 1..5
	Sentiment sentiment.Label `json:"sentiment"` // derived from Rating
	Class     int             `json:"-"`
	Probs     []float64       `json:"probs"` // index i is the probability of rating i+1
}

// Confidence is the probability mass on the predicted class.
func (p Prediction) Confidence() float64 {
	if p.Class < 0 || p.Class >= len(p.Probs) {
		return 0
	}
	return p.Probs[p.Class]
}
