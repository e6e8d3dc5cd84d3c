package reviewclf

import "github.com/crimson-sun/reviewclf/internal/sentiment"

// Sentiment is the 3-way label derived from a rating.
type Sentiment string

const (
	Negative Sentiment = "negative" // rating 1 or 2
	Neutral  Sentiment = "neutral"  // rating 3
	Positive Sentiment = "positive" // rating 4 or 5
)

// Korean returns 부정, 중립 or 긍정.
func (s Sentiment) Korean() string {
	l, err := sentiment.Parse(string(s))
	if err != nil {
		return string(s)
	}
	return l.Korean()
}

// SentimentOf applies the rating thresholds used for every prediction.
func SentimentOf(rating int) Sentiment {
	return Sentiment(sentiment.FromRating(rating).String())
}

// Prediction is the scored form of one review.
// This is the stable public type; internal representations may evolve
// independently without breaking consumers.
type Prediction struct {
	Text      string    `json:"text,omitempty"`
	Rating    int       `json:"rating"`    // 1..5
	Sentiment Sentiment `json:"sentiment"` // derived from Rating
	Probs     []float64 `json:"probs"`     // Probs[i] is the probability of rating i+1
}

// Confidence is the probability of the predicted rating.
func (p Prediction) Confidence() float64 {
	if p.Rating < 1 || p.Rating > len(p.Probs) {
		return 0
	}
	return p.Probs[p.Rating-1]
}

// Contract describes how texts are encoded for the loaded model.
type Contract struct {
	VocabSize  int    // ids are always below VocabSize
	MaxLen     int    // every text becomes exactly MaxLen ids
	NumClasses int    // one probability per rating
	OOVToken   string // stands for words outside the vocabulary
}
