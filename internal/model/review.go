package model

import "fmt"

// MinRating and MaxRating bound the star scale.
const (
	MinRating = 1
	MaxRating = 5
)

// Review is one labeled record of the training dataset.
type Review struct {
	Text   string
	Rating int // 1..5
}

// Class returns the zero-based class index the network is trained on.
func (r Review) Class() int {
	return ClassFromRating(r.Rating)
}

// ClassFromRating shifts a 1-based rating to a 0-based class index.
func ClassFromRating(rating int) int {
	return rating - MinRating
}

// RatingFromClass undoes ClassFromRating.
func RatingFromClass(class int) int {
	return class + MinRating
}

// ValidRating reports whether r is on the star scale.
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// CheckRating returns an error for ratings off the star scale.
func CheckRating(r int) error {
	if !ValidRating(r) {
		return fmt.Errorf("rating %d outside %d..%d", r, MinRating, MaxRating)
	}
	return nil
}
