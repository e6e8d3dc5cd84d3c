// Package sentiment maps a 1..5 star rating to a 3-way sentiment label.
// It is the only place the thresholds live; inference and evaluation both
// call FromRating.
package sentiment

import "fmt"

// Label is a 3-way sentiment.
type Label int

const (
	Negative Label = iota
	Neutral
	Positive
)

// Labels lists every label in ascending order.
var Labels = []Label{Negative, Neutral, Positive}

// FromRating applies the ordered thresholds: <=2 negative, ==3 neutral,
// otherwise positive.
func FromRating(rating int) Label {
	switch {
	case rating <= 2:
		return Negative
	case rating == 3:
		return Neutral
	default:
		return Positive
	}
}

func (l Label) String() string {
	switch l {
	case Negative:
		return "negative"
	case Neutral:
		return "neutral"
	case Positive:
		return "positive"
	}
	return fmt.Sprintf("Label(%d)", int(l))
}

// Korean returns the label as rendered by the course portal.
func (l Label) Korean() string {
	switch l {
	case Negative:
		return "부정"
	case Neutral:
		return "중립"
	case Positive:
		return "긍정"
	}
	return l.String()
}

// Parse accepts either the English or the Korean rendering.
func Parse(s string) (Label, error) {
	for _, l := range Labels {
		if s == l.String() || s == l.Korean() {
			return l, nil
		}
	}
	return 0, fmt.Errorf("sentiment: unknown label %q", s)
}

func (l Label) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Label) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
