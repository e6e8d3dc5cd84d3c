package sentiment

import (
	"encoding/json"
	"testing"
)

func TestFromRating(t *testing.T) {
	tests := []struct {
		rating int
		want   Label
	}{
		{1, Negative},
		{2, Negative},
		{3, Neutral},
		{4, Positive},
		{5, Positive},
	}
	for _, tt := range tests {
		if got := FromRating(tt.rating); got != tt.want {
			t.Errorf("FromRating(%d) = %v, want %v", tt.rating, got, tt.want)
		}
	}
}

func TestFromRatingOutOfRange(t *testing.T) {
	// Thresholds are ordered comparisons, so anything outside 1..5 still
	// lands on a side.
	if got := FromRating(0); got != Negative {
		t.Errorf("FromRating(0) = %v, want negative", got)
	}
	if got := FromRating(9); got != Positive {
		t.Errorf("FromRating(9) = %v, want positive", got)
	}
}

func TestRendering(t *testing.T) {
	tests := []struct {
		label   Label
		english string
		korean  string
	}{
		{Negative, "negative", "부정"},
		{Neutral, "neutral", "중립"},
		{Positive, "positive", "긍정"},
	}
	for _, tt := range tests {
		if tt.label.String() != tt.english {
			t.Errorf("%d.String() = %q, want %q", tt.label, tt.label.String(), tt.english)
		}
		if tt.label.Korean() != tt.korean {
			t.Errorf("%d.Korean() = %q, want %q", tt.label, tt.label.Korean(), tt.korean)
		}
		for _, s := range []string{tt.english, tt.korean} {
			got, err := Parse(s)
			if err != nil || got != tt.label {
				t.Errorf("Parse(%q) = %v, %v; want %v", s, got, err, tt.label)
			}
		}
	}
	if _, err := Parse("mixed"); err == nil {
		t.Error("Parse(mixed) should fail")
	}
}

func TestJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		S Label `json:"sentiment"`
	}{Neutral})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"sentiment":"neutral"}` {
		t.Errorf("got %s", b)
	}

	var out struct {
		S Label `json:"sentiment"`
	}
	if err := json.Unmarshal([]byte(`{"sentiment":"긍정"}`), &out); err != nil {
		t.Fatal(err)
	}
	if out.S != Positive {
		t.Errorf("got %v, want positive", out.S)
	}
}
