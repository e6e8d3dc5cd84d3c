package output

import (
	"fmt"
	"strings"

	"github.com/crimson-sun/reviewclf/internal/model"
)

// Verbosity controls which prediction fields are emitted.
type Verbosity int

const (
	// Minimal emits rating and sentiment only.
	Minimal Verbosity = iota
	// Standard adds the input text and the winning probability.
	Standard
	// Full adds all class probabilities.
	Full
)

// ParseVerbosity maps "minimal", "standard" or "full" to a Verbosity.
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal":
		return Minimal, nil
	case "standard":
		return Standard, nil
	case "full", "":
		return Full, nil
	}
	return Full, fmt.Errorf("output: unknown verbosity %q", s)
}

// Format selects the fields and label language of emitted records.
type Format struct {
	Verbosity Verbosity
	Korean    bool // render sentiment as 부정/중립/긍정
}

// Record is the NDJSON shape of one prediction.
type Record struct {
	Text       string    `json:"text,omitempty"`
	Rating     int       `json:"rating"`
	Sentiment  string    `json:"sentiment"`
	Confidence float64   `json:"confidence,omitempty"`
	Probs      []float64 `json:"probs,omitempty"`
}

// FormatPrediction returns the record for p with fields stripped according
// to f.Verbosity.
func FormatPrediction(p model.Prediction, f Format) Record {
	r := Record{Rating: p.Rating, Sentiment: p.Sentiment.String()}
	if f.Korean {
		r.Sentiment = p.Sentiment.Korean()
	}
	if f.Verbosity >= Standard {
		r.Text = p.Text
		r.Confidence = p.Confidence()
	}
	if f.Verbosity >= Full {
		r.Probs = p.Probs
	}
	return r
}
