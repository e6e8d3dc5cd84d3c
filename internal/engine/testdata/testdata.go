// Package testdata embeds a small labeled corpus of lecture reviews used by
// tests across the module.
package testdata

import (
	_ "embed"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/crimson-sun/reviewclf/internal/model"
)

//go:embed corpus.json
var corpusJSON []byte

type entry struct {
	Text   string `json:"text"`
	Rating int    `json:"rating"`
}

// LoadCorpus parses the embedded corpus.json and returns all reviews.
func LoadCorpus() ([]model.Review, error) {
	var entries []entry
	if err := json.Unmarshal(corpusJSON, &entries); err != nil {
		return nil, fmt.Errorf("parse corpus.json: %w", err)
	}
	out := make([]model.Review, len(entries))
	for i, e := range entries {
		out[i] = model.Review{Text: e.Text, Rating: e.Rating}
	}
	return out, nil
}

// WriteCSV writes reviews in the training dataset layout.
func WriteCSV(w io.Writer, reviews []model.Review) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"review_text", "rating"}); err != nil {
		return err
	}
	for _, r := range reviews {
		if err := cw.Write([]string{r.Text, strconv.Itoa(r.Rating)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
