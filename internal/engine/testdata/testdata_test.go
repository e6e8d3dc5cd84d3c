package testdata

import (
	"bytes"
	"strings"
	"testing"

	"github.com/crimson-sun/reviewclf/internal/model"
)

func TestLoadCorpus(t *testing.T) {
	reviews, err := LoadCorpus()
	if err != nil {
		t.Fatalf("LoadCorpus() error: %v", err)
	}
	if len(reviews) == 0 {
		t.Fatal("corpus is empty")
	}
	t.Logf("Total entries: %d", len(reviews))

	counts := map[int]int{}
	for i, r := range reviews {
		if strings.TrimSpace(r.Text) == "" {
			t.Errorf("entry[%d] has empty text", i)
		}
		if !model.ValidRating(r.Rating) {
			t.Errorf("entry[%d] has rating %d", i, r.Rating)
		}
		counts[r.Rating]++
	}

	// Every rating must be represented well enough to stratify.
	for rating := model.MinRating; rating <= model.MaxRating; rating++ {
		if counts[rating] < 5 {
			t.Errorf("rating %d has only %d entries", rating, counts[rating])
		}
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, []model.Review{{Text: "좋음, 추천", Rating: 5}})
	if err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "review_text,rating\n\"좋음, 추천\",5\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}
