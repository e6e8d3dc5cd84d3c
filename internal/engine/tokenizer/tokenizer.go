// Package tokenizer turns review text into fixed-length id sequences.
//
// The word splitting, vocabulary ordering and out-of-vocabulary rules match
// the Keras text Tokenizer, so artifacts written by either side load in the
// other.
package tokenizer

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/crimson-sun/reviewclf/internal/config"
)

// DefaultFilters are the characters replaced by the split string before
// splitting. Tab and newline are included, carriage return is not.
const DefaultFilters = "!\"#$%&()*+,-./:;<=>?@[\\]^_`{|}~\t\n"

// PadID fills the tail of short sequences.
const PadID int64 = 0

// Tokenizer is a word-level vocabulary fitted on training text.
//
// A fitted Tokenizer is read-only during encoding and may be shared.
type Tokenizer struct {
	contract config.Contract

	filters string
	lower   bool
	split   string
	nfc     bool

	documentCount int
	order         []string // first-seen order of every counted word
	wordCounts    map[string]int
	wordDocs      map[string]int

	wordIndex map[string]int64
	indexWord []string // indexWord[id] = word, indexWord[0] = ""
}

// New creates an empty Tokenizer bound to the given contract. The vocabulary
// cap is contract.VocabSize and unknown words map to contract.OOVToken.
func New(c config.Contract) *Tokenizer {
	return &Tokenizer{
		contract:   c,
		filters:    DefaultFilters,
		lower:      true,
		split:      " ",
		nfc:        true,
		wordCounts: make(map[string]int),
		wordDocs:   make(map[string]int),
		wordIndex:  make(map[string]int64),
		indexWord:  []string{""},
	}
}

// Contract returns the encoding contract this tokenizer enforces.
func (t *Tokenizer) Contract() config.Contract {
	return t.contract
}

// Fit counts words in texts and rebuilds the word index. Calling Fit again
// accumulates counts, as with the Keras tokenizer.
func (t *Tokenizer) Fit(texts []string) {
	for _, text := range texts {
		t.documentCount++
		words := t.Words(text)
		seen := make(map[string]struct{}, len(words))
		for _, w := range words {
			if _, ok := t.wordCounts[w]; !ok {
				t.order = append(t.order, w)
			}
			t.wordCounts[w]++
			if _, ok := seen[w]; !ok {
				seen[w] = struct{}{}
				t.wordDocs[w]++
			}
		}
	}
	t.rebuildIndex()
}

// rebuildIndex assigns ids by descending count. Ties keep first-seen order.
// The OOV token takes id 1 and id 0 is never assigned.
func (t *Tokenizer) rebuildIndex() {
	sorted := make([]string, len(t.order))
	copy(sorted, t.order)
	sort.SliceStable(sorted, func(i, j int) bool {
		return t.wordCounts[sorted[i]] > t.wordCounts[sorted[j]]
	})

	t.wordIndex = make(map[string]int64, len(sorted)+1)
	t.indexWord = make([]string, 1, len(sorted)+2)
	t.assign(t.contract.OOVToken)
	for _, w := range sorted {
		t.assign(w)
	}
}

func (t *Tokenizer) assign(word string) {
	if word == "" {
		return
	}
	if _, dup := t.wordIndex[word]; dup {
		return
	}
	t.wordIndex[word] = int64(len(t.indexWord))
	t.indexWord = append(t.indexWord, word)
}

// Words splits text into normalized words: NFC, lower-case, every filter
// character replaced by the split string, empty pieces dropped.
func (t *Tokenizer) Words(text string) []string {
	if t.nfc {
		text = norm.NFC.String(text)
	}
	if t.lower {
		text = strings.ToLower(text)
	}
	if t.filters != "" {
		text = strings.Map(func(r rune) rune {
			if strings.ContainsRune(t.filters, r) {
				return splitRune(t.split)
			}
			return r
		}, text)
	}
	parts := strings.Split(text, t.split)
	words := parts[:0]
	for _, p := range parts {
		if p != "" {
			words = append(words, p)
		}
	}
	return words
}

// splitRune returns the rune used to replace filtered characters. Multi-rune
// split strings are not supported by the replacement and fall back to space.
func splitRune(split string) rune {
	r := []rune(split)
	if len(r) == 1 {
		return r[0]
	}
	return ' '
}

// OOVID returns the id unknown and over-cap words map to, or PadID when the
// tokenizer has no OOV token.
func (t *Tokenizer) OOVID() int64 {
	if id, ok := t.wordIndex[t.contract.OOVToken]; ok {
		return id
	}
	return PadID
}

// Lookup returns the id for a single normalized word and whether the word is
// represented by its own id. Words ranked at or beyond the vocabulary cap
// share the OOV id.
func (t *Tokenizer) Lookup(word string) (int64, bool) {
	id, ok := t.wordIndex[word]
	if !ok {
		return t.OOVID(), false
	}
	if t.contract.VocabSize > 0 && id >= int64(t.contract.VocabSize) {
		return t.OOVID(), false
	}
	return id, true
}

// Sequence converts text to ids without padding. Unknown words become the
// OOV id; when there is no OOV token they are dropped.
func (t *Tokenizer) Sequence(text string) []int64 {
	words := t.Words(text)
	seq := make([]int64, 0, len(words))
	oov := t.OOVID()
	for _, w := range words {
		id, _ := t.Lookup(w)
		if id == PadID && oov == PadID {
			continue
		}
		seq = append(seq, id)
	}
	return seq
}

// Encode converts text to exactly contract.MaxLen ids: post-truncated and
// post-padded with PadID. Empty text yields all padding.
func (t *Tokenizer) Encode(text string) []int64 {
	return Pad(t.Sequence(text), t.contract.MaxLen)
}

// EncodeBatch encodes every text with Encode.
func (t *Tokenizer) EncodeBatch(texts []string) [][]int64 {
	out := make([][]int64, len(texts))
	for i, text := range texts {
		out[i] = t.Encode(text)
	}
	return out
}

// Pad normalizes seq to length maxLen, keeping the head and filling the tail
// with PadID.
func Pad(seq []int64, maxLen int) []int64 {
	out := make([]int64, maxLen)
	copy(out, seq)
	return out
}

// Len returns the number of indexed words, OOV token included.
func (t *Tokenizer) Len() int {
	return len(t.indexWord) - 1
}

// DocumentCount returns how many texts were fitted.
func (t *Tokenizer) DocumentCount() int {
	return t.documentCount
}

// Word returns the word for id, or "" for PadID and unknown ids.
func (t *Tokenizer) Word(id int64) string {
	if id <= 0 || id >= int64(len(t.indexWord)) {
		return ""
	}
	return t.indexWord[id]
}
