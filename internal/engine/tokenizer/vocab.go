package tokenizer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/crimson-sun/reviewclf/internal/config"
	"github.com/crimson-sun/reviewclf/internal/fileutil"
)

const className = "Tokenizer"

// kerasConfig mirrors Tokenizer.get_config(). The count and index maps are
// themselves JSON documents stored as strings.
type kerasConfig struct {
	NumWords      *int    `json:"num_words"`
	Filters       string  `json:"filters"`
	Lower         bool    `json:"lower"`
	Split         string  `json:"split"`
	CharLevel     bool    `json:"char_level"`
	OOVToken      *string `json:"oov_token"`
	DocumentCount int     `json:"document_count"`
	WordCounts    string  `json:"word_counts"`
	WordDocs      string  `json:"word_docs"`
	IndexDocs     string  `json:"index_docs"`
	IndexWord     string  `json:"index_word"`
	WordIndex     string  `json:"word_index"`
}

// extension carries what the Keras layout cannot: the full encoding contract
// and whether text is NFC-normalized. Keras loaders ignore it.
type extension struct {
	Contract config.Contract `json:"contract"`
	NFC      bool            `json:"nfc"`
}

type artifact struct {
	ClassName string      `json:"class_name"`
	Config    kerasConfig `json:"config"`
	Reviewclf *extension  `json:"reviewclf,omitempty"`
}

// MarshalJSON encodes the tokenizer in the Keras tokenizer_from_json layout.
func (t *Tokenizer) MarshalJSON() ([]byte, error) {
	numWords := t.contract.VocabSize
	oov := t.contract.OOVToken

	wordCounts, err := orderedObject(t.order, func(w string) any { return t.wordCounts[w] })
	if err != nil {
		return nil, err
	}
	docKeys := make([]string, 0, len(t.wordDocs))
	for _, w := range t.order {
		if _, ok := t.wordDocs[w]; ok {
			docKeys = append(docKeys, w)
		}
	}
	wordDocs, err := orderedObject(docKeys, func(w string) any { return t.wordDocs[w] })
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, t.Len())
	for id := 1; id < len(t.indexWord); id++ {
		ids = append(ids, strconv.Itoa(id))
	}
	idWord := func(k string) string {
		id, _ := strconv.Atoi(k)
		return t.indexWord[id]
	}
	indexDocKeys := make([]string, 0, len(docKeys))
	for _, w := range docKeys {
		indexDocKeys = append(indexDocKeys, strconv.FormatInt(t.wordIndex[w], 10))
	}
	indexDocs, err := orderedObject(indexDocKeys, func(k string) any { return t.wordDocs[idWord(k)] })
	if err != nil {
		return nil, err
	}
	indexWord, err := orderedObject(ids, func(k string) any { return idWord(k) })
	if err != nil {
		return nil, err
	}
	wordIndex, err := orderedObject(t.indexWord[1:], func(w string) any { return t.wordIndex[w] })
	if err != nil {
		return nil, err
	}

	a := artifact{
		ClassName: className,
		Config: kerasConfig{
			NumWords:      &numWords,
			Filters:       t.filters,
			Lower:         t.lower,
			Split:         t.split,
			OOVToken:      &oov,
			DocumentCount: t.documentCount,
			WordCounts:    wordCounts,
			WordDocs:      wordDocs,
			IndexDocs:     indexDocs,
			IndexWord:     indexWord,
			WordIndex:     wordIndex,
		},
		Reviewclf: &extension{Contract: t.contract, NFC: t.nfc},
	}
	return marshal(a)
}

// Save writes the tokenizer artifact to path.
func (t *Tokenizer) Save(path string) error {
	data, err := t.MarshalJSON()
	if err != nil {
		return fmt.Errorf("tokenizer: encode: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("tokenizer: write %s: %w", path, err)
	}
	return nil
}

// Load reads a tokenizer artifact written by Save or by Keras
// Tokenizer.to_json.
func Load(path string) (*Tokenizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: %s: %w", path, err)
	}
	return t, nil
}

// Parse decodes a tokenizer artifact. Files without the reviewclf extension
// get the default contract with num_words and oov_token taken from the Keras
// config, and NFC normalization switched off.
func Parse(data []byte) (*Tokenizer, error) {
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if a.ClassName != className {
		return nil, fmt.Errorf("unexpected class_name %q", a.ClassName)
	}
	cfg := a.Config
	if cfg.CharLevel {
		return nil, errors.New("char_level tokenizers are not supported")
	}

	t := New(config.DefaultContract())
	t.filters = cfg.Filters
	t.lower = cfg.Lower
	t.split = cfg.Split
	if t.split == "" {
		t.split = " "
	}
	t.documentCount = cfg.DocumentCount

	var err error
	if t.order, t.wordCounts, err = decodeCounts(cfg.WordCounts); err != nil {
		return nil, fmt.Errorf("word_counts: %w", err)
	}
	if _, t.wordDocs, err = decodeCounts(cfg.WordDocs); err != nil {
		return nil, fmt.Errorf("word_docs: %w", err)
	}
	wordIndex := make(map[string]int64)
	if cfg.WordIndex != "" {
		if err := json.Unmarshal([]byte(cfg.WordIndex), &wordIndex); err != nil {
			return nil, fmt.Errorf("word_index: %w", err)
		}
	}
	indexWord, err := invertIndex(wordIndex)
	if err != nil {
		return nil, err
	}
	t.wordIndex = wordIndex
	t.indexWord = indexWord

	if a.Reviewclf != nil {
		t.contract = a.Reviewclf.Contract
		t.nfc = a.Reviewclf.NFC
	} else {
		t.nfc = false
		t.contract.OOVToken = ""
		if cfg.OOVToken != nil {
			t.contract.OOVToken = *cfg.OOVToken
		}
		if cfg.NumWords != nil {
			t.contract.VocabSize = *cfg.NumWords
		} else {
			t.contract.VocabSize = len(indexWord)
		}
	}
	if t.contract.MaxLen < 1 {
		return nil, fmt.Errorf("max_len %d must be positive", t.contract.MaxLen)
	}
	if t.contract.VocabSize < 2 {
		return nil, fmt.Errorf("vocab_size %d too small", t.contract.VocabSize)
	}
	return t, nil
}

// invertIndex checks that ids are exactly 1..n and returns id -> word.
func invertIndex(wordIndex map[string]int64) ([]string, error) {
	indexWord := make([]string, len(wordIndex)+1)
	for w, id := range wordIndex {
		if id < 1 || id > int64(len(wordIndex)) {
			return nil, fmt.Errorf("word_index: id %d for %q out of range", id, w)
		}
		if indexWord[id] != "" {
			return nil, fmt.Errorf("word_index: id %d assigned twice", id)
		}
		indexWord[id] = w
	}
	return indexWord, nil
}

// decodeCounts reads a JSON object of word -> count, keeping key order.
func decodeCounts(s string) ([]string, map[string]int, error) {
	counts := make(map[string]int)
	if strings.TrimSpace(s) == "" {
		return nil, counts, nil
	}
	dec := json.NewDecoder(strings.NewReader(s))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected object, got %v", tok)
	}
	var order []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected string key, got %v", tok)
		}
		var n int
		if err := dec.Decode(&n); err != nil {
			return nil, nil, fmt.Errorf("value for %q: %w", key, err)
		}
		if _, dup := counts[key]; !dup {
			order = append(order, key)
		}
		counts[key] = n
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return order, counts, nil
}

// orderedObject renders keys in the given order with Python json.dumps
// separators.
func orderedObject(keys []string, value func(string) any) (string, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		kb, err := marshal(k)
		if err != nil {
			return "", err
		}
		vb, err := marshal(value(k))
		if err != nil {
			return "", err
		}
		b.Write(kb)
		b.WriteString(": ")
		b.Write(vb)
	}
	b.WriteByte('}')
	return b.String(), nil
}

// marshal encodes v without HTML escaping so "<OOV>" stays readable.
func marshal(v any) ([]byte, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(b.Bytes(), "\n"), nil
}
