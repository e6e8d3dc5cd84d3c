package tokenizer

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"

	"github.com/crimson-sun/reviewclf/internal/config"
)

func smallContract(vocab, maxLen int) config.Contract {
	c := config.DefaultContract()
	c.VocabSize = vocab
	c.MaxLen = maxLen
	return c
}

func fitted(t *testing.T, c config.Contract) *Tokenizer {
	t.Helper()
	tok := New(c)
	tok.Fit([]string{"좋은 강의 좋은 교수님", "과제 많음 강의"})
	return tok
}

func TestFitOrdering(t *testing.T) {
	tok := fitted(t, smallContract(100, 10))

	want := []string{"<OOV>", "좋은", "강의", "교수님", "과제", "많음"}
	for i, w := range want {
		assert.Equal(t, w, tok.Word(int64(i+1)), "id %d", i+1)
	}
	assert.Equal(t, int64(1), tok.OOVID())
	assert.Equal(t, 6, tok.Len())
	assert.Equal(t, 2, tok.DocumentCount())
	assert.Equal(t, "", tok.Word(PadID))
}

func TestWords(t *testing.T) {
	tok := New(config.DefaultContract())

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"lowercase", "GOOD Lecture", []string{"good", "lecture"}},
		{"filters", "a,b.c!!d", []string{"a", "b", "c", "d"}},
		{"tab and newline", "x\ty\nz", []string{"x", "y", "z"}},
		{"korean particles kept", "tmi가 너무 많아서", []string{"tmi가", "너무", "많아서"}},
		{"empty", "", []string{}},
		{"whitespace only", "   \t\n ", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tok.Words(tt.text)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeCapAndOOV(t *testing.T) {
	tok := fitted(t, smallContract(5, 6))

	// 과제 has id 5, which is at the cap and therefore OOV.
	got := tok.Encode("좋은 과제, 새로운 강의!!")
	assert.Equal(t, []int64{2, 1, 1, 3, 0, 0}, got)

	id, own := tok.Lookup("과제")
	assert.Equal(t, int64(1), id)
	assert.False(t, own)

	id, own = tok.Lookup("강의")
	assert.Equal(t, int64(3), id)
	assert.True(t, own)
}

func TestEncodeFixedLength(t *testing.T) {
	tok := fitted(t, smallContract(100, 100))

	long := strings.Repeat("좋은 ", 250)
	cases := map[string]string{
		"empty":      "",
		"whitespace": "  \n\t ",
		"short":      "좋은 강의",
		"long":       long,
		"oov only":   "전혀 모르는 단어들",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			seq := tok.Encode(text)
			require.Len(t, seq, 100)
			for _, id := range seq {
				assert.GreaterOrEqual(t, id, int64(0))
				assert.Less(t, id, int64(100))
			}
		})
	}

	assert.Equal(t, make([]int64, 100), tok.Encode("   "))

	seq := tok.Encode(long)
	for i, id := range seq {
		require.Equal(t, int64(2), id, "position %d", i)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	a := fitted(t, smallContract(100, 20))
	b := fitted(t, smallContract(100, 20))

	text := "교수님이 tmi가 너무 많아서 집중하기 어렵지만 과제나 팀플이 없어서 좋음"
	assert.Equal(t, a.Encode(text), a.Encode(text))
	assert.Equal(t, a.Encode(text), b.Encode(text))

	ja, err := a.MarshalJSON()
	require.NoError(t, err)
	jb, err := b.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, string(ja), string(jb))
}

func TestEncodeNFC(t *testing.T) {
	tok := fitted(t, smallContract(100, 4))

	decomposed := norm.NFD.String("강의")
	require.NotEqual(t, "강의", decomposed)
	assert.Equal(t, tok.Encode("강의"), tok.Encode(decomposed))
}

func TestEncodeBatch(t *testing.T) {
	tok := fitted(t, smallContract(100, 3))

	got := tok.EncodeBatch([]string{"좋은", "", "많음 과제 강의 좋은"})
	assert.Equal(t, [][]int64{{2, 0, 0}, {0, 0, 0}, {6, 5, 3}}, got)
}

func TestPad(t *testing.T) {
	assert.Equal(t, []int64{1, 2, 0, 0}, Pad([]int64{1, 2}, 4))
	assert.Equal(t, []int64{1, 2}, Pad([]int64{1, 2, 3}, 2))
	assert.Equal(t, []int64{0, 0}, Pad(nil, 2))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	tok := fitted(t, smallContract(5, 8))
	path := filepath.Join(t.TempDir(), "models", "tokenizer.json")
	require.NoError(t, tok.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, tok.Contract(), loaded.Contract())
	assert.Equal(t, tok.Len(), loaded.Len())
	assert.Equal(t, tok.DocumentCount(), loaded.DocumentCount())
	for _, text := range []string{"좋은 과제 강의", "", "모르는 말"} {
		assert.Equal(t, tok.Encode(text), loaded.Encode(text), text)
	}

	before, err := tok.MarshalJSON()
	require.NoError(t, err)
	after, err := loaded.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestArtifactIsReadable(t *testing.T) {
	tok := fitted(t, smallContract(5, 8))
	data, err := tok.MarshalJSON()
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, `"oov_token":"<OOV>"`)
	assert.Contains(t, s, "교수님")

	var a artifact
	require.NoError(t, json.Unmarshal(data, &a))
	assert.Equal(t, "Tokenizer", a.ClassName)
	require.NotNil(t, a.Config.NumWords)
	assert.Equal(t, 5, *a.Config.NumWords)
	assert.Equal(t, `{"<OOV>": 1, "좋은": 2, "강의": 3, "교수님": 4, "과제": 5, "많음": 6}`, a.Config.WordIndex)
	assert.Equal(t, `{"좋은": 2, "강의": 2, "교수님": 1, "과제": 1, "많음": 1}`, a.Config.WordCounts)
}

func TestParseKerasArtifact(t *testing.T) {
	doc := map[string]any{
		"class_name": "Tokenizer",
		"config": map[string]any{
			"num_words":      20000,
			"filters":        DefaultFilters,
			"lower":          true,
			"split":          " ",
			"char_level":     false,
			"oov_token":      "<OOV>",
			"document_count": 2,
			"word_counts":    `{"good": 2, "lecture": 1}`,
			"word_docs":      `{"good": 1, "lecture": 1}`,
			"index_docs":     `{"2": 1, "3": 1}`,
			"index_word":     `{"1": "<OOV>", "2": "good", "3": "lecture"}`,
			"word_index":     `{"<OOV>": 1, "good": 2, "lecture": 3}`,
		},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	tok, err := Parse(data)
	require.NoError(t, err)

	c := tok.Contract()
	assert.Equal(t, 20000, c.VocabSize)
	assert.Equal(t, 100, c.MaxLen)
	assert.Equal(t, "<OOV>", c.OOVToken)

	seq := tok.Encode("Good lecture, bad")
	require.Len(t, seq, 100)
	assert.Equal(t, []int64{2, 3, 1, 0}, seq[:4])
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{"},
		{"wrong class", `{"class_name":"Other","config":{}}`},
		{"char level", `{"class_name":"Tokenizer","config":{"char_level":true}}`},
		{"bad index", `{"class_name":"Tokenizer","config":{"num_words":10,"word_index":"{\"a\": 7}"}}`},
		{"duplicate id", `{"class_name":"Tokenizer","config":{"num_words":10,"word_index":"{\"a\": 1, \"b\": 1}"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
