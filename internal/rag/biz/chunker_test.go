package biz

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"   ", ""},
		{"a  b", "a b"},
		{"\n\ta\r\n b \t", "a b"},
		{"hello  world", "hello world"},
		{"already clean", "already clean"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "input %q", tt.in)
	}
}

func TestSlide_Literal(t *testing.T) {
	chunks, err := Slide("abcdefghij", 4, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"abcd", "defg", "ghij"}, chunks)
}

func TestSlide_Edges(t *testing.T) {
	chunks, err := Slide("", 4, 1)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = Slide("abc", 10, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"abc"}, chunks)

	chunks, err = Slide("abcdef", 3, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"abc", "def"}, chunks)

	// Runes, not bytes.
	chunks, err = Slide("你好世界和平", 4, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"你好世界", "世界和平"}, chunks)
}

func TestSlide_InvalidParams(t *testing.T) {
	for _, p := range [][2]int{{0, 0}, {-1, 0}, {4, -1}, {4, 4}, {4, 5}} {
		_, err := Slide("abc", p[0], p[1])
		assert.ErrorIs(t, err, errors.ErrRAGValidation, "size=%d overlap=%d", p[0], p[1])
	}
}

// TestSlide_Properties checks the window properties over a grid of inputs.
func TestSlide_Properties(t *testing.T) {
	texts := []string{
		"x",
		"abcdefghij",
		strings.Repeat("lorem ipsum ", 20),
		"ünïcödé tëxt wïth äccents and 中文字符 mixed in",
	}
	for _, text := range texts {
		n := utf8.RuneCountInString(text)
		for size := 1; size <= 12; size++ {
			for overlap := 0; overlap < size; overlap++ {
				t.Run(fmt.Sprintf("n%d_c%d_o%d", n, size, overlap), func(t *testing.T) {
					chunks, err := Slide(text, size, overlap)
					require.NoError(t, err)
					require.NotEmpty(t, chunks)

					runes := []rune(text)
					start, prevStart := 0, -1
					var rebuilt []rune
					for i, c := range chunks {
						cr := []rune(c)
						assert.LessOrEqual(t, len(cr), size)
						assert.Greater(t, start, prevStart)
						assert.Equal(t, string(runes[start:start+len(cr)]), c)
						end := start + len(cr)
						if i == 0 {
							rebuilt = append(rebuilt, cr...)
						} else {
							rebuilt = append(rebuilt, cr[len(rebuilt)-start:]...)
						}
						prevStart = start
						start = max(0, end-overlap)
						if i == len(chunks)-1 {
							assert.Equal(t, n, end)
						}
					}
					assert.Equal(t, text, string(rebuilt))
				})
			}
		}
	}
}

func TestBySentence_Literal(t *testing.T) {
	chunks, err := BySentence("A. B. C.", 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"A.", "B.", "C."}, chunks)

	chunks, err = BySentence("A. B. C.", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"A. B.", "C."}, chunks)
}

func TestBySentence_Edges(t *testing.T) {
	chunks, err := BySentence("", 10)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = BySentence("This sentence is far too long. Ok.", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"This sentence is far too long.", "Ok."}, chunks)

	chunks, err = BySentence("no terminal punctuation here", 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"no terminal punctuation here"}, chunks)

	_, err = BySentence("A.", 0)
	assert.ErrorIs(t, err, errors.ErrRAGValidation)
}

func TestBySentence_Properties(t *testing.T) {
	text := "The quick brown fox jumps. Over the lazy dog! Is it true? " +
		"Yes, it is. Pi is 3.14 roughly. \"Quoted sentence.\" Final fragment"
	sentences := RuleSplitter{}.Split(text)

	for maxSize := 1; maxSize <= 80; maxSize++ {
		chunks, err := BySentence(text, maxSize)
		require.NoError(t, err)

		var joined []string
		for _, c := range chunks {
			assert.NotEmpty(t, c)
			if utf8.RuneCountInString(c) > maxSize {
				// only a lone oversized sentence may exceed the cap
				assert.Contains(t, sentences, c)
			}
			joined = append(joined, c)
		}
		assert.Equal(t, strings.Join(sentences, " "), strings.Join(joined, " "), "order preserved at max %d", maxSize)
	}
}

func TestRuleSplitter(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"One. Two! Three?", []string{"One.", "Two!", "Three?"}},
		{"Wait... what?! Really.", []string{"Wait...", "what?!", "Really."}},
		{`He said "go." Then left.`, []string{`He said "go."`, "Then left."}},
		{"Version 1.2 shipped. Done", []string{"Version 1.2 shipped.", "Done"}},
		{"(Aside.) Next.", []string{"(Aside.)", "Next."}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RuleSplitter{}.Split(tt.in), "input %q", tt.in)
	}
}

type stubSplitter []string

func (s stubSplitter) Split(string) []string { return s }

func TestChunker_CustomSplitter(t *testing.T) {
	c := Chunker{Splitter: stubSplitter{"  alpha  ", "", "beta"}}
	chunks, err := c.BySentence("ignored", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, chunks)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("sliding")
	require.NoError(t, err)
	assert.Equal(t, StrategySliding, s)

	s, err = ParseStrategy("sentences")
	require.NoError(t, err)
	assert.Equal(t, StrategySentences, s)

	_, err = ParseStrategy("paragraphs")
	assert.ErrorIs(t, err, errors.ErrRAGUnsupportedInput)
}
