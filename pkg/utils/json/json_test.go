package json

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

func TestMarshalFieldNames(t *testing.T) {
	data, err := Marshal(turn{Role: "user", Text: "hello <world> & \"you\""})
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, Unmarshal(data, &got))
	assert.Equal(t, "user", got["role"])
	assert.Equal(t, "hello <world> & \"you\"", got["text"])
}

func TestFloatVectorDecoding(t *testing.T) {
	var out struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	require.NoError(t, Unmarshal([]byte(`{"embeddings":[[0.5,-1,2e-3],[0,0,1]]}`), &out))
	require.Len(t, out.Embeddings, 2)
	assert.InDelta(t, 0.002, out.Embeddings[0][2], 1e-6)
	assert.Equal(t, float32(1), out.Embeddings[1][2])
}

func TestEncoderDecoder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf).Encode(turn{Role: "assistant", Text: "ok"}))

	var got turn
	require.NoError(t, NewDecoder(&buf).Decode(&got))
	assert.Equal(t, turn{Role: "assistant", Text: "ok"}, got)
}

func TestUnmarshalInvalid(t *testing.T) {
	var got turn
	assert.Error(t, Unmarshal([]byte(`{"role":`), &got))
}

func TestIsUsingSonic(t *testing.T) {
	want := runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64"
	assert.Equal(t, want, IsUsingSonic())
}
