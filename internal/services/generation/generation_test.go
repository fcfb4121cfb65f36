package generation

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragline-ai/ragline/internal/models"
)

type sliceStream struct {
	chunks []Chunk
	err    error
	pos    int
	closed bool
}

func (s *sliceStream) Next() (Chunk, error) {
	if s.pos < len(s.chunks) {
		c := s.chunks[s.pos]
		s.pos++
		return c, nil
	}
	if s.err != nil {
		return Chunk{}, s.err
	}
	return Chunk{}, io.EOF
}

func (s *sliceStream) Close() error {
	s.closed = true
	return nil
}

func TestCollectSeparatesThinkingFromContent(t *testing.T) {
	t.Parallel()

	stream := &sliceStream{chunks: []Chunk{
		{Kind: ChunkThinking, Text: "hmm "},
		{Kind: ChunkThinking, Text: "ok"},
		{Kind: ChunkContent, Text: "the "},
		{Kind: ChunkContent, Text: "answer"},
	}}

	out, err := Collect(stream)
	require.NoError(t, err)
	assert.Equal(t, "hmm ok", out.Thinking)
	assert.Equal(t, "the answer", out.Content)
	assert.True(t, stream.closed)
}

func TestCollectPropagatesError(t *testing.T) {
	t.Parallel()

	stream := &sliceStream{
		chunks: []Chunk{{Kind: ChunkContent, Text: "partial"}},
		err:    errors.New("boom"),
	}

	_, err := Collect(stream)
	require.Error(t, err)
	assert.True(t, stream.closed)
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	t.Parallel()

	_, err := New(models.GenerationConfig{Provider: "nope"})
	assert.Error(t, err)
}
