package chunker_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soulrag/soulrag-go/pkg/chunker"
	"github.com/soulrag/soulrag-go/pkg/core"
)

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	chunks, err := chunker.Split("hello world", 100, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0])
}

func TestSplit_EmptyText(t *testing.T) {
	chunks, err := chunker.Split("", 100, 10)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplit_ExactSize(t *testing.T) {
	text := strings.Repeat("a", 50)
	chunks, err := chunker.Split(text, 50, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestSplit_InvalidParameters(t *testing.T) {
	cases := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -1, 0},
		{"negative overlap", 10, -1},
		{"overlap equals size", 10, 10},
		{"overlap exceeds size", 10, 11},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := chunker.Split("some text", tc.size, tc.overlap)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrInvalidChunking)
		})
	}
}

// Every rune of the input must appear in the chunk sequence with no gap, and
// each adjacent pair must share exactly overlap runes.
func TestSplit_CoverageAndOverlap(t *testing.T) {
	cases := []struct {
		name    string
		length  int
		size    int
		overlap int
	}{
		{"even split", 100, 20, 5},
		{"uneven tail", 103, 20, 5},
		{"no overlap", 90, 30, 0},
		{"large overlap", 200, 50, 49},
		{"one past size", 21, 20, 5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var b strings.Builder
			for i := 0; i < tc.length; i++ {
				b.WriteByte(byte('a' + i%26))
			}
			text := b.String()

			chunks, err := chunker.Split(text, tc.size, tc.overlap)
			require.NoError(t, err)
			require.NotEmpty(t, chunks)

			// Reassemble by dropping each chunk's leading overlap.
			reassembled := chunks[0]
			for i := 1; i < len(chunks); i++ {
				prev := []rune(chunks[i-1])
				cur := []rune(chunks[i])
				require.GreaterOrEqual(t, len(prev), tc.overlap)
				assert.Equal(t, string(prev[len(prev)-tc.overlap:]), string(cur[:tc.overlap]),
					"adjacent chunks %d and %d must share exactly the overlap", i-1, i)
				reassembled += string(cur[tc.overlap:])
			}
			assert.Equal(t, text, reassembled, "chunks must cover the input with no gap")

			for i, c := range chunks {
				assert.LessOrEqual(t, len([]rune(c)), tc.size, "chunk %d exceeds size", i)
			}
		})
	}
}

func TestSplit_MultiByteRunes(t *testing.T) {
	text := strings.Repeat("心", 25)
	chunks, err := chunker.Split(text, 10, 2)
	require.NoError(t, err)

	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 10)
		for _, r := range c {
			assert.Equal(t, '心', r)
		}
	}
}
