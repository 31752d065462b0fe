// Package chunker splits document and transcript text into overlapping
// chunks for semantic indexing.
//
// Overlap between adjacent chunks preserves context that would otherwise be
// lost at chunk boundaries, so a sentence cut in half by one chunk is whole
// in its neighbor.
package chunker

import (
	"fmt"

	"github.com/soulrag/soulrag-go/pkg/core"
)

// Split splits text into chunks of at most size characters, with adjacent
// chunks sharing exactly overlap characters.
//
// size and overlap are counted in runes, not bytes, so multi-byte input
// never splits inside a character. Together the chunks cover the whole
// input with no gaps. Text no longer than size yields a single chunk;
// empty text yields none.
//
// overlap must be non-negative and strictly smaller than size; violating
// this is a configuration error, not a runtime condition.
func Split(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, core.NewSoulError("Split", fmt.Errorf("%w: chunk size %d must be positive", core.ErrInvalidChunking, size))
	}
	if overlap < 0 || overlap >= size {
		return nil, core.NewSoulError("Split", fmt.Errorf("%w: overlap %d must be in [0, %d)", core.ErrInvalidChunking, overlap, size))
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}
	if len(runes) <= size {
		return []string{text}, nil
	}

	step := size - overlap
	chunks := make([]string, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}

	return chunks, nil
}
