package knowledge

import "strings"

// Default chunking parameters, in words.
const (
	DefaultChunkSize    = 220
	DefaultChunkOverlap = 40
)

// Chunk splits text into overlapping word windows.
//
// Word windows keep sentences mostly intact without a tokenizer dependency,
// and the overlap preserves context that straddles a chunk boundary.
// Whitespace runs collapse to single spaces in the output.
func Chunk(text string, size, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}

	step := size - overlap
	var chunks []string
	for i := 0; i < len(words); i += step {
		end := min(i+size, len(words))
		chunks = append(chunks, strings.Join(words[i:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}
