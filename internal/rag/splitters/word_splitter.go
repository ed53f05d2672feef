package splitters

import "strings"

// WordSplitter splits text into consecutive non-overlapping windows of
// whitespace-delimited words. Chunks are rejoined with single spaces, so
// concatenating the tokens of all chunks in order reconstructs the full
// token sequence.
type WordSplitter struct{}

// NewWordSplitter creates a WordSplitter.
func NewWordSplitter() *WordSplitter {
	return &WordSplitter{}
}

// Split returns chunks of exactly maxTokens words each; the final chunk may
// be shorter. Empty or whitespace-only input and maxTokens < 1 yield nil.
func (s *WordSplitter) Split(text string, maxTokens int) []string {
	if maxTokens < 1 {
		return nil
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(words)+maxTokens-1)/maxTokens)
	for i := 0; i < len(words); i += maxTokens {
		end := i + maxTokens
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}

	return chunks
}
