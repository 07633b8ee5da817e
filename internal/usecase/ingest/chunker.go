package ingest

import "strings"

// charsPerToken approximates token count from character count.
const charsPerToken = 4

// Chunker splits text into overlapping windows sized in approximate tokens.
type Chunker struct {
	size    int // chars
	overlap int // chars
}

// NewChunker creates a chunker of chunkSize tokens with overlap tokens shared between neighbours.
func NewChunker(chunkSize, overlap int) Chunker {
	return Chunker{size: chunkSize * charsPerToken, overlap: overlap * charsPerToken}
}

// Split cuts text at a sentence end (". ") or a space when one lies in the
// second half of the window, else at the window edge. Empty chunks are dropped.
func (c Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" || c.size <= 0 {
		return nil
	}

	r := []rune(text)
	n := len(r)
	half := c.size / 2

	var chunks []string
	for start := 0; start < n; {
		end := min(start+c.size, n)

		if end < n {
			if dot := lastIndex(r, start, end, []rune(". ")); dot > start+half {
				end = dot + 1
			} else if sp := lastIndex(r, start, end, []rune(" ")); sp > start+half {
				end = sp
			}
		}

		if s := strings.TrimSpace(string(r[start:end])); s != "" {
			chunks = append(chunks, s)
		}

		if next := end - c.overlap; next > start {
			start = next
		} else {
			start = end
		}
	}
	return chunks
}

// lastIndex finds the last occurrence of sep fully inside r[start:end], or -1.
func lastIndex(r []rune, start, end int, sep []rune) int {
	for i := end - len(sep); i >= start; i-- {
		match := true
		for j := range sep {
			if r[i+j] != sep[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// ApproxTokens estimates the token count of s.
func ApproxTokens(s string) int {
	return len([]rune(s)) / charsPerToken
}
