package memory

import "strings"

// ChunkConfig tunes the text chunker.
type ChunkConfig struct {
	ChunkSize int // target words per chunk. Default: 512.
	Overlap   int // words shared between adjacent chunks. Default: 50.
}

// DefaultChunkConfig matches the long-document chunker's defaults.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{ChunkSize: 512, Overlap: 50}
}

// Chunk is a single overlapping slice produced by SplitIntoChunks.
type Chunk struct {
	Text       string
	ChunkIndex int
	StartWord  int
	EndWord    int // exclusive
}

// SplitIntoChunks splits text into overlapping word-boundary chunks so each
// chunk fits within an embedding model's context window. Overlap keeps
// semantic continuity across chunk boundaries. Returns nil for empty or
// whitespace-only input.
func SplitIntoChunks(text string, cfg ChunkConfig) []Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := cfg.ChunkSize - cfg.Overlap
	if step <= 0 {
		// Degenerate config: step by 1 to avoid an infinite loop.
		step = 1
	}

	var chunks []Chunk
	start := 0
	idx := 0
	for start < len(words) {
		end := start + cfg.ChunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, Chunk{
			Text:       strings.Join(words[start:end], " "),
			ChunkIndex: idx,
			StartWord:  start,
			EndWord:    end,
		})
		if end == len(words) {
			break
		}
		start += step
		idx++
	}
	return chunks
}
