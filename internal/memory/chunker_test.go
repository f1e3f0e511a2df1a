package memory

import (
	"fmt"
	"strconv"
	"strings"
	"testing"
)

func TestSplitIntoChunksEmptyText(t *testing.T) {
	if chunks := SplitIntoChunks("", DefaultChunkConfig()); chunks != nil {
		t.Errorf("got %v, want nil", chunks)
	}
}

func TestSplitIntoChunksWhitespaceOnly(t *testing.T) {
	if chunks := SplitIntoChunks("   \n\t  ", DefaultChunkConfig()); chunks != nil {
		t.Errorf("got %v, want nil", chunks)
	}
}

func TestSplitIntoChunksShortTextSingleChunk(t *testing.T) {
	text := "one two three"
	chunks := SplitIntoChunks(text, DefaultChunkConfig())
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	c := chunks[0]
	if c.Text != text || c.ChunkIndex != 0 || c.StartWord != 0 || c.EndWord != 3 {
		t.Errorf("got %+v, want text=%q index=0 start=0 end=3", c, text)
	}
}

func TestSplitIntoChunksLongTextMultipleChunks(t *testing.T) {
	// 20 words, chunk_size=10, overlap=2 -> step=8 -> chunks at 0, 8, 16
	text := wordList(1, 20)
	chunks := SplitIntoChunks(text, ChunkConfig{ChunkSize: 10, Overlap: 2})
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want >= 2", len(chunks))
	}
}

func TestSplitIntoChunksOverlapMaintained(t *testing.T) {
	text := wordList(1, 12)
	chunks := SplitIntoChunks(text, ChunkConfig{ChunkSize: 5, Overlap: 2})
	if len(chunks) < 2 {
		t.Fatalf("need at least 2 chunks for overlap test, got %d", len(chunks))
	}
	firstWords := strings.Fields(chunks[0].Text)
	secondWords := strings.Fields(chunks[1].Text)
	lastTwoOfFirst := firstWords[len(firstWords)-2:]
	firstTwoOfSecond := secondWords[:2]
	if lastTwoOfFirst[0] != firstTwoOfSecond[0] || lastTwoOfFirst[1] != firstTwoOfSecond[1] {
		t.Errorf("last 2 words of chunk 0 (%v) should equal first 2 of chunk 1 (%v)", lastTwoOfFirst, firstTwoOfSecond)
	}
}

func TestSplitIntoChunksDefaults(t *testing.T) {
	cfg := DefaultChunkConfig()
	if cfg.ChunkSize != 512 || cfg.Overlap != 50 {
		t.Errorf("got %+v, want {512 50}", cfg)
	}
}

func TestSplitIntoChunksExactBoundary(t *testing.T) {
	text := wordList(1, 10)
	chunks := SplitIntoChunks(text, ChunkConfig{ChunkSize: 10, Overlap: 0})
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].EndWord != 10 {
		t.Errorf("end word = %d, want 10", chunks[0].EndWord)
	}
}

func TestSplitIntoChunksIndicesSequential(t *testing.T) {
	text := wordList(1, 30)
	chunks := SplitIntoChunks(text, ChunkConfig{ChunkSize: 10, Overlap: 2})
	for i, c := range chunks {
		if c.ChunkIndex != i {
			t.Errorf("chunk %d has ChunkIndex %d, want sequential", i, c.ChunkIndex)
		}
	}
}

func wordList(from, to int) string {
	words := make([]string, 0, to-from+1)
	for i := from; i <= to; i++ {
		words = append(words, fmt.Sprintf("word%s", strconv.Itoa(i)))
	}
	return strings.Join(words, " ")
}
