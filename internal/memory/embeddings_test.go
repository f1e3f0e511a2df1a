package memory

import (
	"context"
	"math"
	"testing"
)

func TestCosineSimilarityIdentical(t *testing.T) {
	v := []float32{0.6, 0.8, 0.0}
	score := CosineSimilarity(v, v)
	if math.Abs(float64(score)-1.0) > 1e-5 {
		t.Errorf("identical vectors -> 1.0, got %v", score)
	}
}

func TestCosineSimilarityOrthogonal(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}
	if score := CosineSimilarity(a, b); math.Abs(float64(score)) > 1e-5 {
		t.Errorf("orthogonal vectors -> 0.0, got %v", score)
	}
}

func TestCosineSimilarityZeroVectorNoPanic(t *testing.T) {
	a := make([]float32, 4)
	b := []float32{1, 0, 0, 0}
	if score := CosineSimilarity(a, b); score != 0 {
		t.Errorf("zero vector -> 0.0, got %v", score)
	}
}

func TestCosineSimilarityMismatchedLengths(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{1, 0, 0}
	if score := CosineSimilarity(a, b); score != 0 {
		t.Errorf("mismatched lengths -> 0.0, got %v", score)
	}
}

func TestMockProviderDeterministic(t *testing.T) {
	p := NewMockEmbeddingProvider()
	e1, _ := p.Embed(context.Background(), "hello world")
	e2, _ := p.Embed(context.Background(), "hello world")
	if !floatsEqual(e1, e2) {
		t.Error("same text should produce the same embedding")
	}
}

func TestMockProviderDifferentTextsDiffer(t *testing.T) {
	p := NewMockEmbeddingProvider()
	e1, _ := p.Embed(context.Background(), "hello world")
	e2, _ := p.Embed(context.Background(), "goodbye world")
	if floatsEqual(e1, e2) {
		t.Error("different texts should produce different embeddings")
	}
}

func TestMockProviderUnitNormalised(t *testing.T) {
	p := NewMockEmbeddingProvider()
	e, _ := p.Embed(context.Background(), "normalise me")
	var mag float64
	for _, v := range e {
		mag += float64(v) * float64(v)
	}
	mag = math.Sqrt(mag)
	if math.Abs(mag-1.0) > 1e-5 {
		t.Errorf("embedding should be unit-length, got %v", mag)
	}
}

func TestLruCacheReturnsSameResult(t *testing.T) {
	c := NewLruEmbeddingCache(NewMockEmbeddingProvider(), 10)
	first, _ := c.Embed(context.Background(), "test text")
	second, _ := c.Embed(context.Background(), "test text")
	if !floatsEqual(first, second) {
		t.Error("cached value should match original")
	}
}

func TestLruCacheDifferentKeys(t *testing.T) {
	c := NewLruEmbeddingCache(NewMockEmbeddingProvider(), 10)
	a, _ := c.Embed(context.Background(), "text a")
	b, _ := c.Embed(context.Background(), "text b")
	if floatsEqual(a, b) {
		t.Error("different texts should produce different embeddings")
	}
}

func TestLruCacheEvictsOldestBeyondCapacity(t *testing.T) {
	calls := map[string]int{}
	counting := providerFunc(func(ctx context.Context, text string) ([]float32, error) {
		calls[text]++
		return NewMockEmbeddingProvider().Embed(ctx, text)
	})
	c := NewLruEmbeddingCache(counting, 2)

	c.Embed(context.Background(), "a")
	c.Embed(context.Background(), "b")
	c.Embed(context.Background(), "c") // evicts "a" (least recently used)
	c.Embed(context.Background(), "a") // cache miss again

	if calls["a"] != 2 {
		t.Errorf("expected 2 calls for evicted key %q, got %d", "a", calls["a"])
	}
	if calls["b"] != 1 || calls["c"] != 1 {
		t.Errorf("expected 1 call each for %q/%q, got %d/%d", "b", "c", calls["b"], calls["c"])
	}
}

type providerFunc func(ctx context.Context, text string) ([]float32, error)

func (f providerFunc) Embed(ctx context.Context, text string) ([]float32, error) { return f(ctx, text) }

func floatsEqual(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
