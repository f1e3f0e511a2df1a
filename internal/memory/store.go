package memory

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// StoreConfig tunes the hybrid recall scoring and chunking behavior.
type StoreConfig struct {
	Chunk        ChunkConfig
	VectorWeight float64 // default 0.7
	TextWeight   float64 // default 0.3
	MinScore     float64 // default 0.35, entries scoring below this are dropped from Recall
	CacheCapacity int    // LRU embedding cache size, default 10000
}

// DefaultStoreConfig matches the gateway's configured defaults.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Chunk:         DefaultChunkConfig(),
		VectorWeight:  0.7,
		TextWeight:    0.3,
		MinScore:      0.35,
		CacheCapacity: 10_000,
	}
}

// Store is a SQLite-backed Memory implementation with hybrid
// (cosine similarity + keyword overlap) recall scoring.
type Store struct {
	db         *sql.DB
	embeddings EmbeddingProvider
	cfg        StoreConfig

	mu    sync.Mutex
	clock func() time.Time
}

// NewStore opens (and migrates) a SQLite-backed memory store at dbPath.
// dbPath may be ":memory:" for an ephemeral in-process store.
func NewStore(dbPath string, embeddings EmbeddingProvider, cfg StoreConfig) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("memory: open sqlite: %w", err)
	}
	if cfg.VectorWeight == 0 && cfg.TextWeight == 0 {
		cfg = DefaultStoreConfig()
	}
	if embeddings == nil {
		embeddings = NewLruEmbeddingCache(NewMockEmbeddingProvider(), cfg.CacheCapacity)
	}
	s := &Store{db: db, embeddings: embeddings, cfg: cfg, clock: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS memory_entries (
	id TEXT PRIMARY KEY,
	key TEXT NOT NULL UNIQUE,
	content TEXT NOT NULL,
	category TEXT NOT NULL,
	embedding BLOB NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS memory_daily (
	date TEXT PRIMARY KEY,
	content TEXT NOT NULL
);
`)
	return err
}

// Store persists or overwrites the entry identified by key. Long content is
// chunked and each chunk embedded and stored under a derived sub-key so that
// Recall can match on any chunk while the caller still addresses the entry
// by its original key.
func (s *Store) Store(ctx context.Context, key, content string, category MemoryCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chunks := SplitIntoChunks(content, s.cfg.Chunk)
	// Drop the chunk rows of any previous version so an overwrite leaves
	// nothing stale behind.
	if _, err := s.db.ExecContext(ctx, `DELETE FROM memory_entries WHERE key LIKE ?`, key+"#%"); err != nil {
		return fmt.Errorf("memory: store %q: %w", key, err)
	}
	if len(chunks) <= 1 {
		return s.storeOne(ctx, key, content, category)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM memory_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("memory: store %q: %w", key, err)
	}
	for _, c := range chunks {
		chunkKey := fmt.Sprintf("%s#%d", key, c.ChunkIndex)
		if err := s.storeOne(ctx, chunkKey, c.Text, category); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) storeOne(ctx context.Context, key, content string, category MemoryCategory) error {
	embedding, err := s.embeddings.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("memory: embed: %w", err)
	}
	now := s.clock().UTC().Format(time.RFC3339)
	blob := encodeEmbedding(embedding)

	_, err = s.db.ExecContext(ctx, `
INSERT INTO memory_entries (id, key, content, category, embedding, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET content=excluded.content, category=excluded.category,
	embedding=excluded.embedding, updated_at=excluded.updated_at`,
		uuid.NewString(), key, content, category.String(), blob, now, now)
	if err != nil {
		return fmt.Errorf("memory: store %q: %w", key, err)
	}
	return nil
}

// Recall searches for entries matching query, scored by
// VectorWeight*cosine + TextWeight*keyword, returning at most limit entries
// with score >= MinScore sorted by descending score.
func (s *Store) Recall(ctx context.Context, query string, limit int) ([]MemoryEntry, error) {
	if limit <= 0 {
		limit = 5
	}

	queryEmbedding, err := s.embeddings.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("memory: embed query: %w", err)
	}
	queryTerms := keywordTerms(query)

	rows, err := s.db.QueryContext(ctx, `SELECT id, key, content, category, embedding, created_at, updated_at FROM memory_entries`)
	if err != nil {
		return nil, fmt.Errorf("memory: recall query: %w", err)
	}
	defer rows.Close()

	var scored []MemoryEntry
	for rows.Next() {
		var id, key, content, categoryStr, createdAt, updatedAt string
		var blob []byte
		if err := rows.Scan(&id, &key, &content, &categoryStr, &blob, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("memory: scan row: %w", err)
		}
		embedding := decodeEmbedding(blob)
		vectorScore := CosineSimilarity(queryEmbedding, embedding)
		textScore := keywordScore(queryTerms, content)
		score := float32(s.cfg.VectorWeight)*vectorScore + float32(s.cfg.TextWeight)*textScore
		if float64(score) < s.cfg.MinScore {
			continue
		}
		scored = append(scored, MemoryEntry{
			ID:        id,
			Key:       baseKey(key),
			Content:   content,
			Category:  ParseCategory(categoryStr),
			Score:     score,
			CreatedAt: createdAt,
			UpdatedAt: updatedAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// Forget removes every entry (and chunk) stored under key. Returns true if
// at least one row was removed.
func (s *Store) Forget(ctx context.Context, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM memory_entries WHERE key = ? OR key LIKE ?`, key, key+"#%")
	if err != nil {
		return false, fmt.Errorf("memory: forget %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// StoreDaily appends content to today's diary entry, newline-joined with any
// existing content for the day.
func (s *Store) StoreDaily(ctx context.Context, content string) error {
	date := s.clock().UTC().Format("2006-01-02")
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, _, err := s.recallDailyLocked(ctx, date)
	if err != nil {
		return err
	}
	merged := content
	if existing != "" {
		merged = existing + "\n" + content
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO memory_daily (date, content) VALUES (?, ?)
ON CONFLICT(date) DO UPDATE SET content=excluded.content`, date, merged)
	if err != nil {
		return fmt.Errorf("memory: store_daily: %w", err)
	}
	return nil
}

// RecallDaily retrieves the diary content for date (format YYYY-MM-DD).
func (s *Store) RecallDaily(ctx context.Context, date string) (string, bool, error) {
	return s.recallDailyLocked(ctx, date)
}

func (s *Store) recallDailyLocked(ctx context.Context, date string) (string, bool, error) {
	var content string
	err := s.db.QueryRowContext(ctx, `SELECT content FROM memory_daily WHERE date = ?`, date).Scan(&content)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("memory: recall_daily %q: %w", date, err)
	}
	return content, true, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func baseKey(key string) string {
	idx := strings.LastIndex(key, "#")
	if idx < 0 {
		return key
	}
	suffix := key[idx+1:]
	if _, err := strconv.Atoi(suffix); err != nil {
		return key
	}
	return key[:idx]
}

func encodeEmbedding(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeEmbedding(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}

// keywordTerms lower-cases and splits query into unique word terms.
func keywordTerms(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	seen := make(map[string]bool, len(fields))
	var out []string
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:\"'()")
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// keywordScore is the fraction of query terms present in content, a simple
// term-overlap proxy for BM25-style term-frequency scoring.
func keywordScore(queryTerms []string, content string) float32 {
	if len(queryTerms) == 0 {
		return 0
	}
	lower := strings.ToLower(content)
	matched := 0
	for _, term := range queryTerms {
		if strings.Contains(lower, term) {
			matched++
		}
	}
	return float32(matched) / float32(len(queryTerms))
}

var _ Memory = (*Store)(nil)
