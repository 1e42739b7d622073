// Package catalog holds the in-memory product table with precomputed
// embeddings and answers similarity queries over it.
package catalog

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/fitpick/fitpick/internal/domain"
	"github.com/fitpick/fitpick/internal/metrics"
)

// maxLineBytes bounds a single JSONL row (embedding vectors make rows large).
const maxLineBytes = 4 << 20

// Store is the read-only product catalog. It is loaded once at startup and is
// safe for unlimited concurrent readers.
type Store struct {
	products   []domain.Product
	embeddings [][]float32
	dim        int
}

// row mirrors one JSONL catalog line.
type row struct {
	Title         string    `json:"title"`
	AverageRating float64   `json:"average_rating"`
	RatingNumber  int       `json:"rating_number"`
	Price         float64   `json:"price"`
	Store         string    `json:"store"`
	Thumbnail     string    `json:"thumbnail"`
	Embedding     []float32 `json:"embedding"`
}

// Load reads a JSONL catalog file. Rows that fail to decode or validate are
// logged and dropped; only a completely unreadable file is an error.
func Load(path string, logger *zap.Logger) (*Store, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	s := &Store{}
	dropped := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(strings.TrimSpace(string(raw))) == 0 {
			continue
		}

		var r row
		if err := json.Unmarshal(raw, &r); err != nil {
			logger.Warn("dropping catalog row",
				zap.Int("line", line),
				zap.Error(fmt.Errorf("%w: %w", domain.ErrMapping, err)),
			)
			dropped++
			continue
		}
		if err := s.append(r); err != nil {
			logger.Warn("dropping catalog row",
				zap.Int("line", line),
				zap.Error(fmt.Errorf("%w: %w", domain.ErrMapping, err)),
			)
			dropped++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	metrics.CatalogProducts.Set(float64(len(s.products)))
	metrics.CatalogRowsDroppedTotal.Add(float64(dropped))

	logger.Info("catalog loaded",
		zap.String("path", path),
		zap.Int("products", len(s.products)),
		zap.Int("dropped", dropped),
		zap.Int("dimensions", s.dim),
	)
	return s, nil
}

// New builds a Store from already-materialized products and their embeddings.
// products[i] must correspond to embeddings[i].
func New(products []domain.Product, embeddings [][]float32) (*Store, error) {
	if len(products) != len(embeddings) {
		return nil, fmt.Errorf("products/embeddings length mismatch: %d vs %d", len(products), len(embeddings))
	}
	s := &Store{}
	for i, p := range products {
		if err := s.append(row{
			Title:         p.Title,
			AverageRating: p.AverageRating,
			RatingNumber:  p.RatingNumber,
			Price:         p.Price,
			Store:         p.Store,
			Thumbnail:     p.Thumbnail,
			Embedding:     embeddings[i],
		}); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return s, nil
}

// append validates one row and adds it to the table.
func (s *Store) append(r row) error {
	switch {
	case r.Title == "":
		return fmt.Errorf("%w: empty title", domain.ErrMapping)
	case r.AverageRating < 0 || r.AverageRating > 5:
		return fmt.Errorf("%w: average_rating %g out of range", domain.ErrMapping, r.AverageRating)
	case r.RatingNumber < 0:
		return fmt.Errorf("%w: negative rating_number", domain.ErrMapping)
	case r.Price < 0:
		return fmt.Errorf("%w: negative price", domain.ErrMapping)
	case len(r.Embedding) == 0:
		return fmt.Errorf("%w: missing embedding", domain.ErrMapping)
	}

	if s.dim == 0 {
		s.dim = len(r.Embedding)
	} else if len(r.Embedding) != s.dim {
		return fmt.Errorf("%w: embedding has %d dimensions, catalog has %d",
			domain.ErrMapping, len(r.Embedding), s.dim)
	}

	s.products = append(s.products, domain.Product{
		Title:         r.Title,
		AverageRating: r.AverageRating,
		RatingNumber:  r.RatingNumber,
		Price:         r.Price,
		Store:         r.Store,
		Thumbnail:     r.Thumbnail,
	})
	s.embeddings = append(s.embeddings, r.Embedding)
	return nil
}

// Len returns the number of loaded products.
func (s *Store) Len() int { return len(s.products) }

// Dimensions returns the embedding dimensionality of the catalog, 0 when empty.
func (s *Store) Dimensions() int { return s.dim }

// Ready reports whether the catalog is usable.
func (s *Store) Ready(context.Context) error {
	if len(s.products) == 0 {
		return fmt.Errorf("%w: catalog is empty", domain.ErrRetrieval)
	}
	return nil
}

// FindSimilar returns the union of per-query top-K products ranked by dot
// product similarity, deduplicated and ordered by catalog position.
// Deterministic given identical inputs: within one query, equal scores break
// ties toward the lower catalog index.
func (s *Store) FindSimilar(_ context.Context, queryVectors [][]float32, topK int) ([]domain.Product, error) {
	if len(s.products) == 0 || len(queryVectors) == 0 {
		return nil, nil
	}
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", domain.ErrRetrieval, topK)
	}
	for i, v := range queryVectors {
		if len(v) != s.dim {
			return nil, fmt.Errorf("%w: query vector %d has %d dimensions, catalog has %d",
				domain.ErrRetrieval, i, len(v), s.dim)
		}
	}

	selected := make(map[int]struct{})
	for _, q := range queryVectors {
		for _, idx := range s.topIndices(q, topK) {
			selected[idx] = struct{}{}
		}
	}

	indices := make([]int, 0, len(selected))
	for idx := range selected {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	out := make([]domain.Product, len(indices))
	for i, idx := range indices {
		out[i] = s.products[idx]
	}
	return out, nil
}

// topIndices returns the indices of the topK highest-scoring products for one
// query vector.
func (s *Store) topIndices(query []float32, topK int) []int {
	type scored struct {
		idx   int
		score float64
	}

	scores := make([]scored, len(s.embeddings))
	for i, emb := range s.embeddings {
		scores[i] = scored{idx: i, score: dot(query, emb)}
	}

	sort.Slice(scores, func(a, b int) bool {
		if scores[a].score != scores[b].score {
			return scores[a].score > scores[b].score
		}
		return scores[a].idx < scores[b].idx
	})

	if topK > len(scores) {
		topK = len(scores)
	}
	out := make([]int, topK)
	for i := 0; i < topK; i++ {
		out[i] = scores[i].idx
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
