package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"chat-orchestrator/internal/domain"
)

// Config holds retrieval stage parameters.
type Config struct {
	// SearchLimit is the per-query candidate pool size before ranking.
	SearchLimit int
	// RRFK is the reciprocal-rank-fusion constant.
	RRFK float64
	CacheSize int
	CacheTTL  time.Duration
}

// Searcher is the token-budgeted hybrid retriever. It fuses vector and
// keyword search with RRF, caps the result at the requested document count,
// and trims the ranked list to the source token budget.
type Searcher struct {
	encoder   domain.VectorEncoder
	chunkRepo domain.DocumentChunkRepository
	counter   domain.TokenCounter
	cache     *expirable.LRU[string, []domain.KnowledgeSource]
	cfg       Config
	logger    *slog.Logger
}

func NewSearcher(
	encoder domain.VectorEncoder,
	chunkRepo domain.DocumentChunkRepository,
	counter domain.TokenCounter,
	cfg Config,
	logger *slog.Logger,
) *Searcher {
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = 50
	}
	if cfg.RRFK <= 0 {
		cfg.RRFK = 60.0
	}
	var cache *expirable.LRU[string, []domain.KnowledgeSource]
	if cfg.CacheSize > 0 {
		cache = expirable.NewLRU[string, []domain.KnowledgeSource](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	return &Searcher{
		encoder:   encoder,
		chunkRepo: chunkRepo,
		counter:   counter,
		cache:     cache,
		cfg:       cfg,
		logger:    logger,
	}
}

var _ domain.KnowledgeRetriever = (*Searcher)(nil)

func (s *Searcher) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.KnowledgeSource, error) {
	retrievalID := uuid.New().String()
	key := cacheKey(query, opts)

	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			s.logger.Info("retrieval_cache_hit",
				slog.String("retrieval_id", retrievalID),
				slog.String("index", opts.IndexName))
			return cached, nil
		}
	}

	embeddings, err := s.encoder.Encode(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("encoder returned no embedding")
	}

	searchStart := time.Now()
	var vectorHits, keywordHits []domain.ChunkSearchResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := s.chunkRepo.Search(gctx, opts.IndexName, embeddings[0], opts.OwnerID, opts.CandidateDocumentIDs, s.cfg.SearchLimit)
		if err != nil {
			return fmt.Errorf("vector search: %w", err)
		}
		vectorHits = hits
		return nil
	})
	g.Go(func() error {
		hits, err := s.chunkRepo.KeywordSearch(gctx, opts.IndexName, query, opts.OwnerID, s.cfg.SearchLimit)
		if err != nil {
			return fmt.Errorf("keyword search: %w", err)
		}
		keywordHits = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := fuseHybridResults(vectorHits, keywordHits, s.cfg.RRFK)

	s.logger.Info("hybrid_search_completed",
		slog.String("retrieval_id", retrievalID),
		slog.String("index", opts.IndexName),
		slog.Int("vector_count", len(vectorHits)),
		slog.Int("keyword_count", len(keywordHits)),
		slog.Int("fused_count", len(fused)),
		slog.Int64("duration_ms", time.Since(searchStart).Milliseconds()))

	if opts.TopK > 0 && len(fused) > opts.TopK {
		fused = fused[:opts.TopK]
	}

	sources := make([]domain.KnowledgeSource, 0, len(fused))
	for _, hit := range fused {
		sources = append(sources, domain.KnowledgeSource{
			Locator: buildLocator(hit, opts.UseSourcePage),
			Content: hit.Chunk.Content,
		})
	}

	sources = FilterByTokenBudget(sources, opts.MaxSourceTokens, s.counter)

	if s.cache != nil {
		s.cache.Add(key, sources)
	}
	return sources, nil
}

// fuseHybridResults merges vector and keyword hits with reciprocal rank
// fusion, keyed by chunk id.
func fuseHybridResults(vectorHits, keywordHits []domain.ChunkSearchResult, rrfK float64) []domain.ChunkSearchResult {
	type fusedResult struct {
		hit      domain.ChunkSearchResult
		rrfScore float64
	}
	fusedMap := make(map[uuid.UUID]*fusedResult, len(vectorHits)+len(keywordHits))

	for rank, hit := range vectorHits {
		if _, exists := fusedMap[hit.Chunk.ID]; !exists {
			fusedMap[hit.Chunk.ID] = &fusedResult{hit: hit}
		}
		fusedMap[hit.Chunk.ID].rrfScore += 1.0 / (rrfK + float64(rank+1))
	}
	for rank, hit := range keywordHits {
		if _, exists := fusedMap[hit.Chunk.ID]; !exists {
			fusedMap[hit.Chunk.ID] = &fusedResult{hit: hit}
		}
		fusedMap[hit.Chunk.ID].rrfScore += 1.0 / (rrfK + float64(rank+1))
	}

	results := make([]domain.ChunkSearchResult, 0, len(fusedMap))
	scores := make(map[uuid.UUID]float64, len(fusedMap))
	for id, fr := range fusedMap {
		fr.hit.Score = float32(fr.rrfScore)
		results = append(results, fr.hit)
		scores[id] = fr.rrfScore
	}
	sort.Slice(results, func(i, j int) bool {
		si, sj := scores[results[i].Chunk.ID], scores[results[j].Chunk.ID]
		if si != sj {
			return si > sj
		}
		// Stable fallback so equal-score hits keep a deterministic order.
		return results[i].Chunk.ID.String() < results[j].Chunk.ID.String()
	})
	return results
}

// buildLocator renders the citation locator for one hit. With page-qualified
// citations enabled the page number is appended so the client can deep-link.
func buildLocator(hit domain.ChunkSearchResult, useSourcePage bool) string {
	if useSourcePage && hit.Chunk.Page > 0 {
		return fmt.Sprintf("%s#page=%d", hit.FileName, hit.Chunk.Page)
	}
	return hit.FileName
}

func cacheKey(query string, opts domain.SearchOptions) string {
	var b strings.Builder
	b.WriteString(opts.IndexName)
	b.WriteByte(0)
	b.WriteString(query)
	b.WriteByte(0)
	b.WriteString(opts.OwnerID)
	b.WriteByte(0)
	fmt.Fprintf(&b, "%d|%d|%t", opts.TopK, opts.MaxSourceTokens, opts.UseSourcePage)
	for _, id := range opts.CandidateDocumentIDs {
		b.WriteByte(0)
		b.WriteString(id)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
