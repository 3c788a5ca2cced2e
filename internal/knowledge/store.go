// Package knowledge implements the engine's Retriever contract on top
// of PostgreSQL + pgvector.
//
// Query embedding happens through a Genkit embedder; similarity search
// uses cosine distance against the documents table created by the
// migrations in db/. This package only reads; ingestion is handled
// elsewhere.
package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/okampo/ragline/internal/engine"
	"github.com/okampo/ragline/internal/log"
)

// searchSQL returns the top-K documents by cosine distance.
// `embedding <=> $1` is pgvector's cosine distance operator.
const searchSQL = `
SELECT content, metadata, embedding <=> $1 AS distance
FROM documents
ORDER BY embedding <=> $1
LIMIT $2`

// Store retrieves document fragments by vector similarity.
// Safe for concurrent use by multiple goroutines.
type Store struct {
	pool     *pgxpool.Pool
	embedder ai.Embedder
	logger   log.Logger
}

// New creates a Store backed by the given pool and embedder.
func New(pool *pgxpool.Pool, embedder ai.Embedder, logger log.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		pool:     pool,
		embedder: embedder,
		logger:   logger,
	}
}

// Retrieve implements engine.Retriever: it embeds the query and returns
// the topK nearest documents ordered by descending relevance.
func (s *Store) Retrieve(ctx context.Context, query string, topK int) ([]engine.RetrievedNode, error) {
	embedding, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, searchSQL, pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	defer rows.Close()

	var nodes []engine.RetrievedNode
	for rows.Next() {
		var (
			content  string
			metadata []byte
			distance float64
		)
		if err := rows.Scan(&content, &metadata, &distance); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}

		node, err := nodeFromRow(content, metadata, distance)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document rows: %w", err)
	}

	s.logger.Debug("vector search complete", "nodes", len(nodes), "top_k", topK)
	return nodes, nil
}

// embedQuery generates the query embedding via the configured embedder.
func (s *Store) embedQuery(ctx context.Context, query string) ([]float32, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{Content: []*ai.Part{ai.NewTextPart(query)}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding returned for query")
	}
	return resp.Embeddings[0].Embedding, nil
}

// nodeFromRow converts a result row into a retrieval node. Cosine
// distance is mapped to a similarity score in [0, 1].
func nodeFromRow(content string, metadata []byte, distance float64) (engine.RetrievedNode, error) {
	node := engine.RetrievedNode{
		Content: content,
		Score:   1 - distance,
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &node.Metadata); err != nil {
			return engine.RetrievedNode{}, fmt.Errorf("decoding document metadata: %w", err)
		}
	}
	return node, nil
}
