// Package shard binds one inverted index and query engine to a logical
// shard: it loads the corpus partition, serves local searches, and
// reports readiness.
package shard

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/lukapolovic/moviesearch/pkg/api"
	"github.com/lukapolovic/moviesearch/pkg/document"
	"github.com/lukapolovic/moviesearch/pkg/index"
	"github.com/lukapolovic/moviesearch/pkg/search"
	"github.com/lukapolovic/moviesearch/pkg/text"
)

// Config holds shard node configuration.
type Config struct {
	// ShardID and NumShards select this node's partition: documents with
	// id mod NumShards == ShardID. With one shard no filtering happens.
	ShardID   int
	NumShards int

	// ReplicaID distinguishes replicas serving the same shard.
	ReplicaID int

	// CorpusPath is the corpus file loaded at startup.
	CorpusPath string

	// Workers bounds concurrent query execution.
	Workers int

	// QueueSize buffers queries waiting for a worker.
	QueueSize int
}

// DefaultConfig returns a single-shard configuration.
func DefaultConfig() *Config {
	return &Config{
		ShardID:   0,
		NumShards: 1,
		ReplicaID: 0,
		Workers:   4,
		QueueSize: 64,
	}
}

// Health is the shard health report.
type Health struct {
	TotalDocuments int    `json:"total_documents"`
	VocabularySize int    `json:"vocabulary_size"`
	Status         string `json:"status"`
}

// Node is one shard replica: an index, an engine, and a readiness flag.
type Node struct {
	config *Config

	tokenizer *text.Tokenizer
	index     *index.Index
	engine    *search.Engine
	pool      *Pool

	ready  atomic.Bool
	logger zerolog.Logger
}

// NewNode creates an unloaded node. Call Load before serving searches.
func NewNode(config *Config, logger zerolog.Logger) *Node {
	if config == nil {
		config = DefaultConfig()
	}

	lexicon := text.NewLexicon()
	tokenizer := text.NewTokenizer(lexicon)
	idx := index.New(tokenizer)

	return &Node{
		config:    config,
		tokenizer: tokenizer,
		index:     idx,
		engine:    search.NewEngine(idx, tokenizer, lexicon),
		pool:      NewPool(config.Workers, config.QueueSize),
		logger:    logger.With().Str("component", "shard").Int("shard_id", config.ShardID).Logger(),
	}
}

// Load reads the corpus, keeps this shard's partition, and builds the
// index. The node reports ready once Load returns.
func (n *Node) Load() error {
	loaded, err := document.LoadCorpus(n.config.CorpusPath)
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}
	if loaded.Skipped > 0 {
		n.logger.Warn().Int("skipped", loaded.Skipped).Msg("skipped invalid corpus records")
	}

	docs := loaded.Documents
	if n.config.NumShards > 1 {
		before := len(docs)
		docs = partition(docs, n.config.ShardID, n.config.NumShards)
		n.logger.Info().
			Int("kept", len(docs)).
			Int("total", before).
			Int("num_shards", n.config.NumShards).
			Msg("partitioned corpus")
	}

	n.index.Build(docs, document.IndexedFields)
	n.ready.Store(true)

	n.logger.Info().
		Int("documents", n.index.TotalDocuments()).
		Int("vocabulary", n.index.VocabularySize()).
		Msg("index built")
	return nil
}

// BuildFrom indexes an already-loaded document batch; tests and embedded
// uses skip the corpus file this way. The partition filter still applies.
func (n *Node) BuildFrom(docs []document.Document) {
	if n.config.NumShards > 1 {
		docs = partition(docs, n.config.ShardID, n.config.NumShards)
	}
	n.index.Build(docs, document.IndexedFields)
	n.ready.Store(true)
}

func partition(docs []document.Document, shardID, numShards int) []document.Document {
	kept := make([]document.Document, 0, len(docs)/numShards+1)
	for _, doc := range docs {
		if doc.ID%numShards == shardID {
			kept = append(kept, doc)
		}
	}
	return kept
}

// Ready reports whether the index has been built.
func (n *Node) Ready() bool {
	return n.ready.Load()
}

// Health returns index statistics. It answers even before the index is
// built; liveness and readiness are separate questions.
func (n *Node) Health() Health {
	return Health{
		TotalDocuments: n.index.TotalDocuments(),
		VocabularySize: n.index.VocabularySize(),
		Status:         "ok",
	}
}

// Pool returns the query worker pool.
func (n *Node) Pool() *Pool {
	return n.pool
}

// Close releases the node's workers.
func (n *Node) Close() {
	n.pool.Stop()
}

// Search executes a local query and paginates the results. The engine
// always runs in debug mode: the coordinator needs scores to merge shard
// responses. Scores and explanations reach the response only when the
// caller asked for debug.
func (n *Node) Search(query string, page, pageSize int, debug bool) (*api.SearchResponse, error) {
	if !n.ready.Load() || n.index.TotalDocuments() == 0 {
		return nil, api.ErrIndexNotReady()
	}
	if strings.TrimSpace(query) == "" {
		return nil, api.ErrInvalidQuery(map[string]any{"query": query})
	}
	if page < 1 {
		return nil, api.ErrInvalidQuery(map[string]any{"page": page})
	}
	if pageSize < 1 {
		pageSize = api.DefaultPageSize
	}

	raw := n.engine.Search(query, true)

	totalHits := len(raw)
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > totalHits {
		start = totalHits
	}
	if end > totalHits {
		end = totalHits
	}

	results := make([]api.SearchResult, 0, end-start)
	for _, r := range raw[start:end] {
		item := api.SearchResult{
			DocID:    r.DocID,
			Title:    r.Title,
			Director: r.Director,
			Cast:     r.Cast,
			Year:     strconv.Itoa(r.Year),
			Rating:   strconv.FormatFloat(r.Rating, 'g', -1, 64),
		}
		if debug {
			score := r.Score
			item.Score = &score
			item.Explanations = r.Explanations
		}
		results = append(results, item)
	}

	return &api.SearchResponse{
		Query:     query,
		TotalHits: totalHits,
		Page:      page,
		PageSize:  pageSize,
		Results:   results,
	}, nil
}
