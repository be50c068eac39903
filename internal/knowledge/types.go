package knowledge

import "time"

// Metadata keys used by the indexer.
const (
	// MetaSource is the originating document name (file path or seed name).
	MetaSource = "source"

	// MetaTopic is an optional subject tag for filtered retrieval.
	MetaTopic = "topic"

	// MetaKind distinguishes how the chunk entered the store.
	MetaKind = "kind"
)

// Kind values for MetaKind.
const (
	KindSeed     = "seed"
	KindUploaded = "uploaded"
)

// Document is one embedded chunk of study material.
type Document struct {
	ID        string            // Unique identifier, "<source>#<chunk>" for chunked files
	Content   string            // Chunk text
	Metadata  map[string]string // source, topic, kind
	CreatedAt time.Time
}

// Result is a search hit with its cosine similarity to the query.
type Result struct {
	Document   Document
	Similarity float32 // 1.0 identical, 0.0 orthogonal
}

// SearchOption configures Search using the functional options pattern.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK    int
	filter  map[string]string
	timeout time.Duration
}

// WithTopK sets the maximum number of results. Default is 3.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithFilter restricts results to documents whose metadata contains the
// key/value pair. Multiple filters combine with AND logic.
func WithFilter(key, value string) SearchOption {
	return func(c *searchConfig) {
		if c.filter == nil {
			c.filter = make(map[string]string)
		}
		c.filter[key] = value
	}
}

// WithTimeout overrides the per-search deadline. Default is 10 seconds.
func WithTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK:    3,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
