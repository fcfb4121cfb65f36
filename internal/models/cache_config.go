package models

// VectorIndexBackend identifies the similarity-search backend
type VectorIndexBackend string

const (
	VectorBackendQdrant   VectorIndexBackend = "qdrant"
	VectorBackendPgvector VectorIndexBackend = "pgvector"
	VectorBackendMemory   VectorIndexBackend = "memory"
)

// VectorIndexConfig holds similarity-search service configuration
type VectorIndexConfig struct {
	Backend   VectorIndexBackend    `yaml:"backend" json:"backend"`
	Dimension int                   `yaml:"dimension" json:"dimension"`
	Qdrant    *QdrantConfig         `yaml:"qdrant,omitempty" json:"qdrant,omitzero"`
	Postgres  *PgvectorIndexConfig  `yaml:"postgres,omitempty" json:"postgres,omitzero"`
}

// QdrantConfig holds connection settings for a Qdrant REST endpoint
type QdrantConfig struct {
	URL       string `yaml:"url" json:"url"`
	APIKey    string `yaml:"api_key,omitempty" json:"-"`
	TimeoutMs int    `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitzero"`
}

// PgvectorIndexConfig holds connection settings for a pgvector-backed index
type PgvectorIndexConfig struct {
	URL string `yaml:"url" json:"url"`
}

// SemanticCacheConfig configures the two-collection semantic cache.
// Enabled defaults to true; nil means unset.
type SemanticCacheConfig struct {
	Enabled             *bool   `yaml:"enabled,omitempty" json:"enabled,omitzero"`
	ResponseThreshold   float32 `yaml:"response_threshold,omitempty" json:"response_threshold,omitzero"`
	DocumentThreshold   float32 `yaml:"document_threshold,omitempty" json:"document_threshold,omitzero"`
	TTLSeconds          int     `yaml:"ttl_seconds,omitempty" json:"ttl_seconds,omitzero"`
	EvictionIntervalMin int     `yaml:"eviction_interval_minutes,omitempty" json:"eviction_interval_minutes,omitzero"`
	DocCollection       string  `yaml:"doc_collection,omitempty" json:"doc_collection,omitzero"`
	ResponseCollection  string  `yaml:"response_collection,omitempty" json:"response_collection,omitzero"`
}

// KnowledgeConfig configures the RAG knowledge-base collection
type KnowledgeConfig struct {
	Collection     string  `yaml:"collection,omitempty" json:"collection,omitzero"`
	RetrievalLimit int     `yaml:"retrieval_limit,omitempty" json:"retrieval_limit,omitzero"`
	ScoreThreshold float32 `yaml:"score_threshold,omitempty" json:"score_threshold,omitzero"`
	ChunkSize      int     `yaml:"chunk_size,omitempty" json:"chunk_size,omitzero"`
}
