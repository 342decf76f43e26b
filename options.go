package cvassist

import "go.uber.org/zap"

// Option configures the Client.
type Option func(*clientConfig)

type clientConfig struct {
	addrs    []string
	password string

	embeddingKey     string
	embeddingBaseURL string
	embeddingModel   string
	dimensions       int

	generationKey     string
	generationBaseURL string
	generationModel   string
	temperature       float32
	maxTokens         int

	collection string
	keyPrefix  string

	profilePath string

	maxChars  int
	overlap   int
	batchSize int

	topK         int
	historyTurns int

	logger *zap.Logger
}

// WithRedis configures the vector store connection.
func WithRedis(addr, password string) Option {
	return func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	}
}

// WithEmbedding sets the embedding provider credentials and model.
// Required: queries and ingestion both vectorize text.
func WithEmbedding(apiKey, model string, dimensions int) Option {
	return func(c *clientConfig) {
		c.embeddingKey = apiKey
		c.embeddingModel = model
		c.dimensions = dimensions
	}
}

// WithEmbeddingBaseURL points the embedder at an OpenAI-compatible
// endpoint other than the default.
func WithEmbeddingBaseURL(baseURL string) Option {
	return func(c *clientConfig) {
		c.embeddingBaseURL = baseURL
	}
}

// WithGeneration sets the answer generation credentials and model.
// Without it the client can ingest and retrieve but not answer.
func WithGeneration(apiKey, model string) Option {
	return func(c *clientConfig) {
		c.generationKey = apiKey
		c.generationModel = model
	}
}

// WithGenerationBaseURL points the generator at an OpenAI-compatible
// endpoint other than the Groq default.
func WithGenerationBaseURL(baseURL string) Option {
	return func(c *clientConfig) {
		c.generationBaseURL = baseURL
	}
}

// WithSampling overrides the generation temperature and token cap.
func WithSampling(temperature float32, maxTokens int) Option {
	return func(c *clientConfig) {
		c.temperature = temperature
		c.maxTokens = maxTokens
	}
}

// WithCollection names the passage collection. Default "cv".
func WithCollection(name string) Option {
	return func(c *clientConfig) {
		c.collection = name
	}
}

// WithKeyPrefix sets the storage key namespace. Default "cvassist:".
func WithKeyPrefix(prefix string) Option {
	return func(c *clientConfig) {
		c.keyPrefix = prefix
	}
}

// WithProfile loads structured profile facts from a JSON file.
func WithProfile(path string) Option {
	return func(c *clientConfig) {
		c.profilePath = path
	}
}

// WithChunking overrides the passage window size and overlap.
func WithChunking(maxChars, overlap int) Option {
	return func(c *clientConfig) {
		c.maxChars = maxChars
		c.overlap = overlap
	}
}

// WithBatchSize overrides the embedding batch size used at ingestion.
func WithBatchSize(size int) Option {
	return func(c *clientConfig) {
		c.batchSize = size
	}
}

// WithTopK overrides how many passages each query retrieves.
func WithTopK(k int) Option {
	return func(c *clientConfig) {
		c.topK = k
	}
}

// WithHistoryTurns overrides how many trailing conversation turns the
// prompt keeps.
func WithHistoryTurns(n int) Option {
	return func(c *clientConfig) {
		c.historyTurns = n
	}
}

// WithLogger enables structured logging. Default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}
