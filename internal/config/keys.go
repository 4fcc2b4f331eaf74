package config

const (
	KeyPostgresURL      = "postgres_url"
	KeyRedisURL         = "redis_url"
	KeyOllamaURL        = "ollama_url"
	KeyLogLevel         = "log_level"
	KeyEmbeddingModel   = "embedding_model_name"
	KeyEmbeddingDim     = "embedding_dimension"
	KeyEmbedBatchSize   = "embed_batch_size"
	KeyLLMModel         = "llm_model"
	KeyLLMCallTimeout   = "llm_call_timeout"
	KeyCloneDir         = "clone_dir"
	KeyCloneTimeout     = "clone_timeout"
	KeyChunkWindowLines = "chunk_window_lines"
	KeyHTTPAddr         = "http_addr"
	KeyQueueName        = "queue_name"
	KeyProbeTimeout     = "queue_probe_timeout"
	KeyAutoMigrate      = "auto_migrate"
	KeyDBDebug          = "db_debug"
)
