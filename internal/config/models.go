package config

import "time"

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// InferenceConfig represents the configuration for the inference boundary
type InferenceConfig struct {
	RequestTimeout time.Duration
	MaxContentSize int
	QueueSize      int
}

// PipelineConfig represents the configuration for the processing pipeline
type PipelineConfig struct {
	ChunkSize int
}

// FetchConfig represents the configuration for the retrieval phase
type FetchConfig struct {
	Query      string
	BatchSize  int
	BatchDelay time.Duration
	PageSize   int
}

// GmailConfig represents the configuration for the Gmail source
type GmailConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	UserEmail    string
}

// StorageConfig represents the configuration for the registry store
type StorageConfig struct {
	Type       string
	SQLitePath string
	MySQLDSN   string
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetInference returns the inference boundary configuration
func (c *Config) GetInference() InferenceConfig {
	timeout, err := c.GetDuration("inference.request_timeout")
	if err != nil {
		timeout = 60 * time.Second
	}
	return InferenceConfig{
		RequestTimeout: timeout,
		MaxContentSize: c.GetInt("inference.max_content_size"),
		QueueSize:      c.GetInt("inference.queue_size"),
	}
}

// GetPipeline returns the pipeline configuration
func (c *Config) GetPipeline() PipelineConfig {
	return PipelineConfig{
		ChunkSize: c.GetInt("pipeline.chunk_size"),
	}
}

// GetFetch returns the retrieval configuration
func (c *Config) GetFetch() FetchConfig {
	delay, err := c.GetDuration("fetch.batch_delay")
	if err != nil {
		delay = 500 * time.Millisecond
	}
	return FetchConfig{
		Query:      c.GetString("fetch.query"),
		BatchSize:  c.GetInt("fetch.batch_size"),
		BatchDelay: delay,
		PageSize:   c.GetInt("fetch.page_size"),
	}
}

// GetGmail returns the Gmail source configuration
func (c *Config) GetGmail() GmailConfig {
	return GmailConfig{
		ClientID:     c.GetString("gmail.client_id"),
		ClientSecret: c.GetString("gmail.client_secret"),
		RefreshToken: c.GetString("gmail.refresh_token"),
		UserEmail:    c.GetString("gmail.user_email"),
	}
}

// GetStorage returns the registry store configuration
func (c *Config) GetStorage() StorageConfig {
	return StorageConfig{
		Type:       c.GetString("storage.type"),
		SQLitePath: c.GetString("storage.sqlite_path"),
		MySQLDSN:   c.GetString("storage.mysql_dsn"),
	}
}
