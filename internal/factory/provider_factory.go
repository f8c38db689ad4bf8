package factory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/adapters/bedrock"
	"github.com/jobsift/jobsift/internal/adapters/gemini"
	"github.com/jobsift/jobsift/internal/adapters/openai"
	"github.com/jobsift/jobsift/internal/config"
	"github.com/jobsift/jobsift/internal/rpc"
)

// ProviderFactory creates LLM providers
type ProviderFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(cfg *config.Config, logger *zap.Logger) *ProviderFactory {
	return &ProviderFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateProvider creates a new LLM provider based on the configuration
func (f *ProviderFactory) CreateProvider(ctx context.Context) (rpc.Provider, error) {
	llmConfig := f.cfg.GetLLM()

	switch llmConfig.Provider {
	case "bedrock":
		c := f.cfg.GetBedrock()
		return bedrock.NewProvider(ctx, c.Region, c.ModelID, c.MaxTokens, c.Temperature, c.TopP, f.logger)
	case "gemini":
		c := f.cfg.GetGemini()
		return gemini.NewProvider(ctx, c.APIKey, c.ModelName, c.MaxTokens, c.Temperature, c.TopP, f.logger)
	case "openai":
		c := f.cfg.GetOpenAI()
		return openai.NewProvider(c.APIKey, c.ModelName, c.MaxTokens, c.Temperature, c.TopP, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
}
