package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/adapters/inference"
	"github.com/jobsift/jobsift/internal/adapters/mailfile"
	"github.com/jobsift/jobsift/internal/adapters/store"
	"github.com/jobsift/jobsift/internal/config"
	"github.com/jobsift/jobsift/internal/core"
	"github.com/jobsift/jobsift/internal/factory"
	"github.com/jobsift/jobsift/internal/logging"
	"github.com/jobsift/jobsift/internal/rpc"
	"github.com/jobsift/jobsift/internal/utils"
)

var (
	// LLM provider flags
	provider    = flag.String("provider", "openai", "LLM provider (bedrock, gemini, openai)")
	maxTokens   = flag.Int("max-tokens", 1000, "Maximum tokens for LLM response")
	temperature = flag.Float64("temperature", 0.1, "Temperature for LLM generation")
	topP        = flag.Float64("top-p", 0.9, "Top-p for LLM generation")

	// Bedrock flags
	bedrockRegion  = flag.String("bedrock-region", "us-east-1", "AWS region for Bedrock")
	bedrockModelID = flag.String("bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Gemini flags
	geminiAPIKey    = flag.String("gemini-api-key", "", "API key for Google Gemini")
	geminiModelName = flag.String("gemini-model", "gemini-pro", "Gemini model name")

	// OpenAI flags
	openaiAPIKey    = flag.String("openai-api-key", "", "API key for OpenAI")
	openaiModelName = flag.String("openai-model", "gpt-4", "OpenAI model name")

	// Pipeline flags
	chunkSize      = flag.Int("chunk-size", 5, "Emails processed per chunk")
	maxContentSize = flag.Int("max-content-size", inference.DefaultMaxContentSize, "Email prefix size sent to the LLM")

	// Input flags
	inputFile  = flag.String("file", "emails.json", "JSON file of emails to process")
	jsonOut    = flag.Bool("json", false, "Print outcomes as JSON")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog    = flag.Bool("json-log", false, "Output logs in JSON format")
	configFile = flag.String("config", "", "Path to config file (overrides command line flags)")
)

func main() {
	flag.Parse()

	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var cfg *config.Config
	if *configFile != "" {
		cfg, err = config.New()
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		logger.Info("Loaded configuration from file",
			zap.String("file", cfg.GetViper().ConfigFileUsed()))
	} else {
		cfg = createConfigFromFlags()
	}

	ctx := context.Background()

	llm, err := factory.NewProviderFactory(cfg, logger).CreateProvider(ctx)
	if err != nil {
		logger.Fatal("Failed to create LLM provider", zap.Error(err))
	}

	inferenceConfig := cfg.GetInference()
	worker := rpc.NewWorker(llm, logger, inferenceConfig.QueueSize)
	channel := rpc.NewChannel(worker, inferenceConfig.RequestTimeout, logger)
	worker.Attach(channel)
	worker.Start(ctx)
	defer worker.Stop()

	source, err := mailfile.NewSource(*inputFile, cfg.GetFetch().PageSize, logger)
	if err != nil {
		logger.Fatal("Failed to load email file", zap.Error(err))
	}

	registryStore := store.NewMemoryStore(logger)
	registry := core.NewRegistry(registryStore, logger)
	textProcessor := utils.NewTextProcessor(logger)
	adapter := inference.NewAdapter(channel, textProcessor, inferenceConfig.MaxContentSize, logger)
	pipeline := core.NewPipeline(adapter, registry, registryStore, logger)

	fetchConfig := cfg.GetFetch()
	orchestrator := core.NewOrchestrator(
		source, pipeline, registry, nil, logger,
		cfg.GetPipeline().ChunkSize, fetchConfig.BatchSize, fetchConfig.BatchDelay,
	)

	result, err := orchestrator.Run(ctx, "")
	if err != nil {
		logger.Fatal("Run aborted", zap.Error(err))
	}

	printResult(result, registry)
}

func printResult(result *core.RunResult, registry *core.Registry) {
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(struct {
			State        core.RunState                     `json:"state"`
			Outcomes     []*core.ProcessingOutcome         `json:"outcomes"`
			Errors       []string                          `json:"errors,omitempty"`
			Applications map[string]*core.ApplicationEntry `json:"applications"`
		}{result.State, result.Outcomes, result.Errors, registry.Snapshot()})
		return
	}

	fmt.Printf("Run %s: %d emails processed, %d errors\n",
		result.State, len(result.Outcomes), len(result.Errors))
	for _, out := range result.Outcomes {
		line := fmt.Sprintf("  %s  job_related=%t", out.EmailID, out.IsJobRelated)
		if out.JobData != nil {
			line += fmt.Sprintf("  %s / %s", out.JobData.CompanyName, out.JobData.Title)
		}
		if out.IsJobRelated {
			line += fmt.Sprintf("  status=%s first=%t", out.Status, out.IsFirstInstance)
		}
		fmt.Println(line)
	}

	fmt.Printf("\nApplications (%d):\n", registry.Len())
	for key, entry := range registry.Snapshot() {
		fmt.Printf("  %s  emails=%d  status=%s  history=%v\n",
			key, entry.EmailCount, entry.CurrentStatus, entry.StatusHistory)
	}
	if len(result.Errors) > 0 {
		fmt.Println("\nErrors:")
		for _, msg := range result.Errors {
			fmt.Printf("  %s\n", msg)
		}
	}
}

// createConfigFromFlags builds a configuration from the command line flags
func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()

	v.Set("llm.provider", *provider)

	v.Set("bedrock.region", *bedrockRegion)
	v.Set("bedrock.model_id", *bedrockModelID)
	v.Set("bedrock.max_tokens", *maxTokens)
	v.Set("bedrock.temperature", *temperature)
	v.Set("bedrock.top_p", *topP)

	v.Set("gemini.api_key", *geminiAPIKey)
	v.Set("gemini.model_name", *geminiModelName)
	v.Set("gemini.max_tokens", *maxTokens)
	v.Set("gemini.temperature", *temperature)
	v.Set("gemini.top_p", *topP)

	v.Set("openai.api_key", *openaiAPIKey)
	v.Set("openai.model_name", *openaiModelName)
	v.Set("openai.max_tokens", *maxTokens)
	v.Set("openai.temperature", *temperature)
	v.Set("openai.top_p", *topP)

	v.Set("inference.max_content_size", *maxContentSize)
	v.Set("pipeline.chunk_size", *chunkSize)
	v.Set("source.type", "file")
	v.Set("source.file_path", *inputFile)
	v.Set("storage.type", "memory")

	return config.NewFromViper(v)
}
