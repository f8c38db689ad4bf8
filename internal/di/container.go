package di

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/adapters/inference"
	"github.com/jobsift/jobsift/internal/adapters/progress"
	"github.com/jobsift/jobsift/internal/config"
	"github.com/jobsift/jobsift/internal/core"
	"github.com/jobsift/jobsift/internal/factory"
	"github.com/jobsift/jobsift/internal/logging"
	"github.com/jobsift/jobsift/internal/rpc"
	"github.com/jobsift/jobsift/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewProviderFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewSourceFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register LLM provider
	if err := container.Provide(func(f *factory.ProviderFactory) (rpc.Provider, error) {
		return f.CreateProvider(context.Background())
	}); err != nil {
		return nil, err
	}

	// Register the worker boundary and its channel. The two are bound
	// together: the worker is the channel's transport and the channel
	// receives the worker's responses.
	if err := container.Provide(func(provider rpc.Provider, cfg *config.Config, logger *zap.Logger) (*rpc.Worker, *rpc.Channel) {
		inferenceConfig := cfg.GetInference()
		worker := rpc.NewWorker(provider, logger, inferenceConfig.QueueSize)
		channel := rpc.NewChannel(worker, inferenceConfig.RequestTimeout, logger)
		worker.Attach(channel)
		channel.SetProgressHandler(func(ev rpc.ProgressEvent) {
			logger.Info("Inference progress",
				zap.String("text", ev.Text),
				zap.Float64("percent", ev.Percent))
		})
		return worker, channel
	}); err != nil {
		return nil, err
	}

	// Register inference service
	if err := container.Provide(func(channel *rpc.Channel, tp *utils.TextProcessor, cfg *config.Config, logger *zap.Logger) core.InferenceService {
		return inference.NewAdapter(channel, tp, cfg.GetInference().MaxContentSize, logger)
	}); err != nil {
		return nil, err
	}

	// Register registry store
	if err := container.Provide(func(f *factory.StoreFactory) (core.RegistryStore, error) {
		return f.CreateRegistryStore()
	}); err != nil {
		return nil, err
	}

	// Register application registry
	if err := container.Provide(core.NewRegistry); err != nil {
		return nil, err
	}

	// Register pipeline
	if err := container.Provide(core.NewPipeline); err != nil {
		return nil, err
	}

	// Register email source
	if err := container.Provide(func(f *factory.SourceFactory) (core.EmailSource, error) {
		return f.CreateEmailSource(context.Background())
	}); err != nil {
		return nil, err
	}

	// Register progress observer
	if err := container.Provide(func(logger *zap.Logger) core.ProgressObserver {
		return progress.NewLogObserver(logger)
	}); err != nil {
		return nil, err
	}

	// Register orchestrator
	if err := container.Provide(func(
		source core.EmailSource,
		pipeline *core.Pipeline,
		registry *core.Registry,
		observer core.ProgressObserver,
		cfg *config.Config,
		logger *zap.Logger,
	) *core.Orchestrator {
		pipelineConfig := cfg.GetPipeline()
		fetchConfig := cfg.GetFetch()
		return core.NewOrchestrator(
			source,
			pipeline,
			registry,
			observer,
			logger,
			pipelineConfig.ChunkSize,
			fetchConfig.BatchSize,
			fetchConfig.BatchDelay,
		)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
