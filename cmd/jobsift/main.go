package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/config"
	"github.com/jobsift/jobsift/internal/core"
	"github.com/jobsift/jobsift/internal/di"
	"github.com/jobsift/jobsift/internal/rpc"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	cfg *config.Config,
	worker *rpc.Worker,
	provider rpc.Provider,
	store core.RegistryStore,
	orchestrator *core.Orchestrator,
) error {
	defer logger.Sync()

	// SIGINT/SIGTERM cancel cooperatively; the run stops at the next
	// chunk boundary.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The worker outlives the cancellation signal so an interrupted
	// run can finish its current chunk; Stop tears it down afterwards.
	worker.Start(context.Background())
	defer worker.Stop()

	query := cfg.GetFetch().Query
	logger.Info("Starting jobsift run", zap.String("query", query))

	result, err := orchestrator.Run(ctx, query)
	if err != nil {
		logger.Error("Run aborted", zap.Error(err))
	}
	if result != nil {
		logger.Info("Run finished",
			zap.String("state", string(result.State)),
			zap.Int("processed", len(result.Outcomes)),
			zap.Int("errors", len(result.Errors)))
		for _, msg := range result.Errors {
			logger.Warn("Run error", zap.String("detail", msg))
		}
	}

	// Close any resources that need closing
	if closer, ok := provider.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM provider", zap.Error(err))
		}
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close registry store", zap.Error(err))
		}
	}

	return err
}
