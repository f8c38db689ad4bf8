package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/adapters/store"
	"github.com/jobsift/jobsift/internal/config"
	"github.com/jobsift/jobsift/internal/core"
)

// StoreFactory creates registry stores
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateRegistryStore creates a new registry store based on the configuration
func (f *StoreFactory) CreateRegistryStore() (core.RegistryStore, error) {
	storageConfig := f.cfg.GetStorage()

	switch storageConfig.Type {
	case "memory":
		return store.NewMemoryStore(f.logger), nil
	case "sqlite":
		return store.NewSQLiteStore(storageConfig.SQLitePath, f.logger)
	case "mysql":
		return store.NewMySQLStore(storageConfig.MySQLDSN, f.logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageConfig.Type)
	}
}
