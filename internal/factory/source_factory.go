package factory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/adapters/gmail"
	"github.com/jobsift/jobsift/internal/adapters/mailfile"
	"github.com/jobsift/jobsift/internal/config"
	"github.com/jobsift/jobsift/internal/core"
)

// SourceFactory creates email sources
type SourceFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewSourceFactory creates a new source factory
func NewSourceFactory(cfg *config.Config, logger *zap.Logger) *SourceFactory {
	return &SourceFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateEmailSource creates a new email source based on the configuration
func (f *SourceFactory) CreateEmailSource(ctx context.Context) (core.EmailSource, error) {
	sourceType := f.cfg.GetString("source.type")

	switch sourceType {
	case "gmail":
		gmailConfig := f.cfg.GetGmail()
		fetchConfig := f.cfg.GetFetch()
		return gmail.NewSource(
			ctx,
			gmailConfig.ClientID,
			gmailConfig.ClientSecret,
			gmailConfig.RefreshToken,
			gmailConfig.UserEmail,
			int64(fetchConfig.PageSize),
			f.logger,
		)
	case "file":
		return mailfile.NewSource(
			f.cfg.GetString("source.file_path"),
			f.cfg.GetFetch().PageSize,
			f.logger,
		)
	default:
		return nil, fmt.Errorf("unsupported email source: %s", sourceType)
	}
}
