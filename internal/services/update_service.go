package services

import (
	"context"
	"log/slog"

	"gateguard/internal/updater"
	"gateguard/pkg/contracts/domain"
)

// UpdateService exposes the update subsystem to the transport layer.
type UpdateService interface {
	Version() string
	Check(ctx context.Context) (*domain.UpdateCheckResponse, error)
	Latest(ctx context.Context) (*domain.UpdateManifestEntry, error)
	Install(ctx context.Context, req domain.UpdateRequest) error
	AutoUpdate(ctx context.Context) (*domain.UpdateCheckResponse, error)
}

type updateService struct {
	updater *updater.Service
	logger  *slog.Logger
}

// NewUpdateService creates the update service around an updater.
func NewUpdateService(u *updater.Service, logger *slog.Logger) UpdateService {
	return &updateService{
		updater: u,
		logger:  logger.With(slog.String("service", "update")),
	}
}

func (s *updateService) Version() string {
	return s.updater.CurrentVersion()
}

func (s *updateService) Check(ctx context.Context) (*domain.UpdateCheckResponse, error) {
	return s.updater.CheckForUpdates(ctx)
}

func (s *updateService) Latest(ctx context.Context) (*domain.UpdateManifestEntry, error) {
	return s.updater.LatestVersionInfo(ctx)
}

func (s *updateService) Install(ctx context.Context, req domain.UpdateRequest) error {
	return s.updater.DownloadAndInstall(ctx, req)
}

func (s *updateService) AutoUpdate(ctx context.Context) (*domain.UpdateCheckResponse, error) {
	return s.updater.AutoUpdate(ctx)
}
