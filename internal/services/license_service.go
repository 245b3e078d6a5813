// Package services provides the business-logic layer between the HTTP
// handlers and the domain packages.
package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gateguard/internal/infrastructure"
	"gateguard/internal/license"
)

// LicenseService exposes license state to the transport layer. EnsureValid is
// the startup gate; Status is a read-only view of the current grant.
type LicenseService interface {
	EnsureValid(ctx context.Context) (*license.Grant, error)
	Status(ctx context.Context) (*LicenseStatusResponse, error)
	Current() *license.Grant
}

// LicenseStatusResponse is the license status payload.
type LicenseStatusResponse struct {
	LicenseStatus string    `json:"license_status"` // active|not_validated
	Message       string    `json:"message"`
	LicenseKey    string    `json:"license_key,omitempty"`
	Features      []string  `json:"features,omitempty"`
	ExpiresAt     time.Time `json:"expires_at,omitempty"`
	GraceUntil    time.Time `json:"grace_until,omitempty"`
	Source        string    `json:"source,omitempty"`
	DaysLeft      int       `json:"days_left,omitempty"`
	TraceID       string    `json:"trace_id"`
	Timestamp     time.Time `json:"timestamp"`
}

type licenseService struct {
	verifier *license.Verifier
	logger   *slog.Logger

	mu      sync.RWMutex
	current *license.Grant
}

// NewLicenseService creates the license service around a verifier.
func NewLicenseService(verifier *license.Verifier, logger *slog.Logger) LicenseService {
	return &licenseService{
		verifier: verifier,
		logger:   logger.With(slog.String("service", "license")),
	}
}

// EnsureValid runs a validation cycle and, on success, replaces the current
// grant handle.
func (s *licenseService) EnsureValid(ctx context.Context) (*license.Grant, error) {
	grant, err := s.verifier.EnsureValid(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.current = grant
	s.mu.Unlock()

	return grant, nil
}

// Current returns the grant produced by the last successful validation, or
// nil before the startup gate has passed.
func (s *licenseService) Current() *license.Grant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Status reports the current license state.
func (s *licenseService) Status(ctx context.Context) (*LicenseStatusResponse, error) {
	resp := &LicenseStatusResponse{
		TraceID:   infrastructure.TraceIDFromContext(ctx),
		Timestamp: time.Now().UTC(),
	}

	grant := s.Current()
	if grant == nil {
		resp.LicenseStatus = "not_validated"
		resp.Message = "License has not been validated"
		return resp, nil
	}

	daysLeft := int(time.Until(grant.ExpiresAt()).Hours() / 24)
	resp.LicenseStatus = "active"
	resp.Message = "License is valid"
	resp.LicenseKey = grant.LicenseKey()
	resp.Features = grant.EnabledFeatures()
	resp.ExpiresAt = grant.ExpiresAt()
	resp.GraceUntil = grant.NextVerificationAt()
	resp.Source = string(grant.Source())
	resp.DaysLeft = daysLeft

	return resp, nil
}
