// Package setup bootstraps the first super admin of a fresh backend.
package setup

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/digimall/admin-gateway/internal/domain/shared"
	"github.com/digimall/admin-gateway/internal/infrastructure/backend"
	"github.com/digimall/admin-gateway/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Setup errors
var (
	ErrSetupDisabled     = shared.NewDomainError("SETUP_DISABLED", "Setup is disabled on this gateway")
	ErrInvalidSetupToken = shared.NewDomainError("INVALID_SETUP_TOKEN", "Invalid setup token")
	ErrSetupCompleted    = shared.NewDomainError("SETUP_COMPLETED", "Setup has already been completed")
)

// Backend is the subset of the backend client the setup service needs
type Backend interface {
	SetupCheck(ctx context.Context) (*backend.SetupStatus, error)
	CreateSuperAdmin(ctx context.Context, req backend.SuperAdminRequest, setupToken string) (json.RawMessage, error)
}

// Config guards the bootstrap flow
type Config struct {
	Enabled bool
	Token   string
}

// Status combines the backend's answer with the local switch
type Status struct {
	NeedsSetup   bool `json:"needsSetup"`
	SetupEnabled bool `json:"setupEnabled"`
}

// CreateSuperAdminInput is the bootstrap request
type CreateSuperAdminInput struct {
	Email      string
	Password   string
	Name       string
	SetupToken string
}

// Service runs the one-time super admin bootstrap
type Service struct {
	backend Backend
	config  Config
	logger  *zap.Logger
}

// NewService creates a new setup service
func NewService(backend Backend, config Config, logger *zap.Logger) *Service {
	return &Service{
		backend: backend,
		config:  config,
		logger:  logger,
	}
}

// Status reports whether the backend still needs a super admin
func (s *Service) Status(ctx context.Context) (*Status, error) {
	status, err := s.backend.SetupCheck(ctx)
	if err != nil {
		return nil, err
	}
	return &Status{
		NeedsSetup:   status.NeedsSetup,
		SetupEnabled: s.config.Enabled,
	}, nil
}

// CreateSuperAdmin verifies the setup token and asks the backend to create
// the first super admin. The backend's payload is returned as-is.
func (s *Service) CreateSuperAdmin(ctx context.Context, input CreateSuperAdminInput) (json.RawMessage, error) {
	log := logger.WithLogger(ctx, s.logger)

	if !s.config.Enabled || s.config.Token == "" {
		return nil, ErrSetupDisabled
	}
	if subtle.ConstantTimeCompare([]byte(input.SetupToken), []byte(s.config.Token)) != 1 {
		log.Warn("Super admin setup attempted with invalid token", zap.String("email", input.Email))
		return nil, ErrInvalidSetupToken
	}

	first, last := splitName(input.Name)
	created, err := s.backend.CreateSuperAdmin(ctx, backend.SuperAdminRequest{
		Email:     input.Email,
		Password:  input.Password,
		Name:      strings.TrimSpace(input.Name),
		FirstName: first,
		LastName:  last,
	}, s.config.Token)
	if err != nil {
		if apiErr, ok := backend.AsAPIError(err); ok {
			switch apiErr.StatusCode {
			case http.StatusConflict:
				return nil, ErrSetupCompleted
			case http.StatusUnauthorized, http.StatusForbidden:
				return nil, ErrInvalidSetupToken
			}
		}
		log.Error("Super admin setup failed", zap.String("email", input.Email), zap.Error(err))
		return nil, err
	}

	log.Info("Super admin created", zap.String("email", input.Email))
	return created, nil
}

// splitName splits a display name into first and last name
func splitName(name string) (string, string) {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}
