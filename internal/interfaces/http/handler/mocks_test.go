package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/digimall/admin-gateway/internal/application/media"
	"github.com/digimall/admin-gateway/internal/application/session"
	"github.com/digimall/admin-gateway/internal/application/setup"
	"github.com/digimall/admin-gateway/internal/domain/identity"
	"github.com/digimall/admin-gateway/internal/infrastructure/backend"
	"github.com/stretchr/testify/mock"
)

// MockSessionService is a mock implementation of SessionService
type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) SignIn(ctx context.Context, input session.SignInInput) (*session.Result, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Result), args.Error(1)
}

func (m *MockSessionService) Refresh(ctx context.Context, s *identity.Session) (*session.Result, error) {
	args := m.Called(ctx, s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Result), args.Error(1)
}

func (m *MockSessionService) SignOut(ctx context.Context, s *identity.Session, everywhere bool) error {
	args := m.Called(ctx, s, everywhere)
	return args.Error(0)
}

// MockSetupService is a mock implementation of SetupService
type MockSetupService struct {
	mock.Mock
}

func (m *MockSetupService) Status(ctx context.Context) (*setup.Status, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*setup.Status), args.Error(1)
}

func (m *MockSetupService) CreateSuperAdmin(ctx context.Context, input setup.CreateSuperAdminInput) (json.RawMessage, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

// MockMediaService is a mock implementation of MediaService
type MockMediaService struct {
	mock.Mock
}

func (m *MockMediaService) Upload(ctx context.Context, id identity.Identity, input media.UploadInput) (*media.Outcome, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*media.Outcome), args.Error(1)
}

func (m *MockMediaService) MaxUploadSize() int64 {
	return int64(m.Called().Int(0))
}

// MockBackendProber is a mock implementation of BackendProber
type MockBackendProber struct {
	mock.Mock
}

func (m *MockBackendProber) Health(ctx context.Context, timeout time.Duration) backend.HealthResult {
	args := m.Called(ctx, timeout)
	return args.Get(0).(backend.HealthResult)
}
