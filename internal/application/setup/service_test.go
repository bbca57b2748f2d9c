package setup

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/digimall/admin-gateway/internal/infrastructure/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockBackend is a mock implementation of Backend
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) SetupCheck(ctx context.Context) (*backend.SetupStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backend.SetupStatus), args.Error(1)
}

func (m *MockBackend) CreateSuperAdmin(ctx context.Context, req backend.SuperAdminRequest, setupToken string) (json.RawMessage, error) {
	args := m.Called(ctx, req, setupToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func TestService_Status(t *testing.T) {
	mb := new(MockBackend)
	mb.On("SetupCheck", mock.Anything).Return(&backend.SetupStatus{NeedsSetup: true}, nil)

	svc := NewService(mb, Config{Enabled: true, Token: "bootstrap-token"}, zap.NewNop())
	status, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Status{NeedsSetup: true, SetupEnabled: true}, status)
}

func TestService_CreateSuperAdmin(t *testing.T) {
	mb := new(MockBackend)
	mb.On("CreateSuperAdmin", mock.Anything, backend.SuperAdminRequest{
		Email:     "root@digimall.test",
		Password:  "Sup3r-secret!",
		Name:      "Ada Lovelace King",
		FirstName: "Ada",
		LastName:  "Lovelace King",
	}, "bootstrap-token").Return(json.RawMessage(`{"id":"s1"}`), nil)

	svc := NewService(mb, Config{Enabled: true, Token: "bootstrap-token"}, zap.NewNop())
	created, err := svc.CreateSuperAdmin(context.Background(), CreateSuperAdminInput{
		Email:      "root@digimall.test",
		Password:   "Sup3r-secret!",
		Name:       " Ada Lovelace King ",
		SetupToken: "bootstrap-token",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"s1"}`, string(created))
	mb.AssertExpectations(t)
}

func TestService_CreateSuperAdmin_Guards(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		token   string
		wantErr error
	}{
		{"disabled", Config{Enabled: false, Token: "bootstrap-token"}, "bootstrap-token", ErrSetupDisabled},
		{"enabled without token", Config{Enabled: true}, "", ErrSetupDisabled},
		{"wrong token", Config{Enabled: true, Token: "bootstrap-token"}, "guess", ErrInvalidSetupToken},
		{"empty token", Config{Enabled: true, Token: "bootstrap-token"}, "", ErrInvalidSetupToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mb := new(MockBackend)
			svc := NewService(mb, tt.config, zap.NewNop())

			_, err := svc.CreateSuperAdmin(context.Background(), CreateSuperAdminInput{
				Email:      "root@digimall.test",
				Password:   "pw",
				SetupToken: tt.token,
			})
			assert.ErrorIs(t, err, tt.wantErr)
			mb.AssertNotCalled(t, "CreateSuperAdmin", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestService_CreateSuperAdmin_BackendErrors(t *testing.T) {
	tests := []struct {
		status  int
		wantErr error
	}{
		{http.StatusConflict, ErrSetupCompleted},
		{http.StatusForbidden, ErrInvalidSetupToken},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			mb := new(MockBackend)
			mb.On("CreateSuperAdmin", mock.Anything, mock.Anything, mock.Anything).
				Return(nil, &backend.APIError{StatusCode: tt.status})

			svc := NewService(mb, Config{Enabled: true, Token: "bootstrap-token"}, zap.NewNop())
			_, err := svc.CreateSuperAdmin(context.Background(), CreateSuperAdminInput{
				Email:      "root@digimall.test",
				SetupToken: "bootstrap-token",
			})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSplitName(t *testing.T) {
	first, last := splitName("")
	assert.Empty(t, first)
	assert.Empty(t, last)

	first, last = splitName("Cher")
	assert.Equal(t, "Cher", first)
	assert.Empty(t, last)
}
