package backend

import (
	"context"
	"encoding/json"
	"net/http"
)

// Setup endpoints, relative to the API prefix
const (
	PathSetupCheck      = "setup/check"
	PathSetupSuperAdmin = "setup/super-admin"
)

// SetupStatus reports whether the backend still needs its first super admin
type SetupStatus struct {
	NeedsSetup bool `json:"needsSetup"`
}

// SuperAdminRequest is the bootstrap account to create
type SuperAdminRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Name      string `json:"name,omitempty"`
}

// SetupCheck asks the backend whether setup is still required
func (c *Client) SetupCheck(ctx context.Context) (*SetupStatus, error) {
	var status SetupStatus
	if err := c.doJSON(ctx, call{method: http.MethodGet, path: PathSetupCheck}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// CreateSuperAdmin creates the first super admin. setupToken is sent as
// x-setup-token; the backend's data payload is returned undecoded.
func (c *Client) CreateSuperAdmin(ctx context.Context, req SuperAdminRequest, setupToken string) (json.RawMessage, error) {
	header := http.Header{}
	header.Set(HeaderSetupToken, setupToken)

	var created json.RawMessage
	err := c.doJSON(ctx, call{
		method: http.MethodPost,
		path:   PathSetupSuperAdmin,
		body:   req,
		header: header,
	}, &created)
	if err != nil {
		return nil, err
	}
	return created, nil
}
