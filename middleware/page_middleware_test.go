package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glassline/admin-dashboard/models"
	"github.com/glassline/admin-dashboard/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockPageAuthorizer is a mock implementation of PageAuthorizer
type MockPageAuthorizer struct {
	mock.Mock
}

func (m *MockPageAuthorizer) Authorize(ctx context.Context, actor services.Actor, pageKey string) error {
	args := m.Called(ctx, actor, pageKey)
	return args.Error(0)
}

func (m *MockPageAuthorizer) RequireSuperadmin(ctx context.Context, actor services.Actor) error {
	args := m.Called(ctx, actor)
	return args.Error(0)
}

func authenticatedRequest(account *models.AdminAccount) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/positions", nil)
	return req.WithContext(WithAccount(req.Context(), account))
}

func TestRequirePage(t *testing.T) {
	account := models.NewAdminAccount("maria", "h", models.RoleEmployee, "Sales Staff", "")
	actor := services.Actor{ID: account.ID, Username: account.Username}

	tests := []struct {
		name       string
		authErr    error
		wantStatus int
		wantCalled bool
	}{
		{name: "granted", wantStatus: http.StatusOK, wantCalled: true},
		{name: "missing grant", authErr: services.ErrInsufficientPermissions, wantStatus: http.StatusForbidden},
		{name: "unknown actor", authErr: services.ErrUnauthorized, wantStatus: http.StatusUnauthorized},
		{name: "store outage", authErr: services.ErrStoreUnavailable, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authorizer := new(MockPageAuthorizer)
			authorizer.On("Authorize", mock.Anything, actor, "positions").Return(tt.authErr)
			mw := NewPageMiddleware(authorizer, zap.NewNop())

			called := false
			handler := mw.RequirePage("positions")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			}))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, authenticatedRequest(account))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCalled, called)
			authorizer.AssertExpectations(t)
		})
	}
}

func TestRequirePage_Unauthenticated(t *testing.T) {
	authorizer := new(MockPageAuthorizer)
	mw := NewPageMiddleware(authorizer, zap.NewNop())

	w := httptest.NewRecorder()
	mw.RequirePage("positions")(http.NotFoundHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	authorizer.AssertNotCalled(t, "Authorize", mock.Anything, mock.Anything, mock.Anything)
}

func TestRequireSuperadmin(t *testing.T) {
	account := models.NewAdminAccount("maria", "h", models.RoleEmployee, "", "")
	actor := services.Actor{ID: account.ID, Username: account.Username}

	authorizer := new(MockPageAuthorizer)
	authorizer.On("RequireSuperadmin", mock.Anything, actor).Return(services.ErrSuperadminRequired)
	mw := NewPageMiddleware(authorizer, zap.NewNop())

	w := httptest.NewRecorder()
	mw.RequireSuperadmin(http.NotFoundHandler()).ServeHTTP(w, authenticatedRequest(account))

	assert.Equal(t, http.StatusForbidden, w.Code)
}
