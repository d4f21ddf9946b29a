package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glassline/admin-dashboard/services"
	"github.com/glassline/admin-dashboard/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHandleServiceError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedError   string
		expectedMessage string
	}{
		{
			name:            "not found error",
			err:             services.ErrPositionNotFound,
			expectedStatus:  http.StatusNotFound,
			expectedError:   "not_found",
			expectedMessage: "position not found",
		},
		{
			name:           "validation error",
			err:            services.ErrInvalidInput,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "bad_request",
		},
		{
			name:           "unauthorized error",
			err:            services.ErrInvalidCredentials,
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "unauthorized",
		},
		{
			name:           "insufficient permissions",
			err:            services.ErrInsufficientPermissions,
			expectedStatus: http.StatusForbidden,
			expectedError:  "forbidden",
		},
		{
			name:           "duplicate name",
			err:            services.ErrDuplicateName,
			expectedStatus: http.StatusConflict,
			expectedError:  "conflict",
		},
		{
			name:            "store unavailable hides the cause",
			err:             services.ErrStoreUnavailable.Wrap(errors.New("dial tcp 10.0.0.5:5432: connection refused")),
			expectedStatus:  http.StatusServiceUnavailable,
			expectedError:   "service_unavailable",
			expectedMessage: "Service temporarily unavailable",
		},
		{
			name:            "internal error",
			err:             services.WrapInternal("failed to hash password", errors.New("boom")),
			expectedStatus:  http.StatusInternalServerError,
			expectedError:   "internal_error",
			expectedMessage: "An internal error occurred",
		},
		{
			name:            "plain error",
			err:             errors.New("something"),
			expectedStatus:  http.StatusInternalServerError,
			expectedError:   "internal_error",
			expectedMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			HandleServiceError(w, tt.err, logger)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response utils.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.expectedError, response.Error)
			if tt.expectedMessage != "" {
				assert.Equal(t, tt.expectedMessage, response.Message)
			}
		})
	}
}

func TestHandleServiceError_ProtectedPositionRule(t *testing.T) {
	w := httptest.NewRecorder()

	HandleServiceError(w, services.ErrProtectedPosition, zap.NewNop())

	assert.Equal(t, http.StatusForbidden, w.Code)

	var response utils.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "protected_position", response.Details["rule"])
}

func TestHandleServiceError_UnknownKeysDetails(t *testing.T) {
	w := httptest.NewRecorder()
	err := services.ErrUnknownPageKeys.WithMessage("unknown page keys: ghost").WithDetail("unknown", []string{"ghost"})

	HandleServiceError(w, err, zap.NewNop())

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response utils.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "unknown page keys: ghost", response.Message)
	assert.Equal(t, []interface{}{"ghost"}, response.Details["unknown"])
}

func TestHandleServiceError_Nil(t *testing.T) {
	w := httptest.NewRecorder()

	HandleServiceError(w, nil, zap.NewNop())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestHandleValidationError(t *testing.T) {
	w := httptest.NewRecorder()
	err := &utils.ValidationError{Message: "Validation failed", Fields: map[string]string{"name": "name is required"}}

	HandleValidationError(w, err, zap.NewNop())

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response utils.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "name is required", response.Details["name"])
}
