package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glassline/admin-dashboard/middleware"
	"github.com/glassline/admin-dashboard/models"
	"github.com/glassline/admin-dashboard/services"
	"github.com/glassline/admin-dashboard/utils"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

// route mounts handler on pattern behind a stand-in for RequireAuth that
// places account (if any) in the request context.
func route(method, pattern string, handler http.HandlerFunc, account *models.AdminAccount) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if account != nil {
				req = req.WithContext(middleware.WithAccount(req.Context(), account))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.MethodFunc(method, pattern, handler)
	return r
}

func do(h http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// decodeData unmarshals the "data" member of a success envelope into dst
func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dst))
}

func testAccount(username string) *models.AdminAccount {
	return models.NewAdminAccount(username, "hash", models.RoleEmployee, "Sales Staff", "")
}

func actorOf(a *models.AdminAccount) services.Actor {
	return services.Actor{ID: a.ID, Username: a.Username}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder, dst *utils.ErrorResponse) {
	t.Helper()
	require.NoError(t, json.NewDecoder(w.Body).Decode(dst))
}
