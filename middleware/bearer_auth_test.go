package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"

	"github.com/timgluz/abfuhrplan/secret"
)

func newProtectedRouter(t *testing.T, secretStore secret.Store) *httprouter.Router {
	t.Helper()

	router := httprouter.New()
	router.GET("/protected", BearerAuth(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}, secretStore))

	return router
}

func TestBearerAuth(t *testing.T) {
	secretStore := secret.NewInMemoryStore()
	assert.NoError(t, secretStore.Set("valid-api-key", "valid-api-key"))

	router := newProtectedRouter(t, secretStore)

	testCases := []struct {
		name           string
		authHeader     string
		expectedStatus int
	}{
		{name: "missing header", authHeader: "", expectedStatus: http.StatusUnauthorized},
		{name: "header too short", authHeader: "Basic", expectedStatus: http.StatusUnauthorized},
		{name: "unsupported scheme", authHeader: "Basic dXNlcjpwYXNz", expectedStatus: http.StatusBadRequest},
		{name: "blank token", authHeader: "Bearer ", expectedStatus: http.StatusUnauthorized},
		{name: "unknown key", authHeader: "Bearer wrong-key", expectedStatus: http.StatusUnauthorized},
		{name: "valid key", authHeader: "Bearer valid-api-key", expectedStatus: http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}

			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, req)

			assert.Equal(t, tc.expectedStatus, recorder.Code, "status mismatch for case: %s", tc.name)
			if tc.expectedStatus == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", recorder.Header().Get("WWW-Authenticate"),
					"unauthorized responses must advertise the scheme")
			}
		})
	}
}

func TestBearerAuth_NilStore(t *testing.T) {
	router := newProtectedRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer valid-api-key")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}
