package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wrale/wsplay/api/types/v1alpha1"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
}

func TestMiddleware(t *testing.T) {
	svc := NewService(NewMemoryStore(nil), testLogger())
	require.NoError(t, svc.RegisterLimit(TypeReload, Limit{Rate: 1, Period: 30 * time.Second}))
	h := Middleware(svc, TypeReload)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/reload", nil)
	req.RemoteAddr = "10.0.0.5:41234"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("RateLimit-Remaining"))

	// a different source port is the same caller
	req.RemoteAddr = "10.0.0.5:50000"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))

	var body v1alpha1.Error
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "RATE_LIMITED", body.Code)
	assert.Contains(t, body.Message, "30 seconds")

	req.RemoteAddr = "10.0.0.6:41234"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestMiddleware_StoreFailureAllows(t *testing.T) {
	store := new(mockStore)
	store.On("Increment", mock.Anything, mock.Anything, mock.Anything).Return(0, ErrStoreError)

	svc := NewService(store, testLogger())
	require.NoError(t, svc.RegisterLimit(TypeConnect, Limit{Rate: 1, Period: time.Minute}))

	rec := httptest.NewRecorder()
	Middleware(svc, TypeConnect)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, rec.Header().Get("RateLimit-Limit"))
}

func TestRemoteHost(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"10.0.0.5:41234", "10.0.0.5"},
		{"[::1]:8090", "::1"},
		{"10.0.0.5", "10.0.0.5"},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = tt.addr
		assert.Equal(t, tt.want, remoteHost(r))
	}
}
