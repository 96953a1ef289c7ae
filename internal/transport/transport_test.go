package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresSecret(t *testing.T) {
	_, err := New(Config{BaseURL: "http://localhost"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tenant secret")
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(Config{Secret: "s3cret"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base URL")
}

func TestDo_AttachesIdentityHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client, err := New(Config{
		BaseURL:    srv.URL,
		Secret:     "s3cret",
		APIVersion: "2025-03-25",
	})
	require.NoError(t, err)

	t.Run("tenant-only client omits user header", func(t *testing.T) {
		require.NoError(t, client.Do(context.Background(), http.MethodGet, "/replicas", nil, nil))
		assert.Equal(t, "s3cret", got.Get(HeaderOrganizationSecret))
		assert.Equal(t, "2025-03-25", got.Get(HeaderAPIVersion))
		assert.Empty(t, got.Get(HeaderUserID))
	})

	t.Run("user-scoped client adds user header", func(t *testing.T) {
		scoped := client.WithUser("svc-user")
		require.NoError(t, scoped.Do(context.Background(), http.MethodGet, "/replicas", nil, nil))
		assert.Equal(t, "svc-user", got.Get(HeaderUserID))

		// The original client must not have been mutated.
		require.NoError(t, client.Do(context.Background(), http.MethodGet, "/replicas", nil, nil))
		assert.Empty(t, got.Get(HeaderUserID))
	})
}

func TestDo_DecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"u1","name":"Service"}`))
	}))
	defer srv.Close()

	client, err := New(Config{BaseURL: srv.URL, Secret: "s"})
	require.NoError(t, err)

	var out struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, client.Do(context.Background(), http.MethodGet, "/users/u1", nil, &out))
	assert.Equal(t, "u1", out.ID)
	assert.Equal(t, "Service", out.Name)
}

func TestDo_NonOKBecomesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"slug already taken"}`))
	}))
	defer srv.Close()

	client, err := New(Config{BaseURL: srv.URL, Secret: "s"})
	require.NoError(t, err)

	err = client.Do(context.Background(), http.MethodPost, "/replicas", map[string]string{"slug": "x"}, nil)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "slug already taken", apiErr.Message)
}

func TestDo_HonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client, err := New(Config{BaseURL: srv.URL, Secret: "s"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err = client.Do(ctx, http.MethodGet, "/replicas", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIsConflict(t *testing.T) {
	t.Run("status 409", func(t *testing.T) {
		assert.True(t, IsConflict(&APIError{Status: http.StatusConflict, Message: "exists"}))
	})
	t.Run("message shim only without status", func(t *testing.T) {
		assert.True(t, IsConflict(&APIError{Message: "Conflict: user exists"}))
		assert.False(t, IsConflict(&APIError{Status: http.StatusBadRequest, Message: "Conflict: user exists"}))
	})
	t.Run("other errors", func(t *testing.T) {
		assert.False(t, IsConflict(&APIError{Status: http.StatusInternalServerError}))
		assert.False(t, IsConflict(context.Canceled))
		assert.False(t, IsConflict(nil))
	})
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(&APIError{Status: http.StatusNotFound}))
	assert.False(t, IsNotFound(&APIError{Status: http.StatusConflict}))
	assert.False(t, IsNotFound(nil))
}
