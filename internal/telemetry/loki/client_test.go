package loki

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_EmptyURL(t *testing.T) {
	_, err := NewClient("  ", nil)
	require.Error(t, err)
}

func TestPushEventJSON(t *testing.T) {
	var got PushRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/loki/api/v1/push", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL+"/", srv.Client())
	require.NoError(t, err)

	raw := []byte(`{"eventType":"grpc_request","source":"grpc interceptor","userId":"u1","createdAt":"2026-01-02T03:04:05.000000006Z"}`)
	require.NoError(t, c.PushEventJSON(context.Background(), raw))

	require.Len(t, got.Streams, 1)
	s := got.Streams[0]
	assert.Equal(t, "taskmgr", s.Stream["job"])
	assert.Equal(t, "grpc_request", s.Stream["event_type"])
	assert.Equal(t, "grpc_interceptor", s.Stream["source"], "label values are sanitized")
	assert.NotContains(t, s.Stream, "user_id")
	require.Len(t, s.Values, 1)
	want := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC).UnixNano()
	assert.Equal(t, strconv.FormatInt(want, 10), s.Values[0][0])
	assert.Equal(t, string(raw), s.Values[0][1])
}

func TestPush_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, nil)
	require.NoError(t, err)
	err = c.PushEventJSON(context.Background(), []byte("not json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}
