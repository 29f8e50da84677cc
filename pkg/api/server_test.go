package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/framerec/pkg/archive"
	"github.com/ssargent/framerec/pkg/export"
	"github.com/ssargent/framerec/pkg/frc"
	"github.com/ssargent/framerec/pkg/recording"
	"github.com/ssargent/framerec/pkg/types"
)

type testServer struct {
	*httptest.Server
	archive *archive.Archive
	server  *Server
	reg     *prometheus.Registry
}

// setupTestServer serves an archive in a temp dir
func setupTestServer(t *testing.T, apiKey string) *testServer {
	t.Helper()
	a, err := archive.Open(t.TempDir(), frc.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	reg := prometheus.NewRegistry()
	config := ServerConfig{
		APIKey:     apiKey,
		Export:     export.DefaultSettings(),
		Registerer: reg,
		Gatherer:   reg,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	server := NewServer(a, config, nil)
	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, archive: a, server: server, reg: reg}
}

func (ts *testServer) do(t *testing.T, method, path string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response, data any) APIResponse {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	if data != nil && len(envelope.Data) > 0 {
		require.NoError(t, json.Unmarshal(envelope.Data, data))
	}
	return APIResponse{Success: envelope.Success, Error: envelope.Error}
}

func encodedRecording(t *testing.T) []byte {
	t.Helper()
	rec := recording.New()
	rec.Append(recording.TimestampedData{SourceID: "/speed", Type: types.Number, Value: 1.0, Timestamp: 0})
	rec.Append(recording.TimestampedData{SourceID: "/speed", Type: types.Number, Value: 2.0, Timestamp: 10})
	rec.AddMarker(recording.NewMarker("Auto", "start", recording.High, 10))
	raw, err := frc.Encode(rec, frc.Options{})
	require.NoError(t, err)
	return raw
}

func TestHealth(t *testing.T) {
	ts := setupTestServer(t, "")

	resp := ts.do(t, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var data map[string]string
	got := decodeResponse(t, resp, &data)
	assert.True(t, got.Success)
	assert.Equal(t, "healthy", data["status"])
}

func TestRecordingLifecycle(t *testing.T) {
	ts := setupTestServer(t, "")
	raw := encodedRecording(t)

	resp := ts.do(t, http.MethodPost, "/api/v1/recordings?name=qual-3", raw)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var entry archive.Entry
	require.True(t, decodeResponse(t, resp, &entry).Success)
	assert.Equal(t, "qual-3", entry.Name)
	assert.Equal(t, 2, entry.DataFrames)
	assert.Equal(t, 1, entry.MarkerFrames)
	id := entry.ID.String()

	t.Run("list", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/v1/recordings", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var entries []archive.Entry
		decodeResponse(t, resp, &entries)
		require.Len(t, entries, 1)
		assert.Equal(t, entry.ID, entries[0].ID)
	})

	t.Run("stat", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/v1/recordings/"+id, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var got archive.Entry
		decodeResponse(t, resp, &got)
		assert.Equal(t, entry.Digest, got.Digest)
	})

	t.Run("raw", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/v1/recordings/"+id+"/raw", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/octet-stream", resp.Header.Get("Content-Type"))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), id+".frc")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, raw, body)
	})

	t.Run("csv", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/v1/recordings/"+id+"/csv", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/csv"))
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, strings.Join(export.Header, ",")+",/speed\n0,,,,1\n10,Auto,start,HIGH,2\n", string(body))
	})

	t.Run("csv with window", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/v1/recordings/"+id+"/csv?window=20", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, strings.Join(export.Header, ",")+",/speed\n0,Auto,start,HIGH,2\n", string(body))
	})

	t.Run("delete", func(t *testing.T) {
		resp := ts.do(t, http.MethodDelete, "/api/v1/recordings/"+id, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp = ts.do(t, http.MethodGet, "/api/v1/recordings/"+id, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		got := decodeResponse(t, resp, nil)
		assert.False(t, got.Success)
		assert.Equal(t, "Recording not found", got.Error)
	})
}

func TestRecordingErrors(t *testing.T) {
	ts := setupTestServer(t, "")
	missing := ksuid.New().String()

	tests := []struct {
		name   string
		method string
		path   string
		body   []byte
		want   int
	}{
		{"invalid id", http.MethodGet, "/api/v1/recordings/not-an-id", nil, http.StatusBadRequest},
		{"missing", http.MethodGet, "/api/v1/recordings/" + missing, nil, http.StatusNotFound},
		{"missing raw", http.MethodGet, "/api/v1/recordings/" + missing + "/raw", nil, http.StatusNotFound},
		{"missing delete", http.MethodDelete, "/api/v1/recordings/" + missing, nil, http.StatusNotFound},
		{"bad window", http.MethodGet, "/api/v1/recordings/" + missing + "/csv?window=abc", nil, http.StatusBadRequest},
		{"bad flag", http.MethodGet, "/api/v1/recordings/" + missing + "/csv?quote=maybe", nil, http.StatusBadRequest},
		{"empty upload", http.MethodPost, "/api/v1/recordings", nil, http.StatusBadRequest},
		{"garbage upload", http.MethodPost, "/api/v1/recordings", []byte("garbage bytes"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
			assert.False(t, decodeResponse(t, resp, nil).Success)
		})
	}
}

func TestUploadLimit(t *testing.T) {
	ts := setupTestServer(t, "")
	ts.server.config.MaxUploadSize = 8

	resp := ts.do(t, http.MethodPost, "/api/v1/recordings", encodedRecording(t))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupTestServer(t, "")
	ts.do(t, http.MethodGet, "/api/v1/health", nil)
	ts.do(t, http.MethodPost, "/api/v1/recordings", encodedRecording(t))

	assert.Equal(t, float64(1), testutil.ToFloat64(
		ts.server.metrics.httpRequestsTotal.WithLabelValues("GET", "/api/v1/health", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		ts.server.metrics.archiveOperationsTotal.WithLabelValues("put", statusSuccess)))

	resp := ts.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "framerec_http_requests_total")
	assert.Contains(t, string(body), "framerec_uploaded_bytes_total")
}

func TestStartServer(t *testing.T) {
	a, err := archive.Open(t.TempDir(), frc.Options{})
	require.NoError(t, err)
	defer a.Close()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	reg := prometheus.NewRegistry()
	go func() {
		done <- NewServerFactory().CreateServerStarter().StartServer(ctx, a, ServerConfig{
			Addr:       addr,
			Registerer: reg,
			Gatherer:   reg,
			Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		})
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/api/v1/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
