package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syntrixbase/intelsync/internal/config"
	"github.com/syntrixbase/intelsync/internal/feed"
	"github.com/syntrixbase/intelsync/internal/marker"
	"github.com/syntrixbase/intelsync/internal/sink"
	"github.com/syntrixbase/intelsync/internal/syncer"
)

// indicatorPages maps a marker filter to the indicators returned for it.
type indicatorPages map[string][]map[string]any

func newFalconServer(t *testing.T, pages indicatorPages) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("client_secret") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":1799}`))
	})
	mux.HandleFunc("/intel/combined/indicators/v1", func(w http.ResponseWriter, r *http.Request) {
		resources := pages[r.URL.Query().Get("filter")]
		if resources == nil {
			resources = []map[string]any{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"resources": resources, "errors": []any{}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Falcon.BaseURL = baseURL
	cfg.Falcon.ClientID = "id"
	cfg.Falcon.ClientSecret = "secret"
	cfg.Falcon.Timeout = 5 * time.Second
	cfg.Marker.File = filepath.Join(t.TempDir(), "marker.txt")
	return cfg
}

func TestManager_DryRun(t *testing.T) {
	srv := newFalconServer(t, indicatorPages{
		feed.MarkerFilter("100"): {
			{"id": "ioc-1", "_marker": "101", "type": "domain", "indicator": "evil.example"},
			{"id": "ioc-2", "_marker": "102", "type": "ip_address", "indicator": "203.0.113.9"},
		},
	})
	cfg := testConfig(t, srv.URL)
	require.NoError(t, os.WriteFile(cfg.Marker.File, []byte("\n100"), 0644))

	mgr := NewManager(cfg, Options{DryRun: true})
	ctx := context.Background()
	require.NoError(t, mgr.Init(ctx))
	defer func() { assert.NoError(t, mgr.Shutdown(ctx)) }()

	res, err := mgr.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, syncer.StateDone, res.State)
	assert.Equal(t, "100", res.StartMarker)
	assert.Equal(t, "102", res.Marker)
	assert.Equal(t, 2, res.Ingested)

	mem, ok := mgr.sink.(*sink.MemorySink)
	require.True(t, ok)
	assert.Equal(t, []string{"ioc-1", "ioc-2"}, mem.IDs())

	// The persisted marker is untouched.
	content, err := os.ReadFile(cfg.Marker.File)
	require.NoError(t, err)
	assert.Equal(t, "\n100", string(content))
	assert.Equal(t, []string{"100", "102"}, mgr.markers.(*marker.MemoryStore).History())

	last, ok := mgr.Health().Last()
	require.True(t, ok)
	assert.Equal(t, "DONE", last.State)
	assert.Equal(t, "102", last.Marker)
}

func TestManager_StartOnceReturnsRunError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":1799}`))
	})
	mux.HandleFunc("/intel/combined/indicators/v1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"resources":[],"errors":[{"code":403,"message":"access denied, authorization failed"}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mgr := NewManager(testConfig(t, srv.URL), Options{DryRun: true})
	ctx := context.Background()
	require.NoError(t, mgr.Init(ctx))
	defer func() { _ = mgr.Shutdown(ctx) }()

	err := mgr.Start(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, feed.ErrNoIOCs)

	last, ok := mgr.Health().Last()
	require.True(t, ok)
	assert.Equal(t, "FAILED", last.State)
	assert.NotEmpty(t, last.Error)
}

func TestManager_InitAuthenticationFailure(t *testing.T) {
	srv := newFalconServer(t, nil)
	cfg := testConfig(t, srv.URL)
	cfg.Falcon.ClientSecret = "wrong"

	mgr := NewManager(cfg, Options{DryRun: true})
	err := mgr.Init(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, feed.ErrAuthentication)
	assert.NoError(t, mgr.Shutdown(context.Background()))
}

func TestManager_InitStorageUnavailable(t *testing.T) {
	srv := newFalconServer(t, nil)
	cfg := testConfig(t, srv.URL)
	cfg.MongoDB.ConnectionString = "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=200"
	cfg.MongoDB.ConnectTimeout = time.Second

	mgr := NewManager(cfg, Options{})
	err := mgr.Init(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, sink.ErrStorageUnavailable)
	assert.NoError(t, mgr.Shutdown(context.Background()))
}

func TestManager_Daemon(t *testing.T) {
	srv := newFalconServer(t, indicatorPages{
		feed.MarkerFilter(""): {{"id": "ioc-1", "_marker": "1", "type": "url"}},
	})
	cfg := testConfig(t, srv.URL)

	mgr := NewManager(cfg, Options{DryRun: true, Interval: 10 * time.Millisecond, MaxPages: 5})
	assert.Equal(t, 5, cfg.Sync.MaxPages)
	assert.Equal(t, 10*time.Millisecond, cfg.Sync.Interval)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, mgr.Init(ctx))

	errChan := make(chan error, 1)
	go func() { errChan <- mgr.Start(ctx) }()

	require.Eventually(t, func() bool {
		mem := mgr.markers.(*marker.MemoryStore)
		_, ok := mgr.Health().Last()
		return ok && len(mem.History()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not stop")
	}
	assert.NoError(t, mgr.Shutdown(context.Background()))
}

func TestCurrentMarker(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Marker.File = filepath.Join(t.TempDir(), "marker.txt")

	current, err := CurrentMarker(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "", current)

	require.NoError(t, os.WriteFile(cfg.Marker.File, []byte("\n100\n200\n"), 0644))
	current, err = CurrentMarker(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "200", current)
}

func TestCurrentMarker_UnsupportedBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Marker.Backend = "etcd"

	_, err := CurrentMarker(context.Background(), cfg)
	assert.Error(t, err)
}
