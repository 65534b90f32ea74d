package main

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/pthm/hxstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleIndex(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	store := hxstate.NewStore()
	reg := hxstate.NewRegistry([]byte("demo-test-key"))
	defer reg.Close()

	p := newPage(store, reg, logger, false)

	rec := httptest.NewRecorder()
	p.handleIndex(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, 5, strings.Count(body, "<section"))
	assert.Contains(t, body, `data-hxstate-key="counter-a"`)
	assert.Contains(t, body, `data-hxstate-key="counter-b"`)
	assert.Contains(t, body, `data-hxstate-key="switch"`)

	assert.Equal(t, 5, reg.Len())
	assert.Equal(t, 2, store.GetState().RefCount("counter-a"))
	assert.Equal(t, 1, store.GetState().RefCount("counter-b"))
	assert.Equal(t, 2, store.GetState().RefCount("switch"))
}

var releasePattern = regexp.MustCompile(`data-hxstate-release="([^"]+)"`)

func TestPageReleasesItsInstances(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	store := hxstate.NewStore()
	reg := hxstate.NewRegistry([]byte("demo-test-key"))
	defer reg.Close()
	router := newRouter(newPage(store, reg, logger, false), prometheus.NewRegistry())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `addEventListener("pagehide"`)
	matches := releasePattern.FindAllStringSubmatch(body, -1)
	require.Len(t, matches, 5)
	require.Equal(t, 5, reg.Len())

	// What the pagehide listener sends for each instance.
	for _, m := range matches {
		req := httptest.NewRequest(http.MethodDelete, m[1], nil)
		req.Header.Set("HX-Request", "true")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, m[1])
	}

	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, 0, store.GetState().Len(), "every slice is destroyed once its last instance is released")
}

func TestIdleInstancesAreEvicted(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	store := hxstate.NewStore()
	reg := hxstate.NewRegistry([]byte("demo-test-key"))
	defer reg.Close()

	newPage(store, reg, logger, false).handleIndex(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, 5, reg.Len())

	n, err := reg.EvictIdle(time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 0, store.GetState().Len())
}

func TestVersionCmd(t *testing.T) {
	cmd := versionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "hxstate-demo version dev\n", out.String())
}

func TestServeCmdFlags(t *testing.T) {
	t.Setenv("HXSTATE_ADDR", ":9999")
	cmd := serveCmd()

	addr, err := cmd.Flags().GetString("addr")
	require.NoError(t, err)
	assert.Equal(t, ":9999", addr)

	prefix, err := cmd.Flags().GetString("prefix")
	require.NoError(t, err)
	assert.Equal(t, "/_s/", prefix)

	idle, err := cmd.Flags().GetDuration("idle")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, idle)
}
