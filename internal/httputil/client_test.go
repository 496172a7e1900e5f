// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_SetsHeaders(t *testing.T) {
	var gotUA, gotAccept string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		io.WriteString(w, "ok")
	}))
	defer ts.Close()

	c := New(5*time.Second, "digest-test/1.0", 0)
	resp, err := c.Get(context.Background(), ts.URL, "application/atom+xml")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, "digest-test/1.0", gotUA)
	assert.Equal(t, "application/atom+xml", gotAccept)
}

func TestGet_DefaultUserAgent(t *testing.T) {
	var gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer ts.Close()

	resp, err := New(5*time.Second, "", 0).Get(context.Background(), ts.URL, "")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, DefaultUserAgent, gotUA)
}

func TestGet_NonOKIsError(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	_, err := New(5*time.Second, "", 0).Get(context.Background(), ts.URL, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 503")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "requests are attempted once")
}

func TestGet_CancelledContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	defer ts.Close()

	c := New(5*time.Second, "", time.Hour)
	// Consume the single burst token so the next Wait blocks.
	resp, err := c.Get(context.Background(), ts.URL, "")
	require.NoError(t, err)
	resp.Body.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Get(ctx, ts.URL, "")
	require.Error(t, err)
}

func TestDownload_WritesFile(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "%PDF-1.4 fake")
	}))
	defer ts.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "2507.12345.pdf")
	require.NoError(t, New(5*time.Second, "", 0).Download(context.Background(), ts.URL, dest, "application/pdf"))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestDownload_FailureLeavesNoFile(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "missing.pdf")
	err := New(5*time.Second, "", 0).Download(context.Background(), ts.URL, dest, "")
	require.Error(t, err)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestDo_PostWithBody(t *testing.T) {
	var gotMethod, gotBody, gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotUA = r.Header.Get("User-Agent")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer ts.Close()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, ts.URL, strings.NewReader("payload"))
	require.NoError(t, err)
	resp, err := New(5*time.Second, "bridge/1", 0).Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "payload", gotBody)
	assert.Equal(t, "bridge/1", gotUA)
}
