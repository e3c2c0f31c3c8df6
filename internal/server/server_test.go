package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	buildErrors "github.com/maxkimambo/sitepipe/internal/errors"
	"github.com/maxkimambo/sitepipe/internal/metrics"
)

func newBuildDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"),
		[]byte("<html><body><h1>American Made</h1></body></html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.css"),
		[]byte("body{color:red}"), 0o644))
	return dir
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func dial(t *testing.T, serverURL string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(serverURL, "http") + "/livereload"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func handshake(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(message{Command: "hello", Protocols: []string{protocolOfficial7}}))
	hello := readMessage(t, conn)
	assert.Equal(t, "hello", hello.Command)
	assert.Contains(t, hello.Protocols, protocolOfficial7)
	assert.Equal(t, "sitepipe", hello.ServerName)
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Clients() == n }, 5*time.Second, 10*time.Millisecond)
}

func TestServer_StaticAndInjection(t *testing.T) {
	srv := New(Options{Dir: newBuildDir(t), LiveReload: true})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, body := get(t, ts.URL+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `<h1>American Made</h1><script src="/livereload.js"></script></body>`)
	assert.Equal(t, len(body), int(resp.ContentLength))

	resp, body = get(t, ts.URL+"/main.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "body{color:red}", body)

	resp, body = get(t, ts.URL+"/livereload.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "javascript")
	assert.Contains(t, body, "/livereload")

	resp, _ = get(t, ts.URL+"/missing.html")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_RangeRequestNotInjected(t *testing.T) {
	srv := New(Options{Dir: newBuildDir(t), LiveReload: true})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/", nil)
	require.NoError(t, err)
	req.Header.Set("Range", "bytes=0-5")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusPartialContent, resp.StatusCode)
	assert.Equal(t, "<html>", string(body))
	assert.Equal(t, "bytes 0-5/48", resp.Header.Get("Content-Range"))
	assert.EqualValues(t, 6, resp.ContentLength)
}

func TestServer_NoLiveReload(t *testing.T) {
	srv := New(Options{Dir: newBuildDir(t), LiveReload: false})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	_, body := get(t, ts.URL+"/")
	assert.NotContains(t, body, "livereload.js")

	resp, _ := get(t, ts.URL+"/livereload.js")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	srv.Reload("index.html")
	assert.Zero(t, srv.Hub().Clients())
}

func TestServer_ReloadBroadcast(t *testing.T) {
	srv := New(Options{Dir: newBuildDir(t), LiveReload: true})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	a := dial(t, ts.URL)
	b := dial(t, ts.URL)
	handshake(t, a)
	handshake(t, b)
	waitForClients(t, srv.Hub(), 2)

	srv.Reload("main.css")
	for _, conn := range []*websocket.Conn{a, b} {
		msg := readMessage(t, conn)
		assert.Equal(t, "reload", msg.Command)
		assert.Equal(t, "main.css", msg.Path)
		assert.True(t, msg.LiveCSS)
	}

	srv.Reload("js/main.js")
	msg := readMessage(t, a)
	assert.Equal(t, "js/main.js", msg.Path)
	assert.False(t, msg.LiveCSS)
}

func TestHub_Shutdown(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)
	srv := New(Options{Dir: newBuildDir(t), LiveReload: true, Recorder: rec, Metrics: rec.Handler()})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dial(t, ts.URL)
	handshake(t, conn)
	waitForClients(t, srv.Hub(), 1)

	_, body := get(t, ts.URL+"/metrics")
	assert.Contains(t, body, "sitepipe_livereload_clients 1")

	srv.Hub().Shutdown()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.Zero(t, srv.Hub().Clients())

	resp, _ := get(t, ts.URL+"/livereload")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_Start(t *testing.T) {
	srv := New(Options{Dir: newBuildDir(t), Addr: "127.0.0.1:0", LiveReload: true})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	require.Eventually(t, func() bool {
		return !strings.HasSuffix(srv.Addr(), ":0")
	}, 5*time.Second, 10*time.Millisecond)

	resp, body := get(t, "http://"+srv.Addr()+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "American Made")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServer_StartPortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srv := New(Options{Dir: t.TempDir(), Addr: ln.Addr().String()})
	err = srv.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, "SERVER-001", buildErrors.GetErrorCode(err))
}
