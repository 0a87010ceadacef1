package docs

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startServer runs a Server on an ephemeral port and returns its base URL.
func startServer(t *testing.T, s *Server) string {
	t.Helper()

	// The server does not expose its listener, so reserve a port first.
	// Racy in principle, fine for a local test.
	port := freePort(t)
	s.Addr = fmt.Sprintf("127.0.0.1:%d", port)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Errorf("server did not shut down")
		}
	})

	base := "http://" + s.Addr
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/livereload.js")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond, "server never came up")
	return base
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestServer_ServesSite(t *testing.T) {
	site := t.TempDir()
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(site, "index.html"), []byte("<h1>docs</h1>"), 0o644))

	s := &Server{SiteDir: site, SourceDir: src}
	base := startServer(t, s)

	resp, err := http.Get(base + "/index.html")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "docs")
}

func TestServer_RebuildAndReloadOnChange(t *testing.T) {
	site := t.TempDir()
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(site, "index.html"), []byte("x"), 0o644))

	var rebuilds atomic.Int32
	s := &Server{
		SiteDir:   site,
		SourceDir: src,
		Rebuild: func(ctx context.Context) error {
			rebuilds.Add(1)
			return nil
		},
	}
	base := startServer(t, s)

	wsURL := "ws" + base[len("http"):] + "/livereload"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Keep writing until the broadcast arrives; the watcher may still be
	// registering directories when the first write lands.
	stopWrites := make(chan struct{})
	defer close(stopWrites)
	go func() {
		for i := 0; ; i++ {
			body := fmt.Sprintf("# hi %d", i)
			_ = os.WriteFile(filepath.Join(src, "page.md"), []byte(body), 0o644)
			select {
			case <-stopWrites:
				return
			case <-time.After(300 * time.Millisecond):
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err, "expected a reload broadcast")
	assert.Equal(t, "reload", string(msg))
	assert.GreaterOrEqual(t, rebuilds.Load(), int32(1))
}
