// Package docs serves a built documentation site with live reload: the
// source tree is watched, changes trigger a rebuild, and connected browsers
// are told to refresh over a websocket.
package docs

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

// reloadScript is served at /livereload.js; pages that include it refresh
// whenever the server broadcasts a reload.
const reloadScript = `(function () {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + "/livereload");
  ws.onmessage = function () { location.reload(); };
})();
`

// debounceWindow batches bursts of filesystem events (editors write several
// times per save) into one rebuild.
const debounceWindow = 200 * time.Millisecond

// Server watches SourceDir, rebuilds via Rebuild on change, and serves
// SiteDir on Addr with a /livereload websocket endpoint.
type Server struct {
	SiteDir   string
	SourceDir string
	Addr      string

	// Rebuild regenerates SiteDir from SourceDir. It runs once per
	// debounced change burst, never concurrently with itself.
	Rebuild func(ctx context.Context) error

	Logger *slog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Run serves until ctx is cancelled. It blocks, matching the synchronous
// step contract of the task runner.
func (s *Server) Run(ctx context.Context) error {
	if s.Logger == nil {
		s.Logger = slog.New(slog.DiscardHandler)
	}
	s.clients = make(map[*websocket.Conn]struct{})

	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(s.SiteDir)))
	mux.HandleFunc("/livereload.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		_, _ = w.Write([]byte(reloadScript))
	})
	mux.HandleFunc("/livereload", s.handleWebsocket)

	srv := &http.Server{Handler: mux}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return s.watch(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	s.Logger.Info("docs server listening", "addr", ln.Addr().String(), "site", s.SiteDir)

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()
	s.Logger.Debug("livereload client connected", "remote", conn.RemoteAddr().String())

	// Drain reads so pings and close frames are processed; the client
	// never sends anything we act on.
	go func() {
		defer s.dropClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) dropClient(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
}

// broadcastReload tells every connected browser to refresh.
func (s *Server) broadcastReload() {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for c := range s.clients {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		if err := c.WriteMessage(websocket.TextMessage, []byte("reload")); err != nil {
			s.dropClient(c)
		}
	}
}

// watch follows SourceDir recursively and debounces change bursts into
// rebuild + reload cycles. Newly created directories are added to the watch
// as they appear.
func (s *Server) watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := addRecursive(watcher, s.SourceDir); err != nil {
		return err
	}

	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = addRecursive(watcher, ev.Name)
				}
			}
			if timer == nil {
				timer = time.AfterFunc(debounceWindow, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(debounceWindow)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.Logger.Warn("watch error", "error", err)
		case <-fire:
			timer = nil
			s.Logger.Info("docs changed, rebuilding")
			if s.Rebuild != nil {
				if err := s.Rebuild(ctx); err != nil {
					// A broken docs build should not kill the server;
					// the author fixes the file and saves again.
					s.Logger.Error("docs rebuild failed", "error", err)
					continue
				}
			}
			s.broadcastReload()
		}
	}
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(p)
		}
		return nil
	})
}
