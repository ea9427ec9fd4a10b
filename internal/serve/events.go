package serve

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 200 * time.Millisecond

// startWatch watches the theme's template directory. The embedded theme has
// nothing to watch.
func (s *Server) startWatch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("serve: watcher: %w", err)
	}

	if dir := s.tpl.Dir(); dir != "" {
		if _, err := os.Stat(dir); err != nil {
			_ = w.Close()
			return fmt.Errorf("serve: watch %s: %w", dir, err)
		}
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return fmt.Errorf("serve: watch %s: %w", dir, err)
		}
	}
	s.watcher = w
	return nil
}

func (s *Server) watchLoop(ctx context.Context) {
	s.log.Info("watching theme templates", slog.String("dir", s.tpl.Dir()))
	debounce := time.NewTimer(time.Hour)
	debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				debounce.Reset(reloadDebounce)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("watcher error", slog.String("error", err.Error()))
		case <-debounce.C:
			s.reload()
		}
	}
}

// reload swaps in the current templates and tells connected pages to
// refresh. A broken template keeps the previous set.
func (s *Server) reload() {
	if err := s.tpl.Reload(); err != nil {
		s.log.Error("template reload failed", slog.String("error", err.Error()))
		return
	}
	s.log.Info("templates reloaded", slog.String("version", s.tpl.Version()))
	s.broadcastSSE("reload")
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan string, 8)

	s.sseMu.Lock()
	if s.sseConns == nil {
		s.sseMu.Unlock()
		return
	}
	s.sseConns[ch] = struct{}{}
	s.sseMu.Unlock()

	defer func() {
		s.sseMu.Lock()
		if _, ok := s.sseConns[ch]; ok {
			delete(s.sseConns, ch)
			close(ch)
		}
		s.sseMu.Unlock()
	}()

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, s.tpl.Version())
			flusher.Flush()
		}
	}
}

func (s *Server) broadcastSSE(event string) {
	s.sseMu.Lock()
	defer s.sseMu.Unlock()
	for ch := range s.sseConns {
		select {
		case ch <- event:
		default:
		}
	}
}

// closeSSE ends every open stream so Shutdown does not wait on them.
func (s *Server) closeSSE() {
	s.sseMu.Lock()
	defer s.sseMu.Unlock()
	for ch := range s.sseConns {
		close(ch)
	}
	s.sseConns = nil
}

func (s *Server) subscribers() int {
	s.sseMu.Lock()
	defer s.sseMu.Unlock()
	return len(s.sseConns)
}
