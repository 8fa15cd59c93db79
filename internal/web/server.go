// Package web serves the status API and a websocket stream of parsed
// sentences.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	streamWriteWait  = 5 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = 50 * time.Second
	streamBuffer     = 64
)

var upgrader = websocket.Upgrader{
	// The stream is read-only and meant for local tools.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet {
		return true
	}
	w.Header().Set("Allow", http.MethodGet)
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	return false
}

// Handler returns the HTTP mux. hub and logs may be nil, in which case the
// matching endpoints are not registered.
func Handler(status *Status, hub *Hub, logs *LogBuffer) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if !allowGet(w, r) {
			return
		}
		b, err := json.MarshalIndent(status.Snapshot(time.Now().UTC()), "", "  ")
		if err != nil {
			http.Error(w, "marshal failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
		_, _ = w.Write([]byte("\n"))
	})

	if hub != nil {
		mux.HandleFunc("/api/stream", func(w http.ResponseWriter, r *http.Request) {
			serveStream(hub, w, r)
		})
	}

	if logs != nil {
		mux.Handle("/api/logs", logs.Handler())
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if !allowGet(w, r) {
			return
		}
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		snap := status.Snapshot(time.Now().UTC())
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = fmt.Fprintf(w, "<!doctype html><html><head><meta charset=\"utf-8\"><title>nmea-ng</title></head><body>")
		_, _ = fmt.Fprintf(w, "<h1>nmea-ng</h1>")
		_, _ = fmt.Fprintf(w, "<p>Status: <a href=\"/api/status\">/api/status</a>. Sentence stream: <code>ws://host/api/stream</code>.</p>")
		_, _ = fmt.Fprintf(w, "<pre>input=%s\nuptime_sec=%d\n", html.EscapeString(snap.Input), snap.UptimeSec)
		if snap.Feed != nil {
			_, _ = fmt.Fprintf(w, "state=%s\nlines=%d\nparsed=%d\nchecksum_failures=%d\nparse_errors=%d\n",
				html.EscapeString(snap.Feed.State), snap.Feed.Lines, snap.Feed.Parsed,
				snap.Feed.ChecksumFailures, snap.Feed.ParseErrors,
			)
		}
		_, _ = fmt.Fprintf(w, "</pre></body></html>")
	})

	return mux
}

// serveStream pushes every hub message to one websocket client until the
// client goes away. Incoming frames are read only to process control frames.
func serveStream(hub *Hub, w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web stream upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	id, ch := hub.Subscribe(streamBuffer)
	defer hub.Unsubscribe(id)

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
					log.Printf("web stream read error: %v", err)
				}
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case b, ok := <-ch:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		}
	}
}

func Serve(ctx context.Context, listenAddr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
