// Package server exposes a running scene to external tools: a JSON snapshot
// of the entity tree over HTTP and the lifecycle event stream over websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/aframevr/aframe-sub002/internal/core/events/bus"
	"github.com/aframevr/aframe-sub002/internal/core/observability/log"
	"github.com/aframevr/aframe-sub002/internal/core/scene"
)

// SnapshotFunc renders the current scene. It must be safe to call from any
// goroutine; with a running frame loop it goes through scene.Runner.Do.
type SnapshotFunc func(ctx context.Context) (*scene.Document, error)

type Config struct {
	Addr  string
	Token string
	// History is the number of recent events replayed to a new stream client.
	History int
	// SendBuffer is the per-client queue length; events beyond it are dropped
	// for that client.
	SendBuffer int
}

func DefaultConfig() Config {
	return Config{
		Addr:       "127.0.0.1:8089",
		History:    64,
		SendBuffer: 256,
	}
}

// Inspector serves /scene, /events, /stats and /healthz.
type Inspector struct {
	cfg      Config
	bus      bus.EventBus
	snapshot SnapshotFunc
	auth     TokenAuth
	log      log.Log
	mux      *http.ServeMux
	stream   *EventStream
	stats    *busStats

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	closed   bool
}

func NewInspector(cfg Config, b bus.EventBus, snapshot SnapshotFunc, logger log.Log) (*Inspector, error) {
	if b == nil || snapshot == nil {
		return nil, fmt.Errorf("%w: bus and snapshot are required", ErrInvalidConfig)
	}
	def := DefaultConfig()
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = def.SendBuffer
	}
	if cfg.History < 0 {
		cfg.History = 0
	}
	logger = logger.With(log.String("scope", "inspector"))
	i := &Inspector{
		cfg:      cfg,
		bus:      b,
		snapshot: snapshot,
		auth:     TokenAuth{Token: cfg.Token},
		log:      logger,
		mux:      http.NewServeMux(),
		stream:   NewEventStream(cfg.History, cfg.SendBuffer, logger),
		stats:    newBusStats(),
	}
	b.AddObserver(i.stats)
	i.mux.Handle("/scene", i.auth.Wrap(http.HandlerFunc(i.handleScene)))
	i.mux.HandleFunc("/events", i.stream.handleWebSocket(i.auth))
	i.mux.Handle("/stats", i.auth.Wrap(http.HandlerFunc(i.handleStats)))
	i.mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return i, nil
}

func (i *Inspector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	i.mux.ServeHTTP(w, r)
}

// Stream returns the event fan-out; Attach subscribes it to the bus.
func (i *Inspector) Stream() *EventStream { return i.stream }

// Start subscribes to the bus and serves on cfg.Addr until Stop.
func (i *Inspector) Start(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return ErrServerClosed
	}
	if i.server != nil {
		return ErrServerAlreadyRunning
	}
	if err := i.stream.Attach(i.bus); err != nil {
		return err
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", i.cfg.Addr)
	if err != nil {
		_ = i.stream.Detach()
		return fmt.Errorf("inspector listen %s: %w", i.cfg.Addr, err)
	}
	i.listener = ln
	i.server = &http.Server{
		Handler:           i,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			i.log.Error("inspector stopped", log.Error(err))
		}
	}(i.server)
	i.log.Info("inspector listening", log.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, useful with port 0.
func (i *Inspector) Addr() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.listener == nil {
		return ""
	}
	return i.listener.Addr().String()
}

// Stop detaches from the bus and shuts the HTTP server down. Stream clients
// are closed.
func (i *Inspector) Stop(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.server == nil {
		return ErrServerNotRunning
	}
	i.closed = true
	i.bus.RemoveObserver(i.stats)
	err := errors.Join(i.stream.Detach(), i.server.Shutdown(ctx))
	i.stream.CloseClients()
	i.server = nil
	return err
}

func (i *Inspector) handleScene(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	doc, err := i.snapshot(r.Context())
	if err != nil {
		i.log.Warn("scene snapshot failed", log.Error(err))
		http.Error(w, "snapshot unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		i.log.Debug("scene response aborted", log.Error(err))
	}
}
