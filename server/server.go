// Package server is the ambient visualization harness: it runs a Provider
// against wall-clock-paced ticks and republishes ProviderState/events over
// SSE and websocket, for a browser-side viewer. It observes the engine; it
// never decides, so it sits outside the determinism guarantee the core
// packages provide. Uses gorilla/mux, gorilla/websocket, and channerics for
// the ticker/ping-pong shape.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"

	"github.com/jwmdev/trafficcore/provider"
	"github.com/jwmdev/trafficcore/roadmap"
	"github.com/jwmdev/trafficcore/telemetry"
)

const (
	writeWait      = 1 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	defaultDt      = 0.1
	minPlaybackX   = 0.1
	maxPlaybackX   = 10.0
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// connControl holds per-stream tunables a client can adjust live without
// restarting the run.
type connControl struct {
	speed atomic.Value // float64 playback multiplier
}

func newConnControl(initSpeed float64) *connControl {
	c := &connControl{}
	c.speed.Store(clampSpeed(initSpeed))
	return c
}

func (c *connControl) Speed() float64 {
	v := c.speed.Load()
	if v == nil {
		return 1
	}
	return v.(float64)
}

func (c *connControl) SetSpeed(s float64) { c.speed.Store(clampSpeed(s)) }

func clampSpeed(s float64) float64 {
	if s <= 0 {
		return 1
	}
	if s < minPlaybackX {
		return minPlaybackX
	}
	if s > maxPlaybackX {
		return maxPlaybackX
	}
	return s
}

// Options configures the server and the scenario it runs for each
// connection.
type Options struct {
	Addr           string
	RoadMap        roadmap.RoadMap
	TrafficSpec    func() (io.Reader, error) // called fresh per connection
	Seed           int64
	EndlessTraffic bool
	Dt             float64
	DefaultSpeed   float64
	Metrics        *telemetry.Metrics
}

// Server hosts the HTTP/SSE/websocket visualization surface.
type Server struct {
	opt            Options
	streamControls sync.Map // map[connID]*connControl
}

// New builds a Server from Options.
func New(opt Options) *Server {
	if opt.Dt <= 0 {
		opt.Dt = defaultDt
	}
	if opt.DefaultSpeed <= 0 {
		opt.DefaultSpeed = 1
	}
	return &Server{opt: opt}
}

// Router builds the gorilla/mux router for all handlers.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/scenario", s.handleScenario).Methods(http.MethodGet)
	r.HandleFunc("/api/control", s.handleControl).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/stream", s.handleStream).Methods(http.MethodGet)
	r.HandleFunc("/api/ws", s.handleWebsocket).Methods(http.MethodGet)
	if s.opt.Metrics != nil {
		r.Handle("/metrics", s.opt.Metrics.Handler()).Methods(http.MethodGet)
	}
	return r
}

// Serve blocks, listening on opt.Addr.
func (s *Server) Serve() error {
	return http.ListenAndServe(s.opt.Addr, s.Router())
}

func (s *Server) handleScenario(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(map[string]any{
		"endless_traffic": s.opt.EndlessTraffic,
		"dt":              s.opt.Dt,
		"seed":            s.opt.Seed,
	})
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	var req struct {
		ConnID string  `json:"conn_id"`
		Speed  float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	v, ok := s.streamControls.Load(req.ConnID)
	if !ok {
		http.Error(w, "connection not found", http.StatusNotFound)
		return
	}
	c := v.(*connControl)
	if req.Speed != 0 {
		c.SetSpeed(req.Speed)
		log.Printf("control: conn=%s speed=%.2fx", req.ConnID, c.Speed())
	}
	w.WriteHeader(http.StatusNoContent)
}

// runTicker drives one Provider forward at wall-clock pace scaled by ctrl's
// live speed multiplier, invoking publish with each tick's state and events
// until ctx is cancelled.
func (s *Server) runTicker(ctx context.Context, ctrl *connControl, publish func(state provider.ProviderState, events []provider.Event)) {
	logger := telemetry.NewLogger(nil)
	metrics := s.opt.Metrics
	if metrics == nil {
		metrics = telemetry.NewMetrics()
	}
	p := provider.New(logger, metrics)

	var spec io.Reader
	if s.opt.TrafficSpec != nil {
		if rd, err := s.opt.TrafficSpec(); err == nil {
			spec = rd
		}
	}
	if err := p.Setup(provider.Scenario{
		RoadMap: s.opt.RoadMap, TrafficSpec: spec, Seed: s.opt.Seed,
		EndlessTraffic: s.opt.EndlessTraffic, SourceID: "server",
	}); err != nil {
		log.Printf("server: setup failed: %v", err)
		return
	}
	defer p.Teardown()

	var simTime float64
	ticker := time.NewTicker(time.Duration(s.opt.Dt * float64(time.Second)))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dt := s.opt.Dt * ctrl.Speed()
			state, events, err := p.Step(dt, simTime)
			if err != nil {
				log.Printf("server: step failed: %v", err)
				return
			}
			simTime += dt
			publish(state, events)
		}
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	connID := fmt.Sprintf("%d", time.Now().UnixNano())
	ctrl := newConnControl(s.opt.DefaultSpeed)
	s.streamControls.Store(connID, ctrl)
	defer s.streamControls.Delete(connID)

	var writeMu sync.Mutex
	flush := func(event string, payload any) {
		writeMu.Lock()
		defer writeMu.Unlock()
		b, _ := json.Marshal(payload)
		fmt.Fprintf(w, "event: %s\n", event)
		fmt.Fprintf(w, "data: %s\n\n", b)
		flusher.Flush()
	}
	flush("init", map[string]any{"conn_id": connID})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	s.runTicker(ctx, ctrl, func(state provider.ProviderState, events []provider.Event) {
		flush("state", state)
		for _, ev := range events {
			flush("event", ev)
		}
	})
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer ws.Close()

	connID := fmt.Sprintf("%d", time.Now().UnixNano())
	ctrl := newConnControl(s.opt.DefaultSpeed)
	s.streamControls.Store(connID, ctrl)
	defer s.streamControls.Delete(connID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	pinger := channerics.NewTicker(ctx.Done(), pingPeriod)
	var writeMu sync.Mutex
	writeJSON := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		ws.SetWriteDeadline(time.Now().Add(writeWait))
		return ws.WriteJSON(v)
	}

	go func() {
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-pinger:
				writeMu.Lock()
				err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
				writeMu.Unlock()
				if err != nil {
					cancel()
					return
				}
			}
		}
	}()

	writeJSON(map[string]any{"type": "init", "conn_id": connID})
	s.runTicker(ctx, ctrl, func(state provider.ProviderState, events []provider.Event) {
		if err := writeJSON(map[string]any{"type": "state", "payload": state}); err != nil {
			cancel()
			return
		}
		for _, ev := range events {
			writeJSON(map[string]any{"type": "event", "payload": ev})
		}
	})
}
