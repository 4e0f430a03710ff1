package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/protocol"
)

// Options tunes the websocket endpoint.
type Options struct {
	SendBuffer     int
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64
	AllowedOrigins []string
}

func DefaultOptions() Options {
	return Options{
		SendBuffer:     64,
		PingInterval:   30 * time.Second,
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		MaxMessageSize: 4096,
		AllowedOrigins: []string{"*"},
	}
}

type WSHandler struct {
	engine   *app.Engine
	opts     Options
	upgrader websocket.Upgrader
}

func NewWSHandler(engine *app.Engine, opts Options) *WSHandler {
	def := DefaultOptions()
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = def.SendBuffer
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = def.PingInterval
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = def.WriteTimeout
	}
	if opts.ReadTimeout <= opts.PingInterval {
		opts.ReadTimeout = 2 * opts.PingInterval
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = def.MaxMessageSize
	}
	return &WSHandler{
		engine: engine,
		opts:   opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(opts.AllowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// ServeWS upgrades GET /ws/{code} and feeds every frame to the engine.
// ?participantId= attaches the connection right away, "HOST" for the host.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	code := domain.SessionCode(chi.URLParam(r, "code"))
	if code == "" {
		http.Error(w, "missing session code", http.StatusBadRequest)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("session", string(code)).Msg("ws upgrade failed")
		return
	}

	conn := newWSConn(ws, h.opts)
	ctx := context.WithoutCancel(r.Context())
	h.engine.Connect(conn)
	go conn.writePump()
	log.Debug().Str("session", string(code)).Str("conn", conn.ID()).Msg("connection opened")

	if pid := r.URL.Query().Get("participantId"); pid != "" {
		attach, err := protocol.Encode(protocol.New(protocol.TypeAttach, protocol.AttachRequest{ParticipantID: pid}))
		if err == nil {
			h.engine.HandleMessage(ctx, conn, code, attach)
		}
	}

	h.readPump(ctx, conn, code)
	h.engine.Disconnect(ctx, conn)
	log.Debug().Str("session", string(code)).Str("conn", conn.ID()).Msg("connection closed")
}

func (h *WSHandler) readPump(ctx context.Context, conn *wsConn, code domain.SessionCode) {
	ws := conn.ws
	ws.SetReadLimit(h.opts.MaxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(h.opts.ReadTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.opts.ReadTimeout))
	})

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("conn", conn.ID()).Msg("unexpected websocket close")
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(h.opts.ReadTimeout))
		h.engine.HandleMessage(ctx, conn, code, message)
	}
}

type statsResponse struct {
	Connections int `json:"connections"`
	Sessions    int `json:"sessions"`
}

// ServeStats reports how many connections are open and how many sessions have bound connections.
func (h *WSHandler) ServeStats(w http.ResponseWriter, _ *http.Request) {
	conns, sessions := h.engine.Registry().Stats()
	writeJSON(w, http.StatusOK, statsResponse{Connections: conns, Sessions: sessions})
}
