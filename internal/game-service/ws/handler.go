package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/rps-wager-platform/internal/game-service/domain"
	"github.com/radieske/rps-wager-platform/internal/game-service/events"
)

const writeWait = 5 * time.Second

// Handler transforma uma conexão WebSocket numa inscrição de sala.
// A inscrição termina quando o cliente desconecta, o prazo expira ou o broadcaster fecha.
type Handler struct {
	upgrader    websocket.Upgrader
	broadcaster *events.Broadcaster
	log         *zap.Logger
	timeout     time.Duration
}

// NewHandler cria o handler; timeout <= 0 mantém a inscrição até o cliente sair
func NewHandler(b *events.Broadcaster, log *zap.Logger, timeout time.Duration, allowOrigin func(r *http.Request) bool) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		upgrader:    websocket.Upgrader{CheckOrigin: allowOrigin},
		broadcaster: b,
		log:         log,
		timeout:     timeout,
	}
}

// ServeHTTP espera a sala em {room}
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	room, err := domain.NormalizeRoomName(chi.URLParam(r, "room"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	if h.timeout > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, h.timeout)
		defer stop()
	}

	sub, err := h.broadcaster.Subscribe(ctx, room)
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()), time.Now().Add(writeWait))
		return
	}
	defer sub.Close()

	// leitura só detecta desconexão; mensagens do cliente são ignoradas
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for ev := range sub.Events() {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(ev); err != nil {
			h.log.Debug("ws write failed", zap.String("room", room), zap.Error(err))
			return
		}
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "subscription ended"), time.Now().Add(writeWait))
}
