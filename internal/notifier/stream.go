package notifier

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	customError "github.com/segyhp/investment-engine/pkg/errors"
)

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
	pongWait       = 35 * time.Second // must exceed pingPeriod
	maxMessageSize = 512
)

// Streamer relays a user's notification channel to a WebSocket. The stream
// is push-only; inbound frames other than pongs and close are discarded.
type Streamer struct {
	redis    *redis.Client
	prefix   string
	upgrader websocket.Upgrader
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// ErrStreamerClosed is returned by Serve once Close has been called.
var ErrStreamerClosed = errors.New("notification stream is shutting down")

// NewStreamer creates a streamer over rdb. An empty allowedOrigins accepts
// any origin.
func NewStreamer(rdb *redis.Client, prefix string, allowedOrigins []string, logger *zap.Logger) *Streamer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Streamer{
		redis:  rdb,
		prefix: prefix,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowedOrigins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				for _, o := range allowedOrigins {
					if o == "*" || o == origin {
						return true
					}
				}
				return false
			},
		},
		logger: logger.Named("stream"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Serve subscribes to userID's channel and upgrades the request. It blocks
// until the client goes away or the streamer is closed. An error is returned
// only when nothing has been written to w yet.
func (s *Streamer) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return customError.WrapStoreUnavailable(ErrStreamerClosed)
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	// Subscribe before the upgrade so nothing published after the handshake is lost.
	sub := s.redis.Subscribe(ctx, s.prefix+userID)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return customError.WrapStoreUnavailable(err)
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied
		s.logger.Debug("websocket upgrade failed", zap.String("user_id", userID), zap.Error(err))
		return nil
	}

	s.logger.Debug("stream opened", zap.String("user_id", userID))
	go readPump(conn, cancel)
	writePump(ctx, conn, sub.Channel())
	s.logger.Debug("stream closed", zap.String("user_id", userID))
	return nil
}

// Close ends every open stream and waits for them to finish.
func (s *Streamer) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

func writePump(ctx context.Context, conn *websocket.Conn, messages <-chan *redis.Message) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return

		case msg, ok := <-messages:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump keeps the read deadline fresh and cancels the stream once the peer is gone.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
