package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	handshakeTimeout = 15 * time.Second
	frameBuffer      = 64
)

// WebsocketSource receives binary frames from a relay. A background pump owns
// the connection and redials after failures, at most once per reconnect
// interval.
type WebsocketSource struct {
	url     string
	dialer  *websocket.Dialer
	limiter *rate.Limiter
	logger  *zap.Logger

	frames chan []byte
	once   sync.Once
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewWebsocketSource(url string, reconnectInterval time.Duration, logger *zap.Logger) *WebsocketSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if reconnectInterval > 0 {
		limit = rate.Every(reconnectInterval)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WebsocketSource{
		url: url,
		dialer: &websocket.Dialer{
			HandshakeTimeout:  handshakeTimeout,
			EnableCompression: true,
		},
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.Named("websocket").With(zap.String("url", url)),
		frames:  make(chan []byte, frameBuffer),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (s *WebsocketSource) Receive(ctx context.Context, timeout time.Duration) ([]byte, error) {
	s.once.Do(func() { go s.pump() })

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case frame := <-s.frames:
		return frame, nil
	case <-timer.C:
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.ctx.Done():
		return nil, fmt.Errorf("websocket source closed: %w", s.ctx.Err())
	}
}

func (s *WebsocketSource) Close() error {
	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *WebsocketSource) pump() {
	for {
		if err := s.limiter.Wait(s.ctx); err != nil {
			return
		}

		conn, _, err := s.dialer.DialContext(s.ctx, s.url, nil)
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.logger.Warn("dial failed", zap.Error(err))
			continue
		}
		s.logger.Info("connected")

		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()

		err = s.read(conn)

		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		conn.Close()

		if s.ctx.Err() != nil {
			return
		}
		s.logger.Warn("connection lost", zap.Error(err))
	}
}

func (s *WebsocketSource) read(conn *websocket.Conn) error {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return errors.New("relay closed the connection")
			}
			return err
		}
		select {
		case s.frames <- frame:
		case <-s.ctx.Done():
			return s.ctx.Err()
		}
	}
}
