package app

import (
	"errors"
	"sync"
	"time"

	"realtime_chat_service/pkg/config"
	"realtime_chat_service/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	errConnClosed     = errors.New("connection closed")
	errSendBufferFull = errors.New("send buffer full")
)

// wsConn hub.Connection 實作, 所有寫入都經過同一個 writer goroutine
type wsConn struct {
	id     string
	userID string
	conn   *websocket.Conn
	log    *logger.LogInfo

	send       chan []byte
	done       chan struct{}
	writerDone chan struct{}
	closeOnce  sync.Once

	pingInterval time.Duration
	writeTimeout time.Duration
}

func newWSConn(conn *websocket.Conn, chatID, userID string, cfg config.WebSocketConfig) *wsConn {
	cfg = withWebSocketDefaults(cfg)
	id := uuid.NewString()
	return &wsConn{
		id:           id,
		userID:       userID,
		conn:         conn,
		log:          logger.Log.With(zap.String("conn_id", id), zap.String("chat_id", chatID), zap.String("user_id", userID)),
		send:         make(chan []byte, cfg.SendBuffer),
		done:         make(chan struct{}),
		writerDone:   make(chan struct{}),
		pingInterval: cfg.PingInterval,
		writeTimeout: cfg.WriteTimeout,
	}
}

func withWebSocketDefaults(cfg config.WebSocketConfig) config.WebSocketConfig {
	if cfg.AuthTimeout <= 0 {
		cfg.AuthTimeout = 5 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 256
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = 64 * 1024
	}
	return cfg
}

func (c *wsConn) ID() string     { return c.id }
func (c *wsConn) UserID() string { return c.userID }

// Send 非阻塞, buffer 滿了直接回錯讓 registry 移除這條連線
func (c *wsConn) Send(payload []byte) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return errConnClosed
	default:
		return errSendBufferFull
	}
}

// Close 通知 writer 結束, writer 會關閉底層連線讓 read loop 返回
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}

func (c *wsConn) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// writePump 唯一的寫入者, 也負責定期 ping
func (c *wsConn) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		close(c.writerDone)
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Debug("websocket write failed", zap.Error(err))
				_ = c.Close()
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout)); err != nil {
				c.log.Debug("websocket ping failed", zap.Error(err))
				_ = c.Close()
				return
			}

		case <-c.done:
			// 把已經排隊的 frame 送完再關
			for {
				select {
				case payload := <-c.send:
					_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
					if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
						return
					}
				default:
					_ = c.conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
						time.Now().Add(time.Second))
					return
				}
			}
		}
	}
}
