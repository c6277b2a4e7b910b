package app

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/hub"
	memberdomain "realtime_chat_service/internal/member/domain"
	"realtime_chat_service/pkg/config"
	errprocess "realtime_chat_service/pkg/err"
	"realtime_chat_service/pkg/logger"
	"realtime_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// frameTimeout 每個 inbound frame 的處理上限
const frameTimeout = 10 * time.Second

// ChatWebsocketHandler /ws/chat/:chat_id, 一條連線對應一個 (聊天室, 使用者)
type ChatWebsocketHandler struct {
	auth        middlewares.Authenticator
	registry    *hub.Registry
	broadcaster hub.Broadcaster
	messageUC   MessageUseCase
	deliveryUC  DeliveryUseCase
	members     MemberDirectory
	cfg         config.WebSocketConfig
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(
	auth middlewares.Authenticator,
	registry *hub.Registry,
	broadcaster hub.Broadcaster,
	messageUC MessageUseCase,
	deliveryUC DeliveryUseCase,
	members MemberDirectory,
	cfg config.WebSocketConfig,
) *ChatWebsocketHandler {
	if broadcaster == nil {
		broadcaster = registry
	}
	return &ChatWebsocketHandler{
		auth:        auth,
		registry:    registry,
		broadcaster: broadcaster,
		messageUC:   messageUC,
		deliveryUC:  deliveryUC,
		members:     members,
		cfg:         withWebSocketDefaults(cfg),
	}
}

// Upgrade 升級前把 token 存進 locals, 驗證在升級後做才能回 close code
func (h *ChatWebsocketHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	c.Locals(middlewares.TokenRaw, middlewares.ExtractToken(c))
	return c.Next()
}

// HandleConnection 是 WebSocket 連線的進入點
func (h *ChatWebsocketHandler) HandleConnection(conn *websocket.Conn) {
	chatID := conn.Params("chat_id")
	credential, _ := conn.Locals(middlewares.TokenRaw).(string)
	if credential == "" {
		closeWebSocketConnection(conn, domain.CloseMissingToken, "missing token")
		return
	}

	c, code, reason := h.join(conn, chatID, credential)
	if c == nil {
		closeWebSocketConnection(conn, code, reason)
		return
	}
	memberID := c.UserID()
	c.log.Info("websocket connected")

	go c.writePump()
	defer h.leave(c, chatID)

	h.setPresence(memberID, chatID, memberdomain.MemberStatusOnline)

	pongWait := 2 * h.cfg.PingInterval
	conn.SetReadLimit(h.cfg.ReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	//server發出ping之後client連線正常會回pong
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) || c.closed() {
				c.log.Debug("websocket closed", zap.Error(err))
			} else {
				c.log.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		if mt != websocket.TextMessage {
			h.sendError(c, errprocess.New(errprocess.ErrInvalidRequest, "only text frames are supported"))
			continue
		}
		h.handleFrame(c, chatID, data)
	}
}

// join 驗證 token 並加入聊天室, 失敗時回傳 close code
func (h *ChatWebsocketHandler) join(conn *websocket.Conn, chatID, credential string) (*wsConn, int, string) {
	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.AuthTimeout)
	defer cancel()

	memberID, err := h.auth.Authenticate(ctx, credential)
	if err != nil {
		if errors.Is(err, errprocess.ErrTransientStore) {
			logger.Log.Error("websocket authenticate", zap.Error(err))
			return nil, websocket.CloseInternalServerErr, "store unavailable"
		}
		return nil, domain.CloseInvalidToken, errprocess.MessageOf(err)
	}

	c := newWSConn(conn, chatID, memberID, h.cfg)
	// connected 要在 Subscribe 之前進 buffer, 之後的廣播才會排在它後面
	_ = c.Send(domain.EncodeFrame(domain.ConnectedFrame{
		Type:   domain.FrameConnected,
		ChatID: chatID,
		UserID: memberID,
	}))
	if err := h.registry.Subscribe(ctx, chatID, c); err != nil {
		if errors.Is(err, errprocess.ErrNotFound) {
			return nil, domain.CloseNotParticipant, "not a participant"
		}
		c.log.Error("websocket subscribe", zap.Error(err))
		return nil, websocket.CloseInternalServerErr, "store unavailable"
	}
	h.registry.BindUser(memberID, c)
	return c, 0, ""
}

// leave 斷線清理, 只有目前綁定的連線才會把使用者設為離線
func (h *ChatWebsocketHandler) leave(c *wsConn, chatID string) {
	h.registry.Unsubscribe(chatID, c)
	if h.registry.UnbindUser(c.UserID(), c) {
		h.setPresence(c.UserID(), chatID, memberdomain.MemberStatusOffline)
	}
	_ = c.Close()
	<-c.writerDone
	c.log.Info("websocket close")
}

func (h *ChatWebsocketHandler) setPresence(memberID, chatID string, status memberdomain.MemberStatus) {
	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	defer cancel()
	if err := h.members.SetPresence(ctx, memberID, status); err != nil {
		logger.Log.Error("set presence", zap.String("user_id", memberID), zap.String("status", string(status)), zap.Error(err))
	}
	h.broadcaster.Broadcast(chatID, domain.EncodeFrame(domain.UserStatusFrame{
		Type:   domain.FrameUserStatus,
		UserID: memberID,
		Status: string(status),
	}))
}

// handleFrame 同一條連線的 frame 依序處理, 失敗回 error frame 不斷線
func (h *ChatWebsocketHandler) handleFrame(c *wsConn, chatID string, data []byte) {
	var frame domain.InboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		h.sendError(c, errprocess.New(errprocess.ErrInvalidRequest, "malformed frame"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	defer cancel()

	switch frame.Type {
	//傳送訊息, 寫入 db 後由 broadcast 回給所有人 (包含自己)
	case domain.FrameMessage:
		_, err := h.messageUC.SubmitMessage(ctx, SubmitMessageReq{
			ConversationID: chatID,
			SenderID:       c.UserID(),
			Content:        frame.Content,
			MessageType:    frame.MessageType,
			ReplyTo:        frame.ReplyTo,
		})
		if err != nil {
			h.sendError(c, err)
		}

	//讀取訊息
	case domain.FrameRead:
		if frame.MessageID == "" {
			h.sendError(c, errprocess.New(errprocess.ErrInvalidRequest, "message_id is required"))
			return
		}
		if _, err := h.deliveryUC.MarkRead(ctx, chatID, frame.MessageID, c.UserID()); err != nil {
			h.sendError(c, err)
		}

	case domain.FrameDelivered:
		if frame.MessageID == "" {
			h.sendError(c, errprocess.New(errprocess.ErrInvalidRequest, "message_id is required"))
			return
		}
		if _, err := h.deliveryUC.MarkDelivered(ctx, chatID, frame.MessageID, c.UserID()); err != nil {
			h.sendError(c, err)
		}

	case domain.FramePing:
		_ = c.Send(domain.EncodeFrame(domain.PongFrame{Type: domain.FramePong}))

	default:
		h.sendError(c, errprocess.New(errprocess.ErrInvalidRequest, "unknown frame type"))
	}
}

func (h *ChatWebsocketHandler) sendError(c *wsConn, err error) {
	if errprocess.CodeOf(err) == errprocess.CodeInternal || errors.Is(err, errprocess.ErrTransientStore) {
		c.log.Error("websocket frame failed", zap.Error(err))
	}
	_ = c.Send(domain.EncodeFrame(domain.ErrorFrame{
		Type:    domain.FrameError,
		Code:    string(errprocess.CodeOf(err)),
		Message: errprocess.MessageOf(err),
	}))
}

func closeWebSocketConnection(conn *websocket.Conn, code int, reason string) {
	if err := conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(time.Second),
	); err != nil {
		logger.Log.Debug("Failed to send CloseMessage", zap.Error(err))
	}
	logger.Log.Info("websocket rejected", zap.Int("code", code), zap.String("reason", reason))
}
