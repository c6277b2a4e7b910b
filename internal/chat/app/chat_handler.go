package app

import (
	"errors"
	"strings"

	errprocess "realtime_chat_service/pkg/err"
	"realtime_chat_service/pkg/logger"
	"realtime_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ChatHandler 聊天室 REST API
type ChatHandler struct {
	conversationUC ConversationUseCase
	messageUC      MessageUseCase
	deliveryUC     DeliveryUseCase
	attachmentUC   AttachmentUseCase
}

// NewChatHandler create ChatHandler
func NewChatHandler(
	conversationUC ConversationUseCase,
	messageUC MessageUseCase,
	deliveryUC DeliveryUseCase,
	attachmentUC AttachmentUseCase,
) *ChatHandler {
	return &ChatHandler{
		conversationUC: conversationUC,
		messageUC:      messageUC,
		deliveryUC:     deliveryUC,
		attachmentUC:   attachmentUC,
	}
}

// CreatePrivateReq 建立 1對1 聊天室
type CreatePrivateReq struct {
	ParticipantID string `json:"participant_id"`
}

// ReadResp 已讀回傳
type ReadResp struct {
	Status      string `json:"status"`
	UnreadCount *int64 `json:"unread_count,omitempty"`
}

// CreatePrivate 建立或取得 1對1 聊天室
// @Summary 建立或取得 1對1 聊天室
// @Tags Chats
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param participant_id query string false "對方 id"
// @Param request body CreatePrivateReq false "對方 id"
// @Success 200 {object} domain.ConversationView
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/chats [post]
func (h *ChatHandler) CreatePrivate(c *fiber.Ctx) error {
	participantID := c.Query("participant_id")
	if participantID == "" && len(c.Body()) > 0 {
		var req CreatePrivateReq
		if err := c.BodyParser(&req); err != nil {
			return middlewares.ErrorResponse(c, fiber.NewError(fiber.StatusBadRequest, "invalid request body"))
		}
		participantID = req.ParticipantID
	}

	view, err := h.conversationUC.CreatePrivate(c.UserContext(), middlewares.MemberID(c), participantID)
	if err != nil {
		return middlewares.ErrorResponse(c, err)
	}
	return c.JSON(view)
}

// CreateGroup 建立群組
// @Summary 建立群組
// @Tags Chats
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body CreateGroupReq true "群組資料"
// @Success 200 {object} domain.ConversationView
// @Router /api/chats/group [post]
func (h *ChatHandler) CreateGroup(c *fiber.Ctx) error {
	var req CreateGroupReq
	if err := c.BodyParser(&req); err != nil {
		return middlewares.ErrorResponse(c, fiber.NewError(fiber.StatusBadRequest, "invalid request body"))
	}

	view, err := h.conversationUC.CreateGroup(c.UserContext(), middlewares.MemberID(c), req)
	if err != nil {
		return middlewares.ErrorResponse(c, err)
	}
	return c.JSON(view)
}

// UpdateConversation 修改群組設定
// @Summary 修改群組設定 (建立者)
// @Tags Chats
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "chat id"
// @Param request body UpdateGroupReq true "群組設定"
// @Success 200 {object} domain.ConversationView
// @Failure 403 {object} map[string]string
// @Router /api/chats/{id} [patch]
func (h *ChatHandler) UpdateConversation(c *fiber.Ctx) error {
	var req UpdateGroupReq
	if err := c.BodyParser(&req); err != nil {
		return middlewares.ErrorResponse(c, fiber.NewError(fiber.StatusBadRequest, "invalid request body"))
	}

	view, err := h.conversationUC.UpdateGroupSettings(c.UserContext(), c.Params("id"), middlewares.MemberID(c), req)
	if err != nil {
		return middlewares.ErrorResponse(c, err)
	}
	return c.JSON(view)
}

// ListConversations 我的聊天室
// @Summary 我的聊天室列表
// @Tags Chats
// @Security BearerAuth
// @Produce json
// @Success 200 {array} domain.ConversationView
// @Router /api/chats [get]
func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	views, err := h.conversationUC.ListConversations(c.UserContext(), middlewares.MemberID(c))
	if err != nil {
		return middlewares.ErrorResponse(c, err)
	}
	return c.JSON(views)
}

// GetConversation 單一聊天室
// @Summary 單一聊天室
// @Tags Chats
// @Security BearerAuth
// @Produce json
// @Param id path string true "chat id"
// @Success 200 {object} domain.ConversationView
// @Failure 404 {object} map[string]string
// @Router /api/chats/{id} [get]
func (h *ChatHandler) GetConversation(c *fiber.Ctx) error {
	view, err := h.conversationUC.GetConversation(c.UserContext(), c.Params("id"), middlewares.MemberID(c))
	if err != nil {
		return middlewares.ErrorResponse(c, err)
	}
	return c.JSON(view)
}

// UnreadSummary 各聊天室未讀數
// @Summary 各聊天室未讀數
// @Tags Chats
// @Security BearerAuth
// @Produce json
// @Success 200 {array} domain.UnreadInfo
// @Router /api/chats/unread [get]
func (h *ChatHandler) UnreadSummary(c *fiber.Ctx) error {
	infos, err := h.deliveryUC.UnreadByConversation(c.UserContext(), middlewares.MemberID(c))
	if err != nil {
		return middlewares.ErrorResponse(c, err)
	}
	return c.JSON(infos)
}

// SendMessage 送出訊息
// @Summary 送出訊息
// @Tags Messages
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "chat id"
// @Param request body SubmitMessageReq true "訊息"
// @Success 200 {object} domain.Message
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/chats/{id}/messages [post]
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	var req SubmitMessageReq
	if err := c.BodyParser(&req); err != nil {
		return middlewares.ErrorResponse(c, fiber.NewError(fiber.StatusBadRequest, "invalid request body"))
	}
	req.ConversationID = c.Params("id")
	req.SenderID = middlewares.MemberID(c)
	req.File = nil

	msg, err := h.messageUC.SubmitMessage(c.UserContext(), req)
	if err != nil {
		return middlewares.ErrorResponse(c, err)
	}
	return c.JSON(msg)
}

// ListMessages 訊息分頁
// @Summary 訊息分頁 (新的一頁在前, 頁內由舊到新)
// @Tags Messages
// @Security BearerAuth
// @Produce json
// @Param id path string true "chat id"
// @Param skip query int false "skip" default(0)
// @Param limit query int false "limit" default(50)
// @Success 200 {array} domain.Message
// @Router /api/chats/{id}/messages [get]
func (h *ChatHandler) ListMessages(c *fiber.Ctx) error {
	skip := c.QueryInt("skip", 0)
	limit := c.QueryInt("limit", int(defaultPageSize))

	msgs, err := h.messageUC.ListMessages(c.UserContext(), c.Params("id"), middlewares.MemberID(c), int64(skip), int64(limit))
	if err != nil {
		return middlewares.ErrorResponse(c, err)
	}
	return c.JSON(msgs)
}

// MarkRead 標記已讀
// @Summary 標記已讀
// @Tags Messages
// @Security BearerAuth
// @Produce json
// @Param id path string true "chat id"
// @Param mid path string true "message id"
// @Success 200 {object} ReadResp
// @Failure 404 {object} map[string]string
// @Router /api/chats/{id}/messages/{mid}/read [post]
func (h *ChatHandler) MarkRead(c *fiber.Ctx) error {
	receipt, err := h.deliveryUC.MarkRead(c.UserContext(), c.Params("id"), c.Params("mid"), middlewares.MemberID(c))
	if err != nil {
		return middlewares.ErrorResponse(c, err)
	}
	if receipt.AlreadyRead {
		return c.JSON(ReadResp{Status: string(errprocess.CodeAlreadyRead)})
	}
	return c.JSON(ReadResp{Status: "success", UnreadCount: &receipt.UnreadCount})
}

// MarkDelivered 標記已送達
// @Summary 標記已送達
// @Tags Messages
// @Security BearerAuth
// @Produce json
// @Param id path string true "chat id"
// @Param mid path string true "message id"
// @Success 200 {object} map[string]string
// @Router /api/chats/{id}/messages/{mid}/delivered [post]
func (h *ChatHandler) MarkDelivered(c *fiber.Ctx) error {
	already, err := h.deliveryUC.MarkDelivered(c.UserContext(), c.Params("id"), c.Params("mid"), middlewares.MemberID(c))
	if err != nil {
		return middlewares.ErrorResponse(c, err)
	}
	if already {
		return c.JSON(fiber.Map{"status": "already_delivered"})
	}
	return c.JSON(fiber.Map{"status": "success"})
}

// Upload 上傳檔案訊息
// @Summary 上傳檔案訊息 (上限 10 MiB)
// @Tags Messages
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "chat id"
// @Param file formData file true "file"
// @Param content formData string false "caption"
// @Success 200 {object} domain.Message
// @Failure 400 {object} map[string]string "invalid_request or payload_too_large"
// @Router /api/chats/{id}/upload [post]
func (h *ChatHandler) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return middlewares.ErrorResponse(c, errprocess.New(errprocess.ErrInvalidRequest, "file is required"))
	}

	req := SubmitFileReq{
		ConversationID: c.Params("id"),
		SenderID:       middlewares.MemberID(c),
		FileName:       fh.Filename,
		ContentType:    fh.Header.Get(fiber.HeaderContentType),
		Size:           fh.Size,
		Caption:        strings.TrimSpace(c.FormValue("content")),
	}
	// 宣告大小超過就不開檔
	if fh.Size > h.attachmentUC.MaxFileSize() {
		_, err := h.attachmentUC.SubmitFile(c.UserContext(), req)
		return middlewares.ErrorResponse(c, err)
	}

	f, err := fh.Open()
	if err != nil {
		logger.Log.Error("open upload", zap.Error(err))
		return middlewares.ErrorResponse(c, errprocess.New(errprocess.ErrInvalidRequest, "read file failed"))
	}
	defer f.Close()
	req.Body = f

	msg, err := h.attachmentUC.SubmitFile(c.UserContext(), req)
	if err != nil {
		return middlewares.ErrorResponse(c, err)
	}
	return c.JSON(msg)
}

// Download 下載附件
// @Summary 下載附件 (302 到 presigned url)
// @Tags Messages
// @Security BearerAuth
// @Param id path string true "chat id"
// @Param attachment_id path string true "attachment id"
// @Success 302
// @Failure 404 {object} map[string]string
// @Router /api/chats/{id}/files/{attachment_id} [get]
func (h *ChatHandler) Download(c *fiber.Ctx) error {
	url, err := h.attachmentUC.DownloadURL(c.UserContext(), c.Params("id"), c.Params("attachment_id"), middlewares.MemberID(c))
	if err != nil {
		var e *errprocess.Error
		if !errors.As(err, &e) {
			logger.Log.Error("download url", zap.Error(err))
		}
		return middlewares.ErrorResponse(c, err)
	}
	return c.Redirect(url, fiber.StatusFound)
}
