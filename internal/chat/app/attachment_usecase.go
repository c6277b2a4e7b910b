package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/repository"
	"realtime_chat_service/pkg/database"
	errprocess "realtime_chat_service/pkg/err"
	"realtime_chat_service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMaxFileSize 10 MiB
const DefaultMaxFileSize int64 = 10 << 20

// SubmitFileReq 上傳檔案參數
type SubmitFileReq struct {
	ConversationID string
	SenderID       string
	FileName       string
	ContentType    string
	// Size 由 client 宣告, 實際讀取仍受上限保護
	Size    int64
	Body    io.Reader
	Caption string
}

// AttachmentUseCase 檔案訊息
type AttachmentUseCase interface {
	SubmitFile(ctx context.Context, req SubmitFileReq) (*domain.Message, error)
	DownloadURL(ctx context.Context, chatID, attachmentID, viewerID string) (string, error)
	MaxFileSize() int64
}

type attachmentUseCase struct {
	convRepo   repository.ConversationRepository
	attRepo    repository.AttachmentRepository
	storage    database.ObjectStorage
	messages   MessageUseCase
	maxSize    int64
	presignTTL time.Duration
}

// NewAttachmentUseCase create AttachmentUseCase
func NewAttachmentUseCase(
	convRepo repository.ConversationRepository,
	attRepo repository.AttachmentRepository,
	storage database.ObjectStorage,
	messages MessageUseCase,
	maxSize int64,
	presignTTL time.Duration,
) AttachmentUseCase {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if presignTTL <= 0 {
		presignTTL = 15 * time.Minute
	}
	return &attachmentUseCase{
		convRepo:   convRepo,
		attRepo:    attRepo,
		storage:    storage,
		messages:   messages,
		maxSize:    maxSize,
		presignTTL: presignTTL,
	}
}

func (uc *attachmentUseCase) MaxFileSize() int64 {
	return uc.maxSize
}

func (uc *attachmentUseCase) tooLarge() error {
	return errprocess.New(errprocess.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d MiB", uc.maxSize>>20))
}

// SubmitFile 非成員一律 not_found; 超過上限時不寫任何資料也不廣播
func (uc *attachmentUseCase) SubmitFile(ctx context.Context, req SubmitFileReq) (*domain.Message, error) {
	if err := checkParticipant(ctx, uc.convRepo, req.ConversationID, req.SenderID); err != nil {
		return nil, err
	}
	if req.Size > uc.maxSize {
		return nil, uc.tooLarge()
	}
	fileName := filepath.Base(strings.TrimSpace(req.FileName))
	if fileName == "" || fileName == "." || fileName == "/" {
		return nil, errprocess.New(errprocess.ErrInvalidRequest, "file name is required")
	}
	if req.Body == nil {
		return nil, errprocess.New(errprocess.ErrInvalidRequest, "file is required")
	}

	// 多讀一個 byte 判斷宣告大小是否造假
	data, err := io.ReadAll(io.LimitReader(req.Body, uc.maxSize+1))
	if err != nil {
		return nil, errprocess.New(errprocess.ErrInvalidRequest, "read file failed")
	}
	if int64(len(data)) > uc.maxSize {
		return nil, uc.tooLarge()
	}
	if len(data) == 0 {
		return nil, errprocess.New(errprocess.ErrInvalidRequest, "file is empty")
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	contentType := detectContentType(req.ContentType, ext, data)

	att := &domain.Attachment{
		ID:          uuid.NewString(),
		ChatID:      req.ConversationID,
		UploaderID:  req.SenderID,
		FileName:    fileName,
		ContentType: contentType,
		Size:        int64(len(data)),
	}
	att.ObjectKey = fmt.Sprintf("chats/%s/%s%s", req.ConversationID, att.ID, ext)

	if err := uc.storage.PutObject(ctx, att.ObjectKey, bytes.NewReader(data), att.Size, contentType); err != nil {
		return nil, errprocess.Wrap(errprocess.ErrTransientStore, err)
	}
	if err := uc.attRepo.Create(ctx, att); err != nil {
		uc.cleanup(ctx, att, false)
		return nil, errprocess.Wrap(errprocess.ErrTransientStore, err)
	}

	msg, err := uc.messages.SubmitMessage(ctx, SubmitMessageReq{
		ConversationID: req.ConversationID,
		SenderID:       req.SenderID,
		Content:        req.Caption,
		MessageType:    messageTypeFor(contentType),
		File:           att.FileInfo(),
	})
	if err != nil {
		uc.cleanup(ctx, att, true)
		return nil, err
	}

	logger.Log.Info("file uploaded",
		zap.String("chat_id", att.ChatID),
		zap.String("attachment_id", att.ID),
		zap.Int64("size", att.Size),
	)
	return msg, nil
}

func (uc *attachmentUseCase) cleanup(ctx context.Context, att *domain.Attachment, withRow bool) {
	bg := context.WithoutCancel(ctx)
	if withRow {
		if err := uc.attRepo.Delete(bg, att.ID); err != nil {
			logger.Log.Error("cleanup attachment row", zap.String("attachment_id", att.ID), zap.Error(err))
		}
	}
	if err := uc.storage.RemoveObject(bg, att.ObjectKey); err != nil {
		logger.Log.Error("cleanup attachment object", zap.String("object_key", att.ObjectKey), zap.Error(err))
	}
}

// DownloadURL presigned GET, 只有成員可以取得
func (uc *attachmentUseCase) DownloadURL(ctx context.Context, chatID, attachmentID, viewerID string) (string, error) {
	if err := checkParticipant(ctx, uc.convRepo, chatID, viewerID); err != nil {
		return "", err
	}

	att, err := uc.attRepo.FindByID(ctx, attachmentID)
	if err != nil {
		if errors.Is(err, repository.ErrAttachmentNotFound) {
			return "", errprocess.New(errprocess.ErrNotFound, "attachment not found")
		}
		return "", errprocess.Wrap(errprocess.ErrTransientStore, err)
	}
	if att.ChatID != chatID {
		return "", errprocess.New(errprocess.ErrNotFound, "attachment not found")
	}

	url, err := uc.storage.PresignGetURL(ctx, att.ObjectKey, uc.presignTTL)
	if err != nil {
		return "", errprocess.Wrap(errprocess.ErrTransientStore, err)
	}
	return url, nil
}

func detectContentType(declared, ext string, data []byte) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if byExt := mime.TypeByExtension(ext); byExt != "" {
		return byExt
	}
	return http.DetectContentType(data)
}

func messageTypeFor(contentType string) domain.MessageType {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return domain.MessageTypeImage
	case strings.HasPrefix(contentType, "audio/"):
		return domain.MessageTypeVoice
	default:
		return domain.MessageTypeFile
	}
}
