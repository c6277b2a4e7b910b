package repository

import (
	"context"
	"errors"
	"fmt"

	"realtime_chat_service/internal/chat/domain"

	"gorm.io/gorm"
)

// AttachmentRepository definition attachment metadata store
type AttachmentRepository interface {
	AutoMigrate() error
	Create(ctx context.Context, attachment *domain.Attachment) error
	FindByID(ctx context.Context, id string) (*domain.Attachment, error)
	Delete(ctx context.Context, id string) error
}

type attachmentRepository struct {
	db *gorm.DB
}

// NewAttachmentRepository create an AttachmentRepository
func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

// AutoMigrate 依 Attachment 模型建立/補齊 attachments 表, 不會刪欄位
func (r *attachmentRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&domain.Attachment{})
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.Attachment) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	if err := r.db.WithContext(ctx).Create(attachment).Error; err != nil {
		return fmt.Errorf("create attachment: %w", err)
	}
	return nil
}

func (r *attachmentRepository) FindByID(ctx context.Context, id string) (*domain.Attachment, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	var attachment domain.Attachment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&attachment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttachmentNotFound
		}
		return nil, fmt.Errorf("find attachment: %w", err)
	}
	return &attachment, nil
}

func (r *attachmentRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	return r.db.WithContext(ctx).Delete(&domain.Attachment{}, "id = ?", id).Error
}
