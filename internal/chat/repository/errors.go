package repository

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrConversationNotFound no conversation with the id
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrMessageNotFound no message with the id
	ErrMessageNotFound = errors.New("message not found")
	// ErrAttachmentNotFound no attachment with the id
	ErrAttachmentNotFound = errors.New("attachment not found")
	// ErrDuplicate unique index violation
	ErrDuplicate = errors.New("duplicate key")
)

const (
	defaultWriteTimeout = 5 * time.Second
	defaultReadTimeout  = 10 * time.Second
)

// ensureTimeout 呼叫端沒有 deadline 時補上預設 timeout
func ensureTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
