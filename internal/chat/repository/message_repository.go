package repository

import (
	"context"
	"errors"
	"fmt"

	"realtime_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository definition message store
type MessageRepository interface {
	EnsureIndexes(ctx context.Context) error
	InsertMessage(ctx context.Context, msg *domain.Message) error
	FindByID(ctx context.Context, messageID string) (*domain.Message, error)
	// UpdateStatus 只在目前狀態屬於 allowedFrom 時更新, 回傳實際修改筆數
	UpdateStatus(ctx context.Context, messageID string, to domain.MessageStatus, allowedFrom []domain.MessageStatus) (int64, error)
	CountUnread(ctx context.Context, chatID, viewerID string) (int64, error)
	CountUnreadByConversation(ctx context.Context, viewerID string, chatIDs []string) ([]domain.UnreadInfo, error)
	// ListByConversation 依時間新到舊分頁, 回傳頁內由舊到新
	ListByConversation(ctx context.Context, chatID string, skip, limit int64) ([]*domain.Message, error)
}

type messageRepository struct {
	coll *mongo.Collection
}

// NewMongoMessageRepository create a MessageRepository
func NewMongoMessageRepository(db *mongo.Database) MessageRepository {
	return &messageRepository{
		coll: db.Collection("messages"),
	}
}

func (r *messageRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "chat_id", Value: 1}, {Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("chat_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "chat_id", Value: 1}, {Key: "status", Value: 1}, {Key: "sender_id", Value: 1}},
			Options: options.Index().SetName("chat_status_sender"),
		},
	})
	if err != nil {
		return fmt.Errorf("create message indexes: %w", err)
	}
	return nil
}

func (r *messageRepository) InsertMessage(ctx context.Context, msg *domain.Message) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, msg); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *messageRepository) FindByID(ctx context.Context, messageID string) (*domain.Message, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	var msg domain.Message
	if err := r.coll.FindOne(ctx, bson.M{"_id": messageID}).Decode(&msg); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("find message: %w", err)
	}
	return &msg, nil
}

func (r *messageRepository) UpdateStatus(ctx context.Context, messageID string, to domain.MessageStatus, allowedFrom []domain.MessageStatus) (int64, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id":    messageID,
		"status": bson.M{"$in": allowedFrom},
	}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"status": to}})
	if err != nil {
		return 0, fmt.Errorf("update message status: %w", err)
	}
	return res.ModifiedCount, nil
}

func unreadFilter(viewerID string) bson.M {
	return bson.M{
		"sender_id": bson.M{"$ne": viewerID},
		"status":    bson.M{"$ne": domain.MessageStatusRead},
	}
}

func (r *messageRepository) CountUnread(ctx context.Context, chatID, viewerID string) (int64, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := unreadFilter(viewerID)
	filter["chat_id"] = chatID

	n, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

func (r *messageRepository) CountUnreadByConversation(ctx context.Context, viewerID string, chatIDs []string) ([]domain.UnreadInfo, error) {
	if len(chatIDs) == 0 {
		return nil, nil
	}
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	match := unreadFilter(viewerID)
	match["chat_id"] = bson.M{"$in": chatIDs}

	pipeline := mongo.Pipeline{
		// 1. 過濾出未讀訊息 (別人送的且狀態不是 read)
		bson.D{{Key: "$match", Value: match}},
		// 2. 按 chat_id 分組，計算未讀數量和最新未讀時間
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$chat_id"},
			{Key: "unread_count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "last_unread_timestamp", Value: bson.D{{Key: "$max", Value: "$timestamp"}}},
		}}},
		// 3. 根據 last_unread_timestamp 降序排序
		bson.D{{Key: "$sort", Value: bson.D{
			{Key: "last_unread_timestamp", Value: -1},
		}}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate error: %w", err)
	}

	var results []domain.UnreadInfo
	if err := cur.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("cursor All error: %w", err)
	}
	return results, nil
}

func (r *messageRepository) ListByConversation(ctx context.Context, chatID string, skip, limit int64) ([]*domain.Message, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)
	cur, err := r.coll.Find(ctx, bson.M{"chat_id": chatID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}

	var msgs []*domain.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("cursor All error: %w", err)
	}

	// 反轉成由舊到新
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
