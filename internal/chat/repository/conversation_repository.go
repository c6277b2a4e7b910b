package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"realtime_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConversationRepository definition conversation store
type ConversationRepository interface {
	EnsureIndexes(ctx context.Context) error
	Create(ctx context.Context, conv *domain.Conversation) error
	FindByID(ctx context.Context, chatID string) (*domain.Conversation, error)
	FindPrivate(ctx context.Context, pairKey string) (*domain.Conversation, error)
	IsParticipant(ctx context.Context, chatID, memberID string) (bool, error)
	// UpdateSummary 只有當既有 last_message.timestamp <= ifNewerThan (或沒有 summary) 時才寫入
	UpdateSummary(ctx context.Context, chatID string, summary domain.LastMessage, ifNewerThan time.Time) (bool, error)
	ListByParticipant(ctx context.Context, memberID string, limit int64) ([]*domain.Conversation, error)
	UpdateSettings(ctx context.Context, chatID string, name, description *string, updatedAt time.Time) error
}

type conversationRepository struct {
	coll *mongo.Collection
}

// NewMongoConversationRepository create a ConversationRepository
func NewMongoConversationRepository(db *mongo.Database) ConversationRepository {
	return &conversationRepository{
		coll: db.Collection("conversations"),
	}
}

func (r *conversationRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "pair_key", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true).SetName("uniq_pair_key"),
		},
		{
			Keys:    bson.D{{Key: "participants", Value: 1}, {Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("participants_updated_at"),
		},
	})
	if err != nil {
		return fmt.Errorf("create conversation indexes: %w", err)
	}
	return nil
}

func (r *conversationRepository) Create(ctx context.Context, conv *domain.Conversation) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, conv); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

func (r *conversationRepository) FindByID(ctx context.Context, chatID string) (*domain.Conversation, error) {
	return r.findOne(ctx, bson.M{"_id": chatID})
}

func (r *conversationRepository) FindPrivate(ctx context.Context, pairKey string) (*domain.Conversation, error) {
	return r.findOne(ctx, bson.M{"pair_key": pairKey, "chat_type": domain.ChatTypePrivate})
}

func (r *conversationRepository) findOne(ctx context.Context, filter bson.M) (*domain.Conversation, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	var conv domain.Conversation
	if err := r.coll.FindOne(ctx, filter).Decode(&conv); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	return &conv, nil
}

func (r *conversationRepository) IsParticipant(ctx context.Context, chatID, memberID string) (bool, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": chatID, "participants": memberID}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count participant: %w", err)
	}
	return n > 0, nil
}

func (r *conversationRepository) UpdateSummary(ctx context.Context, chatID string, summary domain.LastMessage, ifNewerThan time.Time) (bool, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id": chatID,
		"$or": bson.A{
			bson.M{"last_message": bson.M{"$exists": false}},
			bson.M{"last_message": nil},
			bson.M{"last_message.timestamp": bson.M{"$lte": ifNewerThan}},
		},
	}
	update := bson.M{"$set": bson.M{
		"last_message": summary,
		"updated_at":   summary.Timestamp,
	}}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("update conversation summary: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

func (r *conversationRepository) ListByParticipant(ctx context.Context, memberID string, limit int64) ([]*domain.Conversation, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}).SetLimit(limit)
	cur, err := r.coll.Find(ctx, bson.M{"participants": memberID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find conversations: %w", err)
	}

	var convs []*domain.Conversation
	if err := cur.All(ctx, &convs); err != nil {
		return nil, fmt.Errorf("cursor All error: %w", err)
	}
	return convs, nil
}

func (r *conversationRepository) UpdateSettings(ctx context.Context, chatID string, name, description *string, updatedAt time.Time) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	set := bson.M{"updated_at": updatedAt}
	if name != nil {
		set["name"] = *name
	}
	if description != nil {
		set["description"] = *description
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": chatID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update conversation settings: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrConversationNotFound
	}
	return nil
}
