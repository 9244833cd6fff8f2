package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront-service/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type sessionDocument struct {
	SessionID string               `bson:"session_id"`
	Cart      []domain.CartItem    `bson:"cart"`
	Total     primitive.Decimal128 `bson:"total"`
	User      domain.Purchaser     `bson:"user"`
	CreatedAt time.Time            `bson:"created_at"`
}

type MongoSessionRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewMongoSessionRepository(db *mongo.Database) *MongoSessionRepository {
	return &MongoSessionRepository{
		collection: db.Collection("sessions"),
		now:        time.Now,
	}
}

func (m *MongoSessionRepository) InsertSession(ctx context.Context, session *domain.Session) error {
	total, err := primitive.ParseDecimal128(session.Total.StringFixed(2))
	if err != nil {
		return fmt.Errorf("failed to encode session total: %w", err)
	}

	doc := sessionDocument{
		SessionID: session.SessionID,
		Cart:      session.Cart,
		Total:     total,
		User:      session.User,
		CreatedAt: session.CreatedAt,
	}

	if _, err := m.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateSession
		}
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (m *MongoSessionRepository) FindSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	var doc sessionDocument

	err := m.collection.FindOne(ctx, m.liveFilter(sessionID)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	total, err := decimal.NewFromString(doc.Total.String())
	if err != nil {
		return nil, fmt.Errorf("failed to decode session total: %w", err)
	}

	return &domain.Session{
		SessionID: doc.SessionID,
		Cart:      doc.Cart,
		Total:     total,
		User:      doc.User,
		CreatedAt: doc.CreatedAt,
	}, nil
}

// DeleteSession matches on id alone: a caller that already found the record live keeps it
// even if the retention window closes before the delete.
func (m *MongoSessionRepository) DeleteSession(ctx context.Context, sessionID string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// liveFilter hides records past retention that the TTL monitor has not swept yet.
func (m *MongoSessionRepository) liveFilter(sessionID string) bson.M {
	return bson.M{
		"session_id": sessionID,
		"created_at": bson.M{"$gt": m.now().Add(-domain.SessionRetention)},
	}
}

func (m *MongoSessionRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(domain.SessionRetention.Seconds())),
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create session indexes: %w", err)
	}

	return nil
}
