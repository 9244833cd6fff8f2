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

type orderDocument struct {
	ID        string                `bson:"_id"`
	SessionID string                `bson:"session_id"`
	User      domain.Purchaser      `bson:"user"`
	Products  []domain.OrderProduct `bson:"products"`
	Total     primitive.Decimal128  `bson:"total"`
	CreatedAt time.Time             `bson:"created_at"`
}

type MongoOrderRepository struct {
	collection *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{
		collection: db.Collection("orders"),
	}
}

func (m *MongoOrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	total, err := primitive.ParseDecimal128(order.Total.StringFixed(2))
	if err != nil {
		return fmt.Errorf("failed to encode order total: %w", err)
	}

	doc := orderDocument{
		ID:        order.ID,
		SessionID: order.SessionID,
		User:      order.User,
		Products:  order.Products,
		Total:     total,
		CreatedAt: order.CreatedAt,
	}

	if _, err := m.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateSession
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (m *MongoOrderRepository) ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	cursor, err := m.collection.Find(ctx, bson.M{"user.user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := make([]*domain.Order, 0)
	for cursor.Next(ctx) {
		var doc orderDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode order: %w", err)
		}

		order, err := doc.toOrder()
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor iteration error: %w", err)
	}

	return orders, nil
}

func (m *MongoOrderRepository) GetOrderBySessionID(ctx context.Context, sessionID string) (*domain.Order, error) {
	var doc orderDocument

	err := m.collection.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return doc.toOrder()
}

func (d *orderDocument) toOrder() (*domain.Order, error) {
	total, err := decimal.NewFromString(d.Total.String())
	if err != nil {
		return nil, fmt.Errorf("failed to decode order total: %w", err)
	}

	return &domain.Order{
		ID:        d.ID,
		SessionID: d.SessionID,
		User:      d.User,
		Products:  d.Products,
		Total:     total,
		CreatedAt: d.CreatedAt,
	}, nil
}

func (m *MongoOrderRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user.user_id", Value: 1}},
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create order indexes: %w", err)
	}

	return nil
}
