package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoUserRepository struct {
	collection *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{
		collection: db.Collection("users"),
	}
}

func (m *MongoUserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	if user.Tokens == nil {
		user.Tokens = []string{}
	}

	if _, err := m.collection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (m *MongoUserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return m.findOne(ctx, bson.M{"email": email})
}

func (m *MongoUserRepository) GetUserByToken(ctx context.Context, token string) (*domain.User, error) {
	return m.findOne(ctx, bson.M{"tokens": token})
}

func (m *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var user domain.User

	err := m.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (m *MongoUserRepository) AddToken(ctx context.Context, userID, token string) error {
	update := bson.M{"$push": bson.M{"tokens": token}}
	return m.updateByID(ctx, userID, update, "add token")
}

func (m *MongoUserRepository) RemoveToken(ctx context.Context, userID, token string) error {
	update := bson.M{"$pull": bson.M{"tokens": token}}
	return m.updateByID(ctx, userID, update, "remove token")
}

func (m *MongoUserRepository) SetResetCode(ctx context.Context, userID, code string, expiresAt time.Time) error {
	update := bson.M{
		"$set": bson.M{
			"reset_code":            code,
			"reset_code_expires_at": expiresAt,
			"reset_attempts":        0,
		},
	}
	return m.updateByID(ctx, userID, update, "set reset code")
}

func (m *MongoUserRepository) ConsumeResetAttempt(ctx context.Context, userID string, maxAttempts int) error {
	filter := bson.M{
		"_id":            userID,
		"reset_attempts": bson.M{"$not": bson.M{"$gte": maxAttempts}},
	}
	result, err := m.collection.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"reset_attempts": 1}})
	if err != nil {
		return fmt.Errorf("failed to consume reset attempt: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrResetLocked
	}
	return nil
}

func (m *MongoUserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	update := bson.M{
		"$set":   bson.M{"password_hash": passwordHash},
		"$unset": bson.M{"reset_code": "", "reset_code_expires_at": "", "reset_attempts": ""},
	}
	return m.updateByID(ctx, userID, update, "update password")
}

func (m *MongoUserRepository) updateByID(ctx context.Context, userID string, update bson.M, op string) error {
	result, err := m.collection.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (m *MongoUserRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "tokens", Value: 1}},
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	return nil
}
