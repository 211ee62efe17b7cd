package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mansoorceksport/storeit/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoOTPRepository implements domain.OTPRepository using MongoDB
type MongoOTPRepository struct {
	collection *mongo.Collection
}

// NewMongoOTPRepository creates a new MongoDB one-time code repository
func NewMongoOTPRepository(db *mongo.Database) *MongoOTPRepository {
	collection := db.Collection("otp_challenges")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})

	return &MongoOTPRepository{
		collection: collection,
	}
}

func (r *MongoOTPRepository) Create(ctx context.Context, challenge *domain.OTPChallenge) error {
	if challenge.CreatedAt.IsZero() {
		challenge.CreatedAt = time.Now().UTC()
	}
	if _, err := r.collection.InsertOne(ctx, challenge); err != nil {
		return fmt.Errorf("failed to store otp challenge: %w", err)
	}
	return nil
}

func (r *MongoOTPRepository) GetByID(ctx context.Context, id string) (*domain.OTPChallenge, error) {
	var challenge domain.OTPChallenge
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&challenge); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get otp challenge: %w", err)
	}
	return &challenge, nil
}

func (r *MongoOTPRepository) ClaimAttempt(ctx context.Context, id string, now time.Time) (*domain.OTPChallenge, error) {
	filter := bson.M{
		"_id":        id,
		"attempts":   bson.M{"$lt": domain.MaxOTPAttempts},
		"expires_at": bson.M{"$gt": now.UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var challenge domain.OTPChallenge
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$inc": bson.M{"attempts": 1}}, opts).Decode(&challenge)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to claim otp attempt: %w", err)
	}
	return &challenge, nil
}

func (r *MongoOTPRepository) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete otp challenge: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MongoOTPRepository) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}
