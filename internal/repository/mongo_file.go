package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/mansoorceksport/storeit/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const filesCollection = "files"

// MongoFileRepository implements domain.FileRepository using MongoDB
type MongoFileRepository struct {
	collection *mongo.Collection
}

// NewMongoFileRepository creates a new MongoDB file metadata repository
func NewMongoFileRepository(db *mongo.Database) *MongoFileRepository {
	collection := db.Collection(filesCollection)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "users", Value: 1}}},
		{
			Keys:    bson.D{{Key: "bucket_file_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})

	return &MongoFileRepository{
		collection: collection,
	}
}

// Create saves file metadata
func (r *MongoFileRepository) Create(ctx context.Context, file *domain.File) error {
	if file.ID == "" {
		file.ID = primitive.NewObjectID().Hex()
	}
	now := time.Now().UTC()
	file.CreatedAt = now
	file.UpdatedAt = now
	if file.Users == nil {
		file.Users = []string{}
	}

	if _, err := r.collection.InsertOne(ctx, file); err != nil {
		return fmt.Errorf("failed to insert file: %w", err)
	}
	return nil
}

// GetByID retrieves file metadata by ID
func (r *MongoFileRepository) GetByID(ctx context.Context, id string) (*domain.File, error) {
	var file domain.File
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&file); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return &file, nil
}

// List returns files owned by or shared with the querying user, filtered and sorted
func (r *MongoFileRepository) List(ctx context.Context, query domain.FileQuery) ([]*domain.File, error) {
	filter := buildFileFilter(query)

	direction := 1
	if query.Sort.Descending {
		direction = -1
	}
	field := query.Sort.Field
	if field == "" {
		field = "created_at"
	}
	opts := options.Find().SetSort(bson.D{
		{Key: field, Value: direction},
		{Key: "_id", Value: direction}, // Stable order for equal keys
	})
	if query.Limit > 0 {
		opts.SetLimit(query.Limit)
	}

	return r.find(ctx, filter, opts)
}

// ListByOwner returns every file owned by a user
func (r *MongoFileRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.File, error) {
	return r.find(ctx, bson.M{"owner_id": ownerID}, options.Find())
}

// Rename sets a new file name and returns the updated document
func (r *MongoFileRepository) Rename(ctx context.Context, id string, name string) (*domain.File, error) {
	return r.updateOne(ctx, id, bson.M{"name": name})
}

// UpdateUsers replaces the shared-with email list
func (r *MongoFileRepository) UpdateUsers(ctx context.Context, id string, emails []string) (*domain.File, error) {
	if emails == nil {
		emails = []string{}
	}
	return r.updateOne(ctx, id, bson.M{"users": emails})
}

// Delete removes file metadata
func (r *MongoFileRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MongoFileRepository) updateOne(ctx context.Context, id string, set bson.M) (*domain.File, error) {
	set["updated_at"] = time.Now().UTC()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var file domain.File
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&file)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update file: %w", err)
	}
	return &file, nil
}

func (r *MongoFileRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.File, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find files: %w", err)
	}
	defer cursor.Close(ctx)

	files := []*domain.File{}
	if err := cursor.All(ctx, &files); err != nil {
		return nil, fmt.Errorf("failed to decode files: %w", err)
	}
	return files, nil
}

// buildFileFilter translates a FileQuery into a Mongo filter
func buildFileFilter(query domain.FileQuery) bson.M {
	visibility := bson.A{bson.M{"owner_id": query.OwnerID}}
	if query.Email != "" {
		visibility = append(visibility, bson.M{"users": domain.NormalizeEmail(query.Email)})
	}
	filter := bson.M{"$or": visibility}

	if len(query.Types) > 0 {
		types := make(bson.A, 0, len(query.Types))
		for _, t := range query.Types {
			types = append(types, string(t))
		}
		filter["type"] = bson.M{"$in": types}
	}

	if query.Search != "" {
		filter["name"] = bson.M{
			"$regex":   regexp.QuoteMeta(query.Search),
			"$options": "i",
		}
	}

	return filter
}
