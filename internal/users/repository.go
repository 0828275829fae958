package users

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/projecto/projecto/internal/apperr"
	"github.com/projecto/projecto/internal/models"
)

// UserRepository defines persistence operations for users.
// KeyByEmail is the keys-only secondary-index lookup on the emails field.
type UserRepository interface {
	Insert(ctx context.Context, u *models.User) error
	Get(ctx context.Context, key string) (*models.User, error)
	KeyByEmail(ctx context.Context, email string) (string, error)
	Update(ctx context.Context, u *models.User) error
}

// MongoUserRepository implements UserRepository using MongoDB.
type MongoUserRepository struct {
	col *mongo.Collection
}

// NewMongoUserRepository creates a repository for the given collection and
// ensures the unique index on emails used by register-or-login lookups.
func NewMongoUserRepository(col *mongo.Collection) *MongoUserRepository {
	emailIdx := mongo.IndexModel{Keys: bson.D{{Key: "emails", Value: 1}}, Options: options.Index().SetUnique(true)}
	col.Indexes().CreateOne(context.Background(), emailIdx)
	keyIdx := mongo.IndexModel{Keys: bson.D{{Key: "key", Value: 1}}, Options: options.Index().SetUnique(true)}
	col.Indexes().CreateOne(context.Background(), keyIdx)
	return &MongoUserRepository{col: col}
}

func (r *MongoUserRepository) Insert(ctx context.Context, u *models.User) error {
	if u.Key == "" {
		u.Key = primitive.NewObjectID().Hex()
	}
	_, err := r.col.InsertOne(ctx, u)
	return err
}

func (r *MongoUserRepository) Get(ctx context.Context, key string) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"key": key}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *MongoUserRepository) KeyByEmail(ctx context.Context, email string) (string, error) {
	var u struct {
		Key string `bson:"key"`
	}
	opts := options.FindOne().SetProjection(bson.M{"key": 1})
	if err := r.col.FindOne(ctx, bson.M{"emails": email}, opts).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return "", apperr.ErrNotFound
		}
		return "", err
	}
	return u.Key, nil
}

func (r *MongoUserRepository) Update(ctx context.Context, u *models.User) error {
	res, err := r.col.ReplaceOne(ctx, bson.M{"key": u.Key}, u)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
