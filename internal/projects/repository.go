package projects

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/projecto/projecto/internal/apperr"
	"github.com/projecto/projecto/internal/models"
)

// Repository defines persistence operations for projects. ByOwner and
// ByCollaborator are secondary-index queries over the list-valued
// membership fields.
type Repository interface {
	Insert(ctx context.Context, p *models.Project) error
	Get(ctx context.Context, key string) (*models.Project, error)
	Update(ctx context.Context, p *models.Project) error
	ByOwner(ctx context.Context, userKey string) ([]*models.Project, error)
	ByCollaborator(ctx context.Context, userKey string) ([]*models.Project, error)
}

// MongoRepository implements Repository using MongoDB.
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	keyIdx := mongo.IndexModel{Keys: bson.D{{Key: "key", Value: 1}}, Options: options.Index().SetUnique(true)}
	col.Indexes().CreateOne(context.Background(), keyIdx)
	// membership indexes back the owned/participating listings
	col.Indexes().CreateOne(context.Background(), mongo.IndexModel{Keys: bson.D{{Key: "owners", Value: 1}}})
	col.Indexes().CreateOne(context.Background(), mongo.IndexModel{Keys: bson.D{{Key: "collaborators", Value: 1}}})
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Insert(ctx context.Context, p *models.Project) error {
	if p.Key == "" {
		p.Key = primitive.NewObjectID().Hex()
	}
	_, err := r.col.InsertOne(ctx, p)
	return err
}

func (r *MongoRepository) Get(ctx context.Context, key string) (*models.Project, error) {
	var p models.Project
	if err := r.col.FindOne(ctx, bson.M{"key": key}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *MongoRepository) Update(ctx context.Context, p *models.Project) error {
	res, err := r.col.ReplaceOne(ctx, bson.M{"key": p.Key}, p)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *MongoRepository) ByOwner(ctx context.Context, userKey string) ([]*models.Project, error) {
	return r.find(ctx, bson.M{"owners": userKey})
}

func (r *MongoRepository) ByCollaborator(ctx context.Context, userKey string) ([]*models.Project, error) {
	return r.find(ctx, bson.M{"collaborators": userKey})
}

func (r *MongoRepository) find(ctx context.Context, filter bson.M) ([]*models.Project, error) {
	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*models.Project{}
	for cur.Next(ctx) {
		var p models.Project
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, cur.Err()
}
